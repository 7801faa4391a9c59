package dto

// AnswerInput is one submitted answer.
type AnswerInput struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedOption string `json:"selected_option"`
}

// MaxSubmittedAnswers caps one submission so its answers fit a single
// multi-row insert.
const MaxSubmittedAnswers = 1000

// SubmitQuizRequest is the grading pipeline input. An empty answers list is
// a valid submission; a missing one is not.
type SubmitQuizRequest struct {
	QuizID  string        `json:"quiz_id" validate:"required"`
	Answers []AnswerInput `json:"answers" validate:"required,max=1000,dive"`
}
