package dto

import (
	"time"

	"github.com/noah-isme/lms-api/internal/models"
)

// CreateQuizRequest is the payload for creating a quiz.
type CreateQuizRequest struct {
	CourseID  string     `json:"course_id" validate:"required"`
	LectureID *string    `json:"lecture_id" validate:"omitempty,min=1"`
	Title     string     `json:"title" validate:"required,max=200"`
	DueDate   *time.Time `json:"due_date"`
}

// UpdateQuizRequest holds optional quiz changes.
type UpdateQuizRequest struct {
	LectureID *string    `json:"lecture_id" validate:"omitempty,min=1"`
	Title     *string    `json:"title" validate:"omitempty,min=1,max=200"`
	DueDate   *time.Time `json:"due_date"`
}

// QuestionRequest creates or replaces a question.
type QuestionRequest struct {
	QuestionText string                  `json:"question_text" validate:"required"`
	QuestionType models.QuestionType     `json:"question_type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Options      []models.QuestionOption `json:"options" validate:"required,min=1,dive"`
	Position     *int                    `json:"position" validate:"omitempty,gte=0"`
}

// OptionView is an answer choice without its correctness flag.
type OptionView struct {
	Text string `json:"text"`
}

// QuestionView is the student-facing question representation.
type QuestionView struct {
	ID           string              `json:"id"`
	QuestionText string              `json:"question_text"`
	QuestionType models.QuestionType `json:"question_type"`
	Options      []OptionView        `json:"options"`
}

// NewQuestionView strips answer keys from a stored question.
func NewQuestionView(q models.Question) QuestionView {
	options := make([]OptionView, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, OptionView{Text: opt.Text})
	}
	return QuestionView{ID: q.ID, QuestionText: q.QuestionText, QuestionType: q.QuestionType, Options: options}
}

// QuizView is a quiz as seen by a student taking it.
type QuizView struct {
	models.Quiz
	Questions []QuestionView `json:"questions"`
}

// QuizWithQuestions is a quiz as seen by its editors.
type QuizWithQuestions struct {
	models.Quiz
	Questions []models.Question `json:"questions"`
}
