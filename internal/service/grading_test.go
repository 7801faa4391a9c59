package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
)

func twoQuestionQuiz() []models.Question {
	return []models.Question{
		{ID: "q1", QuestionText: "2+2", Options: models.QuestionOptions{{Text: "3"}, {Text: "4", IsCorrect: true}}},
		{ID: "q2", QuestionText: "Capital of France", Options: models.QuestionOptions{{Text: "Paris", IsCorrect: true}, {Text: "Rome"}}},
	}
}

func correctness(answers []models.AttemptAnswer) []bool {
	out := make([]bool, 0, len(answers))
	for _, a := range answers {
		out = append(out, a.IsCorrect)
	}
	return out
}

func TestGradeSubmissionHalfCorrect(t *testing.T) {
	answers, score := GradeSubmission(twoQuestionQuiz(), []dto.AnswerInput{
		{QuestionID: "q1", SelectedOption: "4"},
		{QuestionID: "q2", SelectedOption: "Rome"},
	})
	assert.Equal(t, 50.0, score)
	assert.Equal(t, []bool{true, false}, correctness(answers))
	assert.Equal(t, 0, answers[0].Position)
	assert.Equal(t, 1, answers[1].Position)
}

func TestGradeSubmissionScores(t *testing.T) {
	cases := []struct {
		name      string
		questions []models.Question
		answers   []dto.AnswerInput
		score     float64
		correct   []bool
	}{
		{
			name:      "all correct",
			questions: twoQuestionQuiz(),
			answers:   []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "4"}, {QuestionID: "q2", SelectedOption: "Paris"}},
			score:     100,
			correct:   []bool{true, true},
		},
		{
			name:      "none correct",
			questions: twoQuestionQuiz(),
			answers:   []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "3"}, {QuestionID: "q2", SelectedOption: "Rome"}},
			score:     0,
			correct:   []bool{false, false},
		},
		{
			name:      "no questions",
			questions: nil,
			answers:   []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "4"}},
			score:     0,
			correct:   []bool{false},
		},
		{
			name:      "unknown question is incorrect",
			questions: twoQuestionQuiz(),
			answers:   []dto.AnswerInput{{QuestionID: "zzz", SelectedOption: "4"}, {QuestionID: "q1", SelectedOption: "4"}},
			score:     50,
			correct:   []bool{false, true},
		},
		{
			name:      "repeated answers count once",
			questions: twoQuestionQuiz(),
			answers:   []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "4"}, {QuestionID: "q1", SelectedOption: "4"}, {QuestionID: "q1", SelectedOption: "4"}},
			score:     50,
			correct:   []bool{true, true, true},
		},
		{
			name:      "empty submission",
			questions: twoQuestionQuiz(),
			answers:   []dto.AnswerInput{},
			score:     0,
			correct:   []bool{},
		},
		{
			name: "question without key",
			questions: []models.Question{
				{ID: "q1", Options: models.QuestionOptions{{Text: "a"}, {Text: "b"}}},
				{ID: "q2", Options: models.QuestionOptions{{Text: "x", IsCorrect: true}}},
				{ID: "q3", Options: models.QuestionOptions{{Text: "y", IsCorrect: true}}},
			},
			answers: []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "a"}, {QuestionID: "q2", SelectedOption: "x"}},
			score:   33.33,
			correct: []bool{false, true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answers, score := GradeSubmission(tc.questions, tc.answers)
			require.Len(t, answers, len(tc.answers))
			assert.Equal(t, tc.score, score)
			assert.Equal(t, tc.correct, correctness(answers))
		})
	}
}

func TestGradeSubmissionUsesFirstCorrectOption(t *testing.T) {
	questions := []models.Question{{ID: "q1", Options: models.QuestionOptions{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}}}}

	_, score := GradeSubmission(questions, []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "b"}})
	assert.Equal(t, 0.0, score)

	_, score = GradeSubmission(questions, []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "a"}})
	assert.Equal(t, 100.0, score)
}

func TestGradeSubmissionKeepsFullPrecision(t *testing.T) {
	questions := append(twoQuestionQuiz(), models.Question{ID: "q3", Options: models.QuestionOptions{{Text: "yes", IsCorrect: true}}})

	_, score := GradeSubmission(questions, []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "4"}})
	assert.Equal(t, float64(1)/float64(3)*100, score)
	assert.NotEqual(t, 33.33, score)
}
