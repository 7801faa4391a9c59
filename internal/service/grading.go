package service

import (
	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
)

// GradeSubmission scores answers against the questions' stored answer keys.
//
// An answer is correct when its selected option equals the text of the first
// option flagged correct on the referenced question. Answers naming unknown
// questions, or questions without a key, are marked incorrect. Each question
// counts at most once toward the score, which is the share of the quiz's
// questions answered correctly scaled to 0..100. The score is stored
// unrounded; exports format it. A quiz without questions scores 0.
func GradeSubmission(questions []models.Question, answers []dto.AnswerInput) ([]models.AttemptAnswer, float64) {
	keys := make(map[string]string, len(questions))
	for _, q := range questions {
		if key, ok := q.Options.AnswerKey(); ok {
			keys[q.ID] = key
		}
	}

	graded := make([]models.AttemptAnswer, 0, len(answers))
	solved := make(map[string]struct{}, len(answers))
	for i, a := range answers {
		key, ok := keys[a.QuestionID]
		correct := ok && a.SelectedOption == key
		if correct {
			solved[a.QuestionID] = struct{}{}
		}
		graded = append(graded, models.AttemptAnswer{
			Position:       i,
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      correct,
		})
	}

	if len(questions) == 0 {
		return graded, 0
	}
	return graded, float64(len(solved)) / float64(len(questions)) * 100
}
