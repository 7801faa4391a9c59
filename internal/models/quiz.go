package models

import (
	"database/sql/driver"
	"time"
)

// QuestionType enumerates supported question formats.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Quiz groups questions attached to a course and optionally a lecture.
type Quiz struct {
	ID        string     `db:"id" json:"id"`
	CourseID  string     `db:"course_id" json:"course_id"`
	LectureID *string    `db:"lecture_id" json:"lecture_id,omitempty"`
	Title     string     `db:"title" json:"title"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// QuestionOption is a single answer choice.
type QuestionOption struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionOptions is stored as a jsonb array.
type QuestionOptions []QuestionOption

// Scan implements sql.Scanner.
func (o *QuestionOptions) Scan(src interface{}) error {
	var out QuestionOptions
	if err := scanJSONB(src, &out); err != nil {
		return err
	}
	*o = out
	return nil
}

// Value implements driver.Valuer.
func (o QuestionOptions) Value() (driver.Value, error) {
	if o == nil {
		o = QuestionOptions{}
	}
	return jsonbValue([]QuestionOption(o))
}

// AnswerKey returns the text of the first option flagged correct.
func (o QuestionOptions) AnswerKey() (string, bool) {
	for _, opt := range o {
		if opt.IsCorrect {
			return opt.Text, true
		}
	}
	return "", false
}

// Question is a single quiz item including its answer key.
type Question struct {
	ID           string          `db:"id" json:"id"`
	QuizID       string          `db:"quiz_id" json:"quiz_id"`
	QuestionText string          `db:"question_text" json:"question_text"`
	QuestionType QuestionType    `db:"question_type" json:"question_type"`
	Options      QuestionOptions `db:"options" json:"options"`
	Position     int             `db:"position" json:"position"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
