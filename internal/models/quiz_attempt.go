package models

import "time"

// QuizAttempt is an immutable graded submission.
type QuizAttempt struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	QuizID      string    `db:"quiz_id" json:"quiz_id"`
	Score       float64   `db:"score" json:"score"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AttemptAnswer records one graded answer within an attempt.
type AttemptAnswer struct {
	AttemptID      string `db:"attempt_id" json:"-"`
	Position       int    `db:"position" json:"-"`
	QuestionID     string `db:"question_id" json:"question_id"`
	SelectedOption string `db:"selected_option" json:"selected_option"`
	IsCorrect      bool   `db:"is_correct" json:"is_correct"`
	QuestionText   string `db:"question_text" json:"question_text,omitempty"`
}

// QuizAttemptDetail bundles an attempt with its answers.
type QuizAttemptDetail struct {
	QuizAttempt
	Answers []AttemptAnswer `json:"answers"`
}

// QuizAttemptSummary is the listing projection including the student.
type QuizAttemptSummary struct {
	QuizAttempt
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}
