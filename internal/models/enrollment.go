package models

import (
	"database/sql/driver"
	"time"
)

// CompletionStatus tracks how far a student got through a course.
type CompletionStatus string

const (
	CompletionNotStarted CompletionStatus = "not_started"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
)

// LectureProgress maps completed lecture ids to true.
type LectureProgress map[string]bool

// Scan implements sql.Scanner.
func (p *LectureProgress) Scan(src interface{}) error {
	out := LectureProgress{}
	if err := scanJSONB(src, &out); err != nil {
		return err
	}
	*p = out
	return nil
}

// Value implements driver.Valuer.
func (p LectureProgress) Value() (driver.Value, error) {
	if p == nil {
		p = LectureProgress{}
	}
	return jsonbValue(map[string]bool(p))
}

// Status derives the completion status against the course's lecture count.
func (p LectureProgress) Status(totalLectures int) CompletionStatus {
	done := 0
	for _, completed := range p {
		if completed {
			done++
		}
	}
	switch {
	case done == 0:
		return CompletionNotStarted
	case done >= totalLectures:
		return CompletionCompleted
	default:
		return CompletionInProgress
	}
}

// Enrollment captures a student's registration to a course.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	CourseID         string           `db:"course_id" json:"course_id"`
	EnrolledAt       time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Progress         LectureProgress  `db:"progress" json:"progress"`
	CompletionStatus CompletionStatus `db:"completion_status" json:"completion_status"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	CourseTitle  string `db:"course_title" json:"course_title"`
}
