package models

import "time"

// LectureContentType describes how lecture content is delivered.
type LectureContentType string

const (
	LectureContentVideo LectureContentType = "video"
	LectureContentText  LectureContentType = "text"
	LectureContentPDF   LectureContentType = "pdf"
	LectureContentQuiz  LectureContentType = "quiz"
)

// Lecture is an ordered piece of course content.
type Lecture struct {
	ID          string             `db:"id" json:"id"`
	CourseID    string             `db:"course_id" json:"course_id"`
	Title       string             `db:"title" json:"title"`
	Content     string             `db:"content" json:"content"`
	ContentType LectureContentType `db:"content_type" json:"content_type"`
	Position    int                `db:"position" json:"position"`
	Duration    int                `db:"duration" json:"duration"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}
