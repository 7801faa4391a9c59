package models

import "time"

// CourseLevel expresses the intended audience of a course.
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

// Course is the unit students enroll into.
type Course struct {
	ID           string      `db:"id" json:"id"`
	Title        string      `db:"title" json:"title"`
	Description  string      `db:"description" json:"description"`
	InstructorID string      `db:"instructor_id" json:"instructor_id"`
	Duration     int         `db:"duration" json:"duration"`
	Price        float64     `db:"price" json:"price"`
	Category     string      `db:"category" json:"category"`
	Level        CourseLevel `db:"level" json:"level"`
	Thumbnail    string      `db:"thumbnail" json:"thumbnail,omitempty"`
	Published    bool        `db:"published" json:"published"`
	Active       bool        `db:"active" json:"active"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Public reports whether anyone may see the course.
func (c *Course) Public() bool {
	return c.Published && c.Active
}

// CourseDetail enriches Course with the instructor's name.
type CourseDetail struct {
	Course
	InstructorName  string `db:"instructor_name" json:"instructor_name"`
	InstructorEmail string `db:"instructor_email" json:"instructor_email"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	InstructorID  string
	Category      string
	Level         CourseLevel
	Search        string
	PublishedOnly bool
	ActiveOnly    bool
	Page          int
	PageSize      int
}
