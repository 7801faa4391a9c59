package dto

// EnrollRequest enrolls the caller into a course.
type EnrollRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// ProgressRequest marks a lecture completed for the caller.
type ProgressRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	LectureID string `json:"lecture_id" validate:"required"`
}
