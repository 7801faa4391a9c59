package dto

import "github.com/noah-isme/lms-api/internal/models"

// MarkAttendanceRequest records the caller's presence at a lecture.
type MarkAttendanceRequest struct {
	LectureID string                  `json:"lecture_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"omitempty,oneof=present absent"`
}

// AttendanceReport is the per-course attendance summary.
type AttendanceReport struct {
	CourseID      string                       `json:"course_id"`
	CourseTitle   string                       `json:"course_title"`
	TotalLectures int                          `json:"total_lectures"`
	Students      []models.AttendanceReportRow `json:"students"`
}
