package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// Attendance marks a student's presence at a lecture.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	LectureID string           `db:"lecture_id" json:"lecture_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
}

// AttendanceDetail adds lecture information to an attendance record.
type AttendanceDetail struct {
	Attendance
	LectureTitle    string `db:"lecture_title" json:"lecture_title"`
	LecturePosition int    `db:"lecture_position" json:"lecture_position"`
}

// AttendanceReportRow is one student's line in a course attendance report.
type AttendanceReportRow struct {
	StudentID        string   `json:"student_id"`
	StudentName      string   `json:"student_name"`
	StudentEmail     string   `json:"student_email"`
	AttendedLectures []string `json:"attended_lectures"`
	AttendedCount    int      `json:"attended_count"`
	TotalLectures    int      `json:"total_lectures"`
}

// AttendanceRecordRow is a flat student/lecture pair used to build reports.
type AttendanceRecordRow struct {
	StudentID string `db:"student_id"`
	LectureID string `db:"lecture_id"`
}
