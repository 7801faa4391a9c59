package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

const attendanceColumns = `id, student_id, lecture_id, course_id, status, marked_at`

// AttendanceRepository persists lecture attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Mark inserts the record unless one already exists for the student and
// lecture. It returns the stored record and whether it was newly created.
func (r *AttendanceRepository) Mark(ctx context.Context, attendance *models.Attendance) (*models.Attendance, bool, error) {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	if attendance.MarkedAt.IsZero() {
		attendance.MarkedAt = time.Now().UTC()
	}

	query := `INSERT INTO attendance (id, student_id, lecture_id, course_id, status, marked_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, lecture_id) DO NOTHING
RETURNING ` + attendanceColumns
	var stored models.Attendance
	err := r.db.GetContext(ctx, &stored, query,
		attendance.ID, attendance.StudentID, attendance.LectureID, attendance.CourseID, attendance.Status, attendance.MarkedAt)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("mark attendance: %w", err)
	}

	existingQuery := `SELECT ` + attendanceColumns + ` FROM attendance WHERE student_id = $1 AND lecture_id = $2`
	if err := r.db.GetContext(ctx, &stored, existingQuery, attendance.StudentID, attendance.LectureID); err != nil {
		return nil, false, fmt.Errorf("load existing attendance: %w", err)
	}
	return &stored, false, nil
}

// ListPresentByCourse returns student/lecture pairs marked present in a course.
func (r *AttendanceRepository) ListPresentByCourse(ctx context.Context, courseID string) ([]models.AttendanceRecordRow, error) {
	const query = `SELECT student_id, lecture_id FROM attendance WHERE course_id = $1 AND status = 'present' ORDER BY marked_at ASC`
	var rows []models.AttendanceRecordRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course attendance: %w", err)
	}
	return rows, nil
}

// ListByStudentAndCourse returns a student's attendance in a course in lecture order.
func (r *AttendanceRepository) ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]models.AttendanceDetail, error) {
	const query = `SELECT a.id, a.student_id, a.lecture_id, a.course_id, a.status, a.marked_at, l.title AS lecture_title, l.position AS lecture_position
FROM attendance a
JOIN lectures l ON l.id = a.lecture_id
WHERE a.student_id = $1 AND a.course_id = $2
ORDER BY l.position ASC`
	var items []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &items, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return items, nil
}
