package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

type mockAttendanceRepo struct {
	records map[string]*models.Attendance
}

func (m *mockAttendanceRepo) Mark(ctx context.Context, attendance *models.Attendance) (*models.Attendance, bool, error) {
	key := attendance.StudentID + "/" + attendance.LectureID
	if existing, ok := m.records[key]; ok {
		return existing, false, nil
	}
	m.records[key] = attendance
	return attendance, true, nil
}

func (m *mockAttendanceRepo) ListPresentByCourse(ctx context.Context, courseID string) ([]models.AttendanceRecordRow, error) {
	var rows []models.AttendanceRecordRow
	for _, r := range m.records {
		if r.CourseID == courseID && r.Status == models.AttendanceStatusPresent {
			rows = append(rows, models.AttendanceRecordRow{StudentID: r.StudentID, LectureID: r.LectureID})
		}
	}
	return rows, nil
}

func (m *mockAttendanceRepo) ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]models.AttendanceDetail, error) {
	var out []models.AttendanceDetail
	for _, r := range m.records {
		if r.StudentID == studentID && r.CourseID == courseID {
			out = append(out, models.AttendanceDetail{Attendance: *r})
		}
	}
	return out, nil
}

func newAttendanceFixture() (*AttendanceService, *mockAttendanceRepo) {
	repo := &mockAttendanceRepo{records: map[string]*models.Attendance{}}
	enrollments := newMockEnrollmentRepo(
		&models.Enrollment{ID: "enr-1", StudentID: "student-1", CourseID: "course-1"},
		&models.Enrollment{ID: "enr-2", StudentID: "student-2", CourseID: "course-1"},
	)
	return NewAttendanceService(repo, testLectures(), testCourses(), enrollments, nil, nil, nil), repo
}

func TestAttendanceServiceMarkIsIdempotent(t *testing.T) {
	svc, repo := newAttendanceFixture()

	first, created, err := svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "lec-1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AttendanceStatusPresent, first.Status)
	assert.Equal(t, "course-1", first.CourseID)

	second, created, err := svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "lec-1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Len(t, repo.records, 1)
}

func TestAttendanceServiceMarkRejects(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, _, err := svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "lec-x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "lec-1", Status: "late"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceReport(t *testing.T) {
	svc, _ := newAttendanceFixture()
	_, _, err := svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "lec-1"})
	require.NoError(t, err)
	_, _, err = svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "lec-2"})
	require.NoError(t, err)

	_, err = svc.Report(context.Background(), studentActor, "course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	report, err := svc.Report(context.Background(), teacherActor, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalLectures)
	require.Len(t, report.Students, 2)

	byStudent := map[string]models.AttendanceReportRow{}
	for _, row := range report.Students {
		byStudent[row.StudentID] = row
	}
	assert.Equal(t, 2, byStudent["student-1"].AttendedCount)
	assert.Equal(t, 0, byStudent["student-2"].AttendedCount)
	assert.Equal(t, []string{}, byStudent["student-2"].AttendedLectures)

	file, err := svc.ExportReport(context.Background(), teacherActor, "course-1", export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance-course-1.csv", file.Name)
	assert.True(t, strings.HasPrefix(string(file.Payload), "Student,Email,Attended,Total Lectures,Rate"))
	assert.Contains(t, string(file.Payload), "100.00%")
}

func TestAttendanceServiceStudentAttendance(t *testing.T) {
	svc, _ := newAttendanceFixture()
	_, _, err := svc.Mark(context.Background(), studentActor, dto.MarkAttendanceRequest{LectureID: "lec-1"})
	require.NoError(t, err)

	items, err := svc.StudentAttendance(context.Background(), studentActor, "course-1", "student-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = svc.StudentAttendance(context.Background(), teacherActor, "course-1", "student-2")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.StudentAttendance(context.Background(), policy.Actor{UserID: "student-2", Role: models.RoleStudent}, "course-1", "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
