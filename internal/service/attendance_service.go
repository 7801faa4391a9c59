package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

type attendanceRepository interface {
	Mark(ctx context.Context, attendance *models.Attendance) (*models.Attendance, bool, error)
	ListPresentByCourse(ctx context.Context, courseID string) ([]models.AttendanceRecordRow, error)
	ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]models.AttendanceDetail, error)
}

type courseRoster interface {
	enrollmentChecker
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

// AttendanceService records lecture attendance and builds course reports.
type AttendanceService struct {
	attendance  attendanceRepository
	lectures    lectureCounter
	courses     courseFinder
	enrollments courseRoster
	exporter    datasetRenderer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService. exporter defaults to export.NewExporter.
func NewAttendanceService(attendance attendanceRepository, lectures lectureCounter, courses courseFinder, enrollments courseRoster, exporter datasetRenderer, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if exporter == nil {
		exporter = export.NewExporter()
	}
	return &AttendanceService{
		attendance:  attendance,
		lectures:    lectures,
		courses:     courses,
		enrollments: enrollments,
		exporter:    exporter,
		validator:   validate,
		logger:      logger,
	}
}

// Mark records the actor's attendance at a lecture. Marking twice returns
// the existing record and created=false.
func (s *AttendanceService) Mark(ctx context.Context, actor policy.Actor, req dto.MarkAttendanceRequest) (*models.Attendance, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "lecture_id is required")
	}

	lecture, err := s.lectures.FindByID(ctx, req.LectureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}

	enrolled, err := s.enrollments.Exists(ctx, nil, actor.UserID, lecture.CourseID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "you are not enrolled in this course")
	}

	status := req.Status
	if status == "" {
		status = models.AttendanceStatusPresent
	}
	record, created, err := s.attendance.Mark(ctx, &models.Attendance{
		StudentID: actor.UserID,
		LectureID: lecture.ID,
		CourseID:  lecture.CourseID,
		Status:    status,
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	if created {
		s.logger.Debug("attendance marked", zap.String("student_id", actor.UserID), zap.String("lecture_id", lecture.ID))
	}
	return record, created, nil
}

// Report summarises which lectures each enrolled student attended.
func (s *AttendanceService) Report(ctx context.Context, actor policy.Actor, courseID string) (*dto.AttendanceReport, error) {
	course, err := courseAccess(ctx, s.courses, nil, actor, courseID, policy.ActionReport, "only the course instructor or an admin can view attendance reports")
	if err != nil {
		return nil, err
	}

	total, err := s.lectures.CountByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lectures")
	}
	students, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	records, err := s.attendance.ListPresentByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	attended := make(map[string][]string, len(students))
	for _, r := range records {
		attended[r.StudentID] = append(attended[r.StudentID], r.LectureID)
	}

	report := &dto.AttendanceReport{
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		TotalLectures: total,
		Students:      make([]models.AttendanceReportRow, 0, len(students)),
	}
	for _, st := range students {
		lectures := attended[st.StudentID]
		if lectures == nil {
			lectures = []string{}
		}
		report.Students = append(report.Students, models.AttendanceReportRow{
			StudentID:        st.StudentID,
			StudentName:      st.StudentName,
			StudentEmail:     st.StudentEmail,
			AttendedLectures: lectures,
			AttendedCount:    len(lectures),
			TotalLectures:    total,
		})
	}
	return report, nil
}

// ExportReport renders Report as CSV or PDF.
func (s *AttendanceService) ExportReport(ctx context.Context, actor policy.Actor, courseID string, format export.Format) (*export.File, error) {
	report, err := s.Report(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Attendance - %s", report.CourseTitle),
		Headers: []string{"Student", "Email", "Attended", "Total Lectures", "Rate"},
		Rows:    make([]map[string]string, 0, len(report.Students)),
	}
	for _, row := range report.Students {
		data.Rows = append(data.Rows, map[string]string{
			"Student":        row.StudentName,
			"Email":          row.StudentEmail,
			"Attended":       strconv.Itoa(row.AttendedCount),
			"Total Lectures": strconv.Itoa(row.TotalLectures),
			"Rate":           attendanceRate(row.AttendedCount, row.TotalLectures),
		})
	}

	file, err := s.exporter.Render(format, "attendance-"+strings.ToLower(courseID), data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

// StudentAttendance lists one student's attendance records in a course.
// The student, the course instructor and admins may read it.
func (s *AttendanceService) StudentAttendance(ctx context.Context, actor policy.Actor, courseID, studentID string) ([]models.AttendanceDetail, error) {
	course, err := loadCourse(ctx, s.courses, nil, courseID)
	if err != nil {
		return nil, err
	}
	res := policy.Resource{Kind: policy.KindStudentRecord, OwnerID: studentID, InstructorID: course.InstructorID}
	if err := policy.Authorize(actor, policy.ActionView, res, "you are not authorized to view this attendance"); err != nil {
		return nil, err
	}

	items, err := s.attendance.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	if items == nil {
		items = []models.AttendanceDetail{}
	}
	return items, nil
}

func attendanceRate(attended, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(attended)/float64(total)*100)
}
