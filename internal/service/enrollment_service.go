package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	enrollmentChecker
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	LockByStudentAndCourse(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (*models.Enrollment, error)
	UpdateProgress(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type lectureCounter interface {
	lectureFinder
	CountByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) (int, error)
}

// EnrollmentService handles course registration and lecture progress.
type EnrollmentService struct {
	tx          txProvider
	enrollments enrollmentRepository
	courses     courseFinder
	lectures    lectureCounter
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(tx txProvider, enrollments enrollmentRepository, courses courseFinder, lectures lectureCounter, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		tx:          tx,
		enrollments: enrollments,
		courses:     courses,
		lectures:    lectures,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

// Enroll registers the actor into a published, active course.
func (s *EnrollmentService) Enroll(ctx context.Context, actor policy.Actor, req dto.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course_id is required")
	}

	course, err := loadCourse(ctx, s.courses, nil, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.Active || (!course.Published && !actor.IsAdmin()) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if err := policy.Authorize(actor, policy.ActionEnroll, policy.Course(course, false), "instructors cannot enroll in their own course"); err != nil {
		return nil, err
	}

	exists, err := s.enrollments.Exists(ctx, nil, actor.UserID, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
	}

	enrollment := &models.Enrollment{StudentID: actor.UserID, CourseID: course.ID}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}

	s.record(ctx, actor.UserID, models.AuditActionEnroll, enrollment.ID)
	return enrollment, nil
}

// Unenroll removes an enrollment. Students may drop their own; admins any.
func (s *EnrollmentService) Unenroll(ctx context.Context, actor policy.Actor, id string) error {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	res := policy.Resource{Kind: policy.KindStudentRecord, OwnerID: enrollment.StudentID}
	if err := policy.Authorize(actor, policy.ActionEdit, res, "you cannot remove this enrollment"); err != nil {
		return err
	}

	if err := s.enrollments.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	s.record(ctx, actor.UserID, models.AuditActionUnenroll, id)
	return nil
}

// UpdateProgress marks a lecture completed and recomputes the completion
// status. The enrollment row is locked for the duration of the update.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor policy.Actor, req dto.ProgressRequest) (result *models.Enrollment, err error) {
	if verr := s.validator.Struct(req); verr != nil {
		return nil, appErrors.Wrap(verr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course_id and lecture_id are required")
	}

	lecture, err := s.lectures.FindByID(ctx, req.LectureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	if lecture.CourseID != req.CourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecture does not belong to this course")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment, err := s.enrollments.LockByStudentAndCourse(ctx, tx, actor.UserID, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to load enrollment")
	}

	total, err := s.lectures.CountByCourse(ctx, tx, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to count lectures")
	}

	if enrollment.Progress == nil {
		enrollment.Progress = models.LectureProgress{}
	}
	enrollment.Progress[lecture.ID] = true
	enrollment.CompletionStatus = enrollment.Progress.Status(total)

	if err = s.enrollments.UpdateProgress(ctx, tx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to save progress")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to commit progress")
	}
	return enrollment, nil
}

// MyCourses lists the actor's enrollments in active courses.
func (s *EnrollmentService) MyCourses(ctx context.Context, actor policy.Actor) ([]models.EnrollmentDetail, error) {
	items, err := s.enrollments.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, nil
}

// CourseStudents lists students enrolled in a course for its instructor or an admin.
func (s *EnrollmentService) CourseStudents(ctx context.Context, actor policy.Actor, courseID string) ([]models.EnrollmentDetail, error) {
	if _, err := courseAccess(ctx, s.courses, nil, actor, courseID, policy.ActionReport, "only the course instructor or an admin can view enrolled students"); err != nil {
		return nil, err
	}
	items, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, nil
}

func (s *EnrollmentService) record(ctx context.Context, actorID, action, enrollmentID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "enrollment",
		ResourceID: &enrollmentID,
	}); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
	}
}
