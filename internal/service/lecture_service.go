package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type lectureRepository interface {
	Create(ctx context.Context, lecture *models.Lecture, position *int) error
	FindByID(ctx context.Context, id string) (*models.Lecture, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error)
	Update(ctx context.Context, lecture *models.Lecture) error
	Delete(ctx context.Context, id string) error
}

// LectureService manages the ordered lectures of a course.
type LectureService struct {
	lectures    lectureRepository
	courses     courseFinder
	enrollments enrollmentChecker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewLectureService constructs a LectureService.
func NewLectureService(lectures lectureRepository, courses courseFinder, enrollments enrollmentChecker, validate *validator.Validate, logger *zap.Logger) *LectureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LectureService{lectures: lectures, courses: courses, enrollments: enrollments, validator: validate, logger: logger}
}

// Create appends a lecture, or inserts it at the requested position.
func (s *LectureService) Create(ctx context.Context, actor policy.Actor, courseID string, req dto.CreateLectureRequest) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, courseID, policy.ActionEdit, "only the course instructor or an admin can add lectures"); err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = models.LectureContentText
	}
	lecture := &models.Lecture{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		ContentType: contentType,
		Duration:    req.Duration,
	}
	if err := s.lectures.Create(ctx, lecture, req.Position); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lecture")
	}
	return lecture, nil
}

// List returns the course's lectures ordered by position.
func (s *LectureService) List(ctx context.Context, actor policy.Actor, courseID string) ([]models.Lecture, error) {
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, courseID, policy.ActionViewContent, "you must be enrolled to view lectures"); err != nil {
		return nil, err
	}
	lectures, err := s.lectures.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lectures")
	}
	if lectures == nil {
		lectures = []models.Lecture{}
	}
	return lectures, nil
}

// Get returns a single lecture of the course.
func (s *LectureService) Get(ctx context.Context, actor policy.Actor, courseID, lectureID string) (*models.Lecture, error) {
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, courseID, policy.ActionViewContent, "you must be enrolled to view this lecture"); err != nil {
		return nil, err
	}
	return s.load(ctx, courseID, lectureID)
}

// Update changes lecture fields.
func (s *LectureService) Update(ctx context.Context, actor policy.Actor, courseID, lectureID string, req dto.UpdateLectureRequest) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, courseID, policy.ActionEdit, "only the course instructor or an admin can edit lectures"); err != nil {
		return nil, err
	}
	lecture, err := s.load(ctx, courseID, lectureID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		lecture.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		lecture.Content = *req.Content
	}
	if req.ContentType != nil {
		lecture.ContentType = *req.ContentType
	}
	if req.Position != nil {
		lecture.Position = *req.Position
	}
	if req.Duration != nil {
		lecture.Duration = *req.Duration
	}

	if err := s.lectures.Update(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lecture")
	}
	return lecture, nil
}

// Delete removes a lecture and, through cascading keys, its attendance.
func (s *LectureService) Delete(ctx context.Context, actor policy.Actor, courseID, lectureID string) error {
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, courseID, policy.ActionEdit, "only the course instructor or an admin can delete lectures"); err != nil {
		return err
	}
	if _, err := s.load(ctx, courseID, lectureID); err != nil {
		return err
	}
	if err := s.lectures.Delete(ctx, lectureID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lecture")
	}
	return nil
}

func (s *LectureService) load(ctx context.Context, courseID, lectureID string) (*models.Lecture, error) {
	lecture, err := s.lectures.FindByID(ctx, lectureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	if lecture.CourseID != courseID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
	}
	return lecture, nil
}
