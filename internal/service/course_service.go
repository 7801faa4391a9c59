package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

const catalogCachePattern = "catalog:*"

type courseFinder interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error)
}

type courseRepository interface {
	courseFinder
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) error
}

type enrollmentChecker interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string) (bool, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type catalogPage struct {
	Items []models.CourseDetail `json:"items"`
	Total int                   `json:"total"`
}

// CourseService manages the course catalog.
type CourseService struct {
	courses     courseRepository
	enrollments enrollmentChecker
	audit       auditRecorder
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService. cache may be nil.
func NewCourseService(courses courseRepository, enrollments enrollmentChecker, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, enrollments: enrollments, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Create registers a course owned by the calling teacher or admin.
func (s *CourseService) Create(ctx context.Context, actor policy.Actor, req dto.CreateCourseRequest) (*models.Course, error) {
	if actor.Role != models.RoleTeacher && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can create courses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	level := req.Level
	if level == "" {
		level = models.CourseLevelBeginner
	}
	course := &models.Course{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		InstructorID: actor.UserID,
		Duration:     req.Duration,
		Price:        req.Price,
		Category:     strings.TrimSpace(req.Category),
		Level:        level,
		Thumbnail:    req.Thumbnail,
		Published:    req.Published,
		Active:       true,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// ListPublic returns published, active courses. Results are served from the
// catalog cache when enabled.
func (s *CourseService) ListPublic(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	filter.PublishedOnly = true
	filter.ActiveOnly = true
	filter.InstructorID = ""

	key := catalogKey(filter)
	var cached catalogPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, pagination(filter.Page, filter.PageSize, cached.Total), nil
	}

	items, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if items == nil {
		items = []models.CourseDetail{}
	}
	_ = s.cache.Set(ctx, key, catalogPage{Items: items, Total: total}, 0)
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// ListAll returns every course including unpublished and inactive ones.
func (s *CourseService) ListAll(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	items, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// ListByInstructor returns an instructor's active courses. Unpublished ones
// are included only when the instructor asks for their own list.
func (s *CourseService) ListByInstructor(ctx context.Context, actor policy.Actor, instructorID string, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	filter.InstructorID = instructorID
	filter.ActiveOnly = true
	filter.PublishedOnly = actor.UserID != instructorID
	items, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course the actor may see. Inactive courses are not found.
func (s *CourseService) Get(ctx context.Context, actor policy.Actor, id string) (*models.CourseDetail, error) {
	detail, err := s.courses.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !detail.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if detail.Published {
		return detail, nil
	}
	if actor.Anonymous() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you must be logged in to view this course")
	}

	enrolled, err := isEnrolled(ctx, s.enrollments, actor, &detail.Course)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionView, policy.Course(&detail.Course, enrolled), "you do not have access to this course"); err != nil {
		return nil, err
	}
	return detail, nil
}

// Update changes course details. Only the instructor or an admin may do so.
func (s *CourseService) Update(ctx context.Context, actor policy.Actor, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := loadCourse(ctx, s.courses, nil, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionEdit, policy.Course(course, false), "you are not authorized to update this course"); err != nil {
		return nil, err
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Duration != nil {
		course.Duration = *req.Duration
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.Category != nil {
		course.Category = strings.TrimSpace(*req.Category)
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Thumbnail != nil {
		course.Thumbnail = *req.Thumbnail
	}
	if req.Published != nil {
		course.Published = *req.Published
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Delete deactivates a course.
func (s *CourseService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	course, err := loadCourse(ctx, s.courses, nil, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.ActionEdit, policy.Course(course, false), "you are not authorized to delete this course"); err != nil {
		return err
	}
	if err := s.courses.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	s.invalidateCatalog(ctx)

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionCourseDelete,
			Resource:   "course",
			ResourceID: &id,
			NewValues:  []byte(`{"active":false}`),
		}); err != nil {
			s.logger.Warn("failed to record course audit log", zap.Error(err))
		}
	}
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, catalogCachePattern)
}

func catalogKey(f models.CourseFilter) string {
	return fmt.Sprintf("catalog:%d:%d:%s:%s:%s", f.Page, f.PageSize, f.Category, f.Level, strings.ToLower(f.Search))
}

// loadCourse fetches a course, mapping absence to a 404.
func loadCourse(ctx context.Context, courses courseFinder, exec sqlx.ExtContext, id string) (*models.Course, error) {
	course, err := courses.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// isEnrolled looks up enrollment only when the answer can change the decision.
func isEnrolled(ctx context.Context, enrollments enrollmentChecker, actor policy.Actor, course *models.Course) (bool, error) {
	if actor.Anonymous() || actor.IsAdmin() || course.InstructorID == actor.UserID || enrollments == nil {
		return false, nil
	}
	ok, err := enrollments.Exists(ctx, nil, actor.UserID, course.ID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	return ok, nil
}

// courseAccess loads a course and authorizes action on it for actor.
func courseAccess(ctx context.Context, courses courseFinder, enrollments enrollmentChecker, actor policy.Actor, courseID string, action policy.Action, message string) (*models.Course, error) {
	course, err := loadCourse(ctx, courses, nil, courseID)
	if err != nil {
		return nil, err
	}
	enrolled := false
	if action == policy.ActionView || action == policy.ActionViewContent {
		if enrolled, err = isEnrolled(ctx, enrollments, actor, course); err != nil {
			return nil, err
		}
	}
	if err := policy.Authorize(actor, action, policy.Course(course, enrolled), message); err != nil {
		return nil, err
	}
	return course, nil
}
