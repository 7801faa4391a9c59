package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type attemptQuizRepository interface {
	quizFinder
	ListQuestions(ctx context.Context, exec sqlx.ExtContext, quizID string) ([]models.Question, error)
}

type quizAttemptRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, attempt *models.QuizAttemptDetail) error
	FindByID(ctx context.Context, id string) (*models.QuizAttemptDetail, error)
	ListByStudent(ctx context.Context, quizID, studentID string) ([]models.QuizAttempt, error)
	ListByQuiz(ctx context.Context, quizID string) ([]models.QuizAttemptSummary, error)
}

type datasetRenderer interface {
	Render(format export.Format, baseName string, data export.Dataset) (*export.File, error)
}

// QuizAttemptService grades submissions and serves attempt results.
type QuizAttemptService struct {
	tx          txProvider
	quizzes     attemptQuizRepository
	courses     courseFinder
	enrollments enrollmentChecker
	attempts    quizAttemptRepository
	audit       auditRecorder
	exporter    datasetRenderer
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// QuizAttemptDeps groups the collaborators of QuizAttemptService.
type QuizAttemptDeps struct {
	Tx          txProvider
	Quizzes     attemptQuizRepository
	Courses     courseFinder
	Enrollments enrollmentChecker
	Attempts    quizAttemptRepository
	Audit       auditRecorder
	Exporter    datasetRenderer
	Metrics     *MetricsService
}

// NewQuizAttemptService constructs a QuizAttemptService.
func NewQuizAttemptService(deps QuizAttemptDeps, validate *validator.Validate, logger *zap.Logger) *QuizAttemptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter()
	}
	return &QuizAttemptService{
		tx:          deps.Tx,
		quizzes:     deps.Quizzes,
		courses:     deps.Courses,
		enrollments: deps.Enrollments,
		attempts:    deps.Attempts,
		audit:       deps.Audit,
		exporter:    deps.Exporter,
		metrics:     deps.Metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit grades a student's answers and persists the attempt. Loading the
// quiz, checking enrollment, reading answer keys and writing the attempt run
// in one transaction; on any failure nothing is persisted.
func (s *QuizAttemptService) Submit(ctx context.Context, studentID string, req dto.SubmitQuizRequest) (result *models.QuizAttemptDetail, err error) {
	defer func() {
		switch {
		case err == nil:
			s.metrics.RecordSubmission(SubmissionOutcomeGraded, result.Score)
		case appErrors.Is(err, appErrors.ErrValidation):
			s.metrics.RecordSubmission(SubmissionOutcomeInvalid, 0)
		case appErrors.Is(err, appErrors.ErrForbidden):
			s.metrics.RecordSubmission(SubmissionOutcomeForbidden, 0)
		case appErrors.Is(err, appErrors.ErrNotFound):
			s.metrics.RecordSubmission(SubmissionOutcomeNotFound, 0)
		default:
			s.metrics.RecordSubmission(SubmissionOutcomeFailed, 0)
		}
	}()

	if verr := s.validator.Struct(req); verr != nil {
		return nil, appErrors.Wrap(verr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("quiz_id and an answers array of at most %d entries are required", dto.MaxSubmittedAnswers))
	}

	startedAt := s.now()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.txError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	quiz, err := s.quizzes.FindByID(ctx, tx, req.QuizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, s.txError(err, "failed to load quiz")
	}

	course, err := s.courses.FindByID(ctx, tx, quiz.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, s.txError(err, "failed to load course")
	}
	if !course.Active {
		err = appErrors.Clone(appErrors.ErrNotFound, "course not found")
		return nil, err
	}

	enrolled, err := s.enrollments.Exists(ctx, tx, studentID, quiz.CourseID)
	if err != nil {
		return nil, s.txError(err, "failed to verify enrollment")
	}
	if !enrolled {
		err = appErrors.Clone(appErrors.ErrForbidden, "you are not enrolled in this course")
		return nil, err
	}

	questions, err := s.quizzes.ListQuestions(ctx, tx, quiz.ID)
	if err != nil {
		return nil, s.txError(err, "failed to load questions")
	}

	answers, score := GradeSubmission(questions, req.Answers)
	attempt := &models.QuizAttemptDetail{
		QuizAttempt: models.QuizAttempt{
			ID:          uuid.NewString(),
			StudentID:   studentID,
			QuizID:      quiz.ID,
			Score:       score,
			StartedAt:   startedAt,
			SubmittedAt: s.now(),
		},
		Answers: answers,
	}

	if err = s.attempts.Create(ctx, tx, attempt); err != nil {
		return nil, s.txError(err, "failed to save attempt")
	}
	if err = tx.Commit(); err != nil {
		return nil, s.txError(err, "failed to commit attempt")
	}

	s.recordAudit(ctx, studentID, attempt)
	return attempt, nil
}

// Get returns an attempt with question text joined in. Visible to the
// student who made it, the course instructor and admins. Once the quiz is
// deleted only the student and admins can still read it.
func (s *QuizAttemptService) Get(ctx context.Context, actor policy.Actor, attemptID string) (*models.QuizAttemptDetail, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}

	res := policy.Resource{Kind: policy.KindAttempt, OwnerID: attempt.StudentID}
	quiz, err := s.quizzes.FindByID(ctx, nil, attempt.QuizID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// quiz deleted; no instructor can be resolved
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	default:
		course, err := s.courses.FindByID(ctx, nil, quiz.CourseID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if course != nil {
			res.InstructorID = course.InstructorID
		}
	}

	if err := policy.Authorize(actor, policy.ActionView, res, "you are not authorized to view this attempt"); err != nil {
		return nil, err
	}
	return attempt, nil
}

// ListMine returns the actor's attempts for a quiz, newest first.
func (s *QuizAttemptService) ListMine(ctx context.Context, actor policy.Actor, quizID string) ([]models.QuizAttempt, error) {
	if _, err := loadQuiz(ctx, s.quizzes, nil, quizID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListByStudent(ctx, quizID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	if attempts == nil {
		attempts = []models.QuizAttempt{}
	}
	return attempts, nil
}

// ListAll returns every attempt of a quiz ordered by score. Only the course
// instructor and admins may read it.
func (s *QuizAttemptService) ListAll(ctx context.Context, actor policy.Actor, quizID string) ([]models.QuizAttemptSummary, error) {
	quiz, err := loadQuiz(ctx, s.quizzes, nil, quizID)
	if err != nil {
		return nil, err
	}
	if _, err := courseAccess(ctx, s.courses, nil, actor, quiz.CourseID, policy.ActionReport, "you are not authorized to view these results"); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	if attempts == nil {
		attempts = []models.QuizAttemptSummary{}
	}
	return attempts, nil
}

// ExportAll renders ListAll as a CSV or PDF file.
func (s *QuizAttemptService) ExportAll(ctx context.Context, actor policy.Actor, quizID string, format export.Format) (*export.File, error) {
	attempts, err := s.ListAll(ctx, actor, quizID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Quiz results",
		Headers: []string{"Student", "Email", "Score", "Submitted At"},
		Rows:    make([]map[string]string, 0, len(attempts)),
	}
	for _, a := range attempts {
		data.Rows = append(data.Rows, map[string]string{
			"Student":      a.StudentName,
			"Email":        a.StudentEmail,
			"Score":        strconv.FormatFloat(a.Score, 'f', 2, 64),
			"Submitted At": a.SubmittedAt.Format(time.RFC3339),
		})
	}

	file, err := s.exporter.Render(format, fmt.Sprintf("quiz-%s-results", quizID), data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

func (s *QuizAttemptService) txError(err error, message string) error {
	s.logger.Error("quiz submission aborted", zap.String("step", message), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, message)
}

func (s *QuizAttemptService) recordAudit(ctx context.Context, studentID string, attempt *models.QuizAttemptDetail) {
	if s.audit == nil {
		return
	}
	payload := fmt.Sprintf(`{"quiz_id":%q,"score":%s}`, attempt.QuizID, strconv.FormatFloat(attempt.Score, 'f', 2, 64))
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionQuizSubmit,
		Resource:   "quiz_attempt",
		ResourceID: &attempt.ID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record submission audit log", zap.Error(err))
	}
}
