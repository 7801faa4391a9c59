package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type quizFinder interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quiz, error)
}

type quizRepository interface {
	quizFinder
	Create(ctx context.Context, quiz *models.Quiz) error
	ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	CreateQuestion(ctx context.Context, question *models.Question, position *int) error
	FindQuestion(ctx context.Context, quizID, questionID string) (*models.Question, error)
	ListQuestions(ctx context.Context, exec sqlx.ExtContext, quizID string) ([]models.Question, error)
	UpdateQuestion(ctx context.Context, question *models.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	DeleteQuestionsByQuiz(ctx context.Context, exec sqlx.ExtContext, quizID string) error
}

type lectureFinder interface {
	FindByID(ctx context.Context, id string) (*models.Lecture, error)
}

// QuizService manages quizzes and their questions.
type QuizService struct {
	tx          txProvider
	quizzes     quizRepository
	courses     courseFinder
	lectures    lectureFinder
	enrollments enrollmentChecker
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewQuizService constructs a QuizService.
func NewQuizService(tx txProvider, quizzes quizRepository, courses courseFinder, lectures lectureFinder, enrollments enrollmentChecker, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuizService{tx: tx, quizzes: quizzes, courses: courses, lectures: lectures, enrollments: enrollments, audit: audit, validator: validate, logger: logger}
}

// Create adds a quiz to a course the actor can edit.
func (s *QuizService) Create(ctx context.Context, actor policy.Actor, req dto.CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, req.CourseID, policy.ActionEdit, "you are not authorized to add quizzes to this course"); err != nil {
		return nil, err
	}
	if err := s.checkLecture(ctx, req.CourseID, req.LectureID); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		CourseID:  req.CourseID,
		LectureID: req.LectureID,
		Title:     strings.TrimSpace(req.Title),
		DueDate:   req.DueDate,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create quiz")
	}
	return quiz, nil
}

// ListByCourse returns the quizzes of a course the actor can view.
func (s *QuizService) ListByCourse(ctx context.Context, actor policy.Actor, courseID string) ([]models.Quiz, error) {
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, courseID, policy.ActionViewContent, "you do not have access to this course's quizzes"); err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quizzes")
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	return quizzes, nil
}

// Get returns a quiz for taking. Option correctness is never included.
func (s *QuizService) Get(ctx context.Context, actor policy.Actor, id string) (*dto.QuizView, error) {
	quiz, err := s.access(ctx, actor, id, policy.ActionViewContent, "you do not have access to this quiz")
	if err != nil {
		return nil, err
	}
	questions, err := s.quizzes.ListQuestions(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	views := make([]dto.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, dto.NewQuestionView(q))
	}
	return &dto.QuizView{Quiz: *quiz, Questions: views}, nil
}

// Update changes quiz fields.
func (s *QuizService) Update(ctx context.Context, actor policy.Actor, id string, req dto.UpdateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}
	quiz, err := s.access(ctx, actor, id, policy.ActionEdit, "you are not authorized to edit this quiz")
	if err != nil {
		return nil, err
	}
	if req.LectureID != nil {
		if err := s.checkLecture(ctx, quiz.CourseID, req.LectureID); err != nil {
			return nil, err
		}
		quiz.LectureID = req.LectureID
	}
	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.DueDate != nil {
		quiz.DueDate = req.DueDate
	}
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update quiz")
	}
	return quiz, nil
}

// Delete removes a quiz and all of its questions in one transaction.
func (s *QuizService) Delete(ctx context.Context, actor policy.Actor, id string) (err error) {
	if _, err = s.access(ctx, actor, id, policy.ActionEdit, "you are not authorized to delete this quiz"); err != nil {
		return err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.quizzes.DeleteQuestionsByQuiz(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to delete quiz questions")
	}
	if err = s.quizzes.Delete(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to delete quiz")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "failed to commit quiz deletion")
	}

	if s.audit != nil {
		if auditErr := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionQuizDelete,
			Resource:   "quiz",
			ResourceID: &id,
		}); auditErr != nil {
			s.logger.Warn("failed to record quiz audit log", zap.Error(auditErr))
		}
	}
	return nil
}

// AddQuestion appends a question to a quiz.
func (s *QuizService) AddQuestion(ctx context.Context, actor policy.Actor, quizID string, req dto.QuestionRequest) (*models.Question, error) {
	if err := s.validateQuestion(req); err != nil {
		return nil, err
	}
	if _, err := s.access(ctx, actor, quizID, policy.ActionEdit, "you are not authorized to edit this quiz"); err != nil {
		return nil, err
	}
	question := &models.Question{
		QuizID:       quizID,
		QuestionText: strings.TrimSpace(req.QuestionText),
		QuestionType: req.QuestionType,
		Options:      models.QuestionOptions(req.Options),
	}
	if err := s.quizzes.CreateQuestion(ctx, question, req.Position); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}
	return question, nil
}

// ListQuestions returns full questions, answer keys included, to editors.
func (s *QuizService) ListQuestions(ctx context.Context, actor policy.Actor, quizID string) ([]models.Question, error) {
	if _, err := s.access(ctx, actor, quizID, policy.ActionEdit, "you are not authorized to view answer keys"); err != nil {
		return nil, err
	}
	questions, err := s.quizzes.ListQuestions(ctx, nil, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return questions, nil
}

// GetQuestion returns one full question to editors.
func (s *QuizService) GetQuestion(ctx context.Context, actor policy.Actor, quizID, questionID string) (*models.Question, error) {
	if _, err := s.access(ctx, actor, quizID, policy.ActionEdit, "you are not authorized to view answer keys"); err != nil {
		return nil, err
	}
	return s.loadQuestion(ctx, quizID, questionID)
}

// UpdateQuestion replaces a question's text, type and options.
func (s *QuizService) UpdateQuestion(ctx context.Context, actor policy.Actor, quizID, questionID string, req dto.QuestionRequest) (*models.Question, error) {
	if err := s.validateQuestion(req); err != nil {
		return nil, err
	}
	if _, err := s.access(ctx, actor, quizID, policy.ActionEdit, "you are not authorized to edit this quiz"); err != nil {
		return nil, err
	}
	question, err := s.loadQuestion(ctx, quizID, questionID)
	if err != nil {
		return nil, err
	}
	question.QuestionText = strings.TrimSpace(req.QuestionText)
	question.QuestionType = req.QuestionType
	question.Options = models.QuestionOptions(req.Options)
	if req.Position != nil {
		question.Position = *req.Position
	}
	if err := s.quizzes.UpdateQuestion(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update question")
	}
	return question, nil
}

// DeleteQuestion removes a question from a quiz.
func (s *QuizService) DeleteQuestion(ctx context.Context, actor policy.Actor, quizID, questionID string) error {
	if _, err := s.access(ctx, actor, quizID, policy.ActionEdit, "you are not authorized to edit this quiz"); err != nil {
		return err
	}
	if _, err := s.loadQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuestion(ctx, questionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	return nil
}

func (s *QuizService) access(ctx context.Context, actor policy.Actor, quizID string, action policy.Action, message string) (*models.Quiz, error) {
	quiz, err := loadQuiz(ctx, s.quizzes, nil, quizID)
	if err != nil {
		return nil, err
	}
	if _, err := courseAccess(ctx, s.courses, s.enrollments, actor, quiz.CourseID, action, message); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) loadQuestion(ctx context.Context, quizID, questionID string) (*models.Question, error) {
	question, err := s.quizzes.FindQuestion(ctx, quizID, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	return question, nil
}

func (s *QuizService) checkLecture(ctx context.Context, courseID string, lectureID *string) error {
	if lectureID == nil || s.lectures == nil {
		return nil
	}
	lecture, err := s.lectures.FindByID(ctx, *lectureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	if lecture.CourseID != courseID {
		return appErrors.Clone(appErrors.ErrValidation, "lecture does not belong to the quiz course")
	}
	return nil
}

// validateQuestion checks the payload and that choice questions carry an answer key.
func (s *QuizService) validateQuestion(req dto.QuestionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	if _, ok := models.QuestionOptions(req.Options).AnswerKey(); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "at least one option must be marked correct")
	}
	return nil
}

func loadQuiz(ctx context.Context, quizzes quizFinder, exec sqlx.ExtContext, id string) (*models.Quiz, error) {
	quiz, err := quizzes.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}
	return quiz, nil
}
