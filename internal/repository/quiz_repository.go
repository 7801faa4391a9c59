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

const (
	quizColumns     = `id, course_id, lecture_id, title, due_date, created_at, updated_at`
	questionColumns = `id, quiz_id, question_text, question_type, options, position, created_at, updated_at`
)

// QuizRepository persists quizzes and their questions.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a quiz.
func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now

	const query = `INSERT INTO quizzes (id, course_id, lecture_id, title, due_date, created_at, updated_at)
VALUES (:id, :course_id, :lecture_id, :title, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// FindByID returns a quiz by id.
func (r *QuizRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1`
	var quiz models.Quiz
	if err := sqlx.GetContext(ctx, r.exec(exec), &quiz, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	return &quiz, nil
}

// ListByCourse returns the quizzes of a course.
func (r *QuizRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE course_id = $1 ORDER BY created_at ASC`
	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, query, courseID); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// Update writes the mutable quiz fields.
func (r *QuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	quiz.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quizzes SET lecture_id = :lecture_id, title = :title, due_date = :due_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return nil
}

// Delete removes a quiz row.
func (r *QuizRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

// CreateQuestion inserts a question. A nil position appends it to the quiz.
func (r *QuizRepository) CreateQuestion(ctx context.Context, question *models.Question, position *int) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	question.CreatedAt = now
	question.UpdatedAt = now

	if position != nil {
		question.Position = *position
	} else {
		const nextQuery = `SELECT COALESCE(MAX(position), -1) + 1 FROM questions WHERE quiz_id = $1`
		if err := r.db.GetContext(ctx, &question.Position, nextQuery, question.QuizID); err != nil {
			return fmt.Errorf("compute next question position: %w", err)
		}
	}

	const query = `INSERT INTO questions (id, quiz_id, question_text, question_type, options, position, created_at, updated_at)
VALUES (:id, :quiz_id, :question_text, :question_type, :options, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// FindQuestion returns a question within a quiz.
func (r *QuizRepository) FindQuestion(ctx context.Context, quizID, questionID string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1 AND quiz_id = $2`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, questionID, quizID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	return &question, nil
}

// ListQuestions returns the questions of a quiz in order.
func (r *QuizRepository) ListQuestions(ctx context.Context, exec sqlx.ExtContext, quizID string) ([]models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE quiz_id = $1 ORDER BY position ASC, created_at ASC`
	var questions []models.Question
	if err := sqlx.SelectContext(ctx, r.exec(exec), &questions, query, quizID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// UpdateQuestion writes the mutable question fields.
func (r *QuizRepository) UpdateQuestion(ctx context.Context, question *models.Question) error {
	question.UpdatedAt = time.Now().UTC()
	const query = `UPDATE questions SET question_text = :question_text, question_type = :question_type, options = :options, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// DeleteQuestion removes a single question.
func (r *QuizRepository) DeleteQuestion(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// DeleteQuestionsByQuiz removes every question of a quiz.
func (r *QuizRepository) DeleteQuestionsByQuiz(ctx context.Context, exec sqlx.ExtContext, quizID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = $1`, quizID); err != nil {
		return fmt.Errorf("delete quiz questions: %w", err)
	}
	return nil
}
