package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

const attemptColumns = `a.id, a.student_id, a.quiz_id, a.score, a.started_at, a.submitted_at, a.created_at`

// QuizAttemptRepository persists graded quiz attempts. Attempts are append only.
type QuizAttemptRepository struct {
	db *sqlx.DB
}

// NewQuizAttemptRepository constructs the repository.
func NewQuizAttemptRepository(db *sqlx.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{db: db}
}

func (r *QuizAttemptRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the attempt and all of its answers using exec.
func (r *QuizAttemptRepository) Create(ctx context.Context, exec sqlx.ExtContext, attempt *models.QuizAttemptDetail) error {
	if attempt == nil {
		return fmt.Errorf("attempt payload is nil")
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = now
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = attempt.SubmittedAt
	}
	attempt.CreatedAt = now

	target := r.exec(exec)

	const insertAttempt = `INSERT INTO quiz_attempts (id, student_id, quiz_id, score, started_at, submitted_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := target.ExecContext(ctx, insertAttempt,
		attempt.ID, attempt.StudentID, attempt.QuizID, attempt.Score, attempt.StartedAt, attempt.SubmittedAt, attempt.CreatedAt); err != nil {
		return fmt.Errorf("insert quiz attempt: %w", err)
	}

	if len(attempt.Answers) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO quiz_attempt_answers (attempt_id, position, question_id, selected_option, is_correct) VALUES `)
	args := make([]interface{}, 0, len(attempt.Answers)*5)
	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		answer.AttemptID = attempt.ID
		answer.Position = i
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, answer.AttemptID, answer.Position, answer.QuestionID, answer.SelectedOption, answer.IsCorrect)
	}
	if _, err := target.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert quiz attempt answers: %w", err)
	}
	return nil
}

// FindByID returns an attempt with its answers and the question text joined in.
func (r *QuizAttemptRepository) FindByID(ctx context.Context, id string) (*models.QuizAttemptDetail, error) {
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempts a WHERE a.id = $1`
	var detail models.QuizAttemptDetail
	if err := r.db.GetContext(ctx, &detail.QuizAttempt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz attempt: %w", err)
	}

	const answersQuery = `SELECT qa.attempt_id, qa.position, qa.question_id, qa.selected_option, qa.is_correct, COALESCE(q.question_text, '') AS question_text
FROM quiz_attempt_answers qa
LEFT JOIN questions q ON q.id = qa.question_id
WHERE qa.attempt_id = $1
ORDER BY qa.position ASC`
	if err := r.db.SelectContext(ctx, &detail.Answers, answersQuery, id); err != nil {
		return nil, fmt.Errorf("list quiz attempt answers: %w", err)
	}
	if detail.Answers == nil {
		detail.Answers = []models.AttemptAnswer{}
	}
	return &detail, nil
}

// ListByStudent returns a student's attempts for a quiz, newest first.
func (r *QuizAttemptRepository) ListByStudent(ctx context.Context, quizID, studentID string) ([]models.QuizAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempts a WHERE a.quiz_id = $1 AND a.student_id = $2 ORDER BY a.submitted_at DESC`
	var attempts []models.QuizAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, quizID, studentID); err != nil {
		return nil, fmt.Errorf("list student attempts: %w", err)
	}
	return attempts, nil
}

// ListByQuiz returns every attempt of a quiz ranked by score.
func (r *QuizAttemptRepository) ListByQuiz(ctx context.Context, quizID string) ([]models.QuizAttemptSummary, error) {
	query := `SELECT ` + attemptColumns + `, u.full_name AS student_name, u.email AS student_email
FROM quiz_attempts a
JOIN users u ON u.id = a.student_id
WHERE a.quiz_id = $1
ORDER BY a.score DESC, a.submitted_at ASC`
	var attempts []models.QuizAttemptSummary
	if err := r.db.SelectContext(ctx, &attempts, query, quizID); err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	return attempts, nil
}
