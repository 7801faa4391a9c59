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

const lectureColumns = `id, course_id, title, content, content_type, position, duration, created_at, updated_at`

// LectureRepository persists course lectures.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository constructs the repository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

func (r *LectureRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a lecture. A nil position appends it to the course.
func (r *LectureRepository) Create(ctx context.Context, lecture *models.Lecture, position *int) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lecture.CreatedAt = now
	lecture.UpdatedAt = now

	if position != nil {
		lecture.Position = *position
	} else {
		const nextQuery = `SELECT COALESCE(MAX(position), -1) + 1 FROM lectures WHERE course_id = $1`
		if err := r.db.GetContext(ctx, &lecture.Position, nextQuery, lecture.CourseID); err != nil {
			return fmt.Errorf("compute next lecture position: %w", err)
		}
	}

	const query = `INSERT INTO lectures (id, course_id, title, content, content_type, position, duration, created_at, updated_at)
VALUES (:id, :course_id, :title, :content, :content_type, :position, :duration, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// FindByID returns a lecture by id.
func (r *LectureRepository) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	query := `SELECT ` + lectureColumns + ` FROM lectures WHERE id = $1`
	var lecture models.Lecture
	if err := r.db.GetContext(ctx, &lecture, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lecture: %w", err)
	}
	return &lecture, nil
}

// ListByCourse returns lectures in course order.
func (r *LectureRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error) {
	query := `SELECT ` + lectureColumns + ` FROM lectures WHERE course_id = $1 ORDER BY position ASC, created_at ASC`
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, courseID); err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}
	return lectures, nil
}

// CountByCourse returns the number of lectures in a course.
func (r *LectureRepository) CountByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM lectures WHERE course_id = $1`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, courseID); err != nil {
		return 0, fmt.Errorf("count lectures: %w", err)
	}
	return total, nil
}

// Update writes the mutable lecture fields.
func (r *LectureRepository) Update(ctx context.Context, lecture *models.Lecture) error {
	lecture.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lectures SET title = :title, content = :content, content_type = :content_type, position = :position, duration = :duration, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	return nil
}

// Delete removes a lecture.
func (r *LectureRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lectures WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lecture: %w", err)
	}
	return nil
}
