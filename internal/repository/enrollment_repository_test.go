package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

var enrollmentRowColumns = []string{"id", "student_id", "course_id", "enrolled_at", "progress", "completion_status", "updated_at"}

func TestCreateEnrollmentDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.CompletionNotStarted, enrollment.CompletionStatus)
	assert.NotNil(t, enrollment.Progress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrollmentDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{StudentID: "s1", CourseID: "c1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrollmentOtherFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &models.Enrollment{StudentID: "s1", CourseID: "c1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestEnrollmentExistsInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)")).
		WithArgs("s1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	exists, err := repo.Exists(context.Background(), tx, "s1", "c1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAndUpdateProgress(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e WHERE e.student_id = $1 AND e.course_id = $2 FOR UPDATE")).
		WithArgs("s1", "c1").
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).
			AddRow("e1", "s1", "c1", now, []byte(`{"l1":true}`), string(models.CompletionInProgress), now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET progress = $2, completion_status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("e1", sqlmock.AnyArg(), models.CompletionCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	enrollment, err := repo.LockByStudentAndCourse(ctx, tx, "s1", "c1")
	require.NoError(t, err)
	assert.True(t, enrollment.Progress["l1"])

	enrollment.Progress["l2"] = true
	enrollment.CompletionStatus = enrollment.Progress.Status(2)
	require.NoError(t, repo.UpdateProgress(ctx, tx, enrollment))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEnrollmentsByStudentOnlyActiveCourses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	columns := append(append([]string{}, enrollmentRowColumns...), "student_name", "student_email", "course_title")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.student_id = $1 AND c.active = TRUE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("e1", "s1", "c1", now, []byte(`{}`), string(models.CompletionNotStarted), now, "Stu", "stu@example.com", "Go 101"))

	items, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Go 101", items[0].CourseTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}
