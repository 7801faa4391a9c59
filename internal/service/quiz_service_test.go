package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

var teacherActor = policy.Actor{UserID: "teacher-1", Role: models.RoleTeacher}

func newQuizFixture(t *testing.T) (*QuizService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxdb := sqlx.NewDb(db, "sqlmock")

	svc := NewQuizService(sqlxdb, repository.NewQuizRepository(sqlxdb), testCourses(), testLectures(),
		&fakeEnrollmentChecker{enrolled: map[string]bool{"student-1/course-1": true}}, nil, nil, nil)
	return svc, mock
}

func expectQuizRow(mock sqlmock.Sqlmock, id, courseID string) {
	now := time.Now()
	mock.ExpectQuery("FROM quizzes WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "lecture_id", "title", "due_date", "created_at", "updated_at"}).
			AddRow(id, courseID, nil, "Basics", nil, now, now))
}

func TestQuizServiceGetHidesAnswerKeys(t *testing.T) {
	svc, mock := newQuizFixture(t)
	now := time.Now()

	expectQuizRow(mock, "quiz-1", "course-1")
	mock.ExpectQuery("FROM questions WHERE quiz_id = \\$1").
		WithArgs("quiz-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "question_text", "question_type", "options", "position", "created_at", "updated_at"}).
			AddRow("q1", "quiz-1", "2+2", "multiple_choice", []byte(`[{"text":"3","is_correct":false},{"text":"4","is_correct":true}]`), 0, now, now))

	view, err := svc.Get(context.Background(), studentActor, "quiz-1")
	require.NoError(t, err)
	require.Len(t, view.Questions, 1)
	assert.Equal(t, []dto.OptionView{{Text: "3"}, {Text: "4"}}, view.Questions[0].Options)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizServiceGetRequiresEnrollment(t *testing.T) {
	svc, mock := newQuizFixture(t)
	expectQuizRow(mock, "quiz-1", "course-1")

	_, err := svc.Get(context.Background(), policy.Actor{UserID: "student-2", Role: models.RoleStudent}, "quiz-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizServiceCreateChecksLecture(t *testing.T) {
	svc, mock := newQuizFixture(t)
	foreign := "lec-x"

	_, err := svc.Create(context.Background(), teacherActor, dto.CreateQuizRequest{CourseID: "course-1", LectureID: &foreign, Title: "Quiz"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), studentActor, dto.CreateQuizRequest{CourseID: "course-1", Title: "Quiz"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	lecture := "lec-1"
	mock.ExpectExec("INSERT INTO quizzes").WillReturnResult(sqlmock.NewResult(1, 1))
	quiz, err := svc.Create(context.Background(), teacherActor, dto.CreateQuizRequest{CourseID: "course-1", LectureID: &lecture, Title: " Quiz "})
	require.NoError(t, err)
	assert.Equal(t, "Quiz", quiz.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizServiceAddQuestionNeedsAnswerKey(t *testing.T) {
	svc, _ := newQuizFixture(t)

	_, err := svc.AddQuestion(context.Background(), teacherActor, "quiz-1", dto.QuestionRequest{
		QuestionText: "Pick one",
		QuestionType: models.QuestionMultipleChoice,
		Options:      []models.QuestionOption{{Text: "a"}, {Text: "b"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceDeleteIsTransactional(t *testing.T) {
	svc, mock := newQuizFixture(t)

	expectQuizRow(mock, "quiz-1", "course-1")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM questions WHERE quiz_id = \\$1").WithArgs("quiz-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM quizzes WHERE id = \\$1").WithArgs("quiz-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), teacherActor, "quiz-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizServiceDeleteRollsBack(t *testing.T) {
	svc, mock := newQuizFixture(t)

	expectQuizRow(mock, "quiz-1", "course-1")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM questions WHERE quiz_id = \\$1").WithArgs("quiz-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM quizzes WHERE id = \\$1").WithArgs("quiz-1").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), teacherActor, "quiz-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransaction.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
