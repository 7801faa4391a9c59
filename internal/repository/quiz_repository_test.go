package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

var questionRowColumns = []string{"id", "quiz_id", "question_text", "question_type", "options", "position", "created_at", "updated_at"}

func TestListQuestionsDecodesOptions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM questions WHERE quiz_id = $1 ORDER BY position ASC")).
		WithArgs("quiz-1").
		WillReturnRows(sqlmock.NewRows(questionRowColumns).
			AddRow("q1", "quiz-1", "2+2?", string(models.QuestionMultipleChoice), []byte(`[{"text":"3","is_correct":false},{"text":"4","is_correct":true}]`), 0, now, now))

	questions, err := repo.ListQuestions(context.Background(), nil, "quiz-1")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Len(t, questions[0].Options, 2)
	key, ok := questions[0].Options.AnswerKey()
	assert.True(t, ok)
	assert.Equal(t, "4", key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteQuizWithQuestionsInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM questions WHERE quiz_id = $1")).WithArgs("quiz-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quizzes WHERE id = $1")).WithArgs("quiz-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteQuestionsByQuiz(ctx, tx, "quiz-1"))
	require.NoError(t, repo.Delete(ctx, tx, "quiz-1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateQuestionAppendsPosition(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(position), -1) + 1 FROM questions WHERE quiz_id = $1")).
		WithArgs("quiz-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(2))
	mock.ExpectExec("INSERT INTO questions").WillReturnResult(sqlmock.NewResult(1, 1))

	question := &models.Question{QuizID: "quiz-1", QuestionText: "Pick", QuestionType: models.QuestionTrueFalse,
		Options: models.QuestionOptions{{Text: "true", IsCorrect: true}, {Text: "false"}}}
	require.NoError(t, repo.CreateQuestion(context.Background(), question, nil))
	assert.Equal(t, 2, question.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}
