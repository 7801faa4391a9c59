package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

type quizAttemptServiceMock struct {
	submittedBy string
	submitErr   error
}

func (m *quizAttemptServiceMock) Submit(ctx context.Context, studentID string, req dto.SubmitQuizRequest) (*models.QuizAttemptDetail, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submittedBy = studentID
	return &models.QuizAttemptDetail{QuizAttempt: models.QuizAttempt{ID: "attempt-1", StudentID: studentID, QuizID: req.QuizID, Score: 50}}, nil
}

func (m *quizAttemptServiceMock) Get(ctx context.Context, actor policy.Actor, attemptID string) (*models.QuizAttemptDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
}

func (m *quizAttemptServiceMock) ListMine(ctx context.Context, actor policy.Actor, quizID string) ([]models.QuizAttempt, error) {
	return []models.QuizAttempt{}, nil
}

func (m *quizAttemptServiceMock) ListAll(ctx context.Context, actor policy.Actor, quizID string) ([]models.QuizAttemptSummary, error) {
	return []models.QuizAttemptSummary{}, nil
}

func (m *quizAttemptServiceMock) ExportAll(ctx context.Context, actor policy.Actor, quizID string, format export.Format) (*export.File, error) {
	return &export.File{Name: "quiz-results.pdf", ContentType: "application/pdf", Payload: []byte("%PDF-1.3")}, nil
}

func TestQuizAttemptHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &quizAttemptServiceMock{}
	handler := NewQuizAttemptHandler(svc)
	body := dto.SubmitQuizRequest{QuizID: "quiz-1", Answers: []dto.AnswerInput{{QuestionID: "q1", SelectedOption: "4"}}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/quiz-attempt/submit", body)
	handler.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.submittedBy)

	w = httptest.NewRecorder()
	handler.Submit(authedContext(w, jsonRequest(http.MethodPost, "/quiz-attempt/submit", body), "student-1", models.RoleStudent))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "student-1", svc.submittedBy)
	assert.Contains(t, w.Body.String(), `"score":50`)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quiz-attempt/submit", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	handler.Submit(authedContext(w, req, "student-1", models.RoleStudent))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuizAttemptHandlerMapsServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course"), http.StatusForbidden},
		{appErrors.Clone(appErrors.ErrNotFound, "quiz not found"), http.StatusNotFound},
		{appErrors.ErrTransaction, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := NewQuizAttemptHandler(&quizAttemptServiceMock{submitErr: tc.err})
		w := httptest.NewRecorder()
		req := jsonRequest(http.MethodPost, "/quiz-attempt/submit", dto.SubmitQuizRequest{QuizID: "quiz-1", Answers: []dto.AnswerInput{}})
		handler.Submit(authedContext(w, req, "student-1", models.RoleStudent))
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestQuizAttemptHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewQuizAttemptHandler(&quizAttemptServiceMock{})

	w := httptest.NewRecorder()
	c := authedContext(w, httptest.NewRequest(http.MethodGet, "/quiz-attempt/quiz/quiz-1/all?format=pdf", nil), "teacher-1", models.RoleTeacher)
	c.Params = gin.Params{{Key: "quizId", Value: "quiz-1"}}
	handler.ListAll(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}
