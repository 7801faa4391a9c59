package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/response"
)

type quizAttemptService interface {
	Submit(ctx context.Context, studentID string, req dto.SubmitQuizRequest) (*models.QuizAttemptDetail, error)
	Get(ctx context.Context, actor policy.Actor, attemptID string) (*models.QuizAttemptDetail, error)
	ListMine(ctx context.Context, actor policy.Actor, quizID string) ([]models.QuizAttempt, error)
	ListAll(ctx context.Context, actor policy.Actor, quizID string) ([]models.QuizAttemptSummary, error)
	ExportAll(ctx context.Context, actor policy.Actor, quizID string, format export.Format) (*export.File, error)
}

// QuizAttemptHandler exposes quiz submission and results.
type QuizAttemptHandler struct {
	service quizAttemptService
}

// NewQuizAttemptHandler constructs a QuizAttemptHandler.
func NewQuizAttemptHandler(svc quizAttemptService) *QuizAttemptHandler {
	return &QuizAttemptHandler{service: svc}
}

// Submit godoc
// @Summary Submit quiz answers
// @Description Grades the answers server-side and records the attempt
// @Tags Quiz Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitQuizRequest true "Answers"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /quiz-attempt/submit [post]
func (h *QuizAttemptHandler) Submit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	attempt, err := h.service.Submit(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attempt)
}

// Get godoc
// @Summary Get attempt
// @Tags Quiz Attempts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quiz-attempt/{id} [get]
func (h *QuizAttemptHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	attempt, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}

// ListMine returns the caller's attempts for a quiz.
func (h *QuizAttemptHandler) ListMine(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	attempts, err := h.service.ListMine(c.Request.Context(), actor, c.Param("quizId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// ListAll godoc
// @Summary All attempts of a quiz
// @Description Instructor or admin view. Pass format=csv or format=pdf to download.
// @Tags Quiz Attempts
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param quizId path string true "Quiz ID"
// @Param format query string false "Export format (csv, pdf)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /quiz-attempt/quiz/{quizId}/all [get]
func (h *QuizAttemptHandler) ListAll(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	format, requested, ok := exportFormat(c)
	if !ok {
		return
	}
	if requested {
		file, err := h.service.ExportAll(c.Request.Context(), actor, c.Param("quizId"), format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.File(c, file.Name, file.ContentType, file.Payload)
		return
	}

	attempts, err := h.service.ListAll(c.Request.Context(), actor, c.Param("quizId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}
