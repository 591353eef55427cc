package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
	"github.com/stemsi/exampro-backend/internal/validator"
)

// GradingHandler handles manual scoring, regrades and the grading advisor.
type GradingHandler struct {
	gradingService *service.GradingService
	aiService      *service.AIService
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(gradingService *service.GradingService, aiService *service.AIService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService, aiService: aiService}
}

// ApplyManualScores godoc
// POST /api/v1/grading/manual
// Applies subjective scores to a submitted attempt. All scores are validated
// before any is written.
func (h *GradingHandler) ApplyManualScores(c *gin.Context) {
	var req model.ManualGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.gradingService.ApplyManualScores(c.Request.Context(), req.SubmissionID, middleware.GetActor(c), req.QuestionScores)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// Regrade godoc
// POST /api/v1/grading/submissions/:id/regrade
// Re-runs objective grading against the current answer key.
func (h *GradingHandler) Regrade(c *gin.Context) {
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.gradingService.Regrade(c.Request.Context(), submissionID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// Finalize godoc
// POST /api/v1/grading/submissions/:id/finalize
// Releases the total of an attempt with no subjective answers left to score.
func (h *GradingHandler) Finalize(c *gin.Context) {
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.gradingService.Finalize(c.Request.Context(), submissionID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// RegradeExam godoc
// POST /api/v1/grading/exams/:id/regrade
func (h *GradingHandler) RegradeExam(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.gradingService.RegradeExam(c.Request.Context(), examID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"regraded": n})
}

// Suggest godoc
// POST /api/v1/ai/grading
// Returns an advisory score for a subjective answer. Nothing is stored.
func (h *GradingHandler) Suggest(c *gin.Context) {
	var req model.AIGradingRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	suggestion, err := h.aiService.Suggest(c.Request.Context(), &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, suggestion)
}
