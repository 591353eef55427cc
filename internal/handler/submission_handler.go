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

// HeaderClientPlatform lets clients announce their platform without a body.
const HeaderClientPlatform = "X-Client-Platform"

// SubmissionHandler handles the student attempt lifecycle.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// Start godoc
// POST /api/v1/exams/:id/submissions/start
// Starts the caller's attempt or resumes the one in progress.
func (h *SubmissionHandler) Start(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.StartRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	platform := model.Platform(req.Platform)
	if platform == "" {
		platform = model.Platform(c.GetHeader(HeaderClientPlatform))
	}

	actor := middleware.GetActor(c)
	sub, err := h.submissionService.StartOrResume(c.Request.Context(), examID, actor.UserID, platform)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// SaveAnswers godoc
// PUT /api/v1/submissions/:id/answers
// Merges answers into an in-progress attempt.
func (h *SubmissionHandler) SaveAnswers(c *gin.Context) {
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.AnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	actor := middleware.GetActor(c)
	sub, err := h.submissionService.SaveAnswers(c.Request.Context(), submissionID, actor.UserID, req.Answers)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// Submit godoc
// POST /api/v1/exams/:id/submit
// Finalizes the caller's attempt and grades it. Repeated calls return the
// stored result.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.AnswersRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	actor := middleware.GetActor(c)
	sub, err := h.submissionService.Submit(c.Request.Context(), examID, actor.UserID, req.Answers)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// Get godoc
// GET /api/v1/submissions/:id
func (h *SubmissionHandler) Get(c *gin.Context) {
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.submissionService.Get(c.Request.Context(), submissionID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// GetMine godoc
// GET /api/v1/exams/:id/submissions/me
func (h *SubmissionHandler) GetMine(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.submissionService.GetMine(c.Request.Context(), examID, middleware.GetActor(c).UserID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sub)
}

// ListByExam godoc
// GET /api/v1/exams/:id/submissions
// Lists every attempt of an exam for its creator.
func (h *SubmissionHandler) ListByExam(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	subs, err := h.submissionService.ListByExam(c.Request.Context(), examID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// ListEvents godoc
// GET /api/v1/submissions/:id/events
func (h *SubmissionHandler) ListEvents(c *gin.Context) {
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	events, err := h.submissionService.ListEvents(c.Request.Context(), submissionID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"events": events})
}
