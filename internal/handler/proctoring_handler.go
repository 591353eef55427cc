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

// ProctoringHandler receives client integrity events.
type ProctoringHandler struct {
	proctoringService *service.ProctoringService
}

// NewProctoringHandler creates a new ProctoringHandler.
func NewProctoringHandler(proctoringService *service.ProctoringService) *ProctoringHandler {
	return &ProctoringHandler{proctoringService: proctoringService}
}

// RecordEvent godoc
// POST /api/v1/proctoring/events
// Responds 200 with the new switch count, or 403 FORCE_SUBMITTED with
// data.enforced=true when the event ended the attempt.
func (h *ProctoringHandler) RecordEvent(c *gin.Context) {
	var req model.ProctoringEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	actor := middleware.GetActor(c)
	result, err := h.proctoringService.RecordEvent(c.Request.Context(), req.ExamID, actor.UserID,
		model.ProctoringEventType(req.EventType), req.Detail)
	if err != nil {
		failWithError(c, err)
		return
	}
	if result.Enforced {
		response.FailWithData(c, http.StatusForbidden, response.ErrForceSubmitted, result)
		return
	}
	response.Success(c, http.StatusOK, result)
}
