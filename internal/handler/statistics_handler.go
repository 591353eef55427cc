package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
)

// StatisticsHandler serves read-only score rollups.
type StatisticsHandler struct {
	statisticsService *service.StatisticsService
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(statisticsService *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

// Exam godoc
// GET /api/v1/statistics/exams/:id
func (h *StatisticsHandler) Exam(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := h.statisticsService.ExamStatistics(c.Request.Context(), examID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// Me godoc
// GET /api/v1/statistics/students/me
func (h *StatisticsHandler) Me(c *gin.Context) {
	stats, err := h.statisticsService.StudentStatistics(c.Request.Context(), middleware.GetActor(c).UserID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
