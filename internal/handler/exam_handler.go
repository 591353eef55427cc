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

// ExamHandler handles exam definition and question bank endpoints.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

func examResponse(e *model.Exam, questions int) model.ExamResponse {
	return model.ExamResponse{
		Exam:              *e,
		StatusDescription: e.Status.Description(),
		QuestionCount:     questions,
	}
}

// CreateExam godoc
// POST /api/v1/exams
// Creates a new draft exam owned by the caller.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, examResponse(exam, 0))
}

// GetExam godoc
// GET /api/v1/exams/:id
// Students receive published exams without canonical answers.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	def, err := h.examService.Get(c.Request.Context(), examID, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"exam":      examResponse(&def.Exam, len(def.Questions)),
		"questions": def.Questions,
	})
}

// UpdateExam godoc
// PUT /api/v1/exams/:id
// Fails with EXAM_LOCKED once students have started, unless the caller is an admin.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, middleware.GetActor(c), &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, examResponse(exam, 0))
}

// PublishExam godoc
// POST /api/v1/exams/:id/publish
func (h *ExamHandler) PublishExam(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.examService.Publish(c.Request.Context(), examID, middleware.GetActor(c)); err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": examID, "status": model.ExamStatusPublished})
}

// AttachQuestion godoc
// POST /api/v1/exams/:id/questions
func (h *ExamHandler) AttachQuestion(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ExamQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eq, err := h.examService.AttachQuestion(c.Request.Context(), examID, middleware.GetActor(c), &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, eq)
}

// CreateQuestion godoc
// POST /api/v1/questions
func (h *ExamHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.examService.CreateQuestion(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// GetQuestion godoc
// GET /api/v1/questions/:id
func (h *ExamHandler) GetQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.examService.GetQuestion(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// UpdateQuestion godoc
// PUT /api/v1/questions/:id
// Changes to the answer key take effect on submissions only after a regrade.
func (h *ExamHandler) UpdateQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.examService.UpdateQuestion(c.Request.Context(), id, middleware.GetActor(c), &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}
