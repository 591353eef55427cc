package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrNoActiveSubmission, http.StatusNotFound, response.ErrNoActiveSubmission},
	{service.ErrExamNotPublished, http.StatusNotFound, response.ErrExamNotPublished},

	{service.ErrOutOfWindow, http.StatusForbidden, response.ErrOutOfWindow},
	{service.ErrPlatformNotAllowed, http.StatusForbidden, response.ErrPlatformNotAllowed},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},

	{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
	{service.ErrInvalidState, http.StatusConflict, response.ErrInvalidState},
	{service.ErrExamLocked, http.StatusConflict, response.ErrExamLocked},
	{service.ErrConflict, http.StatusConflict, response.ErrConflict},

	{service.ErrQuestionNotInExam, http.StatusUnprocessableEntity, response.ErrQuestionNotInExam},
	{service.ErrScoreOutOfRange, http.StatusUnprocessableEntity, response.ErrScoreOutOfRange},
	{service.ErrNotManuallyGradable, http.StatusUnprocessableEntity, response.ErrNotManuallyGradable},
	{service.ErrNoQuestions, http.StatusUnprocessableEntity, response.ErrNoQuestions},
	{service.ErrQuestionInvalid, http.StatusUnprocessableEntity, response.ErrQuestionInvalid},

	{service.ErrSuggestionUnavailable, http.StatusServiceUnavailable, response.ErrSuggestionUnavailable},
}

// classify maps a service error to its HTTP status and envelope code.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failWithError writes the envelope for err. Unmapped errors are logged and
// reported as INTERNAL_ERROR without leaking details.
func failWithError(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
	}
	response.Fail(c, status, code)
}

// paramID parses a positive integer path parameter, writing INVALID_ID on failure.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
