package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func newContext(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c
}

func TestBindUsesJSONFieldNames(t *testing.T) {
	Setup()

	var req model.ProctoringEventRequest
	fields := Bind(newContext(`{"examId": 1, "eventType": "screenshot"}`), &req)

	assert.Contains(t, fields, "eventType")
	assert.NotContains(t, fields, "examId")
}

func TestBindReportsMalformedBody(t *testing.T) {
	Setup()

	var req model.AnswersRequest
	fields := Bind(newContext(`{"answers": {"1": 5}}`), &req)

	assert.Contains(t, fields, "body")
}

func TestBindOptionalAcceptsEmptyBody(t *testing.T) {
	Setup()

	var req model.StartRequest
	assert.Nil(t, BindOptional(newContext(""), &req))
	assert.Equal(t, "", req.Platform)

	fields := BindOptional(newContext(`{"platform": "tablet"}`), &req)
	assert.Contains(t, fields, "platform")
}
