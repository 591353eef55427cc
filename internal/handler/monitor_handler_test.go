package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorStreamsSnapshotThenEvents(t *testing.T) {
	s := newTestServer(t)
	examID, _ := s.exam(nil, question{model.QuestionTypeSingle, "A", 5})
	_, _ = s.do(http.MethodPost, examPath(examID, "/submissions/start"), s.studentToken(), nil)

	event := `{"type":"proctor","examId":1,"eventType":"tab_switch"}`
	s.feed.payloads = []string{event}

	w, _ := s.do(http.MethodGet, examPath(examID, "/monitor"), s.teacherToken(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"))

	body := w.Body.String()
	snapshotAt := strings.Index(body, `"type":"snapshot"`)
	eventAt := strings.Index(body, "data: "+event)
	require.GreaterOrEqual(t, snapshotAt, 0, body)
	require.Greater(t, eventAt, snapshotAt, "events follow the snapshot")
	assert.Contains(t, body, `"totalJoined":1`)
	assert.Contains(t, body, `"totalInProgress":1`)
}

func TestMonitorRejectsOtherTeachers(t *testing.T) {
	s := newTestServer(t)
	examID, _ := s.exam(nil, question{model.QuestionTypeSingle, "A", 5})

	w, env := s.do(http.MethodGet, examPath(examID, "/monitor"), s.token(teacherID+1, model.RoleTeacher), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrForbidden, env.Error.Code)

	w, _ = s.do(http.MethodGet, examPath(examID, "/monitor"), s.token(1, model.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code, "admins may watch any exam")
}
