package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/repository/memstore"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
	"github.com/stemsi/exampro-backend/internal/validator"
	"github.com/stretchr/testify/require"
)

const (
	teacherID int64 = 100
	studentID int64 = 1
)

// fakeFeed replays fixed payloads, then closes the channel. Exam monitors get
// payloads, attempt streams get attemptPayloads.
type fakeFeed struct {
	payloads        []string
	attemptPayloads []string

	mu          sync.Mutex
	attemptSubs []int64
}

func replay(payloads []string) (<-chan string, func() error) {
	ch := make(chan string, len(payloads))
	for _, p := range payloads {
		ch <- p
	}
	close(ch)
	return ch, func() error { return nil }
}

func (f *fakeFeed) Subscribe(ctx context.Context, examID int64) (<-chan string, func() error) {
	return replay(f.payloads)
}

func (f *fakeFeed) SubscribeSubmission(ctx context.Context, submissionID int64) (<-chan string, func() error) {
	f.mu.Lock()
	f.attemptSubs = append(f.attemptSubs, submissionID)
	f.mu.Unlock()
	return replay(f.attemptPayloads)
}

func (f *fakeFeed) attemptSubscriptions() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.attemptSubs...)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    response.ErrCode  `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Metadata response.Metadata `json:"metadata"`
}

type testServer struct {
	t      *testing.T
	store  *memstore.Store
	auth   *service.AuthService
	feed   *fakeFeed
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	store := memstore.New()
	log := zerolog.Nop()
	auth := service.NewAuthService("handler-test-secret", time.Hour)
	feed := &fakeFeed{}

	submissions := service.NewSubmissionService(store, store, store, store, log)
	proctoring := service.NewProctoringService(store, store, store, store, log)
	grading := service.NewGradingService(store, store, store, log)
	ai := service.NewAIService(store, service.DisabledSuggester{}, time.Second, log)
	exams := service.NewExamService(store, store, store, store, log)
	notifications := service.NewNotificationService(store, log)

	submissionHandler := NewSubmissionHandler(submissions)
	proctoringHandler := NewProctoringHandler(proctoring)
	gradingHandler := NewGradingHandler(grading, ai)
	examHandler := NewExamHandler(exams)
	notificationHandler := NewNotificationHandler(notifications)
	monitorHandler := NewMonitorHandler(service.NewMonitorService(store, store), feed, log)
	wsHandler := NewWSHandler(submissions, proctoring, feed, log, nil)

	r := gin.New()
	r.Use(response.RequestIDMiddleware())

	api := r.Group("/api/v1", middleware.RequireAuth(auth))
	student := api.Group("", middleware.RequireStudent())
	student.POST("/exams/:id/submissions/start", submissionHandler.Start)
	student.GET("/exams/:id/submissions/me", submissionHandler.GetMine)
	student.POST("/exams/:id/submit", submissionHandler.Submit)
	student.PUT("/submissions/:id/answers", submissionHandler.SaveAnswers)
	student.POST("/proctoring/events", proctoringHandler.RecordEvent)

	api.GET("/exams/:id", examHandler.GetExam)
	api.GET("/submissions/:id", submissionHandler.Get)
	api.GET("/notifications", notificationHandler.List)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)

	staff := api.Group("", middleware.RequireStaff())
	staff.POST("/exams", examHandler.CreateExam)
	staff.GET("/exams/:id/submissions", submissionHandler.ListByExam)
	staff.GET("/exams/:id/monitor", monitorHandler.MonitorExamSSE)
	staff.GET("/submissions/:id/events", submissionHandler.ListEvents)
	staff.POST("/grading/manual", gradingHandler.ApplyManualScores)
	staff.POST("/grading/submissions/:id/finalize", gradingHandler.Finalize)
	staff.POST("/ai/grading", gradingHandler.Suggest)

	r.GET("/ws/v1/exams/:id/stream", middleware.RequireAuth(auth), middleware.RequireStudent(), wsHandler.ExamStream)

	return &testServer{t: t, store: store, auth: auth, feed: feed, engine: r}
}

func (s *testServer) token(userID int64, role model.Role) string {
	s.t.Helper()
	token, err := s.auth.IssueToken(userID, role)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) studentToken() string { return s.token(studentID, model.RoleStudent) }
func (s *testServer) teacherToken() string { return s.token(teacherID, model.RoleTeacher) }

type question struct {
	typ    model.QuestionType
	answer string
	score  int
}

// exam creates a published exam, open now, owned by teacherID.
func (s *testServer) exam(edit func(*model.Exam), questions ...question) (int64, []int64) {
	s.t.Helper()
	ctx := context.Background()
	now := time.Now()
	e := &model.Exam{
		Title:      "Unit 3 Quiz",
		CourseID:   9,
		CreatorID:  teacherID,
		StartTime:  now.Add(-time.Hour),
		EndTime:    now.Add(time.Hour),
		TotalScore: 100,
		Status:     model.ExamStatusPublished,
		ProctoringPolicy: model.ProctoringPolicy{
			AllowedPlatforms: model.PlatformBoth,
		},
	}
	if edit != nil {
		edit(e)
	}
	require.NoError(s.t, s.store.CreateExam(ctx, e))

	ids := make([]int64, 0, len(questions))
	for i, qs := range questions {
		q := &model.Question{
			CreatorID:  teacherID,
			Content:    "question " + strconv.Itoa(i+1),
			Type:       qs.typ,
			Answer:     qs.answer,
			Difficulty: model.DifficultyMedium,
		}
		if qs.typ.NeedsOptions() {
			q.Options = []string{"A", "B", "C", "D"}
		}
		require.NoError(s.t, s.store.CreateQuestion(ctx, q))
		require.NoError(s.t, s.store.AttachQuestion(ctx, model.ExamQuestion{
			ExamID:     e.ID,
			QuestionID: q.ID,
			Score:      qs.score,
			Sequence:   i + 1,
		}, true))
		ids = append(ids, q.ID)
	}
	return e.ID, ids
}

// do sends a request and decodes the envelope.
func (s *testServer) do(method, path, token string, body any, header ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func examPath(examID int64, suffix string) string {
	return "/api/v1/exams/" + strconv.FormatInt(examID, 10) + suffix
}
