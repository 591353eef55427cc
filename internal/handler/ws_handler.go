package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
	ws "github.com/stemsi/exampro-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// AttemptFeed streams the raw monitor events published for one submission.
type AttemptFeed interface {
	SubscribeSubmission(ctx context.Context, submissionID int64) (<-chan string, func() error)
}

// WSHandler runs a student's attempt over one socket: answer autosave,
// proctoring events and submit, plus a push when the server ends the attempt.
type WSHandler struct {
	submissionService *service.SubmissionService
	proctoringService *service.ProctoringService
	feed              AttemptFeed
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	submissionService *service.SubmissionService,
	proctoringService *service.ProctoringService,
	feed AttemptFeed,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		submissionService: submissionService,
		proctoringService: proctoringService,
		feed:              feed,
		log:               logger.Component(log, "ws_handler"),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// session is the per-connection state.
type session struct {
	conn   *ws.Conn
	examID int64
	userID int64
	subID  int64
	log    zerolog.Logger
}

// ExamStream godoc
// WS /ws/v1/exams/:id/stream
// Requires an attempt in progress; start it over HTTP first.
func (h *WSHandler) ExamStream(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor := middleware.GetActor(c)

	current, err := h.submissionService.GetMine(c.Request.Context(), examID, actor.UserID)
	if err != nil {
		failWithError(c, err)
		return
	}
	if current.Status != model.SubmissionInProgress {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSubmission)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	s := &session{
		conn:   conn,
		examID: examID,
		userID: actor.UserID,
		subID:  current.ID,
		log: h.log.With().
			Int64("user_id", actor.UserID).
			Int64("exam_id", examID).
			Int64("submission_id", current.ID).
			Logger(),
	}
	s.log.Info().Msg("Student connected")

	_ = conn.Send(ws.EventState, current)
	go h.watch(ctx, s)

	for {
		var req ws.Request
		if err := conn.Read(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		switch req.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, s, req.Answers)
		case ws.ActionProctor:
			h.handleProctor(ctx, s, &req)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, s, req.Answers)
		case ws.ActionPing:
			_ = conn.Send(ws.EventPong, nil)
		default:
			s.log.Warn().Str("action", string(req.Action)).Msg("Unknown action")
			_ = conn.SendError(string(response.ErrInvalidPayload), "unknown action: "+string(req.Action))
		}
	}
}

func (h *WSHandler) sendError(s *session, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Stream action failed")
	}
	_ = s.conn.SendError(string(code), response.GetMessage(code))
}

func (h *WSHandler) handleAnswer(ctx context.Context, s *session, answers model.Answers) {
	if len(answers) == 0 {
		_ = s.conn.SendError(string(response.ErrValidation), "answers are required")
		return
	}
	sub, err := h.submissionService.SaveAnswers(ctx, s.subID, s.userID, answers)
	if err != nil {
		h.sendError(s, err)
		return
	}
	_ = s.conn.Send(ws.EventSaved, gin.H{"submissionId": sub.ID, "answered": len(sub.Answers)})
}

func (h *WSHandler) handleProctor(ctx context.Context, s *session, req *ws.Request) {
	eventType := model.ProctoringEventType(req.EventType)
	if !eventType.Valid() {
		_ = s.conn.SendError(string(response.ErrValidation), "eventType must be one of tab_switch exit_fullscreen blur")
		return
	}
	result, err := h.proctoringService.RecordEvent(ctx, s.examID, s.userID, eventType, req.Detail)
	if err != nil {
		h.sendError(s, err)
		return
	}
	if result.Enforced {
		_ = s.conn.Send(ws.EventEnforced, result)
		return
	}
	_ = s.conn.Send(ws.EventProctored, result)
}

func (h *WSHandler) handleSubmit(ctx context.Context, s *session, answers model.Answers) {
	sub, err := h.submissionService.Submit(ctx, s.examID, s.userID, answers)
	if err != nil {
		h.sendError(s, err)
		return
	}
	s.log.Info().Msg("Exam submitted over stream")
	_ = s.conn.Send(ws.EventSubmitted, sub)
}

// watch pushes a submitted event when the attempt is ended elsewhere, e.g.
// by the expiry scanner or a proctoring report over HTTP.
func (h *WSHandler) watch(ctx context.Context, s *session) {
	ch, stop := h.feed.SubscribeSubmission(ctx, s.subID)
	defer func() { _ = stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, open := <-ch:
			if !open {
				return
			}
			var ev model.MonitorEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				continue
			}
			if ev.Type != model.MonitorEventSubmitted {
				continue
			}
			sub, err := h.submissionService.GetMine(ctx, s.examID, s.userID)
			if err != nil {
				s.log.Warn().Err(err).Msg("Failed to load ended attempt")
				continue
			}
			_ = s.conn.Send(ws.EventSubmitted, sub)
		}
	}
}
