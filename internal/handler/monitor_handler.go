package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorFeed streams the raw monitor events published for an exam.
type MonitorFeed interface {
	Subscribe(ctx context.Context, examID int64) (<-chan string, func() error)
}

type MonitorHandler struct {
	monitorService *service.MonitorService
	feed           MonitorFeed
	log            zerolog.Logger
}

func NewMonitorHandler(monitorService *service.MonitorService, feed MonitorFeed, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		feed:           feed,
		log:            logger.Component(log, "monitor_handler"),
	}
}

type monitorMessage struct {
	Type string                 `json:"type"`
	Data *model.MonitorSnapshot `json:"data,omitempty"`
}

// MonitorExamSSE godoc
// GET /api/v1/exams/:id/monitor
// Streams a snapshot of every attempt, then each proctoring and submission
// event as it happens. A fresh snapshot follows every refreshInterval in
// which events arrived.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor := middleware.GetActor(c)
	reqCtx := c.Request.Context()

	// Resolve permissions before switching to the event stream so errors
	// still go out as a normal envelope.
	snapshot, err := h.monitorService.Snapshot(reqCtx, examID, actor)
	if err != nil {
		failWithError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	c.SSEvent("message", monitorMessage{Type: "snapshot", Data: snapshot})
	c.Writer.Flush()

	ch, stop := h.feed.Subscribe(reqCtx, examID)
	defer func() { _ = stop() }()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	dirty := false
	monLog := h.log.With().Int64("exam_id", examID).Int64("user_id", actor.UserID).Logger()
	monLog.Info().Msg("Attached to live monitor")

	pingPayload, _ := json.Marshal(monitorMessage{Type: "ping"})

	for {
		select {
		case <-reqCtx.Done():
			monLog.Info().Msg("Detached from live monitor")
			return

		case payload, open := <-ch:
			if !open {
				monLog.Info().Msg("Monitor feed closed")
				return
			}
			// Forward the published JSON as-is.
			writeSSEData(c, []byte(payload))
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			dirty = false
			h.sendRefresh(c, reqCtx, examID, actor, monLog)

		case <-keepAliveTicker.C:
			writeSSEData(c, pingPayload)
		}
	}
}

func writeSSEData(c *gin.Context, payload []byte) {
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(payload)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

// sendRefresh re-reads the snapshot under a scoped timeout.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID int64, actor model.Actor, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.Snapshot(ctx, examID, actor)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh monitor snapshot")
		return
	}
	c.SSEvent("message", monitorMessage{Type: "refresh", Data: snapshot})
	c.Writer.Flush()
}
