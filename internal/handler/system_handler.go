package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/response"
)

const probeTimeout = 2 * time.Second

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// QueueDepth reports the notification backlog.
type QueueDepth interface {
	Len(ctx context.Context) (int64, error)
}

// SystemHandler reports liveness and runtime status.
type SystemHandler struct {
	probes    map[string]Probe
	queue     QueueDepth
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(probes map[string]Probe, queue QueueDepth, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		probes:    probes,
		queue:     queue,
		startTime: time.Now(),
		log:       logger.Component(log, "system_handler"),
	}
}

// Health godoc
// GET /health
// Responds 503 when any dependency probe fails.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	checks, healthy := h.runProbes(ctx)
	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	response.Success(c, status, gin.H{"status": state, "checks": checks})
}

func (h *SystemHandler) runProbes(ctx context.Context) (map[string]string, bool) {
	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.probes[name](ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("Health probe failed")
			checks[name] = "down"
			healthy = false
			continue
		}
		checks[name] = "up"
	}
	return checks, healthy
}

type systemStatus struct {
	Uptime      string `json:"uptime"`
	GoVersion   string `json:"goVersion"`
	NumCPU      int    `json:"numCpu"`
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heapAlloc"`
	HeapSys     uint64 `json:"heapSys"`
	NumGC       uint32 `json:"numGc"`
	NotifyQueue *int64 `json:"notifyQueue"`
}

// Status godoc
// GET /api/v1/system/status
func (h *SystemHandler) Status(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	st := systemStatus{
		Uptime:     formatDuration(time.Since(h.startTime)),
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.Sys,
		NumGC:      ms.NumGC,
	}
	if h.queue != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()
		if n, err := h.queue.Len(ctx); err == nil {
			st.NotifyQueue = &n
		}
	}
	response.Success(c, http.StatusOK, st)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
