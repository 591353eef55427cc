package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/broker"
	"github.com/stemsi/exampro-backend/internal/cache"
	"github.com/stemsi/exampro-backend/internal/config"
	"github.com/stemsi/exampro-backend/internal/database"
	"github.com/stemsi/exampro-backend/internal/handler"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/repository"
	"github.com/stemsi/exampro-backend/internal/router"
	"github.com/stemsi/exampro-backend/internal/service"
	"github.com/stemsi/exampro-backend/internal/validator"
	"github.com/stemsi/exampro-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamPro Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	// ─── Redis-backed plumbing ─────────────────────────────────────────
	examCache := cache.NewExamCache(rdb, examRepo, cfg.ExamCacheTTL, log)
	monitorBroker := broker.NewMonitor(rdb)
	notifyQueue := broker.NewNotifyQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)
	examService := service.NewExamService(examRepo, questionRepo, examCache, submissionRepo, log)
	submissionService := service.NewSubmissionService(examCache, submissionRepo, notifyQueue, monitorBroker, log)
	proctoringService := service.NewProctoringService(examCache, submissionRepo, notifyQueue, monitorBroker, log)
	gradingService := service.NewGradingService(examCache, submissionRepo, notifyQueue, log)
	statisticsService := service.NewStatisticsService(examCache, submissionRepo, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	monitorService := service.NewMonitorService(examCache, submissionRepo)

	var suggester service.Suggester = service.DisabledSuggester{}
	if cfg.AIGradingURL != "" {
		suggester = service.NewHTTPSuggester(cfg.AIGradingURL, cfg.AIGradingAPIKey, cfg.AIGradingTimeout)
	} else {
		log.Warn().Msg("AI_GRADING_URL not set, grading suggestions disabled")
	}
	aiService := service.NewAIService(questionRepo, suggester, cfg.AIGradingTimeout, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	probes := map[string]handler.Probe{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	handlers := &router.Handlers{
		Exam:         handler.NewExamHandler(examService),
		Submission:   handler.NewSubmissionHandler(submissionService),
		Proctoring:   handler.NewProctoringHandler(proctoringService),
		Grading:      handler.NewGradingHandler(gradingService, aiService),
		Statistics:   handler.NewStatisticsHandler(statisticsService),
		Notification: handler.NewNotificationHandler(notificationService),
		Monitor:      handler.NewMonitorHandler(monitorService, monitorBroker, log),
		WS:           handler.NewWSHandler(submissionService, proctoringService, monitorBroker, log, cfg.AllowedOrigins),
		System:       handler.NewSystemHandler(probes, notifyQueue, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	notificationWorker := worker.NewNotificationWorker(notifyQueue, notificationService, log)
	expiryWorker := worker.NewExpiryWorker(
		submissionService,
		worker.NewRedisLocker(rdb),
		cfg.ExpiryScanInterval,
		cfg.ExpiryScanBatch,
		log,
	)
	proctoringLimiter := middleware.NewRateLimiter(cfg.ProctoringRatePerMinute, time.Minute)

	for _, run := range []func(context.Context){
		notificationWorker.Start,
		expiryWorker.Start,
		proctoringLimiter.RunCleanup,
	} {
		workers.Add(1)
		go func(run func(context.Context)) {
			defer workers.Done()
			run(workerCtx)
		}(run)
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Published exams are loaded before accepting traffic.
	if err := examService.PrewarmCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, proctoringLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the notification queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
