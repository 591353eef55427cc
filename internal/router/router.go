package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/config"
	"github.com/stemsi/exampro-backend/internal/handler"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam         *handler.ExamHandler
	Submission   *handler.SubmissionHandler
	Proctoring   *handler.ProctoringHandler
	Grading      *handler.GradingHandler
	Statistics   *handler.StatisticsHandler
	Notification *handler.NotificationHandler
	Monitor      *handler.MonitorHandler
	WS           *handler.WSHandler
	System       *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// proctoringLimiter may be nil to disable rate limiting.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	proctoringLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Empty AllowedOrigins allows all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", handler.HeaderClientPlatform}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.RequireAuth(authService))

	// ─── 1. Student attempt lifecycle ──────────────────────────────────
	student := api.Group("")
	student.Use(middleware.RequireStudent())
	{
		student.POST("/exams/:id/submissions/start", handlers.Submission.Start)
		student.GET("/exams/:id/submissions/me", handlers.Submission.GetMine)
		student.POST("/exams/:id/submit", handlers.Submission.Submit)
		student.PUT("/submissions/:id/answers", handlers.Submission.SaveAnswers)
		student.GET("/statistics/students/me", handlers.Statistics.Me)

		proctoring := []gin.HandlerFunc{}
		if proctoringLimiter != nil {
			proctoring = append(proctoring, proctoringLimiter.Middleware())
		}
		proctoring = append(proctoring, handlers.Proctoring.RecordEvent)
		student.POST("/proctoring/events", proctoring...)
	}

	// ─── 2. Shared (any authenticated role) ────────────────────────────
	{
		api.GET("/exams/:id", handlers.Exam.GetExam)
		api.GET("/submissions/:id", handlers.Submission.Get)
		api.GET("/notifications", handlers.Notification.List)
		api.GET("/notifications/unread-count", handlers.Notification.UnreadCount)
		api.PUT("/notifications/:id/read", handlers.Notification.MarkRead)
	}

	// ─── 3. Staff (teacher + admin) ────────────────────────────────────
	staff := api.Group("")
	staff.Use(middleware.RequireStaff())
	{
		staff.POST("/exams", handlers.Exam.CreateExam)
		staff.PUT("/exams/:id", handlers.Exam.UpdateExam)
		staff.POST("/exams/:id/publish", handlers.Exam.PublishExam)
		staff.POST("/exams/:id/questions", handlers.Exam.AttachQuestion)
		staff.GET("/exams/:id/submissions", handlers.Submission.ListByExam)
		staff.GET("/exams/:id/monitor", handlers.Monitor.MonitorExamSSE)

		staff.POST("/questions", handlers.Exam.CreateQuestion)
		staff.GET("/questions/:id", handlers.Exam.GetQuestion)
		staff.PUT("/questions/:id", handlers.Exam.UpdateQuestion)

		staff.GET("/submissions/:id/events", handlers.Submission.ListEvents)

		staff.POST("/grading/manual", handlers.Grading.ApplyManualScores)
		staff.POST("/grading/submissions/:id/regrade", handlers.Grading.Regrade)
		staff.POST("/grading/submissions/:id/finalize", handlers.Grading.Finalize)
		staff.POST("/grading/exams/:id/regrade", handlers.Grading.RegradeExam)
		staff.POST("/ai/grading", handlers.Grading.Suggest)

		staff.GET("/statistics/exams/:id", handlers.Statistics.Exam)
	}

	// ─── 4. Admin ──────────────────────────────────────────────────────
	admin := api.Group("/system")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/status", handlers.System.Status)
	}

	// ─── 5. WebSocket (token via ?token= query) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAuth(authService), middleware.RequireStudent())
	{
		ws.GET("/exams/:id/stream", handlers.WS.ExamStream)
	}

	return router
}
