package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"workflow/internal/apperror"
	"workflow/internal/assistant"
	"workflow/internal/identity"
	"workflow/internal/notify"
	"workflow/internal/project"
	"workflow/internal/report"
	"workflow/internal/session"
	"workflow/internal/stats"
	"workflow/internal/task"
)

// Services bundles the domain services the HTTP layer delegates to.
type Services struct {
	Identity  *identity.Service
	Tokens    *session.Tokens
	Projects  *project.Registry
	Tasks     *task.Registry
	Reports   *report.Ledger
	Stats     *stats.Engine
	Assistant assistant.Assistant
	Mailer    *notify.Mailer
}

// Server provides HTTP handlers for the workflow board backend.
type Server struct {
	engine    *gin.Engine
	svc       Services
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc Services, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:    router,
		svc:       svc,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)
	api.POST("/auth/login", s.handleLogin)

	signedIn := api.Group("", s.authenticate)
	signedIn.POST("/auth/change-password", s.handleChangePassword)

	active := signedIn.Group("", s.requireActive)
	{
		active.GET("/auth/me", s.handleMe)

		users := active.Group("/users", s.requireAdmin)
		{
			users.GET("", s.handleListUsers)
			users.POST("", s.handleCreateUser)
			users.DELETE(":id", s.handleDeleteUser)
		}

		projects := active.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.requireAdmin, s.handleCreateProject)
		}

		tasks := active.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.requireAdmin, s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.PUT(":id/status", s.handleSetStatus)
			tasks.GET(":id/reports", s.handleListReports)
			tasks.POST(":id/reports", s.handleSubmitReport)
			tasks.GET(":id/reports/analysis", s.handleAnalyzeReports)
		}

		active.POST("/assistant/suggest", s.requireAdmin, s.handleSuggest)

		statsGroup := active.Group("/stats")
		{
			statsGroup.GET("/dashboard", s.handleDashboard)
			statsGroup.GET("/team", s.requireAdmin, s.handleTeam)
			statsGroup.GET("/team.csv", s.requireAdmin, s.handleTeamCSV)
		}

		settings := active.Group("/settings", s.requireAdmin)
		{
			settings.GET("/email", s.handleGetEmailSettings)
			settings.PUT("/email", s.handleSaveEmailSettings)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindJSON decodes the request body and answers 400 on failure.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, apperror.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

// respondError logs the error and returns a JSON payload with the status
// matching its kind.
func (s *Server) respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
