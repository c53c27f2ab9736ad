package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasklist/internal/storage"
	"tasklist/internal/validation"
)

// TaskValidator checks create/update payloads.
type TaskValidator interface {
	Validate(in validation.TaskInput) validation.Result
}

// Server provides HTTP handlers for the task list API.
type Server struct {
	engine    *gin.Engine
	store     storage.TaskStore
	validator TaskValidator
	logger    *zap.Logger
	metrics   *Metrics
}

// New constructs the HTTP server with routes and middleware configured.
func New(store storage.TaskStore, validator TaskValidator, logger *zap.Logger, metrics *Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics("tasklist", nil)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID())
	router.Use(metrics.middleware())
	router.Use(accessLog(logger, "/healthz", "/metrics"))
	router.Use(recovery(logger))

	srv := &Server{
		engine:    router,
		store:     store,
		validator: validator,
		logger:    logger,
		metrics:   metrics,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	tasks := s.engine.Group("/tasks")
	{
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleCreateTask)
		tasks.GET("/:id", s.handleGetTask)
		tasks.PUT("/:id", s.handleUpdateTask)
		tasks.DELETE("/:id", s.handleDeleteTask)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "endpoint not found")
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid identifier")
		return 0, false
	}
	return id, true
}

// respondInternal logs the cause and answers with a generic message only.
func (s *Server) respondInternal(c *gin.Context, err error, message string) {
	s.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	)
	respondMessage(c, http.StatusInternalServerError, message)
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func respondSuccess(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
