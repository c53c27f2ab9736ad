package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasklist/internal/models"
	"tasklist/internal/storage"
	"tasklist/internal/validation"
)

type createTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsCompleted bool    `json:"isCompleted"`
}

type taskResponse struct {
	Message string       `json:"message"`
	Task    *models.Task `json:"task,omitempty"`
}

type validationResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// handleListTasks returns one page of tasks, optionally filtered by completion.
func (s *Server) handleListTasks(c *gin.Context) {
	pageNumber, err := queryInt(c, "pageNumber", 1)
	if err != nil || pageNumber < 1 {
		respondMessage(c, http.StatusBadRequest, "Page number must be greater than 0")
		return
	}
	pageSize, err := queryInt(c, "pageSize", models.DefaultPageSize)
	if err != nil || pageSize < 1 || pageSize > models.MaxPageSize {
		respondMessage(c, http.StatusBadRequest,
			fmt.Sprintf("Page size must be between 1 and %d", models.MaxPageSize))
		return
	}
	completed, err := queryBool(c, "completed")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "completed must be a boolean")
		return
	}

	query := storage.ListQuery{
		PageNumber: pageNumber,
		PageSize:   pageSize,
		Completed:  completed,
	}
	if err := storage.CheckPage(query); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	tasks, total, err := s.store.List(c.Request.Context(), query)
	if se, ok := storage.AsValidation(err); ok {
		respondMessage(c, http.StatusBadRequest, se.Message)
		return
	}
	if err != nil {
		s.respondInternal(c, err, "An error occurred while retrieving tasks")
		return
	}
	respondSuccess(c, http.StatusOK, models.NewPage(tasks, total, pageNumber, pageSize))
}

// handleGetTask returns a single task.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondInternal(c, err, "An error occurred while retrieving the task")
		return
	}
	if task == nil {
		respondNotFound(c, id)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleCreateTask inserts a new task.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(getString(req.Title))
	description := models.OptionalString(req.Description)
	if !s.validate(c, title) {
		return
	}

	task, err := s.store.Create(c.Request.Context(), title, description)
	if se, ok := storage.AsValidation(err); ok {
		s.logger.Warn("store rejected task", zap.String("field", se.Field), zap.String("reason", se.Message))
		respondMessage(c, http.StatusBadRequest, se.Message)
		return
	}
	if err != nil {
		s.respondInternal(c, err, "An error occurred while creating the task")
		return
	}

	c.Header("Location", fmt.Sprintf("/tasks/%d", task.ID))
	respondSuccess(c, http.StatusCreated, taskResponse{Message: "Task created successfully", Task: &task})
}

// handleUpdateTask replaces the title, description and completion flag.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(getString(req.Title))
	description := models.OptionalString(req.Description)
	if !s.validate(c, title) {
		return
	}

	task, err := s.store.Update(c.Request.Context(), id, title, description, req.IsCompleted)
	if se, ok := storage.AsValidation(err); ok {
		s.logger.Warn("store rejected task update", zap.Int64("id", id), zap.String("reason", se.Message))
		respondMessage(c, http.StatusBadRequest, se.Message)
		return
	}
	if err != nil {
		s.respondInternal(c, err, "An error occurred while updating the task")
		return
	}
	if task == nil {
		respondNotFound(c, id)
		return
	}
	respondSuccess(c, http.StatusOK, taskResponse{Message: "Task updated successfully"})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := s.store.Delete(c.Request.Context(), id)
	if err != nil {
		s.respondInternal(c, err, "An error occurred while deleting the task")
		return
	}
	if !deleted {
		respondNotFound(c, id)
		return
	}
	respondSuccess(c, http.StatusOK, taskResponse{Message: "Task removed successfully"})
}

// validate writes a 400 response and returns false when title is invalid.
func (s *Server) validate(c *gin.Context, title string) bool {
	res := s.validator.Validate(validation.TaskInput{Title: title})
	if res.Valid() {
		return true
	}
	s.logger.Warn("invalid task payload",
		zap.String("request_id", c.GetString(requestIDKey)), zap.Any("errors", res.Errors))
	c.JSON(http.StatusBadRequest, validationResponse{Message: "Validation failed", Errors: res.Errors})
	return false
}

func respondNotFound(c *gin.Context, id int64) {
	respondMessage(c, http.StatusNotFound, fmt.Sprintf("Task with ID %d not found", id))
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
