package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/practicebeats/practice-hub/config"
	"github.com/practicebeats/practice-hub/internal/application/command"
	"github.com/practicebeats/practice-hub/internal/application/query"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/internal/interface/http/handlers"
	"github.com/practicebeats/practice-hub/pkg/logger"
)

// validate checks request body structs against their validate tags.
var validate = validator.New()

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING AND ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON reads and validates a JSON request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return validate.Struct(dst)
}

// writeDomainError maps domain error kinds to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err),
		errors.Is(err, shared.ErrAlreadyProcessed),
		errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("request failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// identity extracts the authenticated caller, writing 401 when absent.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (handlers.Identity, bool) {
	id, ok := handlers.IdentityFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	}
	return id, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOS
// ══════════════════════════════════════════════════════════════════════════════

// userResponse is the public view of an account. It never carries the
// password hash.
type userResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Instrument        string     `json:"instrument,omitempty"`
	Section           string     `json:"section,omitempty"`
	Role              string     `json:"role"`
	TeacherCode       string     `json:"teacher_code,omitempty"`
	TeacherID         string     `json:"teacher_id,omitempty"`
	SharePractice     bool       `json:"share_practice_with_teacher"`
	EnsembleID        string     `json:"ensemble_id,omitempty"`
	WeeklyGoalMinutes int        `json:"weekly_goal_minutes"`
	StreakCount       int        `json:"streak_count"`
	TotalPoints       int        `json:"total_points"`
	Level             int        `json:"level"`
	LastPracticeDate  *time.Time `json:"last_practice_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             string(u.Email),
		Instrument:        u.Instrument,
		Section:           u.Section,
		Role:              string(u.Role),
		TeacherCode:       string(u.TeacherCode),
		TeacherID:         u.TeacherID,
		SharePractice:     u.SharePracticeWithTeacher,
		EnsembleID:        u.EnsembleID,
		WeeklyGoalMinutes: u.WeeklyGoalMinutes,
		StreakCount:       u.Practice.StreakCount,
		TotalPoints:       u.Practice.TotalPoints,
		Level:             u.Practice.Level,
		LastPracticeDate:  u.Practice.LastPracticeDate,
		CreatedAt:         u.CreatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Practice Hub API",
		"version":     "v1",
		"description": "REST API for Practice Hub - practice tracking for musicians",
		"endpoints": map[string]string{
			"health":      "/health",
			"register":    "/api/v1/auth/register",
			"sessions":    "/api/v1/sessions",
			"tasks":       "/api/v1/tasks",
			"stats":       "/api/v1/me/stats",
			"leaderboard": "/api/v1/ensembles/{id}/leaderboard",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=8"`
	Instrument        string `json:"instrument"`
	Section           string `json:"section"`
	Role              string `json:"role" validate:"omitempty,oneof=student teacher personal"`
	WeeklyGoalMinutes int    `json:"weekly_goal_minutes" validate:"gte=0"`
}

// handleRegister handles POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegisterUser == nil || s.deps.Tokens == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Registration not configured")
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	result, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		Instrument:        req.Instrument,
		Section:           req.Section,
		Role:              req.Role,
		WeeklyGoalMinutes: req.WeeklyGoalMinutes,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	token, err := s.deps.Tokens.Issue(result.User.ID, string(result.User.Role))
	if err != nil {
		s.logger.Error("failed to issue token", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":         toUserResponse(result.User),
		"teacher_code": result.TeacherCode,
		"token":        token,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Authenticate == nil || s.deps.Tokens == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Login not configured")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	u, err := s.deps.Authenticate.Handle(r.Context(), command.AuthenticateCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	token, err := s.deps.Tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		s.logger.Error("failed to issue token", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  toUserResponse(u),
		"token": token,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type taskTimeRequest struct {
	TaskID       string `json:"task_id" validate:"required"`
	MinutesSpent int    `json:"minutes_spent" validate:"gt=0"`
}

type logSessionRequest struct {
	StartedAt       *time.Time        `json:"started_at"`
	DurationMinutes int               `json:"duration_minutes" validate:"required,gt=0"`
	FocusRating     *int              `json:"focus_rating" validate:"omitempty,min=1,max=5"`
	ProgressRating  *int              `json:"progress_rating" validate:"omitempty,min=1,max=5"`
	EnergyRating    *int              `json:"energy_rating" validate:"omitempty,min=1,max=5"`
	Notes           string            `json:"notes"`
	Tasks           []taskTimeRequest `json:"tasks" validate:"dive"`
}

// handleLogSession handles POST /api/v1/sessions
func (s *Server) handleLogSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.LogSession == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session logging not configured")
		return
	}

	var req logSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	cmd := command.LogSessionCommand{
		UserID:          id.UserID,
		DurationMinutes: req.DurationMinutes,
		FocusRating:     req.FocusRating,
		ProgressRating:  req.ProgressRating,
		EnergyRating:    req.EnergyRating,
		Notes:           req.Notes,
	}
	if req.StartedAt != nil {
		cmd.StartTime = *req.StartedAt
	}
	for _, t := range req.Tasks {
		cmd.Tasks = append(cmd.Tasks, command.TaskTime{TaskID: t.TaskID, MinutesSpent: t.MinutesSpent})
	}

	result, err := s.deps.LogSession.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type updateSessionRequest struct {
	FocusRating    *int    `json:"focus_rating" validate:"omitempty,min=1,max=5"`
	ProgressRating *int    `json:"progress_rating" validate:"omitempty,min=1,max=5"`
	EnergyRating   *int    `json:"energy_rating" validate:"omitempty,min=1,max=5"`
	Notes          *string `json:"notes"`
}

// handleUpdateSession handles PATCH /api/v1/sessions/{id}
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.UpdateSessionRatings == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session update not configured")
		return
	}

	var req updateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	result, err := s.deps.UpdateSessionRatings.Handle(r.Context(), command.UpdateSessionRatingsCommand{
		SessionID:      r.PathValue("id"),
		UserID:         id.UserID,
		FocusRating:    req.FocusRating,
		ProgressRating: req.ProgressRating,
		EnergyRating:   req.EnergyRating,
		Notes:          req.Notes,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDeleteSession handles DELETE /api/v1/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.DeleteSession == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session delete not configured")
		return
	}

	result, err := s.deps.DeleteSession.Handle(r.Context(), command.DeleteSessionCommand{
		SessionID: r.PathValue("id"),
		UserID:    id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetPracticeLog handles GET /api/v1/sessions
func (s *Server) handleGetPracticeLog(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.GetPracticeLog == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Practice log not configured")
		return
	}

	q := query.GetPracticeLogQuery{
		UserID: id.UserID,
		From:   getQueryParamTime(r, "from"),
		To:     getQueryParamTime(r, "to"),
		Limit:  getQueryParamInt(r, "limit", 50),
	}

	sessions, err := s.deps.GetPracticeLog.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createTaskRequest struct {
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description"`
	Category         string     `json:"category" validate:"required"`
	Difficulty       int        `json:"difficulty" validate:"omitempty,min=1,max=5"`
	EstimatedMinutes int        `json:"estimated_minutes" validate:"required,gt=0"`
	RehearsalID      string     `json:"rehearsal_id"`
	DueDate          *time.Time `json:"due_date"`
}

// handleCreateTask handles POST /api/v1/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.CreateTask == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Task creation not configured")
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	t, err := s.deps.CreateTask.Handle(r.Context(), command.CreateTaskCommand{
		UserID:           id.UserID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		EstimatedMinutes: req.EstimatedMinutes,
		RehearsalID:      req.RehearsalID,
		DueDate:          req.DueDate,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

// handleListTasks handles GET /api/v1/tasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.ListTasks == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Task listing not configured")
		return
	}

	tasks, err := s.deps.ListTasks.Handle(r.Context(), query.ListTasksQuery{
		UserID: id.UserID,
		Status: getQueryParam(r, "status", ""),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

type updateTaskRequest struct {
	Title            *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description      *string    `json:"description"`
	Category         *string    `json:"category"`
	Difficulty       *int       `json:"difficulty" validate:"omitempty,min=1,max=5"`
	EstimatedMinutes *int       `json:"estimated_minutes" validate:"omitempty,gt=0"`
	DueDate          *time.Time `json:"due_date"`
}

// handleUpdateTask handles PATCH /api/v1/tasks/{id}
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.UpdateTask == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Task update not configured")
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	t, err := s.deps.UpdateTask.Handle(r.Context(), command.UpdateTaskCommand{
		TaskID:           r.PathValue("id"),
		UserID:           id.UserID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		EstimatedMinutes: req.EstimatedMinutes,
		DueDate:          req.DueDate,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleMarkTaskReady handles POST /api/v1/tasks/{id}/ready
func (s *Server) handleMarkTaskReady(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.MarkTaskReady == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Task update not configured")
		return
	}

	t, err := s.deps.MarkTaskReady.Handle(r.Context(), command.MarkTaskReadyCommand{
		TaskID: r.PathValue("id"),
		UserID: id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTask handles DELETE /api/v1/tasks/{id}
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.DeleteTask == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Task delete not configured")
		return
	}

	err := s.deps.DeleteTask.Handle(r.Context(), command.DeleteTaskCommand{
		TaskID: r.PathValue("id"),
		UserID: id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CURRENT USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStats handles GET /api/v1/me/stats
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.GetUserStats == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Stats not configured")
		return
	}

	stats, err := s.deps.GetUserStats.Handle(r.Context(), query.GetUserStatsQuery{
		UserID: id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type setSharingRequest struct {
	Share bool `json:"share"`
}

// handleSetSharing handles PUT /api/v1/me/sharing
func (s *Server) handleSetSharing(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.SetPracticeSharing == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Sharing not configured")
		return
	}

	var req setSharingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	err := s.deps.SetPracticeSharing.Handle(r.Context(), command.SetPracticeSharingCommand{
		StudentID: id.UserID,
		Share:     req.Share,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"share_practice_with_teacher": req.Share})
}

type linkTeacherRequest struct {
	TeacherCode string `json:"teacher_code" validate:"required"`
}

// handleLinkTeacher handles POST /api/v1/me/teacher
func (s *Server) handleLinkTeacher(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.LinkTeacher == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Teacher linking not configured")
		return
	}

	var req linkTeacherRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	teacher, err := s.deps.LinkTeacher.Handle(r.Context(), command.LinkTeacherCommand{
		StudentID:   id.UserID,
		TeacherCode: req.TeacherCode,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"teacher": toUserResponse(teacher),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENSEMBLE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createEnsembleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// handleCreateEnsemble handles POST /api/v1/ensembles
func (s *Server) handleCreateEnsemble(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.CreateEnsemble == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Ensemble creation not configured")
		return
	}

	var req createEnsembleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	ens, err := s.deps.CreateEnsemble.Handle(r.Context(), command.CreateEnsembleCommand{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ens)
}

type joinEnsembleRequest struct {
	JoinCode string `json:"join_code" validate:"required"`
}

// handleJoinEnsemble handles POST /api/v1/ensembles/join
func (s *Server) handleJoinEnsemble(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.JoinEnsemble == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Ensemble joining not configured")
		return
	}

	var req joinEnsembleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	ens, err := s.deps.JoinEnsemble.Handle(r.Context(), command.JoinEnsembleCommand{
		UserID:   id.UserID,
		JoinCode: req.JoinCode,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ens)
}

// handleGetLeaderboard handles GET /api/v1/ensembles/{id}/leaderboard
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identity(w, r); !ok {
		return
	}
	if s.deps.GetWeeklyLeaderboard == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard not configured")
		return
	}

	board, err := s.deps.GetWeeklyLeaderboard.Handle(r.Context(), query.GetWeeklyLeaderboardQuery{
		EnsembleID: r.PathValue("id"),
		At:         getQueryParamTime(r, "at"),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

type scheduleRehearsalRequest struct {
	Title       string    `json:"title" validate:"required"`
	Location    string    `json:"location"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// handleScheduleRehearsal handles POST /api/v1/ensembles/{id}/rehearsals
func (s *Server) handleScheduleRehearsal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.ScheduleRehearsal == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rehearsal scheduling not configured")
		return
	}

	var req scheduleRehearsalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	reh, err := s.deps.ScheduleRehearsal.Handle(r.Context(), command.ScheduleRehearsalCommand{
		EnsembleID:  r.PathValue("id"),
		Title:       req.Title,
		Location:    req.Location,
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reh)
}

type updateRehearsalRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Location    *string    `json:"location"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// handleUpdateRehearsal handles PATCH /api/v1/rehearsals/{id}
func (s *Server) handleUpdateRehearsal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.UpdateRehearsal == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rehearsal update not configured")
		return
	}

	var req updateRehearsalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	reh, err := s.deps.UpdateRehearsal.Handle(r.Context(), command.UpdateRehearsalCommand{
		RehearsalID: r.PathValue("id"),
		UpdatedBy:   id.UserID,
		Title:       req.Title,
		Location:    req.Location,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reh)
}

// handleCancelRehearsal handles DELETE /api/v1/rehearsals/{id}
func (s *Server) handleCancelRehearsal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.CancelRehearsal == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rehearsal cancel not configured")
		return
	}

	err := s.deps.CancelRehearsal.Handle(r.Context(), command.CancelRehearsalCommand{
		RehearsalID: r.PathValue("id"),
		CanceledBy:  id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createChallengeRequest struct {
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description"`
	GoalType      string    `json:"goal_type" validate:"required"`
	TargetMinutes int       `json:"target_minutes" validate:"gt=0"`
	BonusPoints   int       `json:"bonus_points" validate:"gte=0"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
}

// handleCreateChallenge handles POST /api/v1/ensembles/{id}/challenges
func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.CreateChallenge == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Challenge creation not configured")
		return
	}

	var req createChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	ch, err := s.deps.CreateChallenge.Handle(r.Context(), command.CreateChallengeCommand{
		EnsembleID:    r.PathValue("id"),
		Title:         req.Title,
		Description:   req.Description,
		GoalType:      req.GoalType,
		TargetMinutes: req.TargetMinutes,
		BonusPoints:   req.BonusPoints,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		CreatedBy:     id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ch)
}

// handleGetChallengeProgress handles GET /api/v1/challenges/{id}/progress
func (s *Server) handleGetChallengeProgress(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identity(w, r); !ok {
		return
	}
	if s.deps.GetChallengeProgress == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Challenge progress not configured")
		return
	}

	progress, err := s.deps.GetChallengeProgress.Handle(r.Context(), query.GetChallengeProgressQuery{
		ChallengeID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// handleCompleteChallenge handles POST /api/v1/challenges/{id}/complete
func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.CompleteChallenge == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Challenge completion not configured")
		return
	}

	result, err := s.deps.CompleteChallenge.Handle(r.Context(), command.CompleteChallengeCommand{
		ChallengeID: r.PathValue("id"),
		UserID:      id.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/teacher/students
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.Students == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Student directory not configured")
		return
	}

	students, err := s.deps.Students.ListByTeacher(r.Context(), id.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]userResponse, 0, len(students))
	for _, st := range students {
		out = append(out, toUserResponse(st))
	}

	writeJSON(w, http.StatusOK, out)
}

// handleGetStudentSummary handles GET /api/v1/teacher/students/{id}
func (s *Server) handleGetStudentSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.GetStudentSummary == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Student summary not configured")
		return
	}

	summary, err := s.deps.GetStudentSummary.Handle(r.Context(), query.GetStudentSummaryQuery{
		TeacherID:      id.UserID,
		StudentID:      r.PathValue("id"),
		RecentSessions: getQueryParamInt(r, "recent_sessions", 10),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type addNoteRequest struct {
	TaskID  string `json:"task_id"`
	Content string `json:"content" validate:"required"`
}

// handleAddNote handles POST /api/v1/teacher/students/{id}/notes
func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.AddNote == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Notes not configured")
		return
	}

	var req addNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	n, err := s.deps.AddNote.Handle(r.Context(), command.AddNoteCommand{
		TeacherID: id.UserID,
		StudentID: r.PathValue("id"),
		TaskID:    req.TaskID,
		Content:   req.Content,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, n)
}

// handleAssignTask handles POST /api/v1/teacher/students/{id}/tasks
func (s *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.CreateTask == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Task creation not configured")
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	t, err := s.deps.CreateTask.Handle(r.Context(), command.CreateTaskCommand{
		UserID:           r.PathValue("id"),
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		EstimatedMinutes: req.EstimatedMinutes,
		RehearsalID:      req.RehearsalID,
		AssignedBy:       id.UserID,
		DueDate:          req.DueDate,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

// handleListNotes handles GET /api/v1/me/notes
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.ListNotes == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Notes not configured")
		return
	}

	result, err := s.deps.ListNotes.Handle(r.Context(), query.ListNotesQuery{
		StudentID:  id.UserID,
		UnreadOnly: getQueryParam(r, "unread", "") == "true",
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMarkNoteRead handles POST /api/v1/me/notes/{id}/read
func (s *Server) handleMarkNoteRead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.MarkNoteRead == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Notes not configured")
		return
	}

	n, err := s.deps.MarkNoteRead.Handle(r.Context(), command.MarkNoteReadCommand{
		StudentID: id.UserID,
		NoteID:    r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// handleGetFeatures handles GET /api/v1/me/features
//
// Returns every feature flag evaluated for the calling account, so clients
// can hide surfaces that are not rolled out to this user yet.
func (s *Server) handleGetFeatures(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if s.deps.Features == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Feature flags not configured")
		return
	}

	fctx := &config.FeatureContext{
		UserID:    id.UserID,
		IsTeacher: id.Role == "teacher",
	}
	enabled := make(map[string]bool)
	for name := range s.deps.Features.GetAllFeatures() {
		enabled[name] = s.deps.Features.IsEnabled(name, fctx)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"features": enabled})
}

// handleListRehearsals handles GET /api/v1/ensembles/{id}/rehearsals
func (s *Server) handleListRehearsals(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identity(w, r); !ok {
		return
	}
	if s.deps.Rehearsals == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rehearsals not configured")
		return
	}

	rehearsals, err := s.deps.Rehearsals.ListRehearsals(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rehearsals)
}
