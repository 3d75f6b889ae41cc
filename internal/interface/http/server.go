// Package http implements the REST API for Practice Hub. It exposes the
// practice, task, ensemble, challenge, and teacher operations over JSON
// endpoints, plus health probes for orchestration.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/practicebeats/practice-hub/config"
	"github.com/practicebeats/practice-hub/internal/application/command"
	"github.com/practicebeats/practice-hub/internal/application/query"
	"github.com/practicebeats/practice-hub/internal/domain/ensemble"
	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/internal/interface/http/handlers"
	"github.com/practicebeats/practice-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config controls the listener and the server-wide middleware.
type Config struct {
	// Host is the bind address.
	Host string

	// Port is the listen port.
	Port int

	// ReadTimeout bounds reading the full request.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration

	// IdleTimeout bounds how long keep-alive connections sit idle.
	IdleTimeout time.Duration

	// MaxHeaderBytes caps request header size.
	MaxHeaderBytes int

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64

	// EnableCORS turns on CORS headers.
	EnableCORS bool

	// AllowedOrigins lists origins CORS accepts. "*" matches any.
	AllowedOrigins []string

	// EnableMetrics exposes the /metrics endpoint.
	EnableMetrics bool

	// RateLimitPerMinute is the per-IP request budget. Zero disables
	// rate limiting.
	RateLimitPerMinute int
}

// DefaultConfig returns settings suitable for local development.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		EnableMetrics:      true,
		RateLimitPerMinute: 100,
	}
}

// Address returns the host:port string the server binds to.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// StudentDirectory lists the students linked to a teacher. Satisfied by
// user.Repository.
type StudentDirectory interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]*user.User, error)
}

// RehearsalDirectory lists an ensemble's scheduled rehearsals. Satisfied by
// ensemble.Repository.
type RehearsalDirectory interface {
	ListRehearsals(ctx context.Context, ensembleID string) ([]*ensemble.Rehearsal, error)
}

// Dependencies carries everything the route handlers call into. A nil
// handler turns its routes into 501 responses, which keeps partial
// deployments and handler tests honest.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	RegisterUser         *command.RegisterUserHandler
	Authenticate         *command.AuthenticateHandler
	LogSession           *command.LogSessionHandler
	UpdateSessionRatings *command.UpdateSessionRatingsHandler
	DeleteSession        *command.DeleteSessionHandler
	CreateTask           *command.CreateTaskHandler
	UpdateTask           *command.UpdateTaskHandler
	MarkTaskReady        *command.MarkTaskReadyHandler
	DeleteTask           *command.DeleteTaskHandler
	CreateEnsemble       *command.CreateEnsembleHandler
	JoinEnsemble         *command.JoinEnsembleHandler
	ScheduleRehearsal    *command.ScheduleRehearsalHandler
	UpdateRehearsal      *command.UpdateRehearsalHandler
	CancelRehearsal      *command.CancelRehearsalHandler
	CreateChallenge      *command.CreateChallengeHandler
	CompleteChallenge    *command.CompleteChallengeHandler
	LinkTeacher          *command.LinkTeacherHandler
	SetPracticeSharing   *command.SetPracticeSharingHandler
	AddNote              *command.AddNoteHandler
	MarkNoteRead         *command.MarkNoteReadHandler

	// Query Handlers (CQRS Read Side)
	GetWeeklyLeaderboard *query.GetWeeklyLeaderboardHandler
	GetUserStats         *query.GetUserStatsHandler
	GetPracticeLog       *query.GetPracticeLogHandler
	ListTasks            *query.ListTasksHandler
	GetChallengeProgress *query.GetChallengeProgressHandler
	GetStudentSummary    *query.GetStudentSummaryHandler
	ListNotes            *query.ListNotesHandler

	// Students resolves a teacher's linked students.
	Students StudentDirectory

	// Rehearsals resolves an ensemble's rehearsal schedule.
	Rehearsals RehearsalDirectory

	// Tokens issues and verifies access tokens.
	Tokens *handlers.TokenManager

	// Features evaluates feature flags per account.
	Features *config.FeatureFlags

	// Logger receives request and lifecycle logs. Defaults to
	// logger.Default when nil.
	Logger *logger.Logger

	// HealthChecker backs the /health endpoint.
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server owns the listener, routing table, and middleware chain.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	logger     *logger.Logger

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer wires routes and middleware; it does not start listening.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}

	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.buildMiddlewareChain(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes registers every endpoint on the mux. Method-prefixed
// patterns let the mux reject wrong-method requests with 405 for us.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)
	s.router.HandleFunc("GET /", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Authentication
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Practice Sessions
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/sessions", s.authed(s.handleLogSession))
	s.router.HandleFunc("GET /api/v1/sessions", s.authed(s.handleGetPracticeLog))
	s.router.HandleFunc("PATCH /api/v1/sessions/{id}", s.authed(s.handleUpdateSession))
	s.router.HandleFunc("DELETE /api/v1/sessions/{id}", s.authed(s.handleDeleteSession))

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Practice Tasks
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/tasks", s.authed(s.handleCreateTask))
	s.router.HandleFunc("GET /api/v1/tasks", s.authed(s.handleListTasks))
	s.router.HandleFunc("PATCH /api/v1/tasks/{id}", s.authed(s.handleUpdateTask))
	s.router.HandleFunc("POST /api/v1/tasks/{id}/ready", s.authed(s.handleMarkTaskReady))
	s.router.HandleFunc("DELETE /api/v1/tasks/{id}", s.authed(s.handleDeleteTask))

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Current User
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/me/stats", s.authed(s.handleGetStats))
	s.router.HandleFunc("PUT /api/v1/me/sharing", s.authed(s.handleSetSharing))
	s.router.HandleFunc("POST /api/v1/me/teacher", s.authed(s.handleLinkTeacher))
	s.router.HandleFunc("GET /api/v1/me/notes", s.authed(s.handleListNotes))
	s.router.HandleFunc("POST /api/v1/me/notes/{id}/read", s.authed(s.handleMarkNoteRead))
	s.router.HandleFunc("GET /api/v1/me/features", s.authed(s.handleGetFeatures))

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Ensembles
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/ensembles", s.authed(s.handleCreateEnsemble))
	s.router.HandleFunc("POST /api/v1/ensembles/join", s.authed(s.handleJoinEnsemble))
	s.router.HandleFunc("GET /api/v1/ensembles/{id}/leaderboard", s.authed(s.handleGetLeaderboard))
	s.router.HandleFunc("GET /api/v1/ensembles/{id}/rehearsals", s.authed(s.handleListRehearsals))
	s.router.HandleFunc("POST /api/v1/ensembles/{id}/rehearsals", s.authed(s.handleScheduleRehearsal))
	s.router.HandleFunc("PATCH /api/v1/rehearsals/{id}", s.authed(s.handleUpdateRehearsal))
	s.router.HandleFunc("DELETE /api/v1/rehearsals/{id}", s.authed(s.handleCancelRehearsal))
	s.router.HandleFunc("POST /api/v1/ensembles/{id}/challenges", s.authed(s.handleCreateChallenge))

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Challenges
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/challenges/{id}/progress", s.authed(s.handleGetChallengeProgress))
	s.router.HandleFunc("POST /api/v1/challenges/{id}/complete", s.authed(s.handleCompleteChallenge))

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Teacher
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/teacher/students", s.authed(s.handleListStudents))
	s.router.HandleFunc("GET /api/v1/teacher/students/{id}", s.authed(s.handleGetStudentSummary))
	s.router.HandleFunc("POST /api/v1/teacher/students/{id}/notes", s.authed(s.handleAddNote))
	s.router.HandleFunc("POST /api/v1/teacher/students/{id}/tasks", s.authed(s.handleAssignTask))

	// ─────────────────────────────────────────────────────────────────────────
	// Metrics (if enabled)
	// ─────────────────────────────────────────────────────────────────────────
	if s.config.EnableMetrics {
		s.router.HandleFunc("GET /metrics", s.handleMetrics)
	}
}

// authed wraps a handler with bearer token authentication.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Tokens == nil {
			writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Authentication not configured")
			return
		}

		token, err := handlers.BearerToken(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Bearer token is required")
			return
		}

		claims, err := s.deps.Tokens.Verify(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		ctx := handlers.WithIdentity(r.Context(), handlers.Identity{
			UserID: claims.Subject,
			Role:   claims.Role,
		})
		next(w, r.WithContext(ctx))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router with the server-wide middleware.
// The first entry sees the request first.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{}

	if s.rateLimiter != nil {
		chain = append(chain, s.rateLimitMiddleware)
	}
	if s.config.EnableCORS {
		chain = append(chain, s.corsMiddleware)
	}
	// Request IDs are assigned before logging so every log line carries
	// one. Recovery sits inside logging so a recovered panic is logged as
	// a 500 response rather than not at all.
	chain = append(chain,
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		handlers.SecurityHeadersMiddleware,
	)
	if s.config.MaxBodyBytes > 0 {
		chain = append(chain, handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	}

	h := handler
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// requestIDMiddleware tags each request with an ID, honoring one supplied
// by an upstream proxy.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware writes one structured line per completed request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Int64("duration_ms", duration.Milliseconds()),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

// recoveryMiddleware turns a handler panic into a logged 500 instead of
// a dropped connection.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(stack)),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware answers preflight requests and stamps CORS headers on
// responses to allowed origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware rejects callers whose token bucket has drained.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)

		if !s.rateLimiter.Allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start runs the listener and blocks until Shutdown or a listener error.
// A clean shutdown returns nil.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether Start has been called and Shutdown has not.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime reports how long the server has been running, zero when stopped.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the host:port the listener binds to.
func (s *Server) Address() string {
	return s.config.Address()
}

// Handler returns the fully wrapped HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope every endpoint answers with, success and
// error alike.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code alongside the human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta annotates responses with timing and pagination hints.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
	HasMore    bool      `json:"has_more,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, resp JSONResponse) {
	resp.Success = status >= 200 && status < 300
	resp.Meta = &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a success envelope around data.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, JSONResponse{Data: data})
}

// writeJSONError writes an error envelope.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSONErrorWithDetails(w, status, code, message, "")
}

// writeJSONErrorWithDetails writes an error envelope carrying extra detail,
// typically validation output.
func writeJSONErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeEnvelope(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter remembers the status code for the request log.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP resolves the caller's address, preferring proxy headers over
// the socket peer.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop in the chain is the original client.
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// getRequestID extracts the request ID from context.
func getRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// getQueryParam reads a query parameter, falling back when absent.
func getQueryParam(r *http.Request, key, defaultValue string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}

// getQueryParamInt reads an integer query parameter, falling back when
// absent or malformed.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// getQueryParamTime extracts an RFC 3339 query parameter; zero when absent
// or malformed.
func getQueryParamTime(r *http.Request, key string) time.Time {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter is a per-key token bucket. Each key starts with a full
// bucket of `burst` tokens that refills continuously at `rate` tokens per
// second; a request spends one token.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(perWindow int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		buckets: make(map[string]*bucket),
		rate:    float64(perWindow) / window.Seconds(),
		burst:   float64(perWindow),
	}
	go rl.evictIdle(2 * window)
	return rl
}

func (rl *rateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, last: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictIdle drops buckets whose keys have gone quiet so the map does not
// grow with every IP ever seen.
func (rl *rateLimiter) evictIdle(maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-maxIdle)
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if b.last.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
