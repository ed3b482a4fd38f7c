package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dip11/medic-media-coding-test-backend/internal/repository"
	"github.com/Dip11/medic-media-coding-test-backend/internal/service/auth"
	"github.com/Dip11/medic-media-coding-test-backend/internal/service/task"
	"github.com/Dip11/medic-media-coding-test-backend/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	tasks    task.Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitUserRead  = 120
	rateLimitUserWrite = 60
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, taskSvc task.Service, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		auth:   authSvc,
		tasks:  taskSvc,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/users/register", r.audit("/api/users/register", r.withRateLimit("/api/users/register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/api/auth/login", r.audit("/api/auth/login", r.withRateLimit("/api/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/api/auth/profile", r.audit("/api/auth/profile", r.handlerAuthRate("/api/auth/profile", rateLimitUserRead, rateWindowDefault, r.handleProfile)))
	r.mux.HandleFunc("/api/tasks", r.audit("/api/tasks", r.handlerAuthRate("/api/tasks", rateLimitUserWrite, rateWindowDefault, r.handleTasks)))
	r.mux.HandleFunc("/api/tasks/", r.audit("/api/tasks/{id}", r.handlerAuthRate("/api/tasks/{id}", rateLimitUserWrite, rateWindowDefault, r.handleTaskByID)))
	r.mux.HandleFunc("/ws/tasks", r.audit("/ws/tasks", r.handlerAuthRate("/ws/tasks", rateLimitWebsocket, rateWindowRealtime, r.handleTasksWS)))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := r.auth.Register(req.Context(), auth.RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email is already registered")
			return
		}
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		// Unknown email and wrong password answer identically so the endpoint
		// cannot be used to probe which emails are registered.
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusNotFound, "invalid email or password")
			return
		}
		r.internalError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	user, ok := userFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for profile", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (r *Router) handleTasks(w http.ResponseWriter, req *http.Request) {
	user, ok := userFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for tasks", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		sort, err := repository.ParseTaskSort(req.URL.Query().Get("sortBy"), req.URL.Query().Get("sortDir"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unsupported sort field or direction")
			return
		}
		tasks, err := r.tasks.List(req.Context(), user.ID, sort)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": tasks})
	case http.MethodPost:
		input, ok := r.decodeTaskInput(w, req)
		if !ok {
			return
		}
		created, err := r.tasks.Create(req.Context(), user.ID, input)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTaskByID(w http.ResponseWriter, req *http.Request) {
	user, ok := userFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for task mutation", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	trimmed := strings.TrimPrefix(req.URL.Path, "/api/tasks/")
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		r.notFound(w)
		return
	}
	switch req.Method {
	case http.MethodPut:
		input, ok := r.decodeTaskInput(w, req)
		if !ok {
			return
		}
		updated, err := r.tasks.Update(req.Context(), user.ID, id, input)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		deleted, err := r.tasks.Delete(req.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)
	default:
		r.methodNotAllowed(w)
	}
}

// decodeTaskInput parses the shared create/update body. The due date accepts a
// date-only value or a full RFC 3339 timestamp; absence defaults downstream.
func (r *Router) decodeTaskInput(w http.ResponseWriter, req *http.Request) (task.Input, bool) {
	var payload struct {
		Title   string  `json:"title"`
		Detail  *string `json:"detail"`
		DueDate string  `json:"dueDate"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return task.Input{}, false
	}
	input := task.Input{Title: payload.Title, Detail: payload.Detail}
	if raw := strings.TrimSpace(payload.DueDate); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, raw)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dueDate format")
			return task.Input{}, false
		}
		input.DueDate = parsed
	}
	return input, true
}

func (r *Router) handleTasksWS(w http.ResponseWriter, req *http.Request) {
	user, ok := userFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for task websocket", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(user.ID, client)
	go func() {
		defer func() {
			r.hub.Unregister(user.ID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// writeServiceError maps input validation failures to 400 and everything else
// to a generic 500. Storage error detail is logged, never returned.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidSort):
		writeError(w, http.StatusBadRequest, "unsupported sort field or direction")
	case errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, task.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		r.internalError(w, req, err)
	}
}

func (r *Router) internalError(w http.ResponseWriter, req *http.Request, err error) {
	r.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// audit wraps a handler with request logging and metrics. The route label is
// the registered pattern, not the concrete path, to keep metric cardinality
// bounded.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		reqID := requestID(recorder, req)
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if user, ok := userFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", user.ID)
		}
		fields = append(fields, "actor", actor)

		r.recordRequestMetrics(req.Method, route, status, duration)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
