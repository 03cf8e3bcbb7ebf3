package httpx

import (
	"bufio"
	"context"
	"crypto/subtle"
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

	"github.com/atlixcomx/mascotas-sub001/internal/repository"
	"github.com/atlixcomx/mascotas-sub001/internal/service/activity"
	"github.com/atlixcomx/mascotas-sub001/internal/service/auth"
	metricsvc "github.com/atlixcomx/mascotas-sub001/internal/service/metrics"
	"github.com/atlixcomx/mascotas-sub001/internal/service/reminder"
	"github.com/atlixcomx/mascotas-sub001/internal/stream"
	"github.com/atlixcomx/mascotas-sub001/pkg/config"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	auth       auth.Service
	hub        *stream.Hub
	metrics    *metricsvc.Service
	activity   *activity.Service
	engine     *reminder.Engine
	dispatcher *reminder.Dispatcher
	upgrader   websocket.Upgrader
	limiter    RateLimiter
	cronToken  string
	dbHealth   func(context.Context) error

	heartbeatInterval time.Duration
	metricsInterval   time.Duration

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	streamConnections  prometheus.GaugeFunc
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitLogin     = 12
	rateLimitUserRead  = 120
	rateLimitAdmin     = 60
	rateLimitStream    = 30
	rateLimitCron      = 6
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, cfg config.APIConfig, authSvc auth.Service, hub *stream.Hub,
	metricsSvc *metricsvc.Service, activitySvc *activity.Service, engine *reminder.Engine,
	dispatcher *reminder.Dispatcher, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		logger:     logger,
		auth:       authSvc,
		hub:        hub,
		metrics:    metricsSvc,
		activity:   activitySvc,
		engine:     engine,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:           limiter,
		cronToken:         strings.TrimSpace(cfg.CronAuthToken),
		dbHealth:          dbHealth,
		heartbeatInterval: cfg.HeartbeatInterval,
		metricsInterval:   cfg.MetricsRefreshInterval,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.heartbeatInterval <= 0 {
		r.heartbeatInterval = 15 * time.Second
	}
	if r.metricsInterval <= 0 {
		r.metricsInterval = 30 * time.Second
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
	r.mux.HandleFunc("/healthz", r.audit("healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/auth/login", r.audit("login", r.withRateLimit("login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/events", r.audit("events", r.requireAdmin(r.withRateLimit("events", rateLimitStream, rateWindowRealtime, r.rateLimitKeyUser, r.handleEventStream))))
	r.mux.HandleFunc("/ws/events", r.audit("ws_events", r.requireAdmin(r.withRateLimit("ws_events", rateLimitStream, rateWindowRealtime, r.rateLimitKeyUser, r.handleEventStreamWS))))
	r.mux.HandleFunc("/activity", r.audit("activity", r.handlerAuthRate("activity", rateLimitUserRead, rateWindowDefault, r.handleActivity)))
	r.mux.HandleFunc("/dashboard/metrics", r.audit("dashboard_metrics", r.handlerAuthRate("dashboard_metrics", rateLimitUserRead, rateWindowDefault, r.handleDashboardMetrics)))
	r.mux.HandleFunc("/reminders", r.audit("reminders", r.requireAdmin(r.withRateLimit("reminders", rateLimitAdmin, rateWindowDefault, r.rateLimitKeyUser, r.handleReminders))))
	r.mux.HandleFunc("/reminders/stats", r.audit("reminder_stats", r.requireAdmin(r.withRateLimit("reminder_stats", rateLimitAdmin, rateWindowDefault, r.rateLimitKeyUser, r.handleReminderStats))))
	r.mux.HandleFunc("/reminders/send", r.audit("reminder_send", r.requireAdmin(r.withRateLimit("reminder_send", rateLimitAdmin, rateWindowDefault, r.rateLimitKeyUser, r.handleReminderSend))))
	r.mux.HandleFunc("/cron/reminders", r.audit("cron_reminders", r.withRateLimit("cron_reminders", rateLimitCron, rateWindowDefault, rateLimitKeyIP, r.handleCronReminders)))
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
	user, tokens, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
		"tokens": tokens,
	})
}

func (r *Router) handleActivity(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": r.activity.Recent(limit)})
}

func (r *Router) handleDashboardMetrics(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	snapshot, err := r.metrics.Build(req.Context())
	if err != nil {
		r.logger.Error("metrics snapshot failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "metrics temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (r *Router) handleReminders(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	now := time.Now().UTC()
	items, err := r.engine.Scan(req.Context(), now)
	if err != nil {
		r.reminderScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": now.Format(time.RFC3339Nano),
		"items":        items,
		"stats":        reminder.Stats(items),
	})
}

func (r *Router) handleReminderStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	now := time.Now().UTC()
	items, err := r.engine.Scan(req.Context(), now)
	if err != nil {
		r.reminderScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder.Stats(items))
}

func (r *Router) handleReminderSend(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	actor := "operator"
	if info, ok := authInfoFromContext(req.Context()); ok {
		actor = info.Name
	}
	r.runReminderDispatch(w, req, actor)
}

func (r *Router) handleCronReminders(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if !r.verifyCronToken(w, req) {
		return
	}
	r.runReminderDispatch(w, req, "cron")
}

func (r *Router) runReminderDispatch(w http.ResponseWriter, req *http.Request, actor string) {
	now := time.Now().UTC()
	items, err := r.engine.Scan(req.Context(), now)
	if err != nil {
		r.reminderScanError(w, err)
		return
	}
	result := r.dispatcher.Dispatch(req.Context(), items)
	if r.activity != nil && result.Broadcasts > 0 {
		r.activity.Record("recordatorios",
			"Se emitieron "+strconv.Itoa(result.Broadcasts)+" recordatorios de solicitudes atrasadas",
			actor, map[string]any{"urgent": result.Urgent, "normal": result.Normal, "email_sent": result.EmailSent})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": now.Format(time.RFC3339Nano),
		"stats":        reminder.Stats(items),
		"result":       result,
	})
}

func (r *Router) reminderScanError(w http.ResponseWriter, err error) {
	r.logger.Error("reminder scan failed", "error", err)
	if errors.Is(err, repository.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "data store unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "reminder scan failed")
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
	components["stream"] = map[string]any{"connections": r.hub.Len()}
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

// verifyCronToken gates the scheduled trigger with a shared-secret bearer
// token instead of session identity.
func (r *Router) verifyCronToken(w http.ResponseWriter, req *http.Request) bool {
	if r.cronToken == "" {
		r.logger.Error("cron token not configured", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "cron authentication misconfigured")
		return false
	}
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "cron token required")
		return false
	}
	if len(token) != len(r.cronToken) || subtle.ConstantTimeCompare([]byte(token), []byte(r.cronToken)) != 1 {
		r.logger.Warn("cron token mismatch", "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "invalid cron token")
		return false
	}
	return true
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
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
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID, "role", info.Role)
		} else if strings.HasPrefix(req.URL.Path, "/cron/") {
			actor = "cron"
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

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
