// Package httpapi exposes a Router's history, statistics and debug
// operations over HTTP.
//
// Routes are relative to where the handler is mounted; the daemon mounts
// them under /api so the full paths are /api/events, /api/events/health and
// so on.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
)

// API serves the /events endpoints for a router. A nil router is allowed;
// every endpoint then answers 503.
type API struct {
	router *eventrouter.Router
	logger *slog.Logger
	now    func() time.Time
}

// New creates the API for router.
func New(router *eventrouter.Router, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{router: router, logger: logger, now: time.Now}
}

// Routes returns a handler with every endpoint registered under /events.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	a.Mount(r)
	return r
}

// Mount registers the endpoints on r under /events.
func (a *API) Mount(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Use(a.logRequests)
		r.Use(a.requireRouter)

		r.Get("/", a.handleHistory)
		r.Get("/counters", a.handleStats)
		r.Get("/stats", a.handleStats)
		r.Get("/types", a.handleTypes)
		r.Get("/health", a.handleHealth)
		r.Get("/modules/{moduleName}", a.handleModule)
		r.Get("/queue", a.handleQueue)
		r.Get("/failures", a.handleFailures)
		r.Post("/emit", a.handleEmit)
		r.Post("/reset-stats", a.handleResetStats)
		r.Delete("/history", a.handleClearHistory)
	})
}

// envelope wraps every response body.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (a *API) writeData(w http.ResponseWriter, data any) {
	a.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, envelope{Success: false, Error: msg})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

func (a *API) requireRouter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if a.router == nil {
			a.writeError(w, http.StatusServiceUnavailable, "Event system not available")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		a.logger.Debug("events api request",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", middleware.GetReqID(req.Context())),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
