package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/abrezinsky/cartepays/internal/metrics"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// countRequests records every response by method and status
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	})
}

// corsHandler lets embedding hosts call the public API and the admin API
// with a bearer token
func (h *Handlers) corsHandler() func(http.Handler) http.Handler {
	origins := h.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(countRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(h.corsHandler())
	r.Use(middleware.Timeout(60 * time.Second))

	// Static files (served from embedded filesystem)
	if h.staticServer != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
	}

	// Map page and its renderings
	r.Get("/", h.handleIndex)
	r.Get("/carte.svg", h.handleMapSVG)
	r.Get("/api/carte", h.handleGetMap)
	r.Get("/api/tiers", h.handleGetTiers)

	// Sharing
	r.Get("/api/share", h.handleGetShareLink)
	r.Get("/api/share/qr", h.handleGetShareQR)

	// WebSocket
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	// Operations
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// Auth routes (public)
	r.Get("/admin/login", h.handleLoginPage)
	r.Post("/admin/login", h.handleLogin)
	r.Post("/admin/logout", h.handleLogout)
	r.Post("/api/admin/login", h.handleAPILogin)

	// Admin pages (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuth)
		r.Get("/admin", h.handleAdminPage)
	})

	// Admin API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)

		r.Get("/api/admin/tiers", h.handleGetTiers)
		r.Put("/api/admin/tiers", h.handleUpdateTiers)
		r.Post("/api/admin/geometry/refresh", h.handleRefreshGeometry)

		r.Get("/api/admin/settings", h.handleGetSettings)
		r.Put("/api/admin/settings", h.handleUpdateSettings)
		r.Post("/api/admin/settings", h.handleUpdateSettings)
	})

	return r
}
