package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/obras/internal/metrics"
	"github.com/vbonduro/obras/internal/photostore"
	"github.com/vbonduro/obras/internal/service"
)

type Server struct {
	service    *service.SiteService
	photoStore photostore.PhotoStore
	metrics    *metrics.Metrics
	mux        *http.ServeMux
	logger     *slog.Logger
}

func NewServer(svc *service.SiteService, ps photostore.PhotoStore, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		service:    svc,
		photoStore: ps,
		metrics:    m,
		mux:        http.NewServeMux(),
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /sites", s.handleListSites)
	s.mux.HandleFunc("POST /sites", s.handleCreateSite)
	s.mux.HandleFunc("GET /sites/{id}", s.handleGetSite)
	s.mux.HandleFunc("PUT /sites/{id}", s.handleUpdateSite)
	s.mux.HandleFunc("DELETE /sites/{id}", s.handleDeleteSite)
	s.mux.HandleFunc("GET /sites/{id}/inspections", s.handleListInspections)
	s.mux.HandleFunc("POST /sites/{id}/inspections", s.handleCreateInspection)
	s.mux.HandleFunc("GET /inspections/{id}", s.handleGetInspection)
	s.mux.HandleFunc("PUT /inspections/{id}", s.handleUpdateInspection)
	s.mux.HandleFunc("DELETE /inspections/{id}", s.handleDeleteInspection)
	s.mux.HandleFunc("POST /photos", s.handleUploadPhoto)
	s.mux.HandleFunc("GET /photos/{key}", s.handleGetPhoto)
	s.mux.HandleFunc("POST /sites/{id}/report", s.handleSiteReport)
	s.mux.HandleFunc("POST /inspections/{id}/report", s.handleInspectionReport)
	s.mux.HandleFunc("GET /sites/{id}/export", s.handleExportSite)
	s.mux.HandleFunc("GET /export", s.handleExportAll)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// securityHeaders sets browser hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// The mux fills in r.Pattern while routing; unmatched requests keep
		// a fixed label so the route dimension stays bounded.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(r.Method, route, rec.status)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for addr with the timeouts the API runs
// with. Callers own its lifecycle.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	return s.HTTPServer(addr).ListenAndServe()
}
