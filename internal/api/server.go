package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/khanhnv2901/domaindiag/internal/api/middleware"
	"github.com/khanhnv2901/domaindiag/internal/report"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// BatchRequest is the body of POST /api/v1/reports.
type BatchRequest struct {
	Domains []string `json:"domains"`
}

type Config struct {
	Builder report.ReportBuilder
	// Concurrency caps in-flight domains of one batch request (0 = all).
	Concurrency int
	// MaxBatch bounds the unique domains of one batch request.
	MaxBatch  int
	AuthToken string
	Logger    *zap.Logger
	RateLimit int // requests per second per IP (0 = disabled)
	RateBurst int
	// TrustProxy keys rate limiting on the first X-Forwarded-For hop.
	// Leave it off unless a reverse proxy overwrites that header.
	TrustProxy bool
	Version    string
}

type Server struct {
	cfg     Config
	router  *mux.Router
	limiter *middleware.RateLimiter
	handler http.Handler
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = consts.DefaultMaxAPIBatch
	}

	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		limiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger),
	}
	s.limiter.TrustForwarded = cfg.TrustProxy
	s.routes()

	// RequestID -> Logging -> RateLimit -> Auth -> router
	s.handler = middleware.RequestID(
		middleware.Logging(cfg.Logger)(
			s.limiter.Middleware(
				middleware.Auth(cfg.AuthToken)(s.router))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases the rate limiter's background sweeper.
func (s *Server) Close() {
	s.limiter.Close()
}

func (s *Server) routes() {
	// Routes live on the root router so a path match with the wrong method
	// reaches MethodNotAllowedHandler instead of falling through to 404.
	s.router.HandleFunc(apiPrefix+"/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/reports/{domain}", s.handleReport).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/reports", s.handleBatch).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.cfg.Version != "" {
		body["version"] = s.cfg.Version
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Builder == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("report builder not configured"))
		return
	}
	domain := strings.TrimSpace(mux.Vars(r)["domain"])
	if domain == "" {
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrEmptyDomain)
		return
	}

	writeJSON(w, http.StatusOK, s.cfg.Builder.Build(r.Context(), domain))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Builder == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("report builder not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, consts.APIBodyLimitBytes)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	domains := report.UniqueDomains(req.Domains)
	switch {
	case len(domains) == 0:
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrNoDomains)
		return
	case len(domains) > s.cfg.MaxBatch:
		s.writeError(w, r, http.StatusBadRequest,
			fmt.Errorf("%w: %d > %d", sharedErrors.ErrTooManyDomains, len(domains), s.cfg.MaxBatch))
		return
	}

	batch := report.Batch{Builder: s.cfg.Builder, Concurrency: s.cfg.Concurrency}
	writeJSON(w, http.StatusOK, batch.Run(r.Context(), domains))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the server log.
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
