package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"linkdoctor/internal/environment"
	"linkdoctor/internal/metrics"
	"linkdoctor/internal/models"
	"linkdoctor/internal/session"
)

// Session is the part of the orchestrator the API drives.
type Session interface {
	Start() error
	StartAfter() error
	SetProbing(enabled bool)
	SetABMode(enabled bool)
	Snapshot() session.Snapshot
	Subscribe() (<-chan struct{}, func())
}

// Environment accepts device signals pushed by clients.
type Environment interface {
	Apply(u environment.Update)
	Snapshot() models.Environment
}

// Options configures the HTTP API.
type Options struct {
	Addr string
	// ScanRatePerMinute limits POST /api/scan. Zero disables the limit.
	ScanRatePerMinute int
	Endpoints         []models.Endpoint
	Metrics           *metrics.Metrics
	Logger            *zap.Logger
}

// Server wraps HTTP serving of the diagnostic API.
type Server struct {
	httpServer *http.Server
	session    Session
	env        Environment
	endpoints  []models.Endpoint
	metrics    *metrics.Metrics
	limiter    *rate.Limiter
	logger     *zap.Logger

	closeOnce sync.Once
	closing   chan struct{}
}

// New creates a configured HTTP server for the session.
func New(sess Session, env Environment, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		session:   sess,
		env:       env,
		endpoints: opts.Endpoints,
		metrics:   opts.Metrics,
		logger:    logger,
		closing:   make(chan struct{}),
	}
	if opts.ScanRatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.ScanRatePerMinute)), 1)
	}
	s.registerRoutes(mux)
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           loggingMiddleware(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down. Live connections are hijacked,
// so they are told to close separately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/session/ws", s.handleSessionWS)
	mux.HandleFunc("POST /api/scan", s.handleStart)
	mux.HandleFunc("POST /api/scan/after", s.handleStartAfter)
	mux.HandleFunc("PUT /api/settings", s.handleSettings)
	mux.HandleFunc("GET /api/environment", s.handleEnvironment)
	mux.HandleFunc("PUT /api/environment", s.handleEnvironmentUpdate)
	mux.HandleFunc("GET /api/endpoints", s.handleEndpoints)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleStart spends a rate-limit token only when a scan actually starts.
func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	if s.limiter == nil {
		s.transition(w, s.session.Start)
		return
	}
	reservation := s.limiter.Reserve()
	if !reservation.OK() || reservation.Delay() > 0 {
		reservation.Cancel()
		writeError(w, http.StatusTooManyRequests, "scan rate limit exceeded")
		return
	}
	s.transition(w, func() error {
		err := s.session.Start()
		if err != nil {
			reservation.Cancel()
		}
		return err
	})
}

func (s *Server) handleStartAfter(w http.ResponseWriter, _ *http.Request) {
	s.transition(w, s.session.StartAfter)
}

func (s *Server) transition(w http.ResponseWriter, fn func() error) {
	if err := fn(); err != nil {
		if errors.Is(err, session.ErrScanInFlight) || errors.Is(err, session.ErrIllegalTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, s.session.Snapshot())
}

type settingsRequest struct {
	ProbingEnabled *bool `json:"probing_enabled"`
	ABEnabled      *bool `json:"ab_enabled"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProbingEnabled != nil {
		s.session.SetProbing(*req.ProbingEnabled)
	}
	if req.ABEnabled != nil {
		s.session.SetABMode(*req.ABEnabled)
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleEnvironment(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.env.Snapshot())
}

func (s *Server) handleEnvironmentUpdate(w http.ResponseWriter, r *http.Request) {
	var req environment.Update
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BusyMs != nil && *req.BusyMs < 0 {
		writeError(w, http.StatusBadRequest, "busy_ms must not be negative")
		return
	}
	s.env.Apply(req)
	writeJSON(w, http.StatusOK, s.env.Snapshot())
}

type endpointsResponse struct {
	Endpoints    []models.Endpoint              `json:"endpoints"`
	Reachability []metrics.EndpointReachability `json:"reachability"`
}

func (s *Server) handleEndpoints(w http.ResponseWriter, _ *http.Request) {
	view := s.session.Snapshot().Session
	writeJSON(w, http.StatusOK, endpointsResponse{
		Endpoints:    s.endpoints,
		Reachability: metrics.ComputeReachability(s.endpoints, []*models.ScanResult{view.Baseline, view.After}),
	})
}

func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
