package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/infrastructure/logging"
)

// JobService is the backend the API exposes
type JobService interface {
	repositories.JobUpdateService
	repositories.ShopFloorService
}

// Server serves the job API over HTTP
type Server struct {
	jobs     JobService
	registry *entities.Registry
	ladder   *entities.PriorityLadder
	hub      http.Handler
	logger   *zap.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithHub mounts a live event stream at /ws
func WithHub(hub http.Handler) ServerOption {
	return func(s *Server) { s.hub = hub }
}

// WithLogger sets the server logger
func WithLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logging.OrNop(logger) }
}

// NewServer creates an API server over jobs
func NewServer(jobs JobService, registry *entities.Registry, ladder *entities.PriorityLadder, opts ...ServerOption) *Server {
	s := &Server{
		jobs:     jobs,
		registry: registry,
		ladder:   ladder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with logging and panic recovery
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/registry", s.handleRegistry)
	mux.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	mux.HandleFunc("POST /api/v1/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("PATCH /api/v1/jobs/{id}", s.handleUpdateJob)
	mux.HandleFunc("PUT /api/v1/jobs/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("PUT /api/v1/jobs/{id}/plan", s.handleAttachPlan)
	mux.HandleFunc("POST /api/v1/jobs/{id}/actions", s.handleTrack)
	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}
	return RecoverMiddleware(s.logger, LoggingMiddleware(s.logger, mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("api shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, dto.NewRegistryView(s.registry, s.ladder))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repositories.JobFilter{
		WorkCenterID: q.Get("workCenterId"),
		LocationID:   q.Get("locationId"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := entities.ParseStatus(raw)
		if err != nil || !s.registry.Has(status) {
			Err(w, fmt.Sprintf("unknown status %q", raw), http.StatusBadRequest)
			return
		}
		filter.Status = status
	}

	jobs, err := s.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []entities.JobSnapshot{}
	}
	JSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, job)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req repositories.CreateJobRequest
	if err := DecodeBody(r, &req); err != nil {
		Err(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	job, err := s.jobs.CreateJob(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	var patch repositories.JobPatch
	if err := DecodeBody(r, &patch); err != nil {
		Err(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	job, err := s.jobs.UpdateJob(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var update repositories.StatusUpdate
	if err := DecodeBody(r, &update); err != nil {
		Err(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	job, err := s.jobs.UpdateStatus(r.Context(), r.PathValue("id"), update)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, job)
}

func (s *Server) handleAttachPlan(w http.ResponseWriter, r *http.Request) {
	var plan entities.RoutingPlan
	if err := DecodeBody(r, &plan); err != nil {
		Err(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	attachment, err := s.jobs.AttachPlan(r.Context(), r.PathValue("id"), plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, attachment)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req repositories.TrackRequest
	if err := DecodeBody(r, &req); err != nil {
		Err(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	job, err := s.jobs.Track(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, job)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	ErrWithCode(w, err.Error(), repositories.ErrorCode(err), code)
}
