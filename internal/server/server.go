// Package server exposes the assignment search as an HTTP API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/copyleftdev/annealloc/internal/assign"
	"github.com/copyleftdev/annealloc/internal/config"
	"github.com/copyleftdev/annealloc/internal/loader"
	"github.com/copyleftdev/annealloc/internal/logging"
	"github.com/copyleftdev/annealloc/internal/metrics"
	"github.com/copyleftdev/annealloc/internal/report"
	"github.com/copyleftdev/annealloc/internal/store"
)

// Logger defines the logging interface used by the server.
// This keeps the server flexible about the logging implementation.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Job tracks one search from request to result. Mutable fields are
// written only by the job's own goroutine and the snapshot observer;
// readers take the values through the accessor methods below.
type Job struct {
	ID        string
	StartTime time.Time

	problem *assign.Problem
	best    *assign.BestCell
	cancel  context.CancelFunc

	mu      sync.Mutex
	status  string
	endTime *time.Time
	trials  int
	result  *assign.SearchResult
	runErr  error
}

func newJob(problem *assign.Problem, cancel context.CancelFunc) *Job {
	return &Job{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		problem:   problem,
		best:      &assign.BestCell{},
		cancel:    cancel,
		status:    StatusPending,
	}
}

func (j *Job) setStatus(status string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	if status == StatusCompleted || status == StatusFailed || status == StatusCancelled {
		now := time.Now()
		j.endTime = &now
	}
}

// Server manages search jobs and serves their status and results.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *metrics.Metrics
	store   *store.Store // nil disables persistence

	jobs *xsync.Map[string, *Job]
}

// NewServer creates a server. The store may be nil, in which case
// finished results are not persisted.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics, st *store.Store) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		store:   st,
		jobs:    xsync.NewMap[string, *Job](),
	}
}

// RegisterRoutes mounts the API under /api/v1.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assignments", s.handleCreate)
		r.Get("/assignments", s.handleList)
		r.Get("/assignments/{id}", s.handleGet)
		r.Get("/assignments/{id}/breakdown", s.handleBreakdown)
		r.Delete("/assignments/{id}", s.handleCancel)
	})
}

// createRequest is the POST /assignments payload: the problem data
// plus optional overrides of the server's default search tunables.
type createRequest struct {
	Seminars []seminarPayload      `json:"seminars"`
	Students []studentPayload      `json:"students"`
	Config   loader.ConfigDocument `json:"config"`
}

type seminarPayload struct {
	ID            string  `json:"id"`
	MinSize       int     `json:"min_size"`
	MaxSize       int     `json:"max_size"`
	Magnification float64 `json:"magnification"`
}

type studentPayload struct {
	ID          int      `json:"id"`
	Preferences []string `json:"preferences"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg, err := req.Config.Apply(s.cfg.SearchDefaults())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	seminars := make([]assign.Seminar, len(req.Seminars))
	for i, sem := range req.Seminars {
		seminars[i] = assign.Seminar{
			ID:            sem.ID,
			MinSize:       sem.MinSize,
			MaxSize:       sem.MaxSize,
			Magnification: sem.Magnification,
		}
	}
	students := make([]assign.Student, len(req.Students))
	for i, st := range req.Students {
		students[i] = assign.Student{ID: st.ID, Preferences: st.Preferences}
	}

	problem, err := assign.NewProblem(seminars, students, cfg)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := newJob(problem, cancel)
	s.jobs.Store(job.ID, job)

	s.metrics.JobsStarted.Inc()
	s.metrics.ActiveJobs.Inc()
	s.logger.Info("Search job accepted", map[string]interface{}{
		"job_id":       job.ID,
		"students":     len(students),
		"seminars":     len(seminars),
		"num_patterns": cfg.NumPatterns,
	})

	go s.runJob(ctx, job)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"id":     job.ID,
		"status": StatusPending,
	})
}

// runJob drives one search to completion on its own goroutine.
func (s *Server) runJob(ctx context.Context, job *Job) {
	job.setStatus(StatusRunning)

	searcher := assign.NewSearcher(job.problem,
		assign.WithBestCell(job.best),
		assign.WithLogger(s.logger),
		assign.WithObserver(func(snap assign.Snapshot) {
			job.mu.Lock()
			delta := snap.Trials - job.trials
			job.trials = snap.Trials
			job.mu.Unlock()

			s.metrics.TrialsCompleted.WithLabelValues(job.ID).Add(float64(delta))
			if snap.Best != nil {
				s.metrics.BestScore.WithLabelValues(job.ID).Set(snap.Best.Score)
			}
		}))

	result, err := searcher.Run(ctx)

	job.mu.Lock()
	job.result = result
	job.runErr = err
	job.mu.Unlock()

	s.metrics.ActiveJobs.Dec()
	s.metrics.JobDuration.Observe(time.Since(job.StartTime).Seconds())

	switch {
	case err != nil:
		job.setStatus(StatusFailed)
		s.logger.Error("Search job failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return
	case result.Diagnostics.Cancelled:
		job.setStatus(StatusCancelled)
	default:
		job.setStatus(StatusCompleted)
	}

	s.metrics.TrialFailures.Add(float64(result.Diagnostics.Failures))
	s.metrics.TrialRetries.Add(float64(result.Diagnostics.Retries))

	fields := map[string]interface{}{
		"job_id": job.ID,
		"trials": result.Trials,
	}
	if result.Best != nil {
		fields["best_score"] = result.Best.Score
	}
	s.logger.Info("Search job finished", fields)

	s.persist(job, result)
}

// persist writes the finished result to the store, if one is wired.
func (s *Server) persist(job *Job, result *assign.SearchResult) {
	if s.store == nil || result.Best == nil {
		return
	}
	rec := store.Record{
		ID:         job.ID,
		CreatedAt:  job.StartTime.UTC(),
		Score:      result.Best.Score,
		Trials:     result.Trials,
		Assignment: job.problem.ByStudentID(result.Best.Assignment),
		History:    result.History,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Error("Persisting result failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

// jobStatus is the GET /assignments/{id} response body.
type jobStatus struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	StartTime   string                 `json:"start_time"`
	EndTime     string                 `json:"end_time,omitempty"`
	Trials      int                    `json:"trials"`
	Progress    float64                `json:"progress"`
	BestScore   *float64               `json:"best_score,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Diagnostics *assign.Diagnostics    `json:"diagnostics,omitempty"`
	Assignment  map[int]string         `json:"assignment,omitempty"`
	Summary     *report.Summary        `json:"summary,omitempty"`
	History     []assign.ProgressPoint `json:"history,omitempty"`
}

func (s *Server) snapshotStatus(job *Job) jobStatus {
	job.mu.Lock()
	status := job.status
	endTime := job.endTime
	trials := job.trials
	result := job.result
	runErr := job.runErr
	job.mu.Unlock()

	out := jobStatus{
		ID:        job.ID,
		Status:    status,
		StartTime: job.StartTime.Format(time.RFC3339),
		Trials:    trials,
	}
	if endTime != nil {
		out.EndTime = endTime.Format(time.RFC3339)
	}
	if n := job.problem.Config().NumPatterns; n > 0 {
		out.Progress = float64(trials) / float64(n)
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}

	// A live best is visible even before the job finishes.
	if best := job.best.Load(); best != nil {
		out.BestScore = &best.Score
	}

	if result != nil {
		out.Trials = result.Trials
		out.Diagnostics = &result.Diagnostics
		out.History = result.History
		if result.Best != nil {
			out.Assignment = job.problem.ByStudentID(result.Best.Assignment)
			summary := report.Summarize(job.problem.Breakdown(result.Best.Assignment))
			out.Summary = &summary
		}
	}
	return out
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Load(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshotStatus(job))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	statuses := make([]jobStatus, 0)
	s.jobs.Range(func(_ string, job *Job) bool {
		statuses = append(statuses, s.snapshotStatus(job))
		return true
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

// handleBreakdown serves the per-student result table as CSV once the
// job has a best assignment.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Load(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.mu.Lock()
	result := job.result
	job.mu.Unlock()
	if result == nil || result.Best == nil {
		s.respondError(w, http.StatusConflict, "job has no result yet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if err := report.WriteBreakdownCSV(w, job.problem.Breakdown(result.Best.Assignment)); err != nil {
		s.logger.Error("Writing breakdown failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Load(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.mu.Lock()
	status := job.status
	job.mu.Unlock()
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		s.respondError(w, http.StatusConflict, "job already "+status)
		return
	}

	job.cancel()
	s.logger.Info("Search job cancellation requested", map[string]interface{}{
		"job_id": job.ID,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":     job.ID,
		"status": "cancellation requested",
	})
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  status,
		"message": message,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Close cancels every job that is still running.
func (s *Server) Close() error {
	s.jobs.Range(func(_ string, job *Job) bool {
		job.cancel()
		return true
	})
	return nil
}
