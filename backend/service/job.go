package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/poi-engine/backend/config"
	"github.com/gilchrisn/poi-engine/backend/models"
	"github.com/gilchrisn/poi-engine/pkg/clustering"
	engine "github.com/gilchrisn/poi-engine/pkg/models"
	"github.com/gilchrisn/poi-engine/pkg/poi"
	"github.com/gilchrisn/poi-engine/pkg/validation"
)

var (
	// ErrJobNotFound is returned for unknown or expired job ids
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotCompleted is returned when a result is requested early
	ErrJobNotCompleted = errors.New("job has not completed")

	// ErrInvalidRequest marks parameters or snapshots the engine rejects
	ErrInvalidRequest = errors.New("invalid request")
)

// ApplyParameters overlays the set request parameters on base
func ApplyParameters(base poi.Options, params models.CalculationParameters) poi.Options {
	opts := base
	if params.Strategy != nil {
		opts.Strategy = clustering.StrategyType(*params.Strategy)
	}
	if params.Mu != nil {
		opts.Clustering.Mu = *params.Mu
	}
	if params.Epsilon != nil {
		opts.Clustering.Epsilon = *params.Epsilon
	}
	if params.MaxIterations != nil {
		opts.MaxIterations = *params.MaxIterations
	}
	if params.Tolerance != nil {
		opts.Tolerance = *params.Tolerance
	}
	if params.InterLevelWeight != nil {
		opts.InterLevelWeight = *params.InterLevelWeight
	}
	if params.UseNetOutlinks != nil {
		opts.UseNetOutlinks = *params.UseNetOutlinks
	}
	return opts
}

// JobService runs importance calculations in the background
type JobService struct {
	jobs    map[string]*models.Job
	results map[string]*poi.Result
	workers chan struct{}
	mutex   sync.RWMutex

	// calculate runs one calculation; replaced in tests
	calculate func(*poi.Calculator, *engine.Snapshot) (*poi.Result, error)

	baseOptions     poi.Options
	metrics         *poi.Metrics
	jobTimeout      time.Duration
	jobTTL          time.Duration
	cleanupInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewJobService creates a job service; metrics may be nil
func NewJobService(cfg config.JobConfig, baseOptions poi.Options, metrics *poi.Metrics) *JobService {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	service := &JobService{
		jobs:            make(map[string]*models.Job),
		results:         make(map[string]*poi.Result),
		workers:         make(chan struct{}, workers),
		calculate:       (*poi.Calculator).Calculate,
		baseOptions:     baseOptions,
		metrics:         metrics,
		jobTimeout:      cfg.JobTimeout,
		jobTTL:          cfg.ResultTTL,
		cleanupInterval: cfg.CleanupInterval,
		stop:            make(chan struct{}),
	}

	if service.cleanupInterval > 0 {
		go service.cleanupLoop()
	}

	return service
}

// Close stops the cleanup loop
func (s *JobService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Submit validates the request and queues a calculation job
func (s *JobService) Submit(snapshot *engine.Snapshot, params models.CalculationParameters) (*models.Job, error) {
	opts := ApplyParameters(s.baseOptions, params)
	calculator, err := poi.NewCalculator(opts, log.Logger, s.metrics)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := validation.ValidateSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	now := time.Now()
	job := &models.Job{
		ID:         uuid.New().String(),
		Strategy:   string(opts.Strategy),
		Parameters: params,
		Height:     snapshot.Height,
		Accounts:   snapshot.NumAccounts(),
		Status:     models.JobStatusQueued,
		Progress: models.JobProgress{
			Percentage: 0,
			Message:    "Queued",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mutex.Lock()
	s.jobs[job.ID] = job
	jobCopy := *job
	s.mutex.Unlock()

	log.Info().
		Str("job_id", job.ID).
		Str("strategy", job.Strategy).
		Uint64("height", job.Height).
		Int("accounts", job.Accounts).
		Msg("Job submitted")

	go s.processJob(job.ID, calculator, snapshot)

	return &jobCopy, nil
}

// Get returns a copy of the job
func (s *JobService) Get(jobID string) (*models.Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// GetResult retrieves the engine result of a completed job
func (s *JobService) GetResult(jobID string) (*poi.Result, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobNotCompleted, jobID, job.Status)
	}

	return s.results[jobID], nil
}

// List returns copies of all jobs
func (s *JobService) List() []models.Job {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// Cancel marks a queued or running job cancelled. A running calculation has
// no cancellation point; its result is discarded when it finishes.
func (s *JobService) Cancel(jobID string) (*models.Job, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if !job.Status.Terminal() {
		job.Status = models.JobStatusCancelled
		job.Progress.Message = "Cancelled"
		now := time.Now()
		job.CompletedAt = &now
		job.UpdatedAt = now

		log.Info().
			Str("job_id", jobID).
			Msg("Job cancelled")
	}

	jobCopy := *job
	return &jobCopy, nil
}

type calculationOutcome struct {
	result *poi.Result
	err    error
}

// processJob processes a job in the background. The worker slot is held
// until the calculation itself returns, even when the job has already
// failed on timeout, so at most MaxWorkers calculations run at once.
func (s *JobService) processJob(jobID string, calculator *poi.Calculator, snapshot *engine.Snapshot) {
	// Acquire worker slot
	s.workers <- struct{}{}

	if !s.markRunning(jobID) {
		<-s.workers
		return
	}

	ctx := context.Background()
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	done := make(chan calculationOutcome, 1)
	go func() {
		result, err := s.calculate(calculator, snapshot)
		done <- calculationOutcome{result: result, err: err}
	}()

	select {
	case outcome := <-done:
		<-s.workers
		if outcome.err != nil {
			s.failJob(jobID, outcome.err)
			return
		}
		s.completeJob(jobID, outcome.result)
	case <-ctx.Done():
		s.failJob(jobID, fmt.Errorf("calculation timed out after %s", s.jobTimeout))
		go func() {
			<-done
			<-s.workers
			log.Debug().
				Str("job_id", jobID).
				Msg("Timed out calculation finished, worker slot released")
		}()
	}
}

// markRunning moves a queued job to running; false if it is gone or cancelled
func (s *JobService) markRunning(jobID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != models.JobStatusQueued {
		return false
	}

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.Progress = models.JobProgress{Percentage: 10, Message: "Clustering and iterating"}
	job.StartedAt = &now
	job.UpdatedAt = now

	log.Debug().
		Str("job_id", jobID).
		Msg("Job processing started")
	return true
}

// completeJob stores the result unless the job was cancelled meanwhile
func (s *JobService) completeJob(jobID string, result *poi.Result) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != models.JobStatusRunning {
		return
	}

	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.Progress = models.JobProgress{Percentage: 100, Message: "Complete"}
	job.CompletedAt = &now
	job.UpdatedAt = now
	job.Result = &models.JobResult{
		GroupedHeight:    result.GroupedHeight,
		Iterations:       result.Iterations,
		FinalDelta:       result.FinalDelta,
		NumClusters:      result.Clustering.NumClusters(),
		NumHubs:          len(result.Clustering.Hubs()),
		NumOutliers:      len(result.Clustering.Outliers()),
		IgnoredOutlinks:  result.IgnoredOutlinks,
		ProcessingTimeMS: result.Duration.Milliseconds(),
	}

	s.results[jobID] = result

	log.Info().
		Str("job_id", jobID).
		Int("iterations", result.Iterations).
		Int64("processing_time_ms", job.Result.ProcessingTimeMS).
		Msg("Job completed successfully")
}

// failJob marks a running job as failed
func (s *JobService) failJob(jobID string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != models.JobStatusRunning {
		return
	}

	now := time.Now()
	job.Status = models.JobStatusFailed
	job.Error = err.Error()
	job.Progress.Message = "Failed"
	job.CompletedAt = &now
	job.UpdatedAt = now

	log.Error().
		Str("job_id", jobID).
		Err(err).
		Msg("Job failed")
}

// cleanupLoop periodically cleans up old jobs and results
func (s *JobService) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stop:
			return
		}
	}
}

// cleanup removes finished jobs not updated within the TTL before now
func (s *JobService) cleanup(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := now.Add(-s.jobTTL)
	cleaned := 0

	for jobID, job := range s.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, jobID)
			delete(s.results, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Info().
			Int("cleaned_jobs", cleaned).
			Msg("Job cleanup completed")
	}
	return cleaned
}
