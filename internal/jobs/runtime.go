// Package jobs implements the background job runtime: one worker per
// process, a FIFO queue, cooperative progress/cancellation, and a bounded
// retention window over terminal jobs (§4.I).
package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/models"
)

const defaultRetention = 100

// JobFunc is the work a job performs. Implementations should call
// progress.Report at natural checkpoints (per-document batch, per-rule
// batch, per-100-unit window) and check progress.Canceled at the same
// points, returning promptly when it is true.
type JobFunc func(ctx context.Context, progress *Progress) (map[string]interface{}, error)

type queuedJob struct {
	id string
	fn JobFunc
}

// Runtime is the single-worker FIFO job queue.
type Runtime struct {
	mu        sync.Mutex
	jobs      map[string]*models.Job
	order     []string
	cancel    map[string]*int32
	queue     chan queuedJob
	retention int
	logger    *zap.Logger
}

// New builds a job runtime. retention <= 0 uses the default of 100
// terminal jobs kept alongside every non-terminal job.
func New(logger *zap.Logger, retention int) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Runtime{
		jobs:      make(map[string]*models.Job),
		cancel:    make(map[string]*int32),
		queue:     make(chan queuedJob, 256),
		retention: retention,
		logger:    logger,
	}
}

// Start launches the single worker goroutine. It runs until ctx is
// canceled; callers typically tie ctx to the sidecar process lifetime.
func (rt *Runtime) Start(ctx context.Context) {
	go rt.worker(ctx)
}

func (rt *Runtime) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case qj := <-rt.queue:
			rt.run(ctx, qj)
		}
	}
}

// Enqueue registers a new job and appends it to the FIFO queue.
func (rt *Runtime) Enqueue(kind models.JobKind, params map[string]interface{}, fn JobFunc) *models.Job {
	job := &models.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    models.JobQueued,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}

	rt.mu.Lock()
	rt.jobs[job.ID] = job
	rt.order = append(rt.order, job.ID)
	var flag int32
	rt.cancel[job.ID] = &flag
	rt.mu.Unlock()

	rt.queue <- queuedJob{id: job.ID, fn: fn}
	return job
}

func (rt *Runtime) run(ctx context.Context, qj queuedJob) {
	rt.mu.Lock()
	job, ok := rt.jobs[qj.id]
	if !ok || job.Status == models.JobCanceled {
		rt.mu.Unlock()
		return
	}
	job.Status = models.JobRunning
	startedAt := time.Now().UTC()
	job.StartedAt = &startedAt
	rt.mu.Unlock()

	result, err := qj.fn(ctx, &Progress{rt: rt, id: qj.id})

	rt.mu.Lock()
	defer rt.mu.Unlock()
	job, ok = rt.jobs[qj.id]
	if !ok {
		return
	}
	finishedAt := time.Now().UTC()
	job.FinishedAt = &finishedAt

	switch {
	case atomic.LoadInt32(rt.cancel[qj.id]) == 1:
		job.Status = models.JobCanceled
	case err != nil:
		job.Status = models.JobError
		job.Error = &models.JobErrorInfo{Type: "job_error", Message: err.Error()}
		rt.logger.Warn("job failed", zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)), zap.Error(err))
	default:
		job.Status = models.JobDone
		job.Result = result
	}
	rt.pruneLocked()
}

// Get returns one job by id.
func (rt *Runtime) Get(id string) (*models.Job, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	job, ok := rt.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job, nil
}

// List returns jobs most-recently-enqueued first, optionally filtered by
// status, with a plain offset/limit window.
func (rt *Runtime) List(status models.JobStatus, offset, limit int) []*models.Job {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var filtered []*models.Job
	for i := len(rt.order) - 1; i >= 0; i-- {
		job, ok := rt.jobs[rt.order[i]]
		if !ok {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		filtered = append(filtered, job)
	}

	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := len(filtered)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return filtered[offset:end]
}

// Cancel is idempotent (§5). A queued job transitions immediately to
// canceled. A running job has its cancellation flag set for the worker to
// observe at the next checkpoint. A terminal job is a no-op.
func (rt *Runtime) Cancel(id string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	job, ok := rt.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	switch job.Status {
	case models.JobQueued:
		job.Status = models.JobCanceled
		finishedAt := time.Now().UTC()
		job.FinishedAt = &finishedAt
	case models.JobRunning:
		if flag, ok := rt.cancel[id]; ok {
			atomic.StoreInt32(flag, 1)
		}
	}
	return nil
}

func (rt *Runtime) pruneLocked() {
	var terminalIDs []string
	for _, id := range rt.order {
		if job, ok := rt.jobs[id]; ok && isTerminal(job.Status) {
			terminalIDs = append(terminalIDs, id)
		}
	}
	excess := len(terminalIDs) - rt.retention
	if excess <= 0 {
		return
	}
	toRemove := make(map[string]bool, excess)
	for _, id := range terminalIDs[:excess] {
		toRemove[id] = true
		delete(rt.jobs, id)
		delete(rt.cancel, id)
	}

	kept := rt.order[:0]
	for _, id := range rt.order {
		if !toRemove[id] {
			kept = append(kept, id)
		}
	}
	rt.order = kept
}

func isTerminal(s models.JobStatus) bool {
	return s == models.JobDone || s == models.JobError || s == models.JobCanceled
}
