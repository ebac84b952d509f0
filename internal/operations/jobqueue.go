package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"salespulse/internal/config"
)

// JobStatus is the lifecycle state of a report job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one queued report build for a dataset.
type Job struct {
	ID          string     `json:"id"`
	DatasetID   string     `json:"dataset_id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	ReportPath  string     `json:"report_path,omitempty"`
	SummaryPath string     `json:"summary_path,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobStore persists jobs across their lifecycle.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	UpdateJob(ctx context.Context, job *Job) error
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// JobFilter narrows ListJobs results. Zero values match everything.
type JobFilter struct {
	Status    JobStatus
	DatasetID string
	Limit     int
}

// RunnerFunc performs the work of one job. It may set ReportPath,
// SummaryPath and a final Message on the job it receives; the queue
// merges those back into the tracked job when the runner returns.
// Mid-run progress goes through UpdateProgress instead.
type RunnerFunc func(ctx context.Context, job *Job) error

// JobQueue runs report jobs on a fixed pool of workers. Each job gets its
// own timeout derived from the queue context, and a panicking runner fails
// the job without taking the worker down.
type JobQueue struct {
	store  JobStore
	runner RunnerFunc
	logger *slog.Logger

	workers int
	timeout time.Duration
	queue   chan string

	mu       sync.RWMutex
	active   map[string]*Job
	onUpdate func(*Job)

	enqueued  int64
	completed int64
	failed    int64

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// NewJobQueue builds a queue sized from the operations config.
func NewJobQueue(cfg config.OperationsConfig, store JobStore, runner RunnerFunc, logger *slog.Logger) *JobQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobQueue{
		store:   store,
		runner:  runner,
		logger:  logger.With(slog.String("component", "jobqueue")),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		queue:   make(chan string, cfg.QueueSize),
		active:  make(map[string]*Job),
	}
}

// OnUpdate registers a hook invoked with a copy of the job after every
// status or progress change. Used to push job updates over WebSocket.
func (q *JobQueue) OnUpdate(fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onUpdate = fn
}

// Start launches the worker pool. Calling Start twice is a no-op.
func (q *JobQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.logger.Info("job queue started",
		slog.Int("workers", q.workers),
		slog.Int("queue_size", cap(q.queue)))
}

// Stop cancels the workers and waits up to timeout for in-flight jobs.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = false
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("job queue stop timed out after %s", timeout)
	}
}

// Enqueue stores the job as pending and hands it to the worker pool. A
// missing ID is filled in. If the buffer is full the job is recorded as
// failed and ErrQueueFull is returned.
func (q *JobQueue) Enqueue(ctx context.Context, job *Job) (*Job, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = JobStatusPending
	job.Progress = 0
	job.CreatedAt = time.Now()

	if err := q.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	select {
	case q.queue <- job.ID:
		q.mu.Lock()
		q.enqueued++
		q.mu.Unlock()
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("dataset_id", job.DatasetID))
		out := *job
		return &out, nil
	default:
		job.Status = JobStatusFailed
		job.Error = ErrQueueFull.Error()
		now := time.Now()
		job.CompletedAt = &now
		if err := q.store.UpdateJob(ctx, job); err != nil {
			q.logger.Error("recording queue-full failure",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()))
		}
		return nil, ErrQueueFull
	}
}

// GetJob returns a copy of the job, preferring the live in-flight state
// over the stored snapshot.
func (q *JobQueue) GetJob(ctx context.Context, id string) (*Job, error) {
	q.mu.RLock()
	if job, ok := q.active[id]; ok {
		out := *job
		q.mu.RUnlock()
		return &out, nil
	}
	q.mu.RUnlock()
	return q.store.GetJob(ctx, id)
}

// ListJobs lists stored jobs through the filter.
func (q *JobQueue) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(ctx, filter)
}

// UpdateProgress records progress on a running job and notifies the
// update hook. Unknown or finished jobs are ignored.
func (q *JobQueue) UpdateProgress(jobID string, progress int, message string) {
	q.mu.Lock()
	job, ok := q.active[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Progress = progress
	job.Message = message
	out := *job
	q.mu.Unlock()

	q.persist(&out)
	q.notify(&out)
}

// Stats reports queue counters for the health endpoint.
func (q *JobQueue) Stats() map[string]any {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return map[string]any{
		"workers":   q.workers,
		"queued":    len(q.queue),
		"active":    len(q.active),
		"enqueued":  q.enqueued,
		"completed": q.completed,
		"failed":    q.failed,
	}
}

func (q *JobQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger := q.logger.With(slog.Int("worker", id))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped")
			return
		case jobID := <-q.queue:
			q.process(ctx, jobID)
		}
	}
}

func (q *JobQueue) process(ctx context.Context, jobID string) {
	job, err := q.store.GetJob(ctx, jobID)
	if err != nil {
		q.logger.Error("fetching queued job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		return
	}

	now := time.Now()
	job.Status = JobStatusRunning
	job.StartedAt = &now

	q.mu.Lock()
	q.active[job.ID] = job
	snapshot := *job
	q.mu.Unlock()

	q.persist(&snapshot)
	q.notify(&snapshot)

	// The runner works on its own copy so concurrent job reads stay
	// race-free; results are merged back under the lock.
	work := snapshot
	runErr := q.runJob(ctx, &work)

	finished := time.Now()
	q.mu.Lock()
	job.ReportPath = work.ReportPath
	job.SummaryPath = work.SummaryPath
	if work.Message != "" {
		job.Message = work.Message
	}
	job.CompletedAt = &finished
	if runErr != nil {
		job.Status = JobStatusFailed
		job.Error = runErr.Error()
		q.failed++
	} else {
		job.Status = JobStatusCompleted
		job.Progress = 100
		q.completed++
	}
	delete(q.active, job.ID)
	snapshot = *job
	q.mu.Unlock()

	q.persist(&snapshot)
	q.notify(&snapshot)

	if runErr != nil {
		q.logger.Error("job failed",
			slog.String("job_id", job.ID),
			slog.String("dataset_id", job.DatasetID),
			slog.String("error", runErr.Error()))
		return
	}
	q.logger.Info("job completed",
		slog.String("job_id", job.ID),
		slog.String("dataset_id", job.DatasetID),
		slog.Duration("duration", finished.Sub(now)))
}

func (q *JobQueue) runJob(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	return q.runner(runCtx, job)
}

func (q *JobQueue) persist(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.store.UpdateJob(ctx, job); err != nil {
		q.logger.Error("persisting job update",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	}
}

func (q *JobQueue) notify(job *Job) {
	q.mu.RLock()
	fn := q.onUpdate
	q.mu.RUnlock()
	if fn != nil {
		out := *job
		fn(&out)
	}
}
