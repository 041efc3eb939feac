package handler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/webhook"
)

// Runner is the browser-backed work the API schedules. *portal.Orchestrator
// satisfies it.
type Runner interface {
	Run(ctx context.Context, criteria []models.SearchCriteria) ([]models.ScrapeOutcome, error)
	FetchCourts(ctx context.Context) ([]models.CourtOption, error)
}

type job struct {
	mu       sync.Mutex
	data     models.CauseListJob
	criteria []models.SearchCriteria
}

func (j *job) snapshot() models.CauseListJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.data
	out.Outcomes = append([]models.ScrapeOutcome(nil), j.data.Outcomes...)
	return out
}

// Queue runs cause-list jobs one at a time on a single worker. The portal
// allows one session per user and the orchestrator is not concurrent, so
// every browser use, court listing included, goes through the same lock.
type Queue struct {
	runner   Runner
	notifier *webhook.Notifier

	// JobTimeout bounds a single run; zero means no limit.
	JobTimeout time.Duration
	// Retention is how long finished jobs stay queryable.
	Retention time.Duration

	browser sync.Mutex
	busy    atomic.Bool
	pending chan *job
	jobs    sync.Map // id -> *job
}

// NewQueue creates a queue with room for size waiting jobs.
func NewQueue(runner Runner, notifier *webhook.Notifier, size int) *Queue {
	return &Queue{
		runner:    runner,
		notifier:  notifier,
		Retention: time.Hour,
		pending:   make(chan *job, max(size, 1)),
	}
}

// Start runs the worker and the expiry loop until ctx ends.
func (q *Queue) Start(ctx context.Context) {
	go q.work(ctx)
	go q.expire(ctx)
}

// Submit enqueues criteria as a new job. A full queue is BUSY.
func (q *Queue) Submit(criteria []models.SearchCriteria) (models.CauseListJob, error) {
	j := &job{
		data: models.CauseListJob{
			ID:        "job-" + uuid.NewString(),
			Status:    models.JobQueued,
			Total:     len(criteria),
			CreatedAt: time.Now(),
		},
		criteria: criteria,
	}

	snap := j.snapshot()
	q.jobs.Store(snap.ID, j)
	select {
	case q.pending <- j:
		return snap, nil
	default:
		q.jobs.Delete(snap.ID)
		return models.CauseListJob{}, models.NewScrapeError(models.ErrCodeBusy, "too many queued jobs, try again later", nil)
	}
}

// Get returns a snapshot of job id.
func (q *Queue) Get(id string) (models.CauseListJob, bool) {
	v, ok := q.jobs.Load(id)
	if !ok {
		return models.CauseListJob{}, false
	}
	return v.(*job).snapshot(), true
}

// Busy reports whether the browser is in use.
func (q *Queue) Busy() bool { return q.busy.Load() }

// Queued is the number of jobs waiting for the worker.
func (q *Queue) Queued() int { return len(q.pending) }

// FetchCourts lists courts if the browser is free and fails with BUSY
// otherwise, so a listing never waits behind a whole run.
func (q *Queue) FetchCourts(ctx context.Context) ([]models.CourtOption, error) {
	if !q.browser.TryLock() {
		return nil, models.NewScrapeError(models.ErrCodeBusy, "a cause-list run is in progress", nil)
	}
	defer q.browser.Unlock()
	q.busy.Store(true)
	defer q.busy.Store(false)
	return q.runner.FetchCourts(ctx)
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.pending:
			q.run(ctx, j)
		}
	}
}

func (q *Queue) run(ctx context.Context, j *job) {
	q.browser.Lock()
	defer q.browser.Unlock()
	q.busy.Store(true)
	defer q.busy.Store(false)

	j.mu.Lock()
	j.data.Status = models.JobProcessing
	id := j.data.ID
	j.mu.Unlock()

	if q.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.JobTimeout)
		defer cancel()
	}

	slog.Info("cause-list job started", "id", id, "courts", len(j.criteria))
	outcomes, err := q.runner.Run(ctx, j.criteria)
	finished := time.Now()

	j.mu.Lock()
	j.data.Outcomes = outcomes
	j.data.FinishedAt = &finished
	if err != nil {
		j.data.Status = models.JobFailed
		j.data.Error = detail(err)
	} else {
		j.data.Status = models.JobStatus(outcomes)
	}
	status := j.data.Status
	j.mu.Unlock()

	slog.Info("cause-list job finished", "id", id, "status", status, "outcomes", len(outcomes))

	q.notifier.DeliverAsync(&webhook.Event{
		Type:      webhook.EventCompleted,
		JobID:     id,
		Timestamp: finished.Unix(),
		Data:      j.snapshot(),
	})
}

// expire drops finished jobs older than Retention every five minutes.
func (q *Queue) expire(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.sweep(time.Now().Add(-q.Retention))
		}
	}
}

func (q *Queue) sweep(cutoff time.Time) {
	q.jobs.Range(func(key, value any) bool {
		snap := value.(*job).snapshot()
		if snap.FinishedAt != nil && snap.FinishedAt.Before(cutoff) {
			q.jobs.Delete(key)
		}
		return true
	})
}
