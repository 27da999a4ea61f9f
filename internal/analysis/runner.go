// Package analysis simulates processing of uploaded NetCDF files. Jobs
// advance through random progress steps and finish with a fixed report.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lox/floatchat/internal/metrics"
	"github.com/lox/floatchat/internal/models"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type, expected .nc or .netcdf")
	errRemoved         = errors.New("file removed")
)

const (
	DefaultTick    = 200 * time.Millisecond
	DefaultStagger = time.Second
	DefaultLimit   = 4

	maxStep   = 15.0
	queueSize = 256
)

// Store persists job state.
type Store interface {
	SaveAnalysisJob(ctx context.Context, j models.AnalysisJob) error
	GetAnalysisJob(ctx context.Context, id string) (*models.AnalysisJob, error)
	ListAnalysisJobs(ctx context.Context) ([]models.AnalysisJob, error)
	DeleteAnalysisJobsForFile(ctx context.Context, fileName string) (int64, error)
}

// Upload describes one file selected by the user. Only the name and size are used.
type Upload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Supported reports whether name has a NetCDF extension.
func Supported(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".nc") || strings.HasSuffix(lower, ".netcdf")
}

type queued struct {
	job     models.AnalysisJob
	startAt time.Time
	state   *running
}

// running tracks a submitted job until it finishes. cancel is nil until the
// job starts.
type running struct {
	fileName string
	cancel   context.CancelFunc
	removed  bool
}

// Runner executes analysis jobs. Call Run to start processing; Submit queues
// work.
type Runner struct {
	store  Store
	logger *zap.Logger

	tick    time.Duration
	stagger time.Duration
	limit   int
	rand    func() float64
	now     func() time.Time
	newID   func() string

	queue chan queued

	mu      sync.Mutex
	running map[string]*running
}

func NewRunner(store Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:   store,
		logger:  logger,
		tick:    DefaultTick,
		stagger: DefaultStagger,
		limit:   DefaultLimit,
		rand:    rand.Float64,
		now:     time.Now,
		newID:   uuid.NewString,
		queue:   make(chan queued, queueSize),
		running: make(map[string]*running),
	}
}

// Run processes queued jobs until ctx is cancelled, then waits for in-flight
// jobs to record their cancellation. A job waits out its start delay before
// it takes one of the limited worker slots.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)

	var waiting sync.WaitGroup
	dispatch := func(q queued) {
		waiting.Add(1)
		go func() {
			defer waiting.Done()
			waitUntil(gctx, q.startAt)
			g.Go(func() error {
				r.process(gctx, q)
				return nil
			})
		}()
	}

	r.logger.Info("analysis: runner started", zap.Int("limit", r.limit))
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case q := <-r.queue:
			dispatch(q)
		}
	}

	// Jobs still queued are dispatched so they record their cancellation.
drain:
	for {
		select {
		case q := <-r.queue:
			dispatch(q)
		default:
			break drain
		}
	}

	waiting.Wait()
	err := g.Wait()
	r.logger.Info("analysis: runner stopped")
	return err
}

// waitUntil blocks until at or until ctx is done.
func waitUntil(ctx context.Context, at time.Time) {
	d := time.Until(at)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Submit creates a job for each supported upload and queues it. Unsupported
// names are returned in rejected. If nothing is accepted the error wraps
// ErrUnsupportedFile.
func (r *Runner) Submit(ctx context.Context, uploads []Upload) (jobs []models.AnalysisJob, rejected []string, err error) {
	for _, u := range uploads {
		name := path.Base(strings.ReplaceAll(u.Name, "\\", "/"))
		if !Supported(name) {
			rejected = append(rejected, u.Name)
			continue
		}

		now := r.now().UTC()
		job := models.AnalysisJob{
			ID:        r.newID(),
			FileName:  name,
			Size:      u.Size,
			Status:    models.AnalysisProcessing,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.store.SaveAnalysisJob(ctx, job); err != nil {
			return jobs, rejected, fmt.Errorf("save job for %s: %w", name, err)
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil, rejected, fmt.Errorf("%w: %s", ErrUnsupportedFile, strings.Join(rejected, ", "))
	}

	submitted := time.Now()
	for i, job := range jobs {
		q := queued{
			job:     job,
			startAt: submitted.Add(time.Duration(i) * r.stagger),
			state:   &running{fileName: job.FileName},
		}
		r.mu.Lock()
		r.running[job.ID] = q.state
		r.mu.Unlock()
		select {
		case r.queue <- q:
		case <-ctx.Done():
			r.abandon(context.WithoutCancel(ctx), jobs[i:])
			return jobs[:i], rejected, ctx.Err()
		}
	}

	r.logger.Info("analysis: jobs submitted", zap.Int("accepted", len(jobs)), zap.Strings("rejected", rejected))
	return jobs, rejected, nil
}

// Get returns one job.
func (r *Runner) Get(ctx context.Context, id string) (*models.AnalysisJob, error) {
	return r.store.GetAnalysisJob(ctx, id)
}

// List returns all jobs oldest first.
func (r *Runner) List(ctx context.Context) ([]models.AnalysisJob, error) {
	return r.store.ListAnalysisJobs(ctx)
}

// Recover marks jobs left processing by a previous run as failed. Call it
// before Run.
func (r *Runner) Recover(ctx context.Context) (int, error) {
	jobs, err := r.store.ListAnalysisJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list jobs: %w", err)
	}
	n := 0
	for _, j := range jobs {
		if j.Status != models.AnalysisProcessing {
			continue
		}
		j.Status = models.AnalysisError
		j.Error = "interrupted by restart"
		j.UpdatedAt = r.now().UTC()
		if err := r.store.SaveAnalysisJob(ctx, j); err != nil {
			return n, fmt.Errorf("save job %s: %w", j.ID, err)
		}
		n++
	}
	if n > 0 {
		r.logger.Warn("analysis: recovered interrupted jobs", zap.Int("count", n))
	}
	return n, nil
}

// Remove stops any in-flight jobs for fileName and deletes all of its jobs.
func (r *Runner) Remove(ctx context.Context, fileName string) (int64, error) {
	r.mu.Lock()
	for _, rj := range r.running {
		if rj.fileName == fileName {
			rj.removed = true
			if rj.cancel != nil {
				rj.cancel()
			}
		}
	}
	r.mu.Unlock()

	n, err := r.store.DeleteAnalysisJobsForFile(ctx, fileName)
	if err != nil {
		return 0, fmt.Errorf("delete jobs for %s: %w", fileName, err)
	}
	r.logger.Info("analysis: file removed", zap.String("file", fileName), zap.Int64("jobs", n))
	return n, nil
}

func (r *Runner) process(ctx context.Context, q queued) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	job, rj := q.job, q.state
	defer r.forget(job.ID)

	r.mu.Lock()
	if rj.removed {
		r.mu.Unlock()
		return
	}
	rj.cancel = cancel
	r.mu.Unlock()

	metrics.AnalysisJobsInFlight.Inc()
	defer metrics.AnalysisJobsInFlight.Dec()

	log := r.logger.With(zap.String("job", job.ID), zap.String("file", job.FileName))

	err := r.advance(ctx, rj, &job)
	switch {
	case errors.Is(err, errRemoved):
		log.Debug("analysis: job dropped with its file")
		return
	case err != nil:
		job.Status = models.AnalysisError
		job.Error = err.Error()
	default:
		job.Status = models.AnalysisCompleted
		job.Progress = 100
		b, merr := json.Marshal(demoInsights())
		if merr != nil {
			job.Status = models.AnalysisError
			job.Error = merr.Error()
		} else {
			job.Insights = string(b)
		}
	}

	job.UpdatedAt = r.now().UTC()
	if err := r.save(context.WithoutCancel(ctx), rj, job); err != nil {
		if !errors.Is(err, errRemoved) {
			log.Error("analysis: save final state", zap.Error(err))
		}
		return
	}
	metrics.AnalysisJobs.WithLabelValues(string(job.Status)).Inc()
	log.Info("analysis: job finished", zap.String("status", string(job.Status)))
}

// advance runs the progress loop until the job reaches 100.
func (r *Runner) advance(ctx context.Context, rj *running, job *models.AnalysisJob) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	var progress float64
	for {
		select {
		case <-ctx.Done():
			return r.stopped(ctx, rj)
		case <-ticker.C:
		}

		progress += r.rand() * maxStep
		if progress >= 100 {
			return nil
		}
		job.Progress = int(progress)
		job.UpdatedAt = r.now().UTC()
		if err := r.save(ctx, rj, *job); err != nil {
			return err
		}
	}
}

// abandon marks jobs that were saved but never queued as failed.
func (r *Runner) abandon(ctx context.Context, jobs []models.AnalysisJob) {
	for _, job := range jobs {
		r.forget(job.ID)
		job.Status = models.AnalysisError
		job.Error = "submission cancelled"
		job.UpdatedAt = r.now().UTC()
		if err := r.store.SaveAnalysisJob(ctx, job); err != nil {
			r.logger.Error("analysis: save abandoned job", zap.String("job", job.ID), zap.Error(err))
		}
	}
	r.logger.Warn("analysis: submission cancelled", zap.Int("abandoned", len(jobs)))
}

func (r *Runner) forget(id string) {
	r.mu.Lock()
	delete(r.running, id)
	r.mu.Unlock()
}

func (r *Runner) stopped(ctx context.Context, rj *running) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rj.removed {
		return errRemoved
	}
	return fmt.Errorf("analysis cancelled: %w", ctx.Err())
}

// save writes job unless its file has been removed. Holding mu across the
// write keeps a removed job from being written back after Remove deletes it.
func (r *Runner) save(ctx context.Context, rj *running, job models.AnalysisJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rj.removed {
		return errRemoved
	}
	return r.store.SaveAnalysisJob(ctx, job)
}
