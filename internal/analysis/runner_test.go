package analysis

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/lox/floatchat/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[string]models.AnalysisJob
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]models.AnalysisJob)}
}

func (m *memStore) SaveAnalysisJob(_ context.Context, j models.AnalysisJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}

func (m *memStore) GetAnalysisJob(_ context.Context, id string) (*models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &j, nil
}

func (m *memStore) ListAnalysisJobs(context.Context) ([]models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AnalysisJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (m *memStore) DeleteAnalysisJobsForFile(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.jobs {
		if j.FileName == name {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

func newTestRunner(t *testing.T, store Store, opts ...func(*Runner)) (*Runner, func()) {
	t.Helper()
	r := NewRunner(store, nil)
	r.tick = time.Millisecond
	r.stagger = 0
	r.rand = func() float64 { return 0.9 }
	for _, opt := range opts {
		opt(r)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	return r, func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	}
}

func waitForStatus(t *testing.T, r *Runner, id string, want models.AnalysisStatus) models.AnalysisJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := r.Get(context.Background(), id)
		if err == nil && j.Status == want {
			return *j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %s", id, want)
	return models.AnalysisJob{}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"argo.nc":        true,
		"ARGO.NC":        true,
		"profile.netcdf": true,
		"data.NetCDF":    true,
		"notes.txt":      false,
		"nc":             false,
		"archive.nc.zip": false,
	}
	for name, want := range tests {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSubmit_CompletesJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	r, stop := newTestRunner(t, store)
	defer stop()

	jobs, rejected, err := r.Submit(context.Background(), []Upload{
		{Name: "a.nc", Size: 100},
		{Name: "readme.md", Size: 5},
		{Name: "b.NETCDF", Size: 200},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("accepted %d jobs, want 2", len(jobs))
	}
	if len(rejected) != 1 || rejected[0] != "readme.md" {
		t.Errorf("rejected = %v", rejected)
	}
	for _, j := range jobs {
		if j.Status != models.AnalysisProcessing || j.Progress != 0 {
			t.Errorf("initial job = %+v", j)
		}
	}

	for _, j := range jobs {
		done := waitForStatus(t, r, j.ID, models.AnalysisCompleted)
		if done.Progress != 100 {
			t.Errorf("progress = %d, want 100", done.Progress)
		}
		in, err := DecodeInsights(done)
		if err != nil || in == nil {
			t.Fatalf("DecodeInsights = %v, %v", in, err)
		}
		if in.Parameters.Temperature.Max != 28.5 || len(in.KeyFindings) != 5 {
			t.Errorf("insights = %+v", in)
		}
	}
}

func TestSubmit_AllRejected(t *testing.T) {
	r := NewRunner(newMemStore(), nil)
	_, rejected, err := r.Submit(context.Background(), []Upload{{Name: "x.csv"}})
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("err = %v, want ErrUnsupportedFile", err)
	}
	if len(rejected) != 1 {
		t.Errorf("rejected = %v", rejected)
	}
}

func TestSubmit_StripsPath(t *testing.T) {
	r := NewRunner(newMemStore(), nil)
	jobs, _, err := r.Submit(context.Background(), []Upload{{Name: `C:\data\float.nc`}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobs[0].FileName != "float.nc" {
		t.Errorf("FileName = %q, want float.nc", jobs[0].FileName)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &recordingStore{memStore: newMemStore()}
	r, stop := newTestRunner(t, store)
	defer stop()
	r.rand = func() float64 { return 0.1 }

	jobs, _, err := r.Submit(context.Background(), []Upload{{Name: "slow.nc"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, r, jobs[0].ID, models.AnalysisCompleted)

	store.mu.Lock()
	defer store.mu.Unlock()
	last := -1
	for _, p := range store.progress {
		if p < last {
			t.Fatalf("progress went backwards: %v", store.progress)
		}
		last = p
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

type recordingStore struct {
	*memStore
	progress []int
}

func (s *recordingStore) SaveAnalysisJob(ctx context.Context, j models.AnalysisJob) error {
	s.mu.Lock()
	s.progress = append(s.progress, j.Progress)
	s.mu.Unlock()
	return s.memStore.SaveAnalysisJob(ctx, j)
}

func TestCancelMarksError(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	r := NewRunner(store, nil)
	r.tick = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	jobs, _, err := r.Submit(context.Background(), []Upload{{Name: "long.nc"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Wait until the job has started before cancelling.
	deadline := time.Now().Add(5 * time.Second)
	for {
		r.mu.Lock()
		rj := r.running[jobs[0].ID]
		started := rj != nil && rj.cancel != nil
		r.mu.Unlock()
		if started || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	j, err := r.Get(context.Background(), jobs[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if j.Status != models.AnalysisError || j.Error == "" {
		t.Errorf("job after cancel = %+v, want error status", j)
	}
}

func TestRemoveStopsAndDeletes(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	r, stop := newTestRunner(t, store)
	defer stop()
	r.rand = func() float64 { return 0 }

	ctx := context.Background()
	if _, _, err := r.Submit(ctx, []Upload{{Name: "gone.nc"}, {Name: "gone.nc"}, {Name: "kept.nc"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	n, err := r.Remove(ctx, "gone.nc")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d jobs, want 2", n)
	}

	// Give cancelled jobs a chance to run their final save.
	time.Sleep(20 * time.Millisecond)

	jobs, _ := r.List(ctx)
	for _, j := range jobs {
		if j.FileName == "gone.nc" {
			t.Errorf("job for removed file reappeared: %+v", j)
		}
	}
	if len(jobs) != 1 {
		t.Errorf("len(jobs) = %d, want 1", len(jobs))
	}
}

func TestRecover(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	store.SaveAnalysisJob(ctx, models.AnalysisJob{ID: "a", Status: models.AnalysisProcessing})
	store.SaveAnalysisJob(ctx, models.AnalysisJob{ID: "b", Status: models.AnalysisCompleted})

	n, err := NewRunner(store, nil).Recover(ctx)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if n != 1 {
		t.Errorf("recovered %d, want 1", n)
	}
	if j, _ := store.GetAnalysisJob(ctx, "a"); j.Status != models.AnalysisError {
		t.Errorf("job a status = %s", j.Status)
	}
}

// startStore records when each job first reports progress.
type startStore struct {
	*memStore
	started map[string]time.Time
}

func (s *startStore) SaveAnalysisJob(ctx context.Context, j models.AnalysisJob) error {
	s.mu.Lock()
	if _, ok := s.started[j.ID]; !ok && j.Progress > 0 {
		s.started[j.ID] = time.Now()
	}
	s.mu.Unlock()
	return s.memStore.SaveAnalysisJob(ctx, j)
}

func TestStaggerCountsFromSubmission(t *testing.T) {
	defer goleak.VerifyNone(t)

	const stagger = 60 * time.Millisecond
	store := &startStore{memStore: newMemStore(), started: make(map[string]time.Time)}
	r, stop := newTestRunner(t, store, func(r *Runner) {
		r.stagger = stagger
		r.limit = 1
	})
	defer stop()

	submitted := time.Now()
	jobs, _, err := r.Submit(context.Background(), []Upload{{Name: "a.nc"}, {Name: "b.nc"}, {Name: "c.nc"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for _, j := range jobs {
		waitForStatus(t, r, j.ID, models.AnalysisCompleted)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for i, j := range jobs {
		offset := store.started[j.ID].Sub(submitted)
		earliest := time.Duration(i) * stagger
		if offset < earliest {
			t.Errorf("job %d started %v after submission, before its %v slot", i, offset, earliest)
		}
		if offset > earliest+stagger/2 {
			t.Errorf("job %d started %v after submission, want about %v", i, offset, earliest)
		}
	}
}

func TestSubmit_CancelledMarksUnqueuedJobs(t *testing.T) {
	store := newMemStore()
	r := NewRunner(store, nil)
	r.queue = make(chan queued) // no Run, so nothing is ever dequeued

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	accepted, _, err := r.Submit(ctx, []Upload{{Name: "a.nc"}, {Name: "b.nc"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(accepted) != 0 {
		t.Errorf("accepted = %+v, want none", accepted)
	}

	jobs, _ := store.ListAnalysisJobs(context.Background())
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(jobs))
	}
	for _, j := range jobs {
		if j.Status != models.AnalysisError || j.Error == "" {
			t.Errorf("job %s = %+v, want error status", j.ID, j)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.running) != 0 {
		t.Errorf("running = %d entries, want 0", len(r.running))
	}
}
