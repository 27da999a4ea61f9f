package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lox/floatchat/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Migrate(nil); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestUpsertAndListFloats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older := models.FloatRecord{
		ID:            "4902346",
		Name:          "Atlantic drifter",
		Ocean:         "Atlantic Ocean",
		Status:        models.FloatActive,
		Latitude:      -12.5,
		Longitude:     -25.1,
		LastProfileAt: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
		MaxDepth:      1500,
	}
	newer := models.FloatRecord{
		ID:            "4902345",
		Name:          "Pacific drifter",
		Ocean:         "Pacific Ocean",
		Status:        models.FloatActive,
		Latitude:      -20.2,
		Longitude:     160.4,
		LastProfileAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		MaxDepth:      2000,
		Trajectory:    []models.LatLng{{Lat: -20.0, Lng: 160.0}, {Lat: -20.2, Lng: 160.4}},
	}

	for _, f := range []models.FloatRecord{older, newer} {
		if err := store.UpsertFloat(ctx, f); err != nil {
			t.Fatalf("UpsertFloat(%s): %v", f.ID, err)
		}
	}

	floats, err := store.ListFloats(ctx)
	if err != nil {
		t.Fatalf("ListFloats: %v", err)
	}
	if len(floats) != 2 {
		t.Fatalf("len(floats) = %d, want 2", len(floats))
	}
	if floats[0].ID != "4902345" {
		t.Errorf("floats[0].ID = %q, want newest first", floats[0].ID)
	}
	if diff := cmp.Diff(newer.Trajectory, floats[0].Trajectory); diff != "" {
		t.Errorf("trajectory mismatch (-want +got):\n%s", diff)
	}
	if !floats[0].LastProfileAt.Equal(newer.LastProfileAt) {
		t.Errorf("LastProfileAt = %v, want %v", floats[0].LastProfileAt, newer.LastProfileAt)
	}

	newer.Status = models.FloatProcessing
	if err := store.UpsertFloat(ctx, newer); err != nil {
		t.Fatalf("UpsertFloat update: %v", err)
	}
	got, err := store.GetFloat(ctx, "4902345")
	if err != nil {
		t.Fatalf("GetFloat: %v", err)
	}
	if got.Status != models.FloatProcessing {
		t.Errorf("Status = %q, want processing", got.Status)
	}
}

func TestGetFloat_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetFloat(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestChatMessages(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	msgs := []models.ChatMessage{
		{ID: "m1", SessionID: "s1", Sender: models.SenderBot, Content: "hello", Kind: "fallback", CreatedAt: now},
		{ID: "m2", SessionID: "s1", Sender: models.SenderUser, Content: "salinity?", CreatedAt: now},
		{ID: "m3", SessionID: "s1", Sender: models.SenderBot, Content: "23 floats", Kind: "salinity", Payload: `{"type":"salinity"}`, CreatedAt: now},
		{ID: "m4", SessionID: "s2", Sender: models.SenderUser, Content: "other", CreatedAt: now},
	}
	for _, m := range msgs {
		if err := store.InsertMessage(ctx, m); err != nil {
			t.Fatalf("InsertMessage(%s): %v", m.ID, err)
		}
	}

	got, err := store.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, id := range []string{"m1", "m2", "m3"} {
		if got[i].ID != id {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
	if got[2].Payload != `{"type":"salinity"}` {
		t.Errorf("Payload = %q", got[2].Payload)
	}

	if err := store.SetMessageFlag(ctx, "s1", "m3", true); err != nil {
		t.Fatalf("SetMessageFlag: %v", err)
	}
	got, _ = store.GetMessages(ctx, "s1")
	if !got[2].Flagged {
		t.Error("expected m3 flagged")
	}

	if err := store.SetMessageFlag(ctx, "s2", "m3", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("flag in wrong session err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSessionsBefore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	store.InsertMessage(ctx, models.ChatMessage{ID: "a1", SessionID: "old", Sender: models.SenderUser, Content: "x", CreatedAt: old})
	store.InsertMessage(ctx, models.ChatMessage{ID: "b1", SessionID: "mixed", Sender: models.SenderUser, Content: "x", CreatedAt: old})
	store.InsertMessage(ctx, models.ChatMessage{ID: "b2", SessionID: "mixed", Sender: models.SenderBot, Content: "y", CreatedAt: recent})

	n, err := store.DeleteSessionsBefore(ctx, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DeleteSessionsBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
	if msgs, _ := store.GetMessages(ctx, "mixed"); len(msgs) != 2 {
		t.Errorf("mixed session has %d messages, want 2", len(msgs))
	}
}

func TestAnalysisJobs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	job := models.AnalysisJob{
		ID:        "j1",
		FileName:  "argo.nc",
		Size:      2048,
		Status:    models.AnalysisProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.SaveAnalysisJob(ctx, job); err != nil {
		t.Fatalf("SaveAnalysisJob: %v", err)
	}

	job.Progress = 100
	job.Status = models.AnalysisCompleted
	job.Insights = `{"summary":"ok"}`
	job.UpdatedAt = now.Add(time.Second)
	if err := store.SaveAnalysisJob(ctx, job); err != nil {
		t.Fatalf("SaveAnalysisJob update: %v", err)
	}

	got, err := store.GetAnalysisJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetAnalysisJob: %v", err)
	}
	if got.Status != models.AnalysisCompleted || got.Progress != 100 || got.Insights != `{"summary":"ok"}` {
		t.Errorf("job = %+v", got)
	}
	if got.Size != 2048 {
		t.Errorf("Size = %d, want 2048", got.Size)
	}

	store.SaveAnalysisJob(ctx, models.AnalysisJob{ID: "j2", FileName: "argo.nc", Status: models.AnalysisProcessing, CreatedAt: now, UpdatedAt: now})
	store.SaveAnalysisJob(ctx, models.AnalysisJob{ID: "j3", FileName: "other.nc", Status: models.AnalysisProcessing, CreatedAt: now, UpdatedAt: now})

	n, err := store.DeleteAnalysisJobsForFile(ctx, "argo.nc")
	if err != nil {
		t.Fatalf("DeleteAnalysisJobsForFile: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	jobs, _ := store.ListAnalysisJobs(ctx)
	if len(jobs) != 1 || jobs[0].ID != "j3" {
		t.Errorf("remaining jobs = %+v, want only j3", jobs)
	}

	if _, err := store.GetAnalysisJob(ctx, "j1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAnalysisJob after delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteFinishedAnalysisJobsBefore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.SaveAnalysisJob(ctx, models.AnalysisJob{ID: "done", FileName: "a.nc", Status: models.AnalysisCompleted, CreatedAt: old, UpdatedAt: old})
	store.SaveAnalysisJob(ctx, models.AnalysisJob{ID: "running", FileName: "b.nc", Status: models.AnalysisProcessing, CreatedAt: old, UpdatedAt: old})

	n, err := store.DeleteFinishedAnalysisJobsBefore(ctx, old.Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteFinishedAnalysisJobsBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if _, err := store.GetAnalysisJob(ctx, "running"); err != nil {
		t.Errorf("in-flight job should survive pruning: %v", err)
	}
}
