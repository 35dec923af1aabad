package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/replyt/replyt/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A uniquely named shared-cache memory database isolates each test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func createTestJob(t *testing.T, repo *JobRepository, channelID, videoID string) *domain.AnalysisJob {
	t.Helper()
	job := &domain.AnalysisJob{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		VideoID:   videoID,
		Status:    domain.JobStatusPending,
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestJobClaimSingleWinner(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	job := createTestJob(t, repo, "ch-1", "vid-1")

	won, err := repo.Claim(ctx, job.ID)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !won {
		t.Fatal("first claim should win")
	}

	won, err = repo.Claim(ctx, job.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if won {
		t.Fatal("second claim must lose")
	}

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != domain.JobStatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("StartedAt should be set after claim")
	}
}

func TestJobProgressNeverDecreases(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	job := createTestJob(t, repo, "ch-1", "vid-1")

	if _, err := repo.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	for _, p := range []int{5, 40, 40, 15, 95} {
		if err := repo.SetProgress(ctx, job.ID, p); err != nil {
			t.Fatalf("set progress %d: %v", p, err)
		}
	}

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	// The stale write of 15 after 40 must be a no-op.
	if got.Progress != 95 {
		t.Errorf("progress = %d, want 95", got.Progress)
	}
}

func TestJobProgressIgnoredWhenNotProcessing(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	job := createTestJob(t, repo, "ch-1", "vid-1")

	if err := repo.SetProgress(ctx, job.ID, 50); err != nil {
		t.Fatalf("set progress: %v", err)
	}
	got, _ := repo.GetByID(ctx, job.ID)
	if got.Progress != 0 {
		t.Errorf("pending job progress = %d, want 0", got.Progress)
	}
}

func TestJobTerminalStatesAreImmutable(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	job := createTestJob(t, repo, "ch-1", "vid-1")

	if _, err := repo.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.MarkComplete(ctx, job.ID, domain.JSONMap{"totalAnalyzed": 12}); err != nil {
		t.Fatalf("mark complete: %v", err)
	}

	// A late failure report must not overwrite the terminal state.
	if err := repo.MarkFailed(ctx, job.ID, "late failure"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != domain.JobStatusComplete {
		t.Errorf("status = %s, want complete", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", got.ErrorMessage)
	}
}

func TestJobMarkFailedResetsProgress(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	job := createTestJob(t, repo, "ch-1", "vid-1")

	if _, err := repo.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.SetProgress(ctx, job.ID, 65); err != nil {
		t.Fatalf("set progress: %v", err)
	}
	if err := repo.MarkFailed(ctx, job.ID, "no comments found for video"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != domain.JobStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Progress != 0 {
		t.Errorf("progress = %d, want 0 after failure", got.Progress)
	}
	if got.ErrorMessage != "no comments found for video" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
}

func TestFindRecentForTarget(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	job := createTestJob(t, repo, "ch-1", "vid-1")

	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	got, err := repo.FindRecentForTarget(ctx, "ch-1", "vid-1", cutoff)
	if err != nil {
		t.Fatalf("find recent: %v", err)
	}
	if got == nil || got.ID != job.ID {
		t.Fatal("job inside the window should be found")
	}

	// Different video on the same channel is a different target.
	got, err = repo.FindRecentForTarget(ctx, "ch-1", "vid-2", cutoff)
	if err != nil {
		t.Fatalf("find recent: %v", err)
	}
	if got != nil {
		t.Error("different video should not match")
	}

	// A cutoff after the job's creation excludes it.
	got, err = repo.FindRecentForTarget(ctx, "ch-1", "vid-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("find recent: %v", err)
	}
	if got != nil {
		t.Error("job created before the cutoff should not match")
	}
}

func TestFindRecentForTargetChannelWide(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()
	createTestJob(t, repo, "ch-1", "vid-1")

	got, err := repo.FindRecentForTarget(ctx, "ch-1", "", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("find recent: %v", err)
	}
	if got == nil {
		t.Error("empty video id should match any job on the channel")
	}
}

func TestListPending(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()

	first := createTestJob(t, repo, "ch-1", "vid-1")
	time.Sleep(2 * time.Millisecond)
	second := createTestJob(t, repo, "ch-2", "vid-2")
	claimed := createTestJob(t, repo, "ch-3", "vid-3")
	if _, err := repo.Claim(ctx, claimed.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	ids, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d pending jobs, want 2", len(ids))
	}
	if ids[0] != first.ID || ids[1] != second.ID {
		t.Errorf("pending order = %v, want [%s %s]", ids, first.ID, second.ID)
	}
}
