package repository

import (
	"context"
	"errors"
	"time"

	"github.com/replyt/replyt/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles analysis job persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new analysis job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.AnalysisJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
// Returns domain.NotFoundError when no job exists.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	var job domain.AnalysisJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "analysis job", ID: id}
		}
		return nil, err
	}
	return &job, nil
}

// FindRecentForTarget returns the most recent job for the given target created
// at or after the cutoff, or nil when none exists. The cutoff on creation time
// is a hard boundary: jobs created before it never count as duplicates.
func (r *JobRepository) FindRecentForTarget(ctx context.Context, channelID, videoID string, cutoff time.Time) (*domain.AnalysisJob, error) {
	q := r.db.WithContext(ctx).
		Where("channel_id = ? AND created_at >= ?", channelID, cutoff)
	if videoID != "" {
		q = q.Where("video_id = ?", videoID)
	}

	var job domain.AnalysisJob
	err := q.Order("created_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Claim atomically transitions a pending job to processing. It is the
// single-execution guard: only the caller that observes a row change owns the
// run. A second trigger for the same job id sees zero affected rows.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID to claim.
// Returns:
//   - bool: true if this caller won the claim.
//   - error: non-nil if the update fails.
func (r *JobRepository) Claim(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&domain.AnalysisJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusProcessing,
			"started_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetProgress advances a processing job's progress. Progress never moves
// backwards: the update is guarded so a stale writer cannot decrease it.
func (r *JobRepository) SetProgress(ctx context.Context, id string, progress int) error {
	return r.db.WithContext(ctx).
		Model(&domain.AnalysisJob{}).
		Where("id = ? AND status = ? AND progress <= ?", id, domain.JobStatusProcessing, progress).
		Update("progress", progress).Error
}

// MarkComplete transitions a processing job to its terminal complete state
// with progress 100 and the final run metadata.
func (r *JobRepository) MarkComplete(ctx context.Context, id string, metadata domain.JSONMap) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.AnalysisJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":       domain.JobStatusComplete,
			"progress":     100,
			"metadata":     metadata,
			"completed_at": now,
		}).Error
}

// MarkFailed transitions a job to its terminal failed state, resetting
// progress to 0 and recording the failing stage's message.
func (r *JobRepository) MarkFailed(ctx context.Context, id string, message string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.AnalysisJob{}).
		Where("id = ? AND status IN ?", id, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"progress":      0,
			"error_message": message,
			"completed_at":  now,
		}).Error
}

// ListPending returns the IDs of all pending jobs in creation order.
// Used on startup to re-enqueue work that was created but never run.
func (r *JobRepository) ListPending(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.AnalysisJob{}).
		Where("status = ?", domain.JobStatusPending).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
