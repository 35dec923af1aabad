package repository

import (
	"context"

	"github.com/replyt/replyt/internal/domain"
	"gorm.io/gorm"
)

// ReplyRepository handles reply opportunity persistence.
type ReplyRepository struct {
	db *gorm.DB
}

// NewReplyRepository creates a new ReplyRepository.
func NewReplyRepository(db *gorm.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

// CreateBatch inserts reply opportunities.
func (r *ReplyRepository) CreateBatch(ctx context.Context, replies []*domain.ReplyOpportunity) error {
	if len(replies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&replies).Error
}

// ListByJob retrieves a job's reply opportunities, highest priority first,
// up to limit.
func (r *ReplyRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]*domain.ReplyOpportunity, error) {
	var replies []*domain.ReplyOpportunity
	q := r.db.WithContext(ctx).
		Where("analysis_job_id = ?", jobID).
		Order("priority_score DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}
