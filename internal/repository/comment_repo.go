package repository

import (
	"context"

	"github.com/replyt/replyt/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository handles comment persistence.
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// UpsertBatch creates or updates comments keyed by the external comment id.
// Comment rows are shared across jobs for the same video: repeat analyses
// refresh counts and the relevance flag instead of duplicating rows.
func (r *CommentRepository) UpsertBatch(ctx context.Context, comments []*domain.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "comment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"text", "author_name", "like_count", "reply_count", "is_relevant", "updated_at",
		}),
	}).Create(&comments).Error
}

// ListByRowIDs retrieves comments by their primary keys.
func (r *CommentRepository) ListByRowIDs(ctx context.Context, ids []string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	if len(ids) == 0 {
		return comments, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListByExternalIDs retrieves comments by their external ids.
func (r *CommentRepository) ListByExternalIDs(ctx context.Context, commentIDs []string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	if err := r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListRelevantByVideo retrieves a video's relevant comments in published order.
// Published order is the deterministic input order of the clustering engine.
func (r *CommentRepository) ListRelevantByVideo(ctx context.Context, videoID string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	if err := r.db.WithContext(ctx).
		Where("video_id = ? AND is_relevant = ?", videoID, true).
		Order("published_at ASC, comment_id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListRecentByChannel retrieves a channel's comments across its videos,
// newest first, up to limit. Used to build channel profile samples.
func (r *CommentRepository) ListRecentByChannel(ctx context.Context, channelID string, limit int) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	q := r.db.WithContext(ctx).
		Joins("JOIN videos ON videos.id = comments.video_id").
		Where("videos.channel_id = ?", channelID).
		Order("comments.published_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListByVideo retrieves all comments of a video, newest first, up to limit.
// Used to build channel profile samples.
func (r *CommentRepository) ListByVideo(ctx context.Context, videoID string, limit int) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	q := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("published_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
