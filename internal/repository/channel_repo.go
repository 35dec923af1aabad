package repository

import (
	"context"
	"errors"

	"github.com/replyt/replyt/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChannelRepository handles channel and video persistence.
type ChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Upsert creates or updates a channel record keyed by the external channel id.
func (r *ChannelRepository) Upsert(ctx context.Context, channel *domain.Channel) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"channel_name", "thumbnail_url", "subscriber_count", "updated_at"}),
	}).Create(channel).Error
}

// GetByExternalID retrieves a channel by its external channel id.
func (r *ChannelRepository) GetByExternalID(ctx context.Context, channelID string) (*domain.Channel, error) {
	var channel domain.Channel
	if err := r.db.WithContext(ctx).First(&channel, "channel_id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "channel", ID: channelID}
		}
		return nil, err
	}
	return &channel, nil
}

// GetByID retrieves a channel by its primary key.
func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	var channel domain.Channel
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "channel", ID: id}
		}
		return nil, err
	}
	return &channel, nil
}

// UpsertVideo creates or updates a video record keyed by the external video id.
func (r *ChannelRepository) UpsertVideo(ctx context.Context, video *domain.Video) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "comment_count", "updated_at"}),
	}).Create(video).Error
}

// GetVideoByRowID retrieves a video by its primary key.
func (r *ChannelRepository) GetVideoByRowID(ctx context.Context, id string) (*domain.Video, error) {
	var video domain.Video
	if err := r.db.WithContext(ctx).First(&video, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "video", ID: id}
		}
		return nil, err
	}
	return &video, nil
}

// GetVideoByExternalID retrieves a video by its external video id.
func (r *ChannelRepository) GetVideoByExternalID(ctx context.Context, videoID string) (*domain.Video, error) {
	var video domain.Video
	if err := r.db.WithContext(ctx).First(&video, "video_id = ?", videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "video", ID: videoID}
		}
		return nil, err
	}
	return &video, nil
}
