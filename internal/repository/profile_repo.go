package repository

import (
	"context"
	"errors"

	"github.com/replyt/replyt/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository handles channel profile persistence.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves a channel's profile, or nil when none has been computed yet.
func (r *ProfileRepository) Get(ctx context.Context, channelID string) (*domain.ChannelProfile, error) {
	var profile domain.ChannelProfile
	err := r.db.WithContext(ctx).First(&profile, "channel_id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Set creates or overwrites a channel's profile keyed by channel id.
func (r *ProfileRepository) Set(ctx context.Context, profile *domain.ChannelProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"median_likes", "p75_likes", "p90_likes", "p95_likes", "mean_likes",
			"question_ratio", "sample_size", "computed_at", "updated_at",
		}),
	}).Create(profile).Error
}
