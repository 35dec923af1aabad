package domain

import "time"

// ChannelProfile holds rolling engagement statistics for a channel, computed
// from a recent comment sample and cached with a staleness TTL. Used for
// adaptive per-comment priority scoring.
type ChannelProfile struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	ChannelID     string    `gorm:"type:text;not null;uniqueIndex:idx_profiles_channel" json:"channel_id"`
	MedianLikes   float64   `json:"median_likes"`
	P75Likes      float64   `json:"p75_likes"`
	P90Likes      float64   `json:"p90_likes"`
	P95Likes      float64   `json:"p95_likes"`
	MeanLikes     float64   `json:"mean_likes"`
	QuestionRatio float64   `json:"question_ratio"`
	SampleSize    int       `json:"sample_size"`
	ComputedAt    time.Time `json:"computed_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChannelProfile.
func (ChannelProfile) TableName() string {
	return "channel_profiles"
}

// IsStale reports whether the profile is older than ttl at the given instant.
// A zero ComputedAt is always stale.
func (p *ChannelProfile) IsStale(now time.Time, ttl time.Duration) bool {
	if p == nil || p.ComputedAt.IsZero() {
		return true
	}
	return now.Sub(p.ComputedAt) > ttl
}
