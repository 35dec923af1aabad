package domain

import "time"

// Channel represents a YouTube channel whose audience is being analyzed.
// Keyed by the external channel id so repeat analyses reuse the same row.
type Channel struct {
	ID              string    `gorm:"type:text;primaryKey" json:"id"`
	ChannelID       string    `gorm:"type:text;not null;uniqueIndex:idx_channels_external" json:"channel_id"`
	ChannelName     string    `gorm:"type:text" json:"channel_name"`
	ThumbnailURL    string    `gorm:"type:text" json:"thumbnail_url,omitempty"`
	SubscriberCount int64     `json:"subscriber_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for Channel.
func (Channel) TableName() string {
	return "channels"
}

// Video represents a single video on a channel. Comments are owned by videos
// and shared across analysis jobs targeting the same video.
type Video struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	VideoID      string    `gorm:"type:text;not null;uniqueIndex:idx_videos_external" json:"video_id"`
	ChannelID    string    `gorm:"type:text;not null;index:idx_videos_channel" json:"channel_id"`
	Title        string    `gorm:"type:text" json:"title"`
	CommentCount int64     `json:"comment_count"`
	PublishedAt  time.Time `json:"published_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Video.
func (Video) TableName() string {
	return "videos"
}
