package domain

import "time"

// Cluster represents a group of semantically similar comments produced for one
// analysis job. The clusters of a job partition that job's relevant comments:
// every relevant comment belongs to exactly one cluster.
type Cluster struct {
	ID                    string    `gorm:"type:text;primaryKey" json:"id"`
	AnalysisJobID         string    `gorm:"type:text;not null;index:idx_clusters_job" json:"analysis_job_id"`
	ChannelID             string    `gorm:"type:text;index:idx_clusters_channel" json:"channel_id"`
	Label                 string    `gorm:"type:text" json:"label"`
	CommentCount          int       `json:"comment_count"`
	TotalLikes            int       `json:"total_likes"`
	Score                 float64   `json:"score"`
	Rank                  int       `json:"rank"`
	RepresentativeComment string    `gorm:"type:text" json:"representative_comment"`
	VideoIdea             string    `gorm:"type:text" json:"video_idea,omitempty"`
	SuggestedPinnedReply  string    `gorm:"type:text" json:"suggested_pinned_reply,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// TableName returns the database table name for Cluster.
func (Cluster) TableName() string {
	return "clusters"
}

// ClusterComment links a cluster to one of its member comments.
type ClusterComment struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	ClusterID string    `gorm:"type:text;not null;index:idx_cluster_comments_cluster" json:"cluster_id"`
	CommentID string    `gorm:"type:text;not null;index:idx_cluster_comments_comment" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ClusterComment.
func (ClusterComment) TableName() string {
	return "cluster_comments"
}
