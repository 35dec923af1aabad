package domain

import "time"

// ReplyOpportunity links a high-engagement comment to its cluster together with
// a justification and a suggested response. Only a bounded top slice of each
// cluster's comments (by like count, globally capped) ever produces one.
type ReplyOpportunity struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	AnalysisJobID  string    `gorm:"type:text;not null;index:idx_replies_job" json:"analysis_job_id"`
	ClusterID      string    `gorm:"type:text;index:idx_replies_cluster" json:"cluster_id"`
	CommentID      string    `gorm:"type:text;not null" json:"comment_id"`
	Reason         string    `gorm:"type:text" json:"reason"`
	SuggestedReply string    `gorm:"type:text" json:"suggested_reply"`
	PriorityScore  int       `json:"priority_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for ReplyOpportunity.
func (ReplyOpportunity) TableName() string {
	return "reply_opportunities"
}
