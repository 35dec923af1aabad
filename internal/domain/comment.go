package domain

import "time"

// Comment represents a single audience comment fetched from the comment source.
// Rows are upserted by the external CommentID, never duplicated: repeat analyses
// of the same video reuse the stored comments.
type Comment struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	CommentID   string    `gorm:"type:text;not null;uniqueIndex:idx_comments_external" json:"comment_id"`
	VideoID     string    `gorm:"type:text;not null;index:idx_comments_video" json:"video_id"`
	Text        string    `gorm:"type:text" json:"text"`
	AuthorName  string    `gorm:"type:text" json:"author_name"`
	LikeCount   int       `json:"like_count"`
	ReplyCount  int       `json:"reply_count"`
	IsRelevant  bool      `gorm:"index:idx_comments_relevant" json:"is_relevant"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string {
	return "comments"
}
