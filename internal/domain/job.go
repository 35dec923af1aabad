package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus represents the lifecycle state of an analysis job.
// Values include JobStatusPending, JobStatusProcessing, JobStatusComplete, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
// Terminal jobs are immutable.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// JSONMap is a custom type for storing free-form metadata as JSON in the database.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// AnalysisJob represents one end-to-end execution of the analysis pipeline
// for a target channel or video.
//
// Status transitions only pending -> processing -> {complete, failed}; progress
// is non-decreasing while processing and ends at 100 on completion. On failure
// progress resets to 0 and ErrorMessage carries the failing stage's message.
type AnalysisJob struct {
	ID           string     `gorm:"type:text;primaryKey" json:"id"`
	ChannelID    string     `gorm:"type:text;not null;index:idx_jobs_channel" json:"channel_id"`
	VideoID      string     `gorm:"type:text;index:idx_jobs_video" json:"video_id,omitempty"`
	Status       JobStatus  `gorm:"type:text;index:idx_jobs_status;default:pending" json:"status"`
	Progress     int        `gorm:"default:0" json:"progress"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Metadata     JSONMap    `gorm:"type:text" json:"metadata"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"index:idx_jobs_created" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for AnalysisJob.
func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}
