package repository

import (
	"context"

	"github.com/replyt/replyt/internal/domain"
	"gorm.io/gorm"
)

// ClusterRepository handles cluster and membership persistence.
type ClusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a new ClusterRepository.
func NewClusterRepository(db *gorm.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

// CreateWithMembers inserts a cluster together with its membership links in
// one transaction, so a partially written cluster never becomes visible.
func (r *ClusterRepository) CreateWithMembers(ctx context.Context, cluster *domain.Cluster, memberCommentIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cluster).Error; err != nil {
			return err
		}
		if len(memberCommentIDs) == 0 {
			return nil
		}
		links := make([]*domain.ClusterComment, 0, len(memberCommentIDs))
		for _, commentID := range memberCommentIDs {
			links = append(links, &domain.ClusterComment{
				ID:        newID(),
				ClusterID: cluster.ID,
				CommentID: commentID,
			})
		}
		return tx.Create(&links).Error
	})
}

// ListByJob retrieves a job's clusters ordered by rank.
func (r *ClusterRepository) ListByJob(ctx context.Context, jobID string) ([]*domain.Cluster, error) {
	var clusters []*domain.Cluster
	if err := r.db.WithContext(ctx).
		Where("analysis_job_id = ?", jobID).
		Order("rank ASC").
		Find(&clusters).Error; err != nil {
		return nil, err
	}
	return clusters, nil
}

// ListMemberComments retrieves a cluster's member comments, highest likes first,
// up to limit.
func (r *ClusterRepository) ListMemberComments(ctx context.Context, clusterID string, limit int) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	q := r.db.WithContext(ctx).
		Joins("JOIN cluster_comments ON cluster_comments.comment_id = comments.id").
		Where("cluster_comments.cluster_id = ?", clusterID).
		Order("comments.like_count DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
