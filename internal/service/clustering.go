package service

import (
	"math"
	"sort"
)

// CommentVector pairs a comment with its embedding for clustering.
type CommentVector struct {
	CommentID  string
	Text       string
	LikeCount  int64
	ReplyCount int64
	IsRecent   bool
	Vector     []float32
}

// CommentCluster is one group of semantically similar comments. The centroid
// is the running mean of member vectors and has the same dimensionality.
type CommentCluster struct {
	Centroid              []float32
	Members               []*CommentVector
	TotalLikes            int64
	RecentCount           int
	RepresentativeComment *CommentVector
}

// ClusteringEngine groups comment vectors with a single greedy pass.
// Output depends on input order, which callers keep deterministic.
type ClusteringEngine struct {
	threshold float64
}

// NewClusteringEngine creates a ClusteringEngine with the given similarity
// threshold.
func NewClusteringEngine(threshold float64) *ClusteringEngine {
	return &ClusteringEngine{threshold: threshold}
}

// Cluster partitions the comments: every input comment lands in exactly one
// cluster. Each comment joins the first existing cluster (in creation order)
// whose centroid similarity meets the threshold, or starts a new singleton.
// First-match, not best-match, is the tie-break policy.
func (e *ClusteringEngine) Cluster(comments []*CommentVector) []*CommentCluster {
	var clusters []*CommentCluster

	for _, comment := range comments {
		assigned := false

		for _, cluster := range clusters {
			similarity := CosineSimilarity(comment.Vector, cluster.Centroid)
			if similarity >= e.threshold {
				cluster.add(comment)
				assigned = true
				break
			}
		}

		if !assigned {
			centroid := make([]float32, len(comment.Vector))
			copy(centroid, comment.Vector)

			cluster := &CommentCluster{
				Centroid:              centroid,
				Members:               []*CommentVector{comment},
				TotalLikes:            comment.LikeCount,
				RepresentativeComment: comment,
			}
			if comment.IsRecent {
				cluster.RecentCount = 1
			}
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}

// add appends a comment and updates the running centroid:
// centroid[i] = (centroid[i]*(n-1) + vector[i]) / n for new size n.
func (c *CommentCluster) add(comment *CommentVector) {
	c.Members = append(c.Members, comment)
	c.TotalLikes += comment.LikeCount
	if comment.IsRecent {
		c.RecentCount++
	}

	n := float32(len(c.Members))
	for i := range c.Centroid {
		c.Centroid[i] = (c.Centroid[i]*(n-1) + comment.Vector[i]) / n
	}

	if comment.LikeCount > c.RepresentativeComment.LikeCount {
		c.RepresentativeComment = comment
	}
}

// Examples returns up to max member texts ordered by like count descending.
func (c *CommentCluster) Examples(max int) []string {
	sorted := make([]*CommentVector, len(c.Members))
	copy(sorted, c.Members)
	sortByLikesDesc(sorted)

	if max > len(sorted) {
		max = len(sorted)
	}
	examples := make([]string, 0, max)
	for _, member := range sorted[:max] {
		examples = append(examples, member.Text)
	}
	return examples
}

// TopMembers returns up to max members ordered by like count descending.
func (c *CommentCluster) TopMembers(max int) []*CommentVector {
	sorted := make([]*CommentVector, len(c.Members))
	copy(sorted, c.Members)
	sortByLikesDesc(sorted)

	if max > len(sorted) {
		max = len(sorted)
	}
	return sorted[:max]
}

func sortByLikesDesc(comments []*CommentVector) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].LikeCount > comments[j].LikeCount
	})
}

// CosineSimilarity computes dot(a,b) / (norm(a)*norm(b)). Defined as 0 when
// either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
