package service

import (
	"sort"

	"github.com/replyt/replyt/internal/config"
)

// RankedCluster is a cluster with its importance score and dense rank.
type RankedCluster struct {
	*CommentCluster
	Score float64
	Rank  int
}

// ClusterRanker scores and orders clusters. The weights are configuration.
type ClusterRanker struct {
	weights config.RankWeights
}

// NewClusterRanker creates a ClusterRanker with the given weights.
func NewClusterRanker(weights config.RankWeights) *ClusterRanker {
	return &ClusterRanker{weights: weights}
}

// score computes memberCount*w1 + totalLikes*w2 + recentCount*w3.
func (r *ClusterRanker) score(cluster *CommentCluster) float64 {
	return float64(len(cluster.Members))*r.weights.MemberCount +
		float64(cluster.TotalLikes)*r.weights.TotalLikes +
		float64(cluster.RecentCount)*r.weights.RecentCount
}

// Rank scores every cluster, sorts by score descending and assigns dense
// ranks 1..N over the whole population. The sort is stable: ties keep the
// clusters' creation order.
func (r *ClusterRanker) Rank(clusters []*CommentCluster) []*RankedCluster {
	ranked := make([]*RankedCluster, 0, len(clusters))
	for _, cluster := range clusters {
		ranked = append(ranked, &RankedCluster{
			CommentCluster: cluster,
			Score:          r.score(cluster),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	for i, cluster := range ranked {
		cluster.Rank = i + 1
	}

	return ranked
}

// TopClusters ranks the full population and truncates to the top N. Ranks
// are assigned before truncation, so they reflect all clusters, not just the
// retained subset.
func (r *ClusterRanker) TopClusters(clusters []*CommentCluster, topN int) []*RankedCluster {
	ranked := r.Rank(clusters)
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
