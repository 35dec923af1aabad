package service

import (
	"testing"

	"github.com/replyt/replyt/internal/config"
)

func defaultRankWeights() config.RankWeights {
	return config.RankWeights{MemberCount: 1.0, TotalLikes: 0.3, RecentCount: 0.5}
}

func TestRankOrdersByScore(t *testing.T) {
	ranker := NewClusterRanker(defaultRankWeights())

	clusters := []*CommentCluster{
		{Members: make([]*CommentVector, 2), TotalLikes: 10},  // 2 + 3.0 = 5.0
		{Members: make([]*CommentVector, 5), TotalLikes: 0},   // 5.0
		{Members: make([]*CommentVector, 3), TotalLikes: 100}, // 3 + 30 = 33.0
	}

	ranked := ranker.Rank(clusters)

	if ranked[0].CommentCluster != clusters[2] {
		t.Error("highest scoring cluster should rank first")
	}
	// Tie at 5.0: stable sort keeps creation order.
	if ranked[1].CommentCluster != clusters[0] || ranked[2].CommentCluster != clusters[1] {
		t.Error("tied clusters should keep their creation order")
	}
	for i, cluster := range ranked {
		if cluster.Rank != i+1 {
			t.Errorf("ranked[%d].Rank = %d, want %d", i, cluster.Rank, i+1)
		}
	}
}

func TestRankRecentWeight(t *testing.T) {
	ranker := NewClusterRanker(defaultRankWeights())

	clusters := []*CommentCluster{
		{Members: make([]*CommentVector, 2), RecentCount: 0},
		{Members: make([]*CommentVector, 2), RecentCount: 2},
	}

	ranked := ranker.Rank(clusters)
	if ranked[0].CommentCluster != clusters[1] {
		t.Error("recent activity should break the tie")
	}
	if ranked[0].Score != 3.0 {
		t.Errorf("score = %v, want 3.0", ranked[0].Score)
	}
}

func TestTopClustersRanksBeforeTruncation(t *testing.T) {
	ranker := NewClusterRanker(defaultRankWeights())

	clusters := make([]*CommentCluster, 5)
	for i := range clusters {
		clusters[i] = &CommentCluster{
			Members:    make([]*CommentVector, 5-i),
			TotalLikes: int64((5 - i) * 10),
		}
	}

	top := ranker.TopClusters(clusters, 3)
	if len(top) != 3 {
		t.Fatalf("got %d clusters, want 3", len(top))
	}
	for i, cluster := range top {
		if cluster.Rank != i+1 {
			t.Errorf("top[%d].Rank = %d, want %d", i, cluster.Rank, i+1)
		}
	}

	// topN beyond the population is a no-op.
	all := ranker.TopClusters(clusters, 100)
	if len(all) != 5 {
		t.Errorf("got %d clusters, want 5", len(all))
	}

	// topN of zero disables truncation.
	untruncated := ranker.TopClusters(clusters, 0)
	if len(untruncated) != 5 {
		t.Errorf("got %d clusters, want 5", len(untruncated))
	}
}
