package service

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestClusterPartitionsInput(t *testing.T) {
	engine := NewClusteringEngine(0.85)

	comments := []*CommentVector{
		{CommentID: "a", Vector: []float32{1, 0, 0}},
		{CommentID: "b", Vector: []float32{0.99, 0.1, 0}},
		{CommentID: "c", Vector: []float32{0, 1, 0}},
		{CommentID: "d", Vector: []float32{0, 0, 1}},
		{CommentID: "e", Vector: []float32{0, 0.1, 0.99}},
	}

	clusters := engine.Cluster(comments)

	seen := make(map[string]int)
	total := 0
	for _, cluster := range clusters {
		total += len(cluster.Members)
		for _, member := range cluster.Members {
			seen[member.CommentID]++
		}
	}
	if total != len(comments) {
		t.Fatalf("clusters hold %d members, want %d", total, len(comments))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("comment %s appears in %d clusters, want 1", id, count)
		}
	}
}

func TestClusterGreedyFirstMatch(t *testing.T) {
	engine := NewClusteringEngine(0.85)

	// b is similar to a, d is similar to c, e matches neither.
	comments := []*CommentVector{
		{CommentID: "a", LikeCount: 10, IsRecent: true, Vector: []float32{1, 0, 0}},
		{CommentID: "b", LikeCount: 5, Vector: []float32{0.95, 0.05, 0}},
		{CommentID: "c", LikeCount: 0, Vector: []float32{0, 1, 0}},
		{CommentID: "d", LikeCount: 20, Vector: []float32{0, 0.97, 0.03}},
		{CommentID: "e", LikeCount: 1, Vector: []float32{0, 0, 1}},
	}

	clusters := engine.Cluster(comments)
	if len(clusters) != 3 {
		t.Fatalf("got %d clusters, want 3", len(clusters))
	}

	first := clusters[0]
	if len(first.Members) != 2 || first.Members[0].CommentID != "a" || first.Members[1].CommentID != "b" {
		t.Errorf("first cluster members = %v, want [a b]", memberIDs(first))
	}
	if first.TotalLikes != 15 {
		t.Errorf("first cluster TotalLikes = %d, want 15", first.TotalLikes)
	}
	if first.RecentCount != 1 {
		t.Errorf("first cluster RecentCount = %d, want 1", first.RecentCount)
	}
	if first.RepresentativeComment.CommentID != "a" {
		t.Errorf("first cluster representative = %s, want a", first.RepresentativeComment.CommentID)
	}

	second := clusters[1]
	if len(second.Members) != 2 || second.Members[0].CommentID != "c" {
		t.Errorf("second cluster members = %v, want [c d]", memberIDs(second))
	}
	// d outlikes c and takes over as representative.
	if second.RepresentativeComment.CommentID != "d" {
		t.Errorf("second cluster representative = %s, want d", second.RepresentativeComment.CommentID)
	}

	third := clusters[2]
	if len(third.Members) != 1 || third.Members[0].CommentID != "e" {
		t.Errorf("third cluster members = %v, want [e]", memberIDs(third))
	}
}

func TestClusterCentroidIsRunningMean(t *testing.T) {
	engine := NewClusteringEngine(0.5)

	comments := []*CommentVector{
		{CommentID: "a", Vector: []float32{1, 0}},
		{CommentID: "b", Vector: []float32{0.6, 0.8}},
	}

	clusters := engine.Cluster(comments)
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}

	want := []float32{0.8, 0.4}
	got := clusters[0].Centroid
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("centroid[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestClusterCentroidDoesNotAliasInput(t *testing.T) {
	engine := NewClusteringEngine(0.9)

	vec := []float32{1, 0}
	clusters := engine.Cluster([]*CommentVector{{CommentID: "a", Vector: vec}})

	clusters[0].Centroid[0] = 0.5
	if vec[0] != 1 {
		t.Error("mutating the centroid changed the input vector")
	}
}

func TestClusterExamplesAndTopMembers(t *testing.T) {
	cluster := &CommentCluster{
		Members: []*CommentVector{
			{CommentID: "a", Text: "first", LikeCount: 2},
			{CommentID: "b", Text: "second", LikeCount: 9},
			{CommentID: "c", Text: "third", LikeCount: 5},
		},
	}

	examples := cluster.Examples(2)
	if len(examples) != 2 || examples[0] != "second" || examples[1] != "third" {
		t.Errorf("Examples(2) = %v, want [second third]", examples)
	}

	top := cluster.TopMembers(10)
	if len(top) != 3 || top[0].CommentID != "b" {
		t.Errorf("TopMembers(10) order = %v", top)
	}

	// Sorting must not reorder the stored member slice.
	if cluster.Members[0].CommentID != "a" {
		t.Error("Examples reordered the cluster members")
	}
}

func memberIDs(c *CommentCluster) []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.CommentID)
	}
	return ids
}
