package service

import (
	"testing"
	"time"

	"github.com/replyt/replyt/internal/domain"
)

func newProfileServiceForTest() *ProfileService {
	return NewProfileService(nil, nil, NewRelevanceFilter(nil), 24*time.Hour, 500)
}

func TestComputeProfileStatistics(t *testing.T) {
	svc := newProfileServiceForTest()

	sample := []*domain.Comment{
		{Text: "how does the export work?", LikeCount: 1},
		{Text: "loved the pacing of this one", LikeCount: 2},
		{Text: "solid content as always my friend", LikeCount: 3},
		{Text: "watched it twice already this week", LikeCount: 4},
		{Text: "the color grading is beautiful here", LikeCount: 100},
	}

	profile := svc.computeProfile("ch-1", sample)

	if profile.MedianLikes != 3 {
		t.Errorf("MedianLikes = %v, want 3", profile.MedianLikes)
	}
	if profile.P75Likes != 4 {
		t.Errorf("P75Likes = %v, want 4", profile.P75Likes)
	}
	if profile.P90Likes != 100 {
		t.Errorf("P90Likes = %v, want 100", profile.P90Likes)
	}
	if profile.P95Likes != 100 {
		t.Errorf("P95Likes = %v, want 100", profile.P95Likes)
	}
	if profile.MeanLikes != 22 {
		t.Errorf("MeanLikes = %v, want 22", profile.MeanLikes)
	}
	if profile.QuestionRatio != 0.2 {
		t.Errorf("QuestionRatio = %v, want 0.2", profile.QuestionRatio)
	}
	if profile.SampleSize != 5 {
		t.Errorf("SampleSize = %d, want 5", profile.SampleSize)
	}
}

func TestComputeProfileEvenSampleMedian(t *testing.T) {
	svc := newProfileServiceForTest()

	sample := []*domain.Comment{
		{Text: "aaaa", LikeCount: 1},
		{Text: "bbbb", LikeCount: 2},
		{Text: "cccc", LikeCount: 4},
		{Text: "dddd", LikeCount: 8},
	}

	profile := svc.computeProfile("ch-1", sample)
	if profile.MedianLikes != 3 {
		t.Errorf("MedianLikes = %v, want 3 (average of the two middle values)", profile.MedianLikes)
	}
}

func TestComputeProfileEmptySample(t *testing.T) {
	svc := newProfileServiceForTest()

	profile := svc.computeProfile("ch-1", nil)
	if profile.SampleSize != 0 || profile.MedianLikes != 0 || profile.QuestionRatio != 0 {
		t.Errorf("empty sample should yield a zeroed profile, got %+v", profile)
	}
	if profile.ChannelID != "ch-1" {
		t.Errorf("ChannelID = %q, want ch-1", profile.ChannelID)
	}
}

func TestProfileIsStale(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour

	tests := []struct {
		name    string
		profile *domain.ChannelProfile
		want    bool
	}{
		{"nil profile", nil, true},
		{"zero computed at", &domain.ChannelProfile{}, true},
		{"fresh", &domain.ChannelProfile{ComputedAt: now.Add(-1 * time.Hour)}, false},
		{"exactly at ttl", &domain.ChannelProfile{ComputedAt: now.Add(-24 * time.Hour)}, false},
		{"past ttl", &domain.ChannelProfile{ComputedAt: now.Add(-25 * time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.IsStale(now, ttl); got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriorityScore(t *testing.T) {
	svc := newProfileServiceForTest()

	rareQuestions := &domain.ChannelProfile{MedianLikes: 10, QuestionRatio: 0.1}
	commonQuestions := &domain.ChannelProfile{MedianLikes: 10, QuestionRatio: 0.6}
	typicalQuestions := &domain.ChannelProfile{MedianLikes: 10, QuestionRatio: 0.3}
	zeroMedian := &domain.ChannelProfile{MedianLikes: 0, QuestionRatio: 0.1}

	tests := []struct {
		name       string
		profile    *domain.ChannelProfile
		likes      int64
		isQuestion bool
		want       int
	}{
		{"statement at median", rareQuestions, 10, false, 100},
		{"statement above median", rareQuestions, 20, false, 200},
		{"rare question gets big bonus", rareQuestions, 10, true, 250},
		{"common question gets small bonus", commonQuestions, 10, true, 130},
		{"typical question gets medium bonus", typicalQuestions, 10, true, 150},
		{"zero median uses raw likes", zeroMedian, 7, false, 7},
		{"zero median question", zeroMedian, 4, true, 10},
		{"nil profile uses raw likes", nil, 5, false, 5},
		{"nil profile question gets no bonus", nil, 5, true, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.PriorityScore(tt.profile, tt.likes, tt.isQuestion)
			if got != tt.want {
				t.Errorf("PriorityScore = %d, want %d", got, tt.want)
			}
		})
	}
}
