package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/logger"
	"github.com/replyt/replyt/internal/repository"
)

// ProfileService maintains per-channel engagement statistics behind a
// read-through TTL cache and scores individual comments against them.
type ProfileService struct {
	profiles   *repository.ProfileRepository
	comments   *repository.CommentRepository
	filter     *RelevanceFilter
	ttl        time.Duration
	sampleSize int
	now        func() time.Time
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles *repository.ProfileRepository, comments *repository.CommentRepository, filter *RelevanceFilter, ttl time.Duration, sampleSize int) *ProfileService {
	return &ProfileService{
		profiles:   profiles,
		comments:   comments,
		filter:     filter,
		ttl:        ttl,
		sampleSize: sampleSize,
		now:        time.Now,
	}
}

// GetOrCompute returns the channel's profile, recomputing it from a fresh
// comment sample when absent or older than the TTL.
func (s *ProfileService) GetOrCompute(ctx context.Context, channelID string) (*domain.ChannelProfile, error) {
	profile, err := s.profiles.Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !profile.IsStale(s.now(), s.ttl) {
		return profile, nil
	}

	sample, err := s.comments.ListRecentByChannel(ctx, channelID, s.sampleSize)
	if err != nil {
		return nil, err
	}

	fresh := s.computeProfile(channelID, sample)
	if profile != nil {
		fresh.ID = profile.ID
	}
	if err := s.profiles.Set(ctx, fresh); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldChannelID: channelID,
	}).WithCount(fresh.SampleSize).Debug(ctx, "recomputed channel profile")

	return fresh, nil
}

func (s *ProfileService) computeProfile(channelID string, sample []*domain.Comment) *domain.ChannelProfile {
	likes := make([]float64, 0, len(sample))
	questions := 0
	for _, comment := range sample {
		likes = append(likes, float64(comment.LikeCount))
		if s.filter.IsQuestion(comment.Text) {
			questions++
		}
	}
	sort.Float64s(likes)

	profile := &domain.ChannelProfile{
		ID:         uuid.New().String(),
		ChannelID:  channelID,
		SampleSize: len(sample),
		ComputedAt: s.now(),
	}
	if len(sample) == 0 {
		return profile
	}

	profile.MedianLikes = median(likes)
	profile.P75Likes = percentile(likes, 0.75)
	profile.P90Likes = percentile(likes, 0.90)
	profile.P95Likes = percentile(likes, 0.95)
	profile.MeanLikes = mean(likes)
	profile.QuestionRatio = float64(questions) / float64(len(sample))

	return profile
}

// PriorityScore scores one comment against the channel profile. The score is
// the like count normalized to the channel median (raw likes when the median
// is 0) plus a question bonus scaled by how rare questions are on the channel.
func (s *ProfileService) PriorityScore(profile *domain.ChannelProfile, likeCount int64, isQuestion bool) int {
	normalized := float64(likeCount)
	if profile != nil && profile.MedianLikes > 0 {
		normalized = float64(likeCount) / profile.MedianLikes * 100
	}

	bonus := 0.0
	if isQuestion && profile != nil {
		switch {
		case profile.QuestionRatio < 0.2:
			bonus = normalized * 1.5
		case profile.QuestionRatio > 0.5:
			bonus = normalized * 0.3
		default:
			bonus = normalized * 0.5
		}
	}

	return int(math.Round(normalized + bonus))
}

// PrioritizedComment is a comment with its adaptive priority score.
type PrioritizedComment struct {
	CommentID     string    `json:"commentId"`
	Text          string    `json:"text"`
	AuthorName    string    `json:"authorName"`
	LikeCount     int       `json:"likeCount"`
	IsQuestion    bool      `json:"isQuestion"`
	PriorityScore int       `json:"priorityScore"`
	PublishedAt   time.Time `json:"publishedAt"`
}

// PrioritizeComments scores a channel's recent comments against its profile
// and returns them ordered by priority, highest first.
func (s *ProfileService) PrioritizeComments(ctx context.Context, channelID string, limit int) ([]*PrioritizedComment, error) {
	profile, err := s.GetOrCompute(ctx, channelID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListRecentByChannel(ctx, channelID, s.sampleSize)
	if err != nil {
		return nil, err
	}

	prioritized := make([]*PrioritizedComment, 0, len(comments))
	for _, comment := range comments {
		isQuestion := s.filter.IsQuestion(comment.Text)
		prioritized = append(prioritized, &PrioritizedComment{
			CommentID:     comment.CommentID,
			Text:          comment.Text,
			AuthorName:    comment.AuthorName,
			LikeCount:     comment.LikeCount,
			IsQuestion:    isQuestion,
			PriorityScore: s.PriorityScore(profile, int64(comment.LikeCount), isQuestion),
			PublishedAt:   comment.PublishedAt,
		})
	}

	sort.SliceStable(prioritized, func(i, j int) bool {
		return prioritized[i].PriorityScore > prioritized[j].PriorityScore
	})
	if limit > 0 && len(prioritized) > limit {
		prioritized = prioritized[:limit]
	}
	return prioritized, nil
}

// median of a sorted slice: middle value, or the average of the two middle
// values for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
