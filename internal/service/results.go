package service

import (
	"context"

	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/repository"
)

const (
	resultExampleCount = 3
	resultReplyLimit   = 10
)

// ClusterResult is one themed cluster in a finished analysis.
type ClusterResult struct {
	ID                    string   `json:"id"`
	Label                 string   `json:"label"`
	CommentCount          int      `json:"commentCount"`
	TotalLikes            int      `json:"totalLikes"`
	Rank                  int      `json:"rank"`
	RepresentativeComment string   `json:"representativeComment"`
	Examples              []string `json:"examples"`
}

// VideoIdea pairs a suggested video with the cluster that motivated it.
type VideoIdea struct {
	ClusterID string `json:"clusterId"`
	Label     string `json:"label"`
	Idea      string `json:"idea"`
}

// ReplyOpportunityResult is one suggested personal reply.
type ReplyOpportunityResult struct {
	ID             string `json:"id"`
	ClusterLabel   string `json:"clusterLabel,omitempty"`
	CommentText    string `json:"commentText"`
	AuthorName     string `json:"authorName,omitempty"`
	LikeCount      int    `json:"likeCount"`
	Reason         string `json:"reason"`
	SuggestedReply string `json:"suggestedReply"`
	PriorityScore  int    `json:"priorityScore"`
}

// AnalysisResults is the full payload of a completed analysis.
type AnalysisResults struct {
	JobID              string                   `json:"jobId"`
	ChannelName        string                   `json:"channelName"`
	TotalAnalyzed      interface{}              `json:"totalAnalyzed,omitempty"`
	FilteredCount      interface{}              `json:"filteredCount,omitempty"`
	Clusters           []ClusterResult          `json:"clusters"`
	VideoIdeas         []VideoIdea              `json:"videoIdeas"`
	ReplyOpportunities []ReplyOpportunityResult `json:"replyOpportunities"`
	PinnedComment      string                   `json:"pinnedComment,omitempty"`
}

// ResultsService assembles the result payload of completed jobs.
type ResultsService struct {
	jobs     *repository.JobRepository
	channels *repository.ChannelRepository
	comments *repository.CommentRepository
	clusters *repository.ClusterRepository
	replies  *repository.ReplyRepository
	archive  ReportArchive
}

// NewResultsService creates a ResultsService. archive may be nil when no
// report archive is configured.
func NewResultsService(jobs *repository.JobRepository, channels *repository.ChannelRepository, comments *repository.CommentRepository, clusters *repository.ClusterRepository, replies *repository.ReplyRepository, archive ReportArchive) *ResultsService {
	return &ResultsService{
		jobs:     jobs,
		channels: channels,
		comments: comments,
		clusters: clusters,
		replies:  replies,
		archive:  archive,
	}
}

// GetStatus returns a job for polling.
func (s *ResultsService) GetStatus(ctx context.Context, jobID string) (*domain.AnalysisJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// GetReport returns the archived JSON report of a completed job together with
// its public URL. Jobs completed without an archive configured have no report.
func (s *ResultsService) GetReport(ctx context.Context, jobID string) ([]byte, string, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != domain.JobStatusComplete {
		return nil, "", &domain.NotReadyError{Status: string(job.Status)}
	}

	key, _ := job.Metadata["reportKey"].(string)
	if s.archive == nil || key == "" {
		return nil, "", domain.NewNotFoundError("archived report for job", jobID)
	}

	report, err := s.archive.FetchReport(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return report, s.archive.ReportURL(key), nil
}

// GetResults assembles the full result payload for a completed job. A job in
// any other state yields a NotReadyError, never an empty success.
func (s *ResultsService) GetResults(ctx context.Context, jobID string) (*AnalysisResults, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusComplete {
		return nil, &domain.NotReadyError{Status: string(job.Status)}
	}

	channel, err := s.channels.GetByID(ctx, job.ChannelID)
	if err != nil {
		return nil, err
	}

	clusters, err := s.clusters.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	results := &AnalysisResults{
		JobID:              jobID,
		ChannelName:        channel.ChannelName,
		TotalAnalyzed:      job.Metadata["totalAnalyzed"],
		FilteredCount:      job.Metadata["filteredCount"],
		Clusters:           make([]ClusterResult, 0, len(clusters)),
		VideoIdeas:         []VideoIdea{},
		ReplyOpportunities: []ReplyOpportunityResult{},
	}

	labelByCluster := make(map[string]string, len(clusters))
	for _, cluster := range clusters {
		labelByCluster[cluster.ID] = cluster.Label

		examples, err := s.clusters.ListMemberComments(ctx, cluster.ID, resultExampleCount)
		if err != nil {
			return nil, err
		}
		texts := make([]string, 0, len(examples))
		for _, example := range examples {
			texts = append(texts, example.Text)
		}

		results.Clusters = append(results.Clusters, ClusterResult{
			ID:                    cluster.ID,
			Label:                 cluster.Label,
			CommentCount:          cluster.CommentCount,
			TotalLikes:            cluster.TotalLikes,
			Rank:                  cluster.Rank,
			RepresentativeComment: cluster.RepresentativeComment,
			Examples:              texts,
		})

		if cluster.VideoIdea != "" {
			results.VideoIdeas = append(results.VideoIdeas, VideoIdea{
				ClusterID: cluster.ID,
				Label:     cluster.Label,
				Idea:      cluster.VideoIdea,
			})
		}
		// The top-ranked cluster's suggested reply doubles as the pin.
		if cluster.Rank == 1 && cluster.SuggestedPinnedReply != "" {
			results.PinnedComment = cluster.SuggestedPinnedReply
		}
	}

	replies, err := s.replies.ListByJob(ctx, jobID, resultReplyLimit)
	if err != nil {
		return nil, err
	}
	commentIDs := make([]string, 0, len(replies))
	for _, reply := range replies {
		commentIDs = append(commentIDs, reply.CommentID)
	}
	commentRows, err := s.comments.ListByRowIDs(ctx, commentIDs)
	if err != nil {
		return nil, err
	}
	commentByID := make(map[string]*domain.Comment, len(commentRows))
	for _, comment := range commentRows {
		commentByID[comment.ID] = comment
	}

	for _, reply := range replies {
		result := ReplyOpportunityResult{
			ID:             reply.ID,
			ClusterLabel:   labelByCluster[reply.ClusterID],
			Reason:         reply.Reason,
			SuggestedReply: reply.SuggestedReply,
			PriorityScore:  reply.PriorityScore,
		}
		if comment, ok := commentByID[reply.CommentID]; ok {
			result.CommentText = comment.Text
			result.AuthorName = comment.AuthorName
			result.LikeCount = comment.LikeCount
		}
		results.ReplyOpportunities = append(results.ReplyOpportunities, result)
	}

	return results, nil
}
