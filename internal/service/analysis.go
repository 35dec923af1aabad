package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/replyt/replyt/internal/config"
	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/logger"
	"github.com/replyt/replyt/internal/repository"
	"github.com/replyt/replyt/internal/youtube"
)

// CommentSource is the comment-source collaborator boundary.
type CommentSource interface {
	ResolveChannel(ctx context.Context, identifier string) (*youtube.Channel, error)
	RecentVideos(ctx context.Context, channel *youtube.Channel, limit int) ([]*youtube.Video, error)
	VideoDetails(ctx context.Context, videoID string) (*youtube.Video, error)
	VideoComments(ctx context.Context, videoID string, maxComments int) ([]*youtube.Comment, error)
}

// Embedder is the embedding-provider collaborator boundary.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// InsightProvider is the summarization collaborator boundary.
type InsightProvider interface {
	GenerateClusterInsights(ctx context.Context, clusters []ClusterForInsight, channelName string, recentVideoTitles []string) (map[string]ClusterInsight, error)
	GenerateReplySuggestions(ctx context.Context, candidates []ReplyCandidate, channelName string) ([]ReplySuggestion, error)
}

// EmbeddingCache stores embeddings keyed by external comment id so repeat
// analyses of the same video skip the provider for known comments. Optional.
type EmbeddingCache interface {
	GetEmbeddings(ctx context.Context, commentIDs []string) (map[string][]float32, error)
	UpsertEmbeddings(ctx context.Context, embeddings []repository.CommentEmbedding) error
}

// ReportArchive stores and serves completed analysis reports. Optional.
type ReportArchive interface {
	StoreReport(ctx context.Context, jobID string, report []byte) (string, error)
	FetchReport(ctx context.Context, key string) ([]byte, error)
	ReportURL(key string) string
}

// CreateResult is the outcome of an analysis creation request.
type CreateResult struct {
	JobID       string           `json:"jobId"`
	Status      domain.JobStatus `json:"status"`
	ChannelID   string           `json:"channelId"`
	ChannelName string           `json:"channelName,omitempty"`
	IsExisting  bool             `json:"isExisting"`
}

// AnalysisService owns the dedup gate and the job pipeline.
type AnalysisService struct {
	jobs     *repository.JobRepository
	channels *repository.ChannelRepository
	comments *repository.CommentRepository
	clusters *repository.ClusterRepository
	replies  *repository.ReplyRepository

	source   CommentSource
	embedder Embedder
	insights InsightProvider
	cache    EmbeddingCache
	archive  ReportArchive

	filter *RelevanceFilter
	engine *ClusteringEngine
	ranker *ClusterRanker

	cfg         config.AnalysisConfig
	maxComments int
	videoCount  int
}

// AnalysisDeps bundles the collaborators of an AnalysisService.
type AnalysisDeps struct {
	Jobs     *repository.JobRepository
	Channels *repository.ChannelRepository
	Comments *repository.CommentRepository
	Clusters *repository.ClusterRepository
	Replies  *repository.ReplyRepository
	Source   CommentSource
	Embedder Embedder
	Insights InsightProvider
	Cache    EmbeddingCache
	Archive  ReportArchive
	Filter   *RelevanceFilter
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(deps AnalysisDeps, cfg config.AnalysisConfig, maxComments, recentVideoCount int) *AnalysisService {
	filter := deps.Filter
	if filter == nil {
		filter = NewRelevanceFilter(nil)
	}
	return &AnalysisService{
		jobs:        deps.Jobs,
		channels:    deps.Channels,
		comments:    deps.Comments,
		clusters:    deps.Clusters,
		replies:     deps.Replies,
		source:      deps.Source,
		embedder:    deps.Embedder,
		insights:    deps.Insights,
		cache:       deps.Cache,
		archive:     deps.Archive,
		filter:      filter,
		engine:      NewClusteringEngine(cfg.SimilarityThreshold),
		ranker:      NewClusterRanker(cfg.RankWeights),
		cfg:         cfg,
		maxComments: maxComments,
		videoCount:  recentVideoCount,
	}
}

// CreateAnalysis is the dedup gate. It resolves the target, reuses any
// non-failed job created for it inside the dedup window, and otherwise creates
// a fresh pending job. Failed jobs never suppress a new attempt.
func (s *AnalysisService) CreateAnalysis(ctx context.Context, channelURL, videoURL string) (*CreateResult, error) {
	var (
		channel *domain.Channel
		video   *domain.Video
		err     error
	)

	switch {
	case videoURL != "":
		channel, video, err = s.resolveVideoTarget(ctx, videoURL)
	case channelURL != "":
		channel, video, err = s.resolveChannelTarget(ctx, channelURL)
	default:
		return nil, domain.NewValidationError("channel or video URL is required")
	}
	if err != nil {
		return nil, err
	}

	videoID := ""
	if video != nil {
		videoID = video.ID
	}

	cutoff := time.Now().Add(-s.cfg.DedupWindow())
	existing, err := s.jobs.FindRecentForTarget(ctx, channel.ID, videoID, cutoff)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != domain.JobStatusFailed {
		logger.With(logger.Fields{
			logger.FieldJobID:     existing.ID,
			logger.FieldChannelID: channel.ChannelID,
		}).Info(ctx, "reusing %s analysis job from dedup window", existing.Status)
		return &CreateResult{
			JobID:       existing.ID,
			Status:      existing.Status,
			ChannelID:   channel.ChannelID,
			ChannelName: channel.ChannelName,
			IsExisting:  true,
		}, nil
	}

	job := &domain.AnalysisJob{
		ID:        uuid.New().String(),
		ChannelID: channel.ID,
		VideoID:   videoID,
		Status:    domain.JobStatusPending,
		Progress:  0,
		Metadata:  domain.JSONMap{},
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldJobID:     job.ID,
		logger.FieldChannelID: channel.ChannelID,
	}).Info(ctx, "created analysis job")

	return &CreateResult{
		JobID:       job.ID,
		Status:      job.Status,
		ChannelID:   channel.ChannelID,
		ChannelName: channel.ChannelName,
		IsExisting:  false,
	}, nil
}

// resolveChannelTarget resolves a channel URL and picks the channel's newest
// upload as the video to analyze.
func (s *AnalysisService) resolveChannelTarget(ctx context.Context, channelURL string) (*domain.Channel, *domain.Video, error) {
	identifier := youtube.ExtractChannelIdentifier(channelURL)
	if identifier == "" {
		return nil, nil, domain.NewValidationError("invalid YouTube channel URL")
	}

	info, err := s.source.ResolveChannel(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}
	channel, err := s.upsertChannel(ctx, info)
	if err != nil {
		return nil, nil, err
	}

	videos, err := s.source.RecentVideos(ctx, info, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(videos) == 0 {
		return nil, nil, domain.NewNotFoundError("uploads for channel", identifier)
	}

	video, err := s.upsertVideo(ctx, channel.ID, videos[0])
	if err != nil {
		return nil, nil, err
	}
	return channel, video, nil
}

// resolveVideoTarget resolves a video URL together with its parent channel.
func (s *AnalysisService) resolveVideoTarget(ctx context.Context, videoURL string) (*domain.Channel, *domain.Video, error) {
	externalID := youtube.ExtractVideoID(videoURL)
	if externalID == "" {
		return nil, nil, domain.NewValidationError("invalid YouTube video URL")
	}

	details, err := s.source.VideoDetails(ctx, externalID)
	if err != nil {
		return nil, nil, err
	}
	info, err := s.source.ResolveChannel(ctx, details.ChannelID)
	if err != nil {
		return nil, nil, err
	}

	channel, err := s.upsertChannel(ctx, info)
	if err != nil {
		return nil, nil, err
	}
	video, err := s.upsertVideo(ctx, channel.ID, details)
	if err != nil {
		return nil, nil, err
	}
	return channel, video, nil
}

func (s *AnalysisService) upsertChannel(ctx context.Context, info *youtube.Channel) (*domain.Channel, error) {
	channel := &domain.Channel{
		ID:              uuid.New().String(),
		ChannelID:       info.ID,
		ChannelName:     info.Title,
		ThumbnailURL:    info.ThumbnailURL,
		SubscriberCount: info.SubscriberCount,
	}
	if err := s.channels.Upsert(ctx, channel); err != nil {
		return nil, err
	}
	// Re-read so repeat targets keep the original row id.
	return s.channels.GetByExternalID(ctx, info.ID)
}

func (s *AnalysisService) upsertVideo(ctx context.Context, channelID string, info *youtube.Video) (*domain.Video, error) {
	video := &domain.Video{
		ID:           uuid.New().String(),
		VideoID:      info.ID,
		ChannelID:    channelID,
		Title:        info.Title,
		CommentCount: info.CommentCount,
		PublishedAt:  info.PublishedAt,
	}
	if err := s.channels.UpsertVideo(ctx, video); err != nil {
		return nil, err
	}
	return s.channels.GetVideoByExternalID(ctx, info.ID)
}

// Run executes the pipeline for one job. It first claims the job; a second
// trigger for the same id loses the claim and returns without side effects.
// Stage errors are captured onto the job record, never returned to the
// trigger, so Run only errors on claim-level infrastructure failures.
func (s *AnalysisService) Run(ctx context.Context, jobID string) error {
	claimed, err := s.jobs.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		logger.With(logger.Fields{
			logger.FieldJobID: jobID,
		}).Info(ctx, "job already claimed or terminal, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()
	ctx = logger.SetJobID(ctx, jobID)

	if err := s.runPipeline(ctx, jobID); err != nil {
		s.failJob(ctx, jobID, err)
	}
	return nil
}

// failJob records the failure on the job. Uses a detached context so a
// deadline that killed the pipeline cannot also block the bookkeeping.
func (s *AnalysisService) failJob(ctx context.Context, jobID string, err error) {
	logger.With(logger.Fields{
		logger.FieldJobID: jobID,
	}).WithField("error", err.Error()).Error(ctx, "analysis job failed")

	message := err.Error()
	if !domain.IsEmptyResult(err) && !domain.IsNotFound(err) && !domain.IsValidation(err) {
		var upstream *domain.UpstreamError
		if !errors.As(err, &upstream) {
			// Unexpected failure: callers see a generic message, the detail
			// stays in the server log.
			message = "internal error"
		}
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if markErr := s.jobs.MarkFailed(saveCtx, jobID, message); markErr != nil {
		logger.CtxError(ctx, "failed to mark job %s as failed: %v", jobID, markErr)
	}
}

func (s *AnalysisService) runPipeline(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	channel, err := s.channels.GetByID(ctx, job.ChannelID)
	if err != nil {
		return err
	}
	if job.VideoID == "" {
		return domain.NewValidationError("job has no target video")
	}
	video, err := s.channels.GetVideoByRowID(ctx, job.VideoID)
	if err != nil {
		return err
	}
	ctx = logger.SetChannelID(ctx, channel.ChannelID)
	ctx = logger.SetVideoID(ctx, video.VideoID)

	if err := s.jobs.SetProgress(ctx, jobID, 5); err != nil {
		return err
	}

	// Fetch the target's comments and the channel's recent uploads
	// concurrently; both must succeed before the pipeline proceeds.
	comments, recentVideos, err := s.fetchContext(ctx, channel, video)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		return domain.NewEmptyResultError("no comments found for video")
	}
	if err := s.jobs.SetProgress(ctx, jobID, 15); err != nil {
		return err
	}

	relevant, total, err := s.filterAndPersist(ctx, video, comments)
	if err != nil {
		return err
	}
	if len(relevant) == 0 {
		return domain.NewEmptyResultError("no relevant comments found after filtering")
	}
	if err := s.jobs.SetProgress(ctx, jobID, 40); err != nil {
		return err
	}

	vectors, err := s.embedComments(ctx, video, relevant)
	if err != nil {
		return err
	}
	if err := s.jobs.SetProgress(ctx, jobID, 50); err != nil {
		return err
	}

	clusters := s.engine.Cluster(vectors)
	top := s.ranker.TopClusters(clusters, s.cfg.TopClusters)
	logger.With(logger.Fields{
		logger.FieldStage: "clustering",
	}).WithCount(len(clusters)).Info(ctx, "clustered %d comments, keeping top %d", len(vectors), len(top))
	if err := s.jobs.SetProgress(ctx, jobID, 65); err != nil {
		return err
	}

	clusterIDs := make([]string, len(top))
	for i := range top {
		clusterIDs[i] = uuid.New().String()
	}

	recentTitles := make([]string, 0, len(recentVideos))
	for _, v := range recentVideos {
		recentTitles = append(recentTitles, v.Title)
	}
	insightInput := make([]ClusterForInsight, 0, len(top))
	for i, cluster := range top {
		insightInput = append(insightInput, ClusterForInsight{
			ID:          clusterIDs[i],
			MemberCount: len(cluster.Members),
			TotalLikes:  cluster.TotalLikes,
			Examples:    cluster.Examples(5),
		})
	}
	insights, err := s.insights.GenerateClusterInsights(ctx, insightInput, channel.ChannelName, recentTitles)
	if err != nil {
		return err
	}
	if err := s.jobs.SetProgress(ctx, jobID, 80); err != nil {
		return err
	}

	replyRows, err := s.suggestReplies(ctx, job, channel, top, clusterIDs, insights)
	if err != nil {
		return err
	}

	// Derived rows are written only after every provider call has succeeded:
	// a failed job leaves no cluster or reply rows behind.
	if err := s.persistClusters(ctx, job, channel, top, clusterIDs, insights); err != nil {
		return err
	}
	if len(replyRows) > 0 {
		if err := s.replies.CreateBatch(ctx, replyRows); err != nil {
			return err
		}
	}
	if err := s.jobs.SetProgress(ctx, jobID, 95); err != nil {
		return err
	}

	metadata := domain.JSONMap{
		"totalAnalyzed": total,
		"filteredCount": len(relevant),
	}
	if s.archive != nil {
		if key, archiveErr := s.archiveReport(ctx, job, channel, top, clusterIDs, insights); archiveErr != nil {
			// The report export is best effort: the analysis itself succeeded.
			logger.CtxWarn(ctx, "report archive failed: %v", archiveErr)
		} else {
			metadata["reportKey"] = key
		}
	}

	if err := s.jobs.MarkComplete(ctx, jobID, metadata); err != nil {
		return err
	}
	logger.With(logger.Fields{
		logger.FieldJobID: jobID,
	}).WithStatus(string(domain.JobStatusComplete)).Info(ctx, "analysis complete: %d comments, %d relevant, %d clusters", total, len(relevant), len(top))
	return nil
}

// fetchContext gathers comments and recent uploads in parallel and joins both.
func (s *AnalysisService) fetchContext(ctx context.Context, channel *domain.Channel, video *domain.Video) ([]*youtube.Comment, []*youtube.Video, error) {
	type commentResult struct {
		comments []*youtube.Comment
		err      error
	}
	type videoResult struct {
		videos []*youtube.Video
		err    error
	}

	commentCh := make(chan commentResult, 1)
	videoCh := make(chan videoResult, 1)

	go func() {
		comments, err := s.source.VideoComments(ctx, video.VideoID, s.maxComments)
		commentCh <- commentResult{comments, err}
	}()
	go func() {
		videos, err := s.source.RecentVideos(ctx, &youtube.Channel{ID: channel.ChannelID}, s.videoCount)
		videoCh <- videoResult{videos, err}
	}()

	cr := <-commentCh
	vr := <-videoCh
	if cr.err != nil {
		return nil, nil, cr.err
	}
	if vr.err != nil {
		return nil, nil, vr.err
	}
	return cr.comments, vr.videos, nil
}

// filterAndPersist classifies and upserts every fetched comment, then reloads
// the relevant ones from the database in deterministic published order.
func (s *AnalysisService) filterAndPersist(ctx context.Context, video *domain.Video, comments []*youtube.Comment) ([]*domain.Comment, int, error) {
	rows := make([]*domain.Comment, 0, len(comments))
	for _, c := range comments {
		rows = append(rows, &domain.Comment{
			ID:          uuid.New().String(),
			CommentID:   c.ID,
			VideoID:     video.ID,
			Text:        c.Text,
			AuthorName:  c.AuthorName,
			LikeCount:   int(c.LikeCount),
			ReplyCount:  int(c.ReplyCount),
			IsRelevant:  s.filter.IsRelevant(c.Text),
			PublishedAt: c.PublishedAt,
		})
	}
	if err := s.comments.UpsertBatch(ctx, rows); err != nil {
		return nil, 0, err
	}

	relevant, err := s.comments.ListRelevantByVideo(ctx, video.ID)
	if err != nil {
		return nil, 0, err
	}
	return relevant, len(comments), nil
}

// embedComments produces one vector per relevant comment, consulting the
// embedding cache first and embedding only the misses.
func (s *AnalysisService) embedComments(ctx context.Context, video *domain.Video, relevant []*domain.Comment) ([]*CommentVector, error) {
	cached := map[string][]float32{}
	if s.cache != nil {
		ids := make([]string, 0, len(relevant))
		for _, c := range relevant {
			ids = append(ids, c.CommentID)
		}
		hits, err := s.cache.GetEmbeddings(ctx, ids)
		if err != nil {
			// A cache outage degrades to embedding everything.
			logger.CtxWarn(ctx, "embedding cache lookup failed: %v", err)
		} else {
			cached = hits
		}
	}

	var missing []*domain.Comment
	for _, c := range relevant {
		if _, ok := cached[c.CommentID]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, c := range missing {
			texts[i] = c.Text
		}
		embedded, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}

		fresh := make([]repository.CommentEmbedding, 0, len(missing))
		for i, c := range missing {
			cached[c.CommentID] = embedded[i]
			fresh = append(fresh, repository.CommentEmbedding{
				CommentID: c.CommentID,
				VideoID:   video.VideoID,
				Vector:    embedded[i],
			})
		}
		if s.cache != nil {
			if err := s.cache.UpsertEmbeddings(ctx, fresh); err != nil {
				logger.CtxWarn(ctx, "embedding cache store failed: %v", err)
			}
		}
	}

	recentCutoff := time.Now().AddDate(0, 0, -s.cfg.RecentDays)
	vectors := make([]*CommentVector, 0, len(relevant))
	for _, c := range relevant {
		vectors = append(vectors, &CommentVector{
			CommentID:  c.ID,
			Text:       c.Text,
			LikeCount:  int64(c.LikeCount),
			ReplyCount: int64(c.ReplyCount),
			IsRecent:   c.PublishedAt.After(recentCutoff),
			Vector:     cached[c.CommentID],
		})
	}
	return vectors, nil
}

func (s *AnalysisService) persistClusters(ctx context.Context, job *domain.AnalysisJob, channel *domain.Channel, top []*RankedCluster, clusterIDs []string, insights map[string]ClusterInsight) error {
	for i, cluster := range top {
		insight := insights[clusterIDs[i]]

		row := &domain.Cluster{
			ID:                    clusterIDs[i],
			AnalysisJobID:         job.ID,
			ChannelID:             channel.ID,
			Label:                 insight.Label,
			CommentCount:          len(cluster.Members),
			TotalLikes:            int(cluster.TotalLikes),
			Score:                 cluster.Score,
			Rank:                  cluster.Rank,
			RepresentativeComment: cluster.RepresentativeComment.Text,
			VideoIdea:             insight.VideoIdea,
			SuggestedPinnedReply:  insight.SuggestedPinnedReply,
		}

		memberIDs := make([]string, 0, len(cluster.Members))
		for _, member := range cluster.Members {
			memberIDs = append(memberIDs, member.CommentID)
		}
		if err := s.clusters.CreateWithMembers(ctx, row, memberIDs); err != nil {
			return err
		}
	}
	return nil
}

// suggestReplies selects the top 2 comments per cluster by likes, capped at
// the configured global maximum, and asks the provider which deserve a
// personal reply. It only builds the rows; the pipeline persists them
// together with the cluster rows once both provider calls have succeeded.
func (s *AnalysisService) suggestReplies(ctx context.Context, job *domain.AnalysisJob, channel *domain.Channel, top []*RankedCluster, clusterIDs []string, insights map[string]ClusterInsight) ([]*domain.ReplyOpportunity, error) {
	type candidateRef struct {
		commentRowID string
		clusterID    string
	}

	var candidates []ReplyCandidate
	var refs []candidateRef
	for i, cluster := range top {
		label := insights[clusterIDs[i]].Label
		for _, member := range cluster.TopMembers(s.cfg.RepliesPerCluster) {
			if len(candidates) >= s.cfg.MaxReplyCandidates {
				break
			}
			candidates = append(candidates, ReplyCandidate{
				CommentID:    member.CommentID,
				Text:         member.Text,
				LikeCount:    member.LikeCount,
				ClusterLabel: label,
			})
			refs = append(refs, candidateRef{commentRowID: member.CommentID, clusterID: clusterIDs[i]})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	suggestions, err := s.insights.GenerateReplySuggestions(ctx, candidates, channel.ChannelName)
	if err != nil {
		return nil, err
	}

	rows := make([]*domain.ReplyOpportunity, 0, len(suggestions))
	for _, suggestion := range suggestions {
		ref := refs[suggestion.CandidateIndex]
		rows = append(rows, &domain.ReplyOpportunity{
			ID:             uuid.New().String(),
			AnalysisJobID:  job.ID,
			ClusterID:      ref.clusterID,
			CommentID:      ref.commentRowID,
			Reason:         suggestion.Reason,
			SuggestedReply: suggestion.SuggestedReply,
			PriorityScore:  suggestion.PriorityScore,
		})
	}
	return rows, nil
}

// archiveReport exports a compact JSON report of the finished analysis.
func (s *AnalysisService) archiveReport(ctx context.Context, job *domain.AnalysisJob, channel *domain.Channel, top []*RankedCluster, clusterIDs []string, insights map[string]ClusterInsight) (string, error) {
	type reportCluster struct {
		Label                 string   `json:"label"`
		Rank                  int      `json:"rank"`
		CommentCount          int      `json:"commentCount"`
		TotalLikes            int64    `json:"totalLikes"`
		RepresentativeComment string   `json:"representativeComment"`
		VideoIdea             string   `json:"videoIdea,omitempty"`
		SuggestedPinnedReply  string   `json:"suggestedPinnedReply,omitempty"`
		Examples              []string `json:"examples"`
	}

	report := struct {
		JobID       string          `json:"jobId"`
		ChannelName string          `json:"channelName"`
		GeneratedAt time.Time       `json:"generatedAt"`
		Clusters    []reportCluster `json:"clusters"`
	}{
		JobID:       job.ID,
		ChannelName: channel.ChannelName,
		GeneratedAt: time.Now(),
	}
	for i, cluster := range top {
		insight := insights[clusterIDs[i]]
		report.Clusters = append(report.Clusters, reportCluster{
			Label:                 insight.Label,
			Rank:                  cluster.Rank,
			CommentCount:          len(cluster.Members),
			TotalLikes:            cluster.TotalLikes,
			RepresentativeComment: cluster.RepresentativeComment.Text,
			VideoIdea:             insight.VideoIdea,
			SuggestedPinnedReply:  insight.SuggestedPinnedReply,
			Examples:              cluster.Examples(3),
		})
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	return s.archive.StoreReport(ctx, job.ID, payload)
}
