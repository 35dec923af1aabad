package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/replyt/replyt/internal/config"
	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/repository"
	"github.com/replyt/replyt/internal/youtube"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeSource serves canned channel, video and comment data.
type fakeSource struct {
	channel     *youtube.Channel
	video       *youtube.Video
	recent      []*youtube.Video
	comments    []*youtube.Comment
	commentsErr error
}

func (f *fakeSource) ResolveChannel(ctx context.Context, identifier string) (*youtube.Channel, error) {
	return f.channel, nil
}

func (f *fakeSource) RecentVideos(ctx context.Context, channel *youtube.Channel, limit int) ([]*youtube.Video, error) {
	if limit > 0 && len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeSource) VideoDetails(ctx context.Context, videoID string) (*youtube.Video, error) {
	return f.video, nil
}

func (f *fakeSource) VideoComments(ctx context.Context, videoID string, maxComments int) ([]*youtube.Comment, error) {
	if f.commentsErr != nil {
		return nil, f.commentsErr
	}
	return f.comments, nil
}

// fakeEmbedder returns a fixed vector per text.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no canned vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

// fakeInsights labels every cluster it is given and suggests a reply for the
// first candidate.
type fakeInsights struct {
	insightErr error
	replyErr   error
}

func (f *fakeInsights) GenerateClusterInsights(ctx context.Context, clusters []ClusterForInsight, channelName string, recentVideoTitles []string) (map[string]ClusterInsight, error) {
	if f.insightErr != nil {
		return nil, f.insightErr
	}
	out := make(map[string]ClusterInsight, len(clusters))
	for i, c := range clusters {
		out[c.ID] = ClusterInsight{
			Label:                fmt.Sprintf("Topic %d", i+1),
			VideoIdea:            fmt.Sprintf("Idea %d", i+1),
			SuggestedPinnedReply: fmt.Sprintf("Pin %d", i+1),
		}
	}
	return out, nil
}

func (f *fakeInsights) GenerateReplySuggestions(ctx context.Context, candidates []ReplyCandidate, channelName string) ([]ReplySuggestion, error) {
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return []ReplySuggestion{
		{CandidateIndex: 0, Reason: "top comment", SuggestedReply: "Thanks!", PriorityScore: 90},
	}, nil
}

// fakeArchive keeps archived reports in memory.
type fakeArchive struct {
	reports map[string][]byte
}

func (f *fakeArchive) StoreReport(ctx context.Context, jobID string, report []byte) (string, error) {
	key := "reports/test/" + jobID + ".json"
	f.reports[key] = report
	return key, nil
}

func (f *fakeArchive) FetchReport(ctx context.Context, key string) ([]byte, error) {
	report, ok := f.reports[key]
	if !ok {
		return nil, fmt.Errorf("no archived report %s", key)
	}
	return report, nil
}

func (f *fakeArchive) ReportURL(key string) string {
	return "https://cdn.test/" + key
}

type analysisTestEnv struct {
	analysis *AnalysisService
	results  *ResultsService
	jobs     *repository.JobRepository
	clusters *repository.ClusterRepository
	replies  *repository.ReplyRepository
	source   *fakeSource
	archive  *fakeArchive
}

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		SimilarityThreshold: 0.85,
		TopClusters:         10,
		DedupWindowDays:     7,
		RecentDays:          30,
		JobTimeout:          300 * time.Second,
		RepliesPerCluster:   2,
		MaxReplyCandidates:  15,
		RankWeights:         config.RankWeights{MemberCount: 1.0, TotalLikes: 0.3, RecentCount: 0.5},
	}
}

func newAnalysisTestEnv(t *testing.T, source *fakeSource, embedder Embedder, insights InsightProvider) *analysisTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	jobs := repository.NewJobRepository(db)
	channels := repository.NewChannelRepository(db)
	comments := repository.NewCommentRepository(db)
	clusters := repository.NewClusterRepository(db)
	replies := repository.NewReplyRepository(db)

	archive := &fakeArchive{reports: map[string][]byte{}}
	analysis := NewAnalysisService(AnalysisDeps{
		Jobs:     jobs,
		Channels: channels,
		Comments: comments,
		Clusters: clusters,
		Replies:  replies,
		Source:   source,
		Embedder: embedder,
		Insights: insights,
		Archive:  archive,
	}, testAnalysisConfig(), 500, 20)

	return &analysisTestEnv{
		analysis: analysis,
		results:  NewResultsService(jobs, channels, comments, clusters, replies, archive),
		jobs:     jobs,
		clusters: clusters,
		replies:  replies,
		source:   source,
		archive:  archive,
	}
}

func defaultFakeSource() *fakeSource {
	now := time.Now()
	return &fakeSource{
		channel: &youtube.Channel{ID: "UCtest", Title: "Test Creator", SubscriberCount: 1000},
		video: &youtube.Video{
			ID:          "abcdefghijk",
			ChannelID:   "UCtest",
			Title:       "Latest Upload",
			PublishedAt: now.Add(-48 * time.Hour),
		},
		recent: []*youtube.Video{
			{ID: "abcdefghijk", Title: "Latest Upload"},
			{ID: "lmnopqrstuv", Title: "Older Upload"},
		},
		comments: []*youtube.Comment{
			{ID: "y1", Text: "Why does the audio cut out near the end?", AuthorName: "alice", LikeCount: 10, PublishedAt: now.Add(-5 * time.Hour)},
			{ID: "y2", Text: "why is the audio so quiet in this upload", AuthorName: "bob", LikeCount: 5, PublishedAt: now.Add(-4 * time.Hour)},
			{ID: "y3", Text: "please add chapters to the longer videos", AuthorName: "carol", LikeCount: 20, PublishedAt: now.Add(-3 * time.Hour)},
			{ID: "y4", Text: "what camera do you use for these shots?", AuthorName: "dan", LikeCount: 2, PublishedAt: now.Add(-2 * time.Hour)},
			{ID: "y5", Text: "nice", AuthorName: "eve", LikeCount: 0, PublishedAt: now.Add(-1 * time.Hour)},
			{ID: "y6", Text: "check out my channel spamsite.com for more", AuthorName: "mallory", LikeCount: 0, PublishedAt: now},
		},
	}
}

func defaultFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"Why does the audio cut out near the end?": {1, 0, 0},
		"why is the audio so quiet in this upload": {1, 0, 0},
		"please add chapters to the longer videos": {0, 1, 0},
		"what camera do you use for these shots?":  {0, 0, 1},
	}}
}

func TestAnalysisEndToEnd(t *testing.T) {
	env := newAnalysisTestEnv(t, defaultFakeSource(), defaultFakeEmbedder(), &fakeInsights{})
	ctx := context.Background()

	created, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if created.IsExisting {
		t.Fatal("first analysis should not be existing")
	}
	if created.Status != domain.JobStatusPending {
		t.Fatalf("status = %s, want pending", created.Status)
	}

	if err := env.analysis.Run(ctx, created.JobID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, err := env.jobs.GetByID(ctx, created.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != domain.JobStatusComplete {
		t.Fatalf("status = %s (error=%q), want complete", job.Status, job.ErrorMessage)
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}

	results, err := env.results.GetResults(ctx, created.JobID)
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if results.ChannelName != "Test Creator" {
		t.Errorf("channel name = %q", results.ChannelName)
	}
	if len(results.Clusters) != 3 {
		t.Fatalf("got %d clusters, want 3", len(results.Clusters))
	}
	for i, cluster := range results.Clusters {
		if cluster.Rank != i+1 {
			t.Errorf("cluster[%d].Rank = %d, want %d", i, cluster.Rank, i+1)
		}
	}
	// Audio cluster: 2 members, 15 likes, 2 recent -> 7.5.
	// Chapters cluster: 1 member, 20 likes, 1 recent -> 7.5. Tie keeps
	// creation order, so the audio cluster ranks first.
	first := results.Clusters[0]
	if first.CommentCount != 2 {
		t.Errorf("top cluster has %d comments, want 2", first.CommentCount)
	}
	if first.RepresentativeComment != "Why does the audio cut out near the end?" {
		t.Errorf("representative = %q", first.RepresentativeComment)
	}
	if results.PinnedComment != "Pin 1" {
		t.Errorf("pinned comment = %q, want Pin 1", results.PinnedComment)
	}
	if len(results.VideoIdeas) != 3 {
		t.Errorf("got %d video ideas, want 3", len(results.VideoIdeas))
	}

	if len(results.ReplyOpportunities) != 1 {
		t.Fatalf("got %d reply opportunities, want 1", len(results.ReplyOpportunities))
	}
	reply := results.ReplyOpportunities[0]
	if reply.CommentText != "Why does the audio cut out near the end?" {
		t.Errorf("reply comment text = %q", reply.CommentText)
	}
	if reply.AuthorName != "alice" || reply.PriorityScore != 90 {
		t.Errorf("reply = %+v", reply)
	}

	report, url, err := env.results.GetReport(ctx, created.JobID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.test/reports/") {
		t.Errorf("report url = %q", url)
	}
	if !strings.Contains(string(report), `"channelName":"Test Creator"`) {
		t.Errorf("report = %s", report)
	}
}

func TestAnalysisDedupGate(t *testing.T) {
	env := newAnalysisTestEnv(t, defaultFakeSource(), defaultFakeEmbedder(), &fakeInsights{})
	ctx := context.Background()

	first, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}

	// Same target inside the window reuses the pending job.
	second, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if !second.IsExisting || second.JobID != first.JobID {
		t.Errorf("second create = %+v, want reuse of %s", second, first.JobID)
	}

	// Completed jobs also suppress creation.
	if err := env.analysis.Run(ctx, first.JobID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	third, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if !third.IsExisting || third.JobID != first.JobID {
		t.Errorf("third create = %+v, want reuse of %s", third, first.JobID)
	}
	if third.Status != domain.JobStatusComplete {
		t.Errorf("reused status = %s, want complete", third.Status)
	}
}

func TestAnalysisFailedJobDoesNotSuppressNewAttempt(t *testing.T) {
	source := defaultFakeSource()
	source.comments = nil
	env := newAnalysisTestEnv(t, source, defaultFakeEmbedder(), &fakeInsights{})
	ctx := context.Background()

	first, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if err := env.analysis.Run(ctx, first.JobID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, _ := env.jobs.GetByID(ctx, first.JobID)
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.ErrorMessage != "no comments found for video" {
		t.Errorf("error message = %q", job.ErrorMessage)
	}

	second, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if second.IsExisting || second.JobID == first.JobID {
		t.Errorf("a failed job must not suppress a new attempt, got %+v", second)
	}
}

func TestAnalysisNoRelevantComments(t *testing.T) {
	source := defaultFakeSource()
	source.comments = []*youtube.Comment{
		{ID: "y1", Text: "nice", PublishedAt: time.Now()},
		{ID: "y2", Text: "first", PublishedAt: time.Now()},
	}
	env := newAnalysisTestEnv(t, source, defaultFakeEmbedder(), &fakeInsights{})
	ctx := context.Background()

	created, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if err := env.analysis.Run(ctx, created.JobID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, _ := env.jobs.GetByID(ctx, created.JobID)
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	// The two empty-result cases carry distinct messages.
	if job.ErrorMessage != "no relevant comments found after filtering" {
		t.Errorf("error message = %q", job.ErrorMessage)
	}
	if job.Progress != 0 {
		t.Errorf("failed job progress = %d, want 0", job.Progress)
	}
}

func TestAnalysisInsightFailureCapturedOnJob(t *testing.T) {
	env := newAnalysisTestEnv(t, defaultFakeSource(), defaultFakeEmbedder(),
		&fakeInsights{insightErr: domain.NewUpstreamError("insight", fmt.Errorf("provider down"))})
	ctx := context.Background()

	created, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if err := env.analysis.Run(ctx, created.JobID); err != nil {
		t.Fatalf("Run should not propagate pipeline errors, got %v", err)
	}

	job, _ := env.jobs.GetByID(ctx, created.JobID)
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "insight failed") {
		t.Errorf("error message = %q, want the upstream stage named", job.ErrorMessage)
	}
}

func TestAnalysisReplyFailureLeavesNoDerivedRows(t *testing.T) {
	env := newAnalysisTestEnv(t, defaultFakeSource(), defaultFakeEmbedder(),
		&fakeInsights{replyErr: domain.NewUpstreamError("reply suggestions", fmt.Errorf("provider down"))})
	ctx := context.Background()

	created, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if err := env.analysis.Run(ctx, created.JobID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, _ := env.jobs.GetByID(ctx, created.JobID)
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "reply suggestions failed") {
		t.Errorf("error message = %q, want the upstream stage named", job.ErrorMessage)
	}

	// A failure after insight generation must not leave derived rows behind.
	clusters, err := env.clusters.ListByJob(ctx, created.JobID)
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("failed job has %d persisted cluster rows, want 0", len(clusters))
	}
	replies, err := env.replies.ListByJob(ctx, created.JobID, 100)
	if err != nil {
		t.Fatalf("list replies: %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("failed job has %d persisted reply rows, want 0", len(replies))
	}
}

func TestAnalysisSecondRunLosesClaim(t *testing.T) {
	env := newAnalysisTestEnv(t, defaultFakeSource(), defaultFakeEmbedder(), &fakeInsights{})
	ctx := context.Background()

	created, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if err := env.analysis.Run(ctx, created.JobID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The duplicate trigger loses the claim and leaves the job untouched.
	if err := env.analysis.Run(ctx, created.JobID); err != nil {
		t.Fatalf("duplicate Run: %v", err)
	}
	job, _ := env.jobs.GetByID(ctx, created.JobID)
	if job.Status != domain.JobStatusComplete || job.Progress != 100 {
		t.Errorf("duplicate run modified the job: status=%s progress=%d", job.Status, job.Progress)
	}
}

func TestAnalysisResultsNotReadyBeforeCompletion(t *testing.T) {
	env := newAnalysisTestEnv(t, defaultFakeSource(), defaultFakeEmbedder(), &fakeInsights{})
	ctx := context.Background()

	created, err := env.analysis.CreateAnalysis(ctx, "", "https://youtu.be/abcdefghijk")
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}

	_, err = env.results.GetResults(ctx, created.JobID)
	if !domain.IsNotReady(err) {
		t.Fatalf("expected NotReadyError for a pending job, got %v", err)
	}

	_, _, err = env.results.GetReport(ctx, created.JobID)
	if !domain.IsNotReady(err) {
		t.Fatalf("expected NotReadyError for a pending job's report, got %v", err)
	}
}

func TestAnalysisRequiresTargetURL(t *testing.T) {
	env := newAnalysisTestEnv(t, defaultFakeSource(), defaultFakeEmbedder(), &fakeInsights{})

	_, err := env.analysis.CreateAnalysis(context.Background(), "", "")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = env.analysis.CreateAnalysis(context.Background(), "", "https://example.com/not-a-video")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for a bad video URL, got %v", err)
	}
}
