package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"github.com/replyt/replyt/internal/config"
	"github.com/replyt/replyt/internal/logger"
	"github.com/replyt/replyt/internal/repository"
	"github.com/replyt/replyt/internal/service"
	"github.com/replyt/replyt/internal/youtube"
)

// analyze runs one analysis job synchronously from the command line and
// prints the results as JSON. Useful for smoke-testing a deployment without
// the HTTP surface.
func main() {
	channelURL := flag.String("channel", "", "YouTube channel URL or @handle to analyze")
	videoURL := flag.String("video", "", "YouTube video URL to analyze (takes precedence over -channel)")
	flag.Parse()

	if *channelURL == "" && *videoURL == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -channel <url> | -video <url>")
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	jobRepo := repository.NewJobRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	clusterRepo := repository.NewClusterRepository(db)
	replyRepo := repository.NewReplyRepository(db)

	youtubeClient := youtube.NewClient(&youtube.ClientConfig{
		APIKey:  cfg.YouTube.APIKey,
		BaseURL: cfg.YouTube.BaseURL,
	})
	embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		BatchDelay: cfg.Embedding.BatchDelay,
	})
	insightService := service.NewInsightService(&service.InsightServiceConfig{
		Model:   cfg.Insight.Model,
		APIKey:  cfg.Insight.APIKey,
		BaseURL: cfg.Insight.BaseURL,
	})

	analysisService := service.NewAnalysisService(service.AnalysisDeps{
		Jobs:     jobRepo,
		Channels: channelRepo,
		Comments: commentRepo,
		Clusters: clusterRepo,
		Replies:  replyRepo,
		Source:   youtubeClient,
		Embedder: embeddingService,
		Insights: insightService,
		Filter:   service.NewRelevanceFilter(nil),
	}, cfg.Analysis, cfg.YouTube.MaxCommentsPerVideo, cfg.YouTube.RecentVideoCount)
	resultsService := service.NewResultsService(jobRepo, channelRepo, commentRepo, clusterRepo, replyRepo, nil)

	ctx := context.Background()

	created, err := analysisService.CreateAnalysis(ctx, *channelURL, *videoURL)
	if err != nil {
		logger.Fatal("Failed to create analysis: %v", err)
	}
	if created.IsExisting {
		logger.Info("Reusing recent analysis %s (status=%s)", created.JobID, created.Status)
	} else {
		logger.Info("Created analysis %s for channel %s", created.JobID, created.ChannelName)
		if err := analysisService.Run(ctx, created.JobID); err != nil {
			logger.Fatal("Analysis run failed: %v", err)
		}
	}

	results, err := resultsService.GetResults(ctx, created.JobID)
	if err != nil {
		// A failed pipeline surfaces here as a not-ready job; report the
		// stored failure message instead of a bare error.
		job, statusErr := resultsService.GetStatus(ctx, created.JobID)
		if statusErr == nil && job.ErrorMessage != "" {
			logger.Fatal("Analysis failed: %s", job.ErrorMessage)
		}
		logger.Fatal("Failed to load results: %v", err)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode results: %v", err)
	}
	fmt.Println(string(out))
}
