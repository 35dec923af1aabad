package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/replyt/replyt/internal/api"
	"github.com/replyt/replyt/internal/config"
	"github.com/replyt/replyt/internal/logger"
	"github.com/replyt/replyt/internal/repository"
	"github.com/replyt/replyt/internal/service"
	"github.com/replyt/replyt/internal/storage"
	"github.com/replyt/replyt/internal/worker"
	"github.com/replyt/replyt/internal/youtube"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	log := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	clusterRepo := repository.NewClusterRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	ctx := context.Background()

	// Optional embedding cache (Qdrant)
	var embeddingCache service.EmbeddingCache
	if cfg.Vector.Enabled {
		vectorRepo, err := repository.NewVectorRepository(&repository.VectorConnectionConfig{
			Host:            cfg.Vector.Host,
			Port:            cfg.Vector.Port,
			Collection:      cfg.Vector.Collection,
			APIKey:          cfg.Vector.APIKey,
			UseTLS:          cfg.Vector.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			logger.Fatal("Failed to initialize vector repository: %v", err)
		}
		defer vectorRepo.Close()

		if err := vectorRepo.EnsureCollection(ctx); err != nil {
			logger.Fatal("Failed to ensure vector collection: %v", err)
		}
		embeddingCache = vectorRepo
	}

	// Optional report archive (S3-compatible)
	var reportArchive service.ReportArchive
	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewStorage(&storage.S3Config{
			Type:      storage.StorageType(cfg.Storage.Type),
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		if s3, ok := objectStorage.(*storage.S3Storage); ok {
			if err := s3.EnsureBucket(ctx); err != nil {
				logger.Fatal("Failed to ensure storage bucket: %v", err)
			}
		}
		reportArchive = storage.NewReportArchive(objectStorage)
	}

	// Initialize collaborator clients
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

	// Initialize services
	relevanceFilter := service.NewRelevanceFilter(nil)
	profileService := service.NewProfileService(profileRepo, commentRepo, relevanceFilter,
		cfg.Profile.TTL, cfg.Profile.SampleSize)
	analysisService := service.NewAnalysisService(service.AnalysisDeps{
		Jobs:     jobRepo,
		Channels: channelRepo,
		Comments: commentRepo,
		Clusters: clusterRepo,
		Replies:  replyRepo,
		Source:   youtubeClient,
		Embedder: embeddingService,
		Insights: insightService,
		Cache:    embeddingCache,
		Archive:  reportArchive,
		Filter:   relevanceFilter,
	}, cfg.Analysis, cfg.YouTube.MaxCommentsPerVideo, cfg.YouTube.RecentVideoCount)
	resultsService := service.NewResultsService(jobRepo, channelRepo, commentRepo, clusterRepo, replyRepo, reportArchive)

	// Start the worker pool and requeue jobs left pending by a prior run
	runner := worker.NewRunner(analysisService, jobRepo, cfg.Analysis.Workers, cfg.Analysis.QueueSize)
	if err := runner.Start(ctx); err != nil {
		logger.Fatal("Failed to start worker pool: %v", err)
	}

	// Setup router
	router := api.SetupRouter(analysisService, resultsService, profileService, runner, &cfg.Server, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown: %v", err)
	}

	// Let in-flight jobs finish before exiting
	runner.Stop()

	logger.Info("Server exited")
}
