package api

import (
	"github.com/gin-gonic/gin"
	"github.com/replyt/replyt/internal/api/handler"
	"github.com/replyt/replyt/internal/api/middleware"
	"github.com/replyt/replyt/internal/config"
	"github.com/replyt/replyt/internal/logger"
	"github.com/replyt/replyt/internal/service"
	"github.com/replyt/replyt/internal/worker"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	analysisService *service.AnalysisService,
	resultsService *service.ResultsService,
	profileService *service.ProfileService,
	runner *worker.Runner,
	cfg *config.ServerConfig,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	analysisHandler := handler.NewAnalysisHandler(analysisService, resultsService, profileService, runner)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Analysis jobs
		v1.POST("/analyses", analysisHandler.Create)
		v1.GET("/analyses/:jobId", analysisHandler.Status)
		v1.GET("/analyses/:jobId/results", analysisHandler.Results)
		v1.GET("/analyses/:jobId/report", analysisHandler.Report)

		// Prioritized comment inbox
		v1.GET("/channels/:channelId/comments", analysisHandler.PrioritizedComments)
	}

	return r
}
