package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/service"
	"github.com/replyt/replyt/internal/worker"
)

// AnalysisHandler handles the analysis job endpoints.
type AnalysisHandler struct {
	analysis *service.AnalysisService
	results  *service.ResultsService
	profiles *service.ProfileService
	runner   *worker.Runner
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysis *service.AnalysisService, results *service.ResultsService, profiles *service.ProfileService, runner *worker.Runner) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		results:  results,
		profiles: profiles,
		runner:   runner,
	}
}

// CreateAnalysisRequest is the body of POST /api/v1/analyses.
// Exactly one of the two URLs should be set; videoUrl wins when both are.
type CreateAnalysisRequest struct {
	ChannelURL string `json:"channelUrl"`
	VideoURL   string `json:"videoUrl"`
}

// Create handles POST /api/v1/analyses.
func (h *AnalysisHandler) Create(c *gin.Context) {
	var req CreateAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	result, err := h.analysis.CreateAnalysis(c.Request.Context(), req.ChannelURL, req.VideoURL)
	if err != nil {
		writeError(c, err)
		return
	}

	// New jobs are handed to the worker pool; the request does not wait for
	// the pipeline.
	if !result.IsExisting {
		h.runner.Enqueue(result.JobID)
	}

	c.JSON(http.StatusOK, result)
}

// Status handles GET /api/v1/analyses/:jobId.
func (h *AnalysisHandler) Status(c *gin.Context) {
	job, err := h.results.GetStatus(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{
		"jobId":    job.ID,
		"status":   job.Status,
		"progress": job.Progress,
	}
	if job.ErrorMessage != "" {
		resp["errorMessage"] = job.ErrorMessage
	}
	c.JSON(http.StatusOK, resp)
}

// Results handles GET /api/v1/analyses/:jobId/results.
func (h *AnalysisHandler) Results(c *gin.Context) {
	results, err := h.results.GetResults(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// Report handles GET /api/v1/analyses/:jobId/report. It serves the archived
// JSON report of a completed job along with its public URL.
func (h *AnalysisHandler) Report(c *gin.Context) {
	report, url, err := h.results.GetReport(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":    url,
		"report": json.RawMessage(report),
	})
}

// PrioritizedComments handles GET /api/v1/channels/:channelId/comments.
// channelId is the internal channel row id returned by earlier calls.
func (h *AnalysisHandler) PrioritizedComments(c *gin.Context) {
	limit := 50
	comments, err := h.profiles.PrioritizeComments(c.Request.Context(), c.Param("channelId"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"total":    len(comments),
	})
}

// writeError maps the error taxonomy onto HTTP statuses. Pipeline failures
// never reach this path; they live on the job record.
func writeError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsNotReady(err):
		var notReady *domain.NotReadyError
		errors.As(err, &notReady)
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Analysis not yet complete",
			"status": notReady.Status,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
