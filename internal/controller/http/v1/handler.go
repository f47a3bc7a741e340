package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/usecase"
)

type Handler struct {
	jobs      *usecase.Orchestrator
	dashboard *usecase.DashboardService
	cacheName string
}

func NewHandler(jobs *usecase.Orchestrator, dashboard *usecase.DashboardService, cacheName string) *Handler {
	return &Handler{jobs: jobs, dashboard: dashboard, cacheName: cacheName}
}

type SubmitJobRequest struct {
	VideoSource string  `json:"video_source" binding:"required"`
	Interval    float64 `json:"interval"`
}

func (h *Handler) SubmitJob(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_source is required"})
		return
	}
	if req.Interval == 0 {
		req.Interval = 5.0
	}
	if req.Interval < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be positive"})
		return
	}

	jobID, err := h.jobs.SubmitJob(c.Request.Context(), req.VideoSource, req.Interval)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInterval) || errors.Is(err, usecase.ErrMissingSource) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":  jobID,
		"status":  entity.JobStatusPending,
		"message": "Job submitted successfully",
	})
}

func (h *Handler) GetJobStatus(c *gin.Context) {
	job, err := h.jobs.GetJobStatus(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, entity.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job.View())
}

func (h *Handler) GetJobFrames(c *gin.Context) {
	frames, err := h.jobs.ListFrames(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, entity.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"frames": frames, "count": len(frames)})
}

func (h *Handler) GetRecentFrames(c *gin.Context) {
	sinceMinutes, err := strconv.Atoi(c.DefaultQuery("since_minutes", "60"))
	if err != nil || sinceMinutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since_minutes must be a positive integer"})
		return
	}
	jobID := c.Query("job_id")

	frames, err := h.dashboard.RecentFrames(c.Request.Context(), sinceMinutes, jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"frames": frames, "count": len(frames)})
}

func (h *Handler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := h.jobs.CancelJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, entity.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job " + jobID + " cancelled and cleaned up successfully"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339Nano),
		"cache_backend": h.cacheName,
		"active_jobs":   h.jobs.ActiveJobs(),
	})
}
