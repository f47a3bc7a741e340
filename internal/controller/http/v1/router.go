package v1

import "github.com/gin-gonic/gin"

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/video-job", h.SubmitJob)
	r.GET("/job-status/:job_id", h.GetJobStatus)
	r.GET("/frames/:job_id", h.GetJobFrames)
	r.GET("/dashboard/recent-frames", h.GetRecentFrames)
	r.DELETE("/job/:job_id", h.CancelJob)
	r.GET("/health", h.Health)

	return r
}
