package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/askdoc/askdoc/internal/pkg/response"
	"github.com/askdoc/askdoc/internal/service"
)

type JobHandler struct {
	jobs *service.JobService
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}

func (h *JobHandler) List(c *gin.Context) {
	var statuses []string
	if status := c.Query("status"); status != "" {
		statuses = []string{status}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := h.jobs.List(c.Request.Context(), statuses, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"jobs": jobs})
}

func (h *JobHandler) Requeue(c *gin.Context) {
	jobID := c.Param("id")
	if err := h.jobs.Requeue(c.Request.Context(), jobID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"jobId": jobID, "status": "queued"})
}
