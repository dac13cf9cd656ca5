package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxRunsLimit = 500

func (s *Service) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Service) handleJobs(c *gin.Context) {
	if s.sched == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": s.sched.Snapshot()})
}

func (s *Service) handleRuns(c *gin.Context) {
	if s.rec == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := s.rec.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
