package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	logx "jobd/pkg/logx"
)

func (s *Service) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("dur", time.Since(start)),
		)
	}
}

func (s *Service) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		pattern := c.FullPath()
		if pattern == "" {
			pattern = "unknown"
		}
		s.met.ObserveHTTP(c.Request.Method, pattern, c.Writer.Status(),
			float64(time.Since(start).Milliseconds()))
	}
}

// rateLimit applies a global token bucket to the whole API. The API is
// a small read-only diagnostics surface; per-client fairness is not
// worth the bookkeeping here.
func (s *Service) rateLimit() gin.HandlerFunc {
	burst := s.cfg.Burst
	if burst <= 0 {
		burst = s.cfg.RatePerSec
	}
	lim := rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), burst)
	return func(c *gin.Context) {
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}
