package http

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"sentinel/internal/domain"

	"github.com/gin-gonic/gin"
)

// concurrencyGuard sheds load when too many requests are in flight across
// all instances, approximated with a short sliding window on the shared
// limiter. Limiter errors fail open here: load shedding is an availability
// aid, not an authentication gate.
func (s *Server) concurrencyGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.quota == nil || s.quota.Limiter == nil {
			c.Next()
			return
		}
		decision, err := s.quota.CheckConcurrentLimit(c.Request.Context(), "api")
		if err != nil {
			log.Printf("concurrency guard: limiter unavailable, failing open: %v", err)
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeErrorCode(c, http.StatusServiceUnavailable, "OVERLOADED", "too many requests in flight, retry shortly")
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
