package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prelimth/examgate/internal/observability/logger"
	"go.uber.org/zap"
)

type registrationRateLimitKey struct {
	UserID string `json:"user_id"`
}

// RegistrationRateLimit throttles admission attempts per user. The limiter
// is advisory; when Redis is unreachable the request proceeds and the
// database caps still hold.
func (s *Server) RegistrationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		userID, err := readRegistrationKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("registration rate limit read body failed", zap.Error(err))
			AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
			return
		}
		if userID == "" {
			c.Next()
			return
		}

		allowed, err := s.limiter.AllowUser(ctx, userID)
		if err != nil {
			logger.FromContext(ctx).Warn("registration rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			logger.FromContext(ctx).Warn("registration rate limit exceeded",
				zap.String("endpoint", c.FullPath()),
			)
			c.Header("Retry-After", "1")
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func readRegistrationKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload registrationRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	return strings.TrimSpace(payload.UserID), nil
}
