package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/prelimth/examgate/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyRegistrationUser = "registration:user:%s"

// RegistrationLimiter caps how fast a single user may attempt admission.
// A nil limiter (no Redis configured) allows everything; capacity
// enforcement does not depend on it.
type RegistrationLimiter struct {
	enabled bool

	bucket *TokenBucket

	rate  float64
	burst int
}

func NewRegistrationLimiter(cfg config.Config) *RegistrationLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &RegistrationLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    cfg.RegistrationRateLimit,
		burst:   cfg.RegistrationRateBurst,
	}
}

func (l *RegistrationLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *RegistrationLimiter) AllowUser(ctx context.Context, userID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyRegistrationUser, strings.TrimSpace(userID)), l.rate, l.burst)
}
