package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTooManyAttempts = errors.New("ratelimit: too many attempts")

// RateLimiter counts attempts per subject in redis with a sliding expiry.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redis *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis: redis,
	}
}

// CheckSignIn limits interactive sign-in starts per subject.
func (r *RateLimiter) CheckSignIn(ctx context.Context, subject string) error {
	key := fmt.Sprintf("signin_attempts:%s", subject)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		r.redis.Expire(ctx, key, 15*time.Minute)
	}

	if count > 5 {
		return ErrTooManyAttempts
	}

	return nil
}

// CheckBulkImport limits roster imports per acting admin. Each import fans
// out into many directory calls, so the ceiling is low.
func (r *RateLimiter) CheckBulkImport(ctx context.Context, adminID string) error {
	key := fmt.Sprintf("bulk_import_attempts:%s", adminID)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		r.redis.Expire(ctx, key, 1*time.Hour)
	}

	if count > 3 {
		return ErrTooManyAttempts
	}

	return nil
}

// CheckEmailChange limits identity replacements per acting user.
func (r *RateLimiter) CheckEmailChange(ctx context.Context, userID string) error {
	key := fmt.Sprintf("email_change_attempts:%s", userID)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		r.redis.Expire(ctx, key, 1*time.Hour)
	}

	if count > 3 {
		return ErrTooManyAttempts
	}

	return nil
}

// ResetAttempts clears the counter for a subject and operation.
func (r *RateLimiter) ResetAttempts(ctx context.Context, subject, operation string) error {
	key := fmt.Sprintf("%s_attempts:%s", operation, subject)
	return r.redis.Del(ctx, key).Err()
}
