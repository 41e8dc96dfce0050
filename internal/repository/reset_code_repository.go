package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

const (
	resetCodePrefix     = "reset_code:"
	resetAttemptsPrefix = "reset_code_attempts:"
)

// ResetCodeRepository keeps password reset codes in Redis, one per email, expiring on their own.
type ResetCodeRepository struct {
	client redis.Cmdable
}

// NewResetCodeRepository constructs the store.
func NewResetCodeRepository(client redis.Cmdable) *ResetCodeRepository {
	return &ResetCodeRepository{client: client}
}

// Save stores code for email, replacing any earlier code and its failed attempts.
func (r *ResetCodeRepository) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	key := resetCodeKey(email)
	if err := r.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	if err := r.client.Del(ctx, resetAttemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", resetAttemptsKey(email), err)
	}
	return nil
}

// IncrementAttempts counts one failed check against the code for email. The counter
// expires with ttl from its first increment.
func (r *ResetCodeRepository) IncrementAttempts(ctx context.Context, email string, ttl time.Duration) (int64, error) {
	key := resetAttemptsKey(email)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, fmt.Errorf("redis expire %s: %w", key, err)
		}
	}
	return n, nil
}

// Get returns the live code for email or appErrors.ErrCacheMiss.
func (r *ResetCodeRepository) Get(ctx context.Context, email string) (string, error) {
	key := resetCodeKey(email)
	code, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return code, nil
}

// Delete consumes the code for email along with its attempt counter.
func (r *ResetCodeRepository) Delete(ctx context.Context, email string) error {
	key := resetCodeKey(email)
	if err := r.client.Del(ctx, key, resetAttemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func resetCodeKey(email string) string {
	return resetCodePrefix + strings.ToLower(strings.TrimSpace(email))
}

func resetAttemptsKey(email string) string {
	return resetAttemptsPrefix + strings.ToLower(strings.TrimSpace(email))
}
