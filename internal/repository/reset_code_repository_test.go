package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

// stubRedis keeps keys in memory and implements only the commands the repositories use.
type stubRedis struct {
	redis.Cmdable
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if s.err != nil {
		return redis.NewStatusResult("", s.err)
	}
	switch v := value.(type) {
	case []byte:
		s.values[key] = string(v)
	case string:
		s.values[key] = v
	default:
		s.values[key] = ""
	}
	s.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if s.err != nil {
		return redis.NewStringResult("", s.err)
	}
	v, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if s.err != nil {
		return redis.NewIntResult(0, s.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			n++
		}
		delete(s.values, k)
		delete(s.ttls, k)
	}
	return redis.NewIntResult(n, nil)
}

func (s *stubRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	if s.err != nil {
		return redis.NewIntResult(0, s.err)
	}
	n, _ := strconv.ParseInt(s.values[key], 10, 64)
	n++
	s.values[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (s *stubRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if s.err != nil {
		return redis.NewBoolResult(false, s.err)
	}
	s.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestResetCodeRepositorySaveGetDelete(t *testing.T) {
	client := newStubRedis()
	repo := NewResetCodeRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, " User@Example.com ", "123456", 5*time.Minute))
	assert.Equal(t, "123456", client.values["reset_code:user@example.com"])
	assert.Equal(t, 5*time.Minute, client.ttls["reset_code:user@example.com"])

	code, err := repo.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	require.NoError(t, repo.Delete(ctx, "USER@example.com"))
	assert.Empty(t, client.values)

	_, err = repo.Get(ctx, "user@example.com")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestResetCodeRepositoryAttempts(t *testing.T) {
	client := newStubRedis()
	repo := NewResetCodeRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "user@example.com", "123456", 5*time.Minute))
	n, err := repo.IncrementAttempts(ctx, "user@example.com", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 5*time.Minute, client.ttls["reset_code_attempts:user@example.com"])

	client.ttls["reset_code_attempts:user@example.com"] = time.Minute
	n, err = repo.IncrementAttempts(ctx, "user@example.com", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Minute, client.ttls["reset_code_attempts:user@example.com"], "ttl is set on the first failure only")

	require.NoError(t, repo.Save(ctx, "user@example.com", "654321", 5*time.Minute))
	assert.NotContains(t, client.values, "reset_code_attempts:user@example.com")
}

func TestResetCodeRepositoryWrapsRedisErrors(t *testing.T) {
	client := newStubRedis()
	client.err = errors.New("connection refused")
	repo := NewResetCodeRepository(client)
	ctx := context.Background()

	err := repo.Save(ctx, "user@example.com", "123456", time.Minute)
	assert.ErrorContains(t, err, "redis set reset_code:user@example.com")

	_, err = repo.Get(ctx, "user@example.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.ErrorContains(t, err, "connection refused")

	_, err = repo.IncrementAttempts(ctx, "user@example.com", time.Minute)
	assert.ErrorContains(t, err, "redis incr")

	assert.Error(t, repo.Delete(ctx, "user@example.com"))
}
