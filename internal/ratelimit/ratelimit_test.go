package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerIsDisabled(t *testing.T) {
	locker := NewLocker(nil)
	assert.Nil(t, locker)
	assert.False(t, locker.Enabled())

	_, ok, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), "k", "token"))

	called := false
	err = locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrLockNotConfigured))
	assert.False(t, called)
}

func TestTokenBucketRequiresClient(t *testing.T) {
	bucket := NewTokenBucket(nil)
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
}

func TestOrgLimiterDisabledAllowsEverything(t *testing.T) {
	limiter := NewOrgLimiter(config.Config{RateLimit: config.RateLimitConfig{PerOrgRate: 5}}, nil)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowOrg(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestEvaluate(t *testing.T) {
	allowed := evaluate(true, 3.6, 2, 5)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 3, allowed.Remaining)
	assert.Equal(t, 5, allowed.Limit)
	assert.Zero(t, allowed.RetryAfter)

	denied := evaluate(false, 0.5, 2, 5)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 250*time.Millisecond, denied.RetryAfter)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, 2*time.Second, bucketTTL(100, 10))
}

func TestScriptValueConversion(t *testing.T) {
	assert.Equal(t, int64(1), toInt(int64(1)))
	assert.Equal(t, int64(7), toInt("7"))
	assert.Equal(t, 2.5, toFloat("2.5"))
	assert.Equal(t, 0.0, toFloat(nil))
	assert.Equal(t, "ledgercraft:ratelimit:org:9", orgKey("9"))
}
