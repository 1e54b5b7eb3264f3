package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustion(t *testing.T) {
	bucket := NewTokenBucket(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, wait := bucket.Allow()
		assert.True(t, allowed)
		assert.Zero(t, wait)
	}

	allowed, wait := bucket.Allow()
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
}

func TestTokenBucketRefill(t *testing.T) {
	bucket := NewTokenBucket(1, 1, 10*time.Millisecond)

	allowed, _ := bucket.Allow()
	assert.True(t, allowed)
	allowed, _ = bucket.Allow()
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, _ = bucket.Allow()
	assert.True(t, allowed, "bucket must refill after the interval")
}

func TestRateLimiterSeparatesUsersAndActions(t *testing.T) {
	limiter := NewRateLimiter()

	// Drain alice's send_message bucket.
	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("alice", "send_message")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("alice", "send_message")
	assert.False(t, allowed)

	// A different action has its own bucket.
	allowed, _ = limiter.Allow("alice", "start_conversation")
	assert.True(t, allowed)

	// A different user is untouched.
	allowed, _ = limiter.Allow("bob", "send_message")
	assert.True(t, allowed)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	limiter := NewRateLimiter()
	limiter.Allow("alice", "send_message")

	limiter.mutex.Lock()
	for _, bucket := range limiter.buckets {
		bucket.lastRefill = time.Now().Add(-2 * time.Hour)
	}
	limiter.mutex.Unlock()

	limiter.Cleanup()

	limiter.mutex.RLock()
	assert.Empty(t, limiter.buckets)
	limiter.mutex.RUnlock()
}
