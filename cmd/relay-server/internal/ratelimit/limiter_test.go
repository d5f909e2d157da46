package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(3, time.Minute)

	assert.True(t, limiter.Allow("key-a"))
	assert.True(t, limiter.Allow("key-a"))
	assert.True(t, limiter.Allow("key-a"))
	assert.False(t, limiter.Allow("key-a"), "fourth request in the window is rejected")

	// Other keys have their own window.
	assert.True(t, limiter.Allow("key-b"))
}

func TestLimiter_WindowReset(t *testing.T) {
	limiter := NewLimiter(1, time.Minute)

	current := time.Now()
	limiter.now = func() time.Time { return current }

	assert.True(t, limiter.Allow("key-a"))
	assert.False(t, limiter.Allow("key-a"))

	current = current.Add(time.Minute + time.Second)
	assert.True(t, limiter.Allow("key-a"), "a fresh window admits again")
}

func TestLimiter_DisabledWhenLimitNonPositive(t *testing.T) {
	limiter := NewLimiter(0, time.Minute)

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow("key-a"))
	}
}

func TestLimiter_Prune(t *testing.T) {
	limiter := NewLimiter(5, time.Minute)

	current := time.Now()
	limiter.now = func() time.Time { return current }

	limiter.Allow("key-a")
	limiter.Allow("key-b")
	assert.Len(t, limiter.windows, 2)

	current = current.Add(2 * time.Minute)
	limiter.Prune()
	assert.Empty(t, limiter.windows)
}
