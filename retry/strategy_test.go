package retry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStrategy(t *testing.T) {
	strategy := DefaultStrategy()

	assert.Equal(t, 3, strategy.MaxAttempts)
	assert.Equal(t, 1*time.Second, strategy.BaseDelay)
	assert.Equal(t, 1*time.Minute, strategy.MaxDelay)
	assert.Equal(t, 2.0, strategy.ExponentialBase)
}

func TestStrategy_Delay(t *testing.T) {
	strategy := DefaultStrategy()

	tests := []struct {
		name          string
		priorAttempts int
		expectedDelay time.Duration
		description   string
	}{
		{
			name:          "First failure - base delay",
			priorAttempts: 0,
			expectedDelay: 1 * time.Second,
			description:   "Should return base delay when no prior attempts were recorded",
		},
		{
			name:          "Second failure - doubled",
			priorAttempts: 1,
			expectedDelay: 2 * time.Second, // 1s * 2^1
			description:   "Should double the base delay",
		},
		{
			name:          "Third failure - exponential",
			priorAttempts: 2,
			expectedDelay: 4 * time.Second, // 1s * 2^2
			description:   "Should continue exponential growth",
		},
		{
			name:          "Negative prior attempts - base delay",
			priorAttempts: -1,
			expectedDelay: 1 * time.Second,
			description:   "Should clamp to base delay",
		},
		{
			name:          "Seventh failure - capped",
			priorAttempts: 6,
			expectedDelay: 1 * time.Minute, // Would be 64s, but capped at 60s
			description:   "Should be capped at max delay",
		},
		{
			name:          "Large attempt number - still capped",
			priorAttempts: 100,
			expectedDelay: 1 * time.Minute,
			description:   "Should still be capped at max delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay := strategy.Delay(tt.priorAttempts)
			assert.Equal(t, tt.expectedDelay, delay, tt.description)
		})
	}
}

func TestStrategy_IsRetryable(t *testing.T) {
	strategy := DefaultStrategy()

	tests := []struct {
		name         string
		attemptCount int
		expected     bool
	}{
		{"No attempts yet", 0, true},
		{"One attempt", 1, true},
		{"Two attempts", 2, true},
		{"At the limit", 3, false},
		{"Beyond the limit", 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, strategy.IsRetryable(tt.attemptCount))
		})
	}
}

func TestStrategy_Schedule(t *testing.T) {
	strategy := DefaultStrategy()

	schedule := strategy.Schedule()

	assert.True(t, strings.HasPrefix(schedule, "Retry Schedule:"))
	assert.Contains(t, schedule, "Attempt 2: after 1s")
	assert.Contains(t, schedule, "Attempt 3: after 2s")
	assert.Contains(t, schedule, "FAILED")
}

func TestStrategy_CustomConfiguration(t *testing.T) {
	strategy := Strategy{
		MaxAttempts:     5,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 3.0,
	}

	assert.Equal(t, 500*time.Millisecond, strategy.Delay(0))
	assert.Equal(t, 1500*time.Millisecond, strategy.Delay(1)) // 500ms * 3^1
	assert.Equal(t, 4500*time.Millisecond, strategy.Delay(2)) // 500ms * 3^2
	assert.Equal(t, 10*time.Second, strategy.Delay(3))        // 13.5s capped
	assert.True(t, strategy.IsRetryable(4))
	assert.False(t, strategy.IsRetryable(5))
}
