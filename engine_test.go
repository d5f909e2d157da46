package relay

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/relay/model"
)

func newTestEngine(t *testing.T, repo RelayLogRepository, gateway DeliveryGateway, notifier NotificationService) *DeliveryEngine {
	t.Helper()

	opts := []EngineOption{
		WithEngineRepository(repo),
		WithEngineGateway(gateway),
		WithEngineLogger(&NoopLogger{}),
	}
	if notifier != nil {
		opts = append(opts, WithEngineNotifications(notifier))
	}

	engine, err := NewDeliveryEngine(opts...)
	require.NoError(t, err)
	return engine
}

func TestNewDeliveryEngine_RequiredOptions(t *testing.T) {
	repo := newMemoryLogRepository()
	gateway := &scriptedGateway{}

	tests := []struct {
		name string
		opts []EngineOption
	}{
		{
			name: "Missing repository",
			opts: []EngineOption{WithEngineGateway(gateway), WithEngineLogger(&NoopLogger{})},
		},
		{
			name: "Missing gateway",
			opts: []EngineOption{WithEngineRepository(repo), WithEngineLogger(&NoopLogger{})},
		},
		{
			name: "Missing logger",
			opts: []EngineOption{WithEngineRepository(repo), WithEngineGateway(gateway)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDeliveryEngine(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestDeliveryEngine_AttemptDelivery_Success(t *testing.T) {
	repo := newMemoryLogRepository()
	gateway := &scriptedGateway{} // always succeeds
	engine := newTestEngine(t, repo, gateway, nil)

	rl := model.NewRelayLog("client-1", "key-1", "hello", "")
	repo.put(rl)

	outcome, err := engine.AttemptDelivery(context.Background(), rl.ID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)
	assert.Equal(t, 1, gateway.callCount())

	stored, ok := repo.get(rl.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusSuccess, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.True(t, stored.CompletedAt.Valid)
	assert.False(t, stored.Error.Valid)
	assert.False(t, stored.NextRetryAt.Valid)
}

func TestDeliveryEngine_AttemptDelivery_SchedulesExponentialBackoff(t *testing.T) {
	repo := newMemoryLogRepository()
	gateway := &scriptedGateway{results: []error{errors.New("downstream unavailable")}}
	notifier := &capturingNotifier{}
	engine := newTestEngine(t, repo, gateway, notifier)

	rl := model.NewRelayLog("client-1", "key-1", "hello", "")
	repo.put(rl)

	// First failure: retry scheduled 1s out.
	before := time.Now()
	outcome, err := engine.AttemptDelivery(context.Background(), rl.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryScheduled, outcome)

	stored, _ := repo.get(rl.ID)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.True(t, stored.NextRetryAt.Valid)
	assert.WithinDuration(t, before.Add(1*time.Second), stored.NextRetryAt.Time, 500*time.Millisecond)
	assert.Equal(t, "downstream unavailable", stored.Error.String)

	// Second failure: retry scheduled 2s out.
	before = time.Now()
	outcome, err = engine.AttemptDelivery(context.Background(), rl.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryScheduled, outcome)

	stored, _ = repo.get(rl.ID)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	require.True(t, stored.NextRetryAt.Valid)
	assert.WithinDuration(t, before.Add(2*time.Second), stored.NextRetryAt.Time, 500*time.Millisecond)

	// Third failure: budget spent, record is FAILED.
	outcome, err = engine.AttemptDelivery(context.Background(), rl.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, outcome)

	stored, _ = repo.get(rl.ID)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
	assert.False(t, stored.NextRetryAt.Valid)
	assert.True(t, stored.Error.Valid)

	failures, exhausted := notifier.counts()
	assert.Equal(t, 2, failures)
	assert.Equal(t, 1, exhausted)

	// Terminal records are never re-driven.
	outcome, err = engine.AttemptDelivery(context.Background(), rl.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 3, gateway.callCount())
}

func TestDeliveryEngine_AttemptDelivery_MissingRecord(t *testing.T) {
	repo := newMemoryLogRepository()
	gateway := &scriptedGateway{}
	engine := newTestEngine(t, repo, gateway, nil)

	outcome, err := engine.AttemptDelivery(context.Background(), "missing-id")

	assert.Equal(t, OutcomeSkipped, outcome)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, gateway.callCount())
}

func TestDeliveryEngine_AttemptDelivery_SkipsNonAttemptableStates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.RelayLog)
	}{
		{
			name:   "Succeeded record",
			mutate: func(rl *model.RelayLog) { rl.Status = model.StatusSuccess },
		},
		{
			name:   "Failed record",
			mutate: func(rl *model.RelayLog) { rl.Status = model.StatusFailed },
		},
		{
			name:   "Attempt in flight",
			mutate: func(rl *model.RelayLog) { rl.Status = model.StatusRetrying },
		},
		{
			name:   "Budget exhausted",
			mutate: func(rl *model.RelayLog) { rl.Attempts = rl.MaxAttempts },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryLogRepository()
			gateway := &scriptedGateway{}
			engine := newTestEngine(t, repo, gateway, nil)

			rl := model.NewRelayLog("client-1", "key-1", "hello", "")
			tt.mutate(&rl)
			repo.put(rl)

			outcome, err := engine.AttemptDelivery(context.Background(), rl.ID)

			assert.NoError(t, err)
			assert.Equal(t, OutcomeSkipped, outcome)
			assert.Equal(t, 0, gateway.callCount())
		})
	}
}

// claimStealingRepository loses every claim, as if a concurrent attempt
// always claims the record between the load and the conditional update.
type claimStealingRepository struct {
	*memoryLogRepository
}

func (r *claimStealingRepository) ClaimAttempt(_ context.Context, _ string, _ int) (bool, error) {
	return false, nil
}

func TestDeliveryEngine_AttemptDelivery_LostClaimIsSkipped(t *testing.T) {
	repo := &claimStealingRepository{newMemoryLogRepository()}
	gateway := &scriptedGateway{}
	engine := newTestEngine(t, repo, gateway, nil)

	rl := model.NewRelayLog("client-1", "key-1", "hello", "")
	repo.put(rl)

	outcome, err := engine.AttemptDelivery(context.Background(), rl.ID)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 0, gateway.callCount(), "a lost claim must not reach the gateway")
}

func TestDeliveryEngine_AttemptDelivery_RecoversGatewayPanic(t *testing.T) {
	repo := newMemoryLogRepository()
	gateway := &scriptedGateway{panics: true}
	engine := newTestEngine(t, repo, gateway, nil)

	rl := model.NewRelayLog("client-1", "key-1", "hello", "")
	repo.put(rl)

	outcome, err := engine.AttemptDelivery(context.Background(), rl.ID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryScheduled, outcome)

	stored, _ := repo.get(rl.ID)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Contains(t, stored.Error.String, "delivery panicked")
}

func TestDeliveryEngine_AttemptDelivery_HonorsCustomMaxAttempts(t *testing.T) {
	repo := newMemoryLogRepository()
	gateway := &scriptedGateway{results: []error{errors.New("boom")}}
	engine := newTestEngine(t, repo, gateway, nil)

	rl := model.NewRelayLog("client-1", "key-1", "hello", "")
	rl.MaxAttempts = 1
	repo.put(rl)

	outcome, err := engine.AttemptDelivery(context.Background(), rl.ID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, outcome, "a single-attempt budget fails terminally on the first failure")

	stored, _ := repo.get(rl.ID)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, sql.NullTime{}, stored.NextRetryAt)
}
