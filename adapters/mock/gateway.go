// Package mock provides a simulated downstream delivery gateway for demos
// and testing. It injects artificial latency and random classified failures
// at a configurable rate, mimicking an unreliable external relay provider.
package mock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/coregx/relay"
)

// failureMessages are the classified failure causes the simulated provider
// cycles through.
var failureMessages = []string{
	"Downstream service unavailable",
	"Network timeout",
	"Rate limit exceeded",
	"Invalid message format",
}

// Gateway implements relay.DeliveryGateway against a simulated provider.
//
// Thread safety: Safe for concurrent use.
type Gateway struct {
	failureRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	logger      relay.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGateway creates a mock gateway failing a failureRate fraction of
// deliveries (0 never fails, 1 always fails). Each delivery sleeps between
// 50ms and 150ms to mimic network latency.
func NewGateway(failureRate float64, logger relay.Logger) *Gateway {
	return &Gateway{
		failureRate: failureRate,
		minDelay:    50 * time.Millisecond,
		maxDelay:    150 * time.Millisecond,
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Deliver simulates handing the message to the downstream provider.
func (g *Gateway) Deliver(ctx context.Context, idempotencyKey, _, _ string) error {
	g.logger.Infof("Calling mock relay provider: key=%s", idempotencyKey)

	g.mu.Lock()
	delay := g.minDelay + time.Duration(g.rng.Int63n(int64(g.maxDelay-g.minDelay)))
	fail := g.rng.Float64() < g.failureRate
	msg := failureMessages[g.rng.Intn(len(failureMessages))]
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return relay.NewErrorWithCause(relay.ErrCodeDelivery, "delivery canceled", ctx.Err())
	case <-time.After(delay):
	}

	if fail {
		g.logger.Warnf("Mock relay failed: key=%s, error=%s", idempotencyKey, msg)
		return relay.NewError(relay.ErrCodeDelivery, msg)
	}

	g.logger.Infof("Mock relay successful: key=%s", idempotencyKey)
	return nil
}
