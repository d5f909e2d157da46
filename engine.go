package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/relay/model"
	"github.com/coregx/relay/retry"
)

// DeliveryGateway defines the interface for handing a relay message to the
// downstream target. This interface decouples the engine from the transport
// (HTTP webhook, gRPC, a mock provider in tests and demos).
//
// A nil return means the message was accepted downstream; any error is a
// classified failure feeding the standard retry-or-exhaust path. Transport
// timeouts must surface as errors, not hang — the engine additionally bounds
// each call with its own timeout.
type DeliveryGateway interface {
	// Deliver hands the message to the downstream target.
	Deliver(ctx context.Context, idempotencyKey, message, meta string) error
}

// DeliveryOutcome classifies the result of a delivery attempt.
type DeliveryOutcome string

const (
	// OutcomeDelivered indicates the message reached the downstream target.
	OutcomeDelivered DeliveryOutcome = "DELIVERED"

	// OutcomeRetryScheduled indicates the attempt failed with retry budget
	// remaining; the record is back in PENDING with a backoff schedule.
	OutcomeRetryScheduled DeliveryOutcome = "RETRY_SCHEDULED"

	// OutcomeExhausted indicates the attempt failed and consumed the last
	// of the retry budget; the record is FAILED.
	OutcomeExhausted DeliveryOutcome = "EXHAUSTED"

	// OutcomeSkipped indicates no attempt ran: the record was terminal,
	// already held by a concurrent attempt, or out of budget.
	OutcomeSkipped DeliveryOutcome = "SKIPPED"
)

// DeliveryEngine owns the relay log state machine: it claims records for
// delivery, invokes the downstream gateway, and persists the outcome as
// SUCCESS, a scheduled retry, or FAILED.
//
// Concurrency: the PENDING → RETRYING transition is a conditional update
// (ClaimAttempt) that also charges the attempt, so at most one attempt runs
// per record at a time even when the publish-time task and a sweeper-driven
// retry race. A lost claim is reported as OutcomeSkipped, never as an error.
//
// Thread safety: Safe for concurrent use.
type DeliveryEngine struct {
	logs            RelayLogRepository
	gateway         DeliveryGateway
	strategy        retry.Strategy
	notifier        NotificationService
	logger          Logger
	deliveryTimeout time.Duration
}

// NewDeliveryEngine creates a new DeliveryEngine with the provided options.
//
// Required options:
//   - WithEngineRepository: relay log repository
//   - WithEngineGateway: downstream delivery gateway
//   - WithEngineLogger: logger instance
//
// Optional options:
//   - WithEngineStrategy: custom backoff strategy (default: retry.DefaultStrategy())
//   - WithEngineNotifications: observability channel (default: no-op)
//   - WithEngineDeliveryTimeout: per-attempt bound (default: 10s)
func NewDeliveryEngine(opts ...EngineOption) (*DeliveryEngine, error) {
	e := &DeliveryEngine{
		strategy:        retry.DefaultStrategy(),
		notifier:        &NoOpNotificationService{},
		deliveryTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply engine option", err)
		}
	}

	if e.logs == nil {
		return nil, NewError(ErrCodeConfiguration, "RelayLogRepository is required (use WithEngineRepository)")
	}
	if e.gateway == nil {
		return nil, NewError(ErrCodeConfiguration, "DeliveryGateway is required (use WithEngineGateway)")
	}
	if e.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithEngineLogger)")
	}

	return e, nil
}

// AttemptDelivery runs one delivery attempt for the given relay log.
//
// The attempt is charged and persisted (PENDING → RETRYING, attempts+1)
// before the downstream call, so a crash mid-attempt still counts the try.
// On success the record becomes SUCCESS; on failure it either re-enters
// PENDING with an exponential backoff schedule or becomes FAILED once the
// attempt budget is spent. The backoff uses the attempt count prior to this
// attempt's increment, yielding 1s, 2s, 4s for successive failures.
//
// A missing record is a consistency fault (NOT_FOUND), never retried.
// Returned errors describe faults of the attempt machinery itself; delivery
// failures are expressed through the outcome and the persisted record.
func (e *DeliveryEngine) AttemptDelivery(ctx context.Context, logID string) (DeliveryOutcome, error) {
	rl, err := e.logs.Load(ctx, logID)
	if err != nil {
		if IsNoData(err) {
			return OutcomeSkipped, NewErrorWithCause(ErrCodeNotFound, "relay log not found", err)
		}
		return OutcomeSkipped, NewErrorWithCause(ErrCodeDatabase, "failed to load relay log", err)
	}

	priorAttempts := rl.Attempts
	if err := rl.BeginAttempt(); err != nil {
		e.logger.Debugf("Cannot attempt delivery for relay log %s: %v", rl.ID, err)
		return OutcomeSkipped, nil
	}

	claimed, err := e.logs.ClaimAttempt(ctx, rl.ID, priorAttempts)
	if err != nil {
		return OutcomeSkipped, NewErrorWithCause(ErrCodeDatabase, "failed to claim delivery attempt", err)
	}
	if !claimed {
		// Lost the race to a concurrent attempt on the same record.
		e.logger.Debugf("Delivery attempt for relay log %s already claimed", rl.ID)
		return OutcomeSkipped, nil
	}

	deliveryErr := e.deliver(ctx, &rl)
	if deliveryErr == nil {
		return e.handleSuccess(ctx, &rl)
	}
	return e.handleFailure(ctx, &rl, priorAttempts, deliveryErr)
}

// deliver invokes the gateway under the configured timeout.
// A panicking gateway is converted into an ordinary delivery error so it
// feeds the same retry-or-exhaust branch as an explicit failure.
func (e *DeliveryEngine) deliver(ctx context.Context, rl *model.RelayLog) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrCodeDelivery, fmt.Sprintf("delivery panicked: %v", r))
		}
	}()

	if e.deliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.deliveryTimeout)
		defer cancel()
	}

	return e.gateway.Deliver(ctx, rl.IdempotencyKey, rl.Message, rl.Meta)
}

func (e *DeliveryEngine) handleSuccess(ctx context.Context, rl *model.RelayLog) (DeliveryOutcome, error) {
	if err := rl.MarkSucceeded(); err != nil {
		return OutcomeSkipped, NewErrorWithCause(ErrCodeDelivery, "failed to finalize delivery", err)
	}
	if err := e.logs.Update(ctx, rl); err != nil {
		return OutcomeSkipped, NewErrorWithCause(ErrCodeDatabase, "failed to persist delivery success", err)
	}

	e.logger.Infof("Relay message delivered: id=%s, client=%s, attempts=%d", rl.ID, rl.ClientID, rl.Attempts)
	return OutcomeDelivered, nil
}

func (e *DeliveryEngine) handleFailure(ctx context.Context, rl *model.RelayLog, priorAttempts int, deliveryErr error) (DeliveryOutcome, error) {
	if priorAttempts+1 < rl.MaxAttempts {
		backoff := e.strategy.Delay(priorAttempts)
		if err := rl.ScheduleRetry(deliveryErr, backoff); err != nil {
			return OutcomeSkipped, NewErrorWithCause(ErrCodeDelivery, "failed to schedule retry", err)
		}
		if err := e.logs.Update(ctx, rl); err != nil {
			return OutcomeSkipped, NewErrorWithCause(ErrCodeDatabase, "failed to persist retry schedule", err)
		}

		if err := e.notifier.NotifyDeliveryFailure(ctx, rl, deliveryErr); err != nil {
			e.logger.Warnf("Failed to send delivery failure notification: %v", err)
		}
		e.logger.Warnf("Relay delivery failed, scheduled for retry: id=%s, attempt=%d/%d, next_retry=%v, error=%v",
			rl.ID, rl.Attempts, rl.MaxAttempts, rl.NextRetryAt.Time, deliveryErr)
		return OutcomeRetryScheduled, nil
	}

	if err := rl.MarkExhausted(deliveryErr); err != nil {
		return OutcomeSkipped, NewErrorWithCause(ErrCodeDelivery, "failed to finalize exhausted delivery", err)
	}
	if err := e.logs.Update(ctx, rl); err != nil {
		return OutcomeSkipped, NewErrorWithCause(ErrCodeDatabase, "failed to persist delivery failure", err)
	}

	if err := e.notifier.NotifyDeliveryExhausted(ctx, rl); err != nil {
		e.logger.Warnf("Failed to send delivery exhausted notification: %v", err)
	}
	e.logger.Errorf("Relay delivery failed permanently: id=%s, attempts=%d, error=%v",
		rl.ID, rl.Attempts, deliveryErr)
	return OutcomeExhausted, nil
}
