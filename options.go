package relay

import (
	"fmt"
	"time"

	"github.com/coregx/relay/retry"
)

// EngineOption is a function that configures a DeliveryEngine.
// Used with the Options Pattern for flexible service construction.
//
// Example:
//
//	engine, err := relay.NewDeliveryEngine(
//	    relay.WithEngineRepository(logRepo),
//	    relay.WithEngineGateway(gateway),
//	    relay.WithEngineLogger(logger),
//	    relay.WithEngineDeliveryTimeout(5*time.Second), // optional
//	)
type EngineOption func(*DeliveryEngine) error

// WithEngineRepository sets the relay log repository for the delivery engine.
//
// This is a required option for NewDeliveryEngine.
func WithEngineRepository(logs RelayLogRepository) EngineOption {
	return func(e *DeliveryEngine) error {
		if logs == nil {
			return fmt.Errorf("logs cannot be nil")
		}
		e.logs = logs
		return nil
	}
}

// WithEngineGateway sets the downstream delivery gateway.
//
// This is a required option for NewDeliveryEngine.
func WithEngineGateway(gateway DeliveryGateway) EngineOption {
	return func(e *DeliveryEngine) error {
		if gateway == nil {
			return fmt.Errorf("gateway cannot be nil")
		}
		e.gateway = gateway
		return nil
	}
}

// WithEngineLogger sets the logger instance for the delivery engine.
//
// This is a required option for NewDeliveryEngine.
//
// Use NoopLogger for silent operation or implement Logger interface
// to integrate with your logging system (zap, logrus, etc.).
func WithEngineLogger(logger Logger) EngineOption {
	return func(e *DeliveryEngine) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		e.logger = logger
		return nil
	}
}

// WithEngineStrategy sets a custom backoff strategy for the delivery engine.
// This is an optional configuration - if not provided, retry.DefaultStrategy()
// will be used (1s → 2s → 4s, 3 attempts).
//
// The strategy only shapes the backoff delays; the attempt budget enforced
// per record is the record's own MaxAttempts.
func WithEngineStrategy(strategy retry.Strategy) EngineOption {
	return func(e *DeliveryEngine) error {
		e.strategy = strategy
		return nil
	}
}

// WithEngineNotifications sets an optional notification service for the
// delivery engine. This is an optional configuration - if not provided,
// NoOpNotificationService will be used (no notifications).
//
// The notification service receives callbacks for:
//   - Delivery failures with retry budget remaining (a retry is scheduled)
//   - Exhausted deliveries (record transitioned to FAILED)
//
// Use this to integrate with alerting systems (email, Slack, PagerDuty, etc.).
func WithEngineNotifications(service NotificationService) EngineOption {
	return func(e *DeliveryEngine) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		e.notifier = service
		return nil
	}
}

// WithEngineDeliveryTimeout bounds each downstream delivery call.
// A timeout expiry is treated as a classified delivery failure and feeds the
// standard retry path. Must be > 0; default is 10 seconds.
func WithEngineDeliveryTimeout(timeout time.Duration) EngineOption {
	return func(e *DeliveryEngine) error {
		if timeout <= 0 {
			return fmt.Errorf("delivery timeout must be > 0, got %v", timeout)
		}
		e.deliveryTimeout = timeout
		return nil
	}
}
