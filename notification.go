package relay

import (
	"context"

	"github.com/coregx/relay/model"
)

// NotificationService defines an optional interface for observing relay
// system events (delivery failures, exhausted retries, client lifecycle).
//
// Implementations might send emails, Slack messages, or feed monitoring
// systems. Delivery outcomes are additionally always captured in the relay
// log record itself; this channel exists so failures are never only visible
// by polling the store.
type NotificationService interface {
	// NotifyDeliveryFailure is called when a delivery attempt fails with
	// retry budget remaining. Informational; a retry is already scheduled.
	NotifyDeliveryFailure(ctx context.Context, log *model.RelayLog, err error) error

	// NotifyDeliveryExhausted is called when a relay log consumes its whole
	// retry budget and transitions to FAILED.
	NotifyDeliveryExhausted(ctx context.Context, log *model.RelayLog) error

	// NotifyClientRegistered is called when a new client is registered.
	NotifyClientRegistered(ctx context.Context, client model.Client) error

	// NotifyClientDeactivated is called when a client is deactivated.
	NotifyClientDeactivated(ctx context.Context, client model.Client) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
// Use this when notifications are not needed.
type NoOpNotificationService struct{}

// NotifyDeliveryFailure does nothing.
func (n *NoOpNotificationService) NotifyDeliveryFailure(_ context.Context, _ *model.RelayLog, _ error) error {
	return nil
}

// NotifyDeliveryExhausted does nothing.
func (n *NoOpNotificationService) NotifyDeliveryExhausted(_ context.Context, _ *model.RelayLog) error {
	return nil
}

// NotifyClientRegistered does nothing.
func (n *NoOpNotificationService) NotifyClientRegistered(_ context.Context, _ model.Client) error {
	return nil
}

// NotifyClientDeactivated does nothing.
func (n *NoOpNotificationService) NotifyClientDeactivated(_ context.Context, _ model.Client) error {
	return nil
}

// LoggingNotificationService is a simple implementation that logs notifications.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifyDeliveryFailure logs a delivery failure with the retry schedule.
func (n *LoggingNotificationService) NotifyDeliveryFailure(_ context.Context, log *model.RelayLog, err error) error {
	n.logger.Warnf("⚠️ Relay delivery failed: id=%s, client=%s, attempt=%d/%d, next_retry=%v, error=%v",
		log.ID, log.ClientID, log.Attempts, log.MaxAttempts, log.NextRetryAt.Time, err)
	return nil
}

// NotifyDeliveryExhausted logs a permanently failed relay log.
func (n *LoggingNotificationService) NotifyDeliveryExhausted(_ context.Context, log *model.RelayLog) error {
	n.logger.Errorf("⚠️ Relay delivery exhausted: id=%s, client=%s, attempts=%d, error=%s",
		log.ID, log.ClientID, log.Attempts, log.Error.String)
	return nil
}

// NotifyClientRegistered logs client registration.
func (n *LoggingNotificationService) NotifyClientRegistered(_ context.Context, client model.Client) error {
	n.logger.Infof("✅ Client registered: id=%s, name=%s", client.ID, client.Name)
	return nil
}

// NotifyClientDeactivated logs client deactivation.
func (n *LoggingNotificationService) NotifyClientDeactivated(_ context.Context, client model.Client) error {
	n.logger.Infof("🔴 Client deactivated: id=%s, name=%s", client.ID, client.Name)
	return nil
}
