package relay

import (
	"context"
	"fmt"

	"github.com/coregx/relay/model"
)

// ClientManager handles client lifecycle management for the relay system.
// The relay engine itself only reads clients; this component exists for
// registration tooling (seeding, admin endpoints) and operational use.
//
// Key operations:
//   - RegisterClient: Create a client with a generated API key
//   - DeactivateClient: Disable a client so its key stops authenticating
//   - GetClient: Load a client by ID
//
// Thread safety: Safe for concurrent use.
type ClientManager struct {
	clients  ClientRepository
	notifier NotificationService
	logger   Logger
}

// ClientManagerOption is a function that configures a ClientManager.
type ClientManagerOption func(*ClientManager) error

// NewClientManager creates a new ClientManager with the provided options.
//
// Required options:
//   - WithClientManagerRepository: client repository
//   - WithClientManagerLogger: logger instance
//
// Optional options:
//   - WithClientManagerNotifications: observability channel (default: no-op)
func NewClientManager(opts ...ClientManagerOption) (*ClientManager, error) {
	cm := &ClientManager{
		notifier: &NoOpNotificationService{},
	}

	for _, opt := range opts {
		if err := opt(cm); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply client manager option", err)
		}
	}

	if cm.clients == nil {
		return nil, NewError(ErrCodeConfiguration, "ClientRepository is required (use WithClientManagerRepository)")
	}
	if cm.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithClientManagerLogger)")
	}

	return cm, nil
}

// WithClientManagerRepository sets the client repository.
func WithClientManagerRepository(clients ClientRepository) ClientManagerOption {
	return func(cm *ClientManager) error {
		if clients == nil {
			return fmt.Errorf("clients cannot be nil")
		}
		cm.clients = clients
		return nil
	}
}

// WithClientManagerLogger sets the logger instance.
func WithClientManagerLogger(logger Logger) ClientManagerOption {
	return func(cm *ClientManager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		cm.logger = logger
		return nil
	}
}

// WithClientManagerNotifications sets an optional notification service.
func WithClientManagerNotifications(service NotificationService) ClientManagerOption {
	return func(cm *ClientManager) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		cm.notifier = service
		return nil
	}
}

// RegisterClient creates a new active client with a generated API key.
// The API key is returned exactly once, in the created record.
func (cm *ClientManager) RegisterClient(ctx context.Context, req RegisterClientRequest) (*model.Client, error) {
	if err := req.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid client registration request", err)
	}

	client := model.NewClient(req.Name)
	if err := cm.clients.Create(ctx, &client); err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to create client", err)
	}

	cm.logger.Infof("Client registered: id=%s, name=%s", client.ID, client.Name)
	if err := cm.notifier.NotifyClientRegistered(ctx, client); err != nil {
		cm.logger.Warnf("Failed to send client registration notification: %v", err)
	}

	return &client, nil
}

// DeactivateClient disables a client. Its API key stops authenticating on
// the next publish; already-accepted messages keep being delivered.
func (cm *ClientManager) DeactivateClient(ctx context.Context, clientID string) (*model.Client, error) {
	client, err := cm.clients.Load(ctx, clientID)
	if err != nil {
		if IsNoData(err) {
			return nil, NewErrorWithCause(ErrCodeNotFound, "client not found", err)
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load client", err)
	}

	if !client.IsActive {
		return &client, nil
	}

	client.Deactivate()
	if err := cm.clients.Update(ctx, &client); err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to deactivate client", err)
	}

	cm.logger.Infof("Client deactivated: id=%s, name=%s", client.ID, client.Name)
	if err := cm.notifier.NotifyClientDeactivated(ctx, client); err != nil {
		cm.logger.Warnf("Failed to send client deactivation notification: %v", err)
	}

	return &client, nil
}

// GetClient loads a client by ID.
func (cm *ClientManager) GetClient(ctx context.Context, clientID string) (*model.Client, error) {
	client, err := cm.clients.Load(ctx, clientID)
	if err != nil {
		if IsNoData(err) {
			return nil, NewErrorWithCause(ErrCodeNotFound, "client not found", err)
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load client", err)
	}
	return &client, nil
}
