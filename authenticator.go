package relay

import (
	"context"

	"github.com/coregx/relay/model"
)

// Authenticator maps API keys to active client identities.
// An unknown or inactive key yields no client, not an error — the caller
// decides the transport-level consequence. Authenticate has no side effects.
type Authenticator struct {
	clients ClientRepository
	logger  Logger
}

// NewAuthenticator creates a new Authenticator.
// Both the client repository and the logger are required.
func NewAuthenticator(clients ClientRepository, logger Logger) (*Authenticator, error) {
	if clients == nil {
		return nil, NewError(ErrCodeConfiguration, "ClientRepository is required")
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}
	return &Authenticator{clients: clients, logger: logger}, nil
}

// Authenticate looks up the active client holding apiKey.
// Returns (nil, nil) when the key is unknown, empty, or belongs to an
// inactive client. A non-nil error indicates a store failure only.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (*model.Client, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := a.clients.FindByAPIKey(ctx, apiKey)
	if err != nil {
		if IsNoData(err) {
			a.logger.Warnf("Invalid API key: %s...", truncateKey(apiKey))
			return nil, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to look up API key", err)
	}

	return &client, nil
}

// truncateKey shortens an API key for logging.
func truncateKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return apiKey
	}
	return apiKey[:8]
}
