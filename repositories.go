package relay

import (
	"context"
	"time"

	"github.com/coregx/relay/model"
)

// RelayLogRepository defines the persistence interface for relay logs.
// Relay logs track the delivery lifecycle of accepted messages.
//
// Implementations must be safe for concurrent use. Every state transition is
// a single-record write; the repository never needs multi-record transactions.
type RelayLogRepository interface {
	// Load retrieves a relay log by ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, id string) (model.RelayLog, error)

	// FindByIdempotencyKey retrieves the relay log holding the given
	// idempotency key. Returns ErrNoData if not found.
	FindByIdempotencyKey(ctx context.Context, key string) (model.RelayLog, error)

	// Create inserts a new relay log. The idempotency key carries a unique
	// constraint: a concurrent identical submission makes Create return
	// ErrDuplicateKey, and the caller re-reads the winning record.
	Create(ctx context.Context, m *model.RelayLog) error

	// Update persists the current state of an existing relay log.
	Update(ctx context.Context, m *model.RelayLog) error

	// ClaimAttempt atomically transitions a log into RETRYING and charges
	// one attempt, conditional on the log still being PENDING with exactly
	// priorAttempts attempts recorded. Returns false when the claim is lost
	// to a concurrent attempt or the log left PENDING, which keeps
	// delivery at-most-one-concurrent-per-record.
	ClaimAttempt(ctx context.Context, id string, priorAttempts int) (bool, error)

	// FindDueRetries finds relay logs due for a delivery attempt:
	// status=PENDING, next_retry_at <= now, attempts < max_attempts.
	// Results are ordered by next_retry_at ASC and capped at limit.
	FindDueRetries(ctx context.Context, now time.Time, limit int) ([]model.RelayLog, error)
}

// ClientRepository defines the persistence interface for clients.
// The relay engine only reads clients; writes exist for registration
// tooling and tests.
type ClientRepository interface {
	// Load retrieves a client by ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, id string) (model.Client, error)

	// FindByAPIKey retrieves the active client holding the given API key.
	// Inactive clients are not returned. Returns ErrNoData if not found.
	FindByAPIKey(ctx context.Context, apiKey string) (model.Client, error)

	// Create inserts a new client. The API key carries a unique constraint;
	// Create returns ErrDuplicateKey on collision.
	Create(ctx context.Context, m *model.Client) error

	// Update persists the current state of an existing client.
	Update(ctx context.Context, m *model.Client) error
}
