package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a relay log.
type Status string

const (
	// StatusPending indicates the message is awaiting a delivery attempt.
	// This is the initial state and the state re-entered between retries.
	StatusPending Status = "PENDING"

	// StatusRetrying indicates a delivery attempt is in flight.
	StatusRetrying Status = "RETRYING"

	// StatusSuccess indicates the message was delivered. Terminal.
	StatusSuccess Status = "SUCCESS"

	// StatusFailed indicates the retry budget is exhausted. Terminal.
	StatusFailed Status = "FAILED"
)

// DefaultMaxAttempts is the delivery attempt budget assigned at creation.
const DefaultMaxAttempts = 3

// RelayLog is the persisted record tracking one message's delivery lifecycle.
// It is the unit of delivery work: created PENDING by the publish path,
// mutated only by the delivery engine, never deleted by the engine itself.
//
// Lifecycle:
//  1. Created with status=PENDING, attempts=0
//  2. Attempt claimed → RETRYING (attempts charged before the downstream call)
//  3. Success → SUCCESS (terminal), failure → PENDING with backoff or
//     FAILED (terminal) once attempts reach MaxAttempts
//
// The IdempotencyKey is globally unique for the lifetime of the system and
// collapses duplicate submissions into this one record.
type RelayLog struct {
	ID             string         `json:"id"`
	ClientID       string         `json:"clientId" db:"client_id"`
	IdempotencyKey string         `json:"idempotencyKey" db:"idempotency_key"`
	Message        string         `json:"message"`
	Meta           string         `json:"meta"` // JSON-encoded metadata, opaque to the engine
	Status         Status         `json:"status" db:"status"`
	Attempts       int            `json:"attempts" db:"attempts"`
	MaxAttempts    int            `json:"maxAttempts" db:"max_attempts"`
	NextRetryAt    sql.NullTime   `json:"nextRetryAt" db:"next_retry_at"`
	CompletedAt    sql.NullTime   `json:"completedAt" db:"completed_at"`
	Error          sql.NullString `json:"error" db:"error"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for RelayLog.
func (t RelayLog) TableName() string {
	return tablePrefix + "log"
}

// NewRelayLog creates a new relay log for an accepted submission.
// Initial state: PENDING, Attempts=0, MaxAttempts=DefaultMaxAttempts.
//
// Parameters:
//   - clientID: The owning client
//   - idempotencyKey: Caller-supplied or server-generated key
//   - message: Opaque message payload
//   - meta: JSON-encoded metadata (empty string for none)
func NewRelayLog(clientID, idempotencyKey, message, meta string) RelayLog {
	now := time.Now()

	return RelayLog{
		ID:             uuid.NewString(),
		ClientID:       clientID,
		IdempotencyKey: idempotencyKey,
		Message:        message,
		Meta:           meta,
		Status:         StatusPending,
		Attempts:       0,
		MaxAttempts:    DefaultMaxAttempts,
		NextRetryAt:    sql.NullTime{},
		CompletedAt:    sql.NullTime{},
		Error:          sql.NullString{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsTerminal reports whether the log reached SUCCESS or FAILED.
// Terminal logs never regress to any other state.
func (t *RelayLog) IsTerminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}

// CanAttemptDelivery validates whether a delivery attempt may start.
//
// Returns an error if delivery cannot be attempted:
//   - ErrAlreadySucceeded: Already delivered
//   - ErrAlreadyFailed: Retry budget already exhausted
//   - ErrAttemptInFlight: Another attempt holds the record
//   - ErrMaxAttemptsExceeded: No attempt budget left
func (t *RelayLog) CanAttemptDelivery() error {
	switch t.Status {
	case StatusSuccess:
		return ErrAlreadySucceeded
	case StatusFailed:
		return ErrAlreadyFailed
	case StatusRetrying:
		return ErrAttemptInFlight
	}
	if t.Attempts >= t.MaxAttempts {
		return ErrMaxAttemptsExceeded
	}
	return nil
}

// BeginAttempt transitions the log into RETRYING and charges one attempt.
// The attempt is charged before the downstream call so a crash mid-attempt
// still counts the try (attempts counts tries, not successes).
func (t *RelayLog) BeginAttempt() error {
	if err := t.CanAttemptDelivery(); err != nil {
		return err
	}
	t.Status = StatusRetrying
	t.Attempts++
	t.touch()
	return nil
}

// MarkSucceeded transitions RETRYING → SUCCESS, sets CompletedAt and clears
// the recorded error. SUCCESS is terminal.
func (t *RelayLog) MarkSucceeded() error {
	if t.IsTerminal() {
		return ErrTerminalState
	}
	now := time.Now()
	t.Status = StatusSuccess
	t.CompletedAt = sql.NullTime{Time: now, Valid: true}
	t.Error = sql.NullString{}
	t.NextRetryAt = sql.NullTime{}
	t.touch()
	return nil
}

// ScheduleRetry transitions the log back to PENDING with a retry scheduled
// retryAfter from now, recording the delivery error.
func (t *RelayLog) ScheduleRetry(deliveryErr error, retryAfter time.Duration) error {
	if t.IsTerminal() {
		return ErrTerminalState
	}
	t.Status = StatusPending
	t.NextRetryAt = sql.NullTime{Time: time.Now().Add(retryAfter), Valid: true}
	if deliveryErr != nil {
		t.Error = sql.NullString{String: deliveryErr.Error(), Valid: true}
	}
	t.touch()
	return nil
}

// MarkExhausted transitions the log to FAILED, recording the last delivery
// error. FAILED is terminal; no further automatic action is taken.
func (t *RelayLog) MarkExhausted(deliveryErr error) error {
	if t.IsTerminal() {
		return ErrTerminalState
	}
	t.Status = StatusFailed
	t.NextRetryAt = sql.NullTime{}
	if deliveryErr != nil {
		t.Error = sql.NullString{String: deliveryErr.Error(), Valid: true}
	}
	t.touch()
	return nil
}

// IsDue reports whether the log is eligible for a sweeper-driven retry at
// the given instant. Only PENDING logs with a reached NextRetryAt and
// remaining attempt budget are due.
func (t *RelayLog) IsDue(now time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	if !t.NextRetryAt.Valid {
		return false
	}
	if t.Attempts >= t.MaxAttempts {
		return false
	}
	return !t.NextRetryAt.Time.After(now)
}

// RemainingAttempts returns how many delivery attempts are left.
func (t *RelayLog) RemainingAttempts() int {
	remaining := t.MaxAttempts - t.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *RelayLog) touch() {
	t.UpdatedAt = time.Now()
}

// Domain errors returned by RelayLog business logic methods.
var (
	// ErrAlreadySucceeded indicates the message was already delivered.
	ErrAlreadySucceeded = DomainError{Code: "ALREADY_SUCCEEDED", Message: "Relay log already succeeded"}

	// ErrAlreadyFailed indicates the retry budget was already exhausted.
	ErrAlreadyFailed = DomainError{Code: "ALREADY_FAILED", Message: "Relay log already failed permanently"}

	// ErrAttemptInFlight indicates another delivery attempt holds the record.
	ErrAttemptInFlight = DomainError{Code: "ATTEMPT_IN_FLIGHT", Message: "Delivery attempt already in flight"}

	// ErrMaxAttemptsExceeded indicates the record has no attempt budget left.
	ErrMaxAttemptsExceeded = DomainError{Code: "MAX_ATTEMPTS", Message: "Maximum delivery attempts exceeded"}

	// ErrTerminalState indicates a mutation was attempted on a terminal record.
	ErrTerminalState = DomainError{Code: "TERMINAL_STATE", Message: "Relay log is in a terminal state"}
)

// DomainError represents a domain-level business rule violation.
// Used by RelayLog methods to return business logic errors.
type DomainError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
}

func (e DomainError) Error() string {
	return e.Message
}
