package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coregx/relay"
	"github.com/coregx/relay/model"
	"github.com/coregx/relica"
)

// RelayLogRepository implements relay.RelayLogRepository using Relica.
type RelayLogRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewRelayLogRepository creates a new RelayLogRepository with default table prefix.
func NewRelayLogRepository(sqlDB *sql.DB, driverName string) *RelayLogRepository {
	return &RelayLogRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: "relay_",
	}
}

// NewRelayLogRepositoryWithPrefix creates a new RelayLogRepository with custom table prefix.
func NewRelayLogRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *RelayLogRepository {
	return &RelayLogRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *RelayLogRepository) tableName() string {
	return r.tablePrefix + "log"
}

// Load retrieves a relay log by ID.
func (r *RelayLogRepository) Load(ctx context.Context, id string) (model.RelayLog, error) {
	var rl model.RelayLog

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("id = ?", id).
		WithContext(ctx).
		One(&rl)

	if errors.Is(err, sql.ErrNoRows) {
		return rl, relay.ErrNoData
	}
	if err != nil {
		return rl, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to load relay log", err)
	}

	return rl, nil
}

// FindByIdempotencyKey retrieves the relay log holding the given key.
func (r *RelayLogRepository) FindByIdempotencyKey(ctx context.Context, key string) (model.RelayLog, error) {
	var rl model.RelayLog

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("idempotency_key = ?", key).
		WithContext(ctx).
		One(&rl)

	if errors.Is(err, sql.ErrNoRows) {
		return rl, relay.ErrNoData
	}
	if err != nil {
		return rl, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find relay log by idempotency key", err)
	}

	return rl, nil
}

// Create inserts a new relay log. A violation of the idempotency key's
// unique constraint is reported as relay.ErrDuplicateKey so the publish
// path can re-read the winning record.
func (r *RelayLogRepository) Create(ctx context.Context, m *model.RelayLog) error {
	err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Insert()
	if err != nil {
		if isUniqueViolation(err) {
			return relay.NewErrorWithCause(relay.ErrCodeConflict, "idempotency key already exists", err)
		}
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to insert relay log", err)
	}

	return nil
}

// Update persists the current state of an existing relay log.
func (r *RelayLogRepository) Update(ctx context.Context, m *model.RelayLog) error {
	err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Update()
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to update relay log", err)
	}

	return nil
}

// ClaimAttempt atomically transitions a log into RETRYING and charges one
// attempt. The update is conditional on the row still being PENDING with
// exactly priorAttempts recorded, so two racing attempts can never both
// claim the same try.
func (r *RelayLogRepository) ClaimAttempt(ctx context.Context, id string, priorAttempts int) (bool, error) {
	res, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"status":     model.StatusRetrying,
			"attempts":   priorAttempts + 1,
			"updated_at": time.Now(),
		}).
		Where("id = ? AND status = ? AND attempts = ?", id, model.StatusPending, priorAttempts).
		WithContext(ctx).
		Execute()

	if err != nil {
		return false, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to claim delivery attempt", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to read claim result", err)
	}

	return affected == 1, nil
}

// FindDueRetries retrieves relay logs due for a delivery attempt.
func (r *RelayLogRepository) FindDueRetries(ctx context.Context, now time.Time, limit int) ([]model.RelayLog, error) {
	var logs []model.RelayLog

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("status = ? AND next_retry_at <= ? AND attempts < max_attempts", model.StatusPending, now).
		OrderBy("next_retry_at ASC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&logs)

	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find due retries", err)
	}

	if len(logs) == 0 {
		return nil, relay.ErrNoData
	}

	return logs, nil
}
