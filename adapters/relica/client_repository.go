package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relay"
	"github.com/coregx/relay/model"
	"github.com/coregx/relica"
)

// ClientRepository implements relay.ClientRepository using Relica.
type ClientRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewClientRepository creates a new ClientRepository with default table prefix.
func NewClientRepository(sqlDB *sql.DB, driverName string) *ClientRepository {
	return &ClientRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: "relay_",
	}
}

// NewClientRepositoryWithPrefix creates a new ClientRepository with custom table prefix.
func NewClientRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *ClientRepository {
	return &ClientRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *ClientRepository) tableName() string {
	return r.tablePrefix + "client"
}

// Load retrieves a client by ID.
func (r *ClientRepository) Load(ctx context.Context, id string) (model.Client, error) {
	var client model.Client

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("id = ?", id).
		WithContext(ctx).
		One(&client)

	if errors.Is(err, sql.ErrNoRows) {
		return client, relay.ErrNoData
	}
	if err != nil {
		return client, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to load client", err)
	}

	return client, nil
}

// FindByAPIKey retrieves the active client holding the given API key.
// Inactive clients are filtered out at the query level.
func (r *ClientRepository) FindByAPIKey(ctx context.Context, apiKey string) (model.Client, error) {
	var client model.Client

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("api_key = ? AND is_active = ?", apiKey, true).
		WithContext(ctx).
		One(&client)

	if errors.Is(err, sql.ErrNoRows) {
		return client, relay.ErrNoData
	}
	if err != nil {
		return client, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find client by API key", err)
	}

	return client, nil
}

// Create inserts a new client. An API key collision is reported as
// relay.ErrDuplicateKey.
func (r *ClientRepository) Create(ctx context.Context, m *model.Client) error {
	err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Insert()
	if err != nil {
		if isUniqueViolation(err) {
			return relay.NewErrorWithCause(relay.ErrCodeConflict, "API key already exists", err)
		}
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to insert client", err)
	}

	return nil
}

// Update persists the current state of an existing client.
func (r *ClientRepository) Update(ctx context.Context, m *model.Client) error {
	err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Update()
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to update client", err)
	}

	return nil
}
