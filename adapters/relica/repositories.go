package relica

import (
	"database/sql"
	"strings"

	"github.com/coregx/relay"
)

// Repositories holds all repository implementations.
type Repositories struct {
	RelayLog relay.RelayLogRepository
	Client   relay.ClientRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or
// SQLite. The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "relay_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return &Repositories{
		RelayLog: NewRelayLogRepository(db, driverName),
		Client:   NewClientRepository(db, driverName),
	}
}

// NewRepositoriesWithPrefix creates all repository implementations with a
// custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		RelayLog: NewRelayLogRepositoryWithPrefix(db, driverName, prefix),
		Client:   NewClientRepositoryWithPrefix(db, driverName, prefix),
	}
}

// isUniqueViolation reports whether err is a uniqueness constraint violation
// from any of the supported drivers. Matched textually: MySQL reports
// "Duplicate entry" (1062), PostgreSQL "duplicate key value violates unique
// constraint" (23505), SQLite "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
