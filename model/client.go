package model

import (
	"time"

	"github.com/google/uuid"
)

// Client represents an authorization principal allowed to publish relay
// messages. Each client holds a unique API key; only active clients
// authenticate. The relay engine treats clients as read-only.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"apiKey" db:"api_key"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for Client.
func (t Client) TableName() string {
	return tablePrefix + "client"
}

// NewClient creates a new active client with a generated API key.
func NewClient(name string) Client {
	now := time.Now()

	return Client{
		ID:        uuid.NewString(),
		Name:      name,
		APIKey:    "rk_" + uuid.NewString(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Deactivate marks the client inactive. Inactive clients fail authentication.
func (t *Client) Deactivate() {
	t.IsActive = false
	t.UpdatedAt = time.Now()
}
