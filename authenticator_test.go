package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/relay/model"
)

func TestNewAuthenticator_RequiredDependencies(t *testing.T) {
	clients := newMemoryClientRepository()

	_, err := NewAuthenticator(nil, &NoopLogger{})
	assert.Error(t, err)

	_, err = NewAuthenticator(clients, nil)
	assert.Error(t, err)

	auth, err := NewAuthenticator(clients, &NoopLogger{})
	require.NoError(t, err)
	assert.NotNil(t, auth)
}

func TestAuthenticator_Authenticate(t *testing.T) {
	clients := newMemoryClientRepository()

	active := model.NewClient("active-client")
	require.NoError(t, clients.Create(context.Background(), &active))

	inactive := model.NewClient("inactive-client")
	inactive.Deactivate()
	require.NoError(t, clients.Create(context.Background(), &inactive))

	auth, err := NewAuthenticator(clients, &NoopLogger{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		apiKey   string
		expected *string // client ID, nil for rejection
	}{
		{"Active client key", active.APIKey, &active.ID},
		{"Empty key", "", nil},
		{"Unknown key", "rk_unknown", nil},
		{"Inactive client key", inactive.APIKey, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := auth.Authenticate(context.Background(), tt.apiKey)

			require.NoError(t, err)
			if tt.expected == nil {
				assert.Nil(t, client, "rejection is a nil client, not an error")
			} else {
				require.NotNil(t, client)
				assert.Equal(t, *tt.expected, client.ID)
			}
		})
	}
}
