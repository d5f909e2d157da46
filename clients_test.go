package relay

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClientManager(t *testing.T) (*ClientManager, *memoryClientRepository) {
	t.Helper()

	clients := newMemoryClientRepository()
	cm, err := NewClientManager(
		WithClientManagerRepository(clients),
		WithClientManagerLogger(&NoopLogger{}),
	)
	require.NoError(t, err)
	return cm, clients
}

func TestNewClientManager_RequiredOptions(t *testing.T) {
	_, err := NewClientManager()
	assert.Error(t, err)
}

func TestClientManager_RegisterClient(t *testing.T) {
	cm, _ := newTestClientManager(t)

	client, err := cm.RegisterClient(context.Background(), RegisterClientRequest{Name: "acme"})

	require.NoError(t, err)
	assert.Equal(t, "acme", client.Name)
	assert.True(t, strings.HasPrefix(client.APIKey, "rk_"))
	assert.True(t, client.IsActive)
}

func TestClientManager_RegisterClient_ValidatesName(t *testing.T) {
	cm, _ := newTestClientManager(t)

	_, err := cm.RegisterClient(context.Background(), RegisterClientRequest{Name: ""})

	assert.True(t, IsValidation(err), "expected validation error, got %v", err)
}

func TestClientManager_DeactivateClient(t *testing.T) {
	cm, clients := newTestClientManager(t)

	client, err := cm.RegisterClient(context.Background(), RegisterClientRequest{Name: "acme"})
	require.NoError(t, err)

	deactivated, err := cm.DeactivateClient(context.Background(), client.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	// The key no longer authenticates.
	_, err = clients.FindByAPIKey(context.Background(), client.APIKey)
	assert.True(t, IsNoData(err))

	// Deactivating again is a no-op.
	again, err := cm.DeactivateClient(context.Background(), client.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
}

func TestClientManager_DeactivateClient_Missing(t *testing.T) {
	cm, _ := newTestClientManager(t)

	_, err := cm.DeactivateClient(context.Background(), "missing-id")

	assert.True(t, IsNotFound(err))
}

func TestClientManager_GetClient(t *testing.T) {
	cm, _ := newTestClientManager(t)

	created, err := cm.RegisterClient(context.Background(), RegisterClientRequest{Name: "acme"})
	require.NoError(t, err)

	loaded, err := cm.GetClient(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)

	_, err = cm.GetClient(context.Background(), "missing-id")
	assert.True(t, IsNotFound(err))
}
