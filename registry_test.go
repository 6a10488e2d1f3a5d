package empmos

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReusesClients(t *testing.T) {
	_, server := newFakeService(t)
	reg, err := NewRegistry(testParams(server.URL))
	require.NoError(t, err)
	defer reg.Close()

	a, err := reg.Client("alice", ConfigParams{DeviceGUID: "guid-alice"})
	require.NoError(t, err)
	again, err := reg.Client("alice", ConfigParams{DeviceGUID: "ignored"})
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, "guid-alice", a.Config.DeviceGUID)
	assert.Equal(t, "app-token", a.Config.AppToken)

	b, err := reg.Client("bob", ConfigParams{})
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, "guid-1", b.Config.DeviceGUID)

	def, err := reg.Default()
	require.NoError(t, err)
	empty, err := reg.Client("", ConfigParams{})
	require.NoError(t, err)
	assert.Same(t, def, empty)

	assert.Equal(t, []string{"alice", "bob", DefaultKey}, reg.Keys())

	found, ok := reg.Lookup("bob")
	require.True(t, ok)
	assert.Same(t, b, found)
	_, ok = reg.Lookup("carol")
	assert.False(t, ok)
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	svc, server := newFakeService(t)
	reg, err := NewRegistry(testParams(server.URL))
	require.NoError(t, err)
	defer reg.Close()

	a, err := reg.Client("alice", ConfigParams{})
	require.NoError(t, err)
	b, err := reg.Client("bob", ConfigParams{})
	require.NoError(t, err)

	_, err = a.Login("79990000001", "one")
	require.NoError(t, err)
	assert.True(t, a.IsActive())
	assert.False(t, b.IsActive())
	assert.Equal(t, 1, svc.count("/v1.0/auth/virtualLogin"))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	_, server := newFakeService(t)
	reg, err := NewRegistry(testParams(server.URL))
	require.NoError(t, err)
	defer reg.Close()

	var wg sync.WaitGroup
	clients := make([]*Client, 16)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := reg.Client("shared", ConfigParams{})
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range clients[1:] {
		assert.Same(t, clients[0], c)
	}
}

func TestRegistryValidatesBase(t *testing.T) {
	defer clearConfigEnv(nil)()

	_, err := NewRegistry(ConfigParams{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRegistryRejectsBadOverrides(t *testing.T) {
	_, server := newFakeService(t)
	reg, err := NewRegistry(testParams(server.URL))
	require.NoError(t, err)

	_, err = reg.Client("broken", ConfigParams{RateBurst: -1})
	assert.Error(t, err)
	_, ok := reg.Lookup("broken")
	assert.False(t, ok)
}
