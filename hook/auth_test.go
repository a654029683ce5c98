package hook

import (
	"context"
	"testing"

	"github.com/axmq/lwmqtt/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCredentialStoreVerify(t *testing.T) {
	store := NewMemoryCredentialStore()
	store.AddUser("alice", "s3cret")

	assert.True(t, store.Verify([]byte("alice"), []byte("s3cret")))
	assert.False(t, store.Verify([]byte("alice"), []byte("wrong")))
	assert.False(t, store.Verify([]byte("bob"), []byte("s3cret")))
}

func TestMemoryCredentialStoreRemoveUser(t *testing.T) {
	store := NewMemoryCredentialStore()
	store.AddUser("alice", "s3cret")
	store.RemoveUser("alice")
	assert.False(t, store.Verify([]byte("alice"), []byte("s3cret")))
}

func TestAuthHookAdmitsValidCredentials(t *testing.T) {
	store := NewMemoryCredentialStore()
	store.AddUser("alice", "s3cret")
	h := NewAuthHook(store, false)

	code, err := h.Admit(context.Background(), ConnectRequest{
		HasUsername: true, Username: []byte("alice"),
		HasPassword: true, Password: []byte("s3cret"),
	})
	require.NoError(t, err)
	assert.Equal(t, wire.Accepted, code)
}

func TestAuthHookRefusesBadCredentials(t *testing.T) {
	store := NewMemoryCredentialStore()
	store.AddUser("alice", "s3cret")
	h := NewAuthHook(store, false)

	code, err := h.Admit(context.Background(), ConnectRequest{
		HasUsername: true, Username: []byte("alice"),
		HasPassword: true, Password: []byte("nope"),
	})
	require.NoError(t, err)
	assert.Equal(t, wire.RefusedCredentials, code)
}

func TestAuthHookRefusesAnonymousWhenDisallowed(t *testing.T) {
	h := NewAuthHook(NewMemoryCredentialStore(), false)
	code, err := h.Admit(context.Background(), ConnectRequest{})
	require.NoError(t, err)
	assert.Equal(t, wire.RefusedNotAuthed, code)
}

func TestAuthHookAllowsAnonymousWhenEnabled(t *testing.T) {
	h := NewAuthHook(NewMemoryCredentialStore(), true)
	code, err := h.Admit(context.Background(), ConnectRequest{})
	require.NoError(t, err)
	assert.Equal(t, wire.Accepted, code)
}
