package hook

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/axmq/lwmqtt/wire"
)

// CredentialStore verifies a username/password pair. Implementations must
// be safe for concurrent use.
type CredentialStore interface {
	Verify(username, password []byte) bool
}

// MemoryCredentialStore is a sync.RWMutex-guarded map, the default
// zero-configuration CredentialStore. Passwords are compared with
// crypto/subtle.ConstantTimeCompare to avoid leaking their length or
// content through timing, per the teacher's BasicAuthHook.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	users map[string]string
}

// NewMemoryCredentialStore returns an empty MemoryCredentialStore.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{users: make(map[string]string)}
}

// AddUser registers or overwrites a username/password pair.
func (s *MemoryCredentialStore) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// RemoveUser deletes a username, if present.
func (s *MemoryCredentialStore) RemoveUser(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

// Verify reports whether password matches the stored password for
// username. A missing username always fails.
func (s *MemoryCredentialStore) Verify(username, password []byte) bool {
	s.mu.RLock()
	expected, ok := s.users[string(username)]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), password) == 1
}

// AuthHook refuses CONNECTs that fail credential verification, per §4.7.
type AuthHook struct {
	*Base
	store          CredentialStore
	allowAnonymous bool
}

// NewAuthHook returns an AuthHook backed by store. If allowAnonymous is
// true, a CONNECT carrying neither username nor password is admitted
// without consulting store; one carrying credentials is always verified.
func NewAuthHook(store CredentialStore, allowAnonymous bool) *AuthHook {
	return &AuthHook{Base: NewBase("auth"), store: store, allowAnonymous: allowAnonymous}
}

func (h *AuthHook) Admit(_ context.Context, req ConnectRequest) (wire.ConnAckCode, error) {
	if !req.HasUsername && !req.HasPassword {
		if h.allowAnonymous {
			return wire.Accepted, nil
		}
		return wire.RefusedNotAuthed, nil
	}
	if !h.store.Verify(req.Username, req.Password) {
		return wire.RefusedCredentials, nil
	}
	return wire.Accepted, nil
}
