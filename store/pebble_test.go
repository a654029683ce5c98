package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/axmq/lwmqtt/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPebbleStore(t *testing.T) *PebbleStore {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "retained")
	s, err := NewPebbleStore(PebbleStoreConfig{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPebbleStorePutGetRoundTrip(t *testing.T) {
	s := newTestPebbleStore(t)
	ctx := context.Background()
	msg := RetainedMessage{Topic: "a/b", Payload: []byte("hi"), QoS: wire.QoS2, StoredAt: time.Now()}

	require.NoError(t, s.Put(ctx, "a/b", msg))

	got, err := s.Get(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, msg.Payload, got.Payload)
	assert.Equal(t, msg.QoS, got.QoS)
}

func TestPebbleStoreGetMissingReturnsNotFound(t *testing.T) {
	s := newTestPebbleStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPebbleStoreDelete(t *testing.T) {
	s := newTestPebbleStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a/b", RetainedMessage{Topic: "a/b"}))
	require.NoError(t, s.Delete(ctx, "a/b"))

	_, err := s.Get(ctx, "a/b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPebbleStoreClosedRejectsOperations(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "retained")
	s, err := NewPebbleStore(PebbleStoreConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.ErrorIs(t, s.Put(ctx, "a", RetainedMessage{}), ErrStoreClosed)
	assert.ErrorIs(t, s.Close(), ErrStoreClosed)
}

func TestPebbleStorePersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "retained")
	s1, err := NewPebbleStore(PebbleStoreConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s1.Put(context.Background(), "a/b", RetainedMessage{Payload: []byte("persisted")}))
	require.NoError(t, s1.Close())

	s2, err := NewPebbleStore(PebbleStoreConfig{Path: dir})
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got.Payload)
}
