package store

import (
	"context"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// PebbleStore is an embedded-pebble-backed Store, for brokers that want
// retained messages to survive a process restart. This is retained-message
// durability only; session/topic/subscription state stays in-memory per
// spec.md's no-cluster, no-persistence model. Grounded on the teacher's
// generic PebbleStore[T].
type PebbleStore struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
	prefix []byte
}

// PebbleStoreConfig configures a PebbleStore.
type PebbleStoreConfig struct {
	Path string
	Opts *pebble.Options
}

// NewPebbleStore opens (or creates) a pebble database at config.Path.
func NewPebbleStore(config PebbleStoreConfig) (*PebbleStore, error) {
	opts := config.Opts
	if opts == nil {
		opts = &pebble.Options{ErrorIfExists: false}
	}
	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db, prefix: []byte("retained:")}, nil
}

func (p *PebbleStore) makeKey(topic string) []byte {
	key := make([]byte, len(p.prefix)+len(topic))
	copy(key, p.prefix)
	copy(key[len(p.prefix):], topic)
	return key
}

func (p *PebbleStore) Put(ctx context.Context, topic string, msg RetainedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrStoreClosed
	}
	p.mu.RUnlock()

	data, err := cbor.Marshal(msg)
	if err != nil {
		return err
	}
	return p.db.Set(p.makeKey(topic), data, pebble.Sync)
}

func (p *PebbleStore) Get(ctx context.Context, topic string) (RetainedMessage, error) {
	var zero RetainedMessage
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return zero, ErrStoreClosed
	}
	p.mu.RUnlock()

	data, closer, err := p.db.Get(p.makeKey(topic))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	defer closer.Close()

	var msg RetainedMessage
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return zero, err
	}
	return msg, nil
}

func (p *PebbleStore) Delete(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrStoreClosed
	}
	p.mu.RUnlock()
	return p.db.Delete(p.makeKey(topic), pebble.Sync)
}

func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStoreClosed
	}
	p.closed = true
	return p.db.Close()
}
