// Package store implements the pluggable retained-message store described
// in §4.8: recovered from the data model's Will/Retain fields having
// storage semantics implied but unspecified by spec.md. Retained messages
// are the one piece of broker state this spec allows to survive a
// restart (spec.md's Non-goals exclude session/topic/subscription
// persistence, not this).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/axmq/lwmqtt/wire"
)

var (
	ErrNotFound    = errors.New("retained message not found")
	ErrStoreClosed = errors.New("store is closed")
)

// RetainedMessage is what a Store persists for one topic.
type RetainedMessage struct {
	Topic    string
	Payload  []byte
	QoS      wire.QoS
	StoredAt time.Time
}

// Store is the retained-message backend a broker consults on SUBSCRIBE and
// updates on a retained PUBLISH. All methods are context-aware so a
// network-backed implementation (PebbleStore, RedisStore) can honor
// cancellation/deadlines; MemoryStore ignores ctx beyond an early
// cancellation check for interface consistency.
type Store interface {
	// Put stores or overwrites the retained message for topic.
	Put(ctx context.Context, topic string, msg RetainedMessage) error
	// Get returns the retained message for topic, or ErrNotFound if none
	// is stored.
	Get(ctx context.Context, topic string) (RetainedMessage, error)
	// Delete clears any retained message for topic. It is not an error to
	// delete a topic with nothing retained.
	Delete(ctx context.Context, topic string) error
	// Close releases the store's resources. A closed store rejects
	// further calls with ErrStoreClosed.
	Close() error
}
