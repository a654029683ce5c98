package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a go-redis-backed Store, for brokers sharing retained
// state across multiple broker processes (the session/topic/subscription
// pools themselves stay single-process per spec.md; only the retained-
// message plane is shared). Grounded on the teacher's generic
// RedisStore[T].
type RedisStore struct {
	client *redis.Client
	mu     sync.RWMutex
	closed bool
	prefix string
}

// RedisStoreConfig configures a RedisStore.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	Options  *redis.Options
}

// NewRedisStore connects to Redis and verifies reachability with a PING.
func NewRedisStore(ctx context.Context, config RedisStoreConfig) (*RedisStore, error) {
	var client *redis.Client
	if config.Options != nil {
		client = redis.NewClient(config.Options)
	} else {
		client = redis.NewClient(&redis.Options{Addr: config.Addr, Password: config.Password, DB: config.DB})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client, prefix: "retained:"}, nil
}

func (r *RedisStore) makeKey(topic string) string {
	return r.prefix + topic
}

func (r *RedisStore) Put(ctx context.Context, topic string, msg RetainedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal retained message: %w", err)
	}
	if err := r.client.Set(ctx, r.makeKey(topic), data, 0).Err(); err != nil {
		return fmt.Errorf("put retained message: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, topic string) (RetainedMessage, error) {
	var zero RetainedMessage
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return zero, ErrStoreClosed
	}
	r.mu.RUnlock()

	data, err := r.client.Get(ctx, r.makeKey(topic)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("get retained message: %w", err)
	}
	var msg RetainedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return zero, fmt.Errorf("unmarshal retained message: %w", err)
	}
	return msg, nil
}

func (r *RedisStore) Delete(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	if err := r.client.Del(ctx, r.makeKey(topic)).Err(); err != nil {
		return fmt.Errorf("delete retained message: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrStoreClosed
	}
	r.closed = true
	return r.client.Close()
}
