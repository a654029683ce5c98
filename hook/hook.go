// Package hook implements the broker's CONNECT-time admission chain (§4.7):
// a small, synchronous plugin seam recovered from the spec's silence on
// authentication/authorization policy. Unlike the teacher's forty-method,
// MQTT5-oriented Hook interface (which covers the whole packet lifecycle),
// this Hook is scoped to exactly the decision the broker needs before it
// ever allocates a session: admit this CONNECT, or refuse it with a
// specific CONNACK return code.
package hook

import (
	"context"
	"net"
	"time"

	"github.com/axmq/lwmqtt/wire"
)

// ConnectRequest is the subset of a parsed CONNECT a hook needs to decide
// admission.
type ConnectRequest struct {
	ClientID    []byte
	HasUsername bool
	Username    []byte
	HasPassword bool
	Password    []byte
	RemoteAddr  net.Addr
}

// Hook decides whether to admit a connecting client. Admit returns
// wire.Accepted to allow the connection, or any other wire.ConnAckCode to
// refuse it with that specific reason. A non-nil error indicates the hook
// itself failed (e.g. its backing store was unreachable); the broker
// treats that the same as ServerUnavailable.
type Hook interface {
	ID() string
	Init(config any) error
	Stop() error
	Admit(ctx context.Context, req ConnectRequest) (wire.ConnAckCode, error)
}

// Base is a no-op Hook implementation meant to be embedded so a custom
// hook only needs to override Admit.
type Base struct {
	id string
}

// NewBase returns a Base identifying itself as id.
func NewBase(id string) *Base { return &Base{id: id} }

func (b *Base) ID() string            { return b.id }
func (b *Base) Init(config any) error { return nil }
func (b *Base) Stop() error           { return nil }

func (b *Base) Admit(ctx context.Context, req ConnectRequest) (wire.ConnAckCode, error) {
	return wire.Accepted, nil
}

// Chain runs an ordered list of hooks during CONNECT, each bounded by
// timeout. The first hook to refuse (or fail) short-circuits the rest, per
// §4.7 ("hooks run synchronously... must not block for longer than the
// broker's configured hook timeout - enforced by the broker, not the
// hook").
type Chain struct {
	hooks   []Hook
	timeout time.Duration
}

// NewChain returns an empty Chain enforcing timeout per hook call. A zero
// timeout means no deadline is applied.
func NewChain(timeout time.Duration) *Chain {
	return &Chain{timeout: timeout}
}

// Add appends h to the chain, to run after every hook already added.
func (c *Chain) Add(h Hook) {
	c.hooks = append(c.hooks, h)
}

// Admit runs every hook in order and returns the first refusal. If every
// hook allows the connection, it returns wire.Accepted.
func (c *Chain) Admit(ctx context.Context, req ConnectRequest) (wire.ConnAckCode, error) {
	for _, h := range c.hooks {
		hookCtx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			hookCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		code, err := h.Admit(hookCtx, req)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			return wire.ServerUnavailable, err
		}
		if hookCtx.Err() != nil {
			return wire.ServerUnavailable, hookCtx.Err()
		}
		if code != wire.Accepted {
			return code, nil
		}
	}
	return wire.Accepted, nil
}
