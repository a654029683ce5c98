package broker

import (
	"errors"
	"net"
	"time"
)

// acceptor wraps a net.Listener for non-blocking accept, mirroring
// stream.Socket's "a deadline of now, would-block surfaces distinctly from
// broken" pattern (§4.1) so Broker.Task's accept step never blocks the
// single task-stepping goroutine. The teacher's network.Listener instead
// runs accept on its own goroutine and hands completed connections to a
// channel-backed Pool; that model was dropped because it gives the
// listener its own concurrency, which §5's cooperative single-threaded
// model does not allow for an endpoint's own accept path.
type acceptor struct {
	ln net.Listener
}

// listen opens a TCP listener bound to addr.
func listen(addr string) (*acceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &acceptor{ln: ln}, nil
}

// tryAccept returns at most one pending connection, or (nil, false, nil)
// if none is currently waiting. A non-nil error is terminal to the
// listener (e.g. the listening socket itself failed).
func (a *acceptor) tryAccept() (net.Conn, bool, error) {
	type deadliner interface {
		SetDeadline(time.Time) error
	}
	if d, ok := a.ln.(deadliner); ok {
		_ = d.SetDeadline(time.Now())
	}
	conn, err := a.ln.Accept()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, false, nil
		}
		return nil, false, err
	}
	return conn, true, nil
}

func (a *acceptor) Addr() net.Addr { return a.ln.Addr() }

func (a *acceptor) Close() error { return a.ln.Close() }
