package broker

import (
	"net"

	"github.com/axmq/lwmqtt/qos"
	"github.com/axmq/lwmqtt/stream"
	"github.com/axmq/lwmqtt/timer"
	"github.com/axmq/lwmqtt/wire"
)

// sessionState is a broker-held session's position in §4.4's per-session
// state machine - a small subset of the client's five states, since a
// broker session only ever exists once a TCP accept has already happened.
type sessionState int

const (
	// sessionTCPConnected is the state immediately after accept, waiting
	// for the client's CONNECT. The session's deadline timer bounds how
	// long it may wait.
	sessionTCPConnected sessionState = iota
	// sessionMqttConnected is the normal operating state once CONNECT has
	// been accepted and CONNACK sent.
	sessionMqttConnected
)

// will is the broker's copy of a session's CONNECT will message,
// delivered to matching subscribers on an ungraceful teardown.
type will struct {
	topic   string
	payload []byte
	qos     wire.QoS
	retain  bool
}

// Session is one broker-held connection, inline per §9 ("session slots
// with inline client-id/will buffers" rather than heap-allocated,
// separately-pooled pieces). It is advanced only from Broker.Task; it
// owns no goroutine.
type Session struct {
	socket  *stream.Socket
	decoder *wire.Decoder

	// rx is reused scratch for one framed packet body (everything after
	// the fixed header); DecodePublish/DecodeSubscribe/etc. slice into it
	// rather than copying, per §4.2's buffer-reuse convention.
	rx *stream.Buffer

	state         sessionState
	clientID      string
	cleanSession  bool
	expectedClose bool
	remoteAddr    net.Addr

	hasWill bool
	will    will

	// deadline serves two purposes depending on state: in
	// sessionTCPConnected it is the "client must send CONNECT by" timer;
	// in sessionMqttConnected it is the keepalive timer, reset on every
	// packet received from the client (§4.4's "if the session's keepalive
	// timer expires with no ingress, tear down").
	deadline timer.Timer

	// outIDs assigns packet ids for QoS>0 messages the broker forwards to
	// this session as a subscriber. No inflight table backs it - per the
	// A1 qos package's scope note, retransmission/dedup was out of scope
	// for this spec, so a forwarded QoS>0 PUBLISH is fire-and-forget; the
	// predicate below always reports free, so the allocator degenerates
	// to a plain wrapping counter.
	outIDs *qos.Allocator
}

func newSession(conn *stream.Socket, addr net.Addr, rxCapacity int) *Session {
	return &Session{
		socket:     conn,
		decoder:    wire.NewDecoder(),
		rx:         stream.NewBuffer(make([]byte, rxCapacity)),
		remoteAddr: addr,
		outIDs:     qos.NewAllocator(),
	}
}

// nextOutPacketID allocates the next packet id this session will use when
// the broker forwards it a QoS>0 PUBLISH.
func (s *Session) nextOutPacketID() uint16 {
	id, err := s.outIDs.Next(func(uint16) bool { return false })
	if err != nil {
		// Next only fails when every id is already reported in-use by the
		// caller's predicate; our predicate never does, so this is
		// unreachable.
		return 1
	}
	return id
}

func (s *Session) resetFraming() {
	s.decoder.Reset()
	s.rx.Reset()
}
