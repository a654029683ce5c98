// Package broker implements the broker endpoint (C5): the accept loop,
// per-session state machine, admission wiring, and topic fan-out described
// in §4.4. A Broker is advanced exclusively from Task; it owns no
// goroutine of its own, matching §5's single-threaded cooperative model.
package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/axmq/lwmqtt/config"
	"github.com/axmq/lwmqtt/hook"
	"github.com/axmq/lwmqtt/pkg/logger"
	"github.com/axmq/lwmqtt/qos"
	"github.com/axmq/lwmqtt/store"
	"github.com/axmq/lwmqtt/stream"
	"github.com/axmq/lwmqtt/timer"
	"github.com/axmq/lwmqtt/topic"
	"github.com/axmq/lwmqtt/wire"
	"github.com/google/uuid"
)

// minKeepaliveMs floors a declared keepalive's derived timeout so a
// client requesting an unreasonably short keepalive cannot make the
// broker busy-tear-down sessions.
const minKeepaliveMs = 1000

// State is the broker's top-level run state.
type State int

const (
	Stopped State = iota
	Running
)

// Broker is the broker endpoint. Create with New, bind a listening socket
// with Start, and call Task repeatedly (from whatever thread and however
// often the owning application chooses, per §5) to advance it.
type Broker struct {
	cfg *config.BrokerConfig

	acceptor *acceptor
	sessions *Pool[Session]
	table    *Table

	hooks    *hook.Chain
	retained store.Store
	log      logger.Logger
	metrics  *Metrics

	state      State
	rxCapacity int

	// tlsConfig, when non-nil, wraps every accepted connection with
	// tls.Server before it becomes a session. The listener itself stays
	// plain TCP and non-blocking (see acceptStep); the TLS handshake
	// proceeds lazily inside the session's own non-blocking Read/Write
	// calls, so a slow or stalled handshake never blocks Task.
	tlsConfig *tls.Config
}

// New builds a Broker from its configuration and wired-in components.
// hooks, retained, and log must not be nil; metrics may be nil to disable
// Prometheus collection entirely.
func New(cfg *config.BrokerConfig, hooks *hook.Chain, retained store.Store, log logger.Logger, metrics *Metrics) *Broker {
	return &Broker{
		cfg:        cfg,
		sessions:   NewPool[Session](int(cfg.MaxClientCount)),
		table:      NewTable(int(cfg.MaxTopicCount), int(cfg.MaxSubscriptionCount)),
		hooks:      hooks,
		retained:   retained,
		log:        log,
		metrics:    metrics,
		rxCapacity: rxCapacityFor(cfg),
	}
}

// rxCapacityFor sizes the per-session framing scratch buffer to the
// largest variable-header-plus-payload any packet type this broker
// accepts can carry, given its configured limits.
func rxCapacityFor(cfg *config.BrokerConfig) int {
	connectBody := 10 + int(cfg.MaxClientIDLength) + int(cfg.MaxWillTopicLength) + int(cfg.MaxWillMessageSize) + 2*int(wire.MaxStringLength)
	publishBody := int(cfg.MaxTopicLength) + int(cfg.MaxPayloadSize) + 4
	capacity := connectBody
	if publishBody > capacity {
		capacity = publishBody
	}
	return capacity + 64
}

// Start opens a listening TCP socket at addr and transitions to Running.
// On any error the broker remains Stopped.
func (b *Broker) Start(addr string) error {
	if b.state == Running {
		return ErrAlreadyRunning
	}
	a, err := listen(addr)
	if err != nil {
		return err
	}
	b.acceptor = a
	b.state = Running
	return nil
}

// StartTLS is Start, but every accepted connection is wrapped with
// tls.Server(conn, tlsCfg) before it becomes a session (see the tlsConfig
// field's doc comment for why the listener itself stays untouched).
func (b *Broker) StartTLS(addr string, tlsCfg *tls.Config) error {
	if err := b.Start(addr); err != nil {
		return err
	}
	b.tlsConfig = tlsCfg
	return nil
}

// Addr returns the listening socket's bound address, or nil if the
// broker is not Running.
func (b *Broker) Addr() net.Addr {
	if b.acceptor == nil {
		return nil
	}
	return b.acceptor.Addr()
}

// Stop closes the listening socket and every session's connection, and
// returns the broker to Stopped. Calling Stop while already Stopped is a
// no-op.
func (b *Broker) Stop() error {
	if b.state != Running {
		return nil
	}
	b.sessions.ForEach(func(h Handle, sess *Session) bool {
		sess.socket.Close()
		return true
	})
	err := b.acceptor.Close()
	b.state = Stopped
	return err
}

// Task runs one step of the broker's state machine (§4.4's "Task step"):
// at most one accept, then one packet processed per in-use session, in
// in-use-list (insertion) order.
func (b *Broker) Task() error {
	if b.state != Running {
		return ErrNotRunning
	}

	b.acceptStep()

	b.sessions.ForEach(func(h Handle, sess *Session) bool {
		b.stepSession(h, sess)
		return true
	})

	b.metrics.setActiveSessions(b.sessions.Len())
	b.metrics.setActiveTopics(b.table.TopicCount())
	return nil
}

// acceptStep accepts at most one pending connection, per §4.4's "Admission
// ordering" (bounding per-step work so no flood of connects starves
// already-established sessions).
func (b *Broker) acceptStep() {
	conn, ok, err := b.acceptor.tryAccept()
	if err != nil {
		b.log.Error("accept failed", "error", err)
		return
	}
	if !ok {
		return
	}

	h, err := b.sessions.Alloc()
	if err != nil {
		_ = conn.Close()
		b.metrics.incConnectionsDenied()
		return
	}
	if b.tlsConfig != nil {
		conn = tls.Server(conn, b.tlsConfig)
	}
	sess, _ := b.sessions.Get(h)
	*sess = *newSession(stream.NewSocket(conn), conn.RemoteAddr(), b.rxCapacity)
	sess.state = sessionTCPConnected
	sess.deadline = timer.Start(b.cfg.ConnectTimeoutMs, false)
	b.metrics.incConnections()
}

// stepSession advances one session by at most one framed packet,
// dispatching on its current state per §4.4.
func (b *Broker) stepSession(h Handle, sess *Session) {
	if sess.deadline.Armed() && sess.deadline.HasExpired(timer.NowMs()) {
		b.teardown(h, sess, sess.state == sessionMqttConnected)
		return
	}

	state, err := sess.decoder.Step(sess.socket, sess.rx)
	if err != nil {
		if errors.Is(err, wire.ErrInProgress) {
			return
		}
		b.teardown(h, sess, sess.state == sessionMqttConnected)
		return
	}
	if state != wire.Complete {
		return
	}

	header := sess.decoder.Header()
	body := sess.rx.Written()
	b.metrics.incPacketsReceived()
	b.metrics.addBytesReceived(len(body))

	switch sess.state {
	case sessionTCPConnected:
		b.handleConnect(h, sess, header, body)
	case sessionMqttConnected:
		b.handleConnected(h, sess, header, body)
	}
}

// handleConnect processes the one packet a TcpConnected session may
// receive: its CONNECT.
func (b *Broker) handleConnect(h Handle, sess *Session, header wire.FixedHeader, body []byte) {
	defer sess.resetFraming()

	if header.Type != wire.CONNECT {
		b.teardown(h, sess, false)
		return
	}

	c, err := wire.DecodeConnect(body)
	if err != nil {
		if errors.Is(err, wire.ErrInvalidProtocolName) {
			b.writeConnAck(sess, wire.ConnAck{ReturnCode: wire.RefusedProtocol})
		}
		b.teardown(h, sess, false)
		return
	}

	req := hook.ConnectRequest{
		ClientID:    c.ClientID,
		HasUsername: c.HasUsername,
		Username:    c.Username,
		HasPassword: c.HasPassword,
		Password:    c.Password,
		RemoteAddr:  sess.remoteAddr,
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(b.cfg.HookTimeoutMs)*time.Millisecond)
	code, hookErr := b.hooks.Admit(ctx, req)
	cancel()
	if hookErr != nil {
		code = wire.ServerUnavailable
	}
	if code != wire.Accepted {
		b.writeConnAck(sess, wire.ConnAck{ReturnCode: code})
		b.metrics.incConnectionsDenied()
		b.teardown(h, sess, false)
		return
	}

	clientID := string(c.ClientID)
	if clientID == "" {
		if !c.CleanSession {
			b.writeConnAck(sess, wire.ConnAck{ReturnCode: wire.RefusedClientID})
			b.teardown(h, sess, false)
			return
		}
		clientID = uuid.NewString()
	}
	sess.clientID = clientID
	sess.cleanSession = c.CleanSession
	sess.hasWill = c.WillFlag
	if c.WillFlag {
		sess.will = will{
			topic:   string(c.WillTopic),
			payload: append([]byte(nil), c.WillMessage...),
			qos:     c.WillQoS,
			retain:  c.WillRetain,
		}
	}

	b.writeConnAck(sess, wire.ConnAck{ReturnCode: wire.Accepted})

	var keepaliveMs uint64
	if c.Keepalive > 0 {
		keepaliveMs = uint64(c.Keepalive) * 1000 * 3 / 2
		if keepaliveMs < minKeepaliveMs {
			keepaliveMs = minKeepaliveMs
		}
	}
	sess.deadline = timer.Start(keepaliveMs, false)
	sess.state = sessionMqttConnected
}

// handleConnected dispatches the one packet an MqttConnected session
// received this step.
func (b *Broker) handleConnected(h Handle, sess *Session, header wire.FixedHeader, body []byte) {
	defer sess.resetFraming()

	var tornDown bool
	switch header.Type {
	case wire.PUBLISH:
		tornDown = b.handlePublish(h, sess, header, body)
	case wire.SUBSCRIBE:
		tornDown = b.handleSubscribe(h, sess, body)
	case wire.UNSUBSCRIBE:
		tornDown = b.handleUnsubscribe(h, sess, body)
	case wire.PINGREQ:
		if err := wire.DecodePingReq(body); err != nil {
			b.teardown(h, sess, true)
			tornDown = true
		} else {
			b.writePingResp(sess)
		}
	case wire.DISCONNECT:
		if err := wire.DecodeDisconnect(body); err != nil {
			b.teardown(h, sess, true)
		} else {
			sess.expectedClose = true
			b.teardown(h, sess, false)
		}
		tornDown = true
	default:
		b.teardown(h, sess, true)
		tornDown = true
	}

	if !tornDown {
		sess.deadline.Reset()
	}
}

func (b *Broker) handlePublish(h Handle, sess *Session, header wire.FixedHeader, body []byte) bool {
	p, err := wire.DecodePublish(header, body)
	if err != nil {
		b.teardown(h, sess, true)
		return true
	}
	if err := topic.Validate(p.Topic); err != nil {
		b.teardown(h, sess, true)
		return true
	}

	topicName := string(p.Topic)
	if p.Retain {
		b.storeRetained(topicName, p.Payload, p.QoS)
	}

	if th, ok := b.table.Match(topicName); ok {
		b.table.ForEachSubscriber(th, func(sh Handle, sub *subscriptionSlot) {
			subSess, ok := b.sessions.Get(sub.session)
			if !ok || subSess.state != sessionMqttConnected {
				return
			}
			_ = b.forwardPublish(subSess, topicName, p.Payload, qos.Downgrade(p.QoS, sub.qos))
		})
	}
	return false
}

func (b *Broker) handleSubscribe(h Handle, sess *Session, body []byte) bool {
	s, err := wire.DecodeSubscribe(body)
	if err != nil {
		b.teardown(h, sess, true)
		return true
	}
	if err := topic.ValidateFilter(s.Topic); err != nil {
		b.teardown(h, sess, true)
		return true
	}

	granted := s.RequestedQoS
	if wire.QoS(b.cfg.MaxQoS) < granted {
		granted = wire.QoS(b.cfg.MaxQoS)
	}

	topicName := string(s.Topic)
	th, err := b.table.FindOrCreate(topicName)
	if err != nil {
		b.writeSubAck(sess, wire.SubAck{PacketID: s.PacketID, GrantedQoS: wire.QoSFailure})
		return false
	}
	if _, err := b.table.Subscribe(th, h, granted); err != nil {
		b.writeSubAck(sess, wire.SubAck{PacketID: s.PacketID, GrantedQoS: wire.QoSFailure})
		return false
	}
	b.writeSubAck(sess, wire.SubAck{PacketID: s.PacketID, GrantedQoS: granted})

	if msg, err := b.retained.Get(context.Background(), topicName); err == nil {
		_ = b.forwardPublish(sess, topicName, msg.Payload, qos.Downgrade(msg.QoS, granted))
	}
	return false
}

func (b *Broker) handleUnsubscribe(h Handle, sess *Session, body []byte) bool {
	u, err := wire.DecodeUnsubscribe(body)
	if err != nil {
		b.teardown(h, sess, true)
		return true
	}
	if th, ok := b.table.Match(string(u.Topic)); ok {
		if _, emptied := b.table.Unsubscribe(th, h); emptied {
			b.table.RemoveTopic(th)
		}
	}
	b.writeUnsubAck(sess, wire.UnsubAck{PacketID: u.PacketID})
	return false
}

// teardown tears h's session down: if deliverWill, its will is fanned out
// first; then its socket closes, its subscriptions unlink (emptying and
// freeing any topic slot left with no subscribers), and its slot returns
// to the session pool's free list, per §4.4 step 3's ordering.
func (b *Broker) teardown(h Handle, sess *Session, deliverWill bool) {
	if deliverWill && sess.hasWill {
		b.deliverWill(sess)
	}
	_ = sess.socket.Close()
	emptied := b.table.ReleaseSession(h)
	for _, th := range emptied {
		b.table.RemoveTopic(th)
	}
	b.sessions.Release(h)
}

func (b *Broker) deliverWill(sess *Session) {
	if sess.will.retain {
		b.storeRetained(sess.will.topic, sess.will.payload, sess.will.qos)
	}
	th, ok := b.table.Match(sess.will.topic)
	if !ok {
		return
	}
	b.table.ForEachSubscriber(th, func(sh Handle, sub *subscriptionSlot) {
		subSess, ok := b.sessions.Get(sub.session)
		if !ok || subSess.state != sessionMqttConnected {
			return
		}
		_ = b.forwardPublish(subSess, sess.will.topic, sess.will.payload, qos.Downgrade(sess.will.qos, sub.qos))
	})
}

func (b *Broker) storeRetained(topicName string, payload []byte, qosLevel wire.QoS) {
	ctx := context.Background()
	if len(payload) == 0 {
		_ = b.retained.Delete(ctx, topicName)
		return
	}
	_ = b.retained.Put(ctx, topicName, store.RetainedMessage{
		Topic:    topicName,
		Payload:  append([]byte(nil), payload...),
		QoS:      qosLevel,
		StoredAt: time.Now(),
	})
}

// forwardPublish re-serializes a PUBLISH to sess, DUP cleared and RETAIN
// cleared per §4.4's routing fan-out rule (a forwarded message is never
// itself a retained delivery), assigning a fresh packet id from sess's own
// allocator when qosOut > 0.
func (b *Broker) forwardPublish(sess *Session, topicName string, payload []byte, qosOut wire.QoS) error {
	var packetID uint16
	if qosOut > wire.QoS0 {
		packetID = sess.nextOutPacketID()
	}
	buf, err := wire.Publish{QoS: qosOut, Topic: []byte(topicName), PacketID: packetID, Payload: payload}.Encode(nil)
	if err != nil {
		return err
	}
	b.send(sess, buf)
	return nil
}

func (b *Broker) writeConnAck(sess *Session, a wire.ConnAck) {
	buf, err := a.Encode(nil)
	if err != nil {
		return
	}
	b.send(sess, buf)
}

func (b *Broker) writeSubAck(sess *Session, a wire.SubAck) {
	buf, err := a.Encode(nil)
	if err != nil {
		return
	}
	b.send(sess, buf)
}

func (b *Broker) writeUnsubAck(sess *Session, u wire.UnsubAck) {
	buf, err := u.Encode(nil)
	if err != nil {
		return
	}
	b.send(sess, buf)
}

func (b *Broker) writePingResp(sess *Session) {
	b.send(sess, wire.EncodePingResp(nil))
}

// send writes buf to sess's socket. A failed write is not treated as
// fatal here: the next framing Step or keepalive check will observe the
// broken connection and tear the session down then, keeping teardown
// logic in one place.
func (b *Broker) send(sess *Session, buf []byte) {
	if _, err := stream.WriteFull(sess.socket, buf); err != nil {
		return
	}
	b.metrics.incPacketsSent()
	b.metrics.addBytesSent(len(buf))
}
