// Package client implements the client endpoint (C4): connect/subscribe/
// unsubscribe/publish/disconnect and the five-state machine described in
// §4.3. A Client is advanced exclusively from Task; like the broker, it
// owns no goroutine of its own (§5's single-threaded cooperative model).
package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/axmq/lwmqtt/config"
	"github.com/axmq/lwmqtt/qos"
	"github.com/axmq/lwmqtt/stream"
	"github.com/axmq/lwmqtt/timer"
	"github.com/axmq/lwmqtt/wire"
)

// dialTimeout bounds the one-shot TCP handshake Connect performs. Go's
// net.Dial has no async "begin connect, poll for writable" split the way a
// raw non-blocking BSD socket does, so Connect blocks for at most this long
// rather than returning immediately and polling - see the doc comment on
// Connect for how this collapses §4.3's TcpConnecting state.
const dialTimeout = 10 * time.Second

// will is the client's own copy of its configured Last Will and Testament,
// sent as part of CONNECT.
type will struct {
	topic   []byte
	message []byte
	qos     wire.QoS
	retain  bool
}

// Client is the client endpoint. Create with New, configure with the
// Set* methods while Disconnected, then drive it with Connect and
// repeated Task calls.
type Client struct {
	cfg  *config.ClientConfig
	sink EventSink

	state State

	socket  *stream.Socket
	decoder *wire.Decoder
	rx      *stream.Buffer

	clientID []byte

	hasUsername bool
	username    []byte
	hasPassword bool
	password    []byte

	hasWill bool
	will    will

	keepaliveMs uint64

	keepaliveTimer     timer.Timer
	responseTimer      timer.Timer
	waitingForResponse bool

	outIDs *qos.Allocator

	pollPeriod time.Duration
}

// New returns a Client in Disconnected, configured from cfg. sink receives
// every event; pass NoopEventSink{} (or embed it) if some events are
// unneeded.
func New(cfg *config.ClientConfig, sink EventSink) *Client {
	return &Client{
		cfg:         cfg,
		sink:        sink,
		state:       Disconnected,
		keepaliveMs: uint64(cfg.KeepaliveSeconds) * 1000,
		outIDs:      qos.NewAllocator(),
		pollPeriod:  time.Duration(cfg.PollPeriodMs) * time.Millisecond,
	}
}

// State reports the client's current position in §4.3's state machine.
func (c *Client) State() State { return c.state }

// SetClientID sets the client id CONNECT will carry. Only valid in
// Disconnected.
func (c *Client) SetClientID(id string) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	if len(id) > wire.MaxStringLength {
		return ErrInvalidParam
	}
	c.clientID = []byte(id)
	return nil
}

// SetCredentials sets the username/password CONNECT will carry. An empty
// username clears both (MQTT 3.1.1 forbids a password without a
// username). Only valid in Disconnected.
func (c *Client) SetCredentials(username, password string) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	if username == "" {
		c.hasUsername, c.username = false, nil
		c.hasPassword, c.password = false, nil
		return nil
	}
	if len(username) > wire.MaxStringLength || len(password) > wire.MaxStringLength {
		return ErrInvalidParam
	}
	c.hasUsername, c.username = true, []byte(username)
	c.hasPassword, c.password = password != "", []byte(password)
	return nil
}

// SetWill sets the Last Will and Testament CONNECT will carry. Only valid
// in Disconnected.
func (c *Client) SetWill(topic string, message []byte, qosLevel wire.QoS, retain bool) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	if topic == "" || !qosLevel.IsValid() {
		return ErrInvalidParam
	}
	if len(topic) > wire.MaxStringLength || len(message) > wire.MaxStringLength {
		return ErrInvalidParam
	}
	c.hasWill = true
	c.will = will{topic: []byte(topic), message: append([]byte(nil), message...), qos: qosLevel, retain: retain}
	return nil
}

// SetCallbacks replaces the client's event sink. Only valid in
// Disconnected.
func (c *Client) SetCallbacks(sink EventSink) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	if sink == nil {
		return ErrInvalidParam
	}
	c.sink = sink
	return nil
}

// SetKeepalive sets the keepalive period (seconds) CONNECT will carry and
// the client's own PINGREQ timer once connected. Only valid in
// Disconnected.
func (c *Client) SetKeepalive(seconds uint16) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	c.cfg.KeepaliveSeconds = seconds
	c.keepaliveMs = uint64(seconds) * 1000
	return nil
}

// SetBrokerResponseTimeout sets how long the client waits for a CONNACK,
// SUBACK, or UNSUBACK before disconnecting. Only valid in
// Disconnected.
func (c *Client) SetBrokerResponseTimeout(ms uint64) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	if ms == 0 {
		return ErrInvalidParam
	}
	c.cfg.ResponseTimeoutMs = ms
	return nil
}

// SetPollPeriod sets how long a single Task call's stream poll may wait
// for incoming bytes. Only valid in Disconnected.
func (c *Client) SetPollPeriod(d time.Duration) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	if d <= 0 {
		return ErrInvalidParam
	}
	c.pollPeriod = d
	return nil
}

func (c *Client) requireDisconnected() error {
	if c.state != Disconnected {
		return ErrInvalidState
	}
	return nil
}

// Connect dials addr (host:port) and transitions to TcpConnecting. Only
// valid in Disconnected.
//
// §4.3 specifies an async connect whose SocketPending result is itself
// treated as success (the handshake continues in the background, observed
// from TcpConnecting on a later Task). Go's net.Dial has no equivalent
// split - it blocks until the handshake completes or fails - so Connect
// performs the handshake synchronously and, on success, leaves the client
// in TcpConnecting anyway: the first Task call immediately sends CONNECT
// and advances to MqttConnecting, collapsing what would otherwise be a
// multi-step wait into one. A dial failure is reported as though the
// source's connect returned SocketFailed: the client stays Disconnected
// and Connect returns the error directly, since no socket yet exists.
func (c *Client) Connect(addr string) error {
	return c.connect(addr, nil)
}

// ConnectTLS is Connect, but the dialed connection is wrapped with
// tls.Client(conn, tlsCfg) before any MQTT byte is sent. As with the
// broker's StartTLS, the handshake is not forced eagerly: it runs lazily
// inside the first non-blocking Read/Write the state machine issues,
// surfacing as an ordinary ErrSocketPending retry until it completes.
func (c *Client) ConnectTLS(addr string, tlsCfg *tls.Config) error {
	if tlsCfg == nil {
		return ErrInvalidParam
	}
	return c.connect(addr, tlsCfg)
}

func (c *Client) connect(addr string, tlsCfg *tls.Config) error {
	if err := c.requireDisconnected(); err != nil {
		return err
	}
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", addr, err)
	}
	if tlsCfg != nil {
		conn = tls.Client(conn, tlsCfg)
	}
	c.socket = stream.NewSocket(conn)
	c.decoder = wire.NewDecoder()
	c.rx = stream.NewBuffer(make([]byte, rxCapacityFor(c.cfg)))
	c.state = TcpConnecting
	return nil
}

// rxCapacityFor sizes the client's framing scratch buffer to the largest
// body it is configured to receive: a CONNACK (tiny) or a PUBLISH bounded
// by the configured topic/payload limits.
func rxCapacityFor(cfg *config.ClientConfig) int {
	capacity := int(cfg.MaxTopicLength) + int(cfg.MaxPayloadSize) + 4
	if capacity < 16 {
		capacity = 16
	}
	return capacity
}

// Subscribe serializes a SUBSCRIBE for topic at the requested QoS,
// allocates a packet id, resets the keepalive timer, and arms the
// broker-response timer. Only valid in MqttConnected.
func (c *Client) Subscribe(topic string, requestedQoS wire.QoS) (uint16, error) {
	if c.state != MqttConnected {
		return 0, ErrInvalidState
	}
	if topic == "" || !requestedQoS.IsValid() {
		return 0, ErrInvalidParam
	}
	id := c.nextPacketID()
	buf, err := wire.Subscribe{PacketID: id, Topic: []byte(topic), RequestedQoS: requestedQoS}.Encode(nil)
	if err != nil {
		return 0, err
	}
	if err := c.write(buf); err != nil {
		return 0, err
	}
	c.armResponseWait()
	return id, nil
}

// Unsubscribe serializes an UNSUBSCRIBE for topic. Only valid in
// MqttConnected.
func (c *Client) Unsubscribe(topic string) (uint16, error) {
	if c.state != MqttConnected {
		return 0, ErrInvalidState
	}
	if topic == "" {
		return 0, ErrInvalidParam
	}
	id := c.nextPacketID()
	buf, err := wire.Unsubscribe{PacketID: id, Topic: []byte(topic)}.Encode(nil)
	if err != nil {
		return 0, err
	}
	if err := c.write(buf); err != nil {
		return 0, err
	}
	c.armResponseWait()
	return id, nil
}

// Publish serializes a PUBLISH for topic. Only valid in MqttConnected. The
// returned packet id is meaningful only when qosLevel > 0.
func (c *Client) Publish(topic string, payload []byte, qosLevel wire.QoS, retain bool) (uint16, error) {
	if c.state != MqttConnected {
		return 0, ErrInvalidState
	}
	if topic == "" || !qosLevel.IsValid() {
		return 0, ErrInvalidParam
	}
	var id uint16
	if qosLevel > wire.QoS0 {
		id = c.nextPacketID()
	}
	buf, err := wire.Publish{QoS: qosLevel, Retain: retain, Topic: []byte(topic), PacketID: id, Payload: payload}.Encode(nil)
	if err != nil {
		return 0, err
	}
	if err := c.write(buf); err != nil {
		return 0, err
	}
	c.keepaliveTimer.Reset()
	if qosLevel > wire.QoS0 {
		c.sink.OnPublish(id)
	}
	return id, nil
}

// Disconnect serializes DISCONNECT, transitions to MqttDisconnecting, and
// closes the socket. Only valid in MqttConnected.
func (c *Client) Disconnect() error {
	if c.state != MqttConnected {
		return ErrInvalidState
	}
	_ = c.write(wire.EncodeDisconnect(nil))
	c.state = MqttDisconnecting
	_ = c.socket.Close()
	return nil
}

func (c *Client) nextPacketID() uint16 {
	id, err := c.outIDs.Next(func(uint16) bool { return false })
	if err != nil {
		return 1
	}
	return id
}

func (c *Client) armResponseWait() {
	c.waitingForResponse = true
	c.responseTimer = timer.Start(c.cfg.ResponseTimeoutMs, false)
}

func (c *Client) write(buf []byte) error {
	if _, err := stream.WriteFull(c.socket, buf); err != nil {
		return err
	}
	c.keepaliveTimer.Reset()
	return nil
}

// Task runs one step of the client's state machine (§4.3).
func (c *Client) Task() error {
	switch c.state {
	case Disconnected:
		return nil
	case TcpConnecting:
		return c.stepTcpConnecting()
	case MqttConnecting:
		return c.stepMqttConnecting()
	case MqttConnected:
		return c.stepMqttConnected()
	case MqttDisconnecting:
		c.state = Disconnected
		return nil
	}
	return nil
}

// stepTcpConnecting sends CONNECT and arms the keepalive and
// broker-response timers (see Connect's doc comment for why this always
// runs on the very first Task call after a successful dial).
func (c *Client) stepTcpConnecting() error {
	conn := wire.Connect{
		CleanSession: true,
		Keepalive:    c.cfg.KeepaliveSeconds,
		ClientID:     c.clientID,
		WillFlag:     c.hasWill,
		WillTopic:    c.will.topic,
		WillMessage:  c.will.message,
		WillQoS:      c.will.qos,
		WillRetain:   c.will.retain,
		HasUsername:  c.hasUsername,
		Username:     c.username,
		HasPassword:  c.hasPassword,
		Password:     c.password,
	}
	buf, err := conn.Encode(nil)
	if err != nil {
		return c.disconnectWithNotification(err)
	}
	if _, err := stream.WriteFull(c.socket, buf); err != nil {
		return c.disconnectWithNotification(err)
	}
	c.keepaliveTimer = timer.Start(c.keepaliveMs, true)
	c.responseTimer = timer.Start(c.cfg.ResponseTimeoutMs, false)
	c.state = MqttConnecting
	return nil
}

// stepMqttConnecting polls for CONNACK and resolves the connect attempt.
func (c *Client) stepMqttConnecting() error {
	complete, err := c.pollAndFrame()
	if err != nil {
		return c.disconnectWithNotification(err)
	}
	if complete {
		defer c.resetFraming()
		header := c.decoder.Header()
		if header.Type != wire.CONNACK {
			return c.disconnectWithNotification(wire.ErrInvalidPacketType)
		}
		ack, derr := wire.DecodeConnAck(c.rx.Written())
		if derr != nil {
			return c.disconnectWithNotification(derr)
		}
		if ack.ReturnCode != wire.Accepted {
			_ = c.socket.Close()
			c.waitingForResponse = false
			c.state = Disconnected
			c.sink.OnConnect(false, ack.ReturnCode)
			return nil
		}
		c.sink.OnConnect(true, ack.ReturnCode)
		c.state = MqttConnected
		return nil
	}
	if c.responseTimer.HasExpired(timer.NowMs()) {
		return c.disconnectWithNotification(nil)
	}
	return nil
}

// stepMqttConnected sends a keepalive PINGREQ if due, then processes at
// most one incoming packet.
func (c *Client) stepMqttConnected() error {
	if c.keepaliveTimer.HasExpired(timer.NowMs()) {
		if _, err := stream.WriteFull(c.socket, wire.EncodePingReq(nil)); err != nil {
			return c.disconnectWithNotification(err)
		}
	}

	complete, err := c.pollAndFrame()
	if err != nil {
		return c.disconnectWithNotification(err)
	}
	if complete {
		defer c.resetFraming()
		if err := c.dispatch(); err != nil {
			return c.disconnectWithNotification(err)
		}
		return nil
	}

	if c.waitingForResponse && c.responseTimer.HasExpired(timer.NowMs()) {
		return c.disconnectWithNotification(nil)
	}
	return nil
}

// dispatch interprets one framed packet body while MqttConnected, per
// §4.3's MqttConnected bullet list. Packet types that list has no entry
// for - including PUBACK/PUBREC/PUBREL/PUBCOMP, since this client never
// tracks QoS > 0 delivery state past the initial send - fall into "any
// other type" and are a protocol error.
func (c *Client) dispatch() error {
	header := c.decoder.Header()
	body := c.rx.Written()

	switch header.Type {
	case wire.PUBLISH:
		p, err := wire.DecodePublish(header, body)
		if err != nil {
			return err
		}
		c.sink.OnPublishReceived(string(p.Topic), append([]byte(nil), p.Payload...), p.QoS, p.Retain)
		return nil

	case wire.SUBACK:
		a, err := wire.DecodeSubAck(body)
		if err != nil {
			return err
		}
		c.waitingForResponse = false
		c.sink.OnSubscribe(a.GrantedQoS != wire.QoSFailure, "", a.GrantedQoS)
		return nil

	case wire.UNSUBACK:
		_, err := wire.DecodeUnsubAck(body)
		if err != nil {
			return err
		}
		c.waitingForResponse = false
		c.sink.OnUnsubscribe(true, "")
		return nil

	case wire.PINGRESP:
		if err := wire.DecodePingResp(body); err != nil {
			return err
		}
		c.waitingForResponse = false
		return nil

	default:
		return wire.ErrInvalidPacketType
	}
}

// pollAndFrame waits up to the client's poll period for readable bytes,
// then drives the decoder for at most one framed packet. It reports
// (true, nil) when a full packet is ready in c.rx, (false, nil) when
// nothing completed this step (including "no bytes available"), and
// (false, err) for any terminal stream failure.
func (c *Client) pollAndFrame() (bool, error) {
	readable, err := c.socket.PollReadable(c.pollPeriod)
	if err != nil {
		return false, err
	}
	if !readable {
		return false, nil
	}
	state, err := c.decoder.Step(c.socket, c.rx)
	if err != nil {
		if errors.Is(err, wire.ErrInProgress) {
			return false, nil
		}
		return false, err
	}
	return state == wire.Complete, nil
}

func (c *Client) resetFraming() {
	c.decoder.Reset()
	c.rx.Reset()
}

// disconnectWithNotification implements §4.3's "Disconnect-with-
// notification": close the socket, invoke the right callback for the
// prior state, and return to Disconnected. cause is only used to decide
// nothing about the callback shape (the spec's callbacks carry no error
// value) but is returned so Task's caller can observe why, matching the
// Go idiom of returning errors instead of consulting thread-local state.
func (c *Client) disconnectWithNotification(cause error) error {
	prior := c.state
	if c.socket != nil {
		_ = c.socket.Close()
	}
	c.waitingForResponse = false
	c.state = Disconnected

	switch prior {
	case MqttConnected, MqttDisconnecting:
		c.sink.OnDisconnect(prior == MqttDisconnecting)
	default:
		c.sink.OnConnect(false, wire.Disconnected)
	}
	return cause
}
