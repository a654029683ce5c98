package client

import "github.com/axmq/lwmqtt/wire"

// EventSink is the client's single polymorphic callback capability, per
// §9's recommended strategy ("prefer a single polymorphic sink over six
// function pointers"). Embed NoopEventSink to implement only the events a
// caller cares about.
type EventSink interface {
	// OnConnect reports the outcome of a connect attempt. success is true
	// only when the broker's CONNACK carried wire.Accepted; code carries
	// the CONNACK return code, or wire.Disconnected (0xFF) if the
	// connection was torn down before any CONNACK arrived.
	OnConnect(success bool, code wire.ConnAckCode)

	// OnSubscribe reports a SUBACK: success is false if the broker
	// granted wire.QoSFailure (0x80).
	OnSubscribe(success bool, topic string, grantedQoS wire.QoS)

	// OnUnsubscribe reports a successful UNSUBACK. Per §9's explicit
	// correction ("UNSUBACK callback is never invoked in the source"),
	// this is always invoked with success = true once UNSUBACK parses.
	OnUnsubscribe(success bool, topic string)

	// OnPublish reports that an outgoing QoS > 0 publish's packet id has
	// been sent. The reference client has no PUBACK/PUBREC wait loop
	// (§4.3's MqttConnected case never names one for the client side of a
	// QoS > 0 publish), so this fires at send time, not at acknowledgment.
	OnPublish(packetID uint16)

	// OnPublishReceived delivers an incoming PUBLISH from the broker.
	OnPublishReceived(topic string, payload []byte, qos wire.QoS, retain bool)

	// OnDisconnect reports a connection loss after CONNACK. expected is
	// true only for a loss reported while the client is in
	// MqttDisconnecting; false for every other loss, including a
	// broker-initiated close or a keepalive timeout. A client-initiated
	// Disconnect does not invoke it: the next Task call moves from
	// MqttDisconnecting straight to Disconnected.
	OnDisconnect(expected bool)
}

// NoopEventSink implements EventSink with no-op methods, so a caller
// embedding it only needs to override the events it cares about.
type NoopEventSink struct{}

func (NoopEventSink) OnConnect(success bool, code wire.ConnAckCode)                    {}
func (NoopEventSink) OnSubscribe(success bool, topic string, grantedQoS wire.QoS)      {}
func (NoopEventSink) OnUnsubscribe(success bool, topic string)                         {}
func (NoopEventSink) OnPublish(packetID uint16)                                        {}
func (NoopEventSink) OnPublishReceived(topic string, payload []byte, qos wire.QoS, retain bool) {}
func (NoopEventSink) OnDisconnect(expected bool)                                       {}
