package qos

import "github.com/axmq/lwmqtt/wire"

// Downgrade returns the QoS a broker must use when forwarding a published
// message to a given subscriber: the lesser of the publisher's QoS and the
// QoS the subscriber was granted at SUBSCRIBE time. MQTT 3.1.1 never
// upgrades a message beyond what either side asked for.
func Downgrade(publishQoS, subscribedQoS wire.QoS) wire.QoS {
	if publishQoS < subscribedQoS {
		return publishQoS
	}
	return subscribedQoS
}

// Valid reports whether q is one of the three wire QoS levels (0, 1, 2).
// It deliberately excludes wire.QoSFailure (0x80), which is a SUBACK-only
// sentinel, never a QoS a PUBLISH or SUBSCRIBE may carry.
func Valid(q wire.QoS) bool {
	return q == wire.QoS0 || q == wire.QoS1 || q == wire.QoS2
}
