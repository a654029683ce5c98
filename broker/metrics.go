// Metrics registration, grounded on the golang-io-mqtt example's Stat type
// (counters/gauges registered once, served over promhttp). Unlike that
// example's RefreshUptime, which owns a background goroutine ticking a
// counter once a second, this Metrics has no uptime counter: every
// collector is updated by the broker while it handles connections and
// packets, so the broker never spawns a goroutine of its own (§4.9 / §5).
package broker

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the broker's Prometheus collectors (A4 expansion). A nil
// *Metrics is valid everywhere it is used (see the nil-safe inc*/add*/set*
// methods below) so metrics collection can be disabled without branching at
// every call site.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	ActiveTopics      prometheus.Gauge
	PacketsReceived   prometheus.Counter
	PacketsSent       prometheus.Counter
	BytesReceived     prometheus.Counter
	BytesSent         prometheus.Counter
	ConnectionsTotal  prometheus.Counter
	ConnectionsDenied prometheus.Counter
	RetainedMessages  prometheus.Gauge
}

// NewMetrics builds a fresh Metrics and registers it with reg (typically
// prometheus.DefaultRegisterer, or a private prometheus.NewRegistry() in
// tests to avoid collisions across test binaries).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "lwmqtt_broker_active_sessions", Help: "Number of sessions currently connected"}),
		ActiveTopics:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "lwmqtt_broker_active_topics", Help: "Number of topics with at least one subscriber"}),
		PacketsReceived:   prometheus.NewCounter(prometheus.CounterOpts{Name: "lwmqtt_broker_packets_received_total", Help: "Total MQTT packets received"}),
		PacketsSent:       prometheus.NewCounter(prometheus.CounterOpts{Name: "lwmqtt_broker_packets_sent_total", Help: "Total MQTT packets sent"}),
		BytesReceived:     prometheus.NewCounter(prometheus.CounterOpts{Name: "lwmqtt_broker_bytes_received_total", Help: "Total bytes received"}),
		BytesSent:         prometheus.NewCounter(prometheus.CounterOpts{Name: "lwmqtt_broker_bytes_sent_total", Help: "Total bytes sent"}),
		ConnectionsTotal:  prometheus.NewCounter(prometheus.CounterOpts{Name: "lwmqtt_broker_connections_total", Help: "Total accepted TCP connections"}),
		ConnectionsDenied: prometheus.NewCounter(prometheus.CounterOpts{Name: "lwmqtt_broker_connections_denied_total", Help: "Connections refused at accept or CONNECT"}),
		RetainedMessages:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "lwmqtt_broker_retained_messages", Help: "Number of topics with a retained message"}),
	}
	reg.MustRegister(
		m.ActiveSessions, m.ActiveTopics, m.PacketsReceived, m.PacketsSent,
		m.BytesReceived, m.BytesSent, m.ConnectionsTotal, m.ConnectionsDenied,
		m.RetainedMessages,
	)
	return m
}

func (m *Metrics) incPacketsReceived() {
	if m != nil {
		m.PacketsReceived.Inc()
	}
}

func (m *Metrics) incPacketsSent() {
	if m != nil {
		m.PacketsSent.Inc()
	}
}

func (m *Metrics) addBytesReceived(n int) {
	if m != nil {
		m.BytesReceived.Add(float64(n))
	}
}

func (m *Metrics) addBytesSent(n int) {
	if m != nil {
		m.BytesSent.Add(float64(n))
	}
}

func (m *Metrics) incConnections() {
	if m != nil {
		m.ConnectionsTotal.Inc()
	}
}

func (m *Metrics) incConnectionsDenied() {
	if m != nil {
		m.ConnectionsDenied.Inc()
	}
}

func (m *Metrics) setActiveSessions(n int) {
	if m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}

func (m *Metrics) setActiveTopics(n int) {
	if m != nil {
		m.ActiveTopics.Set(float64(n))
	}
}
