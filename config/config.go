// Package config loads client/broker configuration from YAML, per §6's
// "Expansion - configuration loading" note. Struct literals remain fully
// supported; LoadClientConfig/LoadBrokerConfig are an additive convenience
// on top, in the teacher's style of keeping config a plain struct with
// yaml tags rather than a bespoke parser.
package config

import (
	"fmt"
	"os"

	"github.com/axmq/lwmqtt/pkg/logger"
	"gopkg.in/yaml.v3"
)

// StoreBackend selects the retained-message store implementation (A3).
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StorePebble StoreBackend = "pebble"
	StoreRedis  StoreBackend = "redis"
)

// ClientConfig holds every option a client endpoint recognizes, per the §6
// configuration table.
type ClientConfig struct {
	// MaxQoS is the configured QoS ceiling (0-2). The client endpoint does
	// not read it: Subscribe and Publish send the QoS they are given, and
	// incoming PUBLISH and SUBACK QoS values are not checked against it.
	MaxQoS uint8 `yaml:"max_qos"`
	// MultitaskingEnabled is loaded and stored only. The client takes no
	// mutex whatever its value, so a Client is not safe for use from more
	// than one goroutine at a time.
	MultitaskingEnabled bool `yaml:"multitasking_enabled"`
	// LogEnabled gates whether any log line is ever emitted.
	LogEnabled bool `yaml:"log_enabled"`
	// LogLevel is the bitmask of logger.Level bits to emit when LogEnabled.
	LogLevel logger.Level `yaml:"log_level"`
	// MaxTopicLength bounds the inline RX topic buffer's capacity.
	MaxTopicLength uint32 `yaml:"max_topic_length"`
	// MaxPayloadSize bounds the inline RX payload buffer's capacity.
	MaxPayloadSize uint32 `yaml:"max_payload_size"`
	// KeepaliveSeconds is sent in CONNECT and drives the client's own
	// PINGREQ timer, whose period is KeepaliveSeconds * 1000 ms.
	KeepaliveSeconds uint16 `yaml:"keepalive_seconds"`
	// ResponseTimeoutMs bounds how long the client waits for a CONNACK,
	// SUBACK, or UNSUBACK before surfacing a disconnect.
	ResponseTimeoutMs uint64 `yaml:"response_timeout_ms"`
	// PollPeriodMs bounds how long a single task step's stream poll may
	// wait for incoming bytes before returning control to the caller.
	PollPeriodMs uint64 `yaml:"poll_period_ms"`
	// TLS enables TLS for Client.ConnectTLS when non-nil. Left nil, the
	// client dials a plain TCP connection.
	TLS *TLSConfig `yaml:"tls"`
}

// DefaultClientConfig returns conservative defaults matching the teacher's
// DefaultConfig convention.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		MaxQoS:            2,
		LogEnabled:        true,
		LogLevel:          logger.LevelError,
		MaxTopicLength:    256,
		MaxPayloadSize:    65535,
		KeepaliveSeconds:  60,
		ResponseTimeoutMs: 5000,
		PollPeriodMs:      20,
	}
}

// BrokerConfig holds every option a broker endpoint recognizes, per the §6
// configuration table plus the A2/A3/A4 expansion knobs.
type BrokerConfig struct {
	MaxQoS              uint8        `yaml:"max_qos"`
	MultitaskingEnabled bool         `yaml:"multitasking_enabled"`
	LogEnabled          bool         `yaml:"log_enabled"`
	LogLevel            logger.Level `yaml:"log_level"`

	MaxTopicLength       uint32 `yaml:"max_topic_length"`
	MaxPayloadSize       uint32 `yaml:"max_payload_size"`
	MaxClientCount       uint32 `yaml:"max_client_count"`
	MaxWillTopicLength   uint32 `yaml:"max_will_topic_length"`
	MaxWillMessageSize   uint32 `yaml:"max_will_message_size"`
	MaxClientIDLength    uint32 `yaml:"max_client_id_length"`
	MaxTopicCount        uint32 `yaml:"max_topic_count"`
	MaxSubscriptionCount uint32 `yaml:"max_subscription_count"`

	// HookTimeoutMs bounds how long admission hooks (A2) may run during
	// CONNECT before the broker aborts the chain and refuses the client.
	HookTimeoutMs uint64 `yaml:"hook_timeout_ms"`
	// ConnectTimeoutMs bounds how long a freshly-accepted TCP connection
	// may take to send its CONNECT before the broker tears it down.
	ConnectTimeoutMs uint64 `yaml:"connect_timeout_ms"`

	// RetainedStore selects the A3 retained-message backend.
	RetainedStore StoreBackend `yaml:"retained_store"`
	// PebbleDir is the on-disk directory used when RetainedStore is
	// "pebble".
	PebbleDir string `yaml:"pebble_dir"`
	// RedisAddr is the address used when RetainedStore is "redis".
	RedisAddr string `yaml:"redis_addr"`

	// MetricsEnabled toggles Prometheus counter/gauge registration (A4).
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// ListenAddr is the TCP address the broker's owning application binds
	// for incoming connections (transport wiring stays external to the
	// broker per spec.md, but the address still belongs in config).
	ListenAddr string `yaml:"listen_addr"`

	// TLS enables TLS for Broker.StartTLS when non-nil. Left nil, the
	// broker listens in plain TCP.
	TLS *TLSConfig `yaml:"tls"`
}

// DefaultBrokerConfig returns conservative defaults sized for local
// development and the cmd/lwmqtt-broker example.
func DefaultBrokerConfig() *BrokerConfig {
	return &BrokerConfig{
		MaxQoS:               2,
		LogEnabled:           true,
		LogLevel:             logger.LevelError,
		MaxTopicLength:       256,
		MaxPayloadSize:       65535,
		MaxClientCount:       1024,
		MaxWillTopicLength:   256,
		MaxWillMessageSize:   65535,
		MaxClientIDLength:    128,
		MaxTopicCount:        4096,
		MaxSubscriptionCount: 16384,
		HookTimeoutMs:        1000,
		ConnectTimeoutMs:     5000,
		RetainedStore:        StoreMemory,
		MetricsEnabled:       false,
		ListenAddr:           ":1883",
	}
}

// LoadClientConfig reads and parses a YAML client config file, starting
// from DefaultClientConfig so an omitted field keeps its default.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBrokerConfig reads and parses a YAML broker config file, starting
// from DefaultBrokerConfig so an omitted field keeps its default.
func LoadBrokerConfig(path string) (*BrokerConfig, error) {
	cfg := DefaultBrokerConfig()
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
