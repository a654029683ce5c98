package hook

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/axmq/lwmqtt/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(ip string) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: 1234}
}

func TestRateLimitHookAllowsWithinBudget(t *testing.T) {
	h := NewRateLimitHook(2, time.Minute)
	req := ConnectRequest{RemoteAddr: addr("192.0.2.1")}

	code, err := h.Admit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, wire.Accepted, code)

	code, err = h.Admit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, wire.Accepted, code)
}

func TestRateLimitHookRefusesOverBudget(t *testing.T) {
	h := NewRateLimitHook(1, time.Minute)
	req := ConnectRequest{RemoteAddr: addr("192.0.2.2")}

	code, err := h.Admit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, wire.Accepted, code)

	code, err = h.Admit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, wire.ServerUnavailable, code)
}

func TestRateLimitHookWindowRollsOver(t *testing.T) {
	h := NewRateLimitHook(1, 10*time.Millisecond)
	req := ConnectRequest{RemoteAddr: addr("192.0.2.3")}

	code, _ := h.Admit(context.Background(), req)
	assert.Equal(t, wire.Accepted, code)

	time.Sleep(15 * time.Millisecond)

	code, _ = h.Admit(context.Background(), req)
	assert.Equal(t, wire.Accepted, code)
}

func TestRateLimitHookTracksAddressesIndependently(t *testing.T) {
	h := NewRateLimitHook(1, time.Minute)

	code, _ := h.Admit(context.Background(), ConnectRequest{RemoteAddr: addr("192.0.2.4")})
	assert.Equal(t, wire.Accepted, code)

	code, _ = h.Admit(context.Background(), ConnectRequest{RemoteAddr: addr("192.0.2.5")})
	assert.Equal(t, wire.Accepted, code)

	assert.Equal(t, 2, h.ActiveWindows())
}

func TestRateLimitHookResetClearsWindow(t *testing.T) {
	h := NewRateLimitHook(1, time.Minute)
	req := ConnectRequest{RemoteAddr: addr("192.0.2.6")}

	h.Admit(context.Background(), req)
	h.Reset("192.0.2.6")
	code, _ := h.Admit(context.Background(), req)
	assert.Equal(t, wire.Accepted, code)
}

func TestRateLimitHookNilAddrAlwaysAllowed(t *testing.T) {
	h := NewRateLimitHook(1, time.Minute)
	code, err := h.Admit(context.Background(), ConnectRequest{})
	require.NoError(t, err)
	assert.Equal(t, wire.Accepted, code)
}
