package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeFramed runs bytes through the fixed-header+varint framing exactly
// as the broker/client would, returning the header and raw body.
func decodeFramed(t *testing.T, data []byte) (FixedHeader, []byte) {
	t.Helper()
	typeByte := data[0]
	typ := Type(typeByte >> 4)
	_, qos, _, err := decodeFlags(typ, typeByte&0x0F)
	require.NoError(t, err)
	length, n, err := DecodeVarIntBytes(data[1:])
	require.NoError(t, err)
	header := FixedHeader{Type: typ, QoS: qos, RemainingLength: length}
	body := data[1+n : 1+n+int(length)]
	return header, body
}

func TestConnectRoundTrip(t *testing.T) {
	cases := []Connect{
		{ClientID: []byte("c1"), CleanSession: true, Keepalive: 30},
		{
			ClientID: []byte("c2"), CleanSession: false, Keepalive: 60,
			WillFlag: true, WillTopic: []byte("lwt"), WillMessage: []byte("bye"), WillQoS: QoS1, WillRetain: true,
			HasUsername: true, Username: []byte("u"), HasPassword: true, Password: []byte("p"),
		},
		{ClientID: []byte(""), CleanSession: true},
	}
	for _, c := range cases {
		encoded, err := c.Encode(nil)
		require.NoError(t, err)
		_, body := decodeFramed(t, encoded)
		got, err := DecodeConnect(body)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestConnAckRoundTrip(t *testing.T) {
	cases := []ConnAck{
		{SessionPresent: false, ReturnCode: Accepted},
		{SessionPresent: true, ReturnCode: RefusedNotAuthed},
	}
	for _, c := range cases {
		encoded, err := c.Encode(nil)
		require.NoError(t, err)
		_, body := decodeFramed(t, encoded)
		got, err := DecodeConnAck(body)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestPublishRoundTripAllQoS(t *testing.T) {
	cases := []Publish{
		{QoS: QoS0, Topic: []byte("a"), Payload: []byte("payload0")},
		{QoS: QoS1, Topic: []byte("a/b"), Payload: []byte("payload1"), PacketID: 7},
		{QoS: QoS2, Topic: []byte("a/b/c"), Payload: []byte("payload2"), PacketID: 99, DUP: true, Retain: true},
	}
	for _, c := range cases {
		encoded, err := c.Encode(nil)
		require.NoError(t, err)
		header, body := decodeFramed(t, encoded)
		got, err := DecodePublish(header, body)
		require.NoError(t, err)
		assert.Equal(t, c.QoS, got.QoS)
		assert.Equal(t, string(c.Topic), string(got.Topic))
		assert.Equal(t, string(c.Payload), string(got.Payload))
		if c.QoS > QoS0 {
			assert.Equal(t, c.PacketID, got.PacketID)
		}
	}
}

func TestAckPacketsRoundTrip(t *testing.T) {
	encoded, err := PubAck{PacketID: 5}.Encode(nil)
	require.NoError(t, err)
	_, body := decodeFramed(t, encoded)
	gotAck, err := DecodePubAck(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), gotAck.PacketID)

	encoded, err = PubRec{PacketID: 6}.Encode(nil)
	require.NoError(t, err)
	_, body = decodeFramed(t, encoded)
	gotRec, err := DecodePubRec(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(6), gotRec.PacketID)

	encoded, err = PubRel{PacketID: 7}.Encode(nil)
	require.NoError(t, err)
	_, body = decodeFramed(t, encoded)
	gotRel, err := DecodePubRel(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), gotRel.PacketID)

	encoded, err = PubComp{PacketID: 8}.Encode(nil)
	require.NoError(t, err)
	_, body = decodeFramed(t, encoded)
	gotComp, err := DecodePubComp(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(8), gotComp.PacketID)

	encoded, err = UnsubAck{PacketID: 9}.Encode(nil)
	require.NoError(t, err)
	_, body = decodeFramed(t, encoded)
	gotUnsuback, err := DecodeUnsubAck(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(9), gotUnsuback.PacketID)
}

func TestSubscribeUnsubscribeRoundTrip(t *testing.T) {
	s := Subscribe{PacketID: 1, Topic: []byte("a/+"), RequestedQoS: QoS2}
	encoded, err := s.Encode(nil)
	require.NoError(t, err)
	_, body := decodeFramed(t, encoded)
	got, err := DecodeSubscribe(body)
	require.NoError(t, err)
	assert.Equal(t, s.PacketID, got.PacketID)
	assert.Equal(t, string(s.Topic), string(got.Topic))
	assert.Equal(t, s.RequestedQoS, got.RequestedQoS)

	u := Unsubscribe{PacketID: 2, Topic: []byte("a/+")}
	encoded, err = u.Encode(nil)
	require.NoError(t, err)
	_, body = decodeFramed(t, encoded)
	gotU, err := DecodeUnsubscribe(body)
	require.NoError(t, err)
	assert.Equal(t, u.PacketID, gotU.PacketID)
	assert.Equal(t, string(u.Topic), string(gotU.Topic))
}

func TestSubAckRoundTripIncludingFailureSentinel(t *testing.T) {
	cases := []SubAck{
		{PacketID: 1, GrantedQoS: QoS0},
		{PacketID: 2, GrantedQoS: QoS2},
		{PacketID: 3, GrantedQoS: QoSFailure},
	}
	for _, c := range cases {
		encoded, err := c.Encode(nil)
		require.NoError(t, err)
		_, body := decodeFramed(t, encoded)
		got, err := DecodeSubAck(body)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestSubAckRejectsInvalidQoS(t *testing.T) {
	_, err := SubAck{PacketID: 1, GrantedQoS: 3}.Encode(nil)
	assert.ErrorIs(t, err, ErrInvalidPacketQoS)
}

func TestPingAndDisconnectEmptyBody(t *testing.T) {
	assert.Equal(t, []byte{0xC0, 0x00}, EncodePingReq(nil))
	assert.Equal(t, []byte{0xD0, 0x00}, EncodePingResp(nil))
	assert.Equal(t, []byte{0xE0, 0x00}, EncodeDisconnect(nil))

	require.NoError(t, DecodePingReq(nil))
	require.NoError(t, DecodePingResp(nil))
	require.NoError(t, DecodeDisconnect(nil))

	assert.ErrorIs(t, DecodePingReq([]byte{1}), ErrInvalidPacketPayload)
}

func TestFixedHeaderDispatchRejectsReservedBits(t *testing.T) {
	_, _, _, err := decodeFlags(SUBSCRIBE, 0)
	assert.ErrorIs(t, err, ErrInvalidPacketType)

	_, _, _, err = decodeFlags(PINGREQ, 1)
	assert.ErrorIs(t, err, ErrInvalidPacketType)

	_, _, _, err = decodeFlags(PUBLISH, 0x06)
	assert.ErrorIs(t, err, ErrInvalidPacketQoS)
}
