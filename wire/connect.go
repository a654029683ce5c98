package wire

// protocolName is the exact 6-byte MQTT 3.1.1 protocol name field: a
// 2-byte length prefix (4) followed by "MQTT" (§6).
var protocolName = []byte{0x00, 0x04, 'M', 'Q', 'T', 'T'}

// ProtocolLevel is the MQTT 3.1.1 protocol level byte.
const ProtocolLevel byte = 4

// Connect flag bits (§4.2).
const (
	connectFlagUsername    = 0x80
	connectFlagPassword    = 0x40
	connectFlagWillRetain  = 0x20
	connectFlagWillQoSMask = 0x18
	connectFlagWillQoSShift = 3
	connectFlagWill        = 0x04
	connectFlagCleanSess   = 0x02
)

// Connect is the CONNECT packet (client -> broker), §4.2.
type Connect struct {
	CleanSession bool
	Keepalive    uint16

	ClientID []byte

	WillFlag    bool
	WillTopic   []byte
	WillMessage []byte
	WillQoS     QoS
	WillRetain  bool

	HasUsername bool
	Username    []byte
	HasPassword bool
	Password    []byte
}

// Encode appends the full CONNECT packet (fixed header included) to dst.
func (c Connect) Encode(dst []byte) ([]byte, error) {
	if len(c.ClientID) > MaxStringLength {
		return dst, ErrInvalidParam
	}
	if c.WillFlag && !c.WillQoS.IsValid() {
		return dst, ErrInvalidParam
	}

	var varHeader []byte
	varHeader = append(varHeader, protocolName...)
	varHeader = append(varHeader, ProtocolLevel)

	var flags byte
	if c.CleanSession {
		flags |= connectFlagCleanSess
	}
	if c.WillFlag {
		flags |= connectFlagWill
		flags |= byte(c.WillQoS) << connectFlagWillQoSShift
		if c.WillRetain {
			flags |= connectFlagWillRetain
		}
	}
	if c.HasUsername {
		flags |= connectFlagUsername
	}
	if c.HasPassword {
		flags |= connectFlagPassword
	}
	varHeader = append(varHeader, flags)
	varHeader = append(varHeader, byte(c.Keepalive>>8), byte(c.Keepalive))

	var payload []byte
	var err error
	if payload, err = EncodeString(payload, c.ClientID); err != nil {
		return dst, err
	}
	if c.WillFlag {
		if payload, err = EncodeString(payload, c.WillTopic); err != nil {
			return dst, err
		}
		if payload, err = EncodeString(payload, c.WillMessage); err != nil {
			return dst, err
		}
	}
	if c.HasUsername {
		if payload, err = EncodeString(payload, c.Username); err != nil {
			return dst, err
		}
	}
	if c.HasPassword {
		if payload, err = EncodeString(payload, c.Password); err != nil {
			return dst, err
		}
	}

	remaining := uint32(len(varHeader) + len(payload))
	dst = append(dst, byte(CONNECT)<<4)
	dst, err = EncodeVarInt(dst, remaining)
	if err != nil {
		return dst, err
	}
	dst = append(dst, varHeader...)
	dst = append(dst, payload...)
	return dst, nil
}

// DecodeConnect parses a CONNECT's variable header + payload (everything
// after the fixed header) from a fully-framed packet body.
func DecodeConnect(body []byte) (Connect, error) {
	var c Connect
	if len(body) < 10 {
		return c, ErrInvalidPacketPayload
	}
	if body[0] != 0x00 || body[1] != 0x04 || body[2] != 'M' || body[3] != 'Q' || body[4] != 'T' || body[5] != 'T' {
		return c, ErrInvalidProtocolName
	}
	if body[6] != ProtocolLevel {
		return c, ErrInvalidProtocolName
	}
	flags := body[7]
	c.Keepalive = Uint16(body[8:10])
	c.CleanSession = flags&connectFlagCleanSess != 0
	c.WillFlag = flags&connectFlagWill != 0
	c.WillRetain = flags&connectFlagWillRetain != 0
	c.WillQoS = QoS((flags & connectFlagWillQoSMask) >> connectFlagWillQoSShift)
	c.HasUsername = flags&connectFlagUsername != 0
	c.HasPassword = flags&connectFlagPassword != 0

	if c.WillFlag && !c.WillQoS.IsValid() {
		return c, ErrInvalidPacketQoS
	}
	if c.HasPassword && !c.HasUsername {
		return c, ErrInvalidPacketPayload
	}

	offset := 10
	var err error
	if c.ClientID, offset, err = DecodeStringBytes(body, offset); err != nil {
		return c, err
	}
	if c.WillFlag {
		if c.WillTopic, offset, err = DecodeStringBytes(body, offset); err != nil {
			return c, err
		}
		if c.WillMessage, offset, err = DecodeStringBytes(body, offset); err != nil {
			return c, err
		}
	}
	if c.HasUsername {
		if c.Username, offset, err = DecodeStringBytes(body, offset); err != nil {
			return c, err
		}
	}
	if c.HasPassword {
		if c.Password, offset, err = DecodeStringBytes(body, offset); err != nil {
			return c, err
		}
	}
	return c, nil
}

// ConnAck is the CONNACK packet (broker -> client), §4.2.
type ConnAck struct {
	SessionPresent bool
	ReturnCode     ConnAckCode
}

// Encode appends the full CONNACK packet to dst.
func (a ConnAck) Encode(dst []byte) ([]byte, error) {
	dst = append(dst, byte(CONNACK)<<4, 2)
	var sp byte
	if a.SessionPresent {
		sp = 1
	}
	dst = append(dst, sp, byte(a.ReturnCode))
	return dst, nil
}

// DecodeConnAck parses a CONNACK's 2-byte body.
func DecodeConnAck(body []byte) (ConnAck, error) {
	var a ConnAck
	if len(body) != 2 {
		return a, ErrInvalidPacketPayload
	}
	switch body[0] {
	case 0:
		a.SessionPresent = false
	case 1:
		a.SessionPresent = true
	default:
		return a, ErrInvalidPacketPayload
	}
	a.ReturnCode = ConnAckCode(body[1])
	return a, nil
}
