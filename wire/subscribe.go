package wire

// Subscribe is the SUBSCRIBE packet, §4.2. The reference implementation
// this spec is drawn from supports exactly one topic filter per SUBSCRIBE;
// a multi-topic payload is a documented extension point, not handled here.
type Subscribe struct {
	PacketID     uint16
	Topic        []byte
	RequestedQoS QoS
}

func (s Subscribe) Encode(dst []byte) ([]byte, error) {
	if !s.RequestedQoS.IsValid() {
		return dst, ErrInvalidPacketQoS
	}
	var varHeader []byte
	varHeader = append(varHeader, byte(s.PacketID>>8), byte(s.PacketID))

	var payload []byte
	var err error
	if payload, err = EncodeString(payload, s.Topic); err != nil {
		return dst, err
	}
	payload = append(payload, byte(s.RequestedQoS))

	remaining := uint32(len(varHeader) + len(payload))
	dst = append(dst, byte(SUBSCRIBE)<<4|0b0010)
	if dst, err = EncodeVarInt(dst, remaining); err != nil {
		return dst, err
	}
	dst = append(dst, varHeader...)
	dst = append(dst, payload...)
	return dst, nil
}

func DecodeSubscribe(body []byte) (Subscribe, error) {
	var s Subscribe
	if len(body) < 2 {
		return s, ErrInvalidPacketPayload
	}
	s.PacketID = Uint16(body[0:2])
	offset := 2
	var err error
	if s.Topic, offset, err = DecodeStringBytes(body, offset); err != nil {
		return s, err
	}
	if offset >= len(body) {
		return s, ErrInvalidPacketPayload
	}
	s.RequestedQoS = QoS(body[offset])
	if !s.RequestedQoS.IsValid() {
		return s, ErrInvalidPacketQoS
	}
	return s, nil
}

// SubAck is the SUBACK packet: a packet id and one granted-QoS byte, which
// must be 0-2 or the failure sentinel 0x80.
type SubAck struct {
	PacketID   uint16
	GrantedQoS QoS
}

func (a SubAck) Encode(dst []byte) ([]byte, error) {
	if !a.GrantedQoS.IsValid() && a.GrantedQoS != QoSFailure {
		return dst, ErrInvalidPacketQoS
	}
	dst = append(dst, byte(SUBACK)<<4, 3)
	dst = append(dst, byte(a.PacketID>>8), byte(a.PacketID), byte(a.GrantedQoS))
	return dst, nil
}

func DecodeSubAck(body []byte) (SubAck, error) {
	var a SubAck
	if len(body) != 3 {
		return a, ErrInvalidPacketPayload
	}
	a.PacketID = Uint16(body[0:2])
	a.GrantedQoS = QoS(body[2])
	if !a.GrantedQoS.IsValid() && a.GrantedQoS != QoSFailure {
		return a, ErrInvalidPacketQoS
	}
	return a, nil
}

// Unsubscribe is the UNSUBSCRIBE packet: packet id plus one topic.
type Unsubscribe struct {
	PacketID uint16
	Topic    []byte
}

func (u Unsubscribe) Encode(dst []byte) ([]byte, error) {
	var varHeader []byte
	varHeader = append(varHeader, byte(u.PacketID>>8), byte(u.PacketID))

	var payload []byte
	var err error
	if payload, err = EncodeString(payload, u.Topic); err != nil {
		return dst, err
	}

	remaining := uint32(len(varHeader) + len(payload))
	dst = append(dst, byte(UNSUBSCRIBE)<<4|0b0010)
	if dst, err = EncodeVarInt(dst, remaining); err != nil {
		return dst, err
	}
	dst = append(dst, varHeader...)
	dst = append(dst, payload...)
	return dst, nil
}

func DecodeUnsubscribe(body []byte) (Unsubscribe, error) {
	var u Unsubscribe
	if len(body) < 2 {
		return u, ErrInvalidPacketPayload
	}
	u.PacketID = Uint16(body[0:2])
	topic, _, err := DecodeStringBytes(body, 2)
	if err != nil {
		return u, err
	}
	u.Topic = topic
	return u, nil
}
