package wire

// Publish is the PUBLISH packet, §4.2. PacketID is only meaningful when
// QoS > 0; it is ignored on encode and left at zero on decode for QoS 0.
type Publish struct {
	DUP      bool
	QoS      QoS
	Retain   bool
	Topic    []byte
	PacketID uint16
	Payload  []byte
}

// Encode appends the full PUBLISH packet to dst.
func (p Publish) Encode(dst []byte) ([]byte, error) {
	if !p.QoS.IsValid() {
		return dst, ErrInvalidPacketQoS
	}

	var varHeader []byte
	var err error
	if varHeader, err = EncodeString(varHeader, p.Topic); err != nil {
		return dst, err
	}
	if p.QoS > QoS0 {
		varHeader = append(varHeader, byte(p.PacketID>>8), byte(p.PacketID))
	}

	remaining := uint32(len(varHeader) + len(p.Payload))
	header := FixedHeader{Type: PUBLISH, DUP: p.DUP, QoS: p.QoS, Retain: p.Retain}
	dst = append(dst, byte(PUBLISH)<<4|header.encodeFlags())
	if dst, err = EncodeVarInt(dst, remaining); err != nil {
		return dst, err
	}
	dst = append(dst, varHeader...)
	dst = append(dst, p.Payload...)
	return dst, nil
}

// DecodePublish parses a PUBLISH body given the fixed header already
// decoded (for DUP/QoS/Retain). The returned Topic and Payload are
// sub-slices of body, not copies - callers needing to retain them across a
// buffer reuse must copy.
func DecodePublish(header FixedHeader, body []byte) (Publish, error) {
	p := Publish{DUP: header.DUP, QoS: header.QoS, Retain: header.Retain}
	if !p.QoS.IsValid() {
		return p, ErrInvalidPacketQoS
	}

	var offset int
	var err error
	if p.Topic, offset, err = DecodeStringBytes(body, offset); err != nil {
		return p, err
	}
	if p.QoS > QoS0 {
		if offset+2 > len(body) {
			return p, ErrInvalidPacketPayload
		}
		p.PacketID = Uint16(body[offset : offset+2])
		offset += 2
	}
	p.Payload = body[offset:]
	return p, nil
}

// packetIDOnly covers the five packets whose entire body is a 2-byte
// packet id: PUBACK, PUBREC, PUBREL, PUBCOMP, UNSUBACK.
type packetIDOnly struct {
	packetType Type
	PacketID   uint16
}

func (p packetIDOnly) encode(dst []byte) []byte {
	dst = append(dst, byte(p.packetType)<<4|FixedHeader{Type: p.packetType}.encodeFlags(), 2)
	dst = append(dst, byte(p.PacketID>>8), byte(p.PacketID))
	return dst
}

func decodePacketIDOnly(body []byte) (uint16, error) {
	if len(body) != 2 {
		return 0, ErrInvalidPacketPayload
	}
	return Uint16(body), nil
}

// PubAck is the PUBACK packet.
type PubAck struct{ PacketID uint16 }

func (a PubAck) Encode(dst []byte) ([]byte, error) {
	return packetIDOnly{packetType: PUBACK, PacketID: a.PacketID}.encode(dst), nil
}

func DecodePubAck(body []byte) (PubAck, error) {
	id, err := decodePacketIDOnly(body)
	return PubAck{PacketID: id}, err
}

// PubRec is the PUBREC packet (QoS 2 extension point, §4.3).
type PubRec struct{ PacketID uint16 }

func (r PubRec) Encode(dst []byte) ([]byte, error) {
	return packetIDOnly{packetType: PUBREC, PacketID: r.PacketID}.encode(dst), nil
}

func DecodePubRec(body []byte) (PubRec, error) {
	id, err := decodePacketIDOnly(body)
	return PubRec{PacketID: id}, err
}

// PubRel is the PUBREL packet (QoS 2 extension point, §4.3). Unlike the
// OASIS 3.1.1 norm, this codec's reserved-flags rule (§4.2) only carves out
// SUBSCRIBE/UNSUBSCRIBE for 0b0010; PUBREL takes the default 0b0000 like
// PUBACK/PUBREC/PUBCOMP/UNSUBACK.
type PubRel struct{ PacketID uint16 }

func (r PubRel) Encode(dst []byte) ([]byte, error) {
	return packetIDOnly{packetType: PUBREL, PacketID: r.PacketID}.encode(dst), nil
}

func DecodePubRel(body []byte) (PubRel, error) {
	id, err := decodePacketIDOnly(body)
	return PubRel{PacketID: id}, err
}

// PubComp is the PUBCOMP packet (QoS 2 extension point, §4.3).
type PubComp struct{ PacketID uint16 }

func (c PubComp) Encode(dst []byte) ([]byte, error) {
	return packetIDOnly{packetType: PUBCOMP, PacketID: c.PacketID}.encode(dst), nil
}

func DecodePubComp(body []byte) (PubComp, error) {
	id, err := decodePacketIDOnly(body)
	return PubComp{PacketID: id}, err
}

// UnsubAck is the UNSUBACK packet.
type UnsubAck struct{ PacketID uint16 }

func (u UnsubAck) Encode(dst []byte) ([]byte, error) {
	return packetIDOnly{packetType: UNSUBACK, PacketID: u.PacketID}.encode(dst), nil
}

func DecodeUnsubAck(body []byte) (UnsubAck, error) {
	id, err := decodePacketIDOnly(body)
	return UnsubAck{PacketID: id}, err
}
