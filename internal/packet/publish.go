package packet

import (
	"github.com/nullwave/goqtt/internal/packet/utils"
	"github.com/nullwave/goqtt/pkg/er"
)

// Publish is a decoded or to-be-encoded PUBLISH packet.
type Publish struct {
	DUP      bool
	QoS      QoSLevel
	Retain   bool
	Topic    string
	PacketID uint16 // 0 for QoS 0 (no packet id present on the wire)
	Payload  []byte
}

// DecodePublish parses the variable header and payload of a PUBLISH
// packet. Topic and payload length limits (spec.md §3 invariant 7) are
// enforced by the caller after decoding, since truncation vs. rejection
// is a router/FSM policy decision, not a framing concern.
func DecodePublish(raw []byte) (*Publish, error) {
	if len(raw) < 2 {
		return nil, &er.Err{Context: "Publish", Message: er.ErrShortBuffer}
	}
	_, offset, _, err := splitFixedHeader(raw)
	if err != nil {
		return nil, err
	}

	fixedHeader := raw[0]
	p := &Publish{
		DUP:    fixedHeader&0x08 != 0,
		QoS:    QoSLevel((fixedHeader & 0x06) >> 1),
		Retain: fixedHeader&0x01 != 0,
	}
	if p.QoS > QoSExactlyOnce {
		return nil, &er.Err{Context: "Publish, QoS", Message: er.ErrInvalidQoSLevel}
	}
	if p.DUP && p.QoS == QoSAtMostOnce {
		return nil, &er.Err{Context: "Publish, DUP", Message: er.ErrInvalidDUPFlag}
	}

	body := raw[offset:]
	topic, n, err := utils.ParseString(body)
	if err != nil {
		return nil, &er.Err{Context: "Publish, Topic", Message: er.ErrShortBuffer}
	}
	if topic == "" {
		return nil, &er.Err{Context: "Publish, Topic", Message: er.ErrEmptyTopic}
	}
	p.Topic = topic
	body = body[n:]

	if p.QoS != QoSAtMostOnce {
		id, err := utils.ParsePacketID(body)
		if err != nil {
			return nil, &er.Err{Context: "Publish, PacketID", Message: er.ErrMissingPacketID}
		}
		p.PacketID = id
		body = body[2:]
	}

	if len(body) > 0 {
		p.Payload = append([]byte(nil), body...)
	}

	return p, nil
}

// Encode builds the wire form of a PUBLISH packet.
func (p *Publish) Encode() []byte {
	var varHeader []byte
	varHeader = append(varHeader, utils.EncodeString(p.Topic)...)
	if p.QoS != QoSAtMostOnce {
		varHeader = append(varHeader, utils.EncodePacketID(p.PacketID)...)
	}

	remaining := len(varHeader) + len(p.Payload)
	fixedHeader := byte(PUBLISH)
	if p.DUP {
		fixedHeader |= 0x08
	}
	fixedHeader |= byte(p.QoS) << 1
	if p.Retain {
		fixedHeader |= 0x01
	}

	out := make([]byte, 0, 1+4+remaining)
	out = append(out, fixedHeader)
	out = append(out, utils.EncodeRemainingLength(remaining)...)
	out = append(out, varHeader...)
	out = append(out, p.Payload...)
	return out
}
