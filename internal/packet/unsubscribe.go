package packet

import (
	"github.com/nullwave/goqtt/internal/packet/utils"
	"github.com/nullwave/goqtt/pkg/er"
)

// Unsubscribe is a decoded UNSUBSCRIBE packet.
type Unsubscribe struct {
	PacketID uint16
	Filters  []string
}

// DecodeUnsubscribe parses an UNSUBSCRIBE packet's variable header and
// payload. Fixed-header flags must be 0x2, same as SUBSCRIBE.
func DecodeUnsubscribe(raw []byte) (*Unsubscribe, error) {
	if len(raw) < 1 {
		return nil, &er.Err{Context: "Unsubscribe", Message: er.ErrShortBuffer}
	}
	if raw[0]&0x0F != 0x02 {
		return nil, &er.Err{Context: "Unsubscribe, Flags", Message: er.ErrInvalidUnsubFlags}
	}

	_, offset, _, err := splitFixedHeader(raw)
	if err != nil {
		return nil, err
	}
	body := raw[offset:]

	packetID, err := utils.ParsePacketID(body)
	if err != nil {
		return nil, &er.Err{Context: "Unsubscribe, PacketID", Message: er.ErrMissingPacketID}
	}
	body = body[2:]

	up := &Unsubscribe{PacketID: packetID}
	for len(body) > 0 {
		filter, n, err := utils.ParseString(body)
		if err != nil {
			return nil, &er.Err{Context: "Unsubscribe, Filter", Message: er.ErrShortBuffer}
		}
		body = body[n:]
		up.Filters = append(up.Filters, filter)
	}

	if len(up.Filters) == 0 {
		return nil, &er.Err{Context: "Unsubscribe", Message: er.ErrNoTopicFilters}
	}

	return up, nil
}

// EncodeUnsubAck builds an UNSUBACK packet for the given packet id.
func EncodeUnsubAck(packetID uint16) []byte {
	return []byte{byte(UNSUBACK), 0x02, byte(packetID >> 8), byte(packetID & 0xFF)}
}
