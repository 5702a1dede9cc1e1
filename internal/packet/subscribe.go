package packet

import (
	"github.com/nullwave/goqtt/internal/packet/utils"
	"github.com/nullwave/goqtt/pkg/er"
)

// SubscribeFilter is one (topic filter, options) pair from a SUBSCRIBE
// payload. NoLocal is the MQTT 5 subscribe option this broker tolerates
// (spec.md §6); it is read from bit 2 of the options byte whatever the
// client's protocol level, since the decoder does not know the level.
type SubscribeFilter struct {
	Filter  string
	QoS     QoSLevel
	NoLocal bool
}

// Subscribe is a decoded SUBSCRIBE packet.
type Subscribe struct {
	PacketID uint16
	Filters  []SubscribeFilter
}

// DecodeSubscribe parses a SUBSCRIBE packet's variable header and
// payload. Fixed-header flags must be 0x2 per MQTT 3.1.1 section 3.8.1.
func DecodeSubscribe(raw []byte) (*Subscribe, error) {
	if len(raw) < 1 {
		return nil, &er.Err{Context: "Subscribe", Message: er.ErrShortBuffer}
	}
	if raw[0]&0x0F != 0x02 {
		return nil, &er.Err{Context: "Subscribe, Flags", Message: er.ErrInvalidSubscribeFlags}
	}

	_, offset, _, err := splitFixedHeader(raw)
	if err != nil {
		return nil, err
	}
	body := raw[offset:]

	packetID, err := utils.ParsePacketID(body)
	if err != nil {
		return nil, &er.Err{Context: "Subscribe, PacketID", Message: er.ErrMissingPacketID}
	}
	body = body[2:]

	sp := &Subscribe{PacketID: packetID}

	for len(body) > 0 {
		filter, n, err := utils.ParseString(body)
		if err != nil {
			return nil, &er.Err{Context: "Subscribe, Filter", Message: er.ErrShortBuffer}
		}
		body = body[n:]

		if len(body) < 1 {
			return nil, &er.Err{Context: "Subscribe, Options", Message: er.ErrShortBuffer}
		}
		options := body[0]
		body = body[1:]

		qos := QoSLevel(options & 0x03)
		if qos > QoSExactlyOnce {
			return nil, &er.Err{Context: "Subscribe, QoS", Message: er.ErrInvalidQoSLevel}
		}

		sp.Filters = append(sp.Filters, SubscribeFilter{
			Filter:  filter,
			QoS:     qos,
			NoLocal: options&0x04 != 0,
		})
	}

	if len(sp.Filters) == 0 {
		return nil, &er.Err{Context: "Subscribe", Message: er.ErrNoTopicFilters}
	}

	return sp, nil
}

// SUBACK return codes, including the MQTT 5 wildcard-subscriptions-
// not-supported style failure code the broker uses for protocol level
// 5 clients (spec.md §4.2, §6).
const (
	SubAckMaxQoS0      byte = 0x00
	SubAckMaxQoS1      byte = 0x01
	SubAckMaxQoS2      byte = 0x02
	SubAckFailure      byte = 0x80
	SubAckFailureMQTT5 byte = 0x8F
)

// EncodeSubAck builds a SUBACK packet carrying one return code per
// requested filter, in request order.
func EncodeSubAck(packetID uint16, returnCodes []byte) []byte {
	remaining := 2 + len(returnCodes)
	out := make([]byte, 0, 2+remaining)
	out = append(out, byte(SUBACK))
	out = append(out, utils.EncodeRemainingLength(remaining)...)
	out = append(out, utils.EncodePacketID(packetID)...)
	out = append(out, returnCodes...)
	return out
}
