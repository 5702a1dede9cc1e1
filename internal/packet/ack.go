package packet

import (
	"github.com/nullwave/goqtt/internal/packet/utils"
	"github.com/nullwave/goqtt/pkg/er"
)

// PUBACK, PUBREC, PUBREL and PUBCOMP share an identical wire shape:
// a one-byte fixed header, remaining length 2, and a 16-bit packet id.
// PUBREL additionally reserves fixed-header flags 0x2 (spec.md §4.4).

func encodeAck(t Type, packetID uint16) []byte {
	out := []byte{byte(t), 0x02, 0, 0}
	if t == PUBREL {
		out[0] |= 0x02
	}
	copy(out[2:], utils.EncodePacketID(packetID))
	return out
}

// EncodePubAck builds a PUBACK packet for the given packet id.
func EncodePubAck(packetID uint16) []byte { return encodeAck(PUBACK, packetID) }

// EncodePubRec builds a PUBREC packet for the given packet id.
func EncodePubRec(packetID uint16) []byte { return encodeAck(PUBREC, packetID) }

// EncodePubRel builds a PUBREL packet for the given packet id.
func EncodePubRel(packetID uint16) []byte { return encodeAck(PUBREL, packetID) }

// EncodePubComp builds a PUBCOMP packet for the given packet id.
func EncodePubComp(packetID uint16) []byte { return encodeAck(PUBCOMP, packetID) }

// DecodeAck decodes the packet id out of a PUBACK/PUBREC/PUBREL/PUBCOMP
// packet, validating it is exactly 4 bytes with remaining length 2.
func DecodeAck(raw []byte) (uint16, error) {
	if len(raw) != 4 {
		return 0, &er.Err{Context: "Ack", Message: er.ErrInvalidPacketLength}
	}
	if raw[1] != 0x02 {
		return 0, &er.Err{Context: "Ack", Message: er.ErrInvalidPacketLength}
	}
	return utils.ParsePacketID(raw[2:4])
}
