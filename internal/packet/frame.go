package packet

import (
	"bufio"
	"io"

	"github.com/nullwave/goqtt/internal/packet/utils"
	"github.com/nullwave/goqtt/pkg/er"
)

// ReadFrame reads exactly one MQTT control packet from r: the fixed
// header byte, the variable-length remaining-length field, and then
// remaining-length bytes of variable header + payload. It rejects any
// packet whose total encoded size exceeds MaxPacketSize, and never
// reads past the declared remaining length, so the caller can reuse r
// for the next frame.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	firstByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	var remLenBytes []byte
	var remainingLength, multiplier, offset int
	multiplier = 1

	for {
		if offset >= 4 {
			return nil, &er.Err{Context: "ReadFrame", Message: er.ErrRemainingLengthExceeded}
		}
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		remLenBytes = append(remLenBytes, b)
		remainingLength += int(b&0x7F) * multiplier
		multiplier *= 128
		offset++
		if b&0x80 == 0 {
			break
		}
	}

	total := 1 + len(remLenBytes) + remainingLength
	if total > MaxPacketSize {
		return nil, &er.Err{Context: "ReadFrame", Message: er.ErrPacketTooLarge}
	}

	raw := make([]byte, total)
	raw[0] = firstByte
	copy(raw[1:1+len(remLenBytes)], remLenBytes)

	if remainingLength > 0 {
		if _, err := io.ReadFull(r, raw[1+len(remLenBytes):]); err != nil {
			return nil, err
		}
	}

	return raw, nil
}

// splitFixedHeader returns the packet type, the offset at which the
// variable header begins (1 + size of the remaining-length field),
// and the declared remaining length.
func splitFixedHeader(raw []byte) (Type, int, int, error) {
	if len(raw) < 2 {
		return 0, 0, 0, &er.Err{Context: "Decode", Message: er.ErrShortBuffer}
	}
	remainingLength, n, err := utils.ParseRemainingLength(raw[1:])
	if err != nil {
		return 0, 0, 0, err
	}
	offset := 1 + n
	if len(raw) != offset+remainingLength {
		return 0, 0, 0, &er.Err{Context: "Decode", Message: er.ErrRemainingLenMismatch}
	}
	return Type(raw[0] & 0xF0), offset, remainingLength, nil
}
