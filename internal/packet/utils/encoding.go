// Package utils holds the pure byte-level primitives the MQTT wire
// codec is built from: variable-length "remaining length" encoding,
// length-prefixed UTF-8 strings, and 16-bit packet identifiers. None
// of these functions touch I/O; they only read/write byte slices.
package utils

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/nullwave/goqtt/pkg/er"
)

// MaxRemainingLength is the largest value the 4-byte variable-length
// encoding can represent (128^4 - 1, MQTT 3.1.1 section 2.2.3).
const MaxRemainingLength = 268435455

// EncodeRemainingLength encodes length using the MQTT variable-length
// scheme: 7 bits of value per byte, continuation bit in bit 7.
func EncodeRemainingLength(length int) []byte {
	if length < 0 || length > MaxRemainingLength {
		length = 0
	}

	var encoded []byte
	for {
		b := byte(length % 128)
		length /= 128
		if length > 0 {
			b |= 0x80
		}
		encoded = append(encoded, b)
		if length == 0 {
			break
		}
	}
	return encoded
}

// ParseRemainingLength decodes the variable-length "remaining length"
// field starting at data[0]. It returns the decoded length, the
// number of bytes consumed, and an error if the buffer is short or
// the encoding spans more than 4 bytes (malformed per spec.md §4.1).
func ParseRemainingLength(data []byte) (int, int, error) {
	var length, multiplier, offset int
	multiplier = 1

	for {
		if offset >= len(data) {
			return 0, 0, &er.Err{Context: "ParseRemainingLength", Message: er.ErrShortBuffer}
		}
		if offset >= 4 {
			return 0, 0, &er.Err{Context: "ParseRemainingLength", Message: er.ErrRemainingLengthExceeded}
		}

		b := data[offset]
		length += int(b&0x7F) * multiplier
		if length > MaxRemainingLength {
			return 0, 0, &er.Err{Context: "ParseRemainingLength", Message: er.ErrRemainingLengthExceeded}
		}

		multiplier *= 128
		offset++

		if b&0x80 == 0 {
			break
		}
	}

	return length, offset, nil
}

// EncodeString writes s as a 2-byte big-endian length prefix followed
// by its UTF-8 bytes.
func EncodeString(s string) []byte {
	out := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(out, uint16(len(s)))
	copy(out[2:], s)
	return out
}

// ParseString reads a length-prefixed UTF-8 string from data[0:].
// Returns the string, bytes consumed, and an error if the declared
// length would overrun the buffer or the bytes are not valid UTF-8.
func ParseString(data []byte) (string, int, error) {
	if len(data) < 2 {
		return "", 0, &er.Err{Context: "ParseString", Message: er.ErrShortBuffer}
	}

	length := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+length {
		return "", 0, &er.Err{Context: "ParseString", Message: er.ErrShortBuffer}
	}

	s := string(data[2 : 2+length])
	if !utf8.ValidString(s) {
		return "", 0, &er.Err{Context: "ParseString", Message: er.ErrInvalidUTF8String}
	}

	return s, 2 + length, nil
}

// EncodePacketID encodes a 16-bit packet identifier big-endian.
func EncodePacketID(packetID uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, packetID)
	return out
}

// ParsePacketID decodes a 16-bit packet identifier. Packet id 0 is
// reserved (spec.md §3 invariant 6) and is rejected here.
func ParsePacketID(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, &er.Err{Context: "ParsePacketID", Message: er.ErrShortBuffer}
	}
	id := binary.BigEndian.Uint16(data[0:2])
	if id == 0 {
		return 0, &er.Err{Context: "ParsePacketID", Message: er.ErrInvalidPacketID}
	}
	return id, nil
}
