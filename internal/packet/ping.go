package packet

import "github.com/nullwave/goqtt/pkg/er"

// DecodePingReq validates a PINGREQ packet: fixed header 0xC0,
// remaining length 0, total packet length 2.
func DecodePingReq(raw []byte) error {
	if len(raw) != 2 || raw[0] != byte(PINGREQ) || raw[1] != 0x00 {
		return &er.Err{Context: "PingReq", Message: er.ErrInvalidPacketLength}
	}
	return nil
}

// EncodePingResp builds the fixed two-byte PINGRESP packet.
func EncodePingResp() []byte {
	return []byte{byte(PINGRESP), 0x00}
}
