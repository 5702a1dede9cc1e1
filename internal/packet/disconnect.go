package packet

import "github.com/nullwave/goqtt/pkg/er"

// DecodeDisconnect validates a DISCONNECT packet: fixed header 0xE0,
// remaining length 0.
func DecodeDisconnect(raw []byte) error {
	if len(raw) != 2 || raw[0] != byte(DISCONNECT) || raw[1] != 0x00 {
		return &er.Err{Context: "Disconnect", Message: er.ErrInvalidPacketLength}
	}
	return nil
}
