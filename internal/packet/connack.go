package packet

// CONNACK return codes (spec.md §4.3, §7).
const (
	ConnectionAccepted          byte = 0x00
	UnacceptableProtocolVersion byte = 0x01
	IdentifierRejected          byte = 0x02
	ServerUnavailable           byte = 0x03
	BadUsernameOrPassword       byte = 0x04
	NotAuthorized               byte = 0x05
)

// EncodeConnAck builds the two-byte CONNACK variable header (session
// present flag in bit 0, return code) prefixed by its fixed header.
func EncodeConnAck(sessionPresent bool, returnCode byte) []byte {
	flags := byte(0x00)
	if sessionPresent {
		flags = 0x01
	}
	return []byte{byte(CONNACK), 0x02, flags, returnCode}
}
