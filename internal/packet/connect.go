package packet

import (
	"strings"

	"github.com/nullwave/goqtt/internal/packet/utils"
	"github.com/nullwave/goqtt/pkg/er"
)

// Connect flag bit positions in the CONNECT variable header's third byte.
const (
	connectFlagUsername     = 0x80
	connectFlagPassword     = 0x40
	connectFlagWillRetain   = 0x20
	connectFlagWillQoSMask  = 0x18
	connectFlagWillQoSShift = 3
	connectFlagWill         = 0x04
	connectFlagCleanStart   = 0x02
)

// Connect is a decoded CONNECT packet's variable header and payload.
type Connect struct {
	ProtocolName  string
	ProtocolLevel ProtocolLevel
	CleanSession  bool
	KeepAlive     uint16

	ClientID string

	HasWill     bool
	WillTopic   string
	WillMessage []byte
	WillQoS     QoSLevel
	WillRetain  bool

	HasUsername bool
	Username    string
	HasPassword bool
	Password    string
}

// DecodeConnect parses the variable header and payload of a CONNECT
// packet. raw is the full frame including the fixed header.
func DecodeConnect(raw []byte) (*Connect, error) {
	_, offset, _, err := splitFixedHeader(raw)
	if err != nil {
		return nil, err
	}
	body := raw[offset:]

	protocolName, n, err := utils.ParseString(body)
	if err != nil {
		return nil, &er.Err{Context: "Connect, ProtocolName", Message: er.ErrShortBuffer}
	}
	body = body[n:]

	cp := &Connect{ProtocolName: protocolName}
	if protocolName != "MQTT" {
		return nil, &er.Err{Context: "Connect, ProtocolName", Message: er.ErrUnsupportedProtocolName}
	}

	if len(body) < 1 {
		return nil, &er.Err{Context: "Connect, ProtocolLevel", Message: er.ErrShortBuffer}
	}
	cp.ProtocolLevel = ProtocolLevel(body[0])
	body = body[1:]
	if cp.ProtocolLevel != ProtocolLevel311 && cp.ProtocolLevel != ProtocolLevel5 {
		return nil, &er.Err{Context: "Connect, ProtocolLevel", Message: er.ErrUnsupportedProtocolLevel}
	}

	if len(body) < 1 {
		return nil, &er.Err{Context: "Connect, Flags", Message: er.ErrShortBuffer}
	}
	flags := body[0]
	body = body[1:]

	cp.HasUsername = flags&connectFlagUsername != 0
	cp.HasPassword = flags&connectFlagPassword != 0
	cp.WillRetain = flags&connectFlagWillRetain != 0
	cp.WillQoS = QoSLevel((flags & connectFlagWillQoSMask) >> connectFlagWillQoSShift)
	cp.HasWill = flags&connectFlagWill != 0
	cp.CleanSession = flags&connectFlagCleanStart != 0

	if cp.HasWill && cp.WillQoS > QoSExactlyOnce {
		return nil, &er.Err{Context: "Connect, WillQoS", Message: er.ErrInvalidWillQoS}
	}
	if !cp.HasUsername && cp.HasPassword {
		return nil, &er.Err{Context: "Connect, Flags", Message: er.ErrPasswordWithoutUsername}
	}

	if len(body) < 2 {
		return nil, &er.Err{Context: "Connect, KeepAlive", Message: er.ErrShortBuffer}
	}
	cp.KeepAlive = uint16(body[0])<<8 | uint16(body[1])
	body = body[2:]

	clientID, n, err := utils.ParseString(body)
	if err != nil {
		return nil, &er.Err{Context: "Connect, ClientID", Message: er.ErrShortBuffer}
	}
	body = body[n:]
	cp.ClientID = clientID

	if err := validateClientID(cp.ClientID, cp.CleanSession); err != nil {
		return nil, err
	}

	if cp.HasWill {
		willTopic, n, err := utils.ParseString(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, WillTopic", Message: er.ErrShortBuffer}
		}
		body = body[n:]
		cp.WillTopic = willTopic

		if len(body) < 2 {
			return nil, &er.Err{Context: "Connect, WillMessage", Message: er.ErrShortBuffer}
		}
		msgLen := int(body[0])<<8 | int(body[1])
		body = body[2:]
		if len(body) < msgLen {
			return nil, &er.Err{Context: "Connect, WillMessage", Message: er.ErrShortBuffer}
		}
		cp.WillMessage = append([]byte(nil), body[:msgLen]...)
		body = body[msgLen:]
	}

	if cp.HasUsername {
		username, n, err := utils.ParseString(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, Username", Message: er.ErrMalformedUsernameField}
		}
		body = body[n:]
		cp.Username = username
	}

	if cp.HasPassword {
		password, _, err := utils.ParseString(body)
		if err != nil {
			return nil, &er.Err{Context: "Connect, Password", Message: er.ErrMalformedPasswordField}
		}
		cp.Password = password
	}

	return cp, nil
}

// validateClientID enforces spec.md §4.3: clientId must be non-empty
// unless cleanSession is set. A non-empty clientId may contain only
// ASCII letters, digits and '-'. The caller is responsible for
// assigning a generated id when ClientID comes back empty with
// cleanSession=true.
func validateClientID(clientID string, cleanSession bool) error {
	if clientID == "" {
		if !cleanSession {
			return &er.Err{Context: "Connect, ClientID", Message: er.ErrEmptyClientIDNoClean}
		}
		return nil
	}
	allowed := "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-"
	for _, r := range clientID {
		if !strings.ContainsRune(allowed, r) {
			return &er.Err{Context: "Connect, ClientID", Message: er.ErrInvalidCharsClientID}
		}
	}
	return nil
}
