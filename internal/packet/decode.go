package packet

import "github.com/nullwave/goqtt/pkg/er"

// Envelope is the result of decoding one frame: the packet type plus
// whichever typed payload applies. The connection FSM switches on
// Type and reads the matching field.
type Envelope struct {
	Type        Type
	Connect     *Connect
	Publish     *Publish
	Subscribe   *Subscribe
	Unsubscribe *Unsubscribe
	PacketID    uint16 // valid for PUBACK/PUBREC/PUBREL/PUBCOMP
}

// Decode inspects raw's fixed header and dispatches to the matching
// per-type decoder. raw must be one complete frame as produced by
// ReadFrame.
func Decode(raw []byte) (*Envelope, error) {
	if len(raw) < 2 {
		return nil, &er.Err{Context: "Decode", Message: er.ErrShortBuffer}
	}
	t := Type(raw[0] & 0xF0)
	env := &Envelope{Type: t}

	switch t {
	case CONNECT:
		cp, err := DecodeConnect(raw)
		if err != nil {
			return nil, err
		}
		env.Connect = cp
	case PUBLISH:
		pp, err := DecodePublish(raw)
		if err != nil {
			return nil, err
		}
		env.Publish = pp
	case SUBSCRIBE:
		sp, err := DecodeSubscribe(raw)
		if err != nil {
			return nil, err
		}
		env.Subscribe = sp
	case UNSUBSCRIBE:
		up, err := DecodeUnsubscribe(raw)
		if err != nil {
			return nil, err
		}
		env.Unsubscribe = up
	case PUBACK, PUBREC, PUBREL, PUBCOMP:
		id, err := DecodeAck(raw)
		if err != nil {
			return nil, err
		}
		env.PacketID = id
	case PINGREQ:
		if err := DecodePingReq(raw); err != nil {
			return nil, err
		}
	case DISCONNECT:
		if err := DecodeDisconnect(raw); err != nil {
			return nil, err
		}
	default:
		return nil, &er.Err{Context: "Decode", Message: er.ErrInvalidPacketType}
	}

	return env, nil
}
