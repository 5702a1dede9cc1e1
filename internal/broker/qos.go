package broker

import (
	"time"

	"github.com/nullwave/goqtt/internal/logger"
	"github.com/nullwave/goqtt/internal/packet"
)

// Retry policy for outgoing QoS 1/2 delivery (spec.md §4.4, §5):
// five seconds per attempt, discard after three retries. The
// teacher's own qos.go used a 30-second delay and no explicit retry
// cap alignment with the source; these constants are corrected to
// match the specification rather than preserved as found.
const (
	RetryTimeout = 5 * time.Second
	MaxRetries   = 3
)

// incomingQoS2Key identifies one in-flight incoming QoS 2 handshake.
// Keying by packetId alone let two publishers collide; the broker
// keys by (publisherClientID, packetID) instead (spec.md §9 item 1).
type incomingQoS2Key struct {
	PublisherClientID string
	PacketID          uint16
}

// IncomingQoS2Message is a PUBLISH QoS 2 the broker has acknowledged
// with PUBREC but not yet routed; it is routed and discarded on the
// matching PUBREL (spec.md §3, §4.4).
type IncomingQoS2Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// retrySession resends every timed-out outgoing QoS message owned by
// s. Entries past MaxRetries are discarded and logged at error; this
// is called with the broker lock held, same as any other session
// mutation (spec.md §9: timer work never runs protocol logic inline
// with the tick signal itself, but the drained work takes the normal
// lock like any mutator).
func retrySession(s *Session, now time.Time) {
	for id, msg := range s.Outgoing {
		if now.Sub(msg.SentTime) < RetryTimeout {
			continue
		}
		if msg.RetryCount >= MaxRetries {
			delete(s.Outgoing, id)
			logger.Error("qos retry exhausted, discarding message",
				logger.ClientID(s.ClientID), logger.String("topic", msg.Topic), logger.Int("packet_id", int(id)))
			logger.GetGlobalLogger().LogQoSFlow(s.ClientID, id, int(msg.QoS), "RETRY_EXHAUSTED")
			continue
		}

		msg.RetryCount++
		msg.SentTime = now
		logger.GetGlobalLogger().LogQoSFlow(s.ClientID, id, int(msg.QoS), "RETRANSMIT")

		var frame []byte
		switch msg.State {
		case AwaitingPuback, AwaitingPubrec:
			frame = (&packet.Publish{
				DUP:      true,
				QoS:      msg.QoS,
				Retain:   msg.Retain,
				Topic:    msg.Topic,
				PacketID: id,
				Payload:  msg.Payload,
			}).Encode()
		case AwaitingPubcomp:
			frame = packet.EncodePubRel(id)
		}

		if s.Conn == nil || frame == nil {
			continue
		}
		if _, err := s.Conn.Write(frame); err != nil {
			logger.Warn("qos retry write failed",
				logger.ClientID(s.ClientID), logger.ErrorAttr(err))
		}
	}
}
