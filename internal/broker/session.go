package broker

import (
	"net"
	"time"

	"github.com/nullwave/goqtt/internal/packet"
)

// Subscription is one entry in a session's ordered filter list
// (spec.md §3). Duplicates by filter are allowed; the session never
// de-duplicates on insert.
type Subscription struct {
	Filter  string
	QoS     packet.QoSLevel
	NoLocal bool
}

// OutgoingQoSState is the broker-to-subscriber delivery state for one
// in-flight QoS 1/2 message.
type OutgoingQoSState int

const (
	AwaitingPuback OutgoingQoSState = iota
	AwaitingPubrec
	AwaitingPubcomp
)

// OutgoingQoSMessage tracks one broker-to-subscriber delivery pending
// acknowledgement (spec.md §3, §4.4).
type OutgoingQoSMessage struct {
	PacketID   uint16
	QoS        packet.QoSLevel
	Retain     bool
	Topic      string
	Payload    []byte
	State      OutgoingQoSState
	SentTime   time.Time
	RetryCount int
}

// Session is the broker's per-client aggregate: it holds its
// subscriptions and its outgoing QoS map, and the broker reaches them
// only through the Session that holds them, under the broker lock
// (spec.md §9 re-architecture guidance: no raw back-pointers from QoS
// entries into the broker).
type Session struct {
	ClientID     string
	Conn         net.Conn
	RemoteAddr   string
	Connected    bool
	LastActivity time.Time

	KeepAliveSeconds uint16
	CleanSession     bool
	ProtocolLevel    packet.ProtocolLevel

	Subscriptions []Subscription
	Outgoing      map[uint16]*OutgoingQoSMessage

	HasWill            bool
	WillTopic          string
	WillPayload        []byte
	WillQoS            packet.QoSLevel
	WillRetain         bool
	GracefulDisconnect bool

	nextPacketID uint16
}

// NewSession creates a Session in the AwaitingConnect phase: the
// caller sets Connected=true only after a successful CONNECT.
func NewSession(conn net.Conn) *Session {
	return &Session{
		Conn:         conn,
		LastActivity: time.Now(),
		Outgoing:     make(map[uint16]*OutgoingQoSMessage),
		nextPacketID: 1,
	}
}

// Touch records activity for keep-alive purposes.
func (s *Session) Touch() {
	s.LastActivity = time.Now()
}

// KeepAliveExpired reports whether the session has been silent beyond
// 1.5x its keep-alive interval (spec.md §4.3), the contractual grace
// factor. KeepAliveSeconds==0 disables the check.
func (s *Session) KeepAliveExpired(now time.Time) bool {
	if s.KeepAliveSeconds == 0 {
		return false
	}
	grace := time.Duration(s.KeepAliveSeconds) * 1500 * time.Millisecond
	return now.Sub(s.LastActivity) > grace
}

// AddSubscription appends a Subscription, preserving insertion order
// and allowing duplicate filters (spec.md §3).
func (s *Session) AddSubscription(sub Subscription) {
	s.Subscriptions = append(s.Subscriptions, sub)
}

// RemoveSubscription deletes every Subscription whose Filter equals
// filter exactly (spec.md §4.6 UNSUBSCRIBE).
func (s *Session) RemoveSubscription(filter string) {
	kept := s.Subscriptions[:0]
	for _, sub := range s.Subscriptions {
		if sub.Filter != filter {
			kept = append(kept, sub)
		}
	}
	s.Subscriptions = kept
}

// NextPacketID allocates the next outgoing packet id for this
// session: a wrapping counter over [1, 65535] that additionally skips
// any id still present in Outgoing, resolving spec.md §9 item 4 (the
// source's allocator never checked for in-flight collisions). If
// every id is somehow in flight the bare wrapping value is returned
// anyway; that state cannot occur given the QoS retry budget.
func (s *Session) NextPacketID() uint16 {
	for i := 0; i < 65535; i++ {
		id := s.nextPacketID
		s.nextPacketID++
		if s.nextPacketID == 0 {
			s.nextPacketID = 1
		}
		if _, inFlight := s.Outgoing[id]; !inFlight {
			return id
		}
	}
	return s.nextPacketID
}

// ClearWill drops the LWT so a later ungraceful close no longer
// emits it (spec.md §9 LWT-ownership note: a clean DISCONNECT must
// prevent later emission even if the socket closes afterward).
func (s *Session) ClearWill() {
	s.HasWill = false
	s.WillTopic = ""
	s.WillPayload = nil
}
