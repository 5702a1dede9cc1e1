// Package broker implements the MQTT protocol engine: session store,
// retained-message store, QoS 1/2 engines, the per-connection
// connection FSM, the publish router, and the broker façade itself
// (spec.md §4.3–§4.8). internal/transport owns the TCP socket and
// framing; everything past one decoded packet.Envelope happens here.
package broker

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nullwave/goqtt/internal/auth"
	"github.com/nullwave/goqtt/internal/logger"
	"github.com/nullwave/goqtt/internal/packet"
	"github.com/nullwave/goqtt/internal/topic"
)

// RetainedMessage is the last retained payload for a topic (spec.md
// §3); at most one entry exists per topic name.
type RetainedMessage struct {
	Topic   string
	Payload []byte
	QoS     packet.QoSLevel
}

// Config is the broker's runtime configuration (spec.md §6 setConfig,
// §4.7 auth policy).
type Config struct {
	Username string
	Password string

	// IgnoreLoopDeliver is carried in the configuration but is not read
	// by the broker: OnMessage is invoked for every client publish and
	// wire delivery is unaffected, whatever its value.
	IgnoreLoopDeliver bool

	// PrefixSourceOnQoS01 gates the legacy "source:[clientId];" payload
	// rewrite (spec.md §9 item 2). Off by default.
	PrefixSourceOnQoS01 bool

	MaxConnections int
}

// Callbacks groups the host-facing event hooks (spec.md §6).
type Callbacks struct {
	OnClientConnect    func(clientID, remoteAddr, username string, passwordLen int)
	OnClientDisconnect func(clientID string)
	OnMessage          func(clientID, topic string, payload []byte)
	OnSubscribe        func(clientID, filter string)
	OnUnsubscribe      func(clientID, filter string)
	OnError            func(clientID string, code int, text string)
	OnLog              func(level, text string)
}

// Broker is the host-facing façade plus the protocol engine's single
// owner of shared state. A single mutex protects all of
// activeByConn/activeByID/persistent/retained/incomingQoS2, per the
// concurrency redesign: every transport callback and the housekeeping
// goroutine take this lock for the duration of their state mutation,
// which reproduces the single-threaded cooperative model's atomicity
// guarantees on top of goroutine-per-connection.
type Broker struct {
	mu sync.Mutex

	activeByConn map[net.Conn]*Session
	activeByID   map[string]*Session
	persistent   map[string]*Session

	connectedClientsInfo map[string]string

	retained map[string]*RetainedMessage

	incomingQoS2 map[incomingQoS2Key]*IncomingQoS2Message

	config     Config
	authPolicy *auth.Policy
	callbacks  Callbacks
	accessLog  *logger.AccessLog

	stopHousekeeping chan struct{}
	housekeepingOnce sync.Once
}

// New builds a Broker from cfg. An AccessLog writing JSON to stdout is
// wired by default; call SetAccessLog to redirect it.
func New(cfg Config) *Broker {
	accessLog, _ := logger.NewAccessLog(logger.AccessLogConfig{})
	return &Broker{
		activeByConn:         make(map[net.Conn]*Session),
		activeByID:           make(map[string]*Session),
		persistent:           make(map[string]*Session),
		connectedClientsInfo: make(map[string]string),
		retained:             make(map[string]*RetainedMessage),
		incomingQoS2:         make(map[incomingQoS2Key]*IncomingQoS2Message),
		config:               cfg,
		authPolicy:           auth.NewPolicy(cfg.Username, cfg.Password),
		accessLog:            accessLog,
	}
}

// SetConfig replaces the broker's configuration, re-deriving the auth
// policy (spec.md §6 setConfig).
func (b *Broker) SetConfig(cfg Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = cfg
	b.authPolicy = auth.NewPolicy(cfg.Username, cfg.Password)
}

// WithAuthStore layers a SQLite-backed credential store underneath
// USER_PASS mode.
func (b *Broker) WithAuthStore(store *auth.Store) *Broker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authPolicy = b.authPolicy.WithStore(store)
	return b
}

// SetCallbacks installs the host-facing event hooks.
func (b *Broker) SetCallbacks(cb Callbacks) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = cb
}

// SetAccessLog overrides the default stdout AccessLog sink.
func (b *Broker) SetAccessLog(a *logger.AccessLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessLog = a
}

// StartHousekeeping launches the 1 Hz timer/housekeeping goroutine
// (spec.md §4.8): the ticker only posts to a channel, and this single
// goroutine drains it and calls checkTimeouts under the broker lock,
// keeping timer work out of the protocol path itself.
func (b *Broker) StartHousekeeping() {
	b.housekeepingOnce.Do(func() {
		b.stopHousekeeping = make(chan struct{})
		tick := make(chan struct{}, 1)

		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-b.stopHousekeeping:
					return
				case <-ticker.C:
					select {
					case tick <- struct{}{}:
					default:
					}
				}
			}
		}()

		go func() {
			for {
				select {
				case <-b.stopHousekeeping:
					return
				case <-tick:
					b.checkTimeouts()
				}
			}
		}()
	})
}

// StopHousekeeping halts the timer goroutine and closes every active
// connection.
func (b *Broker) StopHousekeeping() {
	b.mu.Lock()
	conns := make([]net.Conn, 0, len(b.activeByConn))
	for c := range b.activeByConn {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	if b.stopHousekeeping != nil {
		close(b.stopHousekeeping)
	}
	for _, c := range conns {
		_ = c.Close()
	}
}

// checkTimeouts walks all active sessions once, scanning for
// keep-alive expiry and QoS retry/timeout work (spec.md §4.8), cost
// O(sessions + total in-flight messages).
func (b *Broker) checkTimeouts() {
	b.mu.Lock()
	now := time.Now()
	var expired []*Session
	for _, s := range b.activeByConn {
		if s.KeepAliveExpired(now) {
			expired = append(expired, s)
			continue
		}
		retrySession(s, now)
	}
	b.mu.Unlock()

	for _, s := range expired {
		logger.Warn("keep-alive expired, closing connection", logger.ClientID(s.ClientID))
		_ = s.Conn.Close()
	}
}

// Accept registers a new Session in AwaitingConnect for a freshly
// accepted transport handle (spec.md §6 onNewConnection).
func (b *Broker) Accept(conn net.Conn, remoteAddr string) *Session {
	s := NewSession(conn)
	s.RemoteAddr = remoteAddr

	b.mu.Lock()
	b.activeByConn[conn] = s
	b.mu.Unlock()

	return s
}

// Dispatch decodes nothing itself (internal/transport hands it an
// already-decoded Envelope); it switches on the session's FSM state
// and the packet type, mutating session state and invoking the router
// as needed (spec.md §4.3). It returns true if the connection should
// be closed after any queued write completes.
func (b *Broker) Dispatch(s *Session, env *packet.Envelope) (closeConn bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !s.Connected {
		if env.Type != packet.CONNECT {
			return true
		}
		return b.handleConnect(s, env.Connect)
	}

	s.Touch()
	logger.GetGlobalLogger().LogMQTTPacket(env.Type.String(), s.ClientID, "inbound")

	switch env.Type {
	case packet.CONNECT:
		// A second CONNECT on an already-Connected session is a
		// protocol violation (spec.md §4.3 AwaitingConnect note
		// generalizes: CONNECT is only valid once).
		return true
	case packet.PUBLISH:
		return b.handleClientPublish(s, env.Publish)
	case packet.SUBSCRIBE:
		b.handleSubscribe(s, env.Subscribe)
	case packet.UNSUBSCRIBE:
		b.handleUnsubscribe(s, env.Unsubscribe)
	case packet.PUBACK:
		logger.GetGlobalLogger().LogQoSFlow(s.ClientID, env.PacketID, int(packet.QoSAtLeastOnce), "PUBACK_RECEIVED")
		delete(s.Outgoing, env.PacketID)
	case packet.PUBREC:
		logger.GetGlobalLogger().LogQoSFlow(s.ClientID, env.PacketID, int(packet.QoSExactlyOnce), "PUBREC_RECEIVED")
		b.handlePubRec(s, env.PacketID)
	case packet.PUBREL:
		logger.GetGlobalLogger().LogQoSFlow(s.ClientID, env.PacketID, int(packet.QoSExactlyOnce), "PUBREL_RECEIVED")
		b.handlePubRel(s, env.PacketID)
	case packet.PUBCOMP:
		logger.GetGlobalLogger().LogQoSFlow(s.ClientID, env.PacketID, int(packet.QoSExactlyOnce), "PUBCOMP_RECEIVED")
		delete(s.Outgoing, env.PacketID)
	case packet.PINGREQ:
		_, _ = s.Conn.Write(packet.EncodePingResp())
	case packet.DISCONNECT:
		s.GracefulDisconnect = true
		s.ClearWill()
		return true
	default:
		return true
	}
	return false
}

// handleConnect implements spec.md §4.3's AwaitingConnect transition.
func (b *Broker) handleConnect(s *Session, c *packet.Connect) (closeConn bool) {
	clientID := c.ClientID
	if clientID == "" {
		clientID = "anon-" + uuid.NewString()
	}

	if err := b.authPolicy.Authenticate(c.HasUsername, c.Username, c.HasPassword, c.Password); err != nil {
		_, _ = s.Conn.Write(packet.EncodeConnAck(false, packet.BadUsernameOrPassword))
		b.accessLog.AuthFailed(clientID, c.Username, err.Error())
		logger.GetGlobalLogger().LogAuth(clientID, c.Username, false, err.Error())
		if b.callbacks.OnError != nil {
			b.callbacks.OnError(clientID, int(packet.BadUsernameOrPassword), "authentication failed")
		}
		return true
	}
	logger.GetGlobalLogger().LogAuth(clientID, c.Username, true, "")

	// spec.md invariant 2: a clientId appears in at most one of
	// {activeSessions, persistentSessions}. A reconnect under the same
	// id must evict whichever copy is currently held.
	if existing, ok := b.activeByID[clientID]; ok {
		delete(b.activeByConn, existing.Conn)
		_ = existing.Conn.Close()
	}

	s.ClientID = clientID
	s.CleanSession = c.CleanSession
	s.ProtocolLevel = c.ProtocolLevel
	s.KeepAliveSeconds = c.KeepAlive
	s.Connected = true
	s.GracefulDisconnect = false
	s.HasWill = c.HasWill
	s.WillTopic = c.WillTopic
	s.WillPayload = truncatePayload(c.WillMessage)
	s.WillQoS = c.WillQoS
	s.WillRetain = c.WillRetain
	s.Touch()

	sessionPresent := false
	if persisted, ok := b.persistent[clientID]; ok {
		if !c.CleanSession {
			s.Subscriptions = persisted.Subscriptions
			s.Outgoing = persisted.Outgoing
			sessionPresent = true
		}
		// spec.md invariant 2: whether or not it was inherited, a
		// persistent entry under this clientId is consumed on connect.
		delete(b.persistent, clientID)
	}

	b.activeByID[clientID] = s
	b.connectedClientsInfo[clientID] = s.RemoteAddr

	_, _ = s.Conn.Write(packet.EncodeConnAck(sessionPresent, packet.ConnectionAccepted))

	if sessionPresent {
		b.replayRetainedForSubs(s, s.Subscriptions)
	}

	b.accessLog.ClientConnected(clientID, s.RemoteAddr, c.Username)
	logger.GetGlobalLogger().LogClientConnection(clientID, s.RemoteAddr, "connected")
	if b.callbacks.OnClientConnect != nil {
		b.callbacks.OnClientConnect(clientID, s.RemoteAddr, c.Username, len(c.Password))
	}

	return false
}

// handleSubscribe implements spec.md §4.6 SUBSCRIBE handling.
func (b *Broker) handleSubscribe(s *Session, sp *packet.Subscribe) {
	returnCodes := make([]byte, len(sp.Filters))
	failureCode := packet.SubAckFailure
	if s.ProtocolLevel == packet.ProtocolLevel5 {
		failureCode = packet.SubAckFailureMQTT5
	}

	newSubs := make([]Subscription, 0, len(sp.Filters))
	for i, f := range sp.Filters {
		if !topic.IsValidTopicFilter(f.Filter) {
			returnCodes[i] = failureCode
			continue
		}

		grantedQoS := f.QoS
		if grantedQoS > packet.QoSExactlyOnce {
			grantedQoS = packet.QoSExactlyOnce
		}

		sub := Subscription{Filter: f.Filter, QoS: grantedQoS, NoLocal: f.NoLocal}
		s.AddSubscription(sub)
		newSubs = append(newSubs, sub)
		returnCodes[i] = qosToSubAckCode(grantedQoS)

		if b.callbacks.OnSubscribe != nil {
			b.callbacks.OnSubscribe(s.ClientID, f.Filter)
		}
		logger.GetGlobalLogger().LogSubscription(s.ClientID, f.Filter, int(grantedQoS), "subscribe")
	}

	_, _ = s.Conn.Write(packet.EncodeSubAck(sp.PacketID, returnCodes))

	// Retained replay happens after SUBACK (spec.md §4.6, §5 ordering
	// guarantee), one delivery per retained message per session,
	// first-match-wins across the filters in this SUBSCRIBE.
	b.replayRetainedForSubs(s, newSubs)
}

// handleUnsubscribe implements spec.md §4.6 UNSUBSCRIBE handling.
func (b *Broker) handleUnsubscribe(s *Session, up *packet.Unsubscribe) {
	_, _ = s.Conn.Write(packet.EncodeUnsubAck(up.PacketID))

	for _, f := range up.Filters {
		s.RemoveSubscription(f)
		if b.callbacks.OnUnsubscribe != nil {
			b.callbacks.OnUnsubscribe(s.ClientID, f)
		}
		logger.GetGlobalLogger().LogSubscription(s.ClientID, f, 0, "unsubscribe")
	}
}

// handleClientPublish implements spec.md §4.4 (incoming QoS2 handling)
// and §4.5 (fan-out), for a PUBLISH received from a client. Returns
// true if the protocol violation (invalid topic) requires closing
// the connection.
func (b *Broker) handleClientPublish(s *Session, p *packet.Publish) (closeConn bool) {
	if !topic.IsValidPublishTopic(p.Topic) {
		if b.callbacks.OnError != nil {
			b.callbacks.OnError(s.ClientID, 0, "invalid publish topic: "+p.Topic)
		}
		return true
	}

	payload := truncatePayload(p.Payload)

	switch p.QoS {
	case packet.QoSAtMostOnce:
		b.route(s.ClientID, p.Topic, payload, p.Retain, packet.QoSAtMostOnce)

	case packet.QoSAtLeastOnce:
		_, _ = s.Conn.Write(packet.EncodePubAck(p.PacketID))
		b.route(s.ClientID, p.Topic, payload, p.Retain, packet.QoSAtLeastOnce)

	case packet.QoSExactlyOnce:
		// spec.md §4.4: store, send PUBREC, do not route yet; a
		// redundant PUBLISH with the same (publisher, packetId) just
		// overwrites the entry and re-sends PUBREC.
		key := incomingQoS2Key{PublisherClientID: s.ClientID, PacketID: p.PacketID}
		b.incomingQoS2[key] = &IncomingQoS2Message{Topic: p.Topic, Payload: payload, Retained: p.Retain}
		_, _ = s.Conn.Write(packet.EncodePubRec(p.PacketID))
	}

	if b.callbacks.OnMessage != nil {
		b.callbacks.OnMessage(s.ClientID, p.Topic, payload)
	}
	return false
}

// handlePubRec implements the AwaitingPubrec -> AwaitingPubcomp
// transition of the outgoing QoS 2 state machine (spec.md §4.4).
func (b *Broker) handlePubRec(s *Session, packetID uint16) {
	msg, ok := s.Outgoing[packetID]
	if !ok {
		return
	}
	msg.State = AwaitingPubcomp
	msg.SentTime = time.Now()
	msg.RetryCount = 0
	_, _ = s.Conn.Write(packet.EncodePubRel(packetID))
}

// handlePubRel implements spec.md §4.4's incoming QoS 2 handshake:
// route the stored message, erase it, and send PUBCOMP. A PUBREL for
// an unknown packetId still gets a PUBCOMP (idempotent acknowledgement).
func (b *Broker) handlePubRel(s *Session, packetID uint16) {
	key := incomingQoS2Key{PublisherClientID: s.ClientID, PacketID: packetID}
	if msg, ok := b.incomingQoS2[key]; ok {
		delete(b.incomingQoS2, key)
		b.route(s.ClientID, msg.Topic, msg.Payload, msg.Retained, packet.QoSExactlyOnce)
	}
	_, _ = s.Conn.Write(packet.EncodePubComp(packetID))
}

// route implements spec.md §4.5: update the retained store, then fan
// out to every active session whose subscriptions match, honoring
// noLocal and QoS downgrade. Must be called with b.mu held.
func (b *Broker) route(originClientID, topicName string, payload []byte, retain bool, qos packet.QoSLevel) {
	logger.GetGlobalLogger().LogPublish(originClientID, topicName, int(qos), retain, len(payload))

	if retain {
		if len(payload) == 0 {
			delete(b.retained, topicName)
			logger.GetGlobalLogger().LogRetainedMessage(topicName, "removed", 0)
		} else {
			b.retained[topicName] = &RetainedMessage{Topic: topicName, Payload: payload, QoS: qos}
			logger.GetGlobalLogger().LogRetainedMessage(topicName, "stored", len(payload))
		}
	}

	deliverPayload := payload
	if b.config.PrefixSourceOnQoS01 && qos != packet.QoSExactlyOnce {
		deliverPayload = prefixSource(originClientID, payload)
	}

	for _, s := range b.activeByConn {
		if !s.Connected || s.ClientID == "" {
			continue
		}

		for _, sub := range s.Subscriptions {
			if !topic.Matches(sub.Filter, topicName) {
				continue
			}
			if sub.NoLocal && s.ClientID == originClientID {
				break
			}
			b.deliverToSession(s, topicName, deliverPayload, minQoS(qos, sub.QoS), retain)
			break
		}
	}
}

// Publish is the host-facing broker-originated fan-out (spec.md §6):
// it bypasses topic validation since the host process is trusted, and
// supports excluding one or more clientIds from delivery.
func (b *Broker) Publish(topicName string, payload []byte, retain bool, qos packet.QoSLevel, excludeClientID ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	exclude := make(map[string]struct{}, len(excludeClientID))
	for _, id := range excludeClientID {
		exclude[id] = struct{}{}
	}

	payload = truncatePayload(payload)

	if retain {
		if len(payload) == 0 {
			delete(b.retained, topicName)
		} else {
			b.retained[topicName] = &RetainedMessage{Topic: topicName, Payload: payload, QoS: qos}
		}
	}

	for _, s := range b.activeByConn {
		if !s.Connected || s.ClientID == "" {
			continue
		}
		if _, skip := exclude[s.ClientID]; skip {
			continue
		}
		for _, sub := range s.Subscriptions {
			if !topic.Matches(sub.Filter, topicName) {
				continue
			}
			b.deliverToSession(s, topicName, payload, minQoS(qos, sub.QoS), retain)
			break
		}
	}
}

// replayRetainedForSubs sends each retained message that matches at
// least one of subs to s, applying the first matching subscription's
// granted QoS. A retained message is delivered at most once per call
// even when several subs match its topic (spec.md §4.6: one delivery
// per retained message per session, first-match-wins across
// subscriptions). Must be called with b.mu held.
func (b *Broker) replayRetainedForSubs(s *Session, subs []Subscription) {
	for topicName, rm := range b.retained {
		for _, sub := range subs {
			if !topic.Matches(sub.Filter, topicName) {
				continue
			}
			b.deliverToSession(s, topicName, rm.Payload, minQoS(rm.QoS, sub.QoS), true)
			break
		}
	}
}

// deliverToSession encodes and writes one PUBLISH to s, allocating a
// packet id and registering an OutgoingQoSMessage for qos>0
// (spec.md §4.5c). Must be called with b.mu held.
func (b *Broker) deliverToSession(s *Session, topicName string, payload []byte, qos packet.QoSLevel, retain bool) {
	if s.Conn == nil {
		return
	}

	var packetID uint16
	if qos != packet.QoSAtMostOnce {
		packetID = s.NextPacketID()
	}

	frame := (&packet.Publish{
		QoS:      qos,
		Retain:   retain,
		Topic:    topicName,
		PacketID: packetID,
		Payload:  payload,
	}).Encode()

	if _, err := s.Conn.Write(frame); err != nil {
		logger.Warn("publish write failed", logger.ClientID(s.ClientID), logger.ErrorAttr(err))
		if qos == packet.QoSAtMostOnce {
			return
		}
	}

	if qos != packet.QoSAtMostOnce {
		state := AwaitingPuback
		if qos == packet.QoSExactlyOnce {
			state = AwaitingPubrec
		}
		s.Outgoing[packetID] = &OutgoingQoSMessage{
			PacketID: packetID,
			QoS:      qos,
			Retain:   retain,
			Topic:    topicName,
			Payload:  payload,
			State:    state,
			SentTime: time.Now(),
		}
	}
}

// Disconnect drives a session to Disconnecting/Closed (spec.md §4.3):
// emits the LWT if owed, splices the session into persistentSessions
// or destroys it, and invokes the disconnect callback. Safe to call
// once per transport-level close, whether driven by DISCONNECT,
// keep-alive timeout, or a transport error/EOF.
func (b *Broker) Disconnect(s *Session) {
	b.mu.Lock()

	delete(b.activeByConn, s.Conn)
	if s.ClientID != "" && b.activeByID[s.ClientID] == s {
		delete(b.activeByID, s.ClientID)
	}

	wasConnected := s.Connected
	s.Connected = false

	shouldEmitWill := wasConnected && s.HasWill && !s.GracefulDisconnect
	willTopic, willPayload, willQoS, willRetain := s.WillTopic, s.WillPayload, s.WillQoS, s.WillRetain

	if wasConnected && s.ClientID != "" {
		// A session evicted by a newer CONNECT under the same clientId
		// is neither persisted nor allowed to drop the newer session's
		// client info.
		if _, takenOver := b.activeByID[s.ClientID]; !takenOver {
			if !s.CleanSession {
				b.persistent[s.ClientID] = s
			}
			delete(b.connectedClientsInfo, s.ClientID)
		}
	}
	if shouldEmitWill {
		b.route(s.ClientID, willTopic, willPayload, willRetain, willQoS)
	}
	b.mu.Unlock()

	if shouldEmitWill {
		b.accessLog.WillPublished(s.ClientID, willTopic)
	}

	if wasConnected {
		b.accessLog.ClientDisconnected(s.ClientID, s.GracefulDisconnect)
		if b.callbacks.OnClientDisconnect != nil {
			b.callbacks.OnClientDisconnect(s.ClientID)
		}
	}
}

// GetConnectedClientCount returns the number of active sessions
// (spec.md §6).
func (b *Broker) GetConnectedClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.activeByConn)
}

// GetConnectedClientsInfo returns a snapshot of clientId -> remote
// address for observability (spec.md §6).
func (b *Broker) GetConnectedClientsInfo() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.connectedClientsInfo))
	for k, v := range b.connectedClientsInfo {
		out[k] = v
	}
	return out
}

// GetRetainedMessageCount reports the number of retained topics held.
func (b *Broker) GetRetainedMessageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.retained)
}

func minQoS(a, b packet.QoSLevel) packet.QoSLevel {
	if a < b {
		return a
	}
	return b
}

func qosToSubAckCode(qos packet.QoSLevel) byte {
	switch qos {
	case packet.QoSAtLeastOnce:
		return packet.SubAckMaxQoS1
	case packet.QoSExactlyOnce:
		return packet.SubAckMaxQoS2
	default:
		return packet.SubAckMaxQoS0
	}
}

// truncatePayload enforces spec.md §3 invariant 7: payloads beyond
// 768 bytes are truncated on ingress, not rejected.
func truncatePayload(payload []byte) []byte {
	if len(payload) <= packet.MaxPayloadSize {
		return payload
	}
	return payload[:packet.MaxPayloadSize]
}

// prefixSource implements the legacy "source:[clientId];" payload
// rewrite (spec.md §4.5, §9 item 2), gated off by default behind
// Config.PrefixSourceOnQoS01.
func prefixSource(clientID string, payload []byte) []byte {
	var b strings.Builder
	b.WriteString("source:[")
	b.WriteString(clientID)
	b.WriteString("];")
	b.Write(payload)
	out := []byte(b.String())
	return truncatePayload(out)
}
