package broker

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/nullwave/goqtt/internal/packet"
)

func TestRetrySessionResendsWithDUPAfterTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := NewSession(server)
	s.ClientID = "c1"
	s.Outgoing[7] = &OutgoingQoSMessage{
		PacketID: 7,
		QoS:      packet.QoSAtLeastOnce,
		Topic:    "a/b",
		Payload:  []byte("hi"),
		State:    AwaitingPuback,
		SentTime: time.Now().Add(-RetryTimeout - time.Second),
	}

	done := make(chan []byte, 1)
	go func() {
		reader := bufio.NewReader(client)
		raw, err := packet.ReadFrame(reader)
		if err != nil {
			done <- nil
			return
		}
		done <- raw
	}()

	retrySession(s, time.Now())

	raw := <-done
	if raw == nil {
		t.Fatal("expected a retransmitted PUBLISH frame")
	}
	p, err := packet.DecodePublish(raw)
	if err != nil {
		t.Fatalf("decode retransmit: %v", err)
	}
	if !p.DUP {
		t.Fatal("retransmitted publish must carry the DUP flag")
	}
	if p.PacketID != 7 || p.Topic != "a/b" {
		t.Fatalf("unexpected retransmit: %+v", p)
	}
	if s.Outgoing[7].RetryCount != 1 {
		t.Fatalf("retry count: got %d, want 1", s.Outgoing[7].RetryCount)
	}
}

func TestRetrySessionDiscardsAfterMaxRetries(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := NewSession(server)
	s.ClientID = "c1"
	s.Outgoing[7] = &OutgoingQoSMessage{
		PacketID:   7,
		QoS:        packet.QoSAtLeastOnce,
		Topic:      "a/b",
		State:      AwaitingPuback,
		SentTime:   time.Now().Add(-RetryTimeout - time.Second),
		RetryCount: MaxRetries,
	}

	retrySession(s, time.Now())

	if _, ok := s.Outgoing[7]; ok {
		t.Fatal("expected message to be discarded after exceeding MaxRetries")
	}
}

func TestRetrySessionIgnoresFreshMessages(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := NewSession(server)
	s.Outgoing[1] = &OutgoingQoSMessage{PacketID: 1, State: AwaitingPuback, SentTime: time.Now()}

	retrySession(s, time.Now())

	if s.Outgoing[1].RetryCount != 0 {
		t.Fatal("a message within RetryTimeout must not be retried")
	}
}

func TestRetrySessionResendsPubRelForAwaitingPubcomp(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := NewSession(server)
	s.Outgoing[9] = &OutgoingQoSMessage{
		PacketID: 9,
		QoS:      packet.QoSExactlyOnce,
		State:    AwaitingPubcomp,
		SentTime: time.Now().Add(-RetryTimeout - time.Second),
	}

	done := make(chan []byte, 1)
	go func() {
		reader := bufio.NewReader(client)
		raw, err := packet.ReadFrame(reader)
		if err != nil {
			done <- nil
			return
		}
		done <- raw
	}()

	retrySession(s, time.Now())

	raw := <-done
	if raw == nil || packet.Type(raw[0]&0xF0) != packet.PUBREL {
		t.Fatalf("expected a PUBREL retransmit, got %v", raw)
	}
}
