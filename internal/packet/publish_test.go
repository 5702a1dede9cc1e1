package packet

import (
	"bytes"
	"testing"
)

func buildRaw(t Type, flags byte, varHeaderAndPayload []byte) []byte {
	out := []byte{byte(t) | flags}
	out = append(out, encodeTestRemainingLength(len(varHeaderAndPayload))...)
	out = append(out, varHeaderAndPayload...)
	return out
}

func encodeTestRemainingLength(n int) []byte {
	var out []byte
	for {
		b := byte(n % 128)
		n /= 128
		if n > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

func TestPublishEncodeDecodeRoundTrip(t *testing.T) {
	cases := []*Publish{
		{QoS: QoSAtMostOnce, Topic: "a/b", Payload: []byte("hello")},
		{QoS: QoSAtLeastOnce, Topic: "a/b", PacketID: 42, Payload: []byte("hello")},
		{QoS: QoSExactlyOnce, DUP: true, Retain: true, Topic: "a/b/c", PacketID: 65535, Payload: nil},
	}

	for _, p := range cases {
		encoded := p.Encode()
		decoded, err := DecodePublish(encoded)
		if err != nil {
			t.Fatalf("DecodePublish: unexpected error: %v", err)
		}
		if decoded.Topic != p.Topic {
			t.Errorf("topic: got %q, want %q", decoded.Topic, p.Topic)
		}
		if decoded.QoS != p.QoS {
			t.Errorf("qos: got %d, want %d", decoded.QoS, p.QoS)
		}
		if decoded.PacketID != p.PacketID {
			t.Errorf("packet id: got %d, want %d", decoded.PacketID, p.PacketID)
		}
		if decoded.DUP != p.DUP {
			t.Errorf("dup: got %v, want %v", decoded.DUP, p.DUP)
		}
		if decoded.Retain != p.Retain {
			t.Errorf("retain: got %v, want %v", decoded.Retain, p.Retain)
		}
		if !bytes.Equal(decoded.Payload, p.Payload) {
			t.Errorf("payload: got %v, want %v", decoded.Payload, p.Payload)
		}
	}
}

func TestDecodePublishRejectsInvalidDUPOnQoS0(t *testing.T) {
	raw := buildRaw(PUBLISH, 0x08, append(append([]byte{}, encodeTestStr("a")...)))
	if _, err := DecodePublish(raw); err == nil {
		t.Fatal("expected error for DUP set on QoS 0 publish")
	}
}

func TestDecodePublishRejectsEmptyTopic(t *testing.T) {
	raw := buildRaw(PUBLISH, 0x00, encodeTestStr(""))
	if _, err := DecodePublish(raw); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func encodeTestStr(s string) []byte {
	out := []byte{byte(len(s) >> 8), byte(len(s))}
	return append(out, []byte(s)...)
}

func TestPacketIDNeverZeroAfterWraparound(t *testing.T) {
	// Mirrors spec.md §8's packetId-wraparound boundary: a packet id
	// allocator must skip 0 on wraparound from 65535.
	id := uint16(65535)
	id++
	if id == 0 {
		id = 1
	}
	if id != 1 {
		t.Fatalf("wraparound: got %d, want 1", id)
	}
}

func TestEncodeConnAckFixedHeader(t *testing.T) {
	out := EncodeConnAck(true, ConnectionAccepted)
	want := []byte{byte(CONNACK), 0x02, 0x01, ConnectionAccepted}
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestEncodeSubAckOrderPreserved(t *testing.T) {
	out := EncodeSubAck(7, []byte{SubAckMaxQoS0, SubAckMaxQoS2, SubAckFailure})
	if out[4] != SubAckMaxQoS0 || out[5] != SubAckMaxQoS2 || out[6] != SubAckFailure {
		t.Fatalf("return codes out of order: %v", out[4:])
	}
}

func TestAckEncodeDecodeRoundTrip(t *testing.T) {
	for _, enc := range []func(uint16) []byte{EncodePubAck, EncodePubRec, EncodePubRel, EncodePubComp} {
		raw := enc(123)
		id, err := DecodeAck(raw)
		if err != nil {
			t.Fatalf("DecodeAck: unexpected error: %v", err)
		}
		if id != 123 {
			t.Fatalf("got %d, want 123", id)
		}
	}
}

func TestDecodeAckRejectsWrongLength(t *testing.T) {
	if _, err := DecodeAck([]byte{byte(PUBACK), 0x02, 0x00}); err == nil {
		t.Fatal("expected error for truncated ack packet")
	}
}
