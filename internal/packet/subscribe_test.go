package packet

import "testing"

func TestDecodeSubscribeRoundTrip(t *testing.T) {
	var body []byte
	body = append(body, 0x00, 0x05) // packet id 5
	body = append(body, encodeTestStr("a/b")...)
	body = append(body, 0x01) // QoS 1
	body = append(body, encodeTestStr("a/+/c")...)
	body = append(body, 0x02|0x04) // QoS 2, noLocal

	raw := buildRaw(SUBSCRIBE, 0x02, body)

	sp, err := DecodeSubscribe(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.PacketID != 5 {
		t.Errorf("packet id: got %d, want 5", sp.PacketID)
	}
	if len(sp.Filters) != 2 {
		t.Fatalf("got %d filters, want 2", len(sp.Filters))
	}
	if sp.Filters[0].Filter != "a/b" || sp.Filters[0].QoS != QoSAtLeastOnce {
		t.Errorf("filter 0: %+v", sp.Filters[0])
	}
	if sp.Filters[1].Filter != "a/+/c" || sp.Filters[1].QoS != QoSExactlyOnce || !sp.Filters[1].NoLocal {
		t.Errorf("filter 1: %+v", sp.Filters[1])
	}
}

func TestDecodeSubscribeRejectsWrongFixedHeaderFlags(t *testing.T) {
	var body []byte
	body = append(body, 0x00, 0x01)
	body = append(body, encodeTestStr("a")...)
	body = append(body, 0x00)

	raw := buildRaw(SUBSCRIBE, 0x00, body) // should be 0x02
	if _, err := DecodeSubscribe(raw); err == nil {
		t.Fatal("expected error for invalid SUBSCRIBE fixed header flags")
	}
}

func TestDecodeSubscribeRejectsNoFilters(t *testing.T) {
	var body []byte
	body = append(body, 0x00, 0x01)

	raw := buildRaw(SUBSCRIBE, 0x02, body)
	if _, err := DecodeSubscribe(raw); err == nil {
		t.Fatal("expected error for SUBSCRIBE with no filters")
	}
}

func TestDecodeSubscribeRejectsInvalidQoS(t *testing.T) {
	var body []byte
	body = append(body, 0x00, 0x01)
	body = append(body, encodeTestStr("a")...)
	body = append(body, 0x03) // invalid QoS

	raw := buildRaw(SUBSCRIBE, 0x02, body)
	if _, err := DecodeSubscribe(raw); err == nil {
		t.Fatal("expected error for invalid QoS in SUBSCRIBE filter")
	}
}

func TestEncodeSubAckLength(t *testing.T) {
	out := EncodeSubAck(1, []byte{SubAckMaxQoS1})
	if len(out) != 5 {
		t.Fatalf("got length %d, want 5", len(out))
	}
}
