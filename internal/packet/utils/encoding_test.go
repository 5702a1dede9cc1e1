package utils

import "testing"

func TestEncodeParseRemainingLength(t *testing.T) {
	cases := []struct {
		length   int
		wantLen  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{2097151, 3},
		{2097152, 4},
		{268435455, 4},
	}

	for _, c := range cases {
		encoded := EncodeRemainingLength(c.length)
		if len(encoded) != c.wantLen {
			t.Fatalf("EncodeRemainingLength(%d): got %d bytes, want %d", c.length, len(encoded), c.wantLen)
		}

		decoded, n, err := ParseRemainingLength(encoded)
		if err != nil {
			t.Fatalf("ParseRemainingLength(%v): unexpected error: %v", encoded, err)
		}
		if decoded != c.length {
			t.Fatalf("ParseRemainingLength(%v): got %d, want %d", encoded, decoded, c.length)
		}
		if n != len(encoded) {
			t.Fatalf("ParseRemainingLength(%v): consumed %d bytes, want %d", encoded, n, len(encoded))
		}
	}
}

func TestParseRemainingLengthRejectsFiveBytes(t *testing.T) {
	data := []byte{0x80, 0x80, 0x80, 0x80, 0x01}
	if _, _, err := ParseRemainingLength(data); err == nil {
		t.Fatal("expected error for remaining-length field longer than 4 bytes")
	}
}

func TestEncodeParseString(t *testing.T) {
	s := "test/topic"
	encoded := EncodeString(s)

	decoded, n, err := ParseString(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != s {
		t.Fatalf("got %q, want %q", decoded, s)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d bytes, want %d", n, len(encoded))
	}
}

func TestParseStringRejectsOverrun(t *testing.T) {
	data := []byte{0x00, 0x05, 'a', 'b'} // declares 5 bytes, only 2 present
	if _, _, err := ParseString(data); err == nil {
		t.Fatal("expected error for string length overrunning buffer")
	}
}

func TestParsePacketIDRejectsZero(t *testing.T) {
	if _, err := ParsePacketID([]byte{0x00, 0x00}); err == nil {
		t.Fatal("expected error for packet id 0")
	}
}

func TestEncodeParsePacketID(t *testing.T) {
	for _, id := range []uint16{1, 255, 256, 65535} {
		encoded := EncodePacketID(id)
		decoded, err := ParsePacketID(encoded)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decoded != id {
			t.Fatalf("got %d, want %d", decoded, id)
		}
	}
}
