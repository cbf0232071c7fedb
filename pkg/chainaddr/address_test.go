package chainaddr

import (
	"encoding/json"
	"testing"
)

func TestFromBytesRoundTrip(t *testing.T) {
	raw := make([]byte, Len)
	for i := range raw {
		raw[i] = byte(i)
	}
	addr, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if got := addr.Bytes(); string(got) != string(raw) {
		t.Fatalf("Bytes() = %x, want %x", got, raw)
	}
}

func TestFromBytesWrongLength(t *testing.T) {
	if _, err := FromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestBase58RoundTrip(t *testing.T) {
	raw := make([]byte, Len)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	addr := MustFromBytes(raw)
	s := addr.String()
	back, err := FromBase58(s)
	if err != nil {
		t.Fatalf("FromBase58: %v", err)
	}
	if back != addr {
		t.Fatalf("round trip mismatch: got %v want %v", back, addr)
	}
}

func TestZeroIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatal("Zero.IsZero() = false")
	}
	addr := MustFromBytes(make([]byte, Len))
	if !addr.IsZero() {
		t.Fatal("all-zero address reported non-zero")
	}
	addr[0] = 1
	if addr.IsZero() {
		t.Fatal("non-zero address reported zero")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	raw := make([]byte, Len)
	raw[5] = 0xAB
	addr := MustFromBytes(raw)

	data, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Address
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != addr {
		t.Fatalf("JSON round trip mismatch: got %v want %v", decoded, addr)
	}
}

func TestUnmarshalJSONInvalidBase58(t *testing.T) {
	var a Address
	if err := json.Unmarshal([]byte(`"not-valid-base58-0OIl"`), &a); err == nil {
		t.Fatal("expected error decoding invalid base58")
	}
}
