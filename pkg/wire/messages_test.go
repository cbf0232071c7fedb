package wire

import (
	"bytes"
	"testing"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

func addrN(n byte) chainaddr.Address {
	var b [chainaddr.Len]byte
	b[0] = n
	return chainaddr.Address(b)
}

func TestEnvelopeAccountUpdateRoundTrip(t *testing.T) {
	want := Envelope{
		Kind: KindAccountUpdate,
		AccountUpdate: AccountUpdate{
			Key:          addrN(1),
			Owner:        addrN(2),
			Data:         []byte{0xDE, 0xAD, 0xBE, 0xEF},
			Lamports:     123456,
			Executable:   false,
			RentEpoch:    7,
			WriteVersion: 5,
			Slot:         100,
			IsStartup:    true,
		},
	}

	got, err := DecodeEnvelope(want.Encode())
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if got.Kind != KindAccountUpdate {
		t.Fatalf("Kind = %v, want KindAccountUpdate", got.Kind)
	}
	u := got.AccountUpdate
	w := want.AccountUpdate
	if u.Key != w.Key || u.Owner != w.Owner || !bytes.Equal(u.Data, w.Data) ||
		u.Lamports != w.Lamports || u.Executable != w.Executable ||
		u.RentEpoch != w.RentEpoch || u.WriteVersion != w.WriteVersion ||
		u.Slot != w.Slot || u.IsStartup != w.IsStartup {
		t.Fatalf("round trip mismatch: got %+v want %+v", u, w)
	}
}

func TestEnvelopeInstructionNotifyRoundTrip(t *testing.T) {
	want := Envelope{
		Kind: KindInstructionNotify,
		InstructionNotify: InstructionNotify{
			Program:  addrN(9),
			Data:     []byte{1, 2, 3},
			Accounts: []chainaddr.Address{addrN(10), addrN(11), addrN(12)},
			Slot:     42,
		},
	}

	got, err := DecodeEnvelope(want.Encode())
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	n := got.InstructionNotify
	w := want.InstructionNotify
	if n.Program != w.Program || !bytes.Equal(n.Data, w.Data) || n.Slot != w.Slot {
		t.Fatalf("round trip mismatch: got %+v want %+v", n, w)
	}
	if len(n.Accounts) != len(w.Accounts) {
		t.Fatalf("accounts length = %d, want %d", len(n.Accounts), len(w.Accounts))
	}
	for i := range w.Accounts {
		if n.Accounts[i] != w.Accounts[i] {
			t.Fatalf("accounts[%d] = %v, want %v", i, n.Accounts[i], w.Accounts[i])
		}
	}
}

func TestEnvelopeSlotStatusRoundTrip(t *testing.T) {
	want := Envelope{
		Kind: KindSlotStatus,
		SlotStatusUpdate: SlotStatusUpdate{
			Slot:   555,
			Status: SlotConfirmed,
		},
	}

	got, err := DecodeEnvelope(want.Encode())
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if got.SlotStatusUpdate.Slot != 555 || got.SlotStatusUpdate.Status != SlotConfirmed {
		t.Fatalf("round trip mismatch: got %+v", got.SlotStatusUpdate)
	}
}

func TestDecodeEnvelopeUnknownTag(t *testing.T) {
	e := NewEncoder()
	e.PutVariant(255, func(e *Encoder) { e.PutStruct() })
	if _, err := DecodeEnvelope(e.Bytes()); err == nil {
		t.Fatal("expected error for unknown envelope tag")
	}
}

func TestDecodeEnvelopeMissingField(t *testing.T) {
	e := NewEncoder()
	e.PutVariant(uint8(KindSlotStatus), func(e *Encoder) {
		e.PutStruct(Field("slot", func(e *Encoder) { e.PutUint64(1) }))
	})
	if _, err := DecodeEnvelope(e.Bytes()); err == nil {
		t.Fatal("expected error for missing status field")
	}
}

func TestDecoderShortRead(t *testing.T) {
	d := NewDecoder([]byte{0x00, 0x01})
	if _, err := d.Uint64(); err == nil {
		t.Fatal("expected short-read error")
	}
}
