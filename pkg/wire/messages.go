package wire

import (
	"fmt"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// Kind discriminates the tagged union of messages that flow over the
// account/instruction stream (see spec §4.4.1).
type Kind uint8

const (
	// KindAccountUpdate carries a decoded account write from the validator
	// plugin.
	KindAccountUpdate Kind = iota + 1
	// KindInstructionNotify carries one atomic on-chain instruction.
	KindInstructionNotify
	// KindSlotStatus carries a slot confirmation/rooted/processed notice.
	KindSlotStatus
)

// AccountUpdate is a single account write observed by the validator plugin.
type AccountUpdate struct {
	Key          chainaddr.Address
	Owner        chainaddr.Address
	Data         []byte
	Lamports     uint64
	Executable   bool
	RentEpoch    uint64
	WriteVersion uint64
	Slot         uint64
	IsStartup    bool
}

// Encode writes the map-of-fields body for an AccountUpdate.
func (u AccountUpdate) Encode(e *Encoder) {
	e.PutStruct(
		Field("key", func(e *Encoder) { e.PutRaw(u.Key[:]) }),
		Field("owner", func(e *Encoder) { e.PutRaw(u.Owner[:]) }),
		Field("data", func(e *Encoder) { e.PutBytes(u.Data) }),
		Field("lamports", func(e *Encoder) { e.PutUint64(u.Lamports) }),
		Field("executable", func(e *Encoder) { e.PutBool(u.Executable) }),
		Field("rent_epoch", func(e *Encoder) { e.PutUint64(u.RentEpoch) }),
		Field("write_version", func(e *Encoder) { e.PutUint64(u.WriteVersion) }),
		Field("slot", func(e *Encoder) { e.PutUint64(u.Slot) }),
		Field("is_startup", func(e *Encoder) { e.PutBool(u.IsStartup) }),
	)
}

// DecodeAccountUpdate reads an AccountUpdate body from a field map.
func DecodeAccountUpdate(fields map[string][]byte) (AccountUpdate, error) {
	var u AccountUpdate
	key, err := RequireField(fields, "key")
	if err != nil {
		return u, err
	}
	if u.Key, err = chainaddr.FromBytes(key); err != nil {
		return u, err
	}
	owner, err := RequireField(fields, "owner")
	if err != nil {
		return u, err
	}
	if u.Owner, err = chainaddr.FromBytes(owner); err != nil {
		return u, err
	}
	data, err := RequireField(fields, "data")
	if err != nil {
		return u, err
	}
	if u.Data, err = NewDecoder(data).Bytes(); err != nil {
		return u, fmt.Errorf("wire: account_update.data: %w", err)
	}
	if u.Lamports, err = decodeU64Field(fields, "lamports"); err != nil {
		return u, err
	}
	if u.Executable, err = decodeBoolField(fields, "executable"); err != nil {
		return u, err
	}
	if u.RentEpoch, err = decodeU64Field(fields, "rent_epoch"); err != nil {
		return u, err
	}
	if u.WriteVersion, err = decodeU64Field(fields, "write_version"); err != nil {
		return u, err
	}
	if u.Slot, err = decodeU64Field(fields, "slot"); err != nil {
		return u, err
	}
	if u.IsStartup, err = decodeBoolField(fields, "is_startup"); err != nil {
		return u, err
	}
	return u, nil
}

// InstructionNotify is one atomic on-chain operation. Slot is carried
// alongside the instruction (grounded on original_source's geyser-consumer
// instruction handlers, which all take an explicit `slot: u64` parameter
// from their caller) so Listing/Offer/Purchase rows derived from
// instructions can still stamp a slot column.
type InstructionNotify struct {
	Program  chainaddr.Address
	Data     []byte
	Accounts []chainaddr.Address
	Slot     uint64
}

// Encode writes the map-of-fields body for an InstructionNotify.
func (n InstructionNotify) Encode(e *Encoder) {
	e.PutStruct(
		Field("program", func(e *Encoder) { e.PutRaw(n.Program[:]) }),
		Field("data", func(e *Encoder) { e.PutBytes(n.Data) }),
		Field("accounts", func(e *Encoder) {
			e.PutUint32(uint32(len(n.Accounts)))
			for _, a := range n.Accounts {
				e.PutRaw(a[:])
			}
		}),
		Field("slot", func(e *Encoder) { e.PutUint64(n.Slot) }),
	)
}

// DecodeInstructionNotify reads an InstructionNotify body from a field map.
func DecodeInstructionNotify(fields map[string][]byte) (InstructionNotify, error) {
	var n InstructionNotify
	program, err := RequireField(fields, "program")
	if err != nil {
		return n, err
	}
	if n.Program, err = chainaddr.FromBytes(program); err != nil {
		return n, err
	}
	data, err := RequireField(fields, "data")
	if err != nil {
		return n, err
	}
	if n.Data, err = NewDecoder(data).Bytes(); err != nil {
		return n, fmt.Errorf("wire: instruction_notify.data: %w", err)
	}
	accountsRaw, err := RequireField(fields, "accounts")
	if err != nil {
		return n, err
	}
	ad := NewDecoder(accountsRaw)
	count, err := ad.Uint32()
	if err != nil {
		return n, fmt.Errorf("wire: instruction_notify.accounts count: %w", err)
	}
	n.Accounts = make([]chainaddr.Address, count)
	for i := range n.Accounts {
		raw, err := ad.Raw(chainaddr.Len)
		if err != nil {
			return n, fmt.Errorf("wire: instruction_notify.accounts[%d]: %w", i, err)
		}
		n.Accounts[i], err = chainaddr.FromBytes(raw)
		if err != nil {
			return n, err
		}
	}
	if n.Slot, err = decodeU64Field(fields, "slot"); err != nil {
		return n, err
	}
	return n, nil
}

// SlotStatus enumerates the validator's confirmation level for a slot.
type SlotStatus string

const (
	SlotProcessed SlotStatus = "processed"
	SlotConfirmed SlotStatus = "confirmed"
	SlotRooted    SlotStatus = "rooted"
)

// SlotStatusUpdate notifies of a change in confirmation level for a slot.
type SlotStatusUpdate struct {
	Slot   uint64
	Status SlotStatus
}

// Encode writes the map-of-fields body for a SlotStatusUpdate.
func (s SlotStatusUpdate) Encode(e *Encoder) {
	e.PutStruct(
		Field("slot", func(e *Encoder) { e.PutUint64(s.Slot) }),
		Field("status", func(e *Encoder) { e.PutString(string(s.Status)) }),
	)
}

// DecodeSlotStatusUpdate reads a SlotStatusUpdate body from a field map.
func DecodeSlotStatusUpdate(fields map[string][]byte) (SlotStatusUpdate, error) {
	var s SlotStatusUpdate
	var err error
	if s.Slot, err = decodeU64Field(fields, "slot"); err != nil {
		return s, err
	}
	status, err := decodeStringField(fields, "status")
	if err != nil {
		return s, err
	}
	s.Status = SlotStatus(status)
	return s, nil
}

// Envelope wraps exactly one of AccountUpdate, InstructionNotify, or
// SlotStatusUpdate, tagged by Kind, matching the tagged-union encoding
// described in spec §6.
type Envelope struct {
	Kind              Kind
	AccountUpdate     AccountUpdate
	InstructionNotify InstructionNotify
	SlotStatusUpdate  SlotStatusUpdate
}

// Encode serializes the envelope to the wire format.
func (env Envelope) Encode() []byte {
	e := NewEncoder()
	switch env.Kind {
	case KindAccountUpdate:
		e.PutVariant(uint8(KindAccountUpdate), env.AccountUpdate.Encode)
	case KindInstructionNotify:
		e.PutVariant(uint8(KindInstructionNotify), env.InstructionNotify.Encode)
	case KindSlotStatus:
		e.PutVariant(uint8(KindSlotStatus), env.SlotStatusUpdate.Encode)
	}
	return e.Bytes()
}

// DecodeEnvelope parses a tagged-union message off the account/instruction
// stream.
func DecodeEnvelope(data []byte) (Envelope, error) {
	d := NewDecoder(data)
	tag, err := d.Uint8()
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: envelope tag: %w", err)
	}
	fields, err := d.Fields()
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: envelope body: %w", err)
	}
	env := Envelope{Kind: Kind(tag)}
	switch env.Kind {
	case KindAccountUpdate:
		env.AccountUpdate, err = DecodeAccountUpdate(fields)
	case KindInstructionNotify:
		env.InstructionNotify, err = DecodeInstructionNotify(fields)
	case KindSlotStatus:
		env.SlotStatusUpdate, err = DecodeSlotStatusUpdate(fields)
	default:
		return Envelope{}, fmt.Errorf("wire: unknown envelope tag %d", tag)
	}
	return env, err
}

func decodeU64Field(fields map[string][]byte, name string) (uint64, error) {
	raw, err := RequireField(fields, name)
	if err != nil {
		return 0, err
	}
	v, err := NewDecoder(raw).Uint64()
	if err != nil {
		return 0, fmt.Errorf("wire: field %q: %w", name, err)
	}
	return v, nil
}

func decodeBoolField(fields map[string][]byte, name string) (bool, error) {
	raw, err := RequireField(fields, name)
	if err != nil {
		return false, err
	}
	v, err := NewDecoder(raw).Bool()
	if err != nil {
		return false, fmt.Errorf("wire: field %q: %w", name, err)
	}
	return v, nil
}

func decodeStringField(fields map[string][]byte, name string) (string, error) {
	raw, err := RequireField(fields, name)
	if err != nil {
		return "", err
	}
	v, err := NewDecoder(raw).String()
	if err != nil {
		return "", fmt.Errorf("wire: field %q: %w", name, err)
	}
	return v, nil
}
