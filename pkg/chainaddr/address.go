// Package chainaddr defines the 32-byte account/program address type shared
// by every decoder, handler, and wire message in the indexer. Addresses are
// rendered as base58 for storage and logging, matching how every consumer of
// the database expects them.
package chainaddr

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// Len is the fixed byte length of an on-chain address.
const Len = 32

// Address is a 32-byte account or program identifier.
type Address [Len]byte

// Zero is the all-zero address, used as a sentinel for "no account".
var Zero Address

// FromBytes copies b into an Address. b must be exactly Len bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Len {
		return a, fmt.Errorf("chainaddr: expected %d bytes, got %d", Len, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MustFromBytes is like FromBytes but panics on error. Intended for tests and
// static program-address tables, never for decoding untrusted input.
func MustFromBytes(b []byte) Address {
	a, err := FromBytes(b)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBase58 decodes a base58-encoded address string.
func FromBase58(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("chainaddr: decode base58: %w", err)
	}
	return FromBytes(b)
}

// MustFromBase58 is like FromBase58 but panics on error. Intended for
// static program-address tables initialized at package load time.
func MustFromBase58(s string) Address {
	a, err := FromBase58(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the address as base58, the canonical on-disk and
// over-the-wire representation.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns a copy of the address's raw bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, Len)
	copy(out, a[:])
	return out
}

// MarshalJSON renders the address as its base58 string, matching how the
// database and downstream APIs expect addresses to be represented.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses a base58 address string.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := FromBase58(s)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
