// Package chain decodes fixed-layout account blobs and instruction
// payloads for the handful of on-chain programs this indexer cares about,
// and resolves them to a typed record the ingest core can route to a
// handler. Classification is two-level (spec §4.2): the owning program
// address selects a decoder table, and a tag/discriminator/length
// within that table selects the concrete record shape. This package never
// consults a DB or broker — it is pure decode, the same separation the
// teacher keeps between internal/exchange (transport) and internal/market
// (pure book math, internal/market/book.go).
package chain

import (
	"crypto/sha256"
	"fmt"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// ProgramKind enumerates the on-chain programs this indexer decodes,
// dispatched on owner/program address per spec §4.2's collision policy:
// "same length, different program" is resolved by program address, never
// by payload inspection alone.
type ProgramKind int

const (
	ProgramUnknown ProgramKind = iota
	ProgramTokenMetadata
	ProgramToken
	ProgramAuctionHouse
	ProgramGraph
	ProgramNameService
	ProgramBonding
	ProgramRewardCenter
)

func (k ProgramKind) String() string {
	switch k {
	case ProgramTokenMetadata:
		return "token-metadata"
	case ProgramToken:
		return "token"
	case ProgramAuctionHouse:
		return "auction-house"
	case ProgramGraph:
		return "graph"
	case ProgramNameService:
		return "name-service"
	case ProgramBonding:
		return "bonding"
	case ProgramRewardCenter:
		return "reward-center"
	default:
		return "unknown"
	}
}

// Registry maps program addresses to a ProgramKind, the static routing
// table the design notes call for in place of virtual dispatch: "the
// routing table can be a static array indexed by program enum." Addresses
// are supplied at process start (spec §4.6's configuration load), not
// hardcoded, since they vary per network (mainnet/devnet/testnet).
type Registry struct {
	byAddress map[chainaddr.Address]ProgramKind
}

// NewRegistry builds a Registry from a program-kind to address mapping.
func NewRegistry(addresses map[ProgramKind]chainaddr.Address) *Registry {
	r := &Registry{byAddress: make(map[chainaddr.Address]ProgramKind, len(addresses))}
	for kind, addr := range addresses {
		r.byAddress[addr] = kind
	}
	return r
}

// Resolve returns the ProgramKind owning addr, or ProgramUnknown if addr
// is not a registered program.
func (r *Registry) Resolve(addr chainaddr.Address) ProgramKind {
	return r.byAddress[addr]
}

// DecodeError is a HardDecodeError (spec §7): the delivery carrying it is
// dropped, never retried. It always names the raw length and owner for
// diagnostics, per spec §4.2.
type DecodeError struct {
	Program ProgramKind
	Owner   chainaddr.Address
	Len     int
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("chain: decode failed for %s account owned by %s (%d bytes): %s",
		e.Program, e.Owner, e.Len, e.Reason)
}

// AnchorAccountDiscriminator computes the 8-byte Anchor account
// discriminator for the given account type name: the first 8 bytes of
// sha256("account:<Name>"), the convention every Anchor-generated program
// in this pack's reward-center and auction-house accounts follows.
func AnchorAccountDiscriminator(name string) [8]byte {
	return anchorDiscriminator("account:" + name)
}

// AnchorInstructionDiscriminator computes the 8-byte Anchor instruction
// discriminator for the given snake_case instruction name: the first 8
// bytes of sha256("global:<name>").
func AnchorInstructionDiscriminator(name string) [8]byte {
	return anchorDiscriminator("global:" + name)
}

func anchorDiscriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
