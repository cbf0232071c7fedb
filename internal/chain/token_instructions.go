package chain

import (
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// TokenInstructionTag is the SPL token program's instruction discriminator
// (a single tag byte, not Anchor's 8-byte sighash — the token program
// predates Anchor and uses the original native tag-byte convention).
type TokenInstructionTag uint8

const TokenInstructionBurn TokenInstructionTag = 8

// BurnInstruction is the decoded record for a token-program Burn
// instruction with the four accounts spec §4.4.5 requires: source token
// account, mint, owner/authority, and token program (included for
// multisig-owner burns, unused here).
type BurnInstruction struct {
	Source chainaddr.Address
	Mint   chainaddr.Address
	Owner  chainaddr.Address
	Amount uint64
}

// DecodeBurnInstruction parses a token-program Burn instruction. Spec
// §4.4.5 requires exactly four accounts; any other count is a PolicyDrop
// (the accounts list shape doesn't match what the burn handler expects),
// not a HardDecodeError.
func DecodeBurnInstruction(data []byte, accounts []chainaddr.Address, owner chainaddr.Address) (BurnInstruction, bool, error) {
	if len(accounts) != 4 {
		return BurnInstruction{}, false, nil
	}
	if len(data) == 0 || TokenInstructionTag(data[0]) != TokenInstructionBurn {
		return BurnInstruction{}, false, nil
	}

	r := newBorshReader(data[1:])
	amount, err := r.u64()
	if err != nil {
		return BurnInstruction{}, false, &DecodeError{
			Program: ProgramToken, Owner: owner, Len: len(data),
			Reason: "burn.amount: " + err.Error(),
		}
	}

	return BurnInstruction{
		Source: accounts[0],
		Mint:   accounts[1],
		Owner:  accounts[2],
		Amount: amount,
	}, true, nil
}
