package chain

import (
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// TokenAccountLen is the exact byte length of an SPL token account (spec
// §4.2 dispatch-by-exact-length policy — the token program's Account
// layout is fixed, not Borsh-framed, per the real spl-token crate).
const TokenAccountLen = 165

// TokenAccountState mirrors the token program's AccountState enum.
type TokenAccountState uint8

const (
	TokenAccountUninitialized TokenAccountState = 0
	TokenAccountInitialized   TokenAccountState = 1
	TokenAccountFrozen        TokenAccountState = 2
)

// TokenAccount is the decoded record for an SPL token account (spec §3's
// TokenAccount/CurrentMetadataOwner entity).
type TokenAccount struct {
	Mint            chainaddr.Address
	Owner           chainaddr.Address
	Amount          uint64
	Delegate        *chainaddr.Address
	State           TokenAccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *chainaddr.Address
}

// DecodeTokenAccount parses the fixed 165-byte SPL token account layout:
// mint(32) owner(32) amount(8) delegate(COption<Pubkey>, 36)
// state(1) is_native(COption<u64>, 12) delegated_amount(8)
// close_authority(COption<Pubkey>, 36). A COption is a 4-byte
// little-endian presence tag (not the 1-byte Borsh Option tag used
// elsewhere in this package) followed by the value slot, always present
// in the byte layout whether or not the tag is set.
func DecodeTokenAccount(data []byte, owner chainaddr.Address) (TokenAccount, error) {
	if len(data) != TokenAccountLen {
		return TokenAccount{}, &DecodeError{
			Program: ProgramToken, Owner: owner, Len: len(data),
			Reason: "token account must be exactly 165 bytes",
		}
	}

	r := newBorshReader(data)
	var t TokenAccount
	var err error

	if t.Mint, err = r.pubkey(); err != nil {
		return t, wrapTokenErr(owner, len(data), "mint", err)
	}
	if t.Owner, err = r.pubkey(); err != nil {
		return t, wrapTokenErr(owner, len(data), "owner", err)
	}
	if t.Amount, err = r.u64(); err != nil {
		return t, wrapTokenErr(owner, len(data), "amount", err)
	}

	delegateTag, err := r.u32()
	if err != nil {
		return t, wrapTokenErr(owner, len(data), "delegate tag", err)
	}
	delegate, err := r.pubkey()
	if err != nil {
		return t, wrapTokenErr(owner, len(data), "delegate", err)
	}
	if delegateTag != 0 {
		t.Delegate = &delegate
	}

	stateByte, err := r.u8()
	if err != nil {
		return t, wrapTokenErr(owner, len(data), "state", err)
	}
	t.State = TokenAccountState(stateByte)

	isNativeTag, err := r.u32()
	if err != nil {
		return t, wrapTokenErr(owner, len(data), "is_native tag", err)
	}
	isNativeVal, err := r.u64()
	if err != nil {
		return t, wrapTokenErr(owner, len(data), "is_native", err)
	}
	if isNativeTag != 0 {
		t.IsNative = &isNativeVal
	}

	if t.DelegatedAmount, err = r.u64(); err != nil {
		return t, wrapTokenErr(owner, len(data), "delegated_amount", err)
	}

	closeTag, err := r.u32()
	if err != nil {
		return t, wrapTokenErr(owner, len(data), "close_authority tag", err)
	}
	closeAuth, err := r.pubkey()
	if err != nil {
		return t, wrapTokenErr(owner, len(data), "close_authority", err)
	}
	if closeTag != 0 {
		t.CloseAuthority = &closeAuth
	}

	return t, nil
}

func wrapTokenErr(owner chainaddr.Address, n int, field string, cause error) error {
	return &DecodeError{Program: ProgramToken, Owner: owner, Len: n, Reason: field + ": " + cause.Error()}
}
