package chain

import "github.com/holaplex-labs/indexer-core/pkg/chainaddr"

// TwitterSource distinguishes which of the two programs populated a
// TwitterHandle row (spec §3's TwitterHandle entity and §E's open-question
// resolution: both sources write into the same table, compared by the
// same (slot, write_version) rule, with source recording the last writer).
type TwitterSource string

const (
	TwitterSourceNamespace   TwitterSource = "namespace"
	TwitterSourceNameService TwitterSource = "name_service"
)

// TwitterHandleAccount is the decoded record for either source. Only the
// wallet/handle pair is modeled: spec §3's TwitterHandle entity persists
// no other attributes from either source account.
type TwitterHandleAccount struct {
	Wallet chainaddr.Address
	Handle string
	Source TwitterSource
}

// DecodeNameServiceTwitterHandle parses a Bonfida-style SPL Name Service
// reverse-twitter-registry account: a 96-byte NameRecordHeader
// (parent_name, owner, class pubkeys) is skipped, the wallet pubkey
// occupies the leading 32 bytes of the registry body, and the handle is
// the remaining UTF-8 payload (no further length prefix: the program
// rent-allocates the account to exactly fit the handle).
func DecodeNameServiceTwitterHandle(data []byte, owner chainaddr.Address) (TwitterHandleAccount, error) {
	r := newBorshReader(data)
	var t TwitterHandleAccount
	t.Source = TwitterSourceNameService

	if _, err := r.pubkey(); err != nil { // parent_name
		return t, wrapTwitterErr(owner, len(data), "name_record.parent_name", err)
	}
	if _, err := r.pubkey(); err != nil { // owner (name-service class owner, not the wallet)
		return t, wrapTwitterErr(owner, len(data), "name_record.owner", err)
	}
	if _, err := r.pubkey(); err != nil { // class
		return t, wrapTwitterErr(owner, len(data), "name_record.class", err)
	}
	wallet, err := r.pubkey()
	if err != nil {
		return t, wrapTwitterErr(owner, len(data), "registry.wallet", err)
	}
	t.Wallet = wallet
	handle, err := r.take(r.remaining())
	if err != nil {
		return t, wrapTwitterErr(owner, len(data), "registry.handle", err)
	}
	t.Handle = string(handle)
	return t, nil
}

// DecodeNamespaceTwitterHandle parses a cardinal-namespace entry account:
// an 8-byte Anchor discriminator, a length-prefixed entry name (the
// handle, without the leading "@"), and the claiming wallet pubkey.
func DecodeNamespaceTwitterHandle(data []byte, owner chainaddr.Address) (TwitterHandleAccount, error) {
	r := newBorshReader(data)
	var t TwitterHandleAccount
	t.Source = TwitterSourceNamespace

	if _, err := r.discriminator8(); err != nil {
		return t, wrapTwitterErr(owner, len(data), "discriminator", err)
	}
	handle, err := r.str()
	if err != nil {
		return t, wrapTwitterErr(owner, len(data), "entry_name", err)
	}
	t.Handle = handle
	wallet, err := r.pubkey()
	if err != nil {
		return t, wrapTwitterErr(owner, len(data), "owner", err)
	}
	t.Wallet = wallet
	return t, nil
}

func wrapTwitterErr(owner chainaddr.Address, n int, field string, cause error) error {
	return &DecodeError{Program: ProgramNameService, Owner: owner, Len: n, Reason: field + ": " + cause.Error()}
}
