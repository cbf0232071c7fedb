package chain

import (
	"fmt"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// MetadataKey is the Metaplex token-metadata program's account-kind tag
// byte (grounded on original_source's programs/metadata.rs, which matches
// on Key::MetadataV1/EditionV1/MasterEditionV1/MasterEditionV2).
type MetadataKey uint8

const (
	MetadataKeyEditionV1       MetadataKey = 1
	MetadataKeyMasterEditionV1 MetadataKey = 2
	MetadataKeyMetadataV1      MetadataKey = 4
	MetadataKeyMasterEditionV2 MetadataKey = 6
)

// Creator is one entry of a Metadata's creators list.
type Creator struct {
	Address  chainaddr.Address
	Verified bool
	Share    uint8
}

// Metadata is the decoded record for a MetadataV1 account (spec §3's
// Metadata entity and its MetadataCreator children).
type Metadata struct {
	UpdateAuthority       chainaddr.Address
	Mint                  chainaddr.Address
	Name                  string
	Symbol                string
	URI                   string
	SellerFeeBasisPoints  uint16
	Creators              []Creator
	PrimarySaleHappened   bool
	IsMutable             bool
	EditionNonce          *uint8
}

// DecodeMetadata parses a MetadataV1 account body (the key byte has
// already been consumed by DecodeMetadataAccount).
func DecodeMetadata(data []byte, owner chainaddr.Address) (Metadata, error) {
	r := newBorshReader(data)
	var m Metadata
	var err error

	if m.UpdateAuthority, err = r.pubkey(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "update_authority", err)
	}
	if m.Mint, err = r.pubkey(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "mint", err)
	}
	if m.Name, err = r.str(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "data.name", err)
	}
	if m.Symbol, err = r.str(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "data.symbol", err)
	}
	if m.URI, err = r.str(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "data.uri", err)
	}
	if m.SellerFeeBasisPoints, err = r.u16(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "data.seller_fee_basis_points", err)
	}

	creatorsPresent, err := r.boolean()
	if err != nil {
		return m, wrapMetadataErr(owner, len(data), "data.creators tag", err)
	}
	if creatorsPresent {
		count, err := r.u32()
		if err != nil {
			return m, wrapMetadataErr(owner, len(data), "data.creators length", err)
		}
		if count > 64<<10 {
			return m, &DecodeError{Program: ProgramTokenMetadata, Owner: owner, Len: len(data), Reason: "creators count exceeds sanity cap"}
		}
		m.Creators = make([]Creator, count)
		for i := range m.Creators {
			addr, err := r.pubkey()
			if err != nil {
				return m, wrapMetadataErr(owner, len(data), fmt.Sprintf("creators[%d].address", i), err)
			}
			verified, err := r.boolean()
			if err != nil {
				return m, wrapMetadataErr(owner, len(data), fmt.Sprintf("creators[%d].verified", i), err)
			}
			share, err := r.u8()
			if err != nil {
				return m, wrapMetadataErr(owner, len(data), fmt.Sprintf("creators[%d].share", i), err)
			}
			m.Creators[i] = Creator{Address: addr, Verified: verified, Share: share}
		}
	}

	if m.PrimarySaleHappened, err = r.boolean(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "primary_sale_happened", err)
	}
	if m.IsMutable, err = r.boolean(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "is_mutable", err)
	}
	// edition_nonce: Option<u8>. Trailing fields (token_standard, collection,
	// uses) introduced by later program versions are intentionally not
	// read; spec §3's Metadata entity does not persist them.
	if m.EditionNonce, err = r.optU8(); err != nil {
		return m, wrapMetadataErr(owner, len(data), "edition_nonce", err)
	}

	return m, nil
}

func wrapMetadataErr(owner chainaddr.Address, n int, field string, cause error) error {
	return &DecodeError{Program: ProgramTokenMetadata, Owner: owner, Len: n, Reason: fmt.Sprintf("%s: %v", field, cause)}
}

// Edition is the decoded record for an EditionV1 account.
type Edition struct {
	Parent       chainaddr.Address
	EditionNumber uint64
}

// DecodeEdition parses an EditionV1 account body.
func DecodeEdition(data []byte, owner chainaddr.Address) (Edition, error) {
	r := newBorshReader(data)
	var e Edition
	var err error
	if e.Parent, err = r.pubkey(); err != nil {
		return e, wrapMetadataErr(owner, len(data), "edition.parent", err)
	}
	if e.EditionNumber, err = r.u64(); err != nil {
		return e, wrapMetadataErr(owner, len(data), "edition.edition", err)
	}
	return e, nil
}

// MasterEdition is the decoded record for a MasterEditionV1/V2 account
// (both shapes converge on supply/max_supply per original_source's
// process_master_edition_v1, which re-wraps a V1 as a V2).
type MasterEdition struct {
	Supply    uint64
	MaxSupply *uint64
}

// DecodeMasterEdition parses a MasterEditionV2 account body. (A
// MasterEditionV1 account carries one extra printing-mint/one-time-auth
// pair of pubkeys before these fields; those are not modeled here since
// spec §3 only persists supply/max_supply.)
func DecodeMasterEdition(data []byte, owner chainaddr.Address, key MetadataKey) (MasterEdition, error) {
	r := newBorshReader(data)
	var e MasterEdition
	var err error
	if key == MetadataKeyMasterEditionV1 {
		if _, err := r.pubkey(); err != nil { // printing_mint
			return e, wrapMetadataErr(owner, len(data), "master_edition_v1.printing_mint", err)
		}
		if _, err := r.pubkey(); err != nil { // one_time_printing_authorization_mint
			return e, wrapMetadataErr(owner, len(data), "master_edition_v1.one_time_printing_authorization_mint", err)
		}
	}
	if e.Supply, err = r.u64(); err != nil {
		return e, wrapMetadataErr(owner, len(data), "master_edition.supply", err)
	}
	if e.MaxSupply, err = r.optU64(); err != nil {
		return e, wrapMetadataErr(owner, len(data), "master_edition.max_supply", err)
	}
	return e, nil
}

// AccountKind discriminates which of the four record kinds a decoded
// token-metadata account produced.
type AccountKind int

const (
	AccountUnknownKind AccountKind = iota
	AccountMetadataKind
	AccountEditionKind
	AccountMasterEditionKind
)

// DecodedAccount wraps exactly one of Metadata/Edition/MasterEdition,
// the outcome of the inner (key-byte) dispatch within the token-metadata
// program (spec §4.2).
type DecodedAccount struct {
	Kind           AccountKind
	Metadata       Metadata
	Edition        Edition
	MasterEdition  MasterEdition
}

// DecodeMetadataAccount dispatches on the account's first byte (its
// MetadataKey) and decodes the rest of the body accordingly. An
// unrecognized key byte is a PolicyDrop, not a HardDecodeError (spec §4.2:
// "unknown discriminators for a known owner program are logged at trace
// level and dropped").
func DecodeMetadataAccount(data []byte, owner chainaddr.Address) (DecodedAccount, error) {
	if len(data) == 0 {
		return DecodedAccount{}, nil
	}
	key := MetadataKey(data[0])
	body := data[1:]

	switch key {
	case MetadataKeyMetadataV1:
		m, err := DecodeMetadata(body, owner)
		if err != nil {
			return DecodedAccount{}, err
		}
		return DecodedAccount{Kind: AccountMetadataKind, Metadata: m}, nil
	case MetadataKeyEditionV1:
		e, err := DecodeEdition(body, owner)
		if err != nil {
			return DecodedAccount{}, err
		}
		return DecodedAccount{Kind: AccountEditionKind, Edition: e}, nil
	case MetadataKeyMasterEditionV1, MetadataKeyMasterEditionV2:
		e, err := DecodeMasterEdition(body, owner, key)
		if err != nil {
			return DecodedAccount{}, err
		}
		return DecodedAccount{Kind: AccountMasterEditionKind, MasterEdition: e}, nil
	default:
		return DecodedAccount{Kind: AccountUnknownKind}, nil
	}
}
