package chain

import "github.com/holaplex-labs/indexer-core/pkg/chainaddr"

// GraphConnection is the decoded record for a social-graph ConnectionV2
// account (spec §3's GraphConnection entity), grounded on
// original_source's programs/graph.rs (`ConnectionV2::try_deserialize`)
// and db/queries/graph_connection.rs's from_account/to_account columns.
type GraphConnection struct {
	FromAccount chainaddr.Address
	ToAccount   chainaddr.Address
}

// DecodeGraphConnection parses a ConnectionV2 account body, skipping its
// leading 8-byte Anchor discriminator.
func DecodeGraphConnection(data []byte, owner chainaddr.Address) (GraphConnection, error) {
	r := newBorshReader(data)
	var c GraphConnection
	var err error
	if _, err = r.discriminator8(); err != nil {
		return c, wrapGraphErr(owner, len(data), "discriminator", err)
	}
	if c.FromAccount, err = r.pubkey(); err != nil {
		return c, wrapGraphErr(owner, len(data), "from", err)
	}
	if c.ToAccount, err = r.pubkey(); err != nil {
		return c, wrapGraphErr(owner, len(data), "to", err)
	}
	return c, nil
}

func wrapGraphErr(owner chainaddr.Address, n int, field string, cause error) error {
	return &DecodeError{Program: ProgramGraph, Owner: owner, Len: n, Reason: field + ": " + cause.Error()}
}
