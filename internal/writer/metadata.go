package writer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// UpsertMetadata writes a decoded Metadata account, conditional on version
// dominance (spec §3: "updated on subsequent writes dominating its
// version"). MetadataCreator rows are fully replaced on every winning
// write (spec §3: "Replaced on every Metadata rewrite").
func UpsertMetadata(ctx context.Context, tx pgx.Tx, address chainaddr.Address, m chain.Metadata, v Version) error {
	var stored Version
	err := tx.QueryRow(ctx,
		`SELECT slot, write_version FROM metadatas WHERE address = $1 FOR UPDATE`,
		address.String(),
	).Scan(&stored.Slot, &stored.WriteVersion)
	switch err {
	case nil:
		if !v.Dominates(stored) {
			return nil // stale or duplicate delivery, no-op (spec §8 property 2)
		}
	case pgx.ErrNoRows:
		// first observation, falls through to insert
	default:
		return fmt.Errorf("writer: select metadata %s: %w", address, err)
	}

	var editionNonce any
	if m.EditionNonce != nil {
		editionNonce = *m.EditionNonce
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO metadatas (
			address, name, symbol, uri, seller_fee_basis_points, update_authority,
			mint, primary_sale_happened, is_mutable, edition_nonce, slot, write_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			uri = EXCLUDED.uri,
			seller_fee_basis_points = EXCLUDED.seller_fee_basis_points,
			update_authority = EXCLUDED.update_authority,
			mint = EXCLUDED.mint,
			primary_sale_happened = EXCLUDED.primary_sale_happened,
			is_mutable = EXCLUDED.is_mutable,
			edition_nonce = EXCLUDED.edition_nonce,
			slot = EXCLUDED.slot,
			write_version = EXCLUDED.write_version
	`, address.String(), m.Name, m.Symbol, m.URI, m.SellerFeeBasisPoints, m.UpdateAuthority.String(),
		m.Mint.String(), m.PrimarySaleHappened, m.IsMutable, editionNonce, v.Slot, v.WriteVersion)
	if err != nil {
		return fmt.Errorf("writer: upsert metadata %s: %w", address, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM metadata_creators WHERE metadata = $1`, address.String()); err != nil {
		return fmt.Errorf("writer: clear metadata_creators %s: %w", address, err)
	}
	for i, c := range m.Creators {
		if _, err := tx.Exec(ctx, `
			INSERT INTO metadata_creators (metadata, creator, "position", share, verified)
			VALUES ($1,$2,$3,$4,$5)
		`, address.String(), c.Address.String(), i, c.Share, c.Verified); err != nil {
			return fmt.Errorf("writer: insert metadata_creator %s[%d]: %w", address, i, err)
		}
	}
	return nil
}

// UpsertEdition writes a decoded Edition account unconditionally: it is a
// simple shadow of an immutable on-chain relationship (spec §3's Edition
// entity carries no independent mutation history once created).
func UpsertEdition(ctx context.Context, tx pgx.Tx, address chainaddr.Address, e chain.Edition, v Version) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO editions (address, parent, edition_number, slot, write_version)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (address) DO UPDATE SET
			parent = EXCLUDED.parent,
			edition_number = EXCLUDED.edition_number,
			slot = EXCLUDED.slot,
			write_version = EXCLUDED.write_version
	`, address.String(), e.Parent.String(), e.EditionNumber, v.Slot, v.WriteVersion)
	if err != nil {
		return fmt.Errorf("writer: upsert edition %s: %w", address, err)
	}
	return nil
}

// UpsertMasterEdition writes a decoded MasterEdition account
// unconditionally (spec §3's Edition/MasterEdition entity).
func UpsertMasterEdition(ctx context.Context, tx pgx.Tx, address chainaddr.Address, e chain.MasterEdition, v Version) error {
	var maxSupply any
	if e.MaxSupply != nil {
		maxSupply = *e.MaxSupply
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO master_editions (address, supply, max_supply, slot, write_version)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (address) DO UPDATE SET
			supply = EXCLUDED.supply,
			max_supply = EXCLUDED.max_supply,
			slot = EXCLUDED.slot,
			write_version = EXCLUDED.write_version
	`, address.String(), e.Supply, maxSupply, v.Slot, v.WriteVersion)
	if err != nil {
		return fmt.Errorf("writer: upsert master edition %s: %w", address, err)
	}
	return nil
}

// BurnMetadata sets a Metadata row's burned_at to now and bumps its slot
// (spec §4.4.5). burned_at monotonically transitions from null to a
// timestamp and is never cleared (spec §3 invariant 4), enforced here by
// only setting it when currently null.
func BurnMetadata(ctx context.Context, tx pgx.Tx, mint chainaddr.Address, slot uint64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE metadatas SET burned_at = now(), slot = $2
		WHERE mint = $1 AND burned_at IS NULL
	`, mint.String(), slot)
	if err != nil {
		return fmt.Errorf("writer: burn metadata for mint %s: %w", mint, err)
	}
	_ = tag // idempotent: zero rows affected on replay is not an error
	return nil
}
