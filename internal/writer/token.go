package writer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// UpsertTokenAccount writes a decoded SPL token account, conditional on
// slot alone (spec §3: "Conditionally updated only when incoming slot
// strictly exceeds stored slot" — this entity's dominance key is slot
// only, unlike the (slot, write_version) pair used elsewhere).
func UpsertTokenAccount(ctx context.Context, tx pgx.Tx, address chainaddr.Address, t chain.TokenAccount, slot uint64) error {
	var storedSlot uint64
	err := tx.QueryRow(ctx,
		`SELECT slot FROM token_accounts WHERE address = $1 FOR UPDATE`,
		address.String(),
	).Scan(&storedSlot)
	switch err {
	case nil:
		if slot <= storedSlot {
			return nil
		}
	case pgx.ErrNoRows:
	default:
		return fmt.Errorf("writer: select token_account %s: %w", address, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO token_accounts (address, mint, owner, amount, slot)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (address) DO UPDATE SET
			mint = EXCLUDED.mint, owner = EXCLUDED.owner,
			amount = EXCLUDED.amount, slot = EXCLUDED.slot
	`, address.String(), t.Mint.String(), t.Owner.String(), t.Amount, slot)
	if err != nil {
		return fmt.Errorf("writer: upsert token_account %s: %w", address, err)
	}

	// Rows with amount != 1 for NFT mints are ignored for ownership
	// purposes (spec §3): CurrentMetadataOwner only tracks single-token
	// holders, the NFT convention.
	if t.Amount != 1 {
		return nil
	}
	return upsertCurrentMetadataOwner(ctx, tx, t.Mint, t.Owner, slot)
}

func upsertCurrentMetadataOwner(ctx context.Context, tx pgx.Tx, mint, owner chainaddr.Address, slot uint64) error {
	var storedSlot uint64
	err := tx.QueryRow(ctx,
		`SELECT slot FROM current_metadata_owners WHERE mint = $1 FOR UPDATE`,
		mint.String(),
	).Scan(&storedSlot)
	switch err {
	case nil:
		if slot <= storedSlot {
			return nil
		}
	case pgx.ErrNoRows:
	default:
		return fmt.Errorf("writer: select current_metadata_owner %s: %w", mint, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO current_metadata_owners (mint, owner, slot)
		VALUES ($1,$2,$3)
		ON CONFLICT (mint) DO UPDATE SET owner = EXCLUDED.owner, slot = EXCLUDED.slot
	`, mint.String(), owner.String(), slot)
	if err != nil {
		return fmt.Errorf("writer: upsert current_metadata_owner %s: %w", mint, err)
	}
	return nil
}

// UpsertTwitterHandle conditionally replaces a TwitterHandle row keyed by
// wallet, guarded by the same (slot, write_version) dominance rule every
// other conditional upsert uses — spec §E's resolution of Open Question 4:
// no special-cased priority between the namespace and name-service
// sources, source just records which path wrote last.
func UpsertTwitterHandle(ctx context.Context, tx pgx.Tx, h chain.TwitterHandleAccount, v Version) error {
	var stored Version
	err := tx.QueryRow(ctx,
		`SELECT slot, write_version FROM twitter_handles WHERE wallet = $1 FOR UPDATE`,
		h.Wallet.String(),
	).Scan(&stored.Slot, &stored.WriteVersion)
	switch err {
	case nil:
		if !v.Dominates(stored) {
			return nil
		}
	case pgx.ErrNoRows:
	default:
		return fmt.Errorf("writer: select twitter_handle %s: %w", h.Wallet, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO twitter_handles (wallet, handle, source, slot, write_version)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (wallet) DO UPDATE SET
			handle = EXCLUDED.handle, source = EXCLUDED.source,
			slot = EXCLUDED.slot, write_version = EXCLUDED.write_version
	`, h.Wallet.String(), h.Handle, string(h.Source), v.Slot, v.WriteVersion)
	if err != nil {
		return fmt.Errorf("writer: upsert twitter_handle %s: %w", h.Wallet, err)
	}
	return nil
}
