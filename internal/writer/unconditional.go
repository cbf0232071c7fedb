package writer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// UpsertAuctionHouse writes a decoded AuctionHouse account unconditionally
// (spec §4.4.3: "every updated column is written from the new record" —
// AuctionHouse is a simple shadow of the account, no dominance check).
func UpsertAuctionHouse(ctx context.Context, tx pgx.Tx, address chainaddr.Address, h chain.AuctionHouse) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO auction_houses (
			address, treasury_mint, fee_account, treasury_account,
			fee_withdrawal_destination, treasury_withdrawal_destination,
			authority, creator, bump, treasury_bump, fee_payer_bump,
			seller_fee_basis_points, requires_sign_off, can_change_sale_price
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (address) DO UPDATE SET
			treasury_mint = EXCLUDED.treasury_mint,
			fee_account = EXCLUDED.fee_account,
			treasury_account = EXCLUDED.treasury_account,
			fee_withdrawal_destination = EXCLUDED.fee_withdrawal_destination,
			treasury_withdrawal_destination = EXCLUDED.treasury_withdrawal_destination,
			authority = EXCLUDED.authority,
			creator = EXCLUDED.creator,
			bump = EXCLUDED.bump,
			treasury_bump = EXCLUDED.treasury_bump,
			fee_payer_bump = EXCLUDED.fee_payer_bump,
			seller_fee_basis_points = EXCLUDED.seller_fee_basis_points,
			requires_sign_off = EXCLUDED.requires_sign_off,
			can_change_sale_price = EXCLUDED.can_change_sale_price
	`, address.String(), h.TreasuryMint.String(), h.FeeAccount.String(), h.Treasury.String(),
		h.FeeWithdrawDest.String(), h.TreasuryWithdrawDest.String(), h.Authority.String(),
		h.Creator.String(), h.Bump, h.TreasuryBump, h.FeePayerBump,
		h.SellerFeeBasisPoints, h.RequiresSignOff, h.CanChangeSalePrice)
	if err != nil {
		return fmt.Errorf("writer: upsert auction_house %s: %w", address, err)
	}
	return nil
}

// UpsertRewardCenter writes a decoded RewardCenter account unconditionally
// (spec §4.4.3 names RewardCenter explicitly as an unconditional-upsert
// table).
func UpsertRewardCenter(ctx context.Context, tx pgx.Tx, address chainaddr.Address, c chain.RewardCenter) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reward_centers (
			address, token_mint, auction_house, bump,
			seller_reward_payout_basis_points, mathematical_operand, payout_numeral
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (address) DO UPDATE SET
			token_mint = EXCLUDED.token_mint,
			auction_house = EXCLUDED.auction_house,
			bump = EXCLUDED.bump,
			seller_reward_payout_basis_points = EXCLUDED.seller_reward_payout_basis_points,
			mathematical_operand = EXCLUDED.mathematical_operand,
			payout_numeral = EXCLUDED.payout_numeral
	`, address.String(), c.TokenMint.String(), c.AuctionHouse.String(), c.Bump,
		c.SellerRewardPayoutBasisPoints, uint8(c.MathematicalOperand), c.PayoutNumeral)
	if err != nil {
		return fmt.Errorf("writer: upsert reward_center %s: %w", address, err)
	}
	return nil
}

// UpsertBondingChange writes a decoded BondingChange account
// unconditionally (spec §4.4.3 names BondingChange explicitly).
func UpsertBondingChange(ctx context.Context, tx pgx.Tx, address chainaddr.Address, b chain.BondingChange) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bonding_changes (address, reserve_balance_from_bonding, supply_from_bonding)
		VALUES ($1,$2,$3)
		ON CONFLICT (address) DO UPDATE SET
			reserve_balance_from_bonding = EXCLUDED.reserve_balance_from_bonding,
			supply_from_bonding = EXCLUDED.supply_from_bonding
	`, address.String(), b.ReserveBalanceFromBonding, b.SupplyFromBonding)
	if err != nil {
		return fmt.Errorf("writer: upsert bonding_change %s: %w", address, err)
	}
	return nil
}

// UpsertGraphConnection writes a decoded GraphConnection account
// unconditionally and reports whether this write is the row's first
// insertion, so the caller can emit a follow feed event only once (spec
// §3's GraphConnection entity: "insertion triggers follow feed event").
func UpsertGraphConnection(ctx context.Context, tx pgx.Tx, address chainaddr.Address, c chain.GraphConnection) (id uuid.UUID, inserted bool, err error) {
	err = tx.QueryRow(ctx, `SELECT id FROM graph_connections WHERE address = $1`, address.String()).Scan(&id)
	switch err {
	case nil:
		if _, err := tx.Exec(ctx, `
			UPDATE graph_connections SET from_account = $2, to_account = $3 WHERE address = $1
		`, address.String(), c.FromAccount.String(), c.ToAccount.String()); err != nil {
			return uuid.Nil, false, fmt.Errorf("writer: update graph_connection %s: %w", address, err)
		}
		return id, false, nil
	case pgx.ErrNoRows:
	default:
		return uuid.Nil, false, fmt.Errorf("writer: select graph_connection %s: %w", address, err)
	}

	id = uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO graph_connections (id, address, from_account, to_account, connected_at)
		VALUES ($1,$2,$3,$4, now())
	`, id, address.String(), c.FromAccount.String(), c.ToAccount.String()); err != nil {
		return uuid.Nil, false, fmt.Errorf("writer: insert graph_connection %s: %w", address, err)
	}
	return id, true, nil
}

// DisconnectGraphConnection marks a GraphConnection as disconnected, used
// when the account update carries a zeroed to_account (the program's
// convention for a torn-down connection).
func DisconnectGraphConnection(ctx context.Context, tx pgx.Tx, address chainaddr.Address) error {
	_, err := tx.Exec(ctx, `
		UPDATE graph_connections SET disconnected_at = now()
		WHERE address = $1 AND disconnected_at IS NULL
	`, address.String())
	if err != nil {
		return fmt.Errorf("writer: disconnect graph_connection %s: %w", address, err)
	}
	return nil
}
