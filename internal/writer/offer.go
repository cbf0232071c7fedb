package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// OfferParams is the business key and attributes of an Offer row, the Buy
// instruction's decoded fields (spec §3's Offer entity).
type OfferParams struct {
	TradeState         chainaddr.Address
	AuctionHouse       chainaddr.Address
	Buyer              chainaddr.Address
	Metadata           chainaddr.Address
	MarketplaceProgram string
	Price              decimal.Decimal
	TokenSize          uint64
	Slot               uint64
	WriteVersion       uint64
}

// CreateOffer inserts an Offer on first observation of a trade_state, the
// Offer-side twin of CreateListing.
func CreateOffer(ctx context.Context, tx pgx.Tx, p OfferParams, ignore IgnoreList) error {
	id := uuid.New()
	tag, err := tx.Exec(ctx, `
		INSERT INTO offers (
			address, trade_state, auction_house, buyer, metadata, price,
			token_size, marketplace_program, created_at, slot, write_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now(), $9,$10)
		ON CONFLICT ON CONSTRAINT offers_unique_fields DO NOTHING
	`, id, p.TradeState.String(), p.AuctionHouse.String(), p.Buyer.String(), p.Metadata.String(),
		p.Price, p.TokenSize, p.MarketplaceProgram, p.Slot, p.WriteVersion)
	if err != nil {
		return fmt.Errorf("writer: insert offer %s: %w", p.TradeState, err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	if ignore.Ignores(p.AuctionHouse) {
		return nil
	}
	actID, err := insertActivity(ctx, tx, ActivityOfferCreated, p.Metadata, &p.Price, []chainaddr.Address{p.Buyer})
	if err != nil {
		return err
	}
	return insertFeedEvent(ctx, tx, p.Buyer, FeedEventOffer, actID, time.Now())
}

// CancelOffer transitions an Offer to canceled, tolerating zero, one, or
// (defensively) multiple matches, the same §9 Open Question 3 resolution
// CancelListing uses, and reporting whether any row matched for the same
// reason: a Cancel matching neither table must not be silently acked away.
func CancelOffer(ctx context.Context, tx pgx.Tx, tradeState, auctionHouse chainaddr.Address, slot uint64, ignore IgnoreList) (bool, error) {
	rows, err := tx.Query(ctx, `
		UPDATE offers SET canceled_at = now(), slot = $3
		WHERE trade_state = $1 AND auction_house = $2
		  AND canceled_at IS NULL AND purchase_id IS NULL
		RETURNING id, metadata, buyer, price
	`, tradeState.String(), auctionHouse.String(), slot)
	if err != nil {
		return false, fmt.Errorf("writer: cancel offer %s: %w", tradeState, err)
	}
	defer rows.Close()

	type canceled struct {
		id       uuid.UUID
		metadata chainaddr.Address
		buyer    chainaddr.Address
		price    decimal.Decimal
	}
	var hits []canceled
	for rows.Next() {
		var c canceled
		var metaStr, buyerStr string
		if err := rows.Scan(&c.id, &metaStr, &buyerStr, &c.price); err != nil {
			return false, fmt.Errorf("writer: scan canceled offer %s: %w", tradeState, err)
		}
		if c.metadata, err = chainaddr.FromBase58(metaStr); err != nil {
			return false, err
		}
		if c.buyer, err = chainaddr.FromBase58(buyerStr); err != nil {
			return false, err
		}
		hits = append(hits, c)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("writer: iterate canceled offers %s: %w", tradeState, err)
	}
	if len(hits) == 0 {
		return false, nil
	}

	if ignore.Ignores(auctionHouse) {
		return true, nil
	}
	for _, c := range hits {
		actID, err := insertActivity(ctx, tx, ActivityOfferCanceled, c.metadata, &c.price, []chainaddr.Address{c.buyer})
		if err != nil {
			return true, err
		}
		if err := insertFeedEvent(ctx, tx, c.buyer, FeedEventOffer, actID, time.Now()); err != nil {
			return true, err
		}
	}
	return true, nil
}
