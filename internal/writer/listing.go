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

// ListingParams is the business key and attributes of a Listing row, the
// Sell instruction's decoded fields (spec §3's Listing entity).
type ListingParams struct {
	TradeState          chainaddr.Address
	AuctionHouse        chainaddr.Address
	Seller              chainaddr.Address
	Metadata            chainaddr.Address
	MarketplaceProgram  string
	Price               decimal.Decimal
	TokenSize           uint64
	Slot                uint64
	WriteVersion        uint64
}

// CreateListing inserts a Listing on first observation of a trade_state
// (spec §4.4.4: "On first observation of a listing ... emit a Created
// activity"). Processing the same Sell delivery twice is a no-op by
// `listings_unique_fields` (trade_state, auction_house): the second
// attempt hits ON CONFLICT DO NOTHING and reports no activity (spec §8
// property 2, idempotence).
func CreateListing(ctx context.Context, tx pgx.Tx, p ListingParams, ignore IgnoreList) error {
	id := uuid.New()
	tag, err := tx.Exec(ctx, `
		INSERT INTO listings (
			address, trade_state, auction_house, seller, metadata, price,
			token_size, marketplace_program, created_at, slot, write_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now(), $9,$10)
		ON CONFLICT ON CONSTRAINT listings_unique_fields DO NOTHING
	`, id, p.TradeState.String(), p.AuctionHouse.String(), p.Seller.String(), p.Metadata.String(),
		p.Price, p.TokenSize, p.MarketplaceProgram, p.Slot, p.WriteVersion)
	if err != nil {
		return fmt.Errorf("writer: insert listing %s: %w", p.TradeState, err)
	}
	if tag.RowsAffected() == 0 {
		return nil // already observed; idempotent replay
	}
	if ignore.Ignores(p.AuctionHouse) {
		return nil
	}
	actID, err := insertActivity(ctx, tx, ActivityListingCreated, p.Metadata, &p.Price, []chainaddr.Address{p.Seller})
	if err != nil {
		return err
	}
	return insertFeedEvent(ctx, tx, p.Seller, FeedEventListing, actID, time.Now())
}

// CancelListing transitions a Listing to canceled. Spec §9 Open Question 3
// is resolved to tolerate zero, one, or (defensively) multiple matching
// rows rather than assuming exactly one exists: the cancel handler may
// race a Sell that has not yet been applied (spec S3's seed scenario). It
// reports whether any row matched; a Cancel that matches neither the
// Listing nor the Offer table is the caller's signal to surface a
// retry-class error so the delivery is dead-lettered and retried once the
// Sell has landed, instead of being acked and silently lost.
func CancelListing(ctx context.Context, tx pgx.Tx, tradeState, auctionHouse chainaddr.Address, slot uint64, ignore IgnoreList) (bool, error) {
	rows, err := tx.Query(ctx, `
		UPDATE listings SET canceled_at = now(), slot = $3
		WHERE trade_state = $1 AND auction_house = $2
		  AND canceled_at IS NULL AND purchase_id IS NULL
		RETURNING id, metadata, seller, price
	`, tradeState.String(), auctionHouse.String(), slot)
	if err != nil {
		return false, fmt.Errorf("writer: cancel listing %s: %w", tradeState, err)
	}
	defer rows.Close()

	type canceled struct {
		id       uuid.UUID
		metadata chainaddr.Address
		seller   chainaddr.Address
		price    decimal.Decimal
	}
	var hits []canceled
	for rows.Next() {
		var c canceled
		var metaStr, sellerStr string
		if err := rows.Scan(&c.id, &metaStr, &sellerStr, &c.price); err != nil {
			return false, fmt.Errorf("writer: scan canceled listing %s: %w", tradeState, err)
		}
		if c.metadata, err = chainaddr.FromBase58(metaStr); err != nil {
			return false, err
		}
		if c.seller, err = chainaddr.FromBase58(sellerStr); err != nil {
			return false, err
		}
		hits = append(hits, c)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("writer: iterate canceled listings %s: %w", tradeState, err)
	}
	if len(hits) == 0 {
		return false, nil
	}

	if ignore.Ignores(auctionHouse) {
		return true, nil
	}
	for _, c := range hits {
		actID, err := insertActivity(ctx, tx, ActivityListingCanceled, c.metadata, &c.price, []chainaddr.Address{c.seller})
		if err != nil {
			return true, err
		}
		if err := insertFeedEvent(ctx, tx, c.seller, FeedEventListing, actID, time.Now()); err != nil {
			return true, err
		}
	}
	return true, nil
}
