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

// ExecuteSaleParams is the decoded ExecuteSale instruction plus the trade
// states of the Listing and Offer it settles (spec §3's Purchase entity,
// §8 property 3's "purchase linkage").
type ExecuteSaleParams struct {
	SellerTradeState   chainaddr.Address
	BuyerTradeState    chainaddr.Address
	AuctionHouse       chainaddr.Address
	Buyer              chainaddr.Address
	Seller             chainaddr.Address
	Metadata           chainaddr.Address
	MarketplaceProgram string
	Price              decimal.Decimal
	TokenSize          uint64
	Slot               uint64
}

// ExecuteSale inserts a Purchase and links the matching Listing and Offer
// via purchase_id, all within the caller's transaction (spec §4.4.4,
// §9's cyclic-reference resolution: "deferring the Purchase insert within
// the same transaction that back-fills Listing.purchase_id and
// Offer.purchase_id"). Before inserting, it verifies no existing Purchase
// shares the same business key, so a dead-letter retry of the same
// ExecuteSale delivery never double-emits the Purchase activity or a
// second feed event (spec §4.4.4, §8 property 2).
func ExecuteSale(ctx context.Context, tx pgx.Tx, p ExecuteSaleParams, ignore IgnoreList) error {
	var existing uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT id FROM purchases
		WHERE buyer = $1 AND seller = $2 AND auction_house = $3
		  AND metadata = $4 AND price = $5 AND token_size = $6 AND slot = $7
	`, p.Buyer.String(), p.Seller.String(), p.AuctionHouse.String(),
		p.Metadata.String(), p.Price, p.TokenSize, p.Slot).Scan(&existing)
	switch err {
	case nil:
		return nil // duplicate delivery: Purchase already recorded and linked
	case pgx.ErrNoRows:
	default:
		return fmt.Errorf("writer: check existing purchase for %s/%s: %w", p.SellerTradeState, p.BuyerTradeState, err)
	}

	purchaseID := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO purchases (
			id, auction_house, buyer, seller, metadata, price, token_size,
			marketplace_program, created_at, slot
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now(), $9)
	`, purchaseID, p.AuctionHouse.String(), p.Buyer.String(), p.Seller.String(), p.Metadata.String(),
		p.Price, p.TokenSize, p.MarketplaceProgram, p.Slot); err != nil {
		return fmt.Errorf("writer: insert purchase: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE listings SET purchase_id = $2 WHERE trade_state = $1 AND auction_house = $3
	`, p.SellerTradeState.String(), purchaseID, p.AuctionHouse.String()); err != nil {
		return fmt.Errorf("writer: link listing %s to purchase: %w", p.SellerTradeState, err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE offers SET purchase_id = $2 WHERE trade_state = $1 AND auction_house = $3
	`, p.BuyerTradeState.String(), purchaseID, p.AuctionHouse.String()); err != nil {
		return fmt.Errorf("writer: link offer %s to purchase: %w", p.BuyerTradeState, err)
	}

	if ignore.Ignores(p.AuctionHouse) {
		return nil
	}
	actID, err := insertActivity(ctx, tx, ActivityPurchase, p.Metadata, &p.Price, []chainaddr.Address{p.Buyer, p.Seller})
	if err != nil {
		return err
	}
	now := time.Now()
	if err := insertFeedEvent(ctx, tx, p.Buyer, FeedEventPurchase, actID, now); err != nil {
		return err
	}
	return insertFeedEvent(ctx, tx, p.Seller, FeedEventPurchase, actID, now)
}
