package writer

import (
	"context"
	"testing"

	"github.com/holaplex-labs/indexer-core/internal/dbfake"
	"github.com/shopspring/decimal"
)

// TestCancelOfferBeforeBuyDoesNotMatch is offer.go's half of seed scenario
// S3, symmetric to TestCancelListingBeforeSellDoesNotMatch.
func TestCancelOfferBeforeBuyDoesNotMatch(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())

	matched, err := CancelOffer(context.Background(), tx, addr(1), addr(2), 5, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if matched {
		t.Fatal("matched = true, want false: no offer exists yet")
	}
}

func TestCancelOfferAfterBuyMatches(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	tradeState, auctionHouse := addr(1), addr(2)

	p := OfferParams{TradeState: tradeState, AuctionHouse: auctionHouse, Buyer: addr(3), Metadata: addr(4), Price: decimal.NewFromInt(50), TokenSize: 1, Slot: 1}
	if err := CreateOffer(context.Background(), tx, p, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	matched, err := CancelOffer(context.Background(), tx, tradeState, auctionHouse, 5, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !matched {
		t.Fatal("matched = false, want true once the offer exists")
	}
	if !db.Offers[tradeState.String()].canceledAt {
		t.Fatal("offer should be canceled")
	}
}

func TestCreateOfferDuplicateDeliveryIsIdempotent(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	p := OfferParams{TradeState: addr(1), AuctionHouse: addr(2), Buyer: addr(3), Metadata: addr(4), Price: decimal.NewFromInt(50), TokenSize: 1, Slot: 1}

	if err := CreateOffer(context.Background(), tx, p, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := CreateOffer(context.Background(), tx, p, nil); err != nil {
		t.Fatalf("replayed create: %v", err)
	}
	if len(db.Offers) != 1 {
		t.Fatalf("offers count = %d, want 1", len(db.Offers))
	}
	if len(db.Activities) != 1 {
		t.Fatalf("activity count = %d, want 1 (replay must not re-emit)", len(db.Activities))
	}
}
