package writer

import (
	"context"
	"testing"

	"github.com/holaplex-labs/indexer-core/internal/dbfake"
	"github.com/shopspring/decimal"
)

// TestCreateListingDuplicateDeliveryIsIdempotent covers testable property 2
// (spec §8): replaying the same Sell delivery must not double-insert or
// double-emit activity.
func TestCreateListingDuplicateDeliveryIsIdempotent(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	p := ListingParams{TradeState: addr(1), AuctionHouse: addr(2), Seller: addr(3), Metadata: addr(4), Price: decimal.NewFromInt(50), TokenSize: 1, Slot: 1}

	if err := CreateListing(context.Background(), tx, p, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := CreateListing(context.Background(), tx, p, nil); err != nil {
		t.Fatalf("replayed create: %v", err)
	}

	if len(db.Listings) != 1 {
		t.Fatalf("listings count = %d, want 1", len(db.Listings))
	}
	if len(db.Activities) != 1 {
		t.Fatalf("activity count = %d, want 1 (replay must not re-emit)", len(db.Activities))
	}
}

// TestCreateListingIgnoredAuctionHouseSkipsActivity covers spec §9 Open
// Question 2 / testable property 4's ignore-list exemption: the state
// change still happens, only the activity/feed-event emission is skipped.
func TestCreateListingIgnoredAuctionHouseSkipsActivity(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	ah := addr(9)
	p := ListingParams{TradeState: addr(1), AuctionHouse: ah, Seller: addr(3), Metadata: addr(4), Price: decimal.NewFromInt(50), TokenSize: 1, Slot: 1}
	ignore := NewIgnoreList([]string{ah.String()})

	if err := CreateListing(context.Background(), tx, p, ignore); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := db.Listings[p.TradeState.String()]; !ok {
		t.Fatal("listing row must still be written for an ignored auction house")
	}
	if len(db.Activities) != 0 {
		t.Fatalf("activity count = %d, want 0 for an ignored auction house", len(db.Activities))
	}
}

// TestCancelListingBeforeSellDoesNotMatch covers seed scenario S3: a
// Cancel arriving before its matching Sell must report no match so the
// caller can surface a retry-class error instead of acking the delivery
// away.
func TestCancelListingBeforeSellDoesNotMatch(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())

	matched, err := CancelListing(context.Background(), tx, addr(1), addr(2), 5, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if matched {
		t.Fatal("matched = true, want false: no listing exists yet")
	}
}

// TestCancelListingAfterSellMatches is the resolution half of S3: once the
// Sell has landed, the Cancel (on retry) matches and transitions state.
func TestCancelListingAfterSellMatches(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	tradeState, auctionHouse := addr(1), addr(2)

	p := ListingParams{TradeState: tradeState, AuctionHouse: auctionHouse, Seller: addr(3), Metadata: addr(4), Price: decimal.NewFromInt(50), TokenSize: 1, Slot: 1}
	if err := CreateListing(context.Background(), tx, p, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	matched, err := CancelListing(context.Background(), tx, tradeState, auctionHouse, 5, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !matched {
		t.Fatal("matched = false, want true once the listing exists")
	}
	if !db.Listings[tradeState.String()].canceledAt {
		t.Fatal("listing should be canceled")
	}
}

// TestCancelListingAlreadyCanceledDoesNotMatchTwice ensures a second cancel
// delivery for an already-canceled listing reports no match, matching the
// UPDATE's "canceled_at IS NULL" guard.
func TestCancelListingAlreadyCanceledDoesNotMatchTwice(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	tradeState, auctionHouse := addr(1), addr(2)
	p := ListingParams{TradeState: tradeState, AuctionHouse: auctionHouse, Seller: addr(3), Metadata: addr(4), Price: decimal.NewFromInt(50), TokenSize: 1, Slot: 1}
	if err := CreateListing(context.Background(), tx, p, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CancelListing(context.Background(), tx, tradeState, auctionHouse, 5, nil); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	matched, err := CancelListing(context.Background(), tx, tradeState, auctionHouse, 6, nil)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if matched {
		t.Fatal("matched = true on a replayed cancel, want false")
	}
}
