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

// ActivityType enumerates the MarketplaceActivity/CollectionActivity
// variants a Listing/Offer/Purchase state transition can emit (spec
// §4.4.4, §8 property 4).
type ActivityType string

const (
	ActivityListingCreated  ActivityType = "listing_created"
	ActivityListingCanceled ActivityType = "listing_canceled"
	ActivityOfferCreated    ActivityType = "offer_created"
	ActivityOfferCanceled   ActivityType = "offer_canceled"
	ActivityPurchase        ActivityType = "purchase"
)

// FeedEventKind discriminates which sub-table a FeedEvent's typed join row
// belongs to (spec §3's FeedEvent entity: "typed by sub-table").
type FeedEventKind string

const (
	FeedEventListing FeedEventKind = "listing"
	FeedEventOffer   FeedEventKind = "offer"
	FeedEventPurchase FeedEventKind = "purchase"
	FeedEventMint    FeedEventKind = "mint"
	FeedEventFollow  FeedEventKind = "follow"
)

// IgnoreList reports whether an auction house address is configured to
// skip activity/feed-event emission (spec §4.4.4, §9 Open Question 2).
// The underlying state change is still performed regardless.
type IgnoreList map[string]struct{}

// NewIgnoreList builds an IgnoreList from base58 auction house addresses.
func NewIgnoreList(addresses []string) IgnoreList {
	m := make(IgnoreList, len(addresses))
	for _, a := range addresses {
		m[a] = struct{}{}
	}
	return m
}

// Ignores reports whether auctionHouse should skip activity emission.
func (l IgnoreList) Ignores(auctionHouse chainaddr.Address) bool {
	_, ok := l[auctionHouse.String()]
	return ok
}

// insertActivity appends one MarketplaceActivity row and its join-table
// entry, within the caller's transaction, per spec §4.4.4's "inserted
// within the same transaction that performs the state change".
func insertActivity(ctx context.Context, tx pgx.Tx, kind ActivityType, metadata chainaddr.Address, price *decimal.Decimal, actors []chainaddr.Address) (uuid.UUID, error) {
	id := uuid.New()
	actorStrs := make([]string, len(actors))
	for i, a := range actors {
		actorStrs[i] = a.String()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO marketplace_activities (id, activity_type, actors, price, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5, now())
	`, id, string(kind), actorStrs, price, metadata.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("writer: insert marketplace_activity: %w", err)
	}
	return id, nil
}

// insertFeedEvent appends a FeedEvent row plus its typed join row, sharing
// the transaction that produced the underlying state change (spec §3's
// FeedEvent entity, §4.4.4).
func insertFeedEvent(ctx context.Context, tx pgx.Tx, wallet chainaddr.Address, kind FeedEventKind, refID uuid.UUID, at time.Time) error {
	id := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO feed_events (id, wallet, event, created_at) VALUES ($1,$2,$3,$4)
	`, id, wallet.String(), string(kind), at); err != nil {
		return fmt.Errorf("writer: insert feed_event: %w", err)
	}
	table := feedEventJoinTable(kind)
	if table == "" {
		return nil
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (feed_event_id, ref_id) VALUES ($1,$2)
	`, table), id, refID); err != nil {
		return fmt.Errorf("writer: insert %s: %w", table, err)
	}
	return nil
}

// InsertFollowFeedEvent emits a follow FeedEvent for wallet, used when a
// GraphConnection account is observed for the first time (spec §3's
// GraphConnection entity: "insertion triggers follow feed event").
// refID identifies the connection row itself, since a follow has no
// separate activity row to link through.
func InsertFollowFeedEvent(ctx context.Context, tx pgx.Tx, wallet chainaddr.Address, refID uuid.UUID) error {
	return insertFeedEvent(ctx, tx, wallet, FeedEventFollow, refID, time.Now())
}

func feedEventJoinTable(kind FeedEventKind) string {
	switch kind {
	case FeedEventListing:
		return "listing_feed_events"
	case FeedEventOffer:
		return "offer_feed_events"
	case FeedEventPurchase:
		return "purchase_feed_events"
	case FeedEventMint:
		return "mint_feed_events"
	case FeedEventFollow:
		return "follow_feed_events"
	default:
		return ""
	}
}
