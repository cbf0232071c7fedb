package dbfake

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// The methods in this file assume db.mu is already held by the caller
// (Tx.Exec/Query/QueryRow), mirroring how each writer function in
// internal/writer runs its statements against a single held transaction.

func (db *DB) insertListing(args []any) (pgconn.CommandTag, error) {
	id := args[0].(uuid.UUID)
	tradeState := args[1].(string)
	auctionHouse := args[2].(string)
	seller := args[3].(string)
	metadata := args[4].(string)
	price := args[5].(decimal.Decimal)
	tokenSize := args[6].(uint64)
	slot := args[8].(uint64)
	writeVersion := args[9].(uint64)

	if _, exists := db.Listings[tradeState]; exists {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	db.Listings[tradeState] = &listingRow{
		id: id, tradeState: tradeState, auctionHouse: auctionHouse, seller: seller,
		metadata: metadata, price: price, tokenSize: tokenSize, slot: slot, writeVersion: writeVersion,
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) cancelListing(args []any) (pgx.Rows, error) {
	tradeState := args[0].(string)
	auctionHouse := args[1].(string)
	slot := args[2].(uint64)

	l, ok := db.Listings[tradeState]
	if !ok || l.auctionHouse != auctionHouse || l.canceledAt || l.purchaseID != nil {
		return &rows{}, nil
	}
	l.canceledAt = true
	l.slot = slot
	return &rows{records: [][]any{{l.id, l.metadata, l.seller, l.price}}}, nil
}

func (db *DB) linkListingPurchase(args []any) (pgconn.CommandTag, error) {
	tradeState := args[0].(string)
	purchaseID := args[1].(uuid.UUID)
	auctionHouse := args[2].(string)
	l, ok := db.Listings[tradeState]
	if !ok || l.auctionHouse != auctionHouse {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	l.purchaseID = &purchaseID
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (db *DB) insertOffer(args []any) (pgconn.CommandTag, error) {
	id := args[0].(uuid.UUID)
	tradeState := args[1].(string)
	auctionHouse := args[2].(string)
	buyer := args[3].(string)
	metadata := args[4].(string)
	price := args[5].(decimal.Decimal)
	tokenSize := args[6].(uint64)
	slot := args[8].(uint64)
	writeVersion := args[9].(uint64)

	if _, exists := db.Offers[tradeState]; exists {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	db.Offers[tradeState] = &offerRow{
		id: id, tradeState: tradeState, auctionHouse: auctionHouse, buyer: buyer,
		metadata: metadata, price: price, tokenSize: tokenSize, slot: slot, writeVersion: writeVersion,
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) cancelOffer(args []any) (pgx.Rows, error) {
	tradeState := args[0].(string)
	auctionHouse := args[1].(string)
	slot := args[2].(uint64)

	o, ok := db.Offers[tradeState]
	if !ok || o.auctionHouse != auctionHouse || o.canceledAt || o.purchaseID != nil {
		return &rows{}, nil
	}
	o.canceledAt = true
	o.slot = slot
	return &rows{records: [][]any{{o.id, o.metadata, o.buyer, o.price}}}, nil
}

func (db *DB) linkOfferPurchase(args []any) (pgconn.CommandTag, error) {
	tradeState := args[0].(string)
	purchaseID := args[1].(uuid.UUID)
	auctionHouse := args[2].(string)
	o, ok := db.Offers[tradeState]
	if !ok || o.auctionHouse != auctionHouse {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	o.purchaseID = &purchaseID
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (db *DB) selectExistingPurchase(args []any) pgx.Row {
	buyer := args[0].(string)
	seller := args[1].(string)
	auctionHouse := args[2].(string)
	metadata := args[3].(string)
	price := args[4].(decimal.Decimal)
	tokenSize := args[5].(uint64)
	slot := args[6].(uint64)

	for _, p := range db.Purchases {
		if p.buyer == buyer && p.seller == seller && p.auctionHouse == auctionHouse &&
			p.metadata == metadata && p.price.Equal(price) && p.tokenSize == tokenSize && p.slot == slot {
			return newConstRow(p.id)
		}
	}
	return errRow{pgx.ErrNoRows}
}

func (db *DB) insertPurchase(args []any) (pgconn.CommandTag, error) {
	id := args[0].(uuid.UUID)
	auctionHouse := args[1].(string)
	buyer := args[2].(string)
	seller := args[3].(string)
	metadata := args[4].(string)
	price := args[5].(decimal.Decimal)
	tokenSize := args[6].(uint64)
	slot := args[8].(uint64)

	db.Purchases = append(db.Purchases, &purchaseRow{
		id: id, auctionHouse: auctionHouse, buyer: buyer, seller: seller,
		metadata: metadata, price: price, tokenSize: tokenSize, slot: slot,
	})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) selectMetadataVersion(args []any) pgx.Row {
	address := args[0].(string)
	m, ok := db.Metadatas[address]
	if !ok {
		return errRow{pgx.ErrNoRows}
	}
	return newConstRow(m.slot, m.writeVersion)
}

func (db *DB) upsertMetadataRow(args []any) (pgconn.CommandTag, error) {
	address := args[0].(string)
	name := args[1].(string)
	symbol := args[2].(string)
	uri := args[3].(string)
	mint := args[6].(string)
	slot := args[10].(uint64)
	writeVersion := args[11].(uint64)

	existing, ok := db.Metadatas[address]
	burned := ok && existing.burnedAt
	db.Metadatas[address] = &metadataRow{
		slot: slot, writeVersion: writeVersion, burnedAt: burned,
		name: name, symbol: symbol, uri: uri, mint: mint,
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) clearCreators(args []any) (pgconn.CommandTag, error) {
	address := args[0].(string)
	db.MetadataCreators[address] = 0
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func (db *DB) insertCreator(args []any) (pgconn.CommandTag, error) {
	address := args[0].(string)
	db.MetadataCreators[address]++
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) burnMetadata(args []any) (pgconn.CommandTag, error) {
	mint := args[0].(string)
	slot := args[1].(uint64)
	for _, m := range db.Metadatas {
		if m.mint == mint && !m.burnedAt {
			m.burnedAt = true
			m.slot = slot
			return pgconn.NewCommandTag("UPDATE 1"), nil
		}
	}
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (db *DB) selectTokenAccountSlot(args []any) pgx.Row {
	address := args[0].(string)
	t, ok := db.TokenAccounts[address]
	if !ok {
		return errRow{pgx.ErrNoRows}
	}
	return newConstRow(t.slot)
}

func (db *DB) upsertTokenAccount(args []any) (pgconn.CommandTag, error) {
	address := args[0].(string)
	mint := args[1].(string)
	owner := args[2].(string)
	slot := args[4].(uint64)
	db.TokenAccounts[address] = &tokenAccountRow{slot: slot, mint: mint, owner: owner}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) selectCurrentOwnerSlot(args []any) pgx.Row {
	mint := args[0].(string)
	o, ok := db.CurrentOwners[mint]
	if !ok {
		return errRow{pgx.ErrNoRows}
	}
	return newConstRow(o.slot)
}

func (db *DB) upsertCurrentOwner(args []any) (pgconn.CommandTag, error) {
	mint := args[0].(string)
	owner := args[1].(string)
	slot := args[2].(uint64)
	db.CurrentOwners[mint] = &ownerRow{slot: slot, owner: owner}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) selectTwitterVersion(args []any) pgx.Row {
	wallet := args[0].(string)
	h, ok := db.TwitterHandles[wallet]
	if !ok {
		return errRow{pgx.ErrNoRows}
	}
	return newConstRow(h.slot, h.writeVersion)
}

func (db *DB) upsertTwitterHandle(args []any) (pgconn.CommandTag, error) {
	wallet := args[0].(string)
	handle := args[1].(string)
	source := args[2].(string)
	slot := args[3].(uint64)
	writeVersion := args[4].(uint64)
	db.TwitterHandles[wallet] = &twitterRow{slot: slot, writeVersion: writeVersion, handle: handle, source: source}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) insertActivity(args []any) (pgconn.CommandTag, error) {
	kind := args[1].(string)
	metadata := args[4].(string)
	var actors []string
	if a, ok := args[2].([]string); ok {
		actors = a
	}
	db.Activities = append(db.Activities, activityRow{kind: kind, metadata: metadata, actors: actors})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *DB) insertFeedEvent(args []any) (pgconn.CommandTag, error) {
	if len(args) < 3 {
		return pgconn.CommandTag{}, fmt.Errorf("dbfake: insert feed_event: expected at least 3 args, got %d", len(args))
	}
	wallet := args[1].(string)
	kind := args[2].(string)
	var refID uuid.UUID
	if id, ok := args[0].(uuid.UUID); ok {
		refID = id
	}
	db.FeedEvents = append(db.FeedEvents, feedEventRow{wallet: wallet, kind: kind, refID: refID})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// constRow implements pgx.Row over a fixed tuple of already-typed values.
type constRow struct {
	values []any
}

func newConstRow(values ...any) constRow { return constRow{values: values} }

func (r constRow) Scan(dest ...any) error {
	return scanInto(dest, r.values)
}
