// Package dbfake is an in-memory stand-in for the tables internal/writer
// touches, implementing just enough of pgx.Tx to drive the writer and
// ingest packages' tests without a real Postgres instance. It recognizes
// the finite, static set of SQL statements this codebase issues by
// substring match and dispatches each to hand-written Go logic over
// plain maps and slices, the same way the teacher backs internal/store's
// persistence with an in-process data structure instead of mocking the
// filesystem.
package dbfake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/holaplex-labs/indexer-core/internal/writer"
)

// ErrUnrecognizedStatement is returned when a query doesn't match any
// statement shape this fake knows how to emulate. A new writer statement
// needs a matching case added here.
var ErrUnrecognizedStatement = errors.New("dbfake: unrecognized statement")

type listingRow struct {
	id           uuid.UUID
	tradeState   string
	auctionHouse string
	seller       string
	metadata     string
	price        decimal.Decimal
	tokenSize    uint64
	slot         uint64
	writeVersion uint64
	canceledAt   bool
	purchaseID   *uuid.UUID
}

type offerRow struct {
	id           uuid.UUID
	tradeState   string
	auctionHouse string
	buyer        string
	metadata     string
	price        decimal.Decimal
	tokenSize    uint64
	slot         uint64
	writeVersion uint64
	canceledAt   bool
	purchaseID   *uuid.UUID
}

type purchaseRow struct {
	id           uuid.UUID
	auctionHouse string
	buyer        string
	seller       string
	metadata     string
	price        decimal.Decimal
	tokenSize    uint64
	slot         uint64
}

type metadataRow struct {
	slot         uint64
	writeVersion uint64
	burnedAt     bool
	name, symbol, uri string
	mint         string
}

type tokenAccountRow struct {
	slot  uint64
	mint  string
	owner string
}

type ownerRow struct {
	slot  uint64
	owner string
}

type twitterRow struct {
	slot         uint64
	writeVersion uint64
	handle       string
	source       string
}

type activityRow struct {
	kind     string
	metadata string
	actors   []string
}

type feedEventRow struct {
	wallet string
	kind   string
	refID  uuid.UUID
}

// DB is the in-memory database instance every FakeTx mutates. A single DB
// shared across calls to Begin emulates writes surviving commit, the same
// way a real pool's rows persist once a transaction is applied.
type DB struct {
	mu sync.Mutex

	Listings         map[string]*listingRow
	Offers           map[string]*offerRow
	Purchases        []*purchaseRow
	Metadatas        map[string]*metadataRow
	MetadataCreators map[string]int // count of creator rows, keyed by metadata address
	Editions         map[string]struct{}
	MasterEditions   map[string]struct{}
	TokenAccounts    map[string]*tokenAccountRow
	CurrentOwners    map[string]*ownerRow
	TwitterHandles   map[string]*twitterRow

	Activities []activityRow
	FeedEvents []feedEventRow
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{
		Listings:         make(map[string]*listingRow),
		Offers:           make(map[string]*offerRow),
		Metadatas:        make(map[string]*metadataRow),
		MetadataCreators: make(map[string]int),
		Editions:         make(map[string]struct{}),
		MasterEditions:   make(map[string]struct{}),
		TokenAccounts:    make(map[string]*tokenAccountRow),
		CurrentOwners:    make(map[string]*ownerRow),
		TwitterHandles:   make(map[string]*twitterRow),
	}
}

// Begin returns a Tx bound to db. Every call shares the same underlying
// state; there is no isolation between concurrently open transactions,
// since the writer and ingest tests this fake serves never run two
// transactions concurrently against the same DB.
func (db *DB) Begin(context.Context) (pgx.Tx, error) {
	return &Tx{db: db}, nil
}

// Run adapts DB to ingest's gatewayRunner seam, running fn directly
// against a fresh Tx with no pooling, timeout, or panic recovery — those
// belong to writer.Gateway, not to the fake.
func (db *DB) Run(ctx context.Context, fn writer.TxFunc) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, tx)
}

// Tx implements pgx.Tx by dispatching on the literal SQL text the writer
// package issues. Transaction-control methods are no-ops: every Exec and
// Query below mutates db immediately, so Commit/Rollback have nothing left
// to do for this fake's purposes.
type Tx struct {
	db *DB
}

func (tx *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return tx.db.Begin(ctx) }
func (tx *Tx) Commit(context.Context) error              { return nil }
func (tx *Tx) Rollback(context.Context) error            { return nil }

func (tx *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, fmt.Errorf("dbfake: CopyFrom not supported")
}
func (tx *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("dbfake: SendBatch not supported")
}
func (tx *Tx) LargeObjects() pgx.LargeObjects { panic("dbfake: LargeObjects not supported") }
func (tx *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, fmt.Errorf("dbfake: Prepare not supported")
}
func (tx *Tx) Conn() *pgx.Conn { return nil }

func has(sql string, sub string) bool { return strings.Contains(sql, sub) }

// Exec dispatches INSERT/UPDATE/DELETE statements.
func (tx *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db := tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	switch {
	case has(sql, "INSERT INTO listings"):
		return db.insertListing(args)
	case has(sql, "UPDATE listings SET purchase_id"):
		return db.linkListingPurchase(args)
	case has(sql, "INSERT INTO offers"):
		return db.insertOffer(args)
	case has(sql, "UPDATE offers SET purchase_id"):
		return db.linkOfferPurchase(args)
	case has(sql, "INSERT INTO purchases"):
		return db.insertPurchase(args)
	case has(sql, "INSERT INTO metadatas"):
		return db.upsertMetadataRow(args)
	case has(sql, "DELETE FROM metadata_creators"):
		return db.clearCreators(args)
	case has(sql, "INSERT INTO metadata_creators"):
		return db.insertCreator(args)
	case has(sql, "INSERT INTO editions"):
		db.Editions[args[0].(string)] = struct{}{}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case has(sql, "INSERT INTO master_editions"):
		db.MasterEditions[args[0].(string)] = struct{}{}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case has(sql, "UPDATE metadatas SET burned_at"):
		return db.burnMetadata(args)
	case has(sql, "INSERT INTO token_accounts"):
		return db.upsertTokenAccount(args)
	case has(sql, "INSERT INTO current_metadata_owners"):
		return db.upsertCurrentOwner(args)
	case has(sql, "INSERT INTO twitter_handles"):
		return db.upsertTwitterHandle(args)
	case has(sql, "INSERT INTO marketplace_activities"):
		return db.insertActivity(args)
	case has(sql, "INSERT INTO feed_events"):
		return db.insertFeedEvent(args)
	case has(sql, "listing_feed_events"), has(sql, "offer_feed_events"),
		has(sql, "purchase_feed_events"), has(sql, "mint_feed_events"),
		has(sql, "follow_feed_events"):
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	default:
		return pgconn.CommandTag{}, fmt.Errorf("%w: %s", ErrUnrecognizedStatement, sql)
	}
}

// Query dispatches the two multi-row RETURNING statements (cancel
// listing/offer).
func (tx *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db := tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	switch {
	case has(sql, "UPDATE listings SET canceled_at"):
		return db.cancelListing(args)
	case has(sql, "UPDATE offers SET canceled_at"):
		return db.cancelOffer(args)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedStatement, sql)
	}
}

// QueryRow dispatches the single-row lookups: version checks before a
// conditional upsert and the purchase dedup check.
func (tx *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db := tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	switch {
	case has(sql, "SELECT slot, write_version FROM metadatas"):
		return db.selectMetadataVersion(args)
	case has(sql, "SELECT slot FROM token_accounts"):
		return db.selectTokenAccountSlot(args)
	case has(sql, "SELECT slot FROM current_metadata_owners"):
		return db.selectCurrentOwnerSlot(args)
	case has(sql, "SELECT slot, write_version FROM twitter_handles"):
		return db.selectTwitterVersion(args)
	case has(sql, "SELECT id FROM purchases"):
		return db.selectExistingPurchase(args)
	default:
		return errRow{fmt.Errorf("%w: %s", ErrUnrecognizedStatement, sql)}
	}
}

// errRow implements pgx.Row by always failing Scan, for an unrecognized
// QueryRow statement.
type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

// rows implements pgx.Rows over a fixed, pre-materialized set of records.
type rows struct {
	records [][]any
	idx     int
	err     error
}

func (r *rows) Close()                                       {}
func (r *rows) Err() error                                   { return r.err }
func (r *rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("") }
func (r *rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rows) Conn() *pgx.Conn                              { return nil }
func (r *rows) RawValues() [][]byte                          { return nil }

func (r *rows) Next() bool {
	if r.idx >= len(r.records) {
		return false
	}
	r.idx++
	return true
}

func (r *rows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.records) {
		return nil, fmt.Errorf("dbfake: Values called out of range")
	}
	return r.records[r.idx-1], nil
}

func (r *rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.records) {
		return fmt.Errorf("dbfake: Scan called before Next or after exhaustion")
	}
	return scanInto(dest, r.records[r.idx-1])
}

func scanInto(dest []any, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("dbfake: scan column count mismatch: dest=%d src=%d", len(dest), len(src))
	}
	for i, d := range dest {
		if err := assignScan(d, src[i]); err != nil {
			return fmt.Errorf("dbfake: column %d: %w", i, err)
		}
	}
	return nil
}

func assignScan(dest, src any) error {
	switch d := dest.(type) {
	case *uuid.UUID:
		v, ok := src.(uuid.UUID)
		if !ok {
			return fmt.Errorf("expected uuid.UUID, got %T", src)
		}
		*d = v
	case *string:
		v, ok := src.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", src)
		}
		*d = v
	case *decimal.Decimal:
		v, ok := src.(decimal.Decimal)
		if !ok {
			return fmt.Errorf("expected decimal.Decimal, got %T", src)
		}
		*d = v
	case *uint64:
		v, ok := src.(uint64)
		if !ok {
			return fmt.Errorf("expected uint64, got %T", src)
		}
		*d = v
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
	return nil
}
