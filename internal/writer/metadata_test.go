package writer

import (
	"context"
	"testing"

	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/internal/dbfake"
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

func addr(b byte) chainaddr.Address {
	var a chainaddr.Address
	a[0] = b
	return a
}

// TestUpsertMetadataWritesOnFirstObservation covers seed scenario S1: a
// Metadata account observed for the first time is written unconditionally.
func TestUpsertMetadataWritesOnFirstObservation(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())

	address := addr(1)
	m := chain.Metadata{Mint: addr(2), Name: "Foo", Symbol: "FOO", URI: "ipfs://x"}
	v := Version{Slot: 10, WriteVersion: 0}

	if err := UpsertMetadata(context.Background(), tx, address, m, v); err != nil {
		t.Fatalf("UpsertMetadata: %v", err)
	}
	stored, ok := db.Metadatas[address.String()]
	if !ok {
		t.Fatal("metadata row was not written")
	}
	if stored.slot != 10 || stored.writeVersion != 0 {
		t.Fatalf("stored version = (%d,%d), want (10,0)", stored.slot, stored.writeVersion)
	}
}

// TestUpsertMetadataDominatingWriteReplaces covers testable property 1
// (spec §8): a later (slot, write_version) tuple overwrites an earlier one.
func TestUpsertMetadataDominatingWriteReplaces(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	address := addr(1)

	first := chain.Metadata{Mint: addr(2), Name: "Old"}
	if err := UpsertMetadata(context.Background(), tx, address, first, Version{Slot: 10}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := chain.Metadata{Mint: addr(2), Name: "New"}
	if err := UpsertMetadata(context.Background(), tx, address, second, Version{Slot: 20}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got := db.Metadatas[address.String()].name; got != "New" {
		t.Fatalf("name = %q, want %q (dominating write should replace)", got, "New")
	}
}

// TestUpsertMetadataStaleWriteIsNoOp covers testable property 2
// (idempotence/ordering): a tuple that does not dominate the stored one
// must not mutate state.
func TestUpsertMetadataStaleWriteIsNoOp(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	address := addr(1)

	if err := UpsertMetadata(context.Background(), tx, address, chain.Metadata{Name: "New"}, Version{Slot: 20}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := UpsertMetadata(context.Background(), tx, address, chain.Metadata{Name: "Stale"}, Version{Slot: 10}); err != nil {
		t.Fatalf("stale upsert: %v", err)
	}

	if got := db.Metadatas[address.String()].name; got != "New" {
		t.Fatalf("name = %q, want %q (stale write must be a no-op)", got, "New")
	}
}

// TestUpsertMetadataReplacesCreators covers spec §3's "Replaced on every
// Metadata rewrite" rule for MetadataCreator rows.
func TestUpsertMetadataReplacesCreators(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	address := addr(1)

	threeCreators := chain.Metadata{Creators: []chain.Creator{
		{Address: addr(10), Share: 50, Verified: true},
		{Address: addr(11), Share: 30},
		{Address: addr(12), Share: 20},
	}}
	if err := UpsertMetadata(context.Background(), tx, address, threeCreators, Version{Slot: 1}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if got := db.MetadataCreators[address.String()]; got != 3 {
		t.Fatalf("creator count = %d, want 3", got)
	}

	oneCreator := chain.Metadata{Creators: []chain.Creator{{Address: addr(20), Share: 100}}}
	if err := UpsertMetadata(context.Background(), tx, address, oneCreator, Version{Slot: 2}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if got := db.MetadataCreators[address.String()]; got != 1 {
		t.Fatalf("creator count after replace = %d, want 1", got)
	}
}

// TestBurnMetadataSetsAndNeverClears covers seed scenario S5 and testable
// property 4 (spec §8): burned_at transitions from null to set exactly
// once and is never cleared by a later burn delivery.
func TestBurnMetadataSetsAndNeverClears(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	mint := addr(2)
	address := addr(1)

	if err := UpsertMetadata(context.Background(), tx, address, chain.Metadata{Mint: mint}, Version{Slot: 1}); err != nil {
		t.Fatalf("upsert metadata: %v", err)
	}
	if db.Metadatas[address.String()].burnedAt {
		t.Fatal("burned_at should start unset")
	}

	if err := BurnMetadata(context.Background(), tx, mint, 5); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if !db.Metadatas[address.String()].burnedAt {
		t.Fatal("burned_at should be set after burn")
	}

	// A replayed burn delivery (or any later one) must not error and must
	// not clear the flag.
	if err := BurnMetadata(context.Background(), tx, mint, 6); err != nil {
		t.Fatalf("replayed burn: %v", err)
	}
	if !db.Metadatas[address.String()].burnedAt {
		t.Fatal("burned_at must never be cleared once set")
	}
}
