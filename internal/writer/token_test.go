package writer

import (
	"context"
	"testing"

	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/internal/dbfake"
)

// TestUpsertTokenAccountStaleSlotIsNoOp covers seed scenario S2: a
// TokenAccount update delivered out of order (lower slot than what is
// already stored) must not overwrite ownership, since this entity's
// dominance key is slot alone.
func TestUpsertTokenAccountStaleSlotIsNoOp(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	account := addr(1)
	mint := addr(2)
	ownerA := addr(3)
	ownerB := addr(4)

	fresh := chain.TokenAccount{Mint: mint, Owner: ownerA, Amount: 1}
	if err := UpsertTokenAccount(context.Background(), tx, account, fresh, 100); err != nil {
		t.Fatalf("fresh write: %v", err)
	}
	if got := db.CurrentOwners[mint.String()].owner; got != ownerA.String() {
		t.Fatalf("owner = %q, want %q", got, ownerA.String())
	}

	stale := chain.TokenAccount{Mint: mint, Owner: ownerB, Amount: 1}
	if err := UpsertTokenAccount(context.Background(), tx, account, stale, 50); err != nil {
		t.Fatalf("stale write: %v", err)
	}
	if got := db.CurrentOwners[mint.String()].owner; got != ownerA.String() {
		t.Fatalf("owner after stale write = %q, want unchanged %q", got, ownerA.String())
	}
	if db.TokenAccounts[account.String()].slot != 100 {
		t.Fatalf("token_accounts.slot regressed to a lower slot")
	}
}

// TestUpsertTokenAccountDominatingSlotReplaces is the positive twin of S2:
// a strictly higher slot must win.
func TestUpsertTokenAccountDominatingSlotReplaces(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	account := addr(1)
	mint := addr(2)
	ownerA := addr(3)
	ownerB := addr(4)

	if err := UpsertTokenAccount(context.Background(), tx, account, chain.TokenAccount{Mint: mint, Owner: ownerA, Amount: 1}, 100); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := UpsertTokenAccount(context.Background(), tx, account, chain.TokenAccount{Mint: mint, Owner: ownerB, Amount: 1}, 200); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if got := db.CurrentOwners[mint.String()].owner; got != ownerB.String() {
		t.Fatalf("owner = %q, want %q", got, ownerB.String())
	}
}

// TestUpsertTokenAccountIgnoresNonUnitAmount covers spec §3's NFT
// convention: only amount == 1 accounts update CurrentMetadataOwner.
func TestUpsertTokenAccountIgnoresNonUnitAmount(t *testing.T) {
	db := dbfake.New()
	tx, _ := db.Begin(context.Background())
	account := addr(1)
	mint := addr(2)

	if err := UpsertTokenAccount(context.Background(), tx, account, chain.TokenAccount{Mint: mint, Owner: addr(3), Amount: 0}, 10); err != nil {
		t.Fatalf("zero-amount write: %v", err)
	}
	if _, ok := db.CurrentOwners[mint.String()]; ok {
		t.Fatal("current_metadata_owners should not be written for a non-unit amount")
	}
}
