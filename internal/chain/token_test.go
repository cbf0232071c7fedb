package chain

import (
	"testing"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

func buildTokenAccount(mint, owner chainaddr.Address, amount uint64) []byte {
	w := &borshWriter{}
	w.pubkey(mint)
	w.pubkey(owner)
	w.u64(amount)
	w.coption32(false, chainaddr.Zero) // delegate
	w.u8(1)                            // state: initialized
	w.coptionU64(false, 0)             // is_native
	w.u64(0)                           // delegated_amount
	w.coption32(false, chainaddr.Zero) // close_authority
	return w.bytes()
}

func TestDecodeTokenAccount(t *testing.T) {
	t.Parallel()
	mint := testAddr(0x10)
	owner := testAddr(0x20)
	data := buildTokenAccount(mint, owner, 1)

	if len(data) != TokenAccountLen {
		t.Fatalf("test fixture length = %d, want %d (fix the fixture, not the decoder)", len(data), TokenAccountLen)
	}

	tok, err := DecodeTokenAccount(data, testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeTokenAccount() error = %v", err)
	}
	if tok.Mint != mint {
		t.Errorf("Mint = %v, want %v", tok.Mint, mint)
	}
	if tok.Owner != owner {
		t.Errorf("Owner = %v, want %v", tok.Owner, owner)
	}
	if tok.Amount != 1 {
		t.Errorf("Amount = %d, want 1", tok.Amount)
	}
	if tok.Delegate != nil {
		t.Errorf("Delegate = %v, want nil", tok.Delegate)
	}
	if tok.State != TokenAccountInitialized {
		t.Errorf("State = %v, want Initialized", tok.State)
	}
}

func TestDecodeTokenAccountWrongLengthIsHardError(t *testing.T) {
	t.Parallel()
	_, err := DecodeTokenAccount(make([]byte, 10), testAddr(0xAA))
	if err == nil {
		t.Fatal("DecodeTokenAccount() error = nil, want length mismatch error")
	}
}

func TestDecodeTokenAccountDelegatePresent(t *testing.T) {
	t.Parallel()
	delegate := testAddr(0x30)
	w := &borshWriter{}
	w.pubkey(testAddr(0x10))
	w.pubkey(testAddr(0x20))
	w.u64(5)
	w.coption32(true, delegate)
	w.u8(1)
	w.coptionU64(false, 0)
	w.u64(5)
	w.coption32(false, chainaddr.Zero)

	tok, err := DecodeTokenAccount(w.bytes(), testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeTokenAccount() error = %v", err)
	}
	if tok.Delegate == nil || *tok.Delegate != delegate {
		t.Errorf("Delegate = %v, want %v", tok.Delegate, delegate)
	}
	if tok.DelegatedAmount != 5 {
		t.Errorf("DelegatedAmount = %d, want 5", tok.DelegatedAmount)
	}
}

func TestDecodeBurnInstruction(t *testing.T) {
	t.Parallel()
	source := testAddr(0x01)
	mint := testAddr(0x02)
	owner := testAddr(0x03)
	program := testAddr(0x04)
	accounts := []chainaddr.Address{source, mint, owner, program}

	w := &borshWriter{}
	w.u8(uint8(TokenInstructionBurn))
	w.u64(7)

	burn, ok, err := DecodeBurnInstruction(w.bytes(), accounts, testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeBurnInstruction() error = %v", err)
	}
	if !ok {
		t.Fatal("DecodeBurnInstruction() ok = false, want true")
	}
	if burn.Mint != mint {
		t.Errorf("Mint = %v, want %v (accounts[1] per S5)", burn.Mint, mint)
	}
	if burn.Amount != 7 {
		t.Errorf("Amount = %d, want 7", burn.Amount)
	}
}

func TestDecodeBurnInstructionWrongAccountCountIsPolicyDrop(t *testing.T) {
	t.Parallel()
	_, ok, err := DecodeBurnInstruction([]byte{uint8(TokenInstructionBurn)}, []chainaddr.Address{testAddr(1)}, testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeBurnInstruction() error = %v, want nil (policy drop)", err)
	}
	if ok {
		t.Error("ok = true, want false for wrong account count")
	}
}
