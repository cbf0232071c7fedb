package chain

import (
	"testing"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

func TestDecodeSellInstruction(t *testing.T) {
	t.Parallel()
	accounts := make([]chainaddr.Address, 12)
	for i := range accounts {
		accounts[i] = testAddr(byte(i + 1))
	}

	w := &borshWriter{}
	w.u8(1)           // trade_state_bump
	w.u8(2)           // free_trade_state_bump
	w.u8(3)           // program_as_signer_bump
	w.u64(1_000_000)  // buyer_price
	w.u64(1)          // token_size

	sell, ok, err := DecodeSellInstruction(w.bytes(), accounts, testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeSellInstruction() error = %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if sell.Wallet != accounts[0] {
		t.Errorf("Wallet = %v, want accounts[0]", sell.Wallet)
	}
	if sell.SellerTradeState != accounts[6] {
		t.Errorf("SellerTradeState = %v, want accounts[6]", sell.SellerTradeState)
	}
	if sell.ProgramAsSigner != accounts[10] {
		t.Errorf("ProgramAsSigner = %v, want accounts[10]", sell.ProgramAsSigner)
	}
	if sell.BuyerPrice != 1_000_000 {
		t.Errorf("BuyerPrice = %d, want 1000000", sell.BuyerPrice)
	}
}

func TestDecodeSellInstructionWrongAccountCount(t *testing.T) {
	t.Parallel()
	_, ok, err := DecodeSellInstruction(nil, []chainaddr.Address{testAddr(1)}, testAddr(0xAA))
	if err != nil {
		t.Fatalf("error = %v, want nil (policy drop)", err)
	}
	if ok {
		t.Error("ok = true, want false")
	}
}

func TestDecodeCancelInstructionMatchesSellTradeState(t *testing.T) {
	t.Parallel()
	accounts := make([]chainaddr.Address, 8)
	for i := range accounts {
		accounts[i] = testAddr(byte(i + 1))
	}
	w := &borshWriter{}
	w.u64(1_000_000)
	w.u64(1)

	cancel, ok, err := DecodeCancelInstruction(w.bytes(), accounts, testAddr(0xAA))
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if cancel.TradeState != accounts[6] {
		t.Errorf("TradeState = %v, want accounts[6]", cancel.TradeState)
	}
}

func TestDecodeAuctionHouseAccount(t *testing.T) {
	t.Parallel()
	w := &borshWriter{}
	w.buf.Write(make([]byte, 8)) // discriminator
	fee := testAddr(1)
	treasury := testAddr(2)
	treasuryDest := testAddr(3)
	feeDest := testAddr(4)
	treasuryMint := testAddr(5)
	authority := testAddr(6)
	creator := testAddr(7)
	w.pubkey(fee)
	w.pubkey(treasury)
	w.pubkey(treasuryDest)
	w.pubkey(feeDest)
	w.pubkey(treasuryMint)
	w.pubkey(authority)
	w.pubkey(creator)
	w.u8(1)
	w.u8(2)
	w.u8(3)
	w.u16(200)
	w.boolean(true)
	w.boolean(false)

	house, err := DecodeAuctionHouse(w.bytes(), testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeAuctionHouse() error = %v", err)
	}
	if house.FeeAccount != fee || house.Creator != creator || house.Authority != authority {
		t.Errorf("decoded house = %+v", house)
	}
	if house.SellerFeeBasisPoints != 200 {
		t.Errorf("SellerFeeBasisPoints = %d, want 200", house.SellerFeeBasisPoints)
	}
	if !house.RequiresSignOff || house.CanChangeSalePrice {
		t.Errorf("RequiresSignOff/CanChangeSalePrice = %v/%v, want true/false", house.RequiresSignOff, house.CanChangeSalePrice)
	}
}
