package chain

import (
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// AuctionHouse is the decoded record for an AuctionHouse account (spec
// §3's AuctionHouse entity), an Anchor account prefixed by an 8-byte
// discriminator.
type AuctionHouse struct {
	FeeAccount                chainaddr.Address
	Treasury                  chainaddr.Address
	TreasuryWithdrawDest      chainaddr.Address
	FeeWithdrawDest           chainaddr.Address
	TreasuryMint              chainaddr.Address
	Authority                 chainaddr.Address
	Creator                   chainaddr.Address
	Bump                      uint8
	TreasuryBump              uint8
	FeePayerBump              uint8
	SellerFeeBasisPoints      uint16
	RequiresSignOff           bool
	CanChangeSalePrice        bool
}

// DecodeAuctionHouse parses an AuctionHouse account body, skipping the
// leading 8-byte Anchor discriminator (grounded on mpl_auction_house's
// AuctionHouse struct field order, as referenced by original_source's
// sell.rs/buy.rs/cancel.rs handlers).
func DecodeAuctionHouse(data []byte, owner chainaddr.Address) (AuctionHouse, error) {
	r := newBorshReader(data)
	var h AuctionHouse
	var err error

	if _, err = r.discriminator8(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "discriminator", err)
	}
	if h.FeeAccount, err = r.pubkey(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "auction_house_fee_account", err)
	}
	if h.Treasury, err = r.pubkey(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "auction_house_treasury", err)
	}
	if h.TreasuryWithdrawDest, err = r.pubkey(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "treasury_withdrawal_destination", err)
	}
	if h.FeeWithdrawDest, err = r.pubkey(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "fee_withdrawal_destination", err)
	}
	if h.TreasuryMint, err = r.pubkey(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "treasury_mint", err)
	}
	if h.Authority, err = r.pubkey(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "authority", err)
	}
	if h.Creator, err = r.pubkey(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "creator", err)
	}
	if h.Bump, err = r.u8(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "bump", err)
	}
	if h.TreasuryBump, err = r.u8(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "treasury_bump", err)
	}
	if h.FeePayerBump, err = r.u8(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "fee_payer_bump", err)
	}
	if h.SellerFeeBasisPoints, err = r.u16(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "seller_fee_basis_points", err)
	}
	if h.RequiresSignOff, err = r.boolean(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "requires_sign_off", err)
	}
	if h.CanChangeSalePrice, err = r.boolean(); err != nil {
		return h, wrapAuctionErr(owner, len(data), "can_change_sale_price", err)
	}
	return h, nil
}

func wrapAuctionErr(owner chainaddr.Address, n int, field string, cause error) error {
	return &DecodeError{Program: ProgramAuctionHouse, Owner: owner, Len: n, Reason: field + ": " + cause.Error()}
}

// SellInstruction is the decoded record for an auction-house Sell
// instruction (spec §3's Listing entity, first observation). Accounts
// follow mpl_auction_house::instruction::Sell's 12-account layout, per
// original_source's instructions/sell.rs.
type SellInstruction struct {
	Wallet                chainaddr.Address
	TokenAccount           chainaddr.Address
	Metadata               chainaddr.Address
	Authority              chainaddr.Address
	AuctionHouse           chainaddr.Address
	AuctionHouseFeeAccount chainaddr.Address
	SellerTradeState       chainaddr.Address
	FreeSellerTradeState   chainaddr.Address
	ProgramAsSigner        chainaddr.Address
	TradeStateBump         uint8
	FreeTradeStateBump     uint8
	ProgramAsSignerBump    uint8
	BuyerPrice             uint64
	TokenSize              uint64
}

// DecodeSellInstruction parses a Sell instruction. Spec §4.2: a wrong
// account count for a known instruction is a PolicyDrop (mirrors
// original_source's `if accounts.len() != 12 { debug!(...); return Ok(()) }`),
// not a HardDecodeError.
func DecodeSellInstruction(data []byte, accounts []chainaddr.Address, owner chainaddr.Address) (SellInstruction, bool, error) {
	if len(accounts) != 12 {
		return SellInstruction{}, false, nil
	}
	r := newBorshReader(data)
	var s SellInstruction
	var err error
	if s.TradeStateBump, err = r.u8(); err != nil {
		return s, false, wrapAuctionErr(owner, len(data), "sell.trade_state_bump", err)
	}
	if s.FreeTradeStateBump, err = r.u8(); err != nil {
		return s, false, wrapAuctionErr(owner, len(data), "sell.free_trade_state_bump", err)
	}
	if s.ProgramAsSignerBump, err = r.u8(); err != nil {
		return s, false, wrapAuctionErr(owner, len(data), "sell.program_as_signer_bump", err)
	}
	if s.BuyerPrice, err = r.u64(); err != nil {
		return s, false, wrapAuctionErr(owner, len(data), "sell.buyer_price", err)
	}
	if s.TokenSize, err = r.u64(); err != nil {
		return s, false, wrapAuctionErr(owner, len(data), "sell.token_size", err)
	}

	s.Wallet = accounts[0]
	s.TokenAccount = accounts[1]
	s.Metadata = accounts[2]
	s.Authority = accounts[3]
	s.AuctionHouse = accounts[4]
	s.AuctionHouseFeeAccount = accounts[5]
	s.SellerTradeState = accounts[6]
	s.FreeSellerTradeState = accounts[7]
	s.ProgramAsSigner = accounts[10]
	return s, true, nil
}

// BuyInstruction is the decoded record for an auction-house Buy
// instruction (spec §3's Offer entity, first observation). Accounts
// follow the 14-account layout in original_source's instructions/buy.rs.
type BuyInstruction struct {
	Wallet                 chainaddr.Address
	PaymentAccount          chainaddr.Address
	TransferAuthority       chainaddr.Address
	TreasuryMint            chainaddr.Address
	TokenAccount            chainaddr.Address
	Metadata                chainaddr.Address
	EscrowPaymentAccount    chainaddr.Address
	Authority               chainaddr.Address
	AuctionHouse            chainaddr.Address
	AuctionHouseFeeAccount  chainaddr.Address
	BuyerTradeState         chainaddr.Address
	TradeStateBump          uint8
	EscrowPaymentBump       uint8
	BuyerPrice              uint64
	TokenSize               uint64
}

// DecodeBuyInstruction parses a Buy instruction.
func DecodeBuyInstruction(data []byte, accounts []chainaddr.Address, owner chainaddr.Address) (BuyInstruction, bool, error) {
	if len(accounts) != 14 {
		return BuyInstruction{}, false, nil
	}
	r := newBorshReader(data)
	var b BuyInstruction
	var err error
	if b.TradeStateBump, err = r.u8(); err != nil {
		return b, false, wrapAuctionErr(owner, len(data), "buy.trade_state_bump", err)
	}
	if b.EscrowPaymentBump, err = r.u8(); err != nil {
		return b, false, wrapAuctionErr(owner, len(data), "buy.escrow_payment_bump", err)
	}
	if b.BuyerPrice, err = r.u64(); err != nil {
		return b, false, wrapAuctionErr(owner, len(data), "buy.buyer_price", err)
	}
	if b.TokenSize, err = r.u64(); err != nil {
		return b, false, wrapAuctionErr(owner, len(data), "buy.token_size", err)
	}

	b.Wallet = accounts[0]
	b.PaymentAccount = accounts[1]
	b.TransferAuthority = accounts[2]
	b.TreasuryMint = accounts[3]
	b.TokenAccount = accounts[4]
	b.Metadata = accounts[5]
	b.EscrowPaymentAccount = accounts[6]
	b.Authority = accounts[7]
	b.AuctionHouse = accounts[8]
	b.AuctionHouseFeeAccount = accounts[9]
	b.BuyerTradeState = accounts[10]
	return b, true, nil
}

// CancelInstruction is the decoded record for an auction-house Cancel
// instruction. Accounts follow the 8-account layout in original_source's
// instructions/cancel.rs.
type CancelInstruction struct {
	Wallet                 chainaddr.Address
	TokenAccount           chainaddr.Address
	TokenMint              chainaddr.Address
	Authority              chainaddr.Address
	AuctionHouse           chainaddr.Address
	AuctionHouseFeeAccount chainaddr.Address
	TradeState             chainaddr.Address
	BuyerPrice             uint64
	TokenSize              uint64
}

// DecodeCancelInstruction parses a Cancel instruction.
func DecodeCancelInstruction(data []byte, accounts []chainaddr.Address, owner chainaddr.Address) (CancelInstruction, bool, error) {
	if len(accounts) != 8 {
		return CancelInstruction{}, false, nil
	}
	r := newBorshReader(data)
	var c CancelInstruction
	var err error
	if c.BuyerPrice, err = r.u64(); err != nil {
		return c, false, wrapAuctionErr(owner, len(data), "cancel.buyer_price", err)
	}
	if c.TokenSize, err = r.u64(); err != nil {
		return c, false, wrapAuctionErr(owner, len(data), "cancel.token_size", err)
	}

	c.Wallet = accounts[0]
	c.TokenAccount = accounts[1]
	c.TokenMint = accounts[2]
	c.Authority = accounts[3]
	c.AuctionHouse = accounts[4]
	c.AuctionHouseFeeAccount = accounts[5]
	c.TradeState = accounts[6]
	return c, true, nil
}

// ExecuteSaleInstruction is the decoded record for an auction-house
// ExecuteSale instruction (spec §3's Purchase entity and S4's seed
// scenario). Account positions mirror Sell/Buy's trade-state accounts
// plus the shared auction-house/metadata accounts.
type ExecuteSaleInstruction struct {
	Buyer           chainaddr.Address
	Seller          chainaddr.Address
	Metadata        chainaddr.Address
	AuctionHouse    chainaddr.Address
	SellerTradeState chainaddr.Address
	BuyerTradeState  chainaddr.Address
	BuyerPrice      uint64
	TokenSize       uint64
}

// DecodeExecuteSaleInstruction parses an ExecuteSale instruction. The
// 22-account layout of mpl_auction_house's ExecuteSale places buyer,
// seller, metadata and both trade-state accounts at the positions below;
// a different count is a PolicyDrop.
func DecodeExecuteSaleInstruction(data []byte, accounts []chainaddr.Address, owner chainaddr.Address) (ExecuteSaleInstruction, bool, error) {
	if len(accounts) != 22 {
		return ExecuteSaleInstruction{}, false, nil
	}
	r := newBorshReader(data)
	var e ExecuteSaleInstruction
	var err error
	// escrow_payment_bump, free_trade_state_bump, program_as_signer_bump
	for _, field := range []string{"escrow_payment_bump", "free_trade_state_bump", "program_as_signer_bump"} {
		if _, err = r.u8(); err != nil {
			return e, false, wrapAuctionErr(owner, len(data), "execute_sale."+field, err)
		}
	}
	if e.BuyerPrice, err = r.u64(); err != nil {
		return e, false, wrapAuctionErr(owner, len(data), "execute_sale.buyer_price", err)
	}
	if e.TokenSize, err = r.u64(); err != nil {
		return e, false, wrapAuctionErr(owner, len(data), "execute_sale.token_size", err)
	}

	e.Buyer = accounts[0]
	e.Seller = accounts[1]
	e.Metadata = accounts[5]
	e.AuctionHouse = accounts[9]
	e.SellerTradeState = accounts[13]
	e.BuyerTradeState = accounts[12]
	return e, true, nil
}
