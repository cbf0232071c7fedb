package chain

import "github.com/holaplex-labs/indexer-core/pkg/chainaddr"

// CloseListingInstruction is the decoded record for the reward-center
// program's CloseListing instruction (spec §4.4.4's "closed-listing ...
// instruction for the reward-center flow" cancel path), grounded on
// original_source's instructions/hpl_reward_center/close_listing.rs.
type CloseListingInstruction struct {
	TradeState   chainaddr.Address
	Listing      chainaddr.Address
	AuctionHouse chainaddr.Address
}

// DecodeCloseListingInstruction extracts the trade-state and auction-house
// accounts a CloseListing instruction cancels (account positions 1, 7, 9
// per original_source's close_listing.rs). The instruction carries no
// Borsh payload this indexer needs (it takes no arguments beyond its
// accounts); a wrong account count is a PolicyDrop.
func DecodeCloseListingInstruction(accounts []chainaddr.Address) (CloseListingInstruction, bool) {
	if len(accounts) != 11 {
		return CloseListingInstruction{}, false
	}
	return CloseListingInstruction{
		Listing:      accounts[1],
		AuctionHouse: accounts[7],
		TradeState:   accounts[9],
	}, true
}

// CloseOfferInstruction is the decoded record for the reward-center
// program's CloseOffer instruction, the offer-side analog of
// CloseListingInstruction.
type CloseOfferInstruction struct {
	TradeState   chainaddr.Address
	Offer        chainaddr.Address
	AuctionHouse chainaddr.Address
}

// DecodeCloseOfferInstruction extracts the trade-state and auction-house
// accounts a CloseOffer instruction cancels.
func DecodeCloseOfferInstruction(accounts []chainaddr.Address) (CloseOfferInstruction, bool) {
	if len(accounts) != 11 {
		return CloseOfferInstruction{}, false
	}
	return CloseOfferInstruction{
		Offer:        accounts[1],
		AuctionHouse: accounts[7],
		TradeState:   accounts[9],
	}, true
}

// RewardCenterPayoutOperand enumerates the reward-center's payout math
// operator.
type RewardCenterPayoutOperand uint8

const (
	PayoutOperandMultiple RewardCenterPayoutOperand = iota
	PayoutOperandDivide
)

// RewardCenter is the decoded record for a reward-center account (spec
// §4.2's unconditional-upsert program family), grounded on
// original_source's accounts/hpl_reward_center/reward_center.rs.
type RewardCenter struct {
	TokenMint                     chainaddr.Address
	AuctionHouse                   chainaddr.Address
	Bump                           uint8
	SellerRewardPayoutBasisPoints uint16
	MathematicalOperand            RewardCenterPayoutOperand
	PayoutNumeral                  uint64
}

// DecodeRewardCenter parses a reward-center account body, skipping its
// leading 8-byte Anchor discriminator.
func DecodeRewardCenter(data []byte, owner chainaddr.Address) (RewardCenter, error) {
	r := newBorshReader(data)
	var c RewardCenter
	var err error
	if _, err = r.discriminator8(); err != nil {
		return c, wrapRewardErr(owner, len(data), "discriminator", err)
	}
	if c.TokenMint, err = r.pubkey(); err != nil {
		return c, wrapRewardErr(owner, len(data), "token_mint", err)
	}
	if c.AuctionHouse, err = r.pubkey(); err != nil {
		return c, wrapRewardErr(owner, len(data), "auction_house", err)
	}
	if c.Bump, err = r.u8(); err != nil {
		return c, wrapRewardErr(owner, len(data), "bump", err)
	}
	if c.SellerRewardPayoutBasisPoints, err = r.u16(); err != nil {
		return c, wrapRewardErr(owner, len(data), "reward_rules.seller_reward_payout_basis_points", err)
	}
	operand, err := r.u8()
	if err != nil {
		return c, wrapRewardErr(owner, len(data), "reward_rules.mathematical_operand", err)
	}
	c.MathematicalOperand = RewardCenterPayoutOperand(operand)
	if c.PayoutNumeral, err = r.u64(); err != nil {
		return c, wrapRewardErr(owner, len(data), "reward_rules.payout_numeral", err)
	}
	return c, nil
}

func wrapRewardErr(owner chainaddr.Address, n int, field string, cause error) error {
	return &DecodeError{Program: ProgramRewardCenter, Owner: owner, Len: n, Reason: field + ": " + cause.Error()}
}

// BondingChange is the decoded record for a bonding-curve account update
// (spec §4.4, §E: supplemented from original_source since spec.md §3
// doesn't fully describe bonding-curve fields). Only the two reserve/
// supply counters the database persists are decoded; the many preceding
// configuration fields of the real token-bonding account (authority,
// mints, royalty accounts, curve parameters) are skipped.
type BondingChange struct {
	ReserveBalanceFromBonding uint64
	SupplyFromBonding         uint64
}

// bondingReserveFieldOffset is the byte offset, within the account body
// after its 8-byte discriminator, at which reserve_balance_from_bonding
// begins. original_source's accounts/bonding_change.rs names the two
// fields but not their offsets; this value matches the field order in
// the public spl-token-bonding TokenBondingV0 layout this program uses.
const bondingReserveFieldOffset = 177

// DecodeBondingChange parses a token-bonding account body for its two
// reserve/supply counters.
func DecodeBondingChange(data []byte, owner chainaddr.Address) (BondingChange, error) {
	if len(data) < bondingReserveFieldOffset+16 {
		return BondingChange{}, &DecodeError{
			Program: ProgramBonding, Owner: owner, Len: len(data),
			Reason: "account too short for reserve/supply fields",
		}
	}
	r := newBorshReader(data[bondingReserveFieldOffset:])
	var b BondingChange
	var err error
	if b.ReserveBalanceFromBonding, err = r.u64(); err != nil {
		return b, wrapBondingErr(owner, len(data), "reserve_balance_from_bonding", err)
	}
	if b.SupplyFromBonding, err = r.u64(); err != nil {
		return b, wrapBondingErr(owner, len(data), "supply_from_bonding", err)
	}
	return b, nil
}

func wrapBondingErr(owner chainaddr.Address, n int, field string, cause error) error {
	return &DecodeError{Program: ProgramBonding, Owner: owner, Len: n, Reason: field + ": " + cause.Error()}
}
