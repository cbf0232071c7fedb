package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/internal/ingesterr"
	"github.com/holaplex-labs/indexer-core/internal/writer"
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
	"github.com/holaplex-labs/indexer-core/pkg/wire"
)

// discSell etc. are the 8-byte Anchor sighashes
// classifying auction-house and reward-center instructions, computed once
// at package init per spec §4.2's "inner level on decoder selection".
var (
	discSell          = chain.AnchorInstructionDiscriminator("sell")
	discBuy           = chain.AnchorInstructionDiscriminator("buy")
	discCancel        = chain.AnchorInstructionDiscriminator("cancel")
	discExecuteSale   = chain.AnchorInstructionDiscriminator("execute_sale")
	discCloseListing  = chain.AnchorInstructionDiscriminator("close_listing")
	discCloseOffer    = chain.AnchorInstructionDiscriminator("close_offer")
)

func instructionTag(data []byte) ([8]byte, []byte, bool) {
	if len(data) < 8 {
		return [8]byte{}, nil, false
	}
	var tag [8]byte
	copy(tag[:], data[:8])
	return tag, data[8:], true
}

// processAccountUpdate implements spec §4.4.1's outer dispatch on owner
// program, then routes to the per-program handler.
func (c *Core) processAccountUpdate(ctx context.Context, u wire.AccountUpdate) error {
	kind := c.registry.Resolve(u.Owner)
	if kind == chain.ProgramUnknown {
		return &ingesterr.PolicyDrop{Reason: "account owner is not a registered program"}
	}
	if u.IsStartup {
		if _, ignored := c.startupIgnore[u.Owner]; ignored {
			return &ingesterr.PolicyDrop{Reason: "startup-ignore set contains owner program"}
		}
	}

	switch kind {
	case chain.ProgramTokenMetadata:
		return c.applyTokenMetadataAccount(ctx, u)
	case chain.ProgramToken:
		return c.applyTokenAccount(ctx, u)
	case chain.ProgramAuctionHouse:
		return c.applyAuctionHouseAccount(ctx, u)
	case chain.ProgramRewardCenter:
		return c.applyRewardCenterAccount(ctx, u)
	case chain.ProgramGraph:
		return c.applyGraphAccount(ctx, u)
	case chain.ProgramNameService:
		return c.applyTwitterAccount(ctx, u)
	case chain.ProgramBonding:
		return c.applyBondingAccount(ctx, u)
	default:
		return &ingesterr.PolicyDrop{Reason: "no handler for resolved program kind"}
	}
}

func (c *Core) applyTokenMetadataAccount(ctx context.Context, u wire.AccountUpdate) error {
	dec, err := chain.DecodeMetadataAccount(u.Data, u.Owner)
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}
	v := writer.Version{Slot: u.Slot, WriteVersion: u.WriteVersion}

	switch dec.Kind {
	case chain.AccountMetadataKind:
		m := dec.Metadata
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return writer.UpsertMetadata(ctx, tx, u.Key, m, v)
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}

		var firstVerified *chainaddr.Address
		for _, cr := range m.Creators {
			if cr.Verified {
				addr := cr.Address
				firstVerified = &addr
				break
			}
		}
		c.dispatchFollowUp(ctx, "metadata-json", func() error {
			return c.dispatch.MetadataJSON(ctx, wire.MetadataJsonFetch{
				MetadataAddress:      u.Key,
				URI:                  m.URI,
				FirstVerifiedCreator: firstVerified,
			})
		})
		return nil

	case chain.AccountEditionKind:
		e := dec.Edition
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return writer.UpsertEdition(ctx, tx, u.Key, e, v)
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		return nil

	case chain.AccountMasterEditionKind:
		e := dec.MasterEdition
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return writer.UpsertMasterEdition(ctx, tx, u.Key, e, v)
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		return nil

	default:
		return &ingesterr.PolicyDrop{Reason: "unrecognized token-metadata account key byte"}
	}
}

func (c *Core) applyTokenAccount(ctx context.Context, u wire.AccountUpdate) error {
	t, err := chain.DecodeTokenAccount(u.Data, u.Owner)
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}
	if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return writer.UpsertTokenAccount(ctx, tx, u.Key, t, u.Slot)
	}); err != nil {
		return &ingesterr.StorageError{Cause: err}
	}
	return nil
}

func (c *Core) applyAuctionHouseAccount(ctx context.Context, u wire.AccountUpdate) error {
	h, err := chain.DecodeAuctionHouse(u.Data, u.Owner)
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}
	if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return writer.UpsertAuctionHouse(ctx, tx, u.Key, h)
	}); err != nil {
		return &ingesterr.StorageError{Cause: err}
	}
	return nil
}

func (c *Core) applyRewardCenterAccount(ctx context.Context, u wire.AccountUpdate) error {
	rc, err := chain.DecodeRewardCenter(u.Data, u.Owner)
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}
	if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return writer.UpsertRewardCenter(ctx, tx, u.Key, rc)
	}); err != nil {
		return &ingesterr.StorageError{Cause: err}
	}
	return nil
}

func (c *Core) applyBondingAccount(ctx context.Context, u wire.AccountUpdate) error {
	b, err := chain.DecodeBondingChange(u.Data, u.Owner)
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}
	if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return writer.UpsertBondingChange(ctx, tx, u.Key, b)
	}); err != nil {
		return &ingesterr.StorageError{Cause: err}
	}
	return nil
}

// applyGraphAccount upserts a GraphConnection, or disconnects it when
// to_account is the zero address (the program's convention for a torn-down
// connection). A first-time insertion emits a follow feed event, targeted
// at the followed wallet (to_account), within the same transaction (spec
// §3's GraphConnection entity).
func (c *Core) applyGraphAccount(ctx context.Context, u wire.AccountUpdate) error {
	g, err := chain.DecodeGraphConnection(u.Data, u.Owner)
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}
	err = c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if g.ToAccount.IsZero() {
			return writer.DisconnectGraphConnection(ctx, tx, u.Key)
		}
		id, inserted, err := writer.UpsertGraphConnection(ctx, tx, u.Key, g)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		return writer.InsertFollowFeedEvent(ctx, tx, g.ToAccount, id)
	})
	if err != nil {
		return &ingesterr.StorageError{Cause: err}
	}
	return nil
}

// applyTwitterAccount dispatches to the namespace or name-service decoder
// depending on which configured program address owns the account (spec §E
// Open Question 4: both sources write the same table under the same
// dominance rule).
func (c *Core) applyTwitterAccount(ctx context.Context, u wire.AccountUpdate) error {
	var h chain.TwitterHandleAccount
	var err error
	switch u.Owner {
	case c.namespaceProgram:
		h, err = chain.DecodeNamespaceTwitterHandle(u.Data, u.Owner)
	case c.nameServiceProgram:
		h, err = chain.DecodeNameServiceTwitterHandle(u.Data, u.Owner)
	default:
		return &ingesterr.PolicyDrop{Reason: "owner is neither the configured namespace nor name-service program"}
	}
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}

	v := writer.Version{Slot: u.Slot, WriteVersion: u.WriteVersion}
	if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return writer.UpsertTwitterHandle(ctx, tx, h, v)
	}); err != nil {
		return &ingesterr.StorageError{Cause: err}
	}
	return nil
}

// processInstructionNotify implements spec §4.4.1's outer dispatch for
// instructions, then the inner discriminator-based dispatch of §4.2.
func (c *Core) processInstructionNotify(ctx context.Context, n wire.InstructionNotify) error {
	kind := c.registry.Resolve(n.Program)
	switch kind {
	case chain.ProgramAuctionHouse:
		return c.applyAuctionHouseInstruction(ctx, n)
	case chain.ProgramRewardCenter:
		return c.applyRewardCenterInstruction(ctx, n)
	case chain.ProgramToken:
		return c.applyTokenInstruction(ctx, n)
	default:
		return &ingesterr.PolicyDrop{Reason: "no instruction handler for resolved program kind"}
	}
}

func priceDecimal(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports))
}

func (c *Core) applyAuctionHouseInstruction(ctx context.Context, n wire.InstructionNotify) error {
	tag, body, ok := instructionTag(n.Data)
	if !ok {
		return &ingesterr.PolicyDrop{Reason: "instruction payload too short for a discriminator"}
	}

	switch tag {
	case discSell:
		s, matched, err := chain.DecodeSellInstruction(body, n.Accounts, n.Program)
		if err != nil {
			return &ingesterr.HardDecodeError{Cause: err}
		}
		if !matched {
			return &ingesterr.PolicyDrop{Reason: "sell instruction account count mismatch"}
		}
		params := writer.ListingParams{
			TradeState:         s.SellerTradeState,
			AuctionHouse:       s.AuctionHouse,
			Seller:             s.Wallet,
			Metadata:           s.Metadata,
			MarketplaceProgram: chain.ProgramAuctionHouse.String(),
			Price:              priceDecimal(s.BuyerPrice),
			TokenSize:          s.TokenSize,
			Slot:               n.Slot,
		}
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return writer.CreateListing(ctx, tx, params, c.ignoreAH)
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		c.dispatchFollowUp(ctx, "search:listing", func() error { return c.searchUpsertListing(ctx, s.SellerTradeState, s.Metadata) })
		return nil

	case discBuy:
		b, matched, err := chain.DecodeBuyInstruction(body, n.Accounts, n.Program)
		if err != nil {
			return &ingesterr.HardDecodeError{Cause: err}
		}
		if !matched {
			return &ingesterr.PolicyDrop{Reason: "buy instruction account count mismatch"}
		}
		params := writer.OfferParams{
			TradeState:         b.BuyerTradeState,
			AuctionHouse:       b.AuctionHouse,
			Buyer:              b.Wallet,
			Metadata:           b.Metadata,
			MarketplaceProgram: chain.ProgramAuctionHouse.String(),
			Price:              priceDecimal(b.BuyerPrice),
			TokenSize:          b.TokenSize,
			Slot:               n.Slot,
		}
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return writer.CreateOffer(ctx, tx, params, c.ignoreAH)
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		c.dispatchFollowUp(ctx, "search:offer", func() error { return c.searchUpsertOffer(ctx, b.BuyerTradeState, b.Metadata) })
		return nil

	case discCancel:
		cx, matched, err := chain.DecodeCancelInstruction(body, n.Accounts, n.Program)
		if err != nil {
			return &ingesterr.HardDecodeError{Cause: err}
		}
		if !matched {
			return &ingesterr.PolicyDrop{Reason: "cancel instruction account count mismatch"}
		}
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			listingMatched, err := writer.CancelListing(ctx, tx, cx.TradeState, cx.AuctionHouse, n.Slot, c.ignoreAH)
			if err != nil {
				return err
			}
			offerMatched, err := writer.CancelOffer(ctx, tx, cx.TradeState, cx.AuctionHouse, n.Slot, c.ignoreAH)
			if err != nil {
				return err
			}
			if !listingMatched && !offerMatched {
				// The matching Sell/Buy has not landed yet (spec S3): ack-ing
				// this now would lose the cancellation forever once it does.
				// Returning an error here rolls back (nothing was written)
				// and drives the delivery into dead-letter retry instead.
				return fmt.Errorf("cancel trade_state %s matched neither a listing nor an offer", cx.TradeState)
			}
			return nil
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		return nil

	case discExecuteSale:
		e, matched, err := chain.DecodeExecuteSaleInstruction(body, n.Accounts, n.Program)
		if err != nil {
			return &ingesterr.HardDecodeError{Cause: err}
		}
		if !matched {
			return &ingesterr.PolicyDrop{Reason: "execute_sale instruction account count mismatch"}
		}
		params := writer.ExecuteSaleParams{
			SellerTradeState:   e.SellerTradeState,
			BuyerTradeState:    e.BuyerTradeState,
			AuctionHouse:       e.AuctionHouse,
			Buyer:              e.Buyer,
			Seller:             e.Seller,
			Metadata:           e.Metadata,
			MarketplaceProgram: chain.ProgramAuctionHouse.String(),
			Price:              priceDecimal(e.BuyerPrice),
			TokenSize:          e.TokenSize,
			Slot:               n.Slot,
		}
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return writer.ExecuteSale(ctx, tx, params, c.ignoreAH)
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		c.dispatchFollowUp(ctx, "search:purchase", func() error { return c.searchUpsertPurchase(ctx, e.Metadata, e.Buyer, e.Seller) })
		return nil

	default:
		return &ingesterr.PolicyDrop{Reason: "unrecognized auction-house instruction discriminator"}
	}
}

func (c *Core) applyRewardCenterInstruction(ctx context.Context, n wire.InstructionNotify) error {
	tag, _, ok := instructionTag(n.Data)
	if !ok {
		return &ingesterr.PolicyDrop{Reason: "instruction payload too short for a discriminator"}
	}

	switch tag {
	case discCloseListing:
		cl, matched := chain.DecodeCloseListingInstruction(n.Accounts)
		if !matched {
			return &ingesterr.PolicyDrop{Reason: "close_listing instruction account count mismatch"}
		}
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			matched, err := writer.CancelListing(ctx, tx, cl.TradeState, cl.AuctionHouse, n.Slot, c.ignoreAH)
			if err != nil {
				return err
			}
			if !matched {
				return fmt.Errorf("close_listing trade_state %s matched no listing", cl.TradeState)
			}
			return nil
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		return nil

	case discCloseOffer:
		co, matched := chain.DecodeCloseOfferInstruction(n.Accounts)
		if !matched {
			return &ingesterr.PolicyDrop{Reason: "close_offer instruction account count mismatch"}
		}
		if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
			matched, err := writer.CancelOffer(ctx, tx, co.TradeState, co.AuctionHouse, n.Slot, c.ignoreAH)
			if err != nil {
				return err
			}
			if !matched {
				return fmt.Errorf("close_offer trade_state %s matched no offer", co.TradeState)
			}
			return nil
		}); err != nil {
			return &ingesterr.StorageError{Cause: err}
		}
		return nil

	default:
		return &ingesterr.PolicyDrop{Reason: "unrecognized reward-center instruction discriminator"}
	}
}

// applyTokenInstruction handles the token program's native burn
// instruction (spec §4.4.5). Its tag is a single byte, not an Anchor
// sighash, so DecodeBurnInstruction reads n.Data directly.
func (c *Core) applyTokenInstruction(ctx context.Context, n wire.InstructionNotify) error {
	b, matched, err := chain.DecodeBurnInstruction(n.Data, n.Accounts, n.Program)
	if err != nil {
		return &ingesterr.HardDecodeError{Cause: err}
	}
	if !matched {
		return &ingesterr.PolicyDrop{Reason: "not a recognized burn instruction"}
	}
	if err := c.gateway.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return writer.BurnMetadata(ctx, tx, b.Mint, n.Slot)
	}); err != nil {
		return &ingesterr.StorageError{Cause: err}
	}
	return nil
}

// searchUpsertListing, searchUpsertOffer, and searchUpsertPurchase build the
// small denormalized documents the search queue forwards to Meilisearch
// (spec §4.4.6, grounded on original_source's
// crates/core/src/meilisearch.rs). Listing and offer documents are keyed
// by their trade-state address and carry only the metadata address;
// purchase documents are keyed by the metadata address and carry the
// metadata, buyer and seller addresses.
func (c *Core) searchUpsertListing(ctx context.Context, tradeState, metadata chainaddr.Address) error {
	return c.searchUpsert(ctx, "listings", tradeState, map[string]any{"metadata": metadata.String()})
}

func (c *Core) searchUpsertOffer(ctx context.Context, tradeState, metadata chainaddr.Address) error {
	return c.searchUpsert(ctx, "offers", tradeState, map[string]any{"metadata": metadata.String()})
}

func (c *Core) searchUpsertPurchase(ctx context.Context, metadata, buyer, seller chainaddr.Address) error {
	return c.searchUpsert(ctx, "purchases", metadata, map[string]any{
		"metadata": metadata.String(),
		"buyer":    buyer.String(),
		"seller":   seller.String(),
	})
}

func (c *Core) searchUpsert(ctx context.Context, index string, id chainaddr.Address, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("ingest: marshal %s search document: %w", index, err)
	}
	return c.dispatch.Search(ctx, wire.SearchUpsert{
		Index:    index,
		Document: wire.SearchDocument{ID: id.String(), Body: body},
	})
}
