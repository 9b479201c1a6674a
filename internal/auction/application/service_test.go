package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deedhouse/deedhouse/internal/auction/domain"
	auctionmem "github.com/deedhouse/deedhouse/internal/auction/infra/repository/memory"
	paymentsapp "github.com/deedhouse/deedhouse/internal/payments/application"
	paymentsmem "github.com/deedhouse/deedhouse/internal/payments/infra/repository/memory"
	registryapp "github.com/deedhouse/deedhouse/internal/registry/application"
	registrymem "github.com/deedhouse/deedhouse/internal/registry/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerID    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	bidder1    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	bidder2    = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	strangerID = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	testStart  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// flakyTreasury fails disbursements to chosen recipients, simulating an
// untrusted party rejecting an inbound value transfer.
type flakyTreasury struct {
	inner  domain.Treasury
	failTo map[uuid.UUID]bool
}

func (t *flakyTreasury) Collect(ctx context.Context, from uuid.UUID, amount int64) error {
	return t.inner.Collect(ctx, from, amount)
}

func (t *flakyTreasury) Disburse(ctx context.Context, to uuid.UUID, amount int64) error {
	if t.failTo[to] {
		return errors.New("recipient rejected transfer")
	}
	return t.inner.Disburse(ctx, to, amount)
}

func (t *flakyTreasury) Strand(ctx context.Context, to uuid.UUID, amount int64) error {
	return t.inner.Strand(ctx, to, amount)
}

// flakyRegistry fails custody transfers on demand.
type flakyRegistry struct {
	inner        domain.DeedRegistry
	failTransfer bool
}

func (r *flakyRegistry) OwnerOf(ctx context.Context, id int64) (uuid.UUID, error) {
	return r.inner.OwnerOf(ctx, id)
}

func (r *flakyRegistry) Transfer(ctx context.Context, caller, from, to uuid.UUID, id int64) error {
	if r.failTransfer {
		return errors.New("registry rejected transfer")
	}
	return r.inner.Transfer(ctx, caller, from, to, id)
}

type harness struct {
	t        *testing.T
	svc      AuctionService
	registry registryapp.RegistryService
	reg      *flakyRegistry
	treasury *flakyTreasury
	escrow   *paymentsapp.EngineTreasury
	ledger   paymentsapp.Ledger
	engineID uuid.UUID
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	engineID := uuid.MustParse("99999999-9999-9999-9999-999999999999")
	ledger := paymentsapp.NewLedger(paymentsmem.NewAccountRepository())
	escrow := paymentsapp.NewEngineTreasury(ledger, paymentsmem.NewClaimRepository(), engineID)
	treasury := &flakyTreasury{
		inner:  escrow,
		failTo: map[uuid.UUID]bool{},
	}
	registry := registryapp.NewRegistryService(registrymem.NewDeedRepository(), nil)
	reg := &flakyRegistry{inner: registry}

	clock := &fakeClock{now: testStart}
	svc := NewAuctionService(EngineDeps{
		Auctions: auctionmem.NewAuctionRepository(),
		Registry: reg,
		Treasury: treasury,
		EngineID: engineID,
	})
	svc = WithClock(svc, clock.Now)

	return &harness{
		t:        t,
		svc:      svc,
		registry: registry,
		reg:      reg,
		treasury: treasury,
		escrow:   escrow,
		ledger:   ledger,
		engineID: engineID,
		clock:    clock,
	}
}

// escrowDeed registers a deed for owner and hands custody to the engine,
// the required setup before createAuction.
func (h *harness) escrowDeed(owner uuid.UUID, deedID int64) {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.registry.Register(ctx, owner, deedID, "ipfs://deed"))
	require.NoError(h.t, h.registry.Transfer(ctx, owner, owner, h.engineID, deedID))
}

func (h *harness) createAuction(owner uuid.UUID, deedID int64, price int64, offset time.Duration) uint64 {
	h.t.Helper()
	id, err := h.svc.CreateAuction(context.Background(), CreateAuctionDTO{
		Caller:         owner,
		Name:           "estate sale",
		DeadlineOffset: offset,
		StartPrice:     price,
		URI:            "ipfs://auction",
		DeedID:         deedID,
	})
	require.NoError(h.t, err)
	return id
}

func (h *harness) fund(account uuid.UUID, amount int64) {
	h.t.Helper()
	require.NoError(h.t, h.ledger.Deposit(context.Background(), account, amount))
}

func (h *harness) balance(account uuid.UUID) int64 {
	h.t.Helper()
	balance, err := h.ledger.BalanceOf(context.Background(), account)
	require.NoError(h.t, err)
	return balance
}

func (h *harness) holderOf(deedID int64) uuid.UUID {
	h.t.Helper()
	holder, err := h.registry.OwnerOf(context.Background(), deedID)
	require.NoError(h.t, err)
	return holder
}

func (h *harness) bid(auctionID uint64, bidder uuid.UUID, amount int64) error {
	_, err := h.svc.PlaceBid(context.Background(), PlaceBidDTO{
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
	})
	return err
}

func TestCreateAuctionPreconditionOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Custody is checked before field validation: with the deed still in
	// the owner's hands even an invalid request reports the custody error.
	require.NoError(t, h.registry.Register(ctx, ownerID, 7, "ipfs://deed"))
	_, err := h.svc.CreateAuction(ctx, CreateAuctionDTO{Caller: ownerID, DeedID: 7})
	assert.ErrorIs(t, err, domain.ErrDeedNotInCustody)

	require.NoError(t, h.registry.Transfer(ctx, ownerID, ownerID, h.engineID, 7))

	cases := []struct {
		name string
		cmd  CreateAuctionDTO
		want error
	}{
		{"empty name", CreateAuctionDTO{Caller: ownerID, DeedID: 7, DeadlineOffset: time.Hour, StartPrice: 100, URI: "u"}, domain.ErrEmptyName},
		{"zero offset", CreateAuctionDTO{Caller: ownerID, DeedID: 7, Name: "a", StartPrice: 100, URI: "u"}, domain.ErrInvalidDeadline},
		{"zero price", CreateAuctionDTO{Caller: ownerID, DeedID: 7, Name: "a", DeadlineOffset: time.Hour, URI: "u"}, domain.ErrInvalidStartPrice},
		{"empty uri", CreateAuctionDTO{Caller: ownerID, DeedID: 7, Name: "a", DeadlineOffset: time.Hour, StartPrice: 100}, domain.ErrEmptyURI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.CreateAuction(ctx, tc.cmd)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// No id was allocated by any rejected call.
	count, err := h.svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	id := h.createAuction(ownerID, 7, 100, time.Hour)
	assert.Equal(t, uint64(1), id)

	count, err = h.svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestBiddingScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, 1000*time.Second)
	h.fund(bidder1, 1000)
	h.fund(bidder2, 1000)

	require.NoError(t, h.bid(id, bidder1, 150))
	high, err := h.svc.GetCurrentBid(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bidder1, high.Bidder)
	assert.Equal(t, int64(150), high.Amount)
	assert.Equal(t, int64(850), h.balance(bidder1))

	assert.ErrorIs(t, h.bid(id, bidder2, 120), domain.ErrBidTooLow)

	require.NoError(t, h.bid(id, bidder2, 200))
	high, err = h.svc.GetCurrentBid(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bidder2, high.Bidder)
	assert.Equal(t, int64(200), high.Amount)

	// The outbid bidder got their 150 back; escrow holds exactly the
	// current high bid.
	assert.Equal(t, int64(1000), h.balance(bidder1))
	assert.Equal(t, int64(800), h.balance(bidder2))
	assert.Equal(t, int64(200), h.balance(h.engineID))

	bids, err := h.svc.GetBidsCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, bids)
}

func TestBidRejections(t *testing.T) {
	h := newHarness(t)
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(ownerID, 1000)
	h.fund(bidder1, 1000)

	t.Run("unknown auction", func(t *testing.T) {
		assert.ErrorIs(t, h.bid(42, bidder1, 150), domain.ErrAuctionNotFound)
	})

	t.Run("owner self-bid", func(t *testing.T) {
		assert.ErrorIs(t, h.bid(id, ownerID, 150), domain.ErrOwnerCannotBid)
	})

	t.Run("insufficient attached value", func(t *testing.T) {
		err := h.bid(id, strangerID, 150) // never funded
		require.Error(t, err)
		bids, qerr := h.svc.GetBidsCount(context.Background(), id)
		require.NoError(t, qerr)
		assert.Equal(t, 0, bids)
	})

	t.Run("after deadline", func(t *testing.T) {
		h.clock.Advance(2 * time.Hour)
		assert.ErrorIs(t, h.bid(id, bidder1, 150), domain.ErrDeadlinePassed)
	})
}

func TestBidRefundFailureAborts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(bidder1, 1000)
	h.fund(bidder2, 1000)

	require.NoError(t, h.bid(id, bidder1, 150))

	// bidder1 refuses the refund: the outbid attempt must not be recorded
	// and bidder2's attached value must come back.
	h.treasury.failTo[bidder1] = true
	err := h.bid(id, bidder2, 200)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	bids, qerr := h.svc.GetBidsCount(ctx, id)
	require.NoError(t, qerr)
	assert.Equal(t, 1, bids)
	assert.Equal(t, int64(1000), h.balance(bidder2))
	assert.Equal(t, int64(150), h.balance(h.engineID))

	high, qerr := h.svc.GetCurrentBid(ctx, id)
	require.NoError(t, qerr)
	assert.Equal(t, bidder1, high.Bidder)
}

func TestFinalizeBeforeDeadlineFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)

	err := h.svc.FinalizeAuction(ctx, id, strangerID)
	assert.ErrorIs(t, err, domain.ErrDeadlineNotReached)

	dto, err := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, dto.Active)
	assert.Equal(t, h.engineID, h.holderOf(7))
}

func TestFinalizeNoBidsReturnsDeed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.clock.Advance(2 * time.Hour)

	// No authorization needed: a stranger may settle an empty auction.
	require.NoError(t, h.svc.FinalizeAuction(ctx, id, strangerID))

	assert.Equal(t, ownerID, h.holderOf(7))
	assert.Equal(t, int64(0), h.balance(ownerID))

	dto, err := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, dto.Active)
	assert.False(t, dto.Finalized)
}

func TestFinalizeWithBidSettles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(bidder1, 1000)
	require.NoError(t, h.bid(id, bidder1, 500))
	h.clock.Advance(2 * time.Hour)

	require.NoError(t, h.svc.FinalizeAuction(ctx, id, strangerID))

	assert.Equal(t, int64(500), h.balance(ownerID))
	assert.Equal(t, int64(0), h.balance(h.engineID))
	assert.Equal(t, bidder1, h.holderOf(7))

	dto, err := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, dto.Active)
	assert.True(t, dto.Finalized)
}

func TestFinalizeRetryAfterPayoutFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(bidder1, 1000)
	require.NoError(t, h.bid(id, bidder1, 500))
	h.clock.Advance(2 * time.Hour)

	h.treasury.failTo[ownerID] = true
	err := h.svc.FinalizeAuction(ctx, id, strangerID)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// Nothing moved: deed in escrow, funds in escrow, auction open.
	assert.Equal(t, h.engineID, h.holderOf(7))
	assert.Equal(t, int64(500), h.balance(h.engineID))
	dto, qerr := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, qerr)
	assert.True(t, dto.Active)

	delete(h.treasury.failTo, ownerID)
	require.NoError(t, h.svc.FinalizeAuction(ctx, id, strangerID))
	assert.Equal(t, int64(500), h.balance(ownerID))
	assert.Equal(t, bidder1, h.holderOf(7))
}

func TestFinalizeRetryAfterDeedTransferFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(bidder1, 1000)
	require.NoError(t, h.bid(id, bidder1, 500))
	h.clock.Advance(2 * time.Hour)

	h.reg.failTransfer = true
	err := h.svc.FinalizeAuction(ctx, id, strangerID)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// The payout committed before the custody transfer failed; the retry
	// must not pay the owner a second time.
	assert.Equal(t, int64(500), h.balance(ownerID))
	dto, qerr := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, qerr)
	assert.True(t, dto.Active)

	h.reg.failTransfer = false
	require.NoError(t, h.svc.FinalizeAuction(ctx, id, strangerID))
	assert.Equal(t, int64(500), h.balance(ownerID))
	assert.Equal(t, bidder1, h.holderOf(7))

	dto, qerr = h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, qerr)
	assert.True(t, dto.Finalized)
}

func TestCancelAuthorizationAndDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)

	err := h.svc.CancelAuction(ctx, id, strangerID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	dto, qerr := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, qerr)
	assert.True(t, dto.Active)

	h.clock.Advance(2 * time.Hour)
	err = h.svc.CancelAuction(ctx, id, ownerID)
	assert.ErrorIs(t, err, domain.ErrDeadlinePassed)
}

func TestCancelRefundsAndReturnsDeed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(bidder1, 1000)
	require.NoError(t, h.bid(id, bidder1, 150))

	require.NoError(t, h.svc.CancelAuction(ctx, id, ownerID))

	assert.Equal(t, int64(1000), h.balance(bidder1))
	assert.Equal(t, ownerID, h.holderOf(7))

	dto, err := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, dto.Active)
	assert.False(t, dto.Finalized)

	// Bid history survives cancellation.
	bids, err := h.svc.GetBidsCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, bids)
}

func TestCancelRetryDoesNotDoubleRefund(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(bidder1, 1000)
	require.NoError(t, h.bid(id, bidder1, 150))

	h.reg.failTransfer = true
	err := h.svc.CancelAuction(ctx, id, ownerID)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// The refund committed even though the custody return failed.
	assert.Equal(t, int64(1000), h.balance(bidder1))
	dto, qerr := h.svc.GetAuctionByID(ctx, id)
	require.NoError(t, qerr)
	assert.True(t, dto.Active)

	h.reg.failTransfer = false
	require.NoError(t, h.svc.CancelAuction(ctx, id, ownerID))
	assert.Equal(t, int64(1000), h.balance(bidder1))
	assert.Equal(t, ownerID, h.holderOf(7))
}

func TestFinalizeAfterInterruptedCancelDoesNotPayTwice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	h.escrowDeed(ownerID, 8)
	first := h.createAuction(ownerID, 7, 100, time.Hour)
	second := h.createAuction(ownerID, 8, 100, time.Hour)
	h.fund(bidder1, 1000)
	h.fund(bidder2, 1000)
	require.NoError(t, h.bid(first, bidder1, 500))
	require.NoError(t, h.bid(second, bidder2, 600))

	// The cancel refunds bidder1 but fails to return custody, leaving the
	// first auction active with its escrow already unwound.
	h.reg.failTransfer = true
	err := h.svc.CancelAuction(ctx, first, ownerID)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.Equal(t, int64(1000), h.balance(bidder1))

	h.reg.failTransfer = false
	h.clock.Advance(2 * time.Hour)

	// Settling it now must not pay the owner or hand the deed to the
	// already-refunded bidder; the only escrowed value left belongs to the
	// second auction.
	require.NoError(t, h.svc.FinalizeAuction(ctx, first, strangerID))
	assert.Equal(t, int64(0), h.balance(ownerID))
	assert.Equal(t, ownerID, h.holderOf(7))
	assert.Equal(t, int64(600), h.balance(h.engineID))

	dto, err := h.svc.GetAuctionByID(ctx, first)
	require.NoError(t, err)
	assert.False(t, dto.Active)
	assert.False(t, dto.Finalized)

	// The untouched auction still settles normally.
	require.NoError(t, h.svc.FinalizeAuction(ctx, second, strangerID))
	assert.Equal(t, int64(600), h.balance(ownerID))
	assert.Equal(t, bidder2, h.holderOf(8))
	assert.Equal(t, int64(0), h.balance(h.engineID))
}

func TestBidCompensationFailureRecordsClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	id := h.createAuction(ownerID, 7, 100, time.Hour)
	h.fund(bidder1, 1000)
	h.fund(bidder2, 1000)
	require.NoError(t, h.bid(id, bidder1, 150))

	// Both the refund and the compensating return are rejected: bidder2's
	// attached value stays in escrow, recorded as a withdrawable claim.
	h.treasury.failTo[bidder1] = true
	h.treasury.failTo[bidder2] = true
	err := h.bid(id, bidder2, 200)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	assert.Equal(t, int64(800), h.balance(bidder2))
	assert.Equal(t, int64(350), h.balance(h.engineID))

	claim, err := h.escrow.ClaimOf(ctx, bidder2)
	require.NoError(t, err)
	assert.Equal(t, int64(200), claim)

	// Once bidder2 accepts transfers again the claim pays out in full.
	delete(h.treasury.failTo, bidder2)
	amount, err := h.escrow.WithdrawClaim(ctx, bidder2)
	require.NoError(t, err)
	assert.Equal(t, int64(200), amount)
	assert.Equal(t, int64(1000), h.balance(bidder2))
	assert.Equal(t, int64(150), h.balance(h.engineID))

	claim, err = h.escrow.ClaimOf(ctx, bidder2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), claim)
}

func TestEscrowMatchesHighBids(t *testing.T) {
	h := newHarness(t)
	h.escrowDeed(ownerID, 7)
	h.escrowDeed(ownerID, 8)
	first := h.createAuction(ownerID, 7, 100, time.Hour)
	second := h.createAuction(ownerID, 8, 50, time.Hour)
	h.fund(bidder1, 1000)
	h.fund(bidder2, 1000)

	require.NoError(t, h.bid(first, bidder1, 150))
	require.NoError(t, h.bid(first, bidder2, 300))
	require.NoError(t, h.bid(second, bidder1, 75))

	// Escrow holds exactly the sum of the current high bids.
	assert.Equal(t, int64(375), h.balance(h.engineID))
}

func TestActiveAuctionListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	h.escrowDeed(ownerID, 8)
	first := h.createAuction(ownerID, 7, 100, time.Hour)
	second := h.createAuction(ownerID, 8, 50, time.Hour)

	require.NoError(t, h.svc.CancelAuction(ctx, first, ownerID))

	active, err := h.svc.GetActiveAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second, active[0].ID)
}

func TestOwnerIndexQueries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.escrowDeed(ownerID, 7)
	h.escrowDeed(ownerID, 8)
	first := h.createAuction(ownerID, 7, 100, time.Hour)
	second := h.createAuction(ownerID, 8, 50, time.Hour)

	auctions, err := h.svc.GetAuctionsOf(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, auctions, 2)
	assert.Equal(t, first, auctions[0].ID)
	assert.Equal(t, second, auctions[1].ID)

	count, err := h.svc.GetAuctionsCountOfOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = h.svc.GetAuctionsCountOfOwner(ctx, strangerID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// No bids yet: current bid query reports none.
	bid, err := h.svc.GetCurrentBid(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, bid)
}
