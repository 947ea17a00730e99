package escrow

import (
	"context"
	"testing"

	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/fadedpez/eldorado/pkg/events"
	wagerRepo "github.com/fadedpez/eldorado/pkg/repositories/wager"
	walletRepo "github.com/fadedpez/eldorado/pkg/repositories/wallet"
	"github.com/fadedpez/eldorado/pkg/services/settlement"
	"github.com/fadedpez/eldorado/pkg/services/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReleaser captures escrow signals
type recordingReleaser struct {
	released []string
	refunded []string
}

func (r *recordingReleaser) Release(ctx context.Context, escrowTransactionID string) error {
	r.released = append(r.released, escrowTransactionID)
	return nil
}

func (r *recordingReleaser) Refund(ctx context.Context, escrowTransactionID string) error {
	r.refunded = append(r.refunded, escrowTransactionID)
	return nil
}

type fixedConfigStore struct {
	cfg *entities.WagerConfig
}

func (s *fixedConfigStore) GetActive(ctx context.Context, configName string) (*entities.WagerConfig, error) {
	return s.cfg, nil
}

type fixedSeedSource struct{}

func (fixedSeedSource) Seed() ([]byte, error) {
	return []byte("adapter test seed"), nil
}

type adapterFixture struct {
	adapter  *Adapter
	engine   *settlement.Engine
	releaser *recordingReleaser
	balances wallet.BalanceAuthority
}

func newAdapterFixture(startingBalance int64) *adapterFixture {
	cfg := &entities.WagerConfig{
		ConfigName:       "slots",
		Version:          1,
		WagerCost:        10,
		Symbols:          []entities.Symbol{{ID: "cherry", RarityWeight: 1, PayoutMultiplier: 3}},
		TargetRTP:        0.95,
		MaxWagersPerHour: 1000,
	}

	balances := wallet.NewService(walletRepo.NewMemoryRepository(), startingBalance, nil)
	dispatcher := events.NewDispatcher(nil)
	engine := settlement.NewEngine(wagerRepo.NewMemoryRepository(), balances, &fixedConfigStore{cfg: cfg}, fixedSeedSource{}, dispatcher, nil)
	releaser := &recordingReleaser{}

	return &adapterFixture{
		adapter:  NewAdapter(engine, releaser, dispatcher, nil),
		engine:   engine,
		releaser: releaser,
		balances: balances,
	}
}

func houseRequest() *entities.IntakeRequest {
	return &entities.IntakeRequest{
		IdempotencyKey:      "key-1",
		SourceFeature:       "slots",
		SourceEventID:       "evt-1",
		UserID:              "user-1",
		EscrowTransactionID: "escrow-1",
		Tokens:              10,
	}
}

func TestHandleHouseWagerReleasesEscrow(t *testing.T) {
	f := newAdapterFixture(100)

	result, err := f.adapter.Handle(context.Background(), houseRequest())
	require.NoError(t, err)

	assert.Equal(t, string(entities.TransactionStatusCompleted), result.Status)
	assert.True(t, result.IsWin)
	assert.Equal(t, int64(30), result.Payout)
	assert.Equal(t, EscrowActionRelease, result.EscrowAction)
	assert.Equal(t, []string{"escrow-1"}, f.releaser.released)
	assert.Empty(t, f.releaser.refunded)
}

func TestHandleHouseWagerInsufficientFundsRefundsEscrow(t *testing.T) {
	f := newAdapterFixture(5)

	result, err := f.adapter.Handle(context.Background(), houseRequest())
	require.NoError(t, err, "a funds failure is a settled outcome, not an intake error")

	assert.Equal(t, string(entities.TransactionStatusFailed), result.Status)
	assert.False(t, result.IsWin)
	assert.Equal(t, EscrowActionRefund, result.EscrowAction)
	assert.Equal(t, []string{"escrow-1"}, f.releaser.refunded)
	assert.Empty(t, f.releaser.released)
}

func TestHandleHouseWagerNoEscrowReference(t *testing.T) {
	f := newAdapterFixture(100)

	req := houseRequest()
	req.EscrowTransactionID = ""

	result, err := f.adapter.Handle(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, result.EscrowAction)
	assert.Empty(t, f.releaser.released)
	assert.Empty(t, f.releaser.refunded)
}

func TestHandleIdempotentReplay(t *testing.T) {
	f := newAdapterFixture(100)
	ctx := context.Background()

	first, err := f.adapter.Handle(ctx, houseRequest())
	require.NoError(t, err)
	second, err := f.adapter.Handle(ctx, houseRequest())
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
}

func TestHandleMediatedCreatesOffer(t *testing.T) {
	f := newAdapterFixture(100)

	req := houseRequest()
	req.PerformerID = "performer-1"
	req.Tokens = 20

	result, err := f.adapter.Handle(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, string(entities.OfferStatusCreated), result.Status)
	assert.Empty(t, result.EscrowAction, "the stake stays in escrow until the performer resolves")
	assert.Empty(t, f.releaser.released)
	assert.Empty(t, f.releaser.refunded)
}

func TestMediatedAcceptReleasesEscrow(t *testing.T) {
	f := newAdapterFixture(100)
	ctx := context.Background()

	req := houseRequest()
	req.PerformerID = "performer-1"
	req.Tokens = 20

	result, err := f.adapter.Handle(ctx, req)
	require.NoError(t, err)

	_, err = f.engine.AcceptSpinOffer(ctx, result.TransactionID)
	require.NoError(t, err)

	assert.Equal(t, []string{"escrow-1"}, f.releaser.released)
	assert.Empty(t, f.releaser.refunded)

	// The performer received the stake
	balance, err := f.balances.GetBalance(ctx, "performer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(120), balance)
}

func TestMediatedRejectRefundsEscrow(t *testing.T) {
	f := newAdapterFixture(100)
	ctx := context.Background()

	req := houseRequest()
	req.PerformerID = "performer-1"
	req.Tokens = 20

	result, err := f.adapter.Handle(ctx, req)
	require.NoError(t, err)

	_, err = f.engine.RejectSpinOffer(ctx, result.TransactionID)
	require.NoError(t, err)

	assert.Equal(t, []string{"escrow-1"}, f.releaser.refunded)
	assert.Empty(t, f.releaser.released)
}

func TestHandleValidation(t *testing.T) {
	f := newAdapterFixture(100)
	ctx := context.Background()

	req := houseRequest()
	req.IdempotencyKey = ""
	_, err := f.adapter.Handle(ctx, req)
	assert.Error(t, err)

	req = houseRequest()
	req.UserID = ""
	_, err = f.adapter.Handle(ctx, req)
	assert.Error(t, err)

	req = houseRequest()
	req.SourceFeature = ""
	_, err = f.adapter.Handle(ctx, req)
	assert.Error(t, err)
}
