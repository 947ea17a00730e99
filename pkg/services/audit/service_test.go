package audit

import (
	"context"
	"testing"
	"time"

	"github.com/fadedpez/eldorado/pkg/entities"
	wagerRepo "github.com/fadedpez/eldorado/pkg/repositories/wager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settledTransaction(id string, age time.Duration) *entities.WagerTransaction {
	tx := &entities.WagerTransaction{
		TransactionID:   id,
		UserID:          "user-1",
		IdempotencyKey:  "key-" + id,
		AmountWagered:   10,
		ResultSymbols:   []string{"cherry", "bell", "seven"},
		Status:          entities.TransactionStatusCompleted,
		BalanceBefore:   100,
		BalanceAfter:    90,
		ConfigName:      "slots",
		ConfigVersion:   1,
		ServerTimestamp: time.Now().Add(-age),
	}
	tx.IntegrityHash = Stamp(tx)
	return tx
}

func TestStampDeterministic(t *testing.T) {
	tx := settledTransaction("tx-1", time.Hour)
	assert.Equal(t, Stamp(tx), Stamp(tx))
}

func TestStampExcludesArchivalFields(t *testing.T) {
	tx := settledTransaction("tx-1", time.Hour)
	before := Stamp(tx)

	tx.Archived = true
	tx.ArchivedAt = time.Now()

	assert.Equal(t, before, Stamp(tx), "the hash stays verifiable after archival")
}

func TestVerifyDetectsTampering(t *testing.T) {
	tx := settledTransaction("tx-1", time.Hour)
	require.NoError(t, Verify(tx))

	tx.Payout = 9999
	assert.ErrorIs(t, Verify(tx), ErrIntegrityCheckFailed)
}

func TestSweepArchival(t *testing.T) {
	repo := wagerRepo.NewMemoryRepository()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	old := settledTransaction("tx-old", 48*time.Hour)
	recent := settledTransaction("tx-recent", time.Hour)
	require.NoError(t, repo.SaveTransaction(ctx, old))
	require.NoError(t, repo.SaveTransaction(ctx, recent))

	archived, err := svc.SweepArchival(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, archived)

	// The archived row is flagged, never deleted
	stored, err := repo.GetTransaction(ctx, "tx-old")
	require.NoError(t, err)
	assert.True(t, stored.Archived)
	assert.False(t, stored.ArchivedAt.IsZero())

	kept, err := repo.GetTransaction(ctx, "tx-recent")
	require.NoError(t, err)
	assert.False(t, kept.Archived)
}

func TestSweepArchivalIdempotent(t *testing.T) {
	repo := wagerRepo.NewMemoryRepository()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveTransaction(ctx, settledTransaction("tx-1", 48*time.Hour)))

	first, err := svc.SweepArchival(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := svc.SweepArchival(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, second, "a second sweep finds nothing new")
}

func TestSweepArchivalSkipsPending(t *testing.T) {
	repo := wagerRepo.NewMemoryRepository()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	pending := settledTransaction("tx-1", 48*time.Hour)
	pending.Status = entities.TransactionStatusPending
	pending.IntegrityHash = Stamp(pending)
	require.NoError(t, repo.SaveTransaction(ctx, pending))

	archived, err := svc.SweepArchival(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, archived, "only terminal transactions are archived")
}

func TestSweepArchivalReportsIntegrityFailures(t *testing.T) {
	repo := wagerRepo.NewMemoryRepository()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	tampered := settledTransaction("tx-bad", 48*time.Hour)
	tampered.Payout = 9999 // mutated after stamping
	require.NoError(t, repo.SaveTransaction(ctx, tampered))
	require.NoError(t, repo.SaveTransaction(ctx, settledTransaction("tx-good", 48*time.Hour)))

	archived, err := svc.SweepArchival(ctx, 24*time.Hour)
	assert.ErrorIs(t, err, ErrIntegrityCheckFailed)
	assert.Equal(t, 1, archived, "intact rows are still archived")

	// The tampered row is reported and left untouched
	stored, err := repo.GetTransaction(ctx, "tx-bad")
	require.NoError(t, err)
	assert.False(t, stored.Archived)
}

func resolvedOffer(id string, age time.Duration) *entities.SpinOffer {
	offer := &entities.SpinOffer{
		OfferID:         id,
		IdempotencyKey:  "key-" + id,
		UserID:          "user-1",
		PerformerID:     "performer-1",
		Tokens:          20,
		Status:          entities.OfferStatusAccepted,
		ServerTimestamp: time.Now().Add(-age),
		ResolvedAt:      time.Now().Add(-age),
	}
	offer.IntegrityHash = StampOffer(offer)
	return offer
}

func TestVerifyOfferDetectsTampering(t *testing.T) {
	offer := resolvedOffer("offer-1", time.Hour)
	require.NoError(t, VerifyOffer(offer))

	offer.Tokens = 9999
	assert.ErrorIs(t, VerifyOffer(offer), ErrIntegrityCheckFailed)
}

func TestSweepArchivalIncludesOffers(t *testing.T) {
	repo := wagerRepo.NewMemoryRepository()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveOffer(ctx, resolvedOffer("offer-old", 48*time.Hour)))
	require.NoError(t, repo.SaveOffer(ctx, resolvedOffer("offer-recent", time.Hour)))

	unresolved := resolvedOffer("offer-open", 48*time.Hour)
	unresolved.Status = entities.OfferStatusCreated
	unresolved.IntegrityHash = StampOffer(unresolved)
	require.NoError(t, repo.SaveOffer(ctx, unresolved))

	archived, err := svc.SweepArchival(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, archived)

	stored, err := repo.GetOffer(ctx, "offer-old")
	require.NoError(t, err)
	assert.True(t, stored.Archived)
	assert.False(t, stored.ArchivedAt.IsZero())

	kept, err := repo.GetOffer(ctx, "offer-recent")
	require.NoError(t, err)
	assert.False(t, kept.Archived)

	open, err := repo.GetOffer(ctx, "offer-open")
	require.NoError(t, err)
	assert.False(t, open.Archived, "only terminal offers are archived")

	// A second sweep finds nothing new on the offer side either
	second, err := svc.SweepArchival(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestSweepArchivalReportsTamperedOffers(t *testing.T) {
	repo := wagerRepo.NewMemoryRepository()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	tampered := resolvedOffer("offer-bad", 48*time.Hour)
	tampered.Tokens = 9999 // mutated after stamping
	require.NoError(t, repo.SaveOffer(ctx, tampered))
	require.NoError(t, repo.SaveOffer(ctx, resolvedOffer("offer-good", 48*time.Hour)))

	archived, err := svc.SweepArchival(ctx, 24*time.Hour)
	assert.ErrorIs(t, err, ErrIntegrityCheckFailed)
	assert.Equal(t, 1, archived, "intact offers are still archived")

	stored, err := repo.GetOffer(ctx, "offer-bad")
	require.NoError(t, err)
	assert.False(t, stored.Archived)
}

// recordingMirror captures indexed transactions
type recordingMirror struct {
	indexed []*entities.WagerTransaction
}

func (m *recordingMirror) IndexTransaction(ctx context.Context, tx *entities.WagerTransaction) error {
	m.indexed = append(m.indexed, tx)
	return nil
}

func TestSweepArchivalMirrors(t *testing.T) {
	repo := wagerRepo.NewMemoryRepository()
	mirror := &recordingMirror{}
	svc := NewService(repo, mirror, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveTransaction(ctx, settledTransaction("tx-1", 48*time.Hour)))

	_, err := svc.SweepArchival(ctx, 24*time.Hour)
	require.NoError(t, err)

	require.Len(t, mirror.indexed, 1)
	assert.Equal(t, "tx-1", mirror.indexed[0].TransactionID)
	assert.True(t, mirror.indexed[0].Archived)
}
