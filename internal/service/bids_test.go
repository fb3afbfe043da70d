package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licitacoes/db"
	"licitacoes/internal/memstore"
	"licitacoes/internal/service"
	"licitacoes/models"
)

var _ service.StorageInterface = (*memstore.Store)(nil)

func validDraft() service.BidDraft {
	return service.BidDraft{
		Number:          "PE 12/2024",
		Organ:           "Prefeitura Municipal de Campinas",
		Object:          "Fornecimento de material de escritório",
		Modality:        models.ModalityPregaoEletronico,
		OpeningAt:       time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		EndAt:           time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		EstimatedValue:  50_000_00,
		EstimatedProfit: 8_000_00,
		Sectors:         []string{"papelaria", "suprimentos"},
	}
}

func newBidService(t *testing.T) (*service.BidService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return service.NewBidService(store), store
}

func TestCreateBid(t *testing.T) {
	svc, _ := newBidService(t)

	bid, err := svc.Create(context.Background(), validDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, bid.ID)
	assert.Equal(t, models.StatusInProgress, bid.Status)
	assert.Nil(t, bid.FinalValue)
	assert.Nil(t, bid.Won)
}

func TestCreateBidFromDiscoveryStartsUnderReview(t *testing.T) {
	svc, _ := newBidService(t)

	draft := validDraft()
	draft.FromDiscovery = true
	bid, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, bid.Status)
}

func TestCreateBidEndBeforeOpening(t *testing.T) {
	svc, _ := newBidService(t)

	draft := validDraft()
	draft.OpeningAt = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	draft.EndAt = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), draft)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateBidNoSectors(t *testing.T) {
	svc, _ := newBidService(t)

	draft := validDraft()
	draft.Sectors = []string{"  ", ""}
	_, err := svc.Create(context.Background(), draft)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateBidInvalidModality(t *testing.T) {
	svc, _ := newBidService(t)

	draft := validDraft()
	draft.Modality = "rfp"
	_, err := svc.Create(context.Background(), draft)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateBidRevalidatesDates(t *testing.T) {
	svc, _ := newBidService(t)
	ctx := context.Background()

	bid, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	bad := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Update(ctx, bid.ID, service.BidPatch{EndAt: &bad})
	assert.ErrorIs(t, err, models.ErrValidation)

	good := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, bid.ID, service.BidPatch{EndAt: &good})
	require.NoError(t, err)
	assert.Equal(t, good, updated.EndAt)
}

func TestUpdateBidUnknownID(t *testing.T) {
	svc, _ := newBidService(t)

	n := "x"
	_, err := svc.Update(context.Background(), "no-such-id", service.BidPatch{Number: &n})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateClosedBidRejected(t *testing.T) {
	svc, _ := newBidService(t)
	ctx := context.Background()

	bid, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)
	_, err = svc.Close(ctx, bid.ID, models.WonOutcome(40_000_00, 5_000_00))
	require.NoError(t, err)

	n := "PE 13/2024"
	_, err = svc.Update(ctx, bid.ID, service.BidPatch{Number: &n})
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestConfirmBid(t *testing.T) {
	svc, _ := newBidService(t)
	ctx := context.Background()

	draft := validDraft()
	draft.FromDiscovery = true
	bid, err := svc.Create(ctx, draft)
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, confirmed.Status)

	// Confirming twice is an invalid transition.
	_, err = svc.Confirm(ctx, bid.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCloseBidWon(t *testing.T) {
	svc, _ := newBidService(t)
	ctx := context.Background()

	bid, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	closed, err := svc.Close(ctx, bid.ID, models.WonOutcome(45_000_00, 6_500_00))
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	require.NotNil(t, closed.FinalValue)
	assert.Equal(t, models.Cents(45_000_00), *closed.FinalValue)
	require.NotNil(t, closed.Won)
	assert.True(t, *closed.Won)
	assert.Nil(t, closed.LossReason)
	assert.NotNil(t, closed.ClosedAt)
}

func TestCloseBidLostRequiresReason(t *testing.T) {
	svc, store := newBidService(t)
	ctx := context.Background()

	bid, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	// No reason: rejected, bid untouched.
	_, err = svc.Close(ctx, bid.ID, models.LostOutcome(100_000, -20_000, ""))
	assert.ErrorIs(t, err, models.ErrValidation)

	cur, err := store.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, cur.Status)
	assert.Nil(t, cur.FinalValue)
	assert.Nil(t, cur.FinalProfit)
	assert.Nil(t, cur.Won)
	assert.Nil(t, cur.LossReason)

	// With reason: closes, all four outcome fields land together.
	closed, err := svc.Close(ctx, bid.ID, models.LostOutcome(100_000, -20_000, "price too high"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	require.NotNil(t, closed.Won)
	assert.False(t, *closed.Won)
	require.NotNil(t, closed.LossReason)
	assert.Equal(t, "price too high", *closed.LossReason)
	require.NotNil(t, closed.FinalProfit)
	assert.Equal(t, models.Cents(-20_000), *closed.FinalProfit)
}

func TestCloseBidTwiceRejected(t *testing.T) {
	svc, _ := newBidService(t)
	ctx := context.Background()

	bid, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)
	_, err = svc.Close(ctx, bid.ID, models.WonOutcome(1000, 100))
	require.NoError(t, err)

	_, err = svc.Close(ctx, bid.ID, models.WonOutcome(1000, 100))
	require.Error(t, err)
	var stateErr *models.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, models.StatusClosed, stateErr.Status)
}

func TestCloseFailureLeavesBidUntouched(t *testing.T) {
	svc, store := newBidService(t)
	ctx := context.Background()

	bid, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	store.CloseBidErr = errors.New("connection reset")
	_, err = svc.Close(ctx, bid.ID, models.WonOutcome(1000, 100))
	require.Error(t, err)

	cur, err := store.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, cur.Status)
	assert.Nil(t, cur.FinalValue)
	assert.Nil(t, cur.ClosedAt)
}

func TestAbortBid(t *testing.T) {
	svc, _ := newBidService(t)
	ctx := context.Background()

	bid, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	aborted, err := svc.Abort(ctx, bid.ID, models.StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, aborted.Status)

	// Terminal states stay terminal: no transition out of SUSPENDED.
	_, err = svc.Abort(ctx, bid.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = svc.Abort(ctx, bid.ID, models.StatusClosed)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListBidsFilters(t *testing.T) {
	svc, _ := newBidService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)
	b, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)
	_, err = svc.Close(ctx, b.ID, models.WonOutcome(1000, 100))
	require.NoError(t, err)

	open, err := svc.List(ctx, db.BidFilter{Statuses: []models.BidStatus{models.StatusInProgress}})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, a.ID, open[0].ID)

	all, err := svc.List(ctx, db.BidFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
