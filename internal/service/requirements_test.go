package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licitacoes/internal/extract"
	"licitacoes/internal/memstore"
	"licitacoes/internal/service"
	"licitacoes/models"
)

func newRequirementFixture(t *testing.T) (*service.RequirementService, *memstore.Store, *models.Bid) {
	t.Helper()
	store := memstore.New()
	bids := service.NewBidService(store)
	bid, err := bids.Create(context.Background(), validDraft())
	require.NoError(t, err)
	return service.NewRequirementService(store), store, bid
}

func TestBulkCreateFromExtraction(t *testing.T) {
	svc, _, bid := newRequirementFixture(t)
	ctx := context.Background()

	drafts := []extract.Draft{
		{Description: "Prova de regularidade com a Fazenda Federal"},
		{Description: "   "},
		{Description: "Certidão negativa de falência"},
	}
	n, err := svc.BulkCreateFromExtraction(ctx, bid.ID, drafts, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reqs, err := svc.List(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, 1, reqs[0].Order)
	assert.Equal(t, 2, reqs[1].Order)
	assert.False(t, reqs[0].Fulfilled)
	require.NotNil(t, reqs[0].SourceDocumentID)
	assert.Equal(t, "doc-1", *reqs[0].SourceDocumentID)
}

func TestBulkCreateIsIdempotent(t *testing.T) {
	svc, _, bid := newRequirementFixture(t)
	ctx := context.Background()

	drafts := []extract.Draft{{Description: "Certidão negativa de débitos trabalhistas"}}
	n, err := svc.BulkCreateFromExtraction(ctx, bid.ID, drafts, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second call with rows already present inserts nothing.
	n, err = svc.BulkCreateFromExtraction(ctx, bid.ID, drafts, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	reqs, err := svc.List(ctx, bid.ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestBulkCreateFallsBackOnEmptyDrafts(t *testing.T) {
	svc, _, bid := newRequirementFixture(t)
	ctx := context.Background()

	n, err := svc.BulkCreateFromExtraction(ctx, bid.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, len(extract.FallbackDrafts()), n)

	reqs, err := svc.List(ctx, bid.ID)
	require.NoError(t, err)
	require.NotEmpty(t, reqs)
	for _, r := range reqs {
		assert.False(t, r.Fulfilled)
		assert.Nil(t, r.SourceDocumentID)
	}
}

func TestBulkCreateGatedByStatus(t *testing.T) {
	svc, store, bid := newRequirementFixture(t)
	ctx := context.Background()

	_, err := service.NewBidService(store).Close(ctx, bid.ID, models.WonOutcome(1000, 100))
	require.NoError(t, err)

	_, err = svc.BulkCreateFromExtraction(ctx, bid.ID, []extract.Draft{{Description: "Certidão"}}, "")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCreateRequirement(t *testing.T) {
	svc, _, bid := newRequirementFixture(t)
	ctx := context.Background()

	req, err := svc.Create(ctx, bid.ID, "  Alvará de funcionamento  ", "vence em março")
	require.NoError(t, err)
	assert.Equal(t, "Alvará de funcionamento", req.Description)
	assert.Equal(t, 1, req.Order)
	assert.False(t, req.Fulfilled)

	second, err := svc.Create(ctx, bid.ID, "Balanço patrimonial do último exercício", "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Order)

	_, err = svc.Create(ctx, bid.ID, "   ", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateRequirement(t *testing.T) {
	svc, _, bid := newRequirementFixture(t)
	ctx := context.Background()

	req, err := svc.Create(ctx, bid.ID, "Certidão negativa municipal", "")
	require.NoError(t, err)

	fulfilled := true
	updated, err := svc.Update(ctx, req.ID, service.RequirementPatch{Fulfilled: &fulfilled})
	require.NoError(t, err)
	assert.True(t, updated.Fulfilled)
	assert.Equal(t, "Certidão negativa municipal", updated.Description)

	empty := "  "
	_, err = svc.Update(ctx, req.ID, service.RequirementPatch{Description: &empty})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateRequirementOnClosedBid(t *testing.T) {
	svc, store, bid := newRequirementFixture(t)
	ctx := context.Background()

	req, err := svc.Create(ctx, bid.ID, "Atestado de capacidade técnica", "")
	require.NoError(t, err)

	_, err = service.NewBidService(store).Close(ctx, bid.ID, models.WonOutcome(1000, 100))
	require.NoError(t, err)

	fulfilled := true
	_, err = svc.Update(ctx, req.ID, service.RequirementPatch{Fulfilled: &fulfilled})
	assert.ErrorIs(t, err, models.ErrInvalidState)

	// Reads stay open after closing.
	reqs, err := svc.List(ctx, bid.ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestDeleteRequirementKeepsOrderOfSurvivors(t *testing.T) {
	svc, _, bid := newRequirementFixture(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, bid.ID, "Registro comercial", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, bid.ID, "Ato constitutivo", "")
	require.NoError(t, err)
	third, err := svc.Create(ctx, bid.ID, "Declaração de menor", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, first.ID))

	// Survivors keep their ordinals; no renumbering on delete.
	reqs, err := svc.List(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, 2, reqs[0].Order)
	assert.Equal(t, 3, reqs[1].Order)
	assert.Equal(t, third.ID, reqs[1].ID)

	assert.ErrorIs(t, svc.Delete(ctx, first.ID), models.ErrNotFound)
}

func TestListRequirementsUnknownBid(t *testing.T) {
	svc, _, _ := newRequirementFixture(t)

	_, err := svc.List(context.Background(), "no-such-bid")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// staleReadStore closes the bid the moment its state has been handed out,
// reproducing a close that commits between a caller's read and its write.
// The write must still be refused: the gate runs with the write, not with
// the read.
type staleReadStore struct {
	*memstore.Store
}

func (s *staleReadStore) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	b, err := s.Store.GetBid(ctx, id)
	if err != nil || b.Status != models.StatusInProgress {
		return b, err
	}
	if _, cerr := s.Store.CloseBid(ctx, id, models.WonOutcome(1000, 100)); cerr != nil {
		return nil, cerr
	}
	return b, nil
}

func (s *staleReadStore) GetRequirement(ctx context.Context, id string) (*models.Requirement, error) {
	r, err := s.Store.GetRequirement(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, berr := s.Store.GetBid(ctx, r.BidID); berr == nil && b.Status == models.StatusInProgress {
		if _, cerr := s.Store.CloseBid(ctx, r.BidID, models.WonOutcome(1000, 100)); cerr != nil {
			return nil, cerr
		}
	}
	return r, nil
}

func TestFulfillRacingCloseIsRefused(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	bid, err := service.NewBidService(store).Create(ctx, validDraft())
	require.NoError(t, err)
	req, err := service.NewRequirementService(store).Create(ctx, bid.ID, "Certidão negativa de débitos federais", "")
	require.NoError(t, err)

	svc := service.NewRequirementService(&staleReadStore{Store: store})
	fulfilled := true
	_, err = svc.Update(ctx, req.ID, service.RequirementPatch{Fulfilled: &fulfilled})
	assert.ErrorIs(t, err, models.ErrInvalidState)

	// The close won the race; the row stayed untouched.
	b, err := store.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, b.Status)
	cur, err := store.GetRequirement(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, cur.Fulfilled)
}
