// Package memstore is an in-memory implementation of the persistence
// surface, mirroring the Postgres semantics the services rely on (status
// gates under lock, idempotent bulk insert, notice cascade). Used by tests
// and local runs without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"licitacoes/db"
	"licitacoes/models"
)

type Store struct {
	mu           sync.Mutex
	clients      map[string]models.Client
	bids         map[string]models.Bid
	documents    map[string]models.Document
	requirements map[string]models.Requirement
	types        map[int]models.DocumentType

	// Fault hooks for exercising compensation paths. Each fires once.
	CreateDocumentErr error
	CloseBidErr       error
}

func New() *Store {
	s := &Store{
		clients:      make(map[string]models.Client),
		bids:         make(map[string]models.Bid),
		documents:    make(map[string]models.Document),
		requirements: make(map[string]models.Requirement),
		types:        make(map[int]models.DocumentType),
	}
	// Same seed set as the initial migration.
	for i, t := range []models.DocumentType{
		{Name: "Edital", IsNotice: true},
		{Name: "Certidão Negativa de Débitos"},
		{Name: "Contrato Social"},
		{Name: "Procuração"},
		{Name: "Atestado de Capacidade Técnica"},
		{Name: "Proposta Comercial"},
		{Name: "Outro"},
	} {
		t.ID = i + 1
		s.types[t.ID] = t
	}
	return s
}

// NoticeTypeID is the seeded edital type.
const NoticeTypeID = 1

// Cliente

func (s *Store) CreateClient(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.CreatedAt = time.Now()
	s.clients[c.ID] = *c
	return nil
}

func (s *Store) GetClient(_ context.Context, id string) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "client", ID: id}
	}
	return &c, nil
}

func (s *Store) ListClients(_ context.Context, limit, offset int) ([]models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Client
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CorporateName < out[j].CorporateName })
	return page(out, limit, offset), nil
}

// Licitação

func (s *Store) CreateBid(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bids[b.ID] = *b
	return nil
}

func (s *Store) GetBid(_ context.Context, id string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBidLocked(id)
}

func (s *Store) getBidLocked(id string) (*models.Bid, error) {
	b, ok := s.bids[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "bid", ID: id}
	}
	return &b, nil
}

// gateBidLocked is the in-transaction status gate: evaluated under the same
// lock as the gated write, so a close can never slip in between.
func (s *Store) gateBidLocked(id, op string) error {
	b, ok := s.bids[id]
	if !ok {
		return &models.NotFoundError{Entity: "bid", ID: id}
	}
	if b.Status != models.StatusInProgress {
		return &models.InvalidStateError{Op: op, Status: b.Status}
	}
	return nil
}

func (s *Store) UpdateBid(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bids[b.ID]
	if !ok {
		return &models.NotFoundError{Entity: "bid", ID: b.ID}
	}
	cur.Number = b.Number
	cur.Organ = b.Organ
	cur.Object = b.Object
	cur.Modality = b.Modality
	cur.OpeningAt = b.OpeningAt
	cur.EndAt = b.EndAt
	cur.EstimatedValue = b.EstimatedValue
	cur.EstimatedProfit = b.EstimatedProfit
	cur.Sectors = b.Sectors
	cur.UpdatedAt = time.Now()
	s.bids[b.ID] = cur
	return nil
}

func (s *Store) ListBids(_ context.Context, f db.BidFilter) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, b.Status) {
			continue
		}
		if len(f.Modalities) > 0 && !containsModality(f.Modalities, b.Modality) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpeningAt.After(out[j].OpeningAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (s *Store) ConfirmBid(_ context.Context, id string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.getBidLocked(id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusUnderReview {
		return nil, &models.InvalidStateError{Op: "confirm", Status: b.Status}
	}
	b.Status = models.StatusInProgress
	b.UpdatedAt = time.Now()
	s.bids[id] = *b
	return b, nil
}

func (s *Store) CloseBid(_ context.Context, id string, outcome models.ClosingOutcome) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CloseBidErr != nil {
		err := s.CloseBidErr
		s.CloseBidErr = nil
		return nil, err
	}
	b, err := s.getBidLocked(id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusInProgress {
		return nil, &models.InvalidStateError{Op: "close", Status: b.Status}
	}
	now := time.Now()
	b.Status = models.StatusClosed
	b.FinalValue = &outcome.FinalValue
	b.FinalProfit = &outcome.FinalProfit
	won := outcome.Won
	b.Won = &won
	if !outcome.Won {
		reason := outcome.LossReason
		b.LossReason = &reason
	}
	b.ClosedAt = &now
	b.UpdatedAt = now
	s.bids[id] = *b
	return b, nil
}

func (s *Store) AbortBid(_ context.Context, id string, to models.BidStatus) (*models.Bid, error) {
	if !to.Terminal() || to == models.StatusClosed {
		return nil, &models.ValidationError{Reason: fmt.Sprintf("status %s is not an abort state", to)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.getBidLocked(id)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, &models.InvalidStateError{Op: "abort", Status: b.Status}
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	s.bids[id] = *b
	return b, nil
}

// Documento

func (s *Store) CreateDocument(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Scope == models.ScopeBid {
		if err := s.gateBidLocked(d.OwnerID, "document upload"); err != nil {
			return err
		}
	}
	if s.CreateDocumentErr != nil {
		err := s.CreateDocumentErr
		s.CreateDocumentErr = nil
		return err
	}
	d.UploadedAt = time.Now()
	s.documents[d.ID] = *d
	return nil
}

func (s *Store) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "document", ID: id}
	}
	return &d, nil
}

func (s *Store) UpdateDocumentMeta(_ context.Context, id string, expiresAt *time.Time, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return &models.NotFoundError{Entity: "document", ID: id}
	}
	if d.Scope == models.ScopeBid {
		if err := s.gateBidLocked(d.OwnerID, "document update"); err != nil {
			return err
		}
	}
	d.ExpiresAt = expiresAt
	d.Notes = notes
	s.documents[id] = d
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, id string, cascadeRequirements bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return &models.NotFoundError{Entity: "document", ID: id}
	}
	if d.Scope == models.ScopeBid {
		if err := s.gateBidLocked(d.OwnerID, "document delete"); err != nil {
			return err
		}
	}
	delete(s.documents, id)
	if cascadeRequirements {
		for rid, r := range s.requirements {
			if r.BidID == d.OwnerID {
				delete(s.requirements, rid)
			}
		}
	}
	return nil
}

func (s *Store) ListDocuments(_ context.Context, scope models.DocumentScope, ownerID string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Document
	for _, d := range s.documents {
		if d.Scope == scope && d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *Store) CountNoticeDocuments(_ context.Context, bidID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, d := range s.documents {
		if d.Scope == models.ScopeBid && d.OwnerID == bidID && s.types[d.TypeID].IsNotice {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetDocumentType(_ context.Context, id int) (*models.DocumentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "document type", ID: fmt.Sprintf("%d", id)}
	}
	return &t, nil
}

func (s *Store) ListDocumentTypes(_ context.Context) ([]models.DocumentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DocumentType
	for _, t := range s.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Requisito

func (s *Store) CreateRequirement(_ context.Context, r *models.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gateBidLocked(r.BidID, "requirement create"); err != nil {
		return err
	}
	r.Order = s.maxOrderLocked(r.BidID) + 1
	r.CreatedAt = time.Now()
	s.requirements[r.ID] = *r
	return nil
}

func (s *Store) GetRequirement(_ context.Context, id string) (*models.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requirements[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "requirement", ID: id}
	}
	return &r, nil
}

func (s *Store) UpdateRequirement(_ context.Context, r *models.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.requirements[r.ID]
	if !ok {
		return &models.NotFoundError{Entity: "requirement", ID: r.ID}
	}
	if err := s.gateBidLocked(cur.BidID, "requirement update"); err != nil {
		return err
	}
	cur.Description = r.Description
	cur.Notes = r.Notes
	cur.Fulfilled = r.Fulfilled
	s.requirements[r.ID] = cur
	return nil
}

func (s *Store) DeleteRequirement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requirements[id]
	if !ok {
		return &models.NotFoundError{Entity: "requirement", ID: id}
	}
	if err := s.gateBidLocked(r.BidID, "requirement delete"); err != nil {
		return err
	}
	delete(s.requirements, id)
	return nil
}

func (s *Store) ListRequirements(_ context.Context, bidID string) ([]models.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Requirement
	for _, r := range s.requirements {
		if r.BidID == bidID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) BulkCreateRequirements(_ context.Context, bidID string, reqs []models.Requirement) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gateBidLocked(bidID, "requirement bulk create"); err != nil {
		return 0, err
	}
	for _, r := range s.requirements {
		if r.BidID == bidID {
			return 0, nil
		}
	}
	inserted := 0
	for i := range reqs {
		r := reqs[i]
		r.BidID = bidID
		r.Order = i + 1
		r.CreatedAt = time.Now()
		s.requirements[r.ID] = r
		inserted++
	}
	return inserted, nil
}

func (s *Store) maxOrderLocked(bidID string) int {
	max := 0
	for _, r := range s.requirements {
		if r.BidID == bidID && r.Order > max {
			max = r.Order
		}
	}
	return max
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsStatus(list []models.BidStatus, v models.BidStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsModality(list []models.Modality, v models.Modality) bool {
	for _, m := range list {
		if m == v {
			return true
		}
	}
	return false
}
