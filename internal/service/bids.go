package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"licitacoes/db"
	"licitacoes/models"
)

// BidService owns the licitação lifecycle: creation, core-field updates,
// confirmation and the closing transaction.
type BidService struct {
	store StorageInterface
}

func NewBidService(store StorageInterface) *BidService {
	return &BidService{store: store}
}

// BidDraft is the creation payload.
type BidDraft struct {
	Number          string          `json:"number"`
	Organ           string          `json:"organ"`
	Object          string          `json:"object"`
	Modality        models.Modality `json:"modality"`
	OpeningAt       time.Time       `json:"openingAt"`
	EndAt           time.Time       `json:"endAt"`
	EstimatedValue  models.Cents    `json:"estimatedValue"`
	EstimatedProfit models.Cents    `json:"estimatedProfit"`
	Sectors         []string        `json:"sectors"`
	// FromDiscovery marks opportunities found by an external discovery flow;
	// those start under review instead of already active.
	FromDiscovery bool `json:"fromDiscovery"`
}

func (s *BidService) Create(ctx context.Context, draft BidDraft) (*models.Bid, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	status := models.StatusInProgress
	if draft.FromDiscovery {
		status = models.StatusUnderReview
	}

	bid := &models.Bid{
		ID:              uuid.New().String(),
		Number:          draft.Number,
		Organ:           draft.Organ,
		Object:          draft.Object,
		Modality:        draft.Modality,
		OpeningAt:       draft.OpeningAt,
		EndAt:           draft.EndAt,
		EstimatedValue:  draft.EstimatedValue,
		EstimatedProfit: draft.EstimatedProfit,
		Sectors:         draft.Sectors,
		Status:          status,
	}
	if err := s.store.CreateBid(ctx, bid); err != nil {
		return nil, err
	}
	return bid, nil
}

func validateDraft(d *BidDraft) error {
	d.Number = strings.TrimSpace(d.Number)
	d.Organ = strings.TrimSpace(d.Organ)
	d.Object = strings.TrimSpace(d.Object)
	if d.Number == "" {
		return &models.ValidationError{Reason: "number is required"}
	}
	if d.Organ == "" {
		return &models.ValidationError{Reason: "organ is required"}
	}
	if d.Object == "" {
		return &models.ValidationError{Reason: "object is required"}
	}
	if !d.Modality.Valid() {
		return &models.ValidationError{Reason: "invalid modality"}
	}
	if d.OpeningAt.IsZero() || d.EndAt.IsZero() {
		return &models.ValidationError{Reason: "openingAt and endAt are required"}
	}
	if d.EndAt.Before(d.OpeningAt) {
		return &models.ValidationError{Reason: "endAt must not be before openingAt"}
	}
	if d.EstimatedValue < 0 {
		return &models.ValidationError{Reason: "estimatedValue must be a non-negative amount"}
	}
	var sectors []string
	for _, sec := range d.Sectors {
		if sec = strings.TrimSpace(sec); sec != "" {
			sectors = append(sectors, sec)
		}
	}
	if len(sectors) == 0 {
		return &models.ValidationError{Reason: "at least one activity sector is required"}
	}
	d.Sectors = sectors
	return nil
}

// BidPatch updates core fields. Status is deliberately absent: lifecycle
// transitions go through Confirm, Close and Abort only.
type BidPatch struct {
	Number          *string          `json:"number"`
	Organ           *string          `json:"organ"`
	Object          *string          `json:"object"`
	Modality        *models.Modality `json:"modality"`
	OpeningAt       *time.Time       `json:"openingAt"`
	EndAt           *time.Time       `json:"endAt"`
	EstimatedValue  *models.Cents    `json:"estimatedValue"`
	EstimatedProfit *models.Cents    `json:"estimatedProfit"`
	Sectors         []string         `json:"sectors"`
}

func (s *BidService) Update(ctx context.Context, id string, patch BidPatch) (*models.Bid, error) {
	bid, err := s.store.GetBid(ctx, id)
	if err != nil {
		return nil, err
	}
	if bid.Status.Terminal() {
		return nil, &models.InvalidStateError{Op: "update", Status: bid.Status}
	}

	if patch.Number != nil {
		bid.Number = strings.TrimSpace(*patch.Number)
	}
	if patch.Organ != nil {
		bid.Organ = strings.TrimSpace(*patch.Organ)
	}
	if patch.Object != nil {
		bid.Object = strings.TrimSpace(*patch.Object)
	}
	if patch.Modality != nil {
		bid.Modality = *patch.Modality
	}
	if patch.OpeningAt != nil {
		bid.OpeningAt = *patch.OpeningAt
	}
	if patch.EndAt != nil {
		bid.EndAt = *patch.EndAt
	}
	if patch.EstimatedValue != nil {
		bid.EstimatedValue = *patch.EstimatedValue
	}
	if patch.EstimatedProfit != nil {
		bid.EstimatedProfit = *patch.EstimatedProfit
	}
	if patch.Sectors != nil {
		bid.Sectors = patch.Sectors
	}

	draft := BidDraft{
		Number: bid.Number, Organ: bid.Organ, Object: bid.Object,
		Modality: bid.Modality, OpeningAt: bid.OpeningAt, EndAt: bid.EndAt,
		EstimatedValue: bid.EstimatedValue, EstimatedProfit: bid.EstimatedProfit,
		Sectors: bid.Sectors,
	}
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}
	bid.Sectors = draft.Sectors

	if err := s.store.UpdateBid(ctx, bid); err != nil {
		return nil, err
	}
	return bid, nil
}

// Confirm promotes a discovered bid from UNDER_REVIEW to IN_PROGRESS.
func (s *BidService) Confirm(ctx context.Context, id string) (*models.Bid, error) {
	return s.store.ConfirmBid(ctx, id)
}

// Close records the financial outcome and terminates the lifecycle. The
// store performs the four-field update atomically under a row lock; a failed
// close leaves the bid untouched.
func (s *BidService) Close(ctx context.Context, id string, outcome models.ClosingOutcome) (*models.Bid, error) {
	if err := outcome.Validate(); err != nil {
		return nil, err
	}
	return s.store.CloseBid(ctx, id, outcome)
}

// Abort moves the bid into a non-CLOSED terminal state. Documents and
// requirements remain as historical record, read-only from here on.
func (s *BidService) Abort(ctx context.Context, id string, to models.BidStatus) (*models.Bid, error) {
	return s.store.AbortBid(ctx, id, to)
}

func (s *BidService) Get(ctx context.Context, id string) (*models.Bid, error) {
	return s.store.GetBid(ctx, id)
}

func (s *BidService) List(ctx context.Context, f db.BidFilter) ([]models.Bid, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.ListBids(ctx, f)
}
