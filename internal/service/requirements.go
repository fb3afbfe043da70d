package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"licitacoes/internal/extract"
	"licitacoes/models"
)

// RequirementService owns the compliance checklist of a bid. Every write
// requires the owning bid to be IN_PROGRESS; reads are never gated.
type RequirementService struct {
	store StorageInterface
}

func NewRequirementService(store StorageInterface) *RequirementService {
	return &RequirementService{store: store}
}

// BulkCreateFromExtraction persists the drafts mined from a notice upload.
// An empty draft list falls back to the fixed generic checklist so the
// checklist is never silently empty after a notice upload. Idempotence is
// enforced by the storage-level existence re-check, not by the extractor's
// return value: a second call without an intervening deletion inserts
// nothing. The status gate runs inside the storage transaction.
func (s *RequirementService) BulkCreateFromExtraction(ctx context.Context, bidID string, drafts []extract.Draft, sourceDocumentID string) (int, error) {
	if len(drafts) == 0 {
		drafts = extract.FallbackDrafts()
	}

	reqs := make([]models.Requirement, 0, len(drafts))
	for _, d := range drafts {
		desc := strings.TrimSpace(d.Description)
		if desc == "" {
			continue
		}
		var src *string
		if sourceDocumentID != "" {
			id := sourceDocumentID
			src = &id
		}
		reqs = append(reqs, models.Requirement{
			ID:               uuid.New().String(),
			BidID:            bidID,
			Description:      desc,
			SourceDocumentID: src,
		})
	}
	if len(reqs) == 0 {
		// All drafts blank; fall back rather than leave the checklist empty.
		return s.BulkCreateFromExtraction(ctx, bidID, extract.FallbackDrafts(), sourceDocumentID)
	}

	return s.store.BulkCreateRequirements(ctx, bidID, reqs)
}

func (s *RequirementService) Create(ctx context.Context, bidID, description, notes string) (*models.Requirement, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &models.ValidationError{Reason: "description is required"}
	}

	req := &models.Requirement{
		ID:          uuid.New().String(),
		BidID:       bidID,
		Description: description,
		Notes:       notes,
	}
	if err := s.store.CreateRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// RequirementPatch updates description, notes or the fulfilled flag; each
// field moves independently so two collaborators toggling different rows
// never conflict.
type RequirementPatch struct {
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
	Fulfilled   *bool   `json:"fulfilled"`
}

func (s *RequirementService) Update(ctx context.Context, id string, patch RequirementPatch) (*models.Requirement, error) {
	req, err := s.store.GetRequirement(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		if desc == "" {
			return nil, &models.ValidationError{Reason: "description is required"}
		}
		req.Description = desc
	}
	if patch.Notes != nil {
		req.Notes = *patch.Notes
	}
	if patch.Fulfilled != nil {
		req.Fulfilled = *patch.Fulfilled
	}

	if err := s.store.UpdateRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequirementService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteRequirement(ctx, id)
}

// List returns the checklist ascending by display order, in any bid status.
func (s *RequirementService) List(ctx context.Context, bidID string) ([]models.Requirement, error) {
	if _, err := s.store.GetBid(ctx, bidID); err != nil {
		return nil, err
	}
	return s.store.ListRequirements(ctx, bidID)
}
