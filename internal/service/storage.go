package service

import (
	"context"
	"time"

	"licitacoes/db"
	"licitacoes/models"
)

// StorageInterface is the persistence surface the services run on.
// *db.Storage satisfies it; tests substitute an in-memory fake.
type StorageInterface interface {
	CreateClient(ctx context.Context, c *models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context, limit, offset int) ([]models.Client, error)

	CreateBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	UpdateBid(ctx context.Context, b *models.Bid) error
	ListBids(ctx context.Context, f db.BidFilter) ([]models.Bid, error)
	ConfirmBid(ctx context.Context, id string) (*models.Bid, error)
	CloseBid(ctx context.Context, id string, outcome models.ClosingOutcome) (*models.Bid, error)
	AbortBid(ctx context.Context, id string, to models.BidStatus) (*models.Bid, error)

	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocumentMeta(ctx context.Context, id string, expiresAt *time.Time, notes string) error
	DeleteDocument(ctx context.Context, id string, cascadeRequirements bool) error
	ListDocuments(ctx context.Context, scope models.DocumentScope, ownerID string) ([]models.Document, error)
	CountNoticeDocuments(ctx context.Context, bidID string) (int, error)
	GetDocumentType(ctx context.Context, id int) (*models.DocumentType, error)
	ListDocumentTypes(ctx context.Context) ([]models.DocumentType, error)

	CreateRequirement(ctx context.Context, r *models.Requirement) error
	GetRequirement(ctx context.Context, id string) (*models.Requirement, error)
	UpdateRequirement(ctx context.Context, r *models.Requirement) error
	DeleteRequirement(ctx context.Context, id string) error
	ListRequirements(ctx context.Context, bidID string) ([]models.Requirement, error)
	BulkCreateRequirements(ctx context.Context, bidID string, reqs []models.Requirement) (int, error)
}

// requireInProgress reads the stored bid status and refuses unless it is
// IN_PROGRESS. This is a pre-check only; every gated storage write re-reads
// the status inside its own transaction, which is the guard of record.
func requireInProgress(ctx context.Context, store StorageInterface, bidID, op string) (*models.Bid, error) {
	bid, err := store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.Status != models.StatusInProgress {
		return nil, &models.InvalidStateError{Op: op, Status: bid.Status}
	}
	return bid, nil
}
