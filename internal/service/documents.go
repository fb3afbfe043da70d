package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"licitacoes/internal/blob"
	"licitacoes/internal/extract"
	"licitacoes/internal/logger"
	"licitacoes/models"
)

// DocumentService owns the document ledger: upload with compensating blob
// cleanup, state-gated deletion with the notice cascade, and listing.
type DocumentService struct {
	store        StorageInterface
	blobs        blob.Store
	requirements *RequirementService
	maxSize      int64
	urlTTL       time.Duration
}

func NewDocumentService(store StorageInterface, blobs blob.Store, requirements *RequirementService, maxSize int64, urlTTL time.Duration) *DocumentService {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &DocumentService{
		store:        store,
		blobs:        blobs,
		requirements: requirements,
		maxSize:      maxSize,
		urlTTL:       urlTTL,
	}
}

// MaxUploadBytes is the configured per-file ceiling. The HTTP layer sizes its
// request bound from it.
func (s *DocumentService) MaxUploadBytes() int64 {
	return s.maxSize
}

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type UploadInput struct {
	Scope     models.DocumentScope
	OwnerID   string
	FileName  string
	Size      int64
	Content   io.Reader
	TypeID    int
	ExpiresAt *time.Time
	Notes     string
}

// UploadResult reports partial success explicitly: the document may persist
// while requirement extraction failed.
type UploadResult struct {
	Document          *models.Document `json:"document"`
	ExtractionRan     bool             `json:"extractionRan"`
	ExtractionFailed  bool             `json:"extractionFailed"`
	ExtractionError   string           `json:"extractionError,omitempty"`
	RequirementsAdded int              `json:"requirementsAdded"`
}

func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if !in.Scope.Valid() {
		return nil, &models.ValidationError{Reason: "invalid document scope"}
	}
	ext := strings.ToLower(filepath.Ext(in.FileName))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, &models.ValidationError{Reason: fmt.Sprintf("file type %q is not allowed", ext)}
	}
	if in.Size > s.maxSize {
		return nil, &models.ValidationError{Reason: fmt.Sprintf("file exceeds the %d byte limit", s.maxSize)}
	}

	docType, err := s.store.GetDocumentType(ctx, in.TypeID)
	if err != nil {
		return nil, err
	}

	// Pre-check against the stored status so a refused upload never writes a
	// blob. The insert transaction re-checks the gate; that one is binding.
	if in.Scope == models.ScopeBid {
		if _, err := requireInProgress(ctx, s.store, in.OwnerID, "document upload"); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.store.GetClient(ctx, in.OwnerID); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(io.LimitReader(in.Content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, &models.ValidationError{Reason: fmt.Sprintf("file exceeds the %d byte limit", s.maxSize)}
	}
	if len(data) == 0 {
		return nil, &models.ValidationError{Reason: "file is empty"}
	}

	doc := &models.Document{
		ID:        uuid.New().String(),
		Scope:     in.Scope,
		OwnerID:   in.OwnerID,
		TypeID:    in.TypeID,
		Name:      in.FileName,
		ExpiresAt: in.ExpiresAt,
		Notes:     in.Notes,
	}
	doc.BlobKey = fmt.Sprintf("%s/%s/%s/%s", in.Scope, in.OwnerID, doc.ID, sanitizeFileName(in.FileName))

	if err := s.blobs.Put(ctx, doc.BlobKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, &models.StorageError{Op: "put", Err: err}
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		// Compensate: the blob must not outlive a failed record insert.
		if rmErr := s.removeBlob(ctx, doc.BlobKey); rmErr != nil {
			logger.Error(ctx, "orphaned blob after failed document insert",
				"blob_key", doc.BlobKey, "error", rmErr)
		}
		return nil, err
	}

	result := &UploadResult{Document: doc}

	if docType.IsNotice && in.Scope == models.ScopeBid {
		result.ExtractionRan = true
		drafts, xerr := extract.Extract(in.FileName, data)
		if xerr != nil {
			// Non-fatal: the document stays, the caller learns extraction
			// did not populate the checklist.
			result.ExtractionFailed = true
			result.ExtractionError = xerr.Error()
			logger.Warn(ctx, "notice extraction failed",
				"document_id", doc.ID, "error", xerr)
			return result, nil
		}
		added, err := s.requirements.BulkCreateFromExtraction(ctx, in.OwnerID, drafts, doc.ID)
		if err != nil {
			result.ExtractionFailed = true
			result.ExtractionError = err.Error()
			logger.Warn(ctx, "requirement population failed",
				"document_id", doc.ID, "error", err)
			return result, nil
		}
		result.RequirementsAdded = added
	}

	return result, nil
}

// Delete removes the record first and the blob after the commit; a blob that
// outlives its record is retried once and otherwise only logged, never the
// other way around.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	cascade := false
	if doc.Scope == models.ScopeBid {
		docType, err := s.store.GetDocumentType(ctx, doc.TypeID)
		if err != nil {
			return err
		}
		if docType.IsNotice {
			notices, err := s.store.CountNoticeDocuments(ctx, doc.OwnerID)
			if err != nil {
				return err
			}
			// Last notice going away takes the requirements' provenance with
			// it; the checklist goes too.
			cascade = notices <= 1
		}
	}

	if err := s.store.DeleteDocument(ctx, id, cascade); err != nil {
		return err
	}

	if err := s.removeBlob(ctx, doc.BlobKey); err != nil {
		logger.Error(ctx, "blob removal failed after record delete",
			"blob_key", doc.BlobKey, "error", err)
	}
	return nil
}

// UpdateMeta edits the only mutable document fields: expiry and notes. The
// status gate for bid-scoped documents lives in the storage transaction.
func (s *DocumentService) UpdateMeta(ctx context.Context, id string, expiresAt *time.Time, notes string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateDocumentMeta(ctx, id, expiresAt, notes); err != nil {
		return nil, err
	}
	doc.ExpiresAt = expiresAt
	doc.Notes = notes
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, scope models.DocumentScope, ownerID string) ([]models.Document, error) {
	if !scope.Valid() {
		return nil, &models.ValidationError{Reason: "invalid document scope"}
	}
	return s.store.ListDocuments(ctx, scope, ownerID)
}

func (s *DocumentService) SignedURL(ctx context.Context, id string) (string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.SignedURL(ctx, doc.BlobKey, s.urlTTL)
	if err != nil {
		return "", &models.StorageError{Op: "sign", Err: err}
	}
	return url, nil
}

func (s *DocumentService) ListTypes(ctx context.Context) ([]models.DocumentType, error) {
	return s.store.ListDocumentTypes(ctx)
}

// removeBlob retries once; removal is idempotent.
func (s *DocumentService) removeBlob(ctx context.Context, key string) error {
	if err := s.blobs.Remove(ctx, key); err == nil {
		return nil
	}
	return s.blobs.Remove(ctx, key)
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '?', '#', '%':
			return '_'
		}
		return r
	}, name)
}
