package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"licitacoes/models"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Cliente

func (s *Storage) CreateClient(ctx context.Context, c *models.Client) error {
	query := `
        INSERT INTO client (id, corporate_name, cnpj)
        VALUES ($1, $2, $3)
        RETURNING created_at`
	return s.db.QueryRowContext(ctx, query, c.ID, c.CorporateName, c.CNPJ).
		Scan(&c.CreatedAt)
}

func (s *Storage) GetClient(ctx context.Context, id string) (*models.Client, error) {
	c := &models.Client{}
	query := `SELECT * FROM client WHERE id=$1`
	if err := s.db.GetContext(ctx, c, query, id); err != nil {
		return nil, mapNotFound(err, "client", id)
	}
	return c, nil
}

func (s *Storage) ListClients(ctx context.Context, limit, offset int) ([]models.Client, error) {
	clients := []models.Client{}
	query := `SELECT * FROM client ORDER BY corporate_name ASC LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &clients, query, limit, offset)
	return clients, err
}

// Licitação

func (s *Storage) CreateBid(ctx context.Context, b *models.Bid) error {
	query := `
        INSERT INTO licitacao
            (id, number, organ, object, modality, opening_at, end_at,
             estimated_value, estimated_profit, sectors, status)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		b.ID, b.Number, b.Organ, b.Object, b.Modality, b.OpeningAt, b.EndAt,
		b.EstimatedValue, b.EstimatedProfit, b.Sectors, b.Status).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (s *Storage) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM licitacao WHERE id=$1`
	if err := s.db.GetContext(ctx, b, query, id); err != nil {
		return nil, mapNotFound(err, "bid", id)
	}
	return b, nil
}

// UpdateBid persists core fields only. Status and the closing columns are
// owned by ConfirmBid/CloseBid and never change through this path.
func (s *Storage) UpdateBid(ctx context.Context, b *models.Bid) error {
	query := `
        UPDATE licitacao
        SET number=$1, organ=$2, object=$3, modality=$4, opening_at=$5,
            end_at=$6, estimated_value=$7, estimated_profit=$8, sectors=$9,
            updated_at=NOW()
        WHERE id=$10`
	res, err := s.db.ExecContext(ctx, query,
		b.Number, b.Organ, b.Object, b.Modality, b.OpeningAt,
		b.EndAt, b.EstimatedValue, b.EstimatedProfit, b.Sectors, b.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "bid", b.ID)
}

type BidFilter struct {
	Statuses   []models.BidStatus
	Modalities []models.Modality
	Limit      int
	Offset     int
}

func (s *Storage) ListBids(ctx context.Context, f BidFilter) ([]models.Bid, error) {
	baseQuery := `SELECT * FROM licitacao`
	var conds []string
	var args []interface{}

	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, v := range f.Statuses {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if len(f.Modalities) > 0 {
		placeholders := make([]string, len(f.Modalities))
		for i, v := range f.Modalities {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, fmt.Sprintf("modality IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := baseQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY opening_at DESC"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)

	bids := []models.Bid{}
	err := s.db.SelectContext(ctx, &bids, query, args...)
	return bids, err
}

// ConfirmBid promotes UNDER_REVIEW to IN_PROGRESS. The row is locked so the
// status check and the update see the same state.
func (s *Storage) ConfirmBid(ctx context.Context, id string) (*models.Bid, error) {
	var b *models.Bid
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		cur, err := lockBid(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Status != models.StatusUnderReview {
			return &models.InvalidStateError{Op: "confirm", Status: cur.Status}
		}
		query := `
            UPDATE licitacao SET status=$1, updated_at=NOW()
            WHERE id=$2
            RETURNING *`
		b = &models.Bid{}
		return tx.GetContext(ctx, b, query, models.StatusInProgress, id)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CloseBid records the closing outcome. The four outcome fields, closed_at
// and the CLOSED status land in a single transaction; the status gate is
// re-read under a row lock, not trusted from the caller.
func (s *Storage) CloseBid(ctx context.Context, id string, outcome models.ClosingOutcome) (*models.Bid, error) {
	var b *models.Bid
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		cur, err := lockBid(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Status != models.StatusInProgress {
			return &models.InvalidStateError{Op: "close", Status: cur.Status}
		}
		var reason *string
		if !outcome.Won {
			reason = &outcome.LossReason
		}
		query := `
            UPDATE licitacao
            SET status=$1, final_value=$2, final_profit=$3, won=$4,
                loss_reason=$5, closed_at=NOW(), updated_at=NOW()
            WHERE id=$6
            RETURNING *`
		b = &models.Bid{}
		return tx.GetContext(ctx, b, query,
			models.StatusClosed, outcome.FinalValue, outcome.FinalProfit,
			outcome.Won, reason, id)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AbortBid moves an IN_PROGRESS or UNDER_REVIEW bid into one of the
// non-CLOSED terminal states (cancelled, suspended, failed, no bidders).
func (s *Storage) AbortBid(ctx context.Context, id string, to models.BidStatus) (*models.Bid, error) {
	if !to.Terminal() || to == models.StatusClosed {
		return nil, &models.ValidationError{Reason: fmt.Sprintf("status %s is not an abort state", to)}
	}
	var b *models.Bid
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		cur, err := lockBid(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return &models.InvalidStateError{Op: "abort", Status: cur.Status}
		}
		query := `
            UPDATE licitacao SET status=$1, updated_at=NOW()
            WHERE id=$2
            RETURNING *`
		b = &models.Bid{}
		return tx.GetContext(ctx, b, query, to, id)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func lockBid(ctx context.Context, tx *sqlx.Tx, id string) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM licitacao WHERE id=$1 FOR UPDATE`
	if err := tx.GetContext(ctx, b, query, id); err != nil {
		return nil, mapNotFound(err, "bid", id)
	}
	return b, nil
}

// gateBid re-reads the bid status inside the caller's transaction and fails
// unless it is IN_PROGRESS. FOR SHARE lets concurrent checklist and document
// writes proceed in parallel while still conflicting with the FOR UPDATE the
// lifecycle transitions take, so no gated write can commit around a close.
func gateBid(ctx context.Context, tx *sqlx.Tx, id, op string) error {
	var status models.BidStatus
	query := `SELECT status FROM licitacao WHERE id=$1 FOR SHARE`
	if err := tx.GetContext(ctx, &status, query, id); err != nil {
		return mapNotFound(err, "bid", id)
	}
	if status != models.StatusInProgress {
		return &models.InvalidStateError{Op: op, Status: status}
	}
	return nil
}

// Documento

// CreateDocument inserts the record; for bid-scoped documents the status gate
// runs in the same transaction as the insert.
func (s *Storage) CreateDocument(ctx context.Context, d *models.Document) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if d.Scope == models.ScopeBid {
			if err := gateBid(ctx, tx, d.OwnerID, "document upload"); err != nil {
				return err
			}
		}
		query := `
            INSERT INTO documento
                (id, scope, owner_id, type_id, name, expires_at, notes, blob_key)
            VALUES
                ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING uploaded_at`
		return tx.QueryRowContext(ctx, query,
			d.ID, d.Scope, d.OwnerID, d.TypeID, d.Name, d.ExpiresAt, d.Notes, d.BlobKey).
			Scan(&d.UploadedAt)
	})
}

func (s *Storage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	d := &models.Document{}
	query := `SELECT * FROM documento WHERE id=$1`
	if err := s.db.GetContext(ctx, d, query, id); err != nil {
		return nil, mapNotFound(err, "document", id)
	}
	return d, nil
}

func (s *Storage) UpdateDocumentMeta(ctx context.Context, id string, expiresAt *time.Time, notes string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var d models.Document
		if err := tx.GetContext(ctx, &d,
			`SELECT * FROM documento WHERE id=$1 FOR UPDATE`, id); err != nil {
			return mapNotFound(err, "document", id)
		}
		if d.Scope == models.ScopeBid {
			if err := gateBid(ctx, tx, d.OwnerID, "document update"); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE documento SET expires_at=$1, notes=$2 WHERE id=$3`, expiresAt, notes, id)
		if err != nil {
			return err
		}
		return requireRow(res, "document", id)
	})
}

// DeleteDocument removes the record and, when cascadeRequirements is set,
// the owning bid's whole requirement set in the same transaction. Bid-scoped
// deletions gate on the bid status inside that transaction.
func (s *Storage) DeleteDocument(ctx context.Context, id string, cascadeRequirements bool) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var d models.Document
		if err := tx.GetContext(ctx, &d, `SELECT * FROM documento WHERE id=$1 FOR UPDATE`, id); err != nil {
			return mapNotFound(err, "document", id)
		}
		if d.Scope == models.ScopeBid {
			if err := gateBid(ctx, tx, d.OwnerID, "document delete"); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documento WHERE id=$1`, id); err != nil {
			return err
		}
		if cascadeRequirements {
			_, err := tx.ExecContext(ctx, `DELETE FROM requisito WHERE licitacao_id=$1`, d.OwnerID)
			return err
		}
		return nil
	})
}

func (s *Storage) ListDocuments(ctx context.Context, scope models.DocumentScope, ownerID string) ([]models.Document, error) {
	docs := []models.Document{}
	query := `SELECT * FROM documento WHERE scope=$1 AND owner_id=$2 ORDER BY uploaded_at ASC`
	err := s.db.SelectContext(ctx, &docs, query, scope, ownerID)
	return docs, err
}

// CountNoticeDocuments counts the bid's documents whose type is a notice
// (edital). Used to decide whether a deletion removes the last notice.
func (s *Storage) CountNoticeDocuments(ctx context.Context, bidID string) (int, error) {
	var count int
	query := `
        SELECT COUNT(1)
        FROM documento d
        JOIN document_type t ON d.type_id = t.id
        WHERE d.scope='bid' AND d.owner_id=$1 AND t.is_notice`
	err := s.db.GetContext(ctx, &count, query, bidID)
	return count, err
}

func (s *Storage) GetDocumentType(ctx context.Context, id int) (*models.DocumentType, error) {
	t := &models.DocumentType{}
	query := `SELECT * FROM document_type WHERE id=$1`
	if err := s.db.GetContext(ctx, t, query, id); err != nil {
		return nil, mapNotFound(err, "document type", fmt.Sprintf("%d", id))
	}
	return t, nil
}

func (s *Storage) ListDocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	types := []models.DocumentType{}
	query := `SELECT * FROM document_type ORDER BY id ASC`
	err := s.db.SelectContext(ctx, &types, query)
	return types, err
}

// Requisito

func (s *Storage) CreateRequirement(ctx context.Context, r *models.Requirement) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := gateBid(ctx, tx, r.BidID, "requirement create"); err != nil {
			return err
		}
		query := `
            INSERT INTO requisito
                (id, licitacao_id, description, notes, fulfilled, ord, source_document_id)
            VALUES
                ($1, $2, $3, $4, $5,
                 (SELECT COALESCE(MAX(ord), 0) + 1 FROM requisito WHERE licitacao_id=$2),
                 $6)
            RETURNING ord, created_at`
		return tx.QueryRowContext(ctx, query,
			r.ID, r.BidID, r.Description, r.Notes, r.Fulfilled, r.SourceDocumentID).
			Scan(&r.Order, &r.CreatedAt)
	})
}

func (s *Storage) GetRequirement(ctx context.Context, id string) (*models.Requirement, error) {
	r := &models.Requirement{}
	query := `SELECT * FROM requisito WHERE id=$1`
	if err := s.db.GetContext(ctx, r, query, id); err != nil {
		return nil, mapNotFound(err, "requirement", id)
	}
	return r, nil
}

func (s *Storage) UpdateRequirement(ctx context.Context, r *models.Requirement) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var bidID string
		if err := tx.GetContext(ctx, &bidID,
			`SELECT licitacao_id FROM requisito WHERE id=$1 FOR UPDATE`, r.ID); err != nil {
			return mapNotFound(err, "requirement", r.ID)
		}
		if err := gateBid(ctx, tx, bidID, "requirement update"); err != nil {
			return err
		}
		query := `
            UPDATE requisito
            SET description=$1, notes=$2, fulfilled=$3
            WHERE id=$4`
		res, err := tx.ExecContext(ctx, query, r.Description, r.Notes, r.Fulfilled, r.ID)
		if err != nil {
			return err
		}
		return requireRow(res, "requirement", r.ID)
	})
}

// DeleteRequirement removes the row without renumbering the remaining ord
// values. Order is a display hint, not a dense index.
func (s *Storage) DeleteRequirement(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var bidID string
		if err := tx.GetContext(ctx, &bidID,
			`SELECT licitacao_id FROM requisito WHERE id=$1 FOR UPDATE`, id); err != nil {
			return mapNotFound(err, "requirement", id)
		}
		if err := gateBid(ctx, tx, bidID, "requirement delete"); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM requisito WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return requireRow(res, "requirement", id)
	})
}

func (s *Storage) ListRequirements(ctx context.Context, bidID string) ([]models.Requirement, error) {
	reqs := []models.Requirement{}
	query := `SELECT * FROM requisito WHERE licitacao_id=$1 ORDER BY ord ASC`
	err := s.db.SelectContext(ctx, &reqs, query, bidID)
	return reqs, err
}

// BulkCreateRequirements inserts extracted drafts with contiguous orders
// after the current maximum. The existence re-check inside the transaction
// is the idempotence guard: a second extraction for the same bid without an
// intervening deletion inserts nothing and reports 0.
func (s *Storage) BulkCreateRequirements(ctx context.Context, bidID string, reqs []models.Requirement) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	inserted := 0
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := gateBid(ctx, tx, bidID, "requirement bulk create"); err != nil {
			return err
		}
		var existing int
		if err := tx.GetContext(ctx, &existing,
			`SELECT COUNT(1) FROM requisito WHERE licitacao_id=$1`, bidID); err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		query := `
            INSERT INTO requisito
                (id, licitacao_id, description, notes, fulfilled, ord, source_document_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`
		for i := range reqs {
			r := &reqs[i]
			r.BidID = bidID
			r.Order = i + 1
			if _, err := tx.ExecContext(ctx, query,
				r.ID, r.BidID, r.Description, r.Notes, r.Fulfilled, r.Order, r.SourceDocumentID); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func mapNotFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
