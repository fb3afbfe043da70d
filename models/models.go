package models

import (
	"time"

	"github.com/lib/pq"
)

// BidStatus is the lifecycle state of a licitação. Wire values are fixed by
// the API contract.
type BidStatus string

const (
	StatusUnderReview BidStatus = "UNDER_REVIEW"
	StatusInProgress  BidStatus = "IN_PROGRESS"
	StatusClosed      BidStatus = "CLOSED"
	StatusCancelled   BidStatus = "CANCELLED"
	StatusSuspended   BidStatus = "SUSPENDED"
	StatusFailed      BidStatus = "FAILED"
	StatusNoBidders   BidStatus = "NO_BIDDERS"
)

func (s BidStatus) Valid() bool {
	switch s {
	case StatusUnderReview, StatusInProgress, StatusClosed,
		StatusCancelled, StatusSuspended, StatusFailed, StatusNoBidders:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition exists from s.
func (s BidStatus) Terminal() bool {
	switch s {
	case StatusClosed, StatusCancelled, StatusSuspended, StatusFailed, StatusNoBidders:
		return true
	}
	return false
}

// Modalidade de licitação (Lei 8.666/93 e Lei 14.133/21).
type Modality string

const (
	ModalityPregaoEletronico Modality = "pregao_eletronico"
	ModalityPregaoPresencial Modality = "pregao_presencial"
	ModalityConcorrencia     Modality = "concorrencia"
	ModalityTomadaDePrecos   Modality = "tomada_de_precos"
	ModalityConvite          Modality = "convite"
	ModalityLeilao           Modality = "leilao"
	ModalityConcurso         Modality = "concurso"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityPregaoEletronico, ModalityPregaoPresencial, ModalityConcorrencia,
		ModalityTomadaDePrecos, ModalityConvite, ModalityLeilao, ModalityConcurso:
		return true
	}
	return false
}

// Bid (licitação) is the bid opportunity being tracked.
type Bid struct {
	ID              string         `db:"id" json:"id"`
	Number          string         `db:"number" json:"number"`
	Organ           string         `db:"organ" json:"organ"`
	Object          string         `db:"object" json:"object"`
	Modality        Modality       `db:"modality" json:"modality"`
	OpeningAt       time.Time      `db:"opening_at" json:"openingAt"`
	EndAt           time.Time      `db:"end_at" json:"endAt"`
	EstimatedValue  Cents          `db:"estimated_value" json:"estimatedValue"`
	EstimatedProfit Cents          `db:"estimated_profit" json:"estimatedProfit"`
	Sectors         pq.StringArray `db:"sectors" json:"sectors"`
	Status          BidStatus      `db:"status" json:"status"`

	// Set together, atomically, by the closing transaction. Nil otherwise.
	FinalValue  *Cents     `db:"final_value" json:"finalValue,omitempty"`
	FinalProfit *Cents     `db:"final_profit" json:"finalProfit,omitempty"`
	Won         *bool      `db:"won" json:"won,omitempty"`
	LossReason  *string    `db:"loss_reason" json:"lossReason,omitempty"`
	ClosedAt    *time.Time `db:"closed_at" json:"closedAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// ClosingOutcome carries the financial result recorded when a bid closes.
// Build it through WonOutcome or LostOutcome so the loss reason cannot be
// forgotten on the lost path.
type ClosingOutcome struct {
	FinalValue  Cents  `json:"finalValue"`
	FinalProfit Cents  `json:"finalProfit"`
	Won         bool   `json:"won"`
	LossReason  string `json:"lossReason,omitempty"`
}

func WonOutcome(value, profit Cents) ClosingOutcome {
	return ClosingOutcome{FinalValue: value, FinalProfit: profit, Won: true}
}

func LostOutcome(value, profit Cents, reason string) ClosingOutcome {
	return ClosingOutcome{FinalValue: value, FinalProfit: profit, LossReason: reason}
}

// Validate checks the outcome shape. Final profit may be negative: a won
// contract can still be executed at a loss.
func (o ClosingOutcome) Validate() error {
	if o.FinalValue < 0 {
		return &ValidationError{Reason: "finalValue must be a non-negative amount"}
	}
	if !o.Won && o.LossReason == "" {
		return &ValidationError{Reason: "lossReason is required when the bid was lost"}
	}
	return nil
}

// DocumentScope: a document belongs to a client or to a bid, never both.
type DocumentScope string

const (
	ScopeClient DocumentScope = "client"
	ScopeBid    DocumentScope = "bid"
)

func (s DocumentScope) Valid() bool {
	return s == ScopeClient || s == ScopeBid
}

// Document is a stored compliance document (documento_cliente or
// documento_licitacao depending on scope).
type Document struct {
	ID         string        `db:"id" json:"id"`
	Scope      DocumentScope `db:"scope" json:"scope"`
	OwnerID    string        `db:"owner_id" json:"ownerId"`
	TypeID     int           `db:"type_id" json:"typeId"`
	Name       string        `db:"name" json:"name"`
	ExpiresAt  *time.Time    `db:"expires_at" json:"expiresAt,omitempty"`
	Notes      string        `db:"notes" json:"notes"`
	BlobKey    string        `db:"blob_key" json:"-"`
	UploadedAt time.Time     `db:"uploaded_at" json:"uploadedAt"`
}

// DocumentType rows are seeded by migration. IsNotice marks the edital type
// whose upload drives requirement extraction.
type DocumentType struct {
	ID       int    `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	IsNotice bool   `db:"is_notice" json:"isNotice"`
}

// Requirement (requisito de documentação) is one compliance checklist row.
// Order is a display hint only; gaps after deletions are fine.
type Requirement struct {
	ID               string    `db:"id" json:"id"`
	BidID            string    `db:"licitacao_id" json:"bidId"`
	Description      string    `db:"description" json:"description"`
	Notes            string    `db:"notes" json:"notes"`
	Fulfilled        bool      `db:"fulfilled" json:"fulfilled"`
	Order            int       `db:"ord" json:"order"`
	SourceDocumentID *string   `db:"source_document_id" json:"sourceDocumentId,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}

// Client is the company participating in bids. Client-scoped documents hang
// off it independently of any licitação.
type Client struct {
	ID            string    `db:"id" json:"id"`
	CorporateName string    `db:"corporate_name" json:"corporateName"`
	CNPJ          string    `db:"cnpj" json:"cnpj"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
