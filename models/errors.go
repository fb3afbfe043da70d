package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the API distinguishes. Concrete
// error types below unwrap to these so callers can use errors.Is without
// caring which operation produced the failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("operation not permitted in current bid status")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("blob storage failure")
	ErrExtraction   = errors.New("text extraction failed")
)

// ValidationError is a business-rule violation, surfaced verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError carries the authoritative status so the caller can
// explain why the mutation was refused.
type InvalidStateError struct {
	Op     string
	Status BidStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not permitted: bid status is %s", e.Op, e.Status)
}
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorageError wraps a blob put/remove failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("blob %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return ErrStorage }

// ExtractionError is non-fatal to the upload that triggered it; the document
// persists and the caller is informed alongside success.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return "extraction: " + e.Err.Error() }
func (e *ExtractionError) Unwrap() error { return ErrExtraction }
