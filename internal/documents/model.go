package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document statuses. Transitions happen only through a registered operation;
// a status with no registered operation is inert for the worker.
const (
	StatusDraft            = "DRAFT"
	StatusPendingProvider  = "PENDING_PROVIDER"
	StatusProviderUploaded = "PROVIDER_UPLOADED"
	StatusCancelRequested  = "CANCEL_REQUESTED"
	StatusResendRequested  = "RESEND_REQUESTED"
	StatusSigned           = "SIGNED"
	StatusDeclined         = "DECLINED"
	StatusCancelled        = "CANCELLED"
	StatusFailed           = "FAILED"
)

// Recipient statuses.
const (
	RecipientStatusPending  = "pending"
	RecipientStatusSent     = "sent"
	RecipientStatusSigned   = "signed"
	RecipientStatusDeclined = "declined"
)

// Document represents a persisted document moving through the signing lifecycle.
type Document struct {
	ID                 string
	Title              string
	ExternalRef        string
	Status             string
	ProviderName       string
	ProviderDocumentID string
	StorageKey         string
	ErrorMessage       string
	Recipients         []Recipient
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Recipient is a person required to sign or acknowledge a document.
type Recipient struct {
	ID                  string
	DocumentID          string
	RoleID              string
	Email               string
	Name                string
	SignerOrder         int
	Status              string
	ProviderRecipientID string
	SigningURL          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewID returns a fresh document or recipient identifier.
func NewID() string {
	return uuid.NewString()
}

// IsTerminal reports whether a status should never be processed again.
func IsTerminal(status string) bool {
	switch status {
	case StatusSigned, StatusDeclined, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// OperationResult is produced by an operation and consumed by the worker.
// It is never persisted directly; only its effects are.
type OperationResult struct {
	NewStatus          string
	ErrorMessage       string
	ProviderName       string
	ProviderDocumentID string
	RecipientUpdates   []RecipientUpdate
}

// Failed reports whether the result carries a business-rule failure.
func (r *OperationResult) Failed() bool {
	return r.ErrorMessage != ""
}

// RecipientUpdate is a partial update to a single recipient.
type RecipientUpdate struct {
	RecipientID         string
	ProviderRecipientID string
	SigningURL          string
	NewStatus           string
}
