package signing

import "context"

// Provider defines the contract for external e-signature services.
// Implementations do not retry internally; retry is the worker's job
// via the next poll cycle.
type Provider interface {
	// Name returns the stable provider identifier persisted on documents.
	Name() string

	// UploadDocument uploads a PDF payload and creates a signing request.
	UploadDocument(ctx context.Context, req *UploadRequest) (*UploadResult, error)

	// CancelDocument cancels a document that is pending signatures.
	CancelDocument(ctx context.Context, providerDocumentID string) error

	// ResendNotification re-notifies a specific recipient.
	ResendNotification(ctx context.Context, providerDocumentID string, providerRecipientID string) error
}

// UploadRequest contains the data needed to upload a document for signing.
type UploadRequest struct {
	PDF             []byte
	Title           string
	ExternalRef     string
	Recipients      []Recipient
	SignatureFields []SignatureFieldPlacement
}

// Recipient identifies a person who must sign the document.
type Recipient struct {
	Email       string
	Name        string
	RoleID      string
	SignerOrder int
}

// SignatureFieldPlacement positions a signature field on the document,
// expressed in percentages of the page dimensions.
type SignatureFieldPlacement struct {
	RoleID    string
	Page      int
	PositionX float64
	PositionY float64
	Width     float64
	Height    float64
}

// UploadResult is the provider's response to an upload.
type UploadResult struct {
	ProviderDocumentID string
	ProviderName       string
	Recipients         []RecipientResult
}

// RecipientResult carries the provider's identifiers for a single recipient.
type RecipientResult struct {
	RoleID              string
	ProviderRecipientID string
	SigningURL          string
}
