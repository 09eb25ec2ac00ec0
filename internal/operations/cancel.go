package operations

import (
	"context"
	"fmt"

	"signing-engine/internal/documents"
	"signing-engine/internal/shared/storage/object"
	"signing-engine/internal/signing"
)

// CancelStrategy cancels a CANCEL_REQUESTED document at the provider.
type CancelStrategy struct{}

func (s *CancelStrategy) Status() string {
	return documents.StatusCancelRequested
}

// Execute cancels the provider-side signing request. A document that was
// never uploaded has nothing to cancel; calling the provider with an empty
// identifier would be a malformed request, so that case fails fast without
// an adapter call.
func (s *CancelStrategy) Execute(ctx context.Context, doc *documents.Document, provider signing.Provider, store object.ObjectStore) (*documents.OperationResult, error) {
	if doc.ProviderDocumentID == "" {
		return failure("cannot cancel: document was never uploaded to the provider"), nil
	}

	if err := provider.CancelDocument(ctx, doc.ProviderDocumentID); err != nil {
		return nil, fmt.Errorf("cancel at provider: %w", err)
	}

	return &documents.OperationResult{NewStatus: documents.StatusCancelled}, nil
}
