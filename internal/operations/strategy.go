package operations

import (
	"context"

	"signing-engine/internal/documents"
	"signing-engine/internal/shared/storage/object"
	"signing-engine/internal/signing"
)

// Strategy performs the single operation associated with one document status.
//
// Execute separates two failure channels: a business-rule violation is
// reported inside the result (NewStatus FAILED plus ErrorMessage) with a nil
// error and is persisted immediately; a transient fault (storage, provider
// HTTP) is returned as a raw error with a nil result, leaving the document
// untouched so the next poll cycle retries it. Strategies must therefore be
// safe to re-run against the same document.
type Strategy interface {
	// Status returns the document status this strategy handles.
	Status() string

	// Execute runs the operation against one document.
	Execute(ctx context.Context, doc *documents.Document, provider signing.Provider, store object.ObjectStore) (*documents.OperationResult, error)
}

// failure builds a business-failure result.
func failure(message string) *documents.OperationResult {
	return &documents.OperationResult{
		NewStatus:    documents.StatusFailed,
		ErrorMessage: message,
	}
}
