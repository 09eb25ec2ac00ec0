package operations

import (
	"context"

	"signing-engine/internal/documents"
	"signing-engine/internal/shared/storage/object"
	"signing-engine/internal/signing"
)

// ConfirmStrategy finishes the upload handshake for PENDING_PROVIDER
// documents. Normally the provider identifiers were already persisted and
// the document just advances; when the worker crashed between the provider
// call and the database write the ProviderDocumentID is empty and the
// upload is performed again.
type ConfirmStrategy struct {
	upload UploadStrategy
}

func (s *ConfirmStrategy) Status() string {
	return documents.StatusPendingProvider
}

func (s *ConfirmStrategy) Execute(ctx context.Context, doc *documents.Document, provider signing.Provider, store object.ObjectStore) (*documents.OperationResult, error) {
	if doc.ProviderDocumentID != "" {
		return &documents.OperationResult{
			NewStatus:          documents.StatusProviderUploaded,
			ProviderName:       doc.ProviderName,
			ProviderDocumentID: doc.ProviderDocumentID,
		}, nil
	}

	result, err := s.upload.Execute(ctx, doc, provider, store)
	if err != nil || result.Failed() {
		return result, err
	}
	result.NewStatus = documents.StatusProviderUploaded
	return result, nil
}
