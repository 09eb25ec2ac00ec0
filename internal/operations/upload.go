package operations

import (
	"context"
	"fmt"
	"io"

	"signing-engine/internal/documents"
	"signing-engine/internal/pdfinfo"
	"signing-engine/internal/shared/storage/object"
	"signing-engine/internal/signing"
)

// UploadStrategy moves a DRAFT document to the signing provider.
type UploadStrategy struct{}

func (s *UploadStrategy) Status() string {
	return documents.StatusDraft
}

// Execute uploads the document payload and records the provider identifiers.
// A document that already carries a ProviderDocumentID was uploaded by an
// earlier run whose persistence step was interrupted; it is moved forward
// without a second provider call.
func (s *UploadStrategy) Execute(ctx context.Context, doc *documents.Document, provider signing.Provider, store object.ObjectStore) (*documents.OperationResult, error) {
	if doc.ProviderDocumentID != "" {
		return &documents.OperationResult{
			NewStatus:          documents.StatusPendingProvider,
			ProviderName:       doc.ProviderName,
			ProviderDocumentID: doc.ProviderDocumentID,
		}, nil
	}

	if doc.StorageKey == "" {
		return failure("document has no payload storage key"), nil
	}
	if len(doc.Recipients) == 0 {
		return failure("document has no recipients"), nil
	}

	pdfData, err := readPayload(ctx, store, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download payload %s: %w", doc.StorageKey, err)
	}

	info, err := pdfinfo.Inspect(pdfData)
	if err != nil {
		return failure(fmt.Sprintf("invalid PDF payload: %v", err)), nil
	}
	if info.PageCount < 1 {
		return failure("invalid PDF payload: document has no pages"), nil
	}

	result, err := provider.UploadDocument(ctx, buildUploadRequest(doc, pdfData))
	if err != nil {
		return nil, fmt.Errorf("upload to provider: %w", err)
	}

	return buildUploadOperationResult(doc, result, documents.StatusPendingProvider), nil
}

func readPayload(ctx context.Context, store object.ObjectStore, storageKey string) ([]byte, error) {
	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func buildUploadRequest(doc *documents.Document, pdfData []byte) *signing.UploadRequest {
	title := doc.Title
	if title == "" {
		title = "Document " + shortID(doc.ID)
	}
	externalRef := doc.ExternalRef
	if externalRef == "" {
		externalRef = doc.ID
	}

	recipients := make([]signing.Recipient, 0, len(doc.Recipients))
	for _, r := range doc.Recipients {
		recipients = append(recipients, signing.Recipient{
			Email:       r.Email,
			Name:        r.Name,
			RoleID:      r.RoleID,
			SignerOrder: r.SignerOrder,
		})
	}

	return &signing.UploadRequest{
		PDF:         pdfData,
		Title:       title,
		ExternalRef: externalRef,
		Recipients:  recipients,
	}
}

func buildUploadOperationResult(doc *documents.Document, result *signing.UploadResult, newStatus string) *documents.OperationResult {
	recipientByRole := make(map[string]*documents.Recipient, len(doc.Recipients))
	for i := range doc.Recipients {
		recipientByRole[doc.Recipients[i].RoleID] = &doc.Recipients[i]
	}

	updates := make([]documents.RecipientUpdate, 0, len(result.Recipients))
	for _, pr := range result.Recipients {
		recipient, ok := recipientByRole[pr.RoleID]
		if !ok {
			continue
		}
		updates = append(updates, documents.RecipientUpdate{
			RecipientID:         recipient.ID,
			ProviderRecipientID: pr.ProviderRecipientID,
			SigningURL:          pr.SigningURL,
			NewStatus:           documents.RecipientStatusSent,
		})
	}

	return &documents.OperationResult{
		NewStatus:          newStatus,
		ProviderName:       result.ProviderName,
		ProviderDocumentID: result.ProviderDocumentID,
		RecipientUpdates:   updates,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
