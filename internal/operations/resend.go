package operations

import (
	"context"
	"fmt"

	"signing-engine/internal/documents"
	"signing-engine/internal/shared/storage/object"
	"signing-engine/internal/signing"
)

// ResendStrategy re-sends signature request notifications for a
// RESEND_REQUESTED document, then returns it to PROVIDER_UPLOADED.
type ResendStrategy struct{}

func (s *ResendStrategy) Status() string {
	return documents.StatusResendRequested
}

// Execute re-notifies every recipient who has not finished signing yet.
// Recipients without a ProviderRecipientID were never registered at the
// provider and are skipped.
func (s *ResendStrategy) Execute(ctx context.Context, doc *documents.Document, provider signing.Provider, store object.ObjectStore) (*documents.OperationResult, error) {
	if doc.ProviderDocumentID == "" {
		return failure("cannot resend: document was never uploaded to the provider"), nil
	}

	updates := make([]documents.RecipientUpdate, 0, len(doc.Recipients))
	for _, r := range doc.Recipients {
		if !awaitingSignature(r.Status) || r.ProviderRecipientID == "" {
			continue
		}
		if err := provider.ResendNotification(ctx, doc.ProviderDocumentID, r.ProviderRecipientID); err != nil {
			return nil, fmt.Errorf("resend notification recipient=%s: %w", r.ID, err)
		}
		updates = append(updates, documents.RecipientUpdate{
			RecipientID: r.ID,
			NewStatus:   documents.RecipientStatusSent,
		})
	}

	return &documents.OperationResult{
		NewStatus:        documents.StatusProviderUploaded,
		RecipientUpdates: updates,
	}, nil
}

func awaitingSignature(status string) bool {
	return status == documents.RecipientStatusPending || status == documents.RecipientStatusSent
}
