package documents

import "context"

// Repo defines persistence operations for documents and recipients.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	FindByStatus(ctx context.Context, status string, limit int) ([]*Document, error)
	FindByStatuses(ctx context.Context, statuses []string, limit int) ([]*Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, newStatus string, errorMessage string) error
	UpdateDocumentFromResult(ctx context.Context, id string, result *OperationResult) error
	UpdateRecipientFromResult(ctx context.Context, update RecipientUpdate) error
}
