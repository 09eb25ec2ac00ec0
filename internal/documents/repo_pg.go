package documents

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, title, external_ref, status, provider_name, provider_document_id, storage_key, error_message, created_at, updated_at`

// Create inserts a document and its recipients.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		doc.ID = NewID()
	}
	const query = `
INSERT INTO documents (id, title, external_ref, status, provider_name, provider_document_id, storage_key, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, $8)`

	if _, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		nullable(doc.Title),
		nullable(doc.ExternalRef),
		doc.Status,
		nullable(doc.ProviderName),
		nullable(doc.ProviderDocumentID),
		nullable(doc.StorageKey),
		doc.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	const recipientQuery = `
INSERT INTO document_recipients (id, document_id, role_id, email, name, signer_order, status, provider_recipient_id, signing_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	for _, rec := range doc.Recipients {
		if rec.ID == "" {
			rec.ID = NewID()
		}
		status := rec.Status
		if status == "" {
			status = RecipientStatusPending
		}
		if _, err := r.DB.ExecContext(
			ctx,
			recipientQuery,
			rec.ID,
			doc.ID,
			rec.RoleID,
			rec.Email,
			rec.Name,
			rec.SignerOrder,
			status,
			nullable(rec.ProviderRecipientID),
			nullable(rec.SigningURL),
			doc.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}
	return nil
}

// FindByStatus retrieves documents with the given status, oldest first.
func (r *PGRepo) FindByStatus(ctx context.Context, status string, limit int) ([]*Document, error) {
	return r.FindByStatuses(ctx, []string{status}, limit)
}

// FindByStatuses retrieves documents whose status is in the given set, oldest first.
func (r *PGRepo) FindByStatuses(ctx context.Context, statuses []string, limit int) ([]*Document, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, s)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s
FROM documents
WHERE status IN (%s)
ORDER BY created_at ASC
LIMIT $%d`, documentColumns, strings.Join(placeholders, ", "), len(statuses)+1)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	for _, doc := range docs {
		recipients, err := r.findRecipients(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("load recipients doc=%s: %w", doc.ID, err)
		}
		doc.Recipients = recipients
	}
	return docs, nil
}

func (r *PGRepo) findRecipients(ctx context.Context, documentID string) ([]Recipient, error) {
	const query = `
SELECT id, document_id, role_id, email, name, signer_order, status, provider_recipient_id, signing_url, created_at, updated_at
FROM document_recipients
WHERE document_id = $1
ORDER BY signer_order ASC`

	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var rec Recipient
		var providerRecipientID, signingURL sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.DocumentID,
			&rec.RoleID,
			&rec.Email,
			&rec.Name,
			&rec.SignerOrder,
			&rec.Status,
			&providerRecipientID,
			&signingURL,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if providerRecipientID.Valid {
			rec.ProviderRecipientID = providerRecipientID.String
		}
		if signingURL.Valid {
			rec.SigningURL = signingURL.String
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var title, externalRef, providerName, providerDocID, storageKey, errorMessage sql.NullString
	if err := row.Scan(
		&doc.ID,
		&title,
		&externalRef,
		&doc.Status,
		&providerName,
		&providerDocID,
		&storageKey,
		&errorMessage,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if title.Valid {
		doc.Title = title.String
	}
	if externalRef.Valid {
		doc.ExternalRef = externalRef.String
	}
	if providerName.Valid {
		doc.ProviderName = providerName.String
	}
	if providerDocID.Valid {
		doc.ProviderDocumentID = providerDocID.String
	}
	if storageKey.Valid {
		doc.StorageKey = storageKey.String
	}
	if errorMessage.Valid {
		doc.ErrorMessage = errorMessage.String
	}
	return &doc, nil
}

// UpdateDocumentStatus sets the document status and records or clears the error message.
func (r *PGRepo) UpdateDocumentStatus(ctx context.Context, id string, newStatus string, errorMessage string) error {
	const query = `
UPDATE documents
SET status = $1, error_message = $2, updated_at = NOW()
WHERE id = $3`

	res, err := r.DB.ExecContext(ctx, query, newStatus, nullable(errorMessage), id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res)
}

// UpdateDocumentFromResult applies a successful operation result to a document.
// The error message is cleared; provider fields are only overwritten when set.
func (r *PGRepo) UpdateDocumentFromResult(ctx context.Context, id string, result *OperationResult) error {
	const query = `
UPDATE documents
SET status = $1,
    provider_name = COALESCE(NULLIF($2, ''), provider_name),
    provider_document_id = COALESCE(NULLIF($3, ''), provider_document_id),
    error_message = NULL,
    updated_at = NOW()
WHERE id = $4`

	res, err := r.DB.ExecContext(ctx, query, result.NewStatus, result.ProviderName, result.ProviderDocumentID, id)
	if err != nil {
		return fmt.Errorf("update document from result: %w", err)
	}
	return requireRow(res)
}

// UpdateRecipientFromResult applies a partial recipient update.
func (r *PGRepo) UpdateRecipientFromResult(ctx context.Context, update RecipientUpdate) error {
	const query = `
UPDATE document_recipients
SET provider_recipient_id = COALESCE(NULLIF($1, ''), provider_recipient_id),
    signing_url = COALESCE(NULLIF($2, ''), signing_url),
    status = COALESCE(NULLIF($3, ''), status),
    updated_at = NOW()
WHERE id = $4`

	res, err := r.DB.ExecContext(ctx, query, update.ProviderRecipientID, update.SigningURL, update.NewStatus, update.RecipientID)
	if err != nil {
		return fmt.Errorf("update recipient from result: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
