package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]*Document)}
}

// Create stores a document and its recipients.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == "" {
		doc.ID = NewID()
	}
	for i := range doc.Recipients {
		if doc.Recipients[i].ID == "" {
			doc.Recipients[i].ID = NewID()
		}
		doc.Recipients[i].DocumentID = doc.ID
		if doc.Recipients[i].Status == "" {
			doc.Recipients[i].Status = RecipientStatusPending
		}
	}
	clone := cloneDocument(&doc)
	r.docs[doc.ID] = clone
	return nil
}

// Get returns a copy of a document by ID.
func (r *MemoryRepo) Get(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// FindByStatus returns documents with the given status, oldest first.
func (r *MemoryRepo) FindByStatus(ctx context.Context, status string, limit int) ([]*Document, error) {
	return r.FindByStatuses(ctx, []string{status}, limit)
}

// FindByStatuses returns documents whose status is in the given set, oldest first.
func (r *MemoryRepo) FindByStatuses(ctx context.Context, statuses []string, limit int) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Document
	for _, doc := range r.docs {
		if _, ok := wanted[doc.Status]; ok {
			out = append(out, cloneDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateDocumentStatus sets the document status and error message.
func (r *MemoryRepo) UpdateDocumentStatus(ctx context.Context, id string, newStatus string, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = newStatus
	doc.ErrorMessage = errorMessage
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateDocumentFromResult applies a successful operation result.
func (r *MemoryRepo) UpdateDocumentFromResult(ctx context.Context, id string, result *OperationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = result.NewStatus
	doc.ErrorMessage = ""
	if result.ProviderName != "" {
		doc.ProviderName = result.ProviderName
	}
	if result.ProviderDocumentID != "" {
		doc.ProviderDocumentID = result.ProviderDocumentID
	}
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateRecipientFromResult applies a partial recipient update.
func (r *MemoryRepo) UpdateRecipientFromResult(ctx context.Context, update RecipientUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		for i := range doc.Recipients {
			if doc.Recipients[i].ID != update.RecipientID {
				continue
			}
			rec := &doc.Recipients[i]
			if update.ProviderRecipientID != "" {
				rec.ProviderRecipientID = update.ProviderRecipientID
			}
			if update.SigningURL != "" {
				rec.SigningURL = update.SigningURL
			}
			if update.NewStatus != "" {
				rec.Status = update.NewStatus
			}
			rec.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func cloneDocument(doc *Document) *Document {
	clone := *doc
	clone.Recipients = append([]Recipient(nil), doc.Recipients...)
	return &clone
}

var _ Repo = (*MemoryRepo)(nil)
