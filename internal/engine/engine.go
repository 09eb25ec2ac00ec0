package engine

import (
	"context"
	"sync"
	"time"

	"signing-engine/internal/documents"
	"signing-engine/internal/events"
	"signing-engine/internal/operations"
	"signing-engine/internal/shared/metrics"
	"signing-engine/internal/shared/storage/object"
	"signing-engine/internal/shared/telemetry"
	"signing-engine/internal/signing"
)

// Options tunes the polling loop.
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

// Engine polls for documents in actionable statuses and runs the operation
// registered for each one.
type Engine struct {
	repo      documents.Repo
	store     object.ObjectStore
	provider  signing.Provider
	registry  *operations.Registry
	publisher events.Publisher
	opts      Options
}

// New assembles an engine. A nil publisher disables event delivery.
func New(repo documents.Repo, store object.ObjectStore, provider signing.Provider, registry *operations.Registry, publisher events.Publisher, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 10
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Engine{
		repo:      repo,
		store:     store,
		provider:  provider,
		registry:  registry,
		publisher: publisher,
		opts:      opts,
	}
}

// Run polls until the context is cancelled. Each tick processes one batch to
// completion before the next tick is honored, so a slow provider cannot pile
// up overlapping batches.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	telemetry.Info("worker.started", map[string]any{
		"poll_interval": e.opts.PollInterval.String(),
		"batch_size":    e.opts.BatchSize,
		"concurrency":   e.opts.Concurrency,
		"provider":      e.provider.Name(),
		"statuses":      e.registry.Statuses(),
	})

	for {
		select {
		case <-ctx.Done():
			telemetry.Info("worker.stopped", map[string]any{"reason": ctx.Err().Error()})
			return ctx.Err()
		case <-ticker.C:
			e.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch fetches and processes one batch of actionable documents.
func (e *Engine) ProcessBatch(ctx context.Context) {
	start := time.Now()

	docs, err := e.repo.FindByStatuses(ctx, e.registry.Statuses(), e.opts.BatchSize)
	if err != nil {
		telemetry.Error("worker.batch.fetch_failed", map[string]any{"error": err.Error()})
		return
	}
	if len(docs) == 0 {
		return
	}

	telemetry.Info("worker.batch", map[string]any{"count": len(docs)})

	sem := make(chan struct{}, e.opts.Concurrency)
	var wg sync.WaitGroup
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(d *documents.Document) {
			defer wg.Done()
			defer func() { <-sem }()
			e.processDocument(ctx, d)
		}(doc)
	}
	wg.Wait()

	metrics.IncBatches()
	metrics.ObserveBatchDurationMs(float64(time.Since(start)) / float64(time.Millisecond))
}

// processDocument runs the strategy for one document and persists the
// outcome. A raw strategy error leaves the document untouched; the next
// poll cycle picks it up again.
func (e *Engine) processDocument(ctx context.Context, doc *documents.Document) {
	strategy, ok := e.registry.Get(doc.Status)
	if !ok {
		metrics.IncDocumentsSkipped()
		return
	}

	result, err := strategy.Execute(ctx, doc, e.provider, e.store)
	if err != nil {
		metrics.IncDocumentsFailed()
		telemetry.Error("worker.document.failed", map[string]any{
			"document_id": doc.ID,
			"status":      doc.Status,
			"error":       err.Error(),
		})
		return
	}

	if result.Failed() {
		if err := e.repo.UpdateDocumentStatus(ctx, doc.ID, result.NewStatus, result.ErrorMessage); err != nil {
			metrics.IncDocumentsFailed()
			telemetry.Error("worker.document.persist_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
			return
		}
		metrics.IncDocumentsFailed()
		telemetry.Warn("worker.operation.rejected", map[string]any{
			"document_id": doc.ID,
			"status":      doc.Status,
			"new_status":  result.NewStatus,
			"error":       result.ErrorMessage,
		})
		e.publish(ctx, doc, result)
		return
	}

	if err := e.repo.UpdateDocumentFromResult(ctx, doc.ID, result); err != nil {
		metrics.IncDocumentsFailed()
		telemetry.Error("worker.document.persist_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return
	}

	// Recipient updates are independent of each other and of the document
	// row, which is already committed by now.
	for _, update := range result.RecipientUpdates {
		if err := e.repo.UpdateRecipientFromResult(ctx, update); err != nil {
			metrics.IncRecipientUpdatesFailed()
			telemetry.Error("worker.recipient.failed", map[string]any{
				"document_id":  doc.ID,
				"recipient_id": update.RecipientID,
				"error":        err.Error(),
			})
		}
	}

	metrics.IncDocumentsProcessed()
	telemetry.Info("worker.operation.completed", map[string]any{
		"document_id": doc.ID,
		"status":      doc.Status,
		"new_status":  result.NewStatus,
		"recipients":  len(result.RecipientUpdates),
	})
	e.publish(ctx, doc, result)
}

// publish delivers a status-change event. Failures are logged only.
func (e *Engine) publish(ctx context.Context, doc *documents.Document, result *documents.OperationResult) {
	providerName := result.ProviderName
	if providerName == "" {
		providerName = doc.ProviderName
	}
	providerDocumentID := result.ProviderDocumentID
	if providerDocumentID == "" {
		providerDocumentID = doc.ProviderDocumentID
	}

	event := events.StatusChanged{
		DocumentID:         doc.ID,
		OldStatus:          doc.Status,
		NewStatus:          result.NewStatus,
		ProviderName:       providerName,
		ProviderDocumentID: providerDocumentID,
		OccurredAt:         time.Now().UTC().Format(time.RFC3339),
		Version:            1,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		telemetry.Error("worker.event.publish_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
}
