package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"signing-engine/internal/documents"
	"signing-engine/internal/events"
	"signing-engine/internal/operations"
	"signing-engine/internal/signing"
)

// stubStore serves payloads from memory.
type stubStore struct {
	objects map[string][]byte
}

func (s *stubStore) Save(ctx context.Context, documentID, fileName string, r io.Reader) (string, int64, string, error) {
	return "", 0, "", errors.New("not implemented")
}

func (s *stubStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	data, ok := s.objects[storageKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", storageKey)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// stubProvider counts calls and allows per-document upload failures.
type stubProvider struct {
	mu        sync.Mutex
	uploads   int
	cancels   int
	failRefs  map[string]error
	nextSubID int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) UploadDocument(ctx context.Context, req *signing.UploadRequest) (*signing.UploadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failRefs[req.ExternalRef]; ok {
		return nil, err
	}
	p.uploads++
	p.nextSubID++
	result := &signing.UploadResult{
		ProviderDocumentID: fmt.Sprintf("prov-%d", p.nextSubID),
		ProviderName:       "stub",
		Recipients:         make([]signing.RecipientResult, 0, len(req.Recipients)),
	}
	for i, r := range req.Recipients {
		result.Recipients = append(result.Recipients, signing.RecipientResult{
			RoleID:              r.RoleID,
			ProviderRecipientID: fmt.Sprintf("pr-%d-%d", p.nextSubID, i),
			SigningURL:          "https://sign.example/" + r.RoleID,
		})
	}
	return result, nil
}

func (p *stubProvider) CancelDocument(ctx context.Context, providerDocumentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
	return nil
}

func (p *stubProvider) ResendNotification(ctx context.Context, providerDocumentID, providerRecipientID string) error {
	return nil
}

func validPDF() []byte {
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}
	var buf strings.Builder
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)
	return []byte(buf.String())
}

func seedDraft(t *testing.T, repo *documents.MemoryRepo, id string) {
	t.Helper()
	err := repo.Create(context.Background(), documents.Document{
		ID:         id,
		Title:      "Doc " + id,
		Status:     documents.StatusDraft,
		StorageKey: id + "/payload.pdf",
		Recipients: []documents.Recipient{
			{ID: id + "-rec-1", DocumentID: id, RoleID: "role-1", Email: id + "@example.com", SignerOrder: 1, Status: documents.RecipientStatusPending},
		},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func testEngine(repo documents.Repo, store *stubStore, provider *stubProvider, publisher events.Publisher) *Engine {
	return New(repo, store, provider, operations.NewRegistry(), publisher, Options{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		Concurrency:  2,
	})
}

func TestProcessBatchUploadsDrafts(t *testing.T) {
	repo := documents.NewMemoryRepo()
	store := &stubStore{objects: map[string][]byte{}}
	provider := &stubProvider{}
	publisher := events.NewMemoryPublisher()

	for _, id := range []string{"doc-1", "doc-2"} {
		seedDraft(t, repo, id)
		store.objects[id+"/payload.pdf"] = validPDF()
	}

	e := testEngine(repo, store, provider, publisher)
	e.ProcessBatch(context.Background())

	for _, id := range []string{"doc-1", "doc-2"} {
		doc, err := repo.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if doc.Status != documents.StatusPendingProvider {
			t.Fatalf("%s: expected %s, got %s", id, documents.StatusPendingProvider, doc.Status)
		}
		if doc.ProviderDocumentID == "" || doc.ProviderName != "stub" {
			t.Fatalf("%s: provider fields not stamped: %+v", id, doc)
		}
		if doc.Recipients[0].Status != documents.RecipientStatusSent {
			t.Fatalf("%s: recipient not updated: %+v", id, doc.Recipients[0])
		}
		if doc.Recipients[0].SigningURL == "" {
			t.Fatalf("%s: signing URL not stored", id)
		}
	}

	published := publisher.Events()
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	if published[0].OldStatus != documents.StatusDraft || published[0].NewStatus != documents.StatusPendingProvider {
		t.Fatalf("unexpected event: %+v", published[0])
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	repo := documents.NewMemoryRepo()
	store := &stubStore{objects: map[string][]byte{}}
	provider := &stubProvider{failRefs: map[string]error{"doc-bad": errors.New("provider 503")}}

	seedDraft(t, repo, "doc-bad")
	seedDraft(t, repo, "doc-good")
	store.objects["doc-bad/payload.pdf"] = validPDF()
	store.objects["doc-good/payload.pdf"] = validPDF()

	e := testEngine(repo, store, provider, nil)
	e.ProcessBatch(context.Background())

	good, _ := repo.Get(context.Background(), "doc-good")
	if good.Status != documents.StatusPendingProvider {
		t.Fatalf("healthy document must advance, got %s", good.Status)
	}

	// transient failure leaves the document untouched for a retry
	bad, _ := repo.Get(context.Background(), "doc-bad")
	if bad.Status != documents.StatusDraft {
		t.Fatalf("failed document must stay in DRAFT, got %s", bad.Status)
	}
	if bad.ErrorMessage != "" {
		t.Fatalf("transient failure must not persist an error message, got %q", bad.ErrorMessage)
	}
}

func TestProcessBatchPersistsBusinessFailure(t *testing.T) {
	repo := documents.NewMemoryRepo()
	err := repo.Create(context.Background(), documents.Document{
		ID:     "doc-nokey",
		Status: documents.StatusDraft,
		Recipients: []documents.Recipient{
			{ID: "r-1", DocumentID: "doc-nokey", RoleID: "role-1", Status: documents.RecipientStatusPending},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	publisher := events.NewMemoryPublisher()
	e := testEngine(repo, &stubStore{}, &stubProvider{}, publisher)
	e.ProcessBatch(context.Background())

	doc, _ := repo.Get(context.Background(), "doc-nokey")
	if doc.Status != documents.StatusFailed {
		t.Fatalf("expected %s, got %s", documents.StatusFailed, doc.Status)
	}
	if doc.ErrorMessage == "" {
		t.Fatalf("business failure must persist an error message")
	}

	published := publisher.Events()
	if len(published) != 1 || published[0].NewStatus != documents.StatusFailed {
		t.Fatalf("expected a FAILED event, got %+v", published)
	}
}

func TestProcessBatchSkipsUnregisteredStatuses(t *testing.T) {
	repo := documents.NewMemoryRepo()
	err := repo.Create(context.Background(), documents.Document{ID: "doc-1", Status: documents.StatusSigned})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	provider := &stubProvider{}
	e := testEngine(repo, &stubStore{}, provider, nil)
	e.ProcessBatch(context.Background())

	doc, _ := repo.Get(context.Background(), "doc-1")
	if doc.Status != documents.StatusSigned {
		t.Fatalf("terminal document must not change, got %s", doc.Status)
	}
	if provider.uploads != 0 || provider.cancels != 0 {
		t.Fatalf("provider must not be called for terminal documents")
	}
}

func TestProcessBatchCancelFlow(t *testing.T) {
	repo := documents.NewMemoryRepo()
	err := repo.Create(context.Background(), documents.Document{
		ID:                 "doc-1",
		Status:             documents.StatusCancelRequested,
		ProviderName:       "stub",
		ProviderDocumentID: "prov-9",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	provider := &stubProvider{}
	publisher := events.NewMemoryPublisher()
	e := testEngine(repo, &stubStore{}, provider, publisher)
	e.ProcessBatch(context.Background())

	doc, _ := repo.Get(context.Background(), "doc-1")
	if doc.Status != documents.StatusCancelled {
		t.Fatalf("expected %s, got %s", documents.StatusCancelled, doc.Status)
	}
	if provider.cancels != 1 {
		t.Fatalf("expected 1 cancel call, got %d", provider.cancels)
	}

	published := publisher.Events()
	if len(published) != 1 || published[0].ProviderDocumentID != "prov-9" {
		t.Fatalf("event must carry the provider document id, got %+v", published)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := documents.NewMemoryRepo()
	e := testEngine(repo, &stubStore{}, &stubProvider{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancellation")
	}
}

func TestDraftDocumentReachesProviderUploaded(t *testing.T) {
	repo := documents.NewMemoryRepo()
	store := &stubStore{objects: map[string][]byte{}}
	provider := &stubProvider{}

	err := repo.Create(context.Background(), documents.Document{
		ID:         "doc-1",
		Title:      "Lease",
		Status:     documents.StatusDraft,
		StorageKey: "doc-1/payload.pdf",
		Recipients: []documents.Recipient{
			{ID: "rec-1", DocumentID: "doc-1", RoleID: "role-1", Email: "a@example.com", SignerOrder: 1, Status: documents.RecipientStatusPending},
			{ID: "rec-2", DocumentID: "doc-1", RoleID: "role-2", Email: "b@example.com", SignerOrder: 2, Status: documents.RecipientStatusPending},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	store.objects["doc-1/payload.pdf"] = validPDF()

	e := testEngine(repo, store, provider, nil)

	// first pass uploads, second pass confirms
	e.ProcessBatch(context.Background())
	e.ProcessBatch(context.Background())

	doc, err := repo.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != documents.StatusProviderUploaded {
		t.Fatalf("expected %s, got %s", documents.StatusProviderUploaded, doc.Status)
	}
	if doc.ProviderDocumentID != "prov-1" {
		t.Fatalf("expected provider document id prov-1, got %q", doc.ProviderDocumentID)
	}
	if provider.uploads != 1 {
		t.Fatalf("expected exactly one provider upload, got %d", provider.uploads)
	}
	for _, rec := range doc.Recipients {
		if rec.ProviderRecipientID == "" || rec.SigningURL == "" {
			t.Fatalf("recipient %s missing provider identifiers: %+v", rec.ID, rec)
		}
		if rec.Status != documents.RecipientStatusSent {
			t.Fatalf("recipient %s not marked sent: %s", rec.ID, rec.Status)
		}
	}
}

// faultyRecipientRepo fails persistence for a single recipient ID.
type faultyRecipientRepo struct {
	*documents.MemoryRepo
	failID string
}

func (r *faultyRecipientRepo) UpdateRecipientFromResult(ctx context.Context, update documents.RecipientUpdate) error {
	if update.RecipientID == r.failID {
		return errors.New("recipient row locked")
	}
	return r.MemoryRepo.UpdateRecipientFromResult(ctx, update)
}

func TestProcessBatchRecipientFailureDoesNotBlockSiblings(t *testing.T) {
	mem := documents.NewMemoryRepo()
	repo := &faultyRecipientRepo{MemoryRepo: mem, failID: "doc-1-rec-1"}
	store := &stubStore{objects: map[string][]byte{"doc-1/payload.pdf": validPDF()}}
	provider := &stubProvider{}
	publisher := events.NewMemoryPublisher()

	err := mem.Create(context.Background(), documents.Document{
		ID:         "doc-1",
		Title:      "Doc doc-1",
		Status:     documents.StatusDraft,
		StorageKey: "doc-1/payload.pdf",
		Recipients: []documents.Recipient{
			{ID: "doc-1-rec-1", DocumentID: "doc-1", RoleID: "role-1", Email: "a@example.com", SignerOrder: 1, Status: documents.RecipientStatusPending},
			{ID: "doc-1-rec-2", DocumentID: "doc-1", RoleID: "role-2", Email: "b@example.com", SignerOrder: 2, Status: documents.RecipientStatusPending},
		},
	})
	if err != nil {
		t.Fatalf("seed doc-1: %v", err)
	}

	e := testEngine(repo, store, provider, publisher)
	e.ProcessBatch(context.Background())

	doc, err := mem.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get doc-1: %v", err)
	}
	if doc.Status != documents.StatusPendingProvider {
		t.Fatalf("document update must survive a recipient fault, got status %s", doc.Status)
	}
	if doc.ProviderDocumentID == "" {
		t.Fatalf("provider fields not stamped: %+v", doc)
	}
	if doc.Recipients[0].Status != documents.RecipientStatusPending || doc.Recipients[0].ProviderRecipientID != "" {
		t.Fatalf("failed recipient must stay unchanged: %+v", doc.Recipients[0])
	}
	if doc.Recipients[1].Status != documents.RecipientStatusSent || doc.Recipients[1].ProviderRecipientID == "" {
		t.Fatalf("sibling recipient must still update: %+v", doc.Recipients[1])
	}
	if len(publisher.Events()) != 1 {
		t.Fatalf("status change must still publish, got %d events", len(publisher.Events()))
	}
}
