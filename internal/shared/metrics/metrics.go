package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	documentsProcessedTotal atomic.Uint64
	documentsFailedTotal    atomic.Uint64
	documentsSkippedTotal   atomic.Uint64
	recipientUpdatesFailed  atomic.Uint64
	batchesTotal            atomic.Uint64

	batchDuration = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000})
)

// IncDocumentsProcessed increments the processed-documents counter.
func IncDocumentsProcessed() {
	documentsProcessedTotal.Add(1)
}

// IncDocumentsFailed increments the failed-documents counter.
func IncDocumentsFailed() {
	documentsFailedTotal.Add(1)
}

// IncDocumentsSkipped increments the counter of documents with no registered operation.
func IncDocumentsSkipped() {
	documentsSkippedTotal.Add(1)
}

// IncRecipientUpdatesFailed increments the failed recipient update counter.
func IncRecipientUpdatesFailed() {
	recipientUpdatesFailed.Add(1)
}

// IncBatches increments the poll batch counter.
func IncBatches() {
	batchesTotal.Add(1)
}

// ObserveBatchDurationMs records a batch processing duration in milliseconds.
func ObserveBatchDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	batchDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "signing_documents_processed_total", "Total documents advanced by an operation", documentsProcessedTotal.Load())
	writeCounter(&buf, "signing_documents_failed_total", "Total documents that failed processing", documentsFailedTotal.Load())
	writeCounter(&buf, "signing_documents_skipped_total", "Total documents skipped for lack of a registered operation", documentsSkippedTotal.Load())
	writeCounter(&buf, "signing_recipient_updates_failed_total", "Total recipient updates that failed to persist", recipientUpdatesFailed.Load())
	writeCounter(&buf, "signing_batches_total", "Total poll batches executed", batchesTotal.Load())
	writeHistogram(&buf, "signing_batch_duration_ms", "Poll batch duration in milliseconds", batchDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// counts holds per-bucket tallies; writeHistogram accumulates them
	// into the cumulative values the text format expects.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for duration math.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
