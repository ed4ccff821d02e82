package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	jobsClaimedTotal     atomic.Uint64
	jobsCompletedTotal   atomic.Uint64
	jobsFailedTotal      atomic.Uint64
	jobsQuotaDeniedTotal atomic.Uint64
	batchesRunTotal      atomic.Uint64

	extractDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 15000, 30000, 60000})
)

// IncJobsClaimed increments the claimed counter.
func IncJobsClaimed(n int) {
	if n > 0 {
		jobsClaimedTotal.Add(uint64(n))
	}
}

// IncJobCompleted increments the completed counter.
func IncJobCompleted() {
	jobsCompletedTotal.Add(1)
}

// IncJobFailed increments the failed counter.
func IncJobFailed() {
	jobsFailedTotal.Add(1)
}

// IncJobQuotaDenied increments the quota-denied counter.
func IncJobQuotaDenied() {
	jobsQuotaDeniedTotal.Add(1)
}

// IncBatchRun increments the batch-invocation counter.
func IncBatchRun() {
	batchesRunTotal.Add(1)
}

// ObserveExtractDurationMs records one job's extraction duration in milliseconds.
func ObserveExtractDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractDuration.Observe(value)
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
	writeCounter(&buf, "extract_jobs_claimed_total", "Total upload jobs claimed", jobsClaimedTotal.Load())
	writeCounter(&buf, "extract_jobs_completed_total", "Total upload jobs completed", jobsCompletedTotal.Load())
	writeCounter(&buf, "extract_jobs_failed_total", "Total upload jobs failed", jobsFailedTotal.Load())
	writeCounter(&buf, "extract_jobs_quota_denied_total", "Total upload jobs denied by quota", jobsQuotaDeniedTotal.Load())
	writeCounter(&buf, "extract_batches_run_total", "Total batch invocations", batchesRunTotal.Load())
	writeHistogram(&buf, "extract_duration_ms", "Per-job extraction duration in milliseconds", extractDuration.Snapshot())
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
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
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
