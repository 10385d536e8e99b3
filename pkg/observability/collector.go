package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from seal/unseal operations.
type Collector struct {
	// Operation metrics
	filesSealed    atomic.Uint64
	filesUnsealed  atomic.Uint64
	sealFailures   atomic.Uint64
	unsealFailures atomic.Uint64
	sealLatency    *Histogram
	unsealLatency  *Histogram

	// Payload metrics
	bytesSealed   atomic.Uint64
	bytesUnsealed atomic.Uint64
	chunksWritten atomic.Uint64
	chunksRead    atomic.Uint64

	// Recipient metrics
	recipientsWrapped      atomic.Uint64
	recipientWrapFailures  atomic.Uint64
	recipientTrialFailures atomic.Uint64

	// Signature metrics
	signaturesVerified     atomic.Uint64
	signatureFailures      atomic.Uint64
	untrustedSignerBlocked atomic.Uint64

	// AEAD metrics
	chunkAEADFailures atomic.Uint64
	chunkEncryptLat   *Histogram
	chunkDecryptLat   *Histogram

	createdAt time.Time
	labels    Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// Default bucket configurations for histograms.
var (
	// OperationLatencyBuckets bounds whole-file Seal/Unseal durations (milliseconds).
	OperationLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}

	// ChunkLatencyBuckets bounds per-chunk AEAD durations (microseconds).
	ChunkLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500}
)

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}
	return &Collector{
		sealLatency:     NewHistogram(OperationLatencyBuckets),
		unsealLatency:   NewHistogram(OperationLatencyBuckets),
		chunkEncryptLat: NewHistogram(ChunkLatencyBuckets),
		chunkDecryptLat: NewHistogram(ChunkLatencyBuckets),
		createdAt:       time.Now(),
		labels:          labels,
	}
}

// --- Operation metrics ---

// RecordSeal records a completed seal operation and its duration.
func (c *Collector) RecordSeal(d time.Duration) {
	c.filesSealed.Add(1)
	c.sealLatency.Observe(float64(d.Milliseconds()))
}

// RecordSealFailure records a failed seal attempt.
func (c *Collector) RecordSealFailure() {
	c.sealFailures.Add(1)
}

// RecordUnseal records a completed unseal operation and its duration.
func (c *Collector) RecordUnseal(d time.Duration) {
	c.filesUnsealed.Add(1)
	c.unsealLatency.Observe(float64(d.Milliseconds()))
}

// RecordUnsealFailure records a failed unseal attempt.
func (c *Collector) RecordUnsealFailure() {
	c.unsealFailures.Add(1)
}

// --- Payload metrics ---

// RecordBytesSealed adds to the sealed-bytes counter.
func (c *Collector) RecordBytesSealed(n uint64) {
	c.bytesSealed.Add(n)
}

// RecordBytesUnsealed adds to the unsealed-bytes counter.
func (c *Collector) RecordBytesUnsealed(n uint64) {
	c.bytesUnsealed.Add(n)
}

// RecordChunkWritten increments the written-chunk counter.
func (c *Collector) RecordChunkWritten() {
	c.chunksWritten.Add(1)
}

// RecordChunkRead increments the read-chunk counter.
func (c *Collector) RecordChunkRead() {
	c.chunksRead.Add(1)
}

// --- Recipient metrics ---

// RecordRecipientWrapped records a successful per-recipient DEK wrap.
func (c *Collector) RecordRecipientWrapped() {
	c.recipientsWrapped.Add(1)
}

// RecordRecipientWrapFailure records a failed per-recipient DEK wrap.
func (c *Collector) RecordRecipientWrapFailure() {
	c.recipientWrapFailures.Add(1)
}

// RecordRecipientTrialFailure records one failed unwrap attempt in the
// trial-based recipient recovery loop (spec.md §4.6 step 3).
func (c *Collector) RecordRecipientTrialFailure() {
	c.recipientTrialFailures.Add(1)
}

// --- Signature metrics ---

// RecordSignatureVerified records a successful header signature verification.
func (c *Collector) RecordSignatureVerified() {
	c.signaturesVerified.Add(1)
}

// RecordSignatureFailure records a failed header signature verification.
func (c *Collector) RecordSignatureFailure() {
	c.signatureFailures.Add(1)
}

// RecordUntrustedSignerBlocked records a validly signed header rejected
// because its signer id was not present in the trust store.
func (c *Collector) RecordUntrustedSignerBlocked() {
	c.untrustedSignerBlocked.Add(1)
}

// --- AEAD metrics ---

// RecordChunkAEADFailure records a chunk that failed AEAD authentication.
func (c *Collector) RecordChunkAEADFailure() {
	c.chunkAEADFailures.Add(1)
}

// RecordChunkEncryptLatency records a single chunk's encryption duration.
func (c *Collector) RecordChunkEncryptLatency(d time.Duration) {
	c.chunkEncryptLat.Observe(float64(d.Microseconds()))
}

// RecordChunkDecryptLatency records a single chunk's decryption duration.
func (c *Collector) RecordChunkDecryptLatency(d time.Duration) {
	c.chunkDecryptLat.Observe(float64(d.Microseconds()))
}

// --- Snapshot ---

// Snapshot is a point-in-time view of all collected metrics.
type Snapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	FilesSealed    uint64
	FilesUnsealed  uint64
	SealFailures   uint64
	UnsealFailures uint64

	BytesSealed   uint64
	BytesUnsealed uint64
	ChunksWritten uint64
	ChunksRead    uint64

	RecipientsWrapped      uint64
	RecipientWrapFailures  uint64
	RecipientTrialFailures uint64

	SignaturesVerified     uint64
	SignatureFailures      uint64
	UntrustedSignerBlocked uint64

	ChunkAEADFailures uint64

	SealLatency     HistogramSummary
	UnsealLatency   HistogramSummary
	ChunkEncryptLat HistogramSummary
	ChunkDecryptLat HistogramSummary

	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:              time.Now(),
		Uptime:                 time.Since(c.createdAt),
		FilesSealed:            c.filesSealed.Load(),
		FilesUnsealed:          c.filesUnsealed.Load(),
		SealFailures:           c.sealFailures.Load(),
		UnsealFailures:         c.unsealFailures.Load(),
		BytesSealed:            c.bytesSealed.Load(),
		BytesUnsealed:          c.bytesUnsealed.Load(),
		ChunksWritten:          c.chunksWritten.Load(),
		ChunksRead:             c.chunksRead.Load(),
		RecipientsWrapped:      c.recipientsWrapped.Load(),
		RecipientWrapFailures:  c.recipientWrapFailures.Load(),
		RecipientTrialFailures: c.recipientTrialFailures.Load(),
		SignaturesVerified:     c.signaturesVerified.Load(),
		SignatureFailures:      c.signatureFailures.Load(),
		UntrustedSignerBlocked: c.untrustedSignerBlocked.Load(),
		ChunkAEADFailures:      c.chunkAEADFailures.Load(),
		SealLatency:            c.sealLatency.Summary(),
		UnsealLatency:          c.unsealLatency.Summary(),
		ChunkEncryptLat:        c.chunkEncryptLat.Summary(),
		ChunkDecryptLat:        c.chunkDecryptLat.Summary(),
		Labels:                 c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.filesSealed.Store(0)
	c.filesUnsealed.Store(0)
	c.sealFailures.Store(0)
	c.unsealFailures.Store(0)
	c.bytesSealed.Store(0)
	c.bytesUnsealed.Store(0)
	c.chunksWritten.Store(0)
	c.chunksRead.Store(0)
	c.recipientsWrapped.Store(0)
	c.recipientWrapFailures.Store(0)
	c.recipientTrialFailures.Store(0)
	c.signaturesVerified.Store(0)
	c.signatureFailures.Store(0)
	c.untrustedSignerBlocked.Store(0)
	c.chunkAEADFailures.Store(0)
	c.sealLatency.Reset()
	c.unsealLatency.Reset()
	c.chunkEncryptLat.Reset()
	c.chunkDecryptLat.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector, creating one with default
// settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector. Should be called during
// initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollector = c
}
