package observability

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter exports metrics in Prometheus text format.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates a new Prometheus exporter for the given collector.
// The namespace is prepended to all metric names (e.g., "qsfs").
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := e.formatLabels(snap.Labels)

	// --- Operation Metrics ---
	e.writeHelp(w, "files_sealed_total", "Total number of files sealed")
	e.writeType(w, "files_sealed_total", "counter")
	e.writeMetric(w, "files_sealed_total", labels, float64(snap.FilesSealed))

	e.writeHelp(w, "files_unsealed_total", "Total number of files unsealed")
	e.writeType(w, "files_unsealed_total", "counter")
	e.writeMetric(w, "files_unsealed_total", labels, float64(snap.FilesUnsealed))

	e.writeHelp(w, "seal_failures_total", "Total number of failed seal attempts")
	e.writeType(w, "seal_failures_total", "counter")
	e.writeMetric(w, "seal_failures_total", labels, float64(snap.SealFailures))

	e.writeHelp(w, "unseal_failures_total", "Total number of failed unseal attempts")
	e.writeType(w, "unseal_failures_total", "counter")
	e.writeMetric(w, "unseal_failures_total", labels, float64(snap.UnsealFailures))

	// --- Payload Metrics ---
	e.writeHelp(w, "bytes_sealed_total", "Total plaintext bytes sealed")
	e.writeType(w, "bytes_sealed_total", "counter")
	e.writeMetric(w, "bytes_sealed_total", labels, float64(snap.BytesSealed))

	e.writeHelp(w, "bytes_unsealed_total", "Total plaintext bytes unsealed")
	e.writeType(w, "bytes_unsealed_total", "counter")
	e.writeMetric(w, "bytes_unsealed_total", labels, float64(snap.BytesUnsealed))

	e.writeHelp(w, "chunks_written_total", "Total chunks written")
	e.writeType(w, "chunks_written_total", "counter")
	e.writeMetric(w, "chunks_written_total", labels, float64(snap.ChunksWritten))

	e.writeHelp(w, "chunks_read_total", "Total chunks read")
	e.writeType(w, "chunks_read_total", "counter")
	e.writeMetric(w, "chunks_read_total", labels, float64(snap.ChunksRead))

	// --- Recipient Metrics ---
	e.writeHelp(w, "recipients_wrapped_total", "Total successful per-recipient DEK wraps")
	e.writeType(w, "recipients_wrapped_total", "counter")
	e.writeMetric(w, "recipients_wrapped_total", labels, float64(snap.RecipientsWrapped))

	e.writeHelp(w, "recipient_wrap_failures_total", "Total failed per-recipient DEK wraps")
	e.writeType(w, "recipient_wrap_failures_total", "counter")
	e.writeMetric(w, "recipient_wrap_failures_total", labels, float64(snap.RecipientWrapFailures))

	e.writeHelp(w, "recipient_trial_failures_total", "Total failed recipient-unwrap trials during recovery")
	e.writeType(w, "recipient_trial_failures_total", "counter")
	e.writeMetric(w, "recipient_trial_failures_total", labels, float64(snap.RecipientTrialFailures))

	// --- Signature Metrics ---
	e.writeHelp(w, "signatures_verified_total", "Total header signatures successfully verified")
	e.writeType(w, "signatures_verified_total", "counter")
	e.writeMetric(w, "signatures_verified_total", labels, float64(snap.SignaturesVerified))

	e.writeHelp(w, "signature_failures_total", "Total header signature verification failures")
	e.writeType(w, "signature_failures_total", "counter")
	e.writeMetric(w, "signature_failures_total", labels, float64(snap.SignatureFailures))

	e.writeHelp(w, "untrusted_signer_blocked_total", "Total validly signed headers rejected for an untrusted signer")
	e.writeType(w, "untrusted_signer_blocked_total", "counter")
	e.writeMetric(w, "untrusted_signer_blocked_total", labels, float64(snap.UntrustedSignerBlocked))

	// --- AEAD Metrics ---
	e.writeHelp(w, "chunk_aead_failures_total", "Total chunks that failed AEAD authentication")
	e.writeType(w, "chunk_aead_failures_total", "counter")
	e.writeMetric(w, "chunk_aead_failures_total", labels, float64(snap.ChunkAEADFailures))

	// --- Uptime ---
	e.writeHelp(w, "uptime_seconds", "Time since the collector was created")
	e.writeType(w, "uptime_seconds", "gauge")
	e.writeMetric(w, "uptime_seconds", labels, snap.Uptime.Seconds())

	// --- Histograms ---
	e.writeHistogram(w, "seal_duration_milliseconds", "Seal operation duration in milliseconds", labels, snap.SealLatency)
	e.writeHistogram(w, "unseal_duration_milliseconds", "Unseal operation duration in milliseconds", labels, snap.UnsealLatency)
	e.writeHistogram(w, "chunk_encrypt_duration_microseconds", "Per-chunk encryption duration in microseconds", labels, snap.ChunkEncryptLat)
	e.writeHistogram(w, "chunk_decrypt_duration_microseconds", "Per-chunk decryption duration in microseconds", labels, snap.ChunkDecryptLat)
}

// writeHelp writes a HELP line.
func (e *PrometheusExporter) writeHelp(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", e.namespace, name, help)
}

// writeType writes a TYPE line.
func (e *PrometheusExporter) writeType(w io.Writer, name, typ string) {
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", e.namespace, name, typ)
}

// writeMetric writes a single metric line.
func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	if labels != "" {
		fmt.Fprintf(w, "%s_%s{%s} %g\n", e.namespace, name, labels, value)
	} else {
		fmt.Fprintf(w, "%s_%s %g\n", e.namespace, name, value)
	}
}

// writeHistogram writes a histogram in Prometheus format.
func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h HistogramSummary) {
	e.writeHelp(w, name, help)
	e.writeType(w, name, "histogram")

	fullName := e.namespace + "_" + name

	for _, b := range h.Buckets {
		le := fmt.Sprintf("%g", b.UpperBound)
		if math.IsInf(b.UpperBound, 1) {
			le = "+Inf"
		}
		if labels != "" {
			fmt.Fprintf(w, "%s_bucket{%s,le=\"%s\"} %d\n", fullName, labels, le, b.Count)
		} else {
			fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", fullName, le, b.Count)
		}
	}

	if labels != "" {
		fmt.Fprintf(w, "%s_sum{%s} %g\n", fullName, labels, h.Sum)
		fmt.Fprintf(w, "%s_count{%s} %d\n", fullName, labels, h.Count)
	} else {
		fmt.Fprintf(w, "%s_sum %g\n", fullName, h.Sum)
		fmt.Fprintf(w, "%s_count %d\n", fullName, h.Count)
	}
}

// formatLabels converts Labels to Prometheus label format.
func (e *PrometheusExporter) formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := escapePromValue(labels[k])
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, v))
	}

	return strings.Join(parts, ",")
}

// escapePromValue escapes a string for use as a Prometheus label value.
func escapePromValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

