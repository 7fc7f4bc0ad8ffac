// Package metrics exposes Prometheus instrumentation for document
// processing and barcode reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// documentsProcessed tracks processed uploads by outcome.
	documentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epcis_documents_processed_total",
		Help: "Total number of processed EPCIS uploads by outcome",
	}, []string{"outcome"}) // outcome: accepted, rejected

	// validationFailures tracks rejections by error code.
	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epcis_validation_failures_total",
		Help: "Total number of validation failures by error code",
	}, []string{"code"})

	// parseDuration tracks extraction time by parse mode.
	parseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "epcis_parse_duration_seconds",
		Help:    "Time taken to validate and extract one document",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 60},
	}, []string{"mode"}) // mode: full, stream

	// documentSizeBytes tracks the distribution of upload sizes.
	documentSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "epcis_document_size_bytes",
		Help:    "Size of uploaded EPCIS documents in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	// productItemsExtracted tracks items per accepted document.
	productItemsExtracted = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "epcis_product_items_extracted",
		Help:    "Number of product items extracted per accepted document",
		Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000},
	})

	// scansTotal tracks reconciled scans by match tier.
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epcis_scans_total",
		Help: "Total number of reconciled barcode scans by match tier",
	}, []string{"tier"})

	// scanUnstructured counts payloads that fell back to the raw format.
	scanUnstructured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epcis_scans_unstructured_total",
		Help: "Total number of scans not recognized as GS1 AI payloads",
	})
)

// RecordDocumentAccepted records a successful upload
func RecordDocumentAccepted(size int64, itemCount int, mode string, duration time.Duration) {
	documentsProcessed.WithLabelValues("accepted").Inc()
	documentSizeBytes.Observe(float64(size))
	productItemsExtracted.Observe(float64(itemCount))
	parseDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordDocumentRejected records a failed upload
func RecordDocumentRejected(code string) {
	documentsProcessed.WithLabelValues("rejected").Inc()
	validationFailures.WithLabelValues(code).Inc()
}

// RecordScan records one reconciled scan
func RecordScan(tier string, structured bool) {
	scansTotal.WithLabelValues(tier).Inc()
	if !structured {
		scanUnstructured.Inc()
	}
}
