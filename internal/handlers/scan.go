package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rxtrace/epcis-service/internal/metrics"
	"github.com/rxtrace/epcis-service/internal/pkg/cuid2"
	"github.com/rxtrace/epcis-service/internal/reconcile"
	"github.com/rxtrace/epcis-service/internal/scan"
)

// ScanHandler handles barcode decoding and reconciliation endpoints
type ScanHandler struct {
	engine *reconcile.Engine
	docs   *DocumentsHandler
}

// NewScanHandler creates a new scan handler
func NewScanHandler(engine *reconcile.Engine, docs *DocumentsHandler) *ScanHandler {
	return &ScanHandler{engine: engine, docs: docs}
}

// ScanRequest carries one raw barcode payload
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// Decode parses a raw barcode payload into a structured code
// POST /api/scan
func (h *ScanHandler) Decode(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
		return
	}

	code := scan.Parse(req.Payload)
	c.JSON(http.StatusOK, gin.H{
		"scanId": cuid2.NewID("scan"),
		"code":   code,
	})
}

// Reconcile decodes a payload and matches it against a stored document's
// product items
// POST /api/documents/:id/reconcile
func (h *ScanHandler) Reconcile(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
		return
	}

	doc, ok := h.docs.loadDocument(c)
	if !ok {
		return
	}
	meta, err := doc.ExtractedMetadata()
	if err != nil {
		slog.Error("document metadata unreadable", "id", doc.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored metadata unreadable"})
		return
	}

	code := scan.Parse(req.Payload)
	best := h.engine.Best(code, meta.ProductItems)
	ranked := h.engine.RankAll(code, meta.ProductItems)
	metrics.RecordScan(best.TierName, code.IsStructuredFormat)

	c.JSON(http.StatusOK, gin.H{
		"scanId":     cuid2.NewID("scan"),
		"documentId": doc.ID,
		"code":       code,
		"bestMatch":  best,
		"candidates": ranked,
	})
}
