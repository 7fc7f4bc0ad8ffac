package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/rxtrace/epcis-service/internal/database"
	"github.com/rxtrace/epcis-service/internal/pipeline"
	"github.com/rxtrace/epcis-service/internal/types"
)

// DocumentsHandler handles EPCIS document HTTP endpoints
type DocumentsHandler struct {
	processor *pipeline.Processor
	maxUpload int64
}

// NewDocumentsHandler creates a new documents handler
func NewDocumentsHandler(processor *pipeline.Processor, maxUpload int64) *DocumentsHandler {
	return &DocumentsHandler{processor: processor, maxUpload: maxUpload}
}

// errorStatus maps validation error codes to HTTP statuses
func errorStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case types.ErrInvalidFileType, types.ErrZipNotSupported:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusUnprocessableEntity
	}
}

// Upload accepts one EPCIS XML file as multipart form data
// POST /api/documents
func (h *DocumentsHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if h.maxUpload > 0 && fileHeader.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file exceeds upload limit",
			"code":  types.ErrFileTooLarge,
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open upload"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}

	result, err := h.processor.Process(c.Request.Context(), pipeline.Upload{
		Filename: fileHeader.Filename,
		Content:  content,
	})
	if err != nil {
		slog.Error("document processing failed", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	if !result.Valid {
		c.JSON(errorStatus(result.ErrorCode), gin.H{
			"error": result.ErrorMessage,
			"code":  result.ErrorCode,
		})
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// List returns stored documents newest-first
// GET /api/documents?sender=...&limit=50&offset=0
func (h *DocumentsHandler) List(c *gin.Context) {
	filter := database.DocumentFilter{
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if sender := c.Query("sender"); sender != "" {
		filter.SenderIdentifier = &sender
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.StartDate = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.EndDate = &t
		}
	}

	documents, err := database.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		slog.Error("document list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": documents,
		"count":     len(documents),
	})
}

// Get returns one document with its full extracted metadata
// GET /api/documents/:id
func (h *DocumentsHandler) Get(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}

	meta, err := doc.ExtractedMetadata()
	if err != nil {
		slog.Error("document metadata unreadable", "id", doc.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored metadata unreadable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"metadata": meta,
	})
}

func (h *DocumentsHandler) loadDocument(c *gin.Context) (*database.Document, bool) {
	id := c.Param("id")
	doc, err := database.GetDocumentByID(c.Request.Context(), id)
	if err != nil {
		if err == pgx.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		} else {
			slog.Error("document lookup failed", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "document lookup failed"})
		}
		return nil, false
	}
	return doc, true
}

func parseIntQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
