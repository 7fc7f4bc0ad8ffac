package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rxtrace/epcis-service/internal/database"
)

// ListRunsRequest represents query parameters for listing ingestion runs
type ListRunsRequest struct {
	Status string `form:"status" json:"status" jsonschema:"enum=running,enum=completed,enum=failed"`
	Limit  int    `form:"limit" json:"limit" binding:"min=0,max=100" jsonschema:"minimum=0,maximum=100"`
	Offset int    `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// ListRunsResponse represents the response for listing ingestion runs
type ListRunsResponse struct {
	Runs  []database.IngestionRun `json:"runs" jsonschema:"required"`
	Total int                     `json:"total" jsonschema:"required"`
}

// ListRuns returns a paginated list of batch ingestion runs
// GET /internal/runs
func ListRuns(c *gin.Context) {
	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runs, err := database.ListIngestionRuns(c.Request.Context(), req.Status, req.Limit, req.Offset)
	if err != nil {
		slog.Error("Failed to list ingestion runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs, Total: len(runs)})
}
