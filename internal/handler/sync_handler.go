package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/pkg/response"
)

type syncStatusSource interface {
	Status() []models.SyncStatus
}

type metricsSnapshotter interface {
	Snapshot() models.MetricsSnapshot
}

// SyncHandler reports how each collection last synchronised with the spreadsheet.
type SyncHandler struct {
	sync    syncStatusSource
	metrics metricsSnapshotter
}

// NewSyncHandler constructs a SyncHandler. metrics may be nil.
func NewSyncHandler(sync syncStatusSource, metrics metricsSnapshotter) *SyncHandler {
	return &SyncHandler{sync: sync, metrics: metrics}
}

// Status godoc
// @Summary Sync status
// @Description Latest fetch and send outcome per collection
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	var meta map[string]interface{}
	if h.metrics != nil {
		meta = map[string]interface{}{"metrics": h.metrics.Snapshot()}
	}
	response.JSON(c, http.StatusOK, h.sync.Status(), meta)
}
