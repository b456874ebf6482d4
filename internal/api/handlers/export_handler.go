// internal/api/handlers/export_handler.go
package handlers

import (
	"net/http"

	"part-request-portal-api-server/internal/api/apierror"
	"part-request-portal-api-server/internal/export"
	"part-request-portal-api-server/internal/requests"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExportHandler uploads the administrator list as CSV. Exporter is nil when
// no bucket is configured.
type ExportHandler struct {
	Controller *requests.Controller
	Exporter   *export.Exporter
	Logger     *zap.Logger
}

func (h *ExportHandler) ExportRequests(c *gin.Context) {
	if h.Exporter == nil {
		respondError(c, apierror.NewServiceUnavailable("export storage is not configured"))
		return
	}

	records, err := h.Controller.Records(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Exporter.Export(c.Request.Context(), records)
	if err != nil {
		h.Logger.Error("Failed to export part requests", zap.Error(err))
		respondError(c, apierror.NewInternalError("failed to export part requests"))
		return
	}
	c.JSON(http.StatusCreated, res)
}
