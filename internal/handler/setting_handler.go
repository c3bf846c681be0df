package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/response"
)

type settingService interface {
	List(ctx context.Context) ([]models.SettingItem, error)
	Set(ctx context.Context, key, value string) (*models.SettingItem, error)
	CertificateBackground(ctx context.Context) (string, bool, error)
	SaveCertificateBackground(ctx context.Context, dataURL string) error
}

// SettingHandler exposes application settings to administrators.
type SettingHandler struct {
	service settingService
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(svc settingService) *SettingHandler {
	return &SettingHandler{service: svc}
}

// List godoc
// @Summary List settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Update godoc
// @Summary Set a setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body models.UpdateSettingRequest true "Value"
// @Success 200 {object} response.Envelope
// @Router /settings/{key} [put]
func (h *SettingHandler) Update(c *gin.Context) {
	var req models.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setting payload"))
		return
	}
	item, err := h.service.Set(c.Request.Context(), c.Param("key"), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// CertificateBackground godoc
// @Summary Get certificate background
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificate-background [get]
func (h *SettingHandler) CertificateBackground(c *gin.Context) {
	dataURL, present, err := h.service.CertificateBackground(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.CertificateBackgroundResponse{DataURL: dataURL, Present: present}, nil)
}

// SaveCertificateBackground godoc
// @Summary Replace certificate background
// @Description Send an empty dataUrl to go back to the default design
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.CertificateBackgroundRequest true "Image as data URL"
// @Success 200 {object} response.Envelope
// @Router /certificate-background [put]
func (h *SettingHandler) SaveCertificateBackground(c *gin.Context) {
	var req models.CertificateBackgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid background payload"))
		return
	}
	if err := h.service.SaveCertificateBackground(c.Request.Context(), req.DataURL); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.CertificateBackgroundResponse{DataURL: req.DataURL, Present: req.DataURL != ""}, nil)
}
