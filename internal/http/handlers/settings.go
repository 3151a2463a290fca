package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/http/response"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type SettingsHandler struct {
	settings services.SettingsService
}

func NewSettingsHandler(settings services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GET /api/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	view, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// PUT /api/settings/thresholds
func (h *SettingsHandler) UpdateThresholds(c *gin.Context) {
	var in types.RiskThresholds
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, malformed(err))
		return
	}
	out, err := h.settings.UpdateThresholds(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Risk thresholds updated", "risk_thresholds": out})
}

// PUT /api/settings/alerts
func (h *SettingsHandler) UpdateAlerts(c *gin.Context) {
	var in types.AlertSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, malformed(err))
		return
	}
	out, err := h.settings.UpdateAlerts(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Alert settings updated", "alerts": out})
}

// PUT /api/settings/vendor-rules
func (h *SettingsHandler) UpdateVendorRules(c *gin.Context) {
	var in types.VendorRules
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, malformed(err))
		return
	}
	out, err := h.settings.UpdateVendorRules(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Vendor rules updated", "vendor_rules": out})
}

// POST /api/settings/ml/test
func (h *SettingsHandler) TestMLConnection(c *gin.Context) {
	health, err := h.settings.TestMLConnection(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, health)
}
