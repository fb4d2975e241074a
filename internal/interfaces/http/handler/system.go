package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/infrastructure/config"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

// SystemHandler serves health and readiness probes
type SystemHandler struct {
	BaseHandler
	cfg      *config.Config
	registry *tenant.Registry
}

// NewSystemHandler creates a system handler
func NewSystemHandler(cfg *config.Config, registry *tenant.Registry) *SystemHandler {
	return &SystemHandler{cfg: cfg, registry: registry}
}

// Health godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status":  "ok",
		"app":     h.cfg.App.Name,
		"env":     h.cfg.App.Env,
		"tenants": h.registry.IDs(),
	})
}
