package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/services"
	"github.com/finexa/fxarb/internal/store"
)

type StatusHandler struct {
	store     store.Store
	governors *services.Governors
}

func NewStatusHandler(s store.Store, governors *services.Governors) *StatusHandler {
	return &StatusHandler{store: s, governors: governors}
}

// GetAutonomousStatus reports the autonomous policy's governor state for one
// config.
func (h *StatusHandler) GetAutonomousStatus(c *gin.Context) {
	cfg, err := h.store.GetConfig(c.Request.Context(), c.Param("configID"))
	if err != nil {
		respondError(c, err)
		return
	}
	if cfg.TradingMode != models.ModeAutonomous {
		badRequest(c, "config is not in autonomous mode")
		return
	}

	status, err := h.governors.AutonomousGate(c.Request.Context(), cfg, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"config_id": cfg.ID,
		"active":    cfg.AutoExecute && !status.Suspended(),
		"status":    status,
	})
}

// GetAdvisorStatus reports the advisory-assisted policy's governor state for
// one config.
func (h *StatusHandler) GetAdvisorStatus(c *gin.Context) {
	cfg, err := h.store.GetConfig(c.Request.Context(), c.Param("configID"))
	if err != nil {
		respondError(c, err)
		return
	}
	if cfg.TradingMode != models.ModeAdvisorAssisted {
		badRequest(c, "config is not in advisory_assisted mode")
		return
	}

	status, err := h.governors.AdvisorGate(c.Request.Context(), cfg, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"config_id": cfg.ID,
		"active":    cfg.AutoExecute && !status.Suspended(),
		"status":    status,
	})
}
