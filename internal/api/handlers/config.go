package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

type ConfigHandler struct {
	store store.Store
}

func NewConfigHandler(s store.Store) *ConfigHandler {
	return &ConfigHandler{store: s}
}

// CreateConfigRequest is the trading config creation payload. Unset policy
// thresholds get the stock defaults.
type CreateConfigRequest struct {
	TradingMode models.TradingMode      `json:"trading_mode"`
	AutoExecute bool                    `json:"auto_execute"`
	Sizing      models.ManualSizing     `json:"sizing"`
	Autonomous  models.AutonomousPolicy `json:"autonomous"`
	Advisor     models.AdvisorPolicy    `json:"advisor"`
}

func (h *ConfigHandler) CreateConfig(c *gin.Context) {
	var req CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid config payload: "+err.Error())
		return
	}

	if req.Sizing.StartingCapital <= 0 {
		badRequest(c, "starting_capital must be positive")
		return
	}
	if req.Sizing.RiskTolerance < 0.01 || req.Sizing.RiskTolerance > 1.0 {
		badRequest(c, "risk_tolerance must be between 0.01 and 1.0")
		return
	}
	if req.Sizing.MaxPositionSize < 0.01 || req.Sizing.MaxPositionSize > 0.5 {
		badRequest(c, "max_position_size must be between 0.01 and 0.5")
		return
	}
	switch req.TradingMode {
	case "", models.ModeSimulation, models.ModeManual, models.ModeAutonomous, models.ModeAdvisorAssisted:
	default:
		badRequest(c, "unknown trading_mode")
		return
	}

	cfg := &models.TradingConfig{
		ID:          uuid.New().String(),
		TradingMode: req.TradingMode,
		AutoExecute: req.AutoExecute,
		Sizing:      req.Sizing,
		Autonomous:  req.Autonomous,
		Advisor:     req.Advisor,
		CreatedAt:   time.Now().UTC(),
	}
	if cfg.Sizing.BaseCurrency == "" {
		cfg.Sizing.BaseCurrency = "USD"
	}
	cfg.ApplyDefaults()

	if err := h.store.InsertConfig(c.Request.Context(), cfg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *ConfigHandler) GetConfig(c *gin.Context) {
	cfg, err := h.store.GetConfig(c.Request.Context(), c.Param("configID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
