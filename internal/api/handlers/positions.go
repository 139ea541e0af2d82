package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/services"
	"github.com/finexa/fxarb/internal/store"
)

type PositionsHandler struct {
	store    store.Store
	executor *services.Executor
	rates    market.RateSource
}

func NewPositionsHandler(s store.Store, executor *services.Executor, rates market.RateSource) *PositionsHandler {
	return &PositionsHandler{store: s, executor: executor, rates: rates}
}

// GetOpenPositions lists a config's open positions marked to the latest
// snapshot rate.
func (h *PositionsHandler) GetOpenPositions(c *gin.Context) {
	configID := c.Param("id")
	if _, err := h.store.GetConfig(c.Request.Context(), configID); err != nil {
		respondError(c, err)
		return
	}

	positions, err := h.store.OpenPositions(c.Request.Context(), configID)
	if err != nil {
		respondError(c, err)
		return
	}

	snapshot := h.rates.Snapshot()
	for _, pos := range positions {
		if _, rate, ok := snapshot.RateFor(pos.CurrencyPair); ok {
			pos.MarkToMarket(rate)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"config_id": configID,
		"positions": positions,
		"count":     len(positions),
	})
}

// ClosePosition closes an open position at the current snapshot rate.
func (h *PositionsHandler) ClosePosition(c *gin.Context) {
	result, err := h.executor.ClosePosition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HedgePosition opens an opposite position against an open one.
func (h *PositionsHandler) HedgePosition(c *gin.Context) {
	result, err := h.executor.HedgePosition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
