package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

type HistoryHandler struct {
	store store.Store
}

func NewHistoryHandler(s store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// GetTradeHistory lists every trade recorded for a config, oldest first.
func (h *HistoryHandler) GetTradeHistory(c *gin.Context) {
	configID := c.Param("configID")
	if _, err := h.store.GetConfig(c.Request.Context(), configID); err != nil {
		respondError(c, err)
		return
	}

	trades, err := h.store.TradesByConfig(c.Request.Context(), configID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"config_id": configID,
		"trades":    trades,
		"count":     len(trades),
	})
}

// PerformanceResponse aggregates a config's trading results. Profit sums are
// decimal so the report does not accumulate float drift over long histories.
type PerformanceResponse struct {
	ConfigID      string                  `json:"config_id"`
	TotalTrades   int                     `json:"total_trades"`
	WinningTrades int                     `json:"winning_trades"`
	LosingTrades  int                     `json:"losing_trades"`
	WinRate       float64                 `json:"win_rate"`
	TotalProfit   decimal.Decimal         `json:"total_profit"`
	TotalLoss     decimal.Decimal         `json:"total_loss"`
	NetProfit     decimal.Decimal         `json:"net_profit"`
	Balances      []*models.BrokerBalance `json:"balances"`
	GeneratedAt   time.Time               `json:"generated_at"`
}

// GetPerformance aggregates trades and the broker balance ledger for a
// config.
func (h *HistoryHandler) GetPerformance(c *gin.Context) {
	configID := c.Param("configID")
	if _, err := h.store.GetConfig(c.Request.Context(), configID); err != nil {
		respondError(c, err)
		return
	}

	trades, err := h.store.TradesByConfig(c.Request.Context(), configID)
	if err != nil {
		respondError(c, err)
		return
	}
	balances, err := h.store.Balances(c.Request.Context(), configID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := PerformanceResponse{
		ConfigID:    configID,
		TotalTrades: len(trades),
		Balances:    balances,
		GeneratedAt: time.Now().UTC(),
	}
	for _, trade := range trades {
		profit := decimal.NewFromFloat(trade.Profit)
		resp.NetProfit = resp.NetProfit.Add(profit)
		if trade.Profit > 0 {
			resp.WinningTrades++
			resp.TotalProfit = resp.TotalProfit.Add(profit)
		} else if trade.Profit < 0 {
			resp.LosingTrades++
			resp.TotalLoss = resp.TotalLoss.Add(profit.Abs())
		}
	}
	if resp.TotalTrades > 0 {
		resp.WinRate = float64(resp.WinningTrades) / float64(resp.TotalTrades)
	}

	c.JSON(http.StatusOK, resp)
}
