package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/services"
)

type MarketHandler struct {
	rates    market.RateSource
	book     *services.Book
	analysis *services.AnalysisService
}

func NewMarketHandler(rates market.RateSource, book *services.Book, analysis *services.AnalysisService) *MarketHandler {
	return &MarketHandler{rates: rates, book: book, analysis: analysis}
}

// GetMarketData serves the latest per-broker rate snapshot.
func (h *MarketHandler) GetMarketData(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rates":     h.rates.Snapshot(),
		"timestamp": time.Now().UTC(),
	})
}

// GetOpportunities serves the current ranked opportunity list.
func (h *MarketHandler) GetOpportunities(c *gin.Context) {
	opportunities := h.book.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"opportunities": opportunities,
		"count":         len(opportunities),
		"version":       h.book.Version(),
		"timestamp":     time.Now().UTC(),
	})
}

// GetMarketAnalysis serves the indicator state for every pair with enough
// history.
func (h *MarketHandler) GetMarketAnalysis(c *gin.Context) {
	analyses := h.analysis.AnalyzeAll()
	c.JSON(http.StatusOK, gin.H{
		"analysis":  analyses,
		"count":     len(analyses),
		"timestamp": time.Now().UTC(),
	})
}
