package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/services"
	"github.com/finexa/fxarb/internal/store"
)

type AdvisorHandler struct {
	store    store.Store
	book     *services.Book
	rates    market.RateSource
	advisor  *services.Advisor
	analysis *services.AnalysisService
}

func NewAdvisorHandler(s store.Store, book *services.Book, rates market.RateSource, advisor *services.Advisor, analysis *services.AnalysisService) *AdvisorHandler {
	return &AdvisorHandler{store: s, book: book, rates: rates, advisor: advisor, analysis: analysis}
}

// MarketSentiment returns the advisor's read of the current market. Always
// answers; without an API key the response is the labeled mock.
func (h *AdvisorHandler) MarketSentiment(c *gin.Context) {
	sentiment := h.advisor.MarketSentiment(c.Request.Context(), h.rates.Snapshot(), h.analysis.Summary())
	c.JSON(http.StatusOK, gin.H{
		"sentiment":  sentiment,
		"configured": h.advisor.Configured(),
		"timestamp":  time.Now().UTC(),
	})
}

// RiskAssessment returns the advisor's risk read on one opportunity.
func (h *AdvisorHandler) RiskAssessment(c *gin.Context) {
	opp, err := h.book.Get(c.Param("opportunityID"))
	if err != nil {
		respondError(c, err)
		return
	}

	assessment := h.advisor.AssessRisk(c.Request.Context(), opp)
	c.JSON(http.StatusOK, gin.H{
		"opportunity_id": opp.ID,
		"assessment":     assessment,
		"configured":     h.advisor.Configured(),
		"timestamp":      time.Now().UTC(),
	})
}

// TradingRecommendation returns the advisor's ranked recommendation over the
// current opportunities for one config.
func (h *AdvisorHandler) TradingRecommendation(c *gin.Context) {
	cfg, err := h.store.GetConfig(c.Request.Context(), c.Param("configID"))
	if err != nil {
		respondError(c, err)
		return
	}

	recommendation := h.advisor.TradeRecommendation(c.Request.Context(), h.book.Snapshot(), cfg)
	c.JSON(http.StatusOK, gin.H{
		"config_id":      cfg.ID,
		"recommendation": recommendation,
		"configured":     h.advisor.Configured(),
		"timestamp":      time.Now().UTC(),
	})
}
