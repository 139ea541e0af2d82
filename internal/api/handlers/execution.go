package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/services"
	"github.com/finexa/fxarb/internal/store"
)

type ExecutionHandler struct {
	store    store.Store
	book     *services.Book
	executor *services.Executor
	advisor  *services.Advisor
}

func NewExecutionHandler(s store.Store, book *services.Book, executor *services.Executor, advisor *services.Advisor) *ExecutionHandler {
	return &ExecutionHandler{store: s, book: book, executor: executor, advisor: advisor}
}

type executeRequest struct {
	ConfigID string `json:"config_id" binding:"required"`
}

// ExecuteTrade runs the request-driven manual path for an opportunity. It
// works for configs in any trading mode.
func (h *ExecutionHandler) ExecuteTrade(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "config_id is required")
		return
	}

	cfg, err := h.store.GetConfig(c.Request.Context(), req.ConfigID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.executor.ExecuteManual(c.Request.Context(), c.Param("opportunityID"), cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdvisorExecuteTrade asks the advisor for a decision on the opportunity and
// executes only an explicit execute verdict. The config must be in
// advisory-assisted mode.
func (h *ExecutionHandler) AdvisorExecuteTrade(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "config_id is required")
		return
	}

	cfg, err := h.store.GetConfig(c.Request.Context(), req.ConfigID)
	if err != nil {
		respondError(c, err)
		return
	}
	if cfg.TradingMode != models.ModeAdvisorAssisted {
		badRequest(c, "config is not in advisory_assisted mode")
		return
	}

	opp, err := h.book.Get(c.Param("opportunityID"))
	if err != nil {
		respondError(c, err)
		return
	}

	decision := h.advisor.TradeDecision(c.Request.Context(), opp, cfg, time.Now().UTC())
	if decision.Decision != services.DecisionExecute {
		c.JSON(http.StatusOK, gin.H{
			"executed":  false,
			"decision":  decision.Decision,
			"reasoning": decision.Reasoning,
		})
		return
	}

	result, err := h.executor.ExecuteAdvisorAssisted(c.Request.Context(), opp.ID, cfg, decision, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"executed":  true,
		"decision":  decision.Decision,
		"reasoning": decision.Reasoning,
		"result":    result,
	})
}
