package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

// ErrNoRate is returned when no broker in the current snapshot quotes the
// pair needed to value a position.
var ErrNoRate = errors.New("no current rate for currency pair")

// Execution path tags recorded in execution details and results.
const (
	ExecutionManual         = "manual"
	ExecutionAutonomous     = "autonomous"
	ExecutionAdvisor        = "advisor_assisted"
	ExecutionAdvisorAutoTag = "advisor_assisted_auto"
)

// ExecutionResult reports one completed execution.
type ExecutionResult struct {
	Opportunity   *models.ArbitrageOpportunity `json:"opportunity"`
	Trades        []*models.Trade              `json:"trades"`
	PositionValue float64                      `json:"position_value"`
	TotalProfit   float64                      `json:"total_profit"`
}

// CloseResult reports a position close.
type CloseResult struct {
	PositionID  string  `json:"position_id"`
	RealizedPnL float64 `json:"realized_pnl"`
	ClosingRate float64 `json:"closing_rate"`
}

// HedgeResult reports a hedge open.
type HedgeResult struct {
	HedgePositionID    string              `json:"hedge_position_id"`
	OriginalPositionID string              `json:"original_position_id"`
	HedgeType          models.PositionType `json:"hedge_type"`
	HedgeRate          float64             `json:"hedge_rate"`
}

// Executor converts eligible opportunities into trade and position records.
// Writes are a best-effort saga: trades first, then positions, then the
// opportunity's execution details. A crash mid-sequence leaves partial state
// for reconciliation; it is not prevented here.
type Executor struct {
	store store.Store
	book  *Book
	rates market.RateSource
	log   *logrus.Logger
}

func NewExecutor(s store.Store, book *Book, rates market.RateSource, log *logrus.Logger) *Executor {
	if log == nil {
		log = logrus.New()
	}
	return &Executor{store: s, book: book, rates: rates, log: log}
}

// ManualPositionValue is the sizing rule for request-driven execution: the
// smaller of the max-position cap and ten times the risk-tolerance slice of
// capital.
func ManualPositionValue(sizing models.ManualSizing) float64 {
	return math.Min(
		sizing.StartingCapital*sizing.MaxPositionSize,
		sizing.StartingCapital*sizing.RiskTolerance*10,
	)
}

// ExecuteManual runs the request-driven path. It runs regardless of the
// config's trading mode.
func (e *Executor) ExecuteManual(ctx context.Context, opportunityID string, cfg *models.TradingConfig) (*ExecutionResult, error) {
	return e.execute(ctx, opportunityID, cfg, ManualPositionValue(cfg.Sizing), ExecutionManual, "")
}

// ExecuteAutonomous runs the autonomous path: a fixed fraction of capital,
// independent of confidence or profit magnitude.
func (e *Executor) ExecuteAutonomous(ctx context.Context, opportunityID string, cfg *models.TradingConfig) (*ExecutionResult, error) {
	size := cfg.Sizing.StartingCapital * cfg.Autonomous.MaxRiskPct
	return e.execute(ctx, opportunityID, cfg, size, ExecutionAutonomous, "")
}

// ExecuteAdvisorAssisted runs the advisor path with the oracle's position
// size, clamped to capital * advisor max risk. The oracle's own cap
// reasoning is never trusted.
func (e *Executor) ExecuteAdvisorAssisted(ctx context.Context, opportunityID string, cfg *models.TradingConfig, decision Decision, auto bool) (*ExecutionResult, error) {
	size := decision.PositionSize
	if limit := cfg.Sizing.StartingCapital * cfg.Advisor.MaxRiskPct; size > limit || size <= 0 {
		size = limit
	}
	tag := ExecutionAdvisor
	if auto {
		tag = ExecutionAdvisorAutoTag
	}
	return e.execute(ctx, opportunityID, cfg, size, tag, decision.Reasoning)
}

// execute claims the opportunity and performs the trade/position/details
// write sequence. The claim is the idempotency guard: a previously executed
// opportunity fails here with ErrAlreadyExecuted before any write happens.
func (e *Executor) execute(ctx context.Context, opportunityID string, cfg *models.TradingConfig, positionValue float64, executionType, reasoning string) (*ExecutionResult, error) {
	opp, err := e.book.Claim(opportunityID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	trades := buildTrades(opp, cfg.ID, positionValue, now)
	for _, trade := range trades {
		if err := e.store.InsertTrade(ctx, trade); err != nil {
			return nil, fmt.Errorf("insert trade: %w", err)
		}
	}

	for _, pos := range buildPositions(opp, cfg.ID, positionValue, now) {
		if err := e.store.InsertPosition(ctx, pos); err != nil {
			return nil, fmt.Errorf("insert position: %w", err)
		}
	}

	details := &models.ExecutionDetails{
		ConfigID:         cfg.ID,
		ExecutedAt:       now,
		PositionValue:    positionValue,
		TradeCount:       len(trades),
		ExecutionType:    executionType,
		AdvisorReasoning: reasoning,
	}
	e.book.SetDetails(opp.ID, details)

	opp.Executed = true
	opp.ExecutionDetails = details

	total := 0.0
	for _, trade := range trades {
		total += trade.Profit
	}

	e.log.WithFields(logrus.Fields{
		"opportunity_id": opp.ID,
		"config_id":      cfg.ID,
		"execution_type": executionType,
		"position_value": positionValue,
		"trades":         len(trades),
	}).Info("Executed arbitrage opportunity")

	return &ExecutionResult{
		Opportunity:   opp,
		Trades:        trades,
		PositionValue: positionValue,
		TotalProfit:   total,
	}, nil
}

// buildTrades renders the trade legs for an opportunity. Profit is scaled
// linearly from the detector's reference notional to the actual position
// value: the buy leg carries zero profit, the sell leg the full spread.
func buildTrades(opp *models.ArbitrageOpportunity, configID string, positionValue float64, now time.Time) []*models.Trade {
	scaledProfit := opp.ProfitPotential * (positionValue / ReferenceNotional)

	base := func(action models.TradeAction, broker string, rate, profit float64) *models.Trade {
		return &models.Trade{
			ID:            uuid.New().String(),
			ConfigID:      configID,
			OpportunityID: opp.ID,
			Kind:          string(opp.Kind),
			CurrencyPairs: append([]string(nil), opp.CurrencyPairs...),
			Action:        action,
			Broker:        broker,
			Amount:        positionValue,
			Rate:          rate,
			Profit:        profit,
			Status:        models.TradeStatusExecuted,
			ExecutionTime: now,
			CreatedAt:     now,
		}
	}

	if opp.Kind == models.KindSpatial {
		return []*models.Trade{
			base(models.ActionBuy, opp.BuyBroker, opp.BuyRate, 0),
			base(models.ActionSell, opp.SellBroker, opp.SellRate, scaledProfit),
		}
	}
	// Triangular collapses to a single leg with a placeholder rate; there is
	// no single meaningful rate across the three pairs.
	return []*models.Trade{
		base(models.ActionTriangular, opp.Brokers[0], 1.0, scaledProfit),
	}
}

// buildPositions renders the open exposures for an executed opportunity:
// long at the buy side and short at the sell side for spatial, one synthetic
// triangular position otherwise.
func buildPositions(opp *models.ArbitrageOpportunity, configID string, positionValue float64, now time.Time) []*models.Position {
	base := func(broker, pair string, ptype models.PositionType, entryRate float64) *models.Position {
		return &models.Position{
			ID:           uuid.New().String(),
			ConfigID:     configID,
			Broker:       broker,
			CurrencyPair: pair,
			PositionType: ptype,
			Amount:       positionValue,
			EntryRate:    entryRate,
			CurrentRate:  entryRate,
			Status:       models.PositionStatusOpen,
			OpenedAt:     now,
		}
	}

	if opp.Kind == models.KindSpatial {
		pair := opp.CurrencyPairs[0]
		return []*models.Position{
			base(opp.BuyBroker, pair, models.PositionLong, opp.BuyRate),
			base(opp.SellBroker, pair, models.PositionShort, opp.SellRate),
		}
	}
	return []*models.Position{
		base(opp.Brokers[0], joinPairs(opp.CurrencyPairs), models.PositionTriangular, 1.0),
	}
}

func joinPairs(pairs []string) string {
	out := ""
	for i, p := range pairs {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// ClosePosition closes an open position at the latest snapshot rate for its
// pair (first quoting broker in sorted order, not pinned to the position's
// own broker), records the realized P&L, credits the balance ledger and
// appends a closing trade.
func (e *Executor) ClosePosition(ctx context.Context, positionID string) (*CloseResult, error) {
	pos, err := e.store.GetOpenPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	_, rate, ok := e.rates.Snapshot().RateFor(pos.CurrencyPair)
	if !ok {
		return nil, ErrNoRate
	}

	realized := pos.PnLAt(rate)
	now := time.Now().UTC()
	if err := e.store.ClosePosition(ctx, positionID, now, rate, realized); err != nil {
		return nil, fmt.Errorf("close position: %w", err)
	}

	if cfg, err := e.store.GetConfig(ctx, pos.ConfigID); err == nil {
		delta := decimal.NewFromFloat(realized)
		if err := e.store.UpsertBalance(ctx, pos.ConfigID, pos.Broker, cfg.Sizing.BaseCurrency, delta); err != nil {
			e.log.WithError(err).Warn("Failed to credit broker balance on close")
		}
	}

	closing := &models.Trade{
		ID:            uuid.New().String(),
		ConfigID:      pos.ConfigID,
		OpportunityID: "close_" + positionID,
		Kind:          models.TradeKindPositionClose,
		CurrencyPairs: []string{pos.CurrencyPair},
		Action:        models.ActionClose,
		Broker:        pos.Broker,
		Amount:        pos.Amount,
		Rate:          rate,
		Profit:        realized,
		Status:        models.TradeStatusExecuted,
		ExecutionTime: now,
		CreatedAt:     now,
	}
	if err := e.store.InsertTrade(ctx, closing); err != nil {
		return nil, fmt.Errorf("insert closing trade: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"position_id":  positionID,
		"realized_pnl": realized,
		"closing_rate": rate,
	}).Info("Closed position")

	return &CloseResult{PositionID: positionID, RealizedPnL: realized, ClosingRate: rate}, nil
}

// HedgePosition opens an opposite position of the same amount at the same
// broker at the current rate, with zero initial P&L, plus a zero-profit
// hedge trade. The original position stays open; the link is only the
// audit-trail naming.
func (e *Executor) HedgePosition(ctx context.Context, positionID string) (*HedgeResult, error) {
	pos, err := e.store.GetOpenPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	_, rate, ok := e.rates.Snapshot().RateFor(pos.CurrencyPair)
	if !ok {
		return nil, ErrNoRate
	}

	hedgeType := models.PositionShort
	if pos.PositionType == models.PositionShort {
		hedgeType = models.PositionLong
	}

	now := time.Now().UTC()
	hedge := &models.Position{
		ID:           uuid.New().String(),
		ConfigID:     pos.ConfigID,
		Broker:       pos.Broker,
		CurrencyPair: pos.CurrencyPair,
		PositionType: hedgeType,
		Amount:       pos.Amount,
		EntryRate:    rate,
		CurrentRate:  rate,
		Status:       models.PositionStatusOpen,
		OpenedAt:     now,
	}
	if err := e.store.InsertPosition(ctx, hedge); err != nil {
		return nil, fmt.Errorf("insert hedge position: %w", err)
	}

	hedgeTrade := &models.Trade{
		ID:            uuid.New().String(),
		ConfigID:      pos.ConfigID,
		OpportunityID: "hedge_" + positionID,
		Kind:          models.TradeKindHedge,
		CurrencyPairs: []string{pos.CurrencyPair},
		Action:        models.ActionHedge,
		Broker:        pos.Broker,
		Amount:        pos.Amount,
		Rate:          rate,
		Profit:        0,
		Status:        models.TradeStatusExecuted,
		ExecutionTime: now,
		CreatedAt:     now,
	}
	if err := e.store.InsertTrade(ctx, hedgeTrade); err != nil {
		return nil, fmt.Errorf("insert hedge trade: %w", err)
	}

	return &HedgeResult{
		HedgePositionID:    hedge.ID,
		OriginalPositionID: positionID,
		HedgeType:          hedgeType,
		HedgeRate:          rate,
	}, nil
}
