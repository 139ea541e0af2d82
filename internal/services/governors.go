package services

import (
	"context"
	"fmt"
	"time"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

// Governors derive the rate-limit, loss-limit and concurrency counters that
// gate both autonomous policies. Nothing is cached: every gate check
// recomputes from committed trade history, so the counters reflect all
// trades written by prior cycles.
type Governors struct {
	store store.Store
	// countOpenPositions switches the advisor concurrency governor from the
	// recent-trade proxy to counting actual open position rows. The proxy is
	// the historical behavior and undercounts positions held longer than an
	// hour.
	countOpenPositions bool
}

func NewGovernors(s store.Store, countOpenPositions bool) *Governors {
	return &Governors{store: s, countOpenPositions: countOpenPositions}
}

// AutonomousStatus is the observable gate state for the autonomous policy.
// Limit hits are normal control flow, not errors.
type AutonomousStatus struct {
	DailyLoss         float64 `json:"daily_loss"`
	DailyLossLimit    float64 `json:"daily_loss_limit"`
	DailyLossLimitHit bool    `json:"daily_loss_limit_hit"`
	HourlyTrades      int     `json:"hourly_trades"`
	HourlyTradesLimit int     `json:"hourly_trades_limit"`
	HourlyLimitHit    bool    `json:"hourly_limit_hit"`
}

// Suspended reports whether autonomous auto-trading is suppressed for this
// cycle.
func (s AutonomousStatus) Suspended() bool {
	return s.DailyLossLimitHit || s.HourlyLimitHit
}

// AdvisorStatus is the observable gate state for the advisory-assisted
// policy.
type AdvisorStatus struct {
	SessionTrades      int  `json:"session_trades"`
	SessionTradesLimit int  `json:"session_trades_limit"`
	SessionLimitHit    bool `json:"session_limit_hit"`
	CurrentHour        int  `json:"current_hour"`
	TradingHoursActive bool `json:"trading_hours_active"`
	OpenPositions      int  `json:"open_positions"`
	MaxConcurrent      int  `json:"max_concurrent_trades"`
	ConcurrentLimitHit bool `json:"concurrent_limit_hit"`
}

// Suspended reports whether advisor auto-trading is suppressed for this
// cycle.
func (s AdvisorStatus) Suspended() bool {
	return s.SessionLimitHit || !s.TradingHoursActive || s.ConcurrentLimitHit
}

// HourlyTradeCount counts trades for the config within the last rolling
// hour.
func (g *Governors) HourlyTradeCount(ctx context.Context, configID string, now time.Time) (int, error) {
	return g.store.CountTradesSince(ctx, configID, now.Add(-time.Hour))
}

// DailyLoss sums the absolute value of losing trades since the start of the
// current UTC day.
func (g *Governors) DailyLoss(ctx context.Context, configID string, now time.Time) (float64, error) {
	startOfDay := now.UTC().Truncate(24 * time.Hour)
	return g.store.DailyLossSince(ctx, configID, startOfDay)
}

// OpenPositionCount returns the advisor concurrency counter: either the
// recent-trade proxy or, when configured, the true open-position count.
func (g *Governors) OpenPositionCount(ctx context.Context, configID string, now time.Time) (int, error) {
	if g.countOpenPositions {
		return g.store.CountOpenPositions(ctx, configID)
	}
	return g.store.CountTradesSince(ctx, configID, now.Add(-time.Hour))
}

// AutonomousGate derives the autonomous policy's gate state for one config.
func (g *Governors) AutonomousGate(ctx context.Context, cfg *models.TradingConfig, now time.Time) (AutonomousStatus, error) {
	var status AutonomousStatus

	dailyLoss, err := g.DailyLoss(ctx, cfg.ID, now)
	if err != nil {
		return status, fmt.Errorf("daily loss query: %w", err)
	}
	hourlyTrades, err := g.HourlyTradeCount(ctx, cfg.ID, now)
	if err != nil {
		return status, fmt.Errorf("hourly trade count query: %w", err)
	}

	status.DailyLoss = dailyLoss
	status.DailyLossLimit = cfg.Autonomous.MaxDailyLoss * cfg.Sizing.StartingCapital
	status.DailyLossLimitHit = dailyLoss >= status.DailyLossLimit
	status.HourlyTrades = hourlyTrades
	status.HourlyTradesLimit = cfg.Autonomous.MaxTradesPerHour
	status.HourlyLimitHit = hourlyTrades >= cfg.Autonomous.MaxTradesPerHour
	return status, nil
}

// AdvisorGate derives the advisory-assisted policy's gate state for one
// config. The trading-hours window is inclusive on both ends, in UTC.
func (g *Governors) AdvisorGate(ctx context.Context, cfg *models.TradingConfig, now time.Time) (AdvisorStatus, error) {
	var status AdvisorStatus

	sessionTrades, err := g.HourlyTradeCount(ctx, cfg.ID, now)
	if err != nil {
		return status, fmt.Errorf("session trade count query: %w", err)
	}
	openPositions, err := g.OpenPositionCount(ctx, cfg.ID, now)
	if err != nil {
		return status, fmt.Errorf("open position count query: %w", err)
	}

	hour := now.UTC().Hour()
	status.SessionTrades = sessionTrades
	status.SessionTradesLimit = cfg.Advisor.MaxTradesPerSession
	status.SessionLimitHit = sessionTrades >= cfg.Advisor.MaxTradesPerSession
	status.CurrentHour = hour
	status.TradingHoursActive = hour >= cfg.Advisor.TradingHoursStart && hour <= cfg.Advisor.TradingHoursEnd
	status.OpenPositions = openPositions
	status.MaxConcurrent = cfg.Advisor.MaxConcurrentTrades
	status.ConcurrentLimitHit = openPositions >= cfg.Advisor.MaxConcurrentTrades
	return status, nil
}
