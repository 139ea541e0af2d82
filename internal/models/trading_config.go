package models

import "time"

// TradingMode selects which policy, if any, drives auto-execution for a
// config.
type TradingMode string

const (
	ModeSimulation      TradingMode = "simulation"
	ModeManual          TradingMode = "manual"
	ModeAutonomous      TradingMode = "autonomous"
	ModeAdvisorAssisted TradingMode = "advisory_assisted"
)

// ManualSizing holds the user-chosen sizing limits for request-driven
// (manual) execution.
type ManualSizing struct {
	StartingCapital float64 `json:"starting_capital"`
	BaseCurrency    string  `json:"base_currency"`
	// RiskTolerance is a fraction of capital, 0.01 to 1.0.
	RiskTolerance float64 `json:"risk_tolerance"`
	// MaxPositionSize is a fraction of capital, 0.01 to 0.5.
	MaxPositionSize float64 `json:"max_position_size"`
}

// AutonomousPolicy holds the thresholds gating the autonomous auto-trading
// policy.
type AutonomousPolicy struct {
	MinProfitPct        float64  `json:"min_profit_pct"`
	MaxRiskPct          float64  `json:"max_risk_pct"`
	MinConfidence       float64  `json:"min_confidence"`
	MaxTradesPerHour    int      `json:"max_trades_per_hour"`
	MaxDailyLoss        float64  `json:"max_daily_loss"`
	PreferredPairs      []string `json:"preferred_pairs"`
	ExcludedBrokers     []string `json:"excluded_brokers"`
	TradeSpatial        bool     `json:"trade_spatial"`
	TradeTriangular     bool     `json:"trade_triangular"`
	AdvisorConfirmation bool     `json:"advisor_confirmation"`
}

// AdvisorPolicy holds the thresholds gating the advisory-assisted policy.
type AdvisorPolicy struct {
	MinProfitPct         float64  `json:"min_profit_pct"`
	MaxRiskPct           float64  `json:"max_risk_pct"`
	MinConfidence        float64  `json:"min_confidence"`
	MaxTradesPerSession  int      `json:"max_trades_per_session"`
	RiskPreference       string   `json:"risk_preference"`
	PreferredPairs       []string `json:"preferred_pairs"`
	PositionSizingMethod string   `json:"position_sizing_method"`
	StopLossPct          float64  `json:"stop_loss_pct"`
	TakeProfitMultiplier float64  `json:"take_profit_multiplier"`
	MaxConcurrentTrades  int      `json:"max_concurrent_trades"`
	TradingHoursStart    int      `json:"trading_hours_start"`
	TradingHoursEnd      int      `json:"trading_hours_end"`
}

// TradingConfig is a user-supplied policy bundle. It is created once and
// immutable thereafter; the engine has no update path.
//
// The three threshold groups are deliberately separate structs joined by the
// config id so manual sizing, autonomous policy and advisor policy cannot be
// confused with one another.
type TradingConfig struct {
	ID          string           `json:"id" db:"id"`
	TradingMode TradingMode      `json:"trading_mode" db:"trading_mode"`
	AutoExecute bool             `json:"auto_execute" db:"auto_execute"`
	Sizing      ManualSizing     `json:"sizing"`
	Autonomous  AutonomousPolicy `json:"autonomous"`
	Advisor     AdvisorPolicy    `json:"advisor"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// ApplyDefaults fills zero-valued policy thresholds with the stock defaults.
// Boolean kind toggles are not defaulted here; callers that want both
// strategies enabled set them explicitly.
func (c *TradingConfig) ApplyDefaults() {
	if c.TradingMode == "" {
		c.TradingMode = ModeSimulation
	}
	if c.Autonomous.MinProfitPct == 0 {
		c.Autonomous.MinProfitPct = 0.005
	}
	if c.Autonomous.MaxRiskPct == 0 {
		c.Autonomous.MaxRiskPct = 0.02
	}
	if c.Autonomous.MinConfidence == 0 {
		c.Autonomous.MinConfidence = 0.8
	}
	if c.Autonomous.MaxTradesPerHour == 0 {
		c.Autonomous.MaxTradesPerHour = 10
	}
	if c.Autonomous.MaxDailyLoss == 0 {
		c.Autonomous.MaxDailyLoss = 0.05
	}
	if c.Autonomous.PreferredPairs == nil {
		c.Autonomous.PreferredPairs = []string{"EUR/USD", "GBP/USD", "USD/JPY"}
	}
	if c.Advisor.MinProfitPct == 0 {
		c.Advisor.MinProfitPct = 0.003
	}
	if c.Advisor.MaxRiskPct == 0 {
		c.Advisor.MaxRiskPct = 0.03
	}
	if c.Advisor.MinConfidence == 0 {
		c.Advisor.MinConfidence = 0.75
	}
	if c.Advisor.MaxTradesPerSession == 0 {
		c.Advisor.MaxTradesPerSession = 5
	}
	if c.Advisor.RiskPreference == "" {
		c.Advisor.RiskPreference = "moderate"
	}
	if c.Advisor.PreferredPairs == nil {
		c.Advisor.PreferredPairs = []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD"}
	}
	if c.Advisor.PositionSizingMethod == "" {
		c.Advisor.PositionSizingMethod = "fixed_percent"
	}
	if c.Advisor.StopLossPct == 0 {
		c.Advisor.StopLossPct = 0.01
	}
	if c.Advisor.TakeProfitMultiplier == 0 {
		c.Advisor.TakeProfitMultiplier = 2.0
	}
	if c.Advisor.MaxConcurrentTrades == 0 {
		c.Advisor.MaxConcurrentTrades = 3
	}
	if c.Advisor.TradingHoursStart == 0 && c.Advisor.TradingHoursEnd == 0 {
		c.Advisor.TradingHoursStart = 8
		c.Advisor.TradingHoursEnd = 18
	}
}
