package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finexa/fxarb/internal/models"
)

// Decision is the typed outcome of an advisor trade decision. The raw model
// output is free text; parsing and the deterministic fallback live in
// ParseDecision so the heuristic can be tested and swapped independently of
// policy logic.
type Decision struct {
	Decision     string  `json:"decision"`
	PositionSize float64 `json:"position_size"`
	Reasoning    string  `json:"reasoning"`
}

const (
	DecisionExecute = "execute"
	DecisionSkip    = "skip"
)

// Advisor talks to a language-model advisory service. The service is
// untrusted and possibly absent: with no API key configured every method
// returns a labeled deterministic mock so the engine stays fully testable
// offline, and any transport error degrades to the same mocks. Advisor
// failures never propagate as errors.
type Advisor struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     *logrus.Logger
}

func NewAdvisor(apiKey, baseURL, model string, timeout time.Duration, log *logrus.Logger) *Advisor {
	if log == nil {
		log = logrus.New()
	}
	return &Advisor{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Configured reports whether a live advisory endpoint is available.
func (a *Advisor) Configured() bool {
	return a.apiKey != ""
}

// MarketSentiment asks for a sentiment read over the current quotes. The
// analysis summary comes from the technical-analysis service.
func (a *Advisor) MarketSentiment(ctx context.Context, snapshot models.RateSnapshot, analysisSummary string) string {
	if !a.Configured() {
		return "Advisor not configured - using mock analysis: current market sentiment appears " +
			"bullish with EUR/USD showing strength against USD. Volatility is moderate across major pairs."
	}

	payload, _ := json.Marshal(snapshot)
	prompt := fmt.Sprintf(
		"Analyze the current forex market data:\n%s\n\nIndicator summary:\n%s\n\n"+
			"Provide: overall sentiment (bullish/bearish/neutral), key currency trends, "+
			"risk factors, and a volatility assessment. Keep the response concise.",
		payload, analysisSummary,
	)

	response, err := a.ask(ctx, "You are an expert forex market analyst. Analyze market data and provide sentiment analysis.", prompt)
	if err != nil {
		a.log.WithError(err).Warn("Advisor sentiment call failed, using mock analysis")
		return fmt.Sprintf("Advisor unavailable (%v) - mock analysis: market showing mixed signals "+
			"at current levels. Consider reduced position sizes.", err)
	}
	return response
}

// AssessRisk asks for a risk assessment of one opportunity. The returned
// text feeds the confirmation gate for confirmation-required autonomous
// trades; the mock deliberately contains an affirmative signal so the gate
// stays exercisable offline.
func (a *Advisor) AssessRisk(ctx context.Context, opp *models.ArbitrageOpportunity) string {
	if !a.Configured() {
		return fmt.Sprintf("Advisor not configured - mock risk assessment: %s arbitrage opportunity "+
			"with %.4f%% profit potential. Risk level: 3/10. Recommended position size: 5%% of capital. "+
			"Execute: Yes - low risk opportunity.", opp.Kind, opp.ProfitPercentage)
	}

	prompt := fmt.Sprintf(
		"Assess this arbitrage opportunity:\n\nKind: %s\nCurrency pairs: %v\nBrokers: %v\n"+
			"Profit potential: %.4f%%\nConfidence score: %.2f\n\n"+
			"Provide: risk on a 1-10 scale, execution recommendations, potential pitfalls, "+
			"position sizing advice, and a clear 'Execute: Yes/No/Caution' line.",
		opp.Kind, opp.CurrencyPairs, opp.Brokers, opp.ProfitPercentage, opp.ConfidenceScore,
	)

	response, err := a.ask(ctx, "You are an expert forex risk analyst. Assess arbitrage opportunities for potential risks and execution viability.", prompt)
	if err != nil {
		a.log.WithError(err).Warn("Advisor risk call failed, using mock assessment")
		return fmt.Sprintf("Advisor unavailable (%v) - mock risk assessment: %s opportunity showing "+
			"%.4f%% profit. Risk: moderate. Proceed with caution and a smaller position size.",
			err, opp.Kind, opp.ProfitPercentage)
	}
	return response
}

// TradeRecommendation asks for a ranked recommendation over the current
// opportunity list, constrained to the config's advisor policy.
func (a *Advisor) TradeRecommendation(ctx context.Context, opps []*models.ArbitrageOpportunity, cfg *models.TradingConfig) string {
	if !a.Configured() {
		return fmt.Sprintf("Advisor not configured - mock recommendation: based on %d opportunities, "+
			"focus on spatial arbitrage with %.0f%% risk tolerance. Start with the 2-3 best opportunities "+
			"at position sizes of at most %.0f%% of capital.",
			len(opps), cfg.Sizing.RiskTolerance*100, cfg.Sizing.MaxPositionSize*100)
	}

	eligible := filterEligible(opps, cfg, AdvisorEligible)
	if len(eligible) > 10 {
		eligible = eligible[:10]
	}
	summary, _ := json.Marshal(eligible)

	system := fmt.Sprintf(
		"You are a forex trading advisor. Strict parameters: min profit %.3f%%, max risk per trade "+
			"%.1f%% of capital, min confidence %.0f%%, risk preference %s, position sizing %s, stop loss "+
			"%.1f%% with take profit at %.1fx, max %d concurrent positions, trading hours %d:00-%d:00 UTC, "+
			"preferred pairs %s. Never recommend a trade violating these rules.",
		cfg.Advisor.MinProfitPct*100, cfg.Advisor.MaxRiskPct*100, cfg.Advisor.MinConfidence*100,
		cfg.Advisor.RiskPreference, cfg.Advisor.PositionSizingMethod,
		cfg.Advisor.StopLossPct*100, cfg.Advisor.TakeProfitMultiplier,
		cfg.Advisor.MaxConcurrentTrades, cfg.Advisor.TradingHoursStart, cfg.Advisor.TradingHoursEnd,
		strings.Join(cfg.Advisor.PreferredPairs, ", "),
	)
	prompt := fmt.Sprintf(
		"Capital: %.2f %s. Pre-filtered opportunities meeting your criteria:\n%s\n\n"+
			"Rank them by risk-adjusted return and give specific entry instructions, or recommend waiting.",
		cfg.Sizing.StartingCapital, cfg.Sizing.BaseCurrency, summary,
	)

	response, err := a.ask(ctx, system, prompt)
	if err != nil {
		a.log.WithError(err).Warn("Advisor recommendation call failed, using mock recommendation")
		return fmt.Sprintf("Advisor unavailable (%v) - mock recommendation: focus on the top 3 "+
			"opportunities with conservative 2-5%% position sizes.", err)
	}
	return response
}

// TradeDecision asks for an execute/skip decision on one opportunity and
// parses it into a typed Decision. The oracle's proposed position size is
// never trusted: it is clamped to capital * advisor max risk.
func (a *Advisor) TradeDecision(ctx context.Context, opp *models.ArbitrageOpportunity, cfg *models.TradingConfig, now time.Time) Decision {
	maxPosition := cfg.Sizing.StartingCapital * cfg.Advisor.MaxRiskPct

	if !a.Configured() {
		decision := DecisionSkip
		if opp.ProfitPercentage > 0.01 {
			decision = DecisionExecute
		}
		return Decision{
			Decision:     decision,
			PositionSize: maxPosition,
			Reasoning:    "Mock decision - advisor not configured",
		}
	}

	hour := now.UTC().Hour()
	checksPass := AdvisorEligible(opp, cfg) &&
		hour >= cfg.Advisor.TradingHoursStart && hour <= cfg.Advisor.TradingHoursEnd

	system := fmt.Sprintf(
		"You are a forex trading assistant making execution decisions. Only EXECUTE if profit >= %.3f%%, "+
			"confidence >= %.0f%%, the pair is preferred (%s) and the current hour %d is within %d:00-%d:00 UTC. "+
			"Max position size: %.2f. Respond only with JSON: "+
			`{"decision": "execute|skip", "position_size": number, "reasoning": "text"}`,
		cfg.Advisor.MinProfitPct*100, cfg.Advisor.MinConfidence*100,
		strings.Join(cfg.Advisor.PreferredPairs, ", "), hour,
		cfg.Advisor.TradingHoursStart, cfg.Advisor.TradingHoursEnd, maxPosition,
	)
	prompt := fmt.Sprintf(
		"Opportunity: kind=%s pairs=%v brokers=%v profit=%.4f%% confidence=%.0f%%. "+
			"Capital: %.2f %s. Decide execute or skip and calculate the exact position size.",
		opp.Kind, opp.CurrencyPairs, opp.Brokers, opp.ProfitPercentage, opp.ConfidenceScore*100,
		cfg.Sizing.StartingCapital, cfg.Sizing.BaseCurrency,
	)

	response, err := a.ask(ctx, system, prompt)
	if err != nil {
		return Decision{
			Decision:  DecisionSkip,
			Reasoning: fmt.Sprintf("advisor error: %v", err),
		}
	}

	return ParseDecision(response, checksPass, maxPosition)
}

// ParseDecision extracts a typed Decision from raw advisor output. When the
// output is not valid JSON the deterministic fallback applies: execute only
// if the text mentions "execute" and the caller's basic eligibility checks
// independently pass. Position size is always clamped to maxPosition.
func ParseDecision(raw string, checksPass bool, maxPosition float64) Decision {
	var decision Decision
	if err := json.Unmarshal([]byte(extractJSON(raw)), &decision); err == nil && decision.Decision != "" {
		decision.Decision = strings.ToLower(decision.Decision)
		if decision.Decision != DecisionExecute {
			decision.Decision = DecisionSkip
		}
		if decision.PositionSize > maxPosition || decision.PositionSize <= 0 {
			decision.PositionSize = maxPosition
		}
		return decision
	}

	if strings.Contains(strings.ToLower(raw), DecisionExecute) && checksPass {
		return Decision{
			Decision:     DecisionExecute,
			PositionSize: maxPosition,
			Reasoning:    "fallback: advisor response was not valid JSON but signals execution and basic criteria pass",
		}
	}
	return Decision{
		Decision:  DecisionSkip,
		Reasoning: "fallback: advisor response could not be parsed",
	}
}

// ConfirmsExecution is the textual confirmation heuristic for
// confirmation-gated autonomous trades. The oracle returns free text, so
// this is a best-effort gate: an affirmative "execute: yes" or a bare "yes"
// anywhere in the response counts.
func ConfirmsExecution(analysis string) bool {
	lower := strings.ToLower(analysis)
	return strings.Contains(lower, "execute: yes") || strings.Contains(lower, "yes")
}

// extractJSON trims any prose surrounding the first JSON object in the
// response.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ask performs one advisory call. The request carries the client timeout and
// the caller's context; it never holds any engine lock.
func (a *Advisor) ask(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(messageRequest{
		Model:     a.model,
		MaxTokens: 1024,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal advisor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build advisor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("advisor request: %w", err)
	}
	defer resp.Body.Close()

	var parsed messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode advisor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("advisor returned %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("advisor returned empty response")
	}
	return parsed.Content[0].Text, nil
}
