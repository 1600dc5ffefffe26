package domain

import "time"

// RiskLevel is the risk tier assigned to a scored opportunity.
type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskExtreme RiskLevel = "Extreme"
)

type Recommendation string

const (
	RecommendStrongBuy Recommendation = "Strong Buy"
	RecommendBuy       Recommendation = "Buy"
	RecommendHold      Recommendation = "Hold"
	RecommendAvoid     Recommendation = "Avoid"
)

// ScoreBreakdown holds the four rubric buckets, each in [0, 25].
type ScoreBreakdown struct {
	Momentum  int `json:"momentum"`
	Value     int `json:"value"`
	Liquidity int `json:"liquidity"`
	Timing    int `json:"timing"`
}

func (b ScoreBreakdown) Total() int {
	return b.Momentum + b.Value + b.Liquidity + b.Timing
}

// OpportunityScore is derived from an OptionContract and never persisted by the core.
type OpportunityScore struct {
	Overall        int            `json:"overall"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Risk           RiskLevel      `json:"risk"`
	Insights       []string       `json:"insights"`
	Recommendation Recommendation `json:"recommendation"`
}

// Opportunity pairs a contract with its score.
type Opportunity struct {
	Contract OptionContract   `json:"contract"`
	Score    OpportunityScore `json:"score"`
}

// CircuitState is a point-in-time copy of the provider circuit breaker.
type CircuitState struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Open                bool       `json:"open"`
	OpenUntil           *time.Time `json:"open_until,omitempty"`
}

// OutcomeSummary aggregates the rolling request outcome log.
type OutcomeSummary struct {
	Total         int     `json:"total"`
	Successes     int     `json:"successes"`
	Failures      int     `json:"failures"`
	RateLimited   int     `json:"rate_limited"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	RateLimitRate float64 `json:"rate_limit_rate"`
}

// QueueStatus is what the status endpoint reports about provider egress.
type QueueStatus struct {
	Circuit  CircuitState   `json:"circuit"`
	Pending  int            `json:"pending"`
	Outcomes OutcomeSummary `json:"outcomes"`
}
