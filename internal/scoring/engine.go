// Package scoring rates option contracts as income opportunities. Scores are pure
// functions of the contract and optional context, so they are safe for concurrent use
// and never persisted.
package scoring

import (
	"math"
	"sort"

	"optionscout/internal/domain"
)

const (
	bucketCap       = 25
	DefaultMinScore = 70
	earningsWindow  = 7
	maxInsights     = 5
)

// Context carries inputs that are not part of the provider's contract record. Non-nil
// fields override the contract's own values.
type Context struct {
	DaysToEarnings *int
	IVRank         *float64
}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Score(c domain.OptionContract) domain.OpportunityScore {
	return e.ScoreWith(c, Context{})
}

func (e *Engine) ScoreWith(c domain.OptionContract, ctx Context) domain.OpportunityScore {
	in := newInputs(c, ctx)

	breakdown := domain.ScoreBreakdown{
		Momentum:  momentum(in),
		Value:     value(in),
		Liquidity: liquidity(in),
		Timing:    timing(in),
	}
	risk := assessRisk(in)
	overall := breakdown.Total()

	return domain.OpportunityScore{
		Overall:        overall,
		Breakdown:      breakdown,
		Risk:           risk,
		Insights:       insights(in, breakdown, risk),
		Recommendation: recommend(overall, risk),
	}
}

// ScoreAll scores every contract and orders them by overall score, highest first.
// Contracts with equal scores keep their input order.
func (e *Engine) ScoreAll(contracts []domain.OptionContract) []domain.Opportunity {
	return e.ScoreAllWith(contracts, Context{})
}

// ScoreAllWith is ScoreAll with one Context applied to every contract, as when the
// caller knows the underlying's IV rank or next earnings date.
func (e *Engine) ScoreAllWith(contracts []domain.OptionContract, ctx Context) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, domain.Opportunity{Contract: c, Score: e.ScoreWith(c, ctx)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score.Overall > out[j].Score.Overall
	})
	return out
}

// Top returns at most limit opportunities scoring at least minScore. A non-positive
// limit returns every qualifying opportunity.
func (e *Engine) Top(contracts []domain.OptionContract, limit, minScore int) []domain.Opportunity {
	scored := e.ScoreAll(contracts)
	out := scored[:0]
	for _, opp := range scored {
		if opp.Score.Overall >= minScore {
			out = append(out, opp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type inputs struct {
	contract       domain.OptionContract
	ivRank         *float64
	daysToEarnings *int
}

func newInputs(c domain.OptionContract, ctx Context) inputs {
	in := inputs{contract: c, ivRank: c.IVRank, daysToEarnings: c.DaysToEarnings}
	if ctx.IVRank != nil {
		in.ivRank = ctx.IVRank
	}
	if ctx.DaysToEarnings != nil {
		in.daysToEarnings = ctx.DaysToEarnings
	}
	return in
}

func (in inputs) earningsSoon() bool {
	return in.daysToEarnings != nil && *in.daysToEarnings >= 0 && *in.daysToEarnings < earningsWindow
}

func momentum(in inputs) int {
	score := 0
	if in.ivRank != nil {
		score += tier(*in.ivRank, []float64{50, 30, 15}, []int{10, 7, 4})
	}
	score += volumePoints(in.contract.Volume)
	score += tier(math.Abs(in.contract.UnderlyingChangePct), []float64{5, 2, 0}, []int{7, 4, 2})
	return capBucket(score)
}

func value(in inputs) int {
	c := in.contract
	score := tier(c.ROI, []float64{10, 7, 5, 3, 1}, []int{15, 12, 9, 6, 3})
	if c.Premium > 0 {
		score += tier(c.ContractPremium(), []float64{500, 200, 50}, []int{10, 7, 4})
	}
	return capBucket(score)
}

func liquidity(in inputs) int {
	c := in.contract
	score := tier(float64(c.OpenInterest), []float64{5000, 1000, 500, 100}, []int{12, 9, 6, 3})
	score += volumePoints(c.Volume)
	if spread, ok := c.SpreadPercent(); ok {
		switch {
		case spread < 2:
			score += 5
		case spread < 5:
			score += 3
		case spread < 10:
			score += 1
		}
	}
	return capBucket(score)
}

func timing(in inputs) int {
	c := in.contract
	score := 0
	if c.DTE > 0 {
		switch {
		case c.DTE >= 30 && c.DTE <= 45:
			score += 15
		case c.DTE >= 20 && c.DTE <= 60:
			score += 12
		case c.DTE >= 10 && c.DTE <= 90:
			score += 8
		default:
			score += 4
		}
	}
	if decay, ok := dailyDecayPercent(c); ok {
		score += tier(decay, []float64{1.5, 1.0, 0.5}, []int{10, 7, 4})
	}
	return capBucket(score)
}

func assessRisk(in inputs) domain.RiskLevel {
	c := in.contract
	points := 0
	if in.ivRank != nil {
		points += tier(*in.ivRank, []float64{70, 50, 30}, []int{3, 2, 1})
	}
	if c.Volume < 50 {
		points += 2
	}
	if c.OpenInterest < 100 {
		points += 2
	}
	switch {
	case c.DTE > 90:
		points += 2
	case c.DTE < 7:
		points += 3
	}
	if c.Greeks.Delta != nil && math.Abs(*c.Greeks.Delta) > 0.7 {
		points += 2
	}
	if in.earningsSoon() {
		points += 3
	}

	switch {
	case points >= 8:
		return domain.RiskExtreme
	case points >= 5:
		return domain.RiskHigh
	case points >= 3:
		return domain.RiskMedium
	}
	return domain.RiskLow
}

func recommend(overall int, risk domain.RiskLevel) domain.Recommendation {
	switch risk {
	case domain.RiskExtreme:
		if overall >= 85 {
			return domain.RecommendBuy
		}
		return domain.RecommendAvoid
	case domain.RiskHigh:
		switch {
		case overall >= 80:
			return domain.RecommendBuy
		case overall >= 70:
			return domain.RecommendHold
		}
		return domain.RecommendAvoid
	}

	switch {
	case overall >= 85:
		return domain.RecommendStrongBuy
	case overall >= 70:
		return domain.RecommendBuy
	case overall >= 55:
		return domain.RecommendHold
	}
	return domain.RecommendAvoid
}

func dailyDecayPercent(c domain.OptionContract) (float64, bool) {
	if c.Greeks.Theta == nil || *c.Greeks.Theta == 0 || c.Premium <= 0 {
		return 0, false
	}
	return math.Abs(*c.Greeks.Theta) / c.Premium * 100, true
}

func volumePoints(volume int64) int {
	return tier(float64(volume), []float64{1000, 500, 100}, []int{8, 6, 3})
}

// tier awards points[i] for the first threshold v strictly exceeds. Thresholds are
// ordered highest first.
func tier(v float64, thresholds []float64, points []int) int {
	for i, threshold := range thresholds {
		if v > threshold {
			return points[i]
		}
	}
	return 0
}

func capBucket(score int) int {
	if score > bucketCap {
		return bucketCap
	}
	return score
}
