package scoring

import (
	"fmt"

	"optionscout/internal/domain"
)

// insights lists risk and earnings warnings first, then observations about each bucket.
func insights(in inputs, b domain.ScoreBreakdown, risk domain.RiskLevel) []string {
	c := in.contract
	var warnings, notes []string

	if risk == domain.RiskExtreme || risk == domain.RiskHigh {
		warnings = append(warnings, fmt.Sprintf("%s risk: only suitable for experienced traders", risk))
	}
	if in.earningsSoon() {
		warnings = append(warnings, "Earnings within 7 days: expect elevated IV")
	}

	switch {
	case b.Momentum > 20 && in.ivRank != nil:
		notes = append(notes, fmt.Sprintf("Strong momentum with %.0f%% IV rank", *in.ivRank))
	case b.Momentum > 20:
		notes = append(notes, "Strong momentum from volume and price action")
	case b.Momentum < 10:
		notes = append(notes, "Low momentum: consider waiting for a better entry")
	}

	switch {
	case b.Value > 20:
		notes = append(notes, fmt.Sprintf("Excellent value at %.1f%% ROI", c.ROI))
	case c.ROI > 10:
		notes = append(notes, fmt.Sprintf("High ROI of %.1f%% indicates strong premium", c.ROI))
	}

	switch {
	case b.Liquidity < 15:
		notes = append(notes, "Low liquidity: may be difficult to close the position")
	case c.Volume > 1000:
		notes = append(notes, "High volume provides easy entry and exit")
	}

	switch {
	case c.DTE >= 30 && c.DTE <= 45:
		notes = append(notes, "Ideal DTE range for theta decay")
	case c.DTE < 15:
		notes = append(notes, "Short DTE increases gamma risk")
	}

	if c.Strategy == domain.StrategyCashSecuredPut && c.Greeks.Delta != nil && *c.Greeks.Delta > -0.3 {
		notes = append(notes, "Delta suggests a good probability of profit")
	}

	out := append(warnings, notes...)
	if len(out) > maxInsights {
		out = out[:maxInsights]
	}
	return out
}
