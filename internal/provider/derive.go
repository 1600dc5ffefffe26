package provider

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"optionscout/internal/domain"
)

// SelectPremium returns the mid when a two-sided quote exists, otherwise the last trade.
// A contract with neither has no premium and must not be priced.
func SelectPremium(bid, ask, last float64) (mid, premium float64, err error) {
	if bid > 0 && ask > 0 && ask >= bid {
		mid = round((bid+ask)/2, 4)
		return mid, mid, nil
	}
	if last > 0 {
		return 0, last, nil
	}
	return 0, 0, ErrNoPricingData
}

// DaysToExpiration is the ceiling of the days left until expiration, at least 1.
func DaysToExpiration(expiration, now time.Time) int {
	days := int(math.Ceil(expiration.Sub(now).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// Expired reports whether the expiration day has fully passed.
func Expired(expiration, now time.Time) bool {
	return !now.Before(expiration.Add(24 * time.Hour))
}

// DeriveReturns fills the return and risk figures of c from its strike, premium,
// spot price, DTE and delta. The input is not modified.
func DeriveReturns(c domain.OptionContract) domain.OptionContract {
	if c.Strike <= 0 || c.Premium <= 0 {
		return c
	}
	dte := c.DTE
	if dte < 1 {
		dte = 1
	}

	roi := c.Premium / c.Strike * 100
	perDay := roi / float64(dte)
	c.ROI = round(roi, 2)
	c.ROIPerDay = round(perDay, 4)
	c.ROIAnnualized = round(perDay*365, 2)

	if c.Type == domain.ContractCall {
		c.Breakeven = round(c.Strike+c.Premium, 2)
	} else {
		c.Breakeven = round(c.Strike-c.Premium, 2)
	}

	c.Capital = c.Strike * 100
	if c.SpotPrice > 0 {
		c.Distance = round(math.Abs(c.SpotPrice-c.Strike)/c.SpotPrice*100, 2)
		if c.Type == domain.ContractCall {
			c.Capital = round(c.SpotPrice*100, 2)
		}
	}
	c.PoP = ProbabilityOfProfit(c.Type, c.Greeks.Delta, c.SpotPrice, c.Strike, c.Distance)
	return c
}

// ProbabilityOfProfit estimates the chance a sold contract expires worthless. It uses
// delta when the provider reports one and falls back to a distance-from-spot heuristic.
func ProbabilityOfProfit(t domain.ContractType, delta *float64, spot, strike, distance float64) float64 {
	if delta != nil {
		return round((1-math.Abs(*delta))*100, 1)
	}
	if spot <= 0 {
		return 50
	}
	otm := strike < spot
	if t == domain.ContractCall {
		otm = strike > spot
	}
	if otm {
		return round(math.Min(95, 50+2*distance), 1)
	}
	return round(math.Max(5, 50-2*distance), 1)
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
