// Package alert decides which opportunities satisfy saved user criteria and records
// the resulting alerts.
package alert

import (
	"slices"
	"strings"

	"optionscout/internal/domain"
)

// Matches reports whether c satisfies every constraint set on criteria. Unset
// constraints always pass. The excluded-ticker list wins over the allow list.
// IV bounds are percentages; a contract without IV fails them. IV-rank bounds are
// only checked when the contract carries an IV rank.
func Matches(c domain.OptionContract, criteria domain.AlertCriteria) bool {
	if !criteria.Enabled {
		return false
	}

	if len(criteria.Strategies) > 0 && !containsFold(criteria.Strategies, c.Strategy) {
		return false
	}

	if criteria.MinROI != nil && c.ROI < *criteria.MinROI {
		return false
	}
	if criteria.MaxROI != nil && c.ROI > *criteria.MaxROI {
		return false
	}
	if criteria.MinPoP != nil && c.PoP < *criteria.MinPoP {
		return false
	}

	if len(criteria.Tickers) > 0 && !containsFold(criteria.Tickers, c.Underlying) {
		return false
	}
	if containsFold(criteria.ExcludeTickers, c.Underlying) {
		return false
	}

	if criteria.MinVolume != nil && c.Volume < *criteria.MinVolume {
		return false
	}
	if criteria.MinOpenInterest != nil && c.OpenInterest < *criteria.MinOpenInterest {
		return false
	}

	if criteria.MinIV != nil || criteria.MaxIV != nil {
		if c.Greeks.IV == nil {
			return false
		}
		iv := *c.Greeks.IV * 100
		if criteria.MinIV != nil && iv < *criteria.MinIV {
			return false
		}
		if criteria.MaxIV != nil && iv > *criteria.MaxIV {
			return false
		}
	}

	if c.IVRank != nil {
		if criteria.IVRankMin != nil && *c.IVRank < *criteria.IVRankMin {
			return false
		}
		if criteria.IVRankMax != nil && *c.IVRank > *criteria.IVRankMax {
			return false
		}
	}
	return true
}

// Filter returns the opportunities matching criteria, preserving order.
func Filter(opportunities []domain.Opportunity, criteria domain.AlertCriteria) []domain.Opportunity {
	var out []domain.Opportunity
	for _, opp := range opportunities {
		if Matches(opp.Contract, criteria) {
			out = append(out, opp)
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	return slices.ContainsFunc(list, func(item string) bool {
		return strings.EqualFold(strings.TrimSpace(item), v)
	})
}
