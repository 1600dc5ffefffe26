package domain

import (
	"fmt"
	"strings"
	"time"
)

type ContractType string

const (
	ContractPut  ContractType = "put"
	ContractCall ContractType = "call"
)

// ParseContractType accepts "put"/"call" in any case, and "p"/"c".
func ParseContractType(v string) (ContractType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "put", "p":
		return ContractPut, nil
	case "call", "c":
		return ContractCall, nil
	}
	return "", fmt.Errorf("unsupported contract type: %q", v)
}

// Strategy is the income strategy implied by selling the contract.
func (t ContractType) Strategy() string {
	if t == ContractCall {
		return StrategyCoveredCall
	}
	return StrategyCashSecuredPut
}

const (
	StrategyCashSecuredPut = "cash_secured_put"
	StrategyCoveredCall    = "covered_call"
)

// Quote is the latest price for an underlying.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PrevClose     float64   `json:"prev_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
}

// Greeks are reported by the provider; a nil field means no data.
type Greeks struct {
	Delta *float64 `json:"delta,omitempty"`
	Gamma *float64 `json:"gamma,omitempty"`
	Theta *float64 `json:"theta,omitempty"`
	Vega  *float64 `json:"vega,omitempty"`
	IV    *float64 `json:"iv,omitempty"`
}

// OptionContract is built once per provider response and never mutated.
type OptionContract struct {
	Ticker       string       `json:"ticker"`
	Underlying   string       `json:"underlying"`
	Type         ContractType `json:"type"`
	Strategy     string       `json:"strategy"`
	Strike       float64      `json:"strike"`
	Expiration   time.Time    `json:"expiration"`
	DTE          int          `json:"dte"`
	Bid          float64      `json:"bid"`
	Ask          float64      `json:"ask"`
	Mid          float64      `json:"mid"`
	Last         float64      `json:"last"`
	Premium      float64      `json:"premium"`
	Volume       int64        `json:"volume"`
	OpenInterest int64        `json:"open_interest"`
	Greeks       Greeks       `json:"greeks"`
	IVRank       *float64     `json:"iv_rank,omitempty"`

	SpotPrice           float64 `json:"spot_price"`
	UnderlyingChangePct float64 `json:"underlying_change_pct"`
	DaysToEarnings      *int    `json:"days_to_earnings,omitempty"`

	ROI           float64 `json:"roi"`
	ROIPerDay     float64 `json:"roi_per_day"`
	ROIAnnualized float64 `json:"roi_annualized"`
	Distance      float64 `json:"distance"`
	Breakeven     float64 `json:"breakeven"`
	PoP           float64 `json:"pop"`
	Capital       float64 `json:"capital"`

	LastUpdated time.Time `json:"last_updated"`
}

// ContractPremium is the cash value of one contract (100 shares).
func (c OptionContract) ContractPremium() float64 {
	return c.Premium * 100
}

// SpreadPercent returns the bid/ask spread as a percentage of the ask.
func (c OptionContract) SpreadPercent() (float64, bool) {
	if c.Bid <= 0 || c.Ask <= 0 {
		return 0, false
	}
	return (c.Ask - c.Bid) / c.Ask * 100, true
}
