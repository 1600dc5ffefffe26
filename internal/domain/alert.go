package domain

import (
	"fmt"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
)

// Window is the minimum time between two triggers of the same criteria.
func (f Frequency) Window() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	default:
		return 0
	}
}

func ParseFrequency(v string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(v))) {
	case FrequencyImmediate, "":
		return FrequencyImmediate, nil
	case FrequencyHourly:
		return FrequencyHourly, nil
	case FrequencyDaily:
		return FrequencyDaily, nil
	}
	return "", fmt.Errorf("unsupported alert frequency: %q", v)
}

// AlertCriteria is a user-authored filter. Nil pointers and empty lists mean "no constraint".
type AlertCriteria struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	Strategies      []string `json:"strategies,omitempty"`
	MinROI          *float64 `json:"min_roi,omitempty"`
	MaxROI          *float64 `json:"max_roi,omitempty"`
	MinPoP          *float64 `json:"min_pop,omitempty"`
	Tickers         []string `json:"tickers,omitempty"`
	ExcludeTickers  []string `json:"exclude_tickers,omitempty"`
	MinVolume       *int64   `json:"min_volume,omitempty"`
	MinOpenInterest *int64   `json:"min_open_interest,omitempty"`
	MinIV           *float64 `json:"min_iv,omitempty"`
	MaxIV           *float64 `json:"max_iv,omitempty"`
	IVRankMin       *float64 `json:"iv_rank_min,omitempty"`
	IVRankMax       *float64 `json:"iv_rank_max,omitempty"`

	EmailEnabled bool      `json:"email_enabled"`
	InAppEnabled bool      `json:"in_app_enabled"`
	Frequency    Frequency `json:"frequency"`

	CreatedAt     time.Time  `json:"created_at"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
}

// AlertSnapshot freezes the contract fields an alert was triggered on.
type AlertSnapshot struct {
	Ticker       string    `json:"ticker"`
	Underlying   string    `json:"underlying"`
	Strategy     string    `json:"strategy"`
	Strike       float64   `json:"strike"`
	Expiration   time.Time `json:"expiration"`
	Premium      float64   `json:"premium"`
	ROI          float64   `json:"roi"`
	PoP          float64   `json:"pop"`
	IV           *float64  `json:"iv,omitempty"`
	Volume       int64     `json:"volume"`
	OpenInterest int64     `json:"open_interest"`
	Score        int       `json:"score"`
}

type Alert struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	CriteriaID   string        `json:"criteria_id"`
	CriteriaName string        `json:"criteria_name"`
	Opportunity  AlertSnapshot `json:"opportunity"`
	TriggeredAt  time.Time     `json:"triggered_at"`
	Read         bool          `json:"read"`
	EmailSent    bool          `json:"email_sent"`
	InAppSent    bool          `json:"in_app_sent"`
}
