package alert

import (
	"time"

	"optionscout/internal/domain"
)

// Due reports whether criteria may trigger again at now. A throttled record becomes due
// only once the elapsed time exceeds its frequency window.
func Due(criteria domain.AlertCriteria, now time.Time) bool {
	if criteria.LastTriggered == nil {
		return true
	}
	window := criteria.Frequency.Window()
	if window == 0 {
		return true
	}
	return now.Sub(*criteria.LastTriggered) > window
}
