// Package period answers whether a date is frozen by a closed accounting period.
package period

import (
	"time"

	"github.com/ukydev/fleet-dispatch/internal/models"
)

// FindClosedPeriod returns the first period whose inclusive date range
// contains the calendar day of date.
func FindClosedPeriod(date time.Time, periods []models.AccountingPeriod) (models.AccountingPeriod, bool) {
	if date.IsZero() {
		return models.AccountingPeriod{}, false
	}
	day := models.DayKey(date)
	for _, p := range periods {
		if models.DayKey(p.StartDate) <= day && day <= models.DayKey(p.EndDate) {
			return p, true
		}
	}
	return models.AccountingPeriod{}, false
}

// IsDateInClosedPeriod reports whether date falls inside any closed period.
func IsDateInClosedPeriod(date time.Time, periods []models.AccountingPeriod) bool {
	_, ok := FindClosedPeriod(date, periods)
	return ok
}
