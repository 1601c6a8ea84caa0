package report

import (
	"strings"
	"time"

	"github.com/ukydev/fleet-dispatch/internal/models"
)

// Filters narrows the trip set before grouping. Every criterion is optional
// and all set criteria must hold.
type Filters struct {
	From       *time.Time          `json:"from,omitempty"` // inclusive, by departure day
	To         *time.Time          `json:"to,omitempty"`   // inclusive, by departure day
	Search     string              `json:"search,omitempty"`
	Statuses   []models.TripStatus `json:"statuses,omitempty"`
	VehicleID  string              `json:"vehicle_id,omitempty"`
	DriverID   string              `json:"driver_id,omitempty"`
	CustomerID string              `json:"customer_id,omitempty"`
	RouteID    string              `json:"route_id,omitempty"`
}

// Apply runs the filter pipeline: deleted trips, date range, free-text
// search, status set, then id equality. The input is not modified.
func (f Filters) Apply(trips []models.ResolvedTrip) []models.ResolvedTrip {
	out := make([]models.ResolvedTrip, 0, len(trips))
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	var statuses map[models.TripStatus]bool
	if len(f.Statuses) > 0 {
		statuses = make(map[models.TripStatus]bool, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses[s] = true
		}
	}

	for _, t := range trips {
		if t.Deleted {
			continue
		}
		if !f.inRange(t.DepartureDate) {
			continue
		}
		if needle != "" && !matchesSearch(t, needle) {
			continue
		}
		if statuses != nil && !statuses[t.Status] {
			continue
		}
		if f.VehicleID != "" && t.VehicleID != f.VehicleID {
			continue
		}
		if f.DriverID != "" && t.DriverID != f.DriverID {
			continue
		}
		if f.CustomerID != "" && t.CustomerID != f.CustomerID {
			continue
		}
		if f.RouteID != "" && t.RouteID != f.RouteID {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (f Filters) inRange(departure time.Time) bool {
	day := models.DayKey(departure)
	if f.From != nil && day < models.DayKey(*f.From) {
		return false
	}
	if f.To != nil && day > models.DayKey(*f.To) {
		return false
	}
	return true
}

// matchesSearch is a case-insensitive substring match over the trip code and
// the names of whatever references resolved.
func matchesSearch(t models.ResolvedTrip, needle string) bool {
	fields := []string{t.Code}
	if t.Vehicle != nil {
		fields = append(fields, t.Vehicle.PlateNumber, t.Vehicle.Name)
	}
	if t.Driver != nil {
		fields = append(fields, t.Driver.FullName)
	}
	if t.Customer != nil {
		fields = append(fields, t.Customer.Name, t.Customer.Code)
	}
	if t.Route != nil {
		fields = append(fields, t.Route.Name, t.Route.Code)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
