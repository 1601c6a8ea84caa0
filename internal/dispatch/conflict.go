// Package dispatch detects vehicle and driver double-booking at dispatch time.
//
// The detector never blocks: it reports what it found and the caller decides
// whether to warn, ask for confirmation, or proceed.
package dispatch

import (
	"time"

	"github.com/ukydev/fleet-dispatch/internal/models"
)

// Resource says which side of a candidate is double-booked.
type Resource string

const (
	ResourceVehicle Resource = "vehicle"
	ResourceDriver  Resource = "driver"
	ResourceBoth    Resource = "both"
)

// Candidate is a trip about to be created or edited.
type Candidate struct {
	VehicleID     string    `json:"vehicle_id"`
	DriverID      string    `json:"driver_id"`
	Date          time.Time `json:"date"`
	ExcludeTripID string    `json:"exclude_trip_id,omitempty"`
}

// Conflict describes the committed trips that clash with a candidate.
// TripCode is the first clashing trip in input order.
type Conflict struct {
	Resource        Resource `json:"resource"`
	TripID          string   `json:"trip_id"`
	TripCode        string   `json:"trip_code"`
	VehicleTripCode string   `json:"vehicle_trip_code,omitempty"`
	DriverTripCode  string   `json:"driver_trip_code,omitempty"`
}

// exempt statuses no longer hold their vehicle and driver.
var exempt = map[models.TripStatus]bool{
	models.TripCancelled: true,
	models.TripCompleted: true,
}

// HoldsResources reports whether a trip in status s still commits its
// vehicle and driver for the day.
func HoldsResources(s models.TripStatus) bool {
	return !exempt[s]
}

// CheckConflict compares the candidate against the trips departing on the
// same calendar day. Trips on other days, deleted trips, the excluded trip
// and trips in an exempt status are ignored. It returns nil when nothing
// clashes or when the candidate has neither a vehicle nor a driver.
func CheckConflict(c Candidate, sameDayTrips []models.Trip) *Conflict {
	if c.VehicleID == "" && c.DriverID == "" {
		return nil
	}

	var out *Conflict
	var vehicleHit, driverHit bool
	for _, t := range sameDayTrips {
		if t.Deleted || !HoldsResources(t.Status) {
			continue
		}
		if c.ExcludeTripID != "" && t.ID.Hex() == c.ExcludeTripID {
			continue
		}
		if !c.Date.IsZero() && !models.SameDay(t.DepartureDate, c.Date) {
			continue
		}

		vehicle := c.VehicleID != "" && t.VehicleID == c.VehicleID
		driver := c.DriverID != "" && t.DriverID == c.DriverID
		if !vehicle && !driver {
			continue
		}

		if out == nil {
			out = &Conflict{TripID: t.ID.Hex(), TripCode: t.Code}
		}
		if vehicle && !vehicleHit {
			vehicleHit = true
			out.VehicleTripCode = t.Code
		}
		if driver && !driverHit {
			driverHit = true
			out.DriverTripCode = t.Code
		}
	}

	if out == nil {
		return nil
	}
	switch {
	case vehicleHit && driverHit:
		out.Resource = ResourceBoth
	case vehicleHit:
		out.Resource = ResourceVehicle
	default:
		out.Resource = ResourceDriver
	}
	return out
}
