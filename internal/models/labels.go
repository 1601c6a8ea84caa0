package models

import "strings"

// Display labels shown to users. Historical rows were sometimes saved with
// the label instead of the raw value, so the Parse*Legacy helpers accept both.
var (
	tripStatusLabels = map[TripStatus]string{
		TripDraft:      "Draft",
		TripConfirmed:  "Confirmed",
		TripDispatched: "Dispatched",
		TripInProgress: "In progress",
		TripCompleted:  "Completed",
		TripClosed:     "Closed",
		TripCancelled:  "Cancelled",
	}

	vehicleStatusLabels = map[VehicleStatus]string{
		VehicleActive:      "Active",
		VehicleMaintenance: "In maintenance",
		VehicleInactive:    "Inactive",
	}

	driverStatusLabels = map[DriverStatus]string{
		DriverActive:   "Active",
		DriverOnLeave:  "On leave",
		DriverInactive: "Inactive",
	}

	vehicleTypeLabels = map[VehicleType]string{
		VehicleTruck:   "Truck",
		VehicleTractor: "Tractor unit",
		VehicleTrailer: "Trailer",
		VehicleVan:     "Van",
		VehiclePickup:  "Pickup",
	}
)

func labelOf[T ~string](labels map[T]string, v T) string {
	if l, ok := labels[v]; ok {
		return l
	}
	return string(v)
}

// parseEnum matches value against the raw enum values and, when legacy is
// set, against the display labels. Matching is case-insensitive.
func parseEnum[T ~string](labels map[T]string, value string, legacy bool) (T, bool) {
	v := strings.TrimSpace(value)
	for raw := range labels {
		if strings.EqualFold(string(raw), v) {
			return raw, true
		}
	}
	if legacy {
		for raw, label := range labels {
			if strings.EqualFold(label, v) {
				return raw, true
			}
		}
	}
	var zero T
	return zero, false
}

// ParseTripStatus parses a raw trip status value.
func ParseTripStatus(value string) (TripStatus, bool) {
	return parseEnum(tripStatusLabels, value, false)
}

// ParseTripStatusLegacy parses a trip status stored either raw or as its label.
func ParseTripStatusLegacy(value string) (TripStatus, bool) {
	return parseEnum(tripStatusLabels, value, true)
}

func ParseVehicleStatus(value string) (VehicleStatus, bool) {
	return parseEnum(vehicleStatusLabels, value, false)
}

func ParseVehicleStatusLegacy(value string) (VehicleStatus, bool) {
	return parseEnum(vehicleStatusLabels, value, true)
}

func ParseVehicleType(value string) (VehicleType, bool) {
	return parseEnum(vehicleTypeLabels, value, false)
}

func ParseVehicleTypeLegacy(value string) (VehicleType, bool) {
	return parseEnum(vehicleTypeLabels, value, true)
}
