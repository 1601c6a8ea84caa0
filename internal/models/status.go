package models

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripDraft      TripStatus = "draft"
	TripConfirmed  TripStatus = "confirmed"
	TripDispatched TripStatus = "dispatched"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripClosed     TripStatus = "closed"
	TripCancelled  TripStatus = "cancelled"
)

// TripStatuses lists every trip status in lifecycle order.
var TripStatuses = []TripStatus{
	TripDraft,
	TripConfirmed,
	TripDispatched,
	TripInProgress,
	TripCompleted,
	TripClosed,
	TripCancelled,
}

// IsValid reports whether s is one of the known trip statuses.
func (s TripStatus) IsValid() bool {
	_, ok := tripStatusLabels[s]
	return ok
}

// IsTerminal reports whether no transition may leave s.
func (s TripStatus) IsTerminal() bool {
	return s == TripClosed || s == TripCancelled
}

// Label returns the display label for s, or the raw value when s is unknown.
func (s TripStatus) Label() string {
	return labelOf(tripStatusLabels, s)
}

// VehicleStatus is the availability of a vehicle.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleInactive    VehicleStatus = "inactive"
)

func (s VehicleStatus) Label() string {
	return labelOf(vehicleStatusLabels, s)
}

// DriverStatus is the availability of a driver.
type DriverStatus string

const (
	DriverActive   DriverStatus = "active"
	DriverOnLeave  DriverStatus = "on_leave"
	DriverInactive DriverStatus = "inactive"
)

func (s DriverStatus) Label() string {
	return labelOf(driverStatusLabels, s)
}

// VehicleType is the body type of a vehicle.
type VehicleType string

const (
	VehicleTruck   VehicleType = "truck"
	VehicleTractor VehicleType = "tractor"
	VehicleTrailer VehicleType = "trailer"
	VehicleVan     VehicleType = "van"
	VehiclePickup  VehicleType = "pickup"
)

func (t VehicleType) Label() string {
	return labelOf(vehicleTypeLabels, t)
}
