package report

import (
	"strings"

	"github.com/ukydev/fleet-dispatch/internal/models"
)

// Dimension is what trips are grouped by.
type Dimension string

const (
	ByVehicle       Dimension = "vehicle"
	ByDriver        Dimension = "driver"
	ByCustomer      Dimension = "customer"
	ByRoute         Dimension = "route"
	ByVehicleType   Dimension = "vehicle_type"
	ByVehicleStatus Dimension = "vehicle_status"
	ByFleetGroup    Dimension = "fleet_group"
)

var dimensions = []Dimension{ByVehicle, ByDriver, ByCustomer, ByRoute, ByVehicleType, ByVehicleStatus, ByFleetGroup}

func ParseDimension(s string) (Dimension, bool) {
	for _, d := range dimensions {
		if string(d) == strings.ToLower(strings.TrimSpace(s)) {
			return d, true
		}
	}
	return "", false
}

// GroupBy selects the dimension. LegacyLabels lets attribute dimensions fold
// values stored as display labels into their raw enum value; it is off unless
// the caller asks for it.
type GroupBy struct {
	Dimension    Dimension `json:"dimension"`
	LegacyLabels bool      `json:"legacy_labels"`
}

// unknownKey groups trips whose attribute is missing or unresolved.
const unknownKey = ""

// groupKey returns the group identity and display name of a trip. The same
// function backs both aggregation and drill-down.
func groupKey(t models.ResolvedTrip, by GroupBy) (key, name string) {
	switch by.Dimension {
	case ByVehicle:
		if t.Vehicle != nil {
			return t.VehicleID, t.Vehicle.DisplayName()
		}
		return t.VehicleID, unresolvedName("vehicle", t.VehicleID)
	case ByDriver:
		if t.Driver != nil {
			return t.DriverID, t.Driver.FullName
		}
		return t.DriverID, unresolvedName("driver", t.DriverID)
	case ByCustomer:
		if t.CustomerID == "" {
			return unknownKey, "No customer"
		}
		if t.Customer != nil {
			return t.CustomerID, t.Customer.Name
		}
		return t.CustomerID, unresolvedName("customer", t.CustomerID)
	case ByRoute:
		if t.RouteID == "" {
			return unknownKey, "No route"
		}
		if t.Route != nil {
			return t.RouteID, t.Route.DisplayName()
		}
		return t.RouteID, unresolvedName("route", t.RouteID)
	case ByVehicleType:
		if t.Vehicle == nil {
			return unknownKey, "Unknown vehicle"
		}
		raw := string(t.Vehicle.Type)
		parse := models.ParseVehicleType
		if by.LegacyLabels {
			parse = models.ParseVehicleTypeLegacy
		}
		if vt, ok := parse(raw); ok {
			return string(vt), vt.Label()
		}
		return raw, raw
	case ByVehicleStatus:
		if t.Vehicle == nil {
			return unknownKey, "Unknown vehicle"
		}
		raw := string(t.Vehicle.Status)
		parse := models.ParseVehicleStatus
		if by.LegacyLabels {
			parse = models.ParseVehicleStatusLegacy
		}
		if vs, ok := parse(raw); ok {
			return string(vs), vs.Label()
		}
		return raw, raw
	case ByFleetGroup:
		if t.Vehicle == nil {
			return unknownKey, "Unknown vehicle"
		}
		g := strings.TrimSpace(t.Vehicle.FleetGroup)
		if g == "" {
			return unknownKey, "No fleet group"
		}
		return g, g
	}
	return unknownKey, ""
}

// memberID is the resource counted by member_count.
func memberID(t models.ResolvedTrip, d Dimension) string {
	if d == ByDriver {
		return t.DriverID
	}
	return t.VehicleID
}

func unresolvedName(kind, id string) string {
	if id == "" {
		return "No " + kind
	}
	return "Unknown " + kind + " (" + id + ")"
}
