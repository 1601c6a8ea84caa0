package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlateNumber  string             `bson:"plate_number" json:"plate_number"`
	Name         string             `bson:"name" json:"name"`
	Type         VehicleType        `bson:"type" json:"type"`
	Make         string             `bson:"make" json:"make"`
	Model        string             `bson:"model" json:"model"`
	Year         int                `bson:"year" json:"year"`
	CapacityTons decimal.Decimal    `bson:"capacity_tons" json:"capacity_tons"`
	FleetGroup   string             `bson:"fleet_group" json:"fleet_group"`
	Status       VehicleStatus      `bson:"status" json:"status"`
	Deleted      bool               `bson:"is_deleted" json:"is_deleted"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// IsAssignable reports whether new trips may be scheduled on the vehicle.
func (v Vehicle) IsAssignable() bool {
	return !v.Deleted && v.Status == VehicleActive
}

// DisplayName is the plate number followed by the name, when set.
func (v Vehicle) DisplayName() string {
	return joinName(v.PlateNumber, v.Name)
}

// Driver represents a fleet driver.
type Driver struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName      string             `bson:"full_name" json:"full_name"`
	Phone         string             `bson:"phone" json:"phone"`
	LicenseNumber string             `bson:"license_number" json:"license_number"`
	Status        DriverStatus       `bson:"status" json:"status"`
	Deleted       bool               `bson:"is_deleted" json:"is_deleted"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// IsAssignable reports whether new trips may be scheduled for the driver.
func (d Driver) IsAssignable() bool {
	return !d.Deleted && d.Status == DriverActive
}

// Route carries standard rates used only as pricing suggestions.
type Route struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code                string             `bson:"code" json:"code"`
	Name                string             `bson:"name" json:"name"`
	Origin              string             `bson:"origin" json:"origin"`
	Destination         string             `bson:"destination" json:"destination"`
	DistanceKm          float64            `bson:"distance_km" json:"distance_km"`
	StandardFreightRate decimal.Decimal    `bson:"standard_freight_rate" json:"standard_freight_rate"` // per ton, or flat when weight is unknown
	TollCost            decimal.Decimal    `bson:"toll_cost" json:"toll_cost"`
	Deleted             bool               `bson:"is_deleted" json:"is_deleted"`
}

func (r Route) DisplayName() string {
	return joinName(r.Code, r.Name)
}

// Customer is the party billed for a trip.
type Customer struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code    string             `bson:"code" json:"code"`
	Name    string             `bson:"name" json:"name"`
	Phone   string             `bson:"phone" json:"phone"`
	Deleted bool               `bson:"is_deleted" json:"is_deleted"`
}

func joinName(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " - ")
}
