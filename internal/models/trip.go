package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trip represents a scheduled transport job for one vehicle and one driver.
type Trip struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code               string             `json:"code" bson:"code"`
	VehicleID          string             `json:"vehicle_id" bson:"vehicle_id"`
	DriverID           string             `json:"driver_id" bson:"driver_id"`
	RouteID            string             `json:"route_id,omitempty" bson:"route_id,omitempty"`
	CustomerID         string             `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	DepartureDate      time.Time          `json:"departure_date" bson:"departure_date"`
	PlannedArrivalDate *time.Time         `json:"planned_arrival_date,omitempty" bson:"planned_arrival_date,omitempty"`
	ActualDeparture    *time.Time         `json:"actual_departure,omitempty" bson:"actual_departure,omitempty"`
	ActualArrival      *time.Time         `json:"actual_arrival,omitempty" bson:"actual_arrival,omitempty"`
	StartOdometer      *float64           `json:"start_odometer,omitempty" bson:"start_odometer,omitempty"`
	EndOdometer        *float64           `json:"end_odometer,omitempty" bson:"end_odometer,omitempty"`
	ActualDistanceKm   *float64           `json:"actual_distance_km,omitempty" bson:"actual_distance_km,omitempty"`
	CargoWeightTons    *decimal.Decimal   `json:"cargo_weight_tons,omitempty" bson:"cargo_weight_tons,omitempty"`
	CargoDescription   string             `json:"cargo_description,omitempty" bson:"cargo_description,omitempty"`
	FreightRevenue     decimal.Decimal    `json:"freight_revenue" bson:"freight_revenue"`
	AdditionalCharges  decimal.Decimal    `json:"additional_charges" bson:"additional_charges"`
	TotalRevenue       decimal.Decimal    `json:"total_revenue" bson:"total_revenue"` // freight_revenue + additional_charges
	TotalExpense       decimal.Decimal    `json:"total_expense" bson:"total_expense"` // sum of linked expenses
	Status             TripStatus         `json:"status" bson:"status"`
	ClosedAt           *time.Time         `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
	ClosedBy           string             `json:"closed_by,omitempty" bson:"closed_by,omitempty"`
	Notes              string             `json:"notes,omitempty" bson:"notes,omitempty"`
	Deleted            bool               `json:"is_deleted" bson:"is_deleted"`
	Version            int64              `json:"version" bson:"version"`
	CreatedBy          string             `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

// Profit is total revenue minus total expense.
func (t Trip) Profit() decimal.Decimal {
	return t.TotalRevenue.Sub(t.TotalExpense)
}

// DistanceKm returns the actual distance, treating a missing value as zero.
func (t Trip) DistanceKm() float64 {
	if t.ActualDistanceKm == nil {
		return 0
	}
	return *t.ActualDistanceKm
}

// IsClosed reports whether the trip carries the closed lock markers.
func (t Trip) IsClosed() bool {
	return t.ClosedAt != nil
}

// RecomputeDerived refreshes the fields that are never entered directly:
// total revenue, and the actual distance when only odometer readings exist.
func (t *Trip) RecomputeDerived() {
	t.TotalRevenue = t.FreightRevenue.Add(t.AdditionalCharges)
	if t.ActualDistanceKm == nil && t.StartOdometer != nil && t.EndOdometer != nil && *t.EndOdometer >= *t.StartOdometer {
		d := *t.EndOdometer - *t.StartOdometer
		t.ActualDistanceKm = &d
	}
}

// ResolvedTrip is a trip together with whichever of its references could be
// resolved. A nil reference means the id did not resolve (or was empty).
type ResolvedTrip struct {
	Trip
	Vehicle  *Vehicle  `json:"vehicle,omitempty"`
	Driver   *Driver   `json:"driver,omitempty"`
	Route    *Route    `json:"route,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
}
