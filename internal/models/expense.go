package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense is a cost booked against a trip.
type Expense struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TripID        string             `json:"trip_id" bson:"trip_id"`
	VehicleID     string             `json:"vehicle_id" bson:"vehicle_id"`
	Category      string             `json:"category" bson:"category"` // "fuel", "tolls", "driver_allowance", "repair", "parking", "other"
	Description   string             `json:"description" bson:"description"`
	Amount        decimal.Decimal    `json:"amount" bson:"amount"`
	Date          time.Time          `json:"date" bson:"date"`
	InvoiceNumber string             `json:"invoice_number,omitempty" bson:"invoice_number,omitempty"`
	Vendor        string             `json:"vendor,omitempty" bson:"vendor,omitempty"`
	Deleted       bool               `json:"is_deleted" bson:"is_deleted"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// AccountingPeriod is a closed date range. Trips departing inside it are frozen.
type AccountingPeriod struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	StartDate time.Time          `json:"start_date" bson:"start_date"`
	EndDate   time.Time          `json:"end_date" bson:"end_date"` // inclusive
	ClosedAt  time.Time          `json:"closed_at" bson:"closed_at"`
	ClosedBy  string             `json:"closed_by" bson:"closed_by"`
}
