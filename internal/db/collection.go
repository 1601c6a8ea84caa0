package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names.
const (
	TripsCollection     = "trips"
	VehiclesCollection  = "vehicles"
	DriversCollection   = "drivers"
	RoutesCollection    = "routes"
	CustomersCollection = "customers"
	ExpensesCollection  = "expenses"
	PeriodsCollection   = "accounting_periods"
	UsersCollection     = "users"
)

var (
	ErrNilCollection   = errors.New("mongo collection is nil")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidID       = errors.New("invalid record id")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// notDeleted matches rows whose soft-delete flag is unset or false.
func notDeleted() bson.M {
	return bson.M{"is_deleted": bson.M{"$ne": true}}
}

func and(filters ...bson.M) bson.M {
	parts := make(bson.A, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, f)
	}
	return bson.M{"$and": parts}
}

// departureWindow matches departure dates in [start, end).
func departureWindow(start, end time.Time) bson.M {
	return bson.M{"departure_date": bson.M{"$gte": start.UTC(), "$lt": end.UTC()}}
}
