package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const pingTimeout = 10 * time.Second

// ConnectMongo connects to MongoDB with the decimal-aware registry and
// verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(NewRegistry()))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// RecordStore reads and writes trips and the records they reference. Every
// fetch skips soft-deleted rows. Times are returned in the fleet location so
// calendar-day comparisons match what dispatchers see.
type RecordStore struct {
	Trips     *mongo.Collection
	Vehicles  *mongo.Collection
	Drivers   *mongo.Collection
	Routes    *mongo.Collection
	Customers *mongo.Collection
	Expenses  *mongo.Collection
	Periods   *mongo.Collection

	loc *time.Location
	now func() time.Time
}

// NewRecordStore binds the store to the collections of database.
func NewRecordStore(database *mongo.Database, loc *time.Location) *RecordStore {
	if loc == nil {
		loc = time.UTC
	}
	return &RecordStore{
		Trips:     database.Collection(TripsCollection),
		Vehicles:  database.Collection(VehiclesCollection),
		Drivers:   database.Collection(DriversCollection),
		Routes:    database.Collection(RoutesCollection),
		Customers: database.Collection(CustomersCollection),
		Expenses:  database.Collection(ExpensesCollection),
		Periods:   database.Collection(PeriodsCollection),
		loc:       loc,
		now:       time.Now,
	}
}

// Location is the fleet time zone.
func (s *RecordStore) Location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

func (s *RecordStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

var byDeparture = options.Find().SetSort(bson.D{{Key: "departure_date", Value: 1}, {Key: "code", Value: 1}})

// FetchTripsInRange returns trips departing on or between the calendar days of
// start and end. A nil bound is open.
func (s *RecordStore) FetchTripsInRange(ctx context.Context, start, end *time.Time) ([]models.Trip, error) {
	filter := notDeleted()
	window := bson.M{}
	if start != nil {
		window["$gte"] = models.StartOfDay(start.In(s.Location())).UTC()
	}
	if end != nil {
		window["$lt"] = models.StartOfDay(end.In(s.Location())).AddDate(0, 0, 1).UTC()
	}
	if len(window) > 0 {
		filter = and(filter, bson.M{"departure_date": window})
	}
	trips, err := findAll[models.Trip](ctx, s.Trips, filter, byDeparture)
	if err != nil {
		return nil, fmt.Errorf("fetch trips: %w", err)
	}
	return s.normalizeTrips(trips), nil
}

// FetchTripsOnDay returns the trips departing on the calendar day of day.
func (s *RecordStore) FetchTripsOnDay(ctx context.Context, day time.Time) ([]models.Trip, error) {
	start := models.StartOfDay(day.In(s.Location()))
	trips, err := findAll[models.Trip](ctx, s.Trips, and(notDeleted(), departureWindow(start, start.AddDate(0, 0, 1))), byDeparture)
	if err != nil {
		return nil, fmt.Errorf("fetch trips on %s: %w", start.Format("2006-01-02"), err)
	}
	return s.normalizeTrips(trips), nil
}

// FetchTrip returns the trip with the given id.
func (s *RecordStore) FetchTrip(ctx context.Context, id string) (models.Trip, error) {
	if s.Trips == nil {
		return models.Trip{}, ErrNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return models.Trip{}, err
	}
	var trip models.Trip
	err = s.Trips.FindOne(ctx, and(bson.M{"_id": oid}, notDeleted())).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Trip{}, fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Trip{}, err
	}
	return s.normalizeTrip(trip), nil
}

// TripCodeExists reports whether any trip, deleted or not, already uses code.
func (s *RecordStore) TripCodeExists(ctx context.Context, code string) (bool, error) {
	if s.Trips == nil {
		return false, ErrNilCollection
	}
	n, err := s.Trips.CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertTrip stores a new trip at version 1 and fills in its id.
func (s *RecordStore) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if s.Trips == nil {
		return ErrNilCollection
	}
	now := s.clock()
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.Version = 1
	trip.CreatedAt = now
	trip.UpdatedAt = now
	if _, err := s.Trips.InsertOne(ctx, trip); err != nil {
		return fmt.Errorf("insert trip %s: %w", trip.Code, err)
	}
	return nil
}

// SaveTrip replaces the stored trip if its version still matches and bumps
// the version. ErrVersionConflict means another writer got there first.
func (s *RecordStore) SaveTrip(ctx context.Context, trip models.Trip) (models.Trip, error) {
	if s.Trips == nil {
		return models.Trip{}, ErrNilCollection
	}
	expected := trip.Version
	trip.Version = expected + 1
	trip.UpdatedAt = s.clock()

	res, err := s.Trips.ReplaceOne(ctx, bson.M{"_id": trip.ID, "version": expected}, trip)
	if err != nil {
		return models.Trip{}, fmt.Errorf("save trip %s: %w", trip.Code, err)
	}
	if res.MatchedCount == 0 {
		n, err := s.Trips.CountDocuments(ctx, bson.M{"_id": trip.ID})
		if err != nil {
			return models.Trip{}, err
		}
		if n == 0 {
			return models.Trip{}, fmt.Errorf("trip %s: %w", trip.ID.Hex(), ErrNotFound)
		}
		return models.Trip{}, fmt.Errorf("trip %s at version %d: %w", trip.Code, expected, ErrVersionConflict)
	}
	return s.normalizeTrip(trip), nil
}

// FetchVehicles returns every non-deleted vehicle regardless of status.
func (s *RecordStore) FetchVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return findAll[models.Vehicle](ctx, s.Vehicles, notDeleted())
}

// FetchActiveVehicles returns the vehicles that may take new trips.
func (s *RecordStore) FetchActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return findAll[models.Vehicle](ctx, s.Vehicles, and(notDeleted(), bson.M{"status": models.VehicleActive}),
		options.Find().SetSort(bson.D{{Key: "plate_number", Value: 1}}))
}

func (s *RecordStore) FetchDrivers(ctx context.Context) ([]models.Driver, error) {
	return findAll[models.Driver](ctx, s.Drivers, notDeleted())
}

func (s *RecordStore) FetchActiveDrivers(ctx context.Context) ([]models.Driver, error) {
	return findAll[models.Driver](ctx, s.Drivers, and(notDeleted(), bson.M{"status": models.DriverActive}),
		options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}}))
}

func (s *RecordStore) FetchRoutes(ctx context.Context) ([]models.Route, error) {
	return findAll[models.Route](ctx, s.Routes, notDeleted())
}

// FetchRoute returns nil without error when the route does not exist.
func (s *RecordStore) FetchRoute(ctx context.Context, id string) (*models.Route, error) {
	if s.Routes == nil {
		return nil, ErrNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var route models.Route
	err = s.Routes.FindOne(ctx, and(bson.M{"_id": oid}, notDeleted())).Decode(&route)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (s *RecordStore) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	return findAll[models.Customer](ctx, s.Customers, notDeleted())
}

// FetchClosedPeriods returns every accounting period that has been closed.
func (s *RecordStore) FetchClosedPeriods(ctx context.Context) ([]models.AccountingPeriod, error) {
	periods, err := findAll[models.AccountingPeriod](ctx, s.Periods, bson.M{"closed_at": bson.M{"$exists": true, "$ne": nil}},
		options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("fetch closed periods: %w", err)
	}
	for i := range periods {
		periods[i].StartDate = periods[i].StartDate.In(s.Location())
		periods[i].EndDate = periods[i].EndDate.In(s.Location())
	}
	return periods, nil
}

// SumExpensesByTrip totals the non-deleted expenses of each trip. Trips
// without expenses are present with a zero total.
func (s *RecordStore) SumExpensesByTrip(ctx context.Context, tripIDs []string) (map[string]decimal.Decimal, error) {
	if s.Expenses == nil {
		return nil, ErrNilCollection
	}
	totals := make(map[string]decimal.Decimal, len(tripIDs))
	for _, id := range tripIDs {
		totals[id] = decimal.Zero
	}
	if len(tripIDs) == 0 {
		return totals, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: and(notDeleted(), bson.M{"trip_id": bson.M{"$in": tripIDs}})}},
		{{Key: "$group", Value: bson.M{"_id": "$trip_id", "total": bson.M{"$sum": "$amount"}}}},
	}
	cursor, err := s.Expenses.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var sums []struct {
		TripID string          `bson:"_id"`
		Total  decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &sums); err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}
	for _, row := range sums {
		totals[row.TripID] = row.Total
	}
	return totals, nil
}

func (s *RecordStore) normalizeTrips(trips []models.Trip) []models.Trip {
	for i := range trips {
		trips[i] = s.normalizeTrip(trips[i])
	}
	return trips
}

// normalizeTrip moves times into the fleet location and folds status values
// stored as display labels back to the raw enum.
func (s *RecordStore) normalizeTrip(t models.Trip) models.Trip {
	loc := s.Location()
	t.DepartureDate = t.DepartureDate.In(loc)
	for _, p := range []**time.Time{&t.PlannedArrivalDate, &t.ActualDeparture, &t.ActualArrival, &t.ClosedAt} {
		if *p != nil {
			v := (*p).In(loc)
			*p = &v
		}
	}
	if !t.Status.IsValid() {
		if st, ok := models.ParseTripStatusLegacy(string(t.Status)); ok {
			t.Status = st
		}
	}
	return t
}
