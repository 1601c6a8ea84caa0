package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/dispatch"
	"github.com/ukydev/fleet-dispatch/internal/events"
	"github.com/ukydev/fleet-dispatch/internal/lifecycle"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/ukydev/fleet-dispatch/internal/pricing"
	"github.com/ukydev/fleet-dispatch/internal/registry"
)

const codeAttempts = 5

// TripInput carries the user-editable fields of a trip.
type TripInput struct {
	Code               string           `json:"code,omitempty"`
	VehicleID          string           `json:"vehicle_id"`
	DriverID           string           `json:"driver_id"`
	RouteID            string           `json:"route_id,omitempty"`
	CustomerID         string           `json:"customer_id,omitempty"`
	DepartureDate      time.Time        `json:"departure_date"`
	PlannedArrivalDate *time.Time       `json:"planned_arrival_date,omitempty"`
	ActualDeparture    *time.Time       `json:"actual_departure,omitempty"`
	ActualArrival      *time.Time       `json:"actual_arrival,omitempty"`
	StartOdometer      *float64         `json:"start_odometer,omitempty"`
	EndOdometer        *float64         `json:"end_odometer,omitempty"`
	ActualDistanceKm   *float64         `json:"actual_distance_km,omitempty"`
	CargoWeightTons    *decimal.Decimal `json:"cargo_weight_tons,omitempty"`
	CargoDescription   string           `json:"cargo_description,omitempty"`
	FreightRevenue     decimal.Decimal  `json:"freight_revenue"`
	AdditionalCharges  decimal.Decimal  `json:"additional_charges"`
	Notes              string           `json:"notes,omitempty"`
	Version            int64            `json:"version,omitempty"`
}

func (in TripInput) validate() error {
	var errs []error
	if in.DepartureDate.IsZero() {
		errs = append(errs, invalid("departure_date", "required"))
	}
	if in.FreightRevenue.IsNegative() {
		errs = append(errs, invalid("freight_revenue", "must not be negative"))
	}
	if in.AdditionalCharges.IsNegative() {
		errs = append(errs, invalid("additional_charges", "must not be negative"))
	}
	if in.CargoWeightTons != nil && in.CargoWeightTons.IsNegative() {
		errs = append(errs, invalid("cargo_weight_tons", "must not be negative"))
	}
	if in.ActualDistanceKm != nil && *in.ActualDistanceKm < 0 {
		errs = append(errs, invalid("actual_distance_km", "must not be negative"))
	}
	if in.PlannedArrivalDate != nil && in.PlannedArrivalDate.Before(in.DepartureDate) {
		errs = append(errs, invalid("planned_arrival_date", "must not precede departure"))
	}
	return errors.Join(errs...)
}

// applyTo copies the editable fields onto t. Code and status are left alone.
func (in TripInput) applyTo(t *models.Trip, loc *time.Location) {
	t.VehicleID = in.VehicleID
	t.DriverID = in.DriverID
	t.RouteID = in.RouteID
	t.CustomerID = in.CustomerID
	t.DepartureDate = in.DepartureDate.In(loc)
	t.PlannedArrivalDate = in.PlannedArrivalDate
	t.ActualDeparture = in.ActualDeparture
	t.ActualArrival = in.ActualArrival
	t.StartOdometer = in.StartOdometer
	t.EndOdometer = in.EndOdometer
	t.ActualDistanceKm = in.ActualDistanceKm
	t.CargoWeightTons = in.CargoWeightTons
	t.CargoDescription = in.CargoDescription
	t.FreightRevenue = in.FreightRevenue
	t.AdditionalCharges = in.AdditionalCharges
	t.Notes = in.Notes
}

func (s *TripService) route(ctx context.Context, id string) (*models.Route, error) {
	if id == "" {
		return nil, nil
	}
	route, err := s.store.FetchRoute(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch route: %w", err)
	}
	if route == nil {
		return nil, invalid("route_id", "route "+id+" not found")
	}
	return route, nil
}

func (s *TripService) applyPricingDefaults(ctx context.Context, t *models.Trip) error {
	route, err := s.route(ctx, t.RouteID)
	if err != nil {
		return err
	}
	prices := pricing.ResolveDefaults(route, t.CargoWeightTons, t.FreightRevenue, t.AdditionalCharges)
	t.FreightRevenue = prices.Revenue
	t.AdditionalCharges = prices.Charges
	t.RecomputeDerived()
	return nil
}

func (s *TripService) conflictFor(ctx context.Context, t models.Trip) (*dispatch.Conflict, error) {
	candidate := dispatch.Candidate{
		VehicleID: t.VehicleID,
		DriverID:  t.DriverID,
		Date:      s.inFleetZone(t.DepartureDate),
	}
	if !t.ID.IsZero() {
		candidate.ExcludeTripID = t.ID.Hex()
	}
	return s.CheckConflict(ctx, candidate)
}

// CheckConflict reports whether the candidate's vehicle or driver is already
// committed on the candidate's calendar day.
func (s *TripService) CheckConflict(ctx context.Context, c dispatch.Candidate) (*dispatch.Conflict, error) {
	if c.Date.IsZero() {
		return nil, invalid("date", "required")
	}
	c.Date = s.inFleetZone(c.Date)
	sameDay, err := s.store.FetchTripsOnDay(ctx, c.Date)
	if err != nil {
		return nil, fmt.Errorf("fetch same-day trips: %w", err)
	}
	return dispatch.CheckConflict(c, sameDay), nil
}

func (s *TripService) allocateCode(ctx context.Context, departure time.Time) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := s.newCode(departure)
		taken, err := s.store.TripCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check trip code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// CreateTrip validates and stores a new draft trip. When the vehicle or
// driver is already booked that day and force is false, nothing is stored
// and the conflict is returned for the caller to confirm. With force the
// trip is stored and the conflict is still returned.
func (s *TripService) CreateTrip(ctx context.Context, in TripInput, actor string, force bool) (models.Trip, *dispatch.Conflict, error) {
	if err := in.validate(); err != nil {
		return models.Trip{}, nil, err
	}

	reg, err := registry.Load(ctx, s.store)
	if err != nil {
		return models.Trip{}, nil, err
	}
	if err := reg.RequireAssignable(in.VehicleID, in.DriverID); err != nil {
		return models.Trip{}, nil, err
	}

	var trip models.Trip
	in.applyTo(&trip, s.loc)
	trip.Status = models.TripDraft
	trip.CreatedBy = actor

	m, err := s.machine(ctx)
	if err != nil {
		return models.Trip{}, nil, err
	}
	if err := m.CheckLocked(trip); err != nil {
		logRejected("create", trip, err)
		return models.Trip{}, nil, err
	}

	if err := s.applyPricingDefaults(ctx, &trip); err != nil {
		return models.Trip{}, nil, err
	}

	conflict, err := s.conflictFor(ctx, trip)
	if err != nil {
		return models.Trip{}, nil, err
	}
	if conflict != nil {
		log.WithFields(log.Fields{
			"vehicle_id":    trip.VehicleID,
			"driver_id":     trip.DriverID,
			"resource":      conflict.Resource,
			"conflict_code": conflict.TripCode,
			"forced":        force,
		}).Warn("trip conflicts with an existing booking")
		if !force {
			return trip, conflict, nil
		}
	}

	if in.Code != "" {
		taken, err := s.store.TripCodeExists(ctx, in.Code)
		if err != nil {
			return models.Trip{}, nil, fmt.Errorf("check trip code: %w", err)
		}
		if taken {
			return models.Trip{}, nil, invalid("code", "trip code "+in.Code+" is already in use")
		}
		trip.Code = in.Code
	} else if trip.Code, err = s.allocateCode(ctx, trip.DepartureDate); err != nil {
		return models.Trip{}, nil, err
	}

	if err := s.store.InsertTrip(ctx, &trip); err != nil {
		return models.Trip{}, nil, err
	}
	log.WithFields(log.Fields{"trip_id": trip.ID.Hex(), "trip_code": trip.Code, "actor": actor}).Info("trip created")
	s.publish(ctx, events.Created(trip, actor, s.now()))
	return trip, conflict, nil
}

// UpdateTrip replaces the editable fields of a trip. Closed trips and trips
// whose stored or new departure date is in a closed period are rejected, as
// is any attempt to change the code. Pricing defaults only fill zero values.
func (s *TripService) UpdateTrip(ctx context.Context, id string, in TripInput, actor string, force bool) (models.Trip, *dispatch.Conflict, error) {
	if err := in.validate(); err != nil {
		return models.Trip{}, nil, err
	}
	cur, err := s.store.FetchTrip(ctx, id)
	if err != nil {
		return models.Trip{}, nil, err
	}
	m, err := s.machine(ctx)
	if err != nil {
		return models.Trip{}, nil, err
	}
	if err := m.CheckMutable(cur); err != nil {
		logRejected("update", cur, err)
		return models.Trip{}, nil, err
	}
	if in.Code != "" && in.Code != cur.Code {
		return models.Trip{}, nil, ErrCodeImmutable
	}

	next := cur
	in.applyTo(&next, s.loc)
	if in.Version != 0 {
		next.Version = in.Version
	}
	if err := m.CheckLocked(next); err != nil {
		logRejected("update", next, err)
		return models.Trip{}, nil, err
	}

	if next.VehicleID != cur.VehicleID || next.DriverID != cur.DriverID {
		reg, err := registry.Load(ctx, s.store)
		if err != nil {
			return models.Trip{}, nil, err
		}
		var errs []error
		if next.VehicleID != cur.VehicleID {
			errs = append(errs, reg.CheckVehicle(next.VehicleID))
		}
		if next.DriverID != cur.DriverID {
			errs = append(errs, reg.CheckDriver(next.DriverID))
		}
		if err := errors.Join(errs...); err != nil {
			return models.Trip{}, nil, err
		}
	}

	if err := s.applyPricingDefaults(ctx, &next); err != nil {
		return models.Trip{}, nil, err
	}

	conflict, err := s.conflictFor(ctx, next)
	if err != nil {
		return models.Trip{}, nil, err
	}
	if conflict != nil && !force {
		log.WithFields(log.Fields{"trip_id": id, "conflict_code": conflict.TripCode}).Warn("trip update conflicts with an existing booking")
		return next, conflict, nil
	}

	saved, err := s.store.SaveTrip(ctx, next)
	if err != nil {
		return models.Trip{}, nil, err
	}
	log.WithFields(log.Fields{"trip_id": id, "trip_code": saved.Code, "actor": actor}).Info("trip updated")
	s.publish(ctx, events.Updated(saved, actor, s.now()))
	return saved, conflict, nil
}

// TransitionTrip moves a trip to status to. The expense total is refreshed
// from linked expenses except when cancelling, which keeps the last snapshot.
func (s *TripService) TransitionTrip(ctx context.Context, id string, to models.TripStatus, actor string) (models.Trip, error) {
	if !to.IsValid() {
		return models.Trip{}, invalid("status", "unknown status "+string(to))
	}
	cur, err := s.store.FetchTrip(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}
	m, err := s.machine(ctx)
	if err != nil {
		return models.Trip{}, err
	}

	now := s.now()
	next, err := m.Transition(cur, to, actor, now)
	if err != nil {
		logRejected("transition", cur, err)
		return models.Trip{}, err
	}

	if to != models.TripCancelled {
		sums, err := s.store.SumExpensesByTrip(ctx, []string{id})
		if err != nil {
			return models.Trip{}, fmt.Errorf("sum expenses: %w", err)
		}
		next.TotalExpense = sums[id]
	}

	saved, err := s.store.SaveTrip(ctx, next)
	if err != nil {
		return models.Trip{}, err
	}
	log.WithFields(log.Fields{
		"trip_id": id,
		"from":    cur.Status,
		"to":      saved.Status,
		"actor":   actor,
	}).Info("trip status changed")
	s.publish(ctx, events.StatusChanged(saved, cur.Status, actor, now))
	return saved, nil
}

// ApplyRoutePrice overwrites revenue and charges with the route's standard
// rates. Unlike the defaults applied on save, it replaces non-zero values.
func (s *TripService) ApplyRoutePrice(ctx context.Context, id, actor string) (models.Trip, error) {
	cur, err := s.store.FetchTrip(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}
	m, err := s.machine(ctx)
	if err != nil {
		return models.Trip{}, err
	}
	if err := m.CheckMutable(cur); err != nil {
		logRejected("apply-route-price", cur, err)
		return models.Trip{}, err
	}

	var route *models.Route
	if cur.RouteID != "" {
		if route, err = s.store.FetchRoute(ctx, cur.RouteID); err != nil {
			return models.Trip{}, fmt.Errorf("fetch route: %w", err)
		}
	}
	prices, err := pricing.ApplyRoutePrice(route, cur.CargoWeightTons, pricing.Prices{Revenue: cur.FreightRevenue, Charges: cur.AdditionalCharges})
	if err != nil {
		return models.Trip{}, err
	}

	next := cur
	next.FreightRevenue = prices.Revenue
	next.AdditionalCharges = prices.Charges
	next.RecomputeDerived()

	saved, err := s.store.SaveTrip(ctx, next)
	if err != nil {
		return models.Trip{}, err
	}
	log.WithFields(log.Fields{"trip_id": id, "route_id": cur.RouteID, "actor": actor}).Info("route price applied")
	s.publish(ctx, events.Updated(saved, actor, s.now()))
	return saved, nil
}

// PreviewPricing shows what the zero-only defaults would produce without
// touching any trip.
func (s *TripService) PreviewPricing(ctx context.Context, routeID string, weightTons *decimal.Decimal, revenue, charges decimal.Decimal) (pricing.Prices, error) {
	route, err := s.route(ctx, routeID)
	if err != nil {
		return pricing.Prices{}, err
	}
	return pricing.ResolveDefaults(route, weightTons, revenue, charges), nil
}

// GetTrip returns a trip with its references resolved and its expense total
// taken from the linked expenses.
func (s *TripService) GetTrip(ctx context.Context, id string) (models.ResolvedTrip, error) {
	trip, err := s.store.FetchTrip(ctx, id)
	if err != nil {
		return models.ResolvedTrip{}, err
	}
	one := []models.Trip{trip}
	if err := s.refreshExpenses(ctx, one); err != nil {
		return models.ResolvedTrip{}, err
	}
	trip = one[0]
	reg, err := registry.Load(ctx, s.store)
	if err != nil {
		return models.ResolvedTrip{}, err
	}
	return reg.Resolve(trip), nil
}

// IsLocked reports the closed period containing date, if any.
func (s *TripService) IsLocked(ctx context.Context, date time.Time) (*models.AccountingPeriod, error) {
	m, err := s.machine(ctx)
	if err != nil {
		return nil, err
	}
	err = m.CheckLocked(models.Trip{DepartureDate: s.inFleetZone(date)})
	var locked *lifecycle.LockedPeriodError
	if errors.As(err, &locked) {
		p := locked.Period
		return &p, nil
	}
	return nil, err
}

func (s *TripService) ActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.store.FetchActiveVehicles(ctx)
}

func (s *TripService) ActiveDrivers(ctx context.Context) ([]models.Driver, error) {
	return s.store.FetchActiveDrivers(ctx)
}
