// Package service runs trip operations against the record store: it loads
// the snapshots the dispatch, lifecycle, pricing and report packages work
// on, persists the results and announces changes.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/events"
	"github.com/ukydev/fleet-dispatch/internal/lifecycle"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/ukydev/fleet-dispatch/internal/registry"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrCodeImmutable = errors.New("trip code cannot be changed")
	ErrCodeExhausted = errors.New("could not allocate a unique trip code")
)

// ValidationError names the input field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Store is the record store the service reads and writes.
type Store interface {
	registry.Source
	FetchTripsInRange(ctx context.Context, start, end *time.Time) ([]models.Trip, error)
	FetchTripsOnDay(ctx context.Context, day time.Time) ([]models.Trip, error)
	FetchTrip(ctx context.Context, id string) (models.Trip, error)
	FetchActiveVehicles(ctx context.Context) ([]models.Vehicle, error)
	FetchActiveDrivers(ctx context.Context) ([]models.Driver, error)
	FetchRoute(ctx context.Context, id string) (*models.Route, error)
	FetchClosedPeriods(ctx context.Context) ([]models.AccountingPeriod, error)
	SumExpensesByTrip(ctx context.Context, tripIDs []string) (map[string]decimal.Decimal, error)
	TripCodeExists(ctx context.Context, code string) (bool, error)
	InsertTrip(ctx context.Context, trip *models.Trip) error
	SaveTrip(ctx context.Context, trip models.Trip) (models.Trip, error)
}

// TripService is safe for concurrent use; it keeps no state between calls
// besides its collaborators.
type TripService struct {
	store     Store
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
	newCode   func(departure time.Time) string
}

// Option customizes a TripService.
type Option func(*TripService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TripService) { s.now = now }
}

// WithCodeGenerator replaces the trip code generator.
func WithCodeGenerator(gen func(departure time.Time) string) Option {
	return func(s *TripService) { s.newCode = gen }
}

// NewTripService wires the service. A nil publisher discards events and a
// nil location means UTC.
func NewTripService(store Store, publisher events.Publisher, loc *time.Location, opts ...Option) *TripService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &TripService{
		store:     store,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		newCode:   GenerateTripCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateTripCode returns TR<yymmdd>-<6 upper-case hex characters>.
func GenerateTripCode(departure time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "TR" + departure.Format("060102") + "-" + suffix
}

func (s *TripService) machine(ctx context.Context) (*lifecycle.Machine, error) {
	periods, err := s.store.FetchClosedPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch closed periods: %w", err)
	}
	return lifecycle.NewMachine(periods), nil
}

func (s *TripService) inFleetZone(t time.Time) time.Time {
	return t.In(s.loc)
}

// publish never fails the caller: the store is authoritative and events are
// best effort.
func (s *TripService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.WithFields(log.Fields{
			"event":   e.Type,
			"trip_id": e.TripID,
		}).WithError(err).Warn("failed to publish trip event")
	}
}

func logRejected(op string, t models.Trip, err error) {
	entry := log.WithFields(log.Fields{"op": op, "trip_id": t.ID.Hex(), "trip_code": t.Code})
	var locked *lifecycle.LockedPeriodError
	if errors.As(err, &locked) {
		entry.WithField("period", locked.Period.Name).Warn("mutation rejected: closed accounting period")
		return
	}
	entry.WithError(err).Info("mutation rejected")
}
