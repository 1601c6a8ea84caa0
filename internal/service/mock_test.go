package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/fleet-dispatch/internal/events"
	"github.com/ukydev/fleet-dispatch/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FetchVehicles(ctx context.Context) ([]models.Vehicle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *mockStore) FetchDrivers(ctx context.Context) ([]models.Driver, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Driver), args.Error(1)
}

func (m *mockStore) FetchRoutes(ctx context.Context) ([]models.Route, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Route), args.Error(1)
}

func (m *mockStore) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Customer), args.Error(1)
}

func (m *mockStore) FetchTripsInRange(ctx context.Context, start, end *time.Time) ([]models.Trip, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).([]models.Trip), args.Error(1)
}

func (m *mockStore) FetchTripsOnDay(ctx context.Context, day time.Time) ([]models.Trip, error) {
	args := m.Called(ctx, day)
	return args.Get(0).([]models.Trip), args.Error(1)
}

func (m *mockStore) FetchTrip(ctx context.Context, id string) (models.Trip, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Trip), args.Error(1)
}

func (m *mockStore) FetchActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *mockStore) FetchActiveDrivers(ctx context.Context) ([]models.Driver, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Driver), args.Error(1)
}

func (m *mockStore) FetchRoute(ctx context.Context, id string) (*models.Route, error) {
	args := m.Called(ctx, id)
	route, _ := args.Get(0).(*models.Route)
	return route, args.Error(1)
}

func (m *mockStore) FetchClosedPeriods(ctx context.Context) ([]models.AccountingPeriod, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.AccountingPeriod), args.Error(1)
}

func (m *mockStore) SumExpensesByTrip(ctx context.Context, tripIDs []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, tripIDs)
	sums, _ := args.Get(0).(map[string]decimal.Decimal)
	return sums, args.Error(1)
}

func (m *mockStore) TripCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) InsertTrip(ctx context.Context, trip *models.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *mockStore) SaveTrip(ctx context.Context, trip models.Trip) (models.Trip, error) {
	args := m.Called(ctx, trip)
	switch v := args.Get(0).(type) {
	case func(models.Trip) models.Trip:
		return v(trip), args.Error(1)
	case models.Trip:
		return v, args.Error(1)
	}
	return models.Trip{}, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() {}
