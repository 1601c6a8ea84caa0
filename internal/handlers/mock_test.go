package handlers

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/fleet-dispatch/internal/dispatch"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/ukydev/fleet-dispatch/internal/pricing"
	"github.com/ukydev/fleet-dispatch/internal/report"
	"github.com/ukydev/fleet-dispatch/internal/service"
)

type MockTripService struct {
	mock.Mock
}

func conflictArg(args mock.Arguments, i int) *dispatch.Conflict {
	c, _ := args.Get(i).(*dispatch.Conflict)
	return c
}

func (m *MockTripService) CreateTrip(ctx context.Context, in service.TripInput, actor string, force bool) (models.Trip, *dispatch.Conflict, error) {
	args := m.Called(ctx, in, actor, force)
	return args.Get(0).(models.Trip), conflictArg(args, 1), args.Error(2)
}

func (m *MockTripService) UpdateTrip(ctx context.Context, id string, in service.TripInput, actor string, force bool) (models.Trip, *dispatch.Conflict, error) {
	args := m.Called(ctx, id, in, actor, force)
	return args.Get(0).(models.Trip), conflictArg(args, 1), args.Error(2)
}

func (m *MockTripService) TransitionTrip(ctx context.Context, id string, to models.TripStatus, actor string) (models.Trip, error) {
	args := m.Called(ctx, id, to, actor)
	return args.Get(0).(models.Trip), args.Error(1)
}

func (m *MockTripService) ApplyRoutePrice(ctx context.Context, id, actor string) (models.Trip, error) {
	args := m.Called(ctx, id, actor)
	return args.Get(0).(models.Trip), args.Error(1)
}

func (m *MockTripService) CheckConflict(ctx context.Context, c dispatch.Candidate) (*dispatch.Conflict, error) {
	args := m.Called(ctx, c)
	return conflictArg(args, 0), args.Error(1)
}

func (m *MockTripService) PreviewPricing(ctx context.Context, routeID string, weightTons *decimal.Decimal, revenue, charges decimal.Decimal) (pricing.Prices, error) {
	args := m.Called(ctx, routeID, weightTons, revenue, charges)
	return args.Get(0).(pricing.Prices), args.Error(1)
}

func (m *MockTripService) GetTrip(ctx context.Context, id string) (models.ResolvedTrip, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.ResolvedTrip), args.Error(1)
}

func (m *MockTripService) ListTrips(ctx context.Context, f report.Filters) ([]models.ResolvedTrip, error) {
	args := m.Called(ctx, f)
	trips, _ := args.Get(0).([]models.ResolvedTrip)
	return trips, args.Error(1)
}

func (m *MockTripService) IsLocked(ctx context.Context, date time.Time) (*models.AccountingPeriod, error) {
	args := m.Called(ctx, date)
	p, _ := args.Get(0).(*models.AccountingPeriod)
	return p, args.Error(1)
}

func (m *MockTripService) ActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]models.Vehicle)
	return v, args.Error(1)
}

func (m *MockTripService) ActiveDrivers(ctx context.Context) ([]models.Driver, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).([]models.Driver)
	return d, args.Error(1)
}

func (m *MockTripService) Report(ctx context.Context, req service.ReportRequest) (report.Report, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(report.Report), args.Error(1)
}

func (m *MockTripService) DrillDown(ctx context.Context, req service.DrillDownRequest) (report.Row, []models.ResolvedTrip, error) {
	args := m.Called(ctx, req)
	trips, _ := args.Get(1).([]models.ResolvedTrip)
	return args.Get(0).(report.Row), trips, args.Error(2)
}

func (m *MockTripService) ExportReport(ctx context.Context, req service.ReportRequest, w io.Writer) error {
	args := m.Called(ctx, req, w)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(1)
}
