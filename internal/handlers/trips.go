package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/dispatch"
	"github.com/ukydev/fleet-dispatch/internal/middleware"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/ukydev/fleet-dispatch/internal/pricing"
	"github.com/ukydev/fleet-dispatch/internal/report"
	"github.com/ukydev/fleet-dispatch/internal/service"
)

const dateLayout = "2006-01-02"

// TripService is the dispatch core as seen by the HTTP layer.
type TripService interface {
	CreateTrip(ctx context.Context, in service.TripInput, actor string, force bool) (models.Trip, *dispatch.Conflict, error)
	UpdateTrip(ctx context.Context, id string, in service.TripInput, actor string, force bool) (models.Trip, *dispatch.Conflict, error)
	TransitionTrip(ctx context.Context, id string, to models.TripStatus, actor string) (models.Trip, error)
	ApplyRoutePrice(ctx context.Context, id, actor string) (models.Trip, error)
	CheckConflict(ctx context.Context, c dispatch.Candidate) (*dispatch.Conflict, error)
	PreviewPricing(ctx context.Context, routeID string, weightTons *decimal.Decimal, revenue, charges decimal.Decimal) (pricing.Prices, error)
	GetTrip(ctx context.Context, id string) (models.ResolvedTrip, error)
	ListTrips(ctx context.Context, f report.Filters) ([]models.ResolvedTrip, error)
	IsLocked(ctx context.Context, date time.Time) (*models.AccountingPeriod, error)
	ActiveVehicles(ctx context.Context) ([]models.Vehicle, error)
	ActiveDrivers(ctx context.Context) ([]models.Driver, error)
	Report(ctx context.Context, req service.ReportRequest) (report.Report, error)
	DrillDown(ctx context.Context, req service.DrillDownRequest) (report.Row, []models.ResolvedTrip, error)
	ExportReport(ctx context.Context, req service.ReportRequest, w io.Writer) error
}

// TripHandler serves trips, pricing, periods and active resources. Dates in
// query strings are calendar days in loc.
type TripHandler struct {
	trips TripService
	loc   *time.Location
}

func NewTripHandler(trips TripService, loc *time.Location) *TripHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TripHandler{trips: trips, loc: loc}
}

// tripResponse carries a trip and the booking conflict it was saved over, if any.
type tripResponse struct {
	Trip     models.Trip        `json:"trip"`
	Conflict *dispatch.Conflict `json:"conflict,omitempty"`
}

// conflictResponse is returned with 409 when a save needs confirmation.
type conflictResponse struct {
	Error    string             `json:"error"`
	Code     string             `json:"code"`
	Conflict *dispatch.Conflict `json:"conflict"`
	Trip     models.Trip        `json:"trip"`
}

func (h *TripHandler) parseDay(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, h.loc)
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

// queryList collects repeated and comma-separated values of key.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseFilters reads the trip filter pipeline from the query string.
func (h *TripHandler) parseFilters(r *http.Request) (report.Filters, error) {
	q := r.URL.Query()
	f := report.Filters{
		Search:     strings.TrimSpace(q.Get("search")),
		VehicleID:  q.Get("vehicle_id"),
		DriverID:   q.Get("driver_id"),
		CustomerID: q.Get("customer_id"),
		RouteID:    q.Get("route_id"),
	}
	for _, key := range []string{"from", "to"} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		day, err := h.parseDay(v)
		if err != nil {
			return report.Filters{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", key, v)
		}
		if key == "from" {
			f.From = &day
		} else {
			f.To = &day
		}
	}
	for _, v := range queryList(r, "status") {
		s, ok := models.ParseTripStatus(v)
		if !ok {
			return report.Filters{}, fmt.Errorf("status: unknown value %q", v)
		}
		f.Statuses = append(f.Statuses, s)
	}
	return f, nil
}

func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trips, err := h.trips.ListTrips(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if trips == nil {
		trips = []models.ResolvedTrip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.GetTrip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// writeSaved answers a create or update. An unconfirmed conflict gets 409
// with the unsaved trip so the client can resubmit with force=true.
func writeSaved(w http.ResponseWriter, status int, trip models.Trip, conflict *dispatch.Conflict, force bool) {
	if conflict != nil && !force {
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error:    fmt.Sprintf("booking conflict with trip %s (%s)", conflict.TripCode, conflict.Resource),
			Code:     "booking_conflict",
			Conflict: conflict,
			Trip:     trip,
		})
		return
	}
	writeJSON(w, status, tripResponse{Trip: trip, Conflict: conflict})
}

func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in service.TripInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	trip, conflict, err := h.trips.CreateTrip(r.Context(), in, middleware.Actor(r.Context()), force)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSaved(w, http.StatusCreated, trip, conflict, force)
}

func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in service.TripInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	trip, conflict, err := h.trips.UpdateTrip(r.Context(), chi.URLParam(r, "id"), in, middleware.Actor(r.Context()), force)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSaved(w, http.StatusOK, trip, conflict, force)
}

// TransitionTrip moves a trip to the requested status. Closing additionally
// needs the close_trip permission.
func (h *TripHandler) TransitionTrip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	to, ok := models.ParseTripStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}
	if to == models.TripClosed && !claims.Role.HasPermission(models.ActionCloseTrip) {
		log.WithFields(log.Fields{"user": claims.Username, "role": claims.Role}).Info("close denied")
		writeError(w, http.StatusForbidden, "insufficient permissions to close trips")
		return
	}
	trip, err := h.trips.TransitionTrip(r.Context(), chi.URLParam(r, "id"), to, claims.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) ApplyRoutePrice(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.ApplyRoutePrice(r.Context(), chi.URLParam(r, "id"), middleware.Actor(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// CheckConflict is the pre-save check behind the booking form. The date is
// either YYYY-MM-DD in the fleet location or an RFC 3339 timestamp.
func (h *TripHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VehicleID     string `json:"vehicle_id"`
		DriverID      string `json:"driver_id"`
		Date          string `json:"date"`
		ExcludeTripID string `json:"exclude_trip_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	day, err := h.parseDay(req.Date)
	if err != nil {
		if day, err = time.Parse(time.RFC3339, req.Date); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("date: expected YYYY-MM-DD, got %q", req.Date))
			return
		}
	}
	c := dispatch.Candidate{VehicleID: req.VehicleID, DriverID: req.DriverID, Date: day, ExcludeTripID: req.ExcludeTripID}
	conflict, err := h.trips.CheckConflict(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflict": conflict})
}

func (h *TripHandler) PreviewPricing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RouteID           string           `json:"route_id"`
		CargoWeightTons   *decimal.Decimal `json:"cargo_weight_tons"`
		FreightRevenue    decimal.Decimal  `json:"freight_revenue"`
		AdditionalCharges decimal.Decimal  `json:"additional_charges"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	prices, err := h.trips.PreviewPricing(r.Context(), req.RouteID, req.CargoWeightTons, req.FreightRevenue, req.AdditionalCharges)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// PeriodLocked reports whether ?date= falls in a closed accounting period.
func (h *TripHandler) PeriodLocked(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("date")
	day, err := h.parseDay(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date: expected YYYY-MM-DD")
		return
	}
	period, err := h.trips.IsLocked(r.Context(), day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Date   string                   `json:"date"`
		Locked bool                     `json:"locked"`
		Period *models.AccountingPeriod `json:"period,omitempty"`
	}{Date: v, Locked: period != nil, Period: period})
}

func (h *TripHandler) ActiveVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.trips.ActiveVehicles(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *TripHandler) ActiveDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.trips.ActiveDrivers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if drivers == nil {
		drivers = []models.Driver{}
	}
	writeJSON(w, http.StatusOK, drivers)
}
