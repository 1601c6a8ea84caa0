package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records the calls the simulator makes. Every conflictEvery-th
// booking is answered with 409.
type fakeAPI struct {
	mu            sync.Mutex
	conflictEvery int
	bookings      int
	transitions   map[string][]string
	requestIDs    map[string]bool
	authHeaders   []string
}

func newFakeAPI(conflictEvery int) *fakeAPI {
	return &fakeAPI{conflictEvery: conflictEvery, transitions: map[string][]string{}, requestIDs: map[string]bool{}}
}

func (f *fakeAPI) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.requestIDs[r.Header.Get("X-Request-Id")] = true
			f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
			f.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
	})
	r.Get("/api/vehicles/active", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"v1","name":"Truck 1"},{"id":"v2","name":"Truck 2"}]`))
	})
	r.Get("/api/drivers/active", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"d1","name":"An"}]`))
	})
	r.Post("/api/trips", func(w http.ResponseWriter, r *http.Request) {
		var req tripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VehicleID == "" || req.DriverID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.bookings++
		n := f.bookings
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if f.conflictEvery > 0 && n%f.conflictEvery == 0 {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"booking conflict","code":"booking_conflict","conflict":{"resource":"driver","trip_code":"TR-OLD"}}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"trip": map[string]string{
			"id": fmt.Sprintf("t%d", n), "code": fmt.Sprintf("TR-%d", n), "status": "draft",
		}})
	})
	r.Post("/api/trips/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.transitions[chi.URLParam(r, "id")] = append(f.transitions[chi.URLParam(r, "id")], req["status"])
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"status": req["status"]})
	})
	return r
}

func startFake(t *testing.T, conflictEvery int) (*fakeAPI, string) {
	t.Helper()
	api := newFakeAPI(conflictEvery)
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return api, srv.URL + "/api"
}

func TestRunWalksTripsToCompleted(t *testing.T) {
	api, base := startFake(t, 3)
	cfg := simConfig{BaseURL: base, Username: "dispatcher", Password: "secret123", Trips: 6, Tick: time.Millisecond, DaysOut: 3}

	st, err := run(context.Background(), cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 4, st.Created)
	assert.Equal(t, 2, st.Conflicts)
	assert.Equal(t, 4, st.Completed)
	assert.Zero(t, st.Failed)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.transitions, 4)
	for id, seen := range api.transitions {
		assert.Equal(t, walk, seen, id)
	}
	assert.NotContains(t, api.requestIDs, "")
	// login goes out unauthenticated, everything after carries the token
	assert.Equal(t, "", api.authHeaders[0])
	assert.Equal(t, "Bearer tok", api.authHeaders[len(api.authHeaders)-1])
}

func TestRunWithToken(t *testing.T) {
	api, base := startFake(t, 0)
	cfg := simConfig{BaseURL: base, Token: "preset", Trips: 1, Tick: time.Millisecond, DaysOut: 1}

	st, err := run(context.Background(), cfg, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Completed)

	api.mu.Lock()
	defer api.mu.Unlock()
	for _, h := range api.authHeaders {
		assert.Equal(t, "Bearer preset", h)
	}
}

func TestRunNeedsCredentials(t *testing.T) {
	_, err := run(context.Background(), simConfig{BaseURL: "http://127.0.0.1:1/api"}, rand.New(rand.NewSource(3)))
	assert.ErrorContains(t, err, "SIM_AUTH_TOKEN")
}

func TestRunBadPassword(t *testing.T) {
	_, base := startFake(t, 0)
	_, err := run(context.Background(), simConfig{BaseURL: base, Username: "x", Password: "wrong"}, rand.New(rand.NewSource(4)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestWalkTripStopsOnCancel(t *testing.T) {
	_, base := startFake(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := walkTrip(ctx, newAPIClient(base, "tok"), createdTrip{ID: "t1"}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vehicles := []resource{{ID: "v1"}, {ID: "v2"}}
	drivers := []resource{{ID: "d1"}}
	today := time.Now()
	for i := 0; i < 20; i++ {
		req := randomTrip(rng, vehicles, drivers, 3, "run-1")
		assert.Contains(t, []string{"v1", "v2"}, req.VehicleID)
		assert.Equal(t, "d1", req.DriverID)
		assert.True(t, req.FreightRevenue.IsPositive())
		assert.False(t, req.AdditionalCharges.IsNegative())
		days := int(req.DepartureDate.Sub(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())).Hours() / 24)
		assert.GreaterOrEqual(t, days, 0)
		assert.Less(t, days, 3)
		assert.True(t, strings.HasSuffix(req.Notes, "run-1"))
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.test/api/")
	t.Setenv("SIM_TRIPS", "25")
	t.Setenv("SIM_TICK_SECONDS", "0")
	cfg := loadConfig()
	assert.Equal(t, "http://api.test/api", cfg.BaseURL)
	assert.Equal(t, 25, cfg.Trips)
	assert.Equal(t, time.Second, cfg.Tick)
}
