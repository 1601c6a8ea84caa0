// Command dispatchsim drives trips through the dispatch API: it books random
// vehicle and driver pairs and walks each trip to completed.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/config"
)

var walk = []string{"confirmed", "dispatched", "in_progress", "completed"}

var errConflict = errors.New("booking conflict")

type simConfig struct {
	BaseURL  string
	Token    string
	Username string
	Password string
	Trips    int
	Tick     time.Duration
	DaysOut  int
}

func loadConfig() simConfig {
	tick := config.GetEnvAsInt("SIM_TICK_SECONDS", 2)
	if tick < 1 {
		tick = 1
	}
	return simConfig{
		BaseURL:  strings.TrimSuffix(config.GetEnv("API_BASE_URL", "http://localhost:8080/api"), "/"),
		Token:    config.GetEnv("SIM_AUTH_TOKEN", ""),
		Username: config.GetEnv("SIM_USERNAME", "dispatcher"),
		Password: config.GetEnv("SIM_PASSWORD", ""),
		Trips:    config.GetEnvAsInt("SIM_TRIPS", 10),
		Tick:     time.Duration(tick) * time.Second,
		DaysOut:  config.GetEnvAsInt("SIM_DAYS_OUT", 7),
	}
}

type resource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tripRequest struct {
	VehicleID         string          `json:"vehicle_id"`
	DriverID          string          `json:"driver_id"`
	DepartureDate     time.Time       `json:"departure_date"`
	FreightRevenue    decimal.Decimal `json:"freight_revenue"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	Notes             string          `json:"notes,omitempty"`
}

type createdTrip struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

type conflictBody struct {
	Error    string `json:"error"`
	Conflict struct {
		Resource string `json:"resource"`
		TripCode string `json:"trip_code"`
	} `json:"conflict"`
}

// apiClient is a thin JSON client for the dispatch API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: 10 * time.Second}}
}

// do sends body as JSON and decodes a 2xx response into out. Other statuses
// are returned with the raw body so callers can inspect them.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal %s: %w", path, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, raw, nil
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, raw, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, raw, nil
}

func unexpected(op string, status int, raw []byte) error {
	return fmt.Errorf("%s: status %d: %s", op, status, strings.TrimSpace(string(raw)))
}

func (c *apiClient) login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/login",
		map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return unexpected("login", status, raw)
	}
	c.token = resp.Token
	return nil
}

func (c *apiClient) active(ctx context.Context, kind string) ([]resource, error) {
	var out []resource
	status, raw, err := c.do(ctx, http.MethodGet, "/"+kind+"/active", nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, unexpected("list "+kind, status, raw)
	}
	return out, nil
}

// createTrip books a trip. A booking conflict returns errConflict and the
// clashing trip code.
func (c *apiClient) createTrip(ctx context.Context, req tripRequest) (createdTrip, string, error) {
	var resp struct {
		Trip createdTrip `json:"trip"`
	}
	status, raw, err := c.do(ctx, http.MethodPost, "/trips", req, &resp)
	if err != nil {
		return createdTrip{}, "", err
	}
	switch status {
	case http.StatusCreated:
		return resp.Trip, "", nil
	case http.StatusConflict:
		var body conflictBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return createdTrip{}, "", unexpected("create trip", status, raw)
		}
		return createdTrip{}, body.Conflict.TripCode, errConflict
	}
	return createdTrip{}, "", unexpected("create trip", status, raw)
}

func (c *apiClient) transition(ctx context.Context, id, to string) error {
	status, raw, err := c.do(ctx, http.MethodPost, "/trips/"+id+"/status", map[string]string{"status": to}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return unexpected("transition to "+to, status, raw)
	}
	return nil
}

type stats struct {
	mu        sync.Mutex
	Created   int
	Conflicts int
	Completed int
	Failed    int
}

func (s *stats) add(f func(*stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s)
}

// walkTrip moves a trip through the dispatch statuses, one per tick.
func walkTrip(ctx context.Context, c *apiClient, trip createdTrip, tick time.Duration) error {
	t := time.NewTicker(tick)
	defer t.Stop()
	for _, to := range walk {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if err := c.transition(ctx, trip.ID, to); err != nil {
			return err
		}
		log.WithFields(log.Fields{"trip_code": trip.Code, "status": to}).Info("trip advanced")
	}
	return nil
}

func randomTrip(rng *rand.Rand, vehicles, drivers []resource, daysOut int, runID string) tripRequest {
	if daysOut < 1 {
		daysOut = 1
	}
	day := time.Now().AddDate(0, 0, rng.Intn(daysOut))
	departure := time.Date(day.Year(), day.Month(), day.Day(), 6+rng.Intn(12), 0, 0, 0, day.Location())
	return tripRequest{
		VehicleID:         vehicles[rng.Intn(len(vehicles))].ID,
		DriverID:          drivers[rng.Intn(len(drivers))].ID,
		DepartureDate:     departure,
		FreightRevenue:    decimal.NewFromInt(int64(500+rng.Intn(4500)) * 1000),
		AdditionalCharges: decimal.NewFromInt(int64(rng.Intn(200)) * 1000),
		Notes:             "dispatchsim run " + runID,
	}
}

func run(ctx context.Context, cfg simConfig, rng *rand.Rand) (*stats, error) {
	c := newAPIClient(cfg.BaseURL, cfg.Token)
	if c.token == "" {
		if cfg.Password == "" {
			return nil, errors.New("set SIM_AUTH_TOKEN or SIM_USERNAME and SIM_PASSWORD")
		}
		if err := c.login(ctx, cfg.Username, cfg.Password); err != nil {
			return nil, err
		}
	}

	vehicles, err := c.active(ctx, "vehicles")
	if err != nil {
		return nil, err
	}
	drivers, err := c.active(ctx, "drivers")
	if err != nil {
		return nil, err
	}
	if len(vehicles) == 0 || len(drivers) == 0 {
		return nil, fmt.Errorf("need at least one active vehicle and driver, have %d and %d", len(vehicles), len(drivers))
	}

	runID := uuid.NewString()
	log.WithFields(log.Fields{
		"run_id":   runID,
		"trips":    cfg.Trips,
		"vehicles": len(vehicles),
		"drivers":  len(drivers),
	}).Info("starting dispatch simulation")

	st := &stats{}
	var wg sync.WaitGroup
	for i := 0; i < cfg.Trips; i++ {
		req := randomTrip(rng, vehicles, drivers, cfg.DaysOut, runID)
		trip, clash, err := c.createTrip(ctx, req)
		switch {
		case errors.Is(err, errConflict):
			st.add(func(s *stats) { s.Conflicts++ })
			log.WithFields(log.Fields{
				"vehicle_id":    req.VehicleID,
				"driver_id":     req.DriverID,
				"departure":     req.DepartureDate.Format("2006-01-02"),
				"conflict_code": clash,
			}).Warn("booking conflict, skipping")
			continue
		case err != nil:
			st.add(func(s *stats) { s.Failed++ })
			log.WithError(err).Error("create trip failed")
			continue
		}
		st.add(func(s *stats) { s.Created++ })
		log.WithField("trip_code", trip.Code).Info("trip booked")

		wg.Add(1)
		go func(trip createdTrip) {
			defer wg.Done()
			if err := walkTrip(ctx, c, trip, cfg.Tick); err != nil {
				st.add(func(s *stats) { s.Failed++ })
				log.WithError(err).WithField("trip_code", trip.Code).Error("trip walk stopped")
				return
			}
			st.add(func(s *stats) { s.Completed++ })
		}(trip)
	}
	wg.Wait()
	return st, nil
}

func main() {
	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := run(ctx, cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.WithError(err).Fatal("simulation failed")
	}
	log.WithFields(log.Fields{
		"created":   st.Created,
		"conflicts": st.Conflicts,
		"completed": st.Completed,
		"failed":    st.Failed,
	}).Info("simulation finished")
}
