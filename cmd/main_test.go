package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-dispatch/internal/config"
	"github.com/ukydev/fleet-dispatch/internal/db"
	"github.com/ukydev/fleet-dispatch/internal/events"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("RATE_LIMIT_REQUESTS", "1000")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

// lazyDatabase returns a handle that never dials until first use.
func lazyDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI("mongodb://127.0.0.1:1").SetRegistry(db.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("fleet_test")
}

func TestNewPublisherWithoutBroker(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, events.Noop{}, newPublisher(cfg))
}

func TestNewPublisherFallsBackWhenBrokerUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.MQTTBroker = "tcp://127.0.0.1:1"
	assert.IsType(t, events.Noop{}, newPublisher(cfg))
}

func TestNewServerRoutes(t *testing.T) {
	cfg := testConfig(t)
	srv, err := newServer(cfg, lazyDatabase(t), events.Noop{})
	require.NoError(t, err)
	assert.Equal(t, ":9090", srv.Addr)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trips", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewServerRejectsEmptySecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = ""
	_, err := newServer(cfg, lazyDatabase(t), events.Noop{})
	assert.Error(t, err)
}

func TestRunFailsWithoutMongo(t *testing.T) {
	cfg := testConfig(t)
	cfg.MongoURI = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, run(ctx, cfg))
}
