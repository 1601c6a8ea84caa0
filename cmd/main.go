package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/auth"
	"github.com/ukydev/fleet-dispatch/internal/config"
	"github.com/ukydev/fleet-dispatch/internal/db"
	"github.com/ukydev/fleet-dispatch/internal/events"
	"github.com/ukydev/fleet-dispatch/internal/handlers"
	"github.com/ukydev/fleet-dispatch/internal/middleware"
	"github.com/ukydev/fleet-dispatch/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// newPublisher connects to the MQTT broker, or returns a no-op publisher when
// none is configured or the broker is unreachable.
func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.MQTTBroker == "" {
		log.Info("MQTT_BROKER not set, trip events disabled")
		return events.Noop{}
	}
	pub, err := events.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	if err != nil {
		log.WithError(err).WithField("broker", cfg.MQTTBroker).Warn("MQTT unavailable, trip events disabled")
		return events.Noop{}
	}
	log.WithFields(log.Fields{"broker": cfg.MQTTBroker, "prefix": cfg.MQTTTopicPrefix}).Info("publishing trip events")
	return pub
}

// newServer wires the store, services and routes into an HTTP server.
func newServer(cfg *config.Config, database *mongo.Database, publisher events.Publisher) (*http.Server, error) {
	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	store := db.NewRecordStore(database, cfg.Location)
	users := &db.MongoUserCollection{Collection: database.Collection(db.UsersCollection)}
	trips := service.NewTripService(store, publisher, cfg.Location)

	router := handlers.NewRouter(handlers.Dependencies{
		Auth:        handlers.NewAuthHandler(authService, users),
		Trips:       handlers.NewTripHandler(trips, cfg.Location),
		AuthMW:      middleware.NewAuthMiddleware(authService),
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		CORSOrigins: cfg.CORSOrigins,
	})
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.WithError(err).Warn("mongo disconnect")
		}
	}()

	publisher := newPublisher(cfg)
	defer publisher.Close()

	srv, err := newServer(cfg, client.Database(cfg.MongoDB), publisher)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":     srv.Addr,
			"env":      cfg.AppEnv,
			"database": cfg.MongoDB,
			"timezone": cfg.FleetTimezone,
		}).Info("fleet dispatch API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
