// Package events publishes trip lifecycle events to MQTT.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/models"
)

const (
	TypeTripCreated       = "trip.created"
	TypeTripUpdated       = "trip.updated"
	TypeTripStatusChanged = "trip.status_changed"

	qosAtLeastOnce = 1
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Event is the JSON payload sent for each trip change.
type Event struct {
	Type     string            `json:"type"`
	TripID   string            `json:"trip_id"`
	TripCode string            `json:"trip_code"`
	From     models.TripStatus `json:"from,omitempty"`
	To       models.TripStatus `json:"to,omitempty"`
	Actor    string            `json:"actor"`
	At       time.Time         `json:"at"`
}

// Publisher delivers trip events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// client is the part of mqtt.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events to <prefix>/trips/<trip id>/events.
type MQTTPublisher struct {
	client client
	prefix string
}

// Connect dials the broker and returns a publisher bound to it.
func Connect(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	log.WithFields(log.Fields{"broker": broker, "client_id": clientID}).Info("connected to mqtt broker")
	return newMQTTPublisher(c, prefix), nil
}

func newMQTTPublisher(c client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: c, prefix: prefix}
}

// Topic returns the topic events for tripID are published on.
func (p *MQTTPublisher) Topic(tripID string) string {
	if p.prefix == "" {
		return "trips/" + tripID + "/events"
	}
	return p.prefix + "/trips/" + tripID + "/events"
}

// Publish sends e at QoS 1, not retained, and waits for the broker ack or
// the context deadline, whichever comes first.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	token := p.client.Publish(p.Topic(e.TripID), qosAtLeastOnce, false, payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPublishTimeout
	}
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// StatusChanged builds the event for a status transition.
func StatusChanged(t models.Trip, from models.TripStatus, actor string, at time.Time) Event {
	return Event{
		Type:     TypeTripStatusChanged,
		TripID:   t.ID.Hex(),
		TripCode: t.Code,
		From:     from,
		To:       t.Status,
		Actor:    actor,
		At:       at,
	}
}

// Created builds the event for a new trip.
func Created(t models.Trip, actor string, at time.Time) Event {
	return Event{Type: TypeTripCreated, TripID: t.ID.Hex(), TripCode: t.Code, To: t.Status, Actor: actor, At: at}
}

// Updated builds the event for a field edit.
func Updated(t models.Trip, actor string, at time.Time) Event {
	return Event{Type: TypeTripUpdated, TripID: t.ID.Hex(), TripCode: t.Code, From: t.Status, To: t.Status, Actor: actor, At: at}
}
