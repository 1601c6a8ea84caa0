package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *stubToken {
	t := &stubToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *stubToken) Wait() bool                     { <-t.done; return true }
func (t *stubToken) WaitTimeout(time.Duration) bool { return true }
func (t *stubToken) Done() <-chan struct{}          { return t.done }
func (t *stubToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type stubClient struct {
	token        mqtt.Token
	sent         []published
	disconnected bool
}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic, qos, retained, payload.([]byte)})
	return c.token
}

func (c *stubClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisher_Publish(t *testing.T) {
	c := &stubClient{token: completedToken(nil)}
	p := newMQTTPublisher(c, "fleet")

	trip := models.Trip{ID: primitive.NewObjectID(), Code: "TR240501-ABCDEF", Status: models.TripDispatched}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), StatusChanged(trip, models.TripConfirmed, "dispatcher1", at)))

	require.Len(t, c.sent, 1)
	msg := c.sent[0]
	assert.Equal(t, "fleet/trips/"+trip.ID.Hex()+"/events", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.False(t, msg.retained)

	var e Event
	require.NoError(t, json.Unmarshal(msg.payload, &e))
	assert.Equal(t, TypeTripStatusChanged, e.Type)
	assert.Equal(t, models.TripConfirmed, e.From)
	assert.Equal(t, models.TripDispatched, e.To)
	assert.Equal(t, "dispatcher1", e.Actor)
	assert.True(t, at.Equal(e.At))

	p.Close()
	assert.True(t, c.disconnected)
}

func TestMQTTPublisher_Errors(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		p := newMQTTPublisher(&stubClient{token: completedToken(errors.New("not authorized"))}, "")
		err := p.Publish(context.Background(), Event{TripID: "x"})
		assert.EqualError(t, err, "not authorized")
		assert.Equal(t, "trips/x/events", p.Topic("x"))
	})

	t.Run("context cancelled before ack", func(t *testing.T) {
		p := newMQTTPublisher(&stubClient{token: &stubToken{done: make(chan struct{})}}, "fleet")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, p.Publish(ctx, Event{TripID: "x"}), context.Canceled)
	})
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	p.Close()
}
