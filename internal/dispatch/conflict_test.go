package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var may1 = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

func trip(code, vehicle, driver string, status models.TripStatus, at time.Time) models.Trip {
	return models.Trip{
		ID:            primitive.NewObjectID(),
		Code:          code,
		VehicleID:     vehicle,
		DriverID:      driver,
		Status:        status,
		DepartureDate: at,
	}
}

func TestCheckConflict_DriverExample(t *testing.T) {
	candidate := Candidate{DriverID: "D1", VehicleID: "V9", Date: may1}

	dispatched := trip("TR-1", "V1", "D1", models.TripDispatched, may1.Add(3*time.Hour))
	c := CheckConflict(candidate, []models.Trip{dispatched})
	require.NotNil(t, c)
	assert.Equal(t, ResourceDriver, c.Resource)
	assert.Equal(t, "TR-1", c.TripCode)
	assert.Equal(t, "TR-1", c.DriverTripCode)
	assert.Empty(t, c.VehicleTripCode)

	cancelled := trip("TR-2", "V1", "D1", models.TripCancelled, may1)
	assert.Nil(t, CheckConflict(candidate, []models.Trip{cancelled}))
}

func TestCheckConflict(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		trips     []models.Trip
		want      Resource
	}{
		{
			name:      "shared vehicle, both non-terminal",
			candidate: Candidate{VehicleID: "V1", DriverID: "D2", Date: may1},
			trips:     []models.Trip{trip("TR-1", "V1", "D1", models.TripConfirmed, may1)},
			want:      ResourceVehicle,
		},
		{
			name:      "shared vehicle but cancelled",
			candidate: Candidate{VehicleID: "V1", DriverID: "D2", Date: may1},
			trips:     []models.Trip{trip("TR-1", "V1", "D1", models.TripCancelled, may1)},
		},
		{
			name:      "shared vehicle but completed",
			candidate: Candidate{VehicleID: "V1", DriverID: "D2", Date: may1},
			trips:     []models.Trip{trip("TR-1", "V1", "D1", models.TripCompleted, may1)},
		},
		{
			name:      "closed trip still holds the vehicle",
			candidate: Candidate{VehicleID: "V1", DriverID: "D2", Date: may1},
			trips:     []models.Trip{trip("TR-1", "V1", "D1", models.TripClosed, may1)},
			want:      ResourceVehicle,
		},
		{
			name:      "draft holds resources",
			candidate: Candidate{VehicleID: "V7", DriverID: "D1", Date: may1},
			trips:     []models.Trip{trip("TR-1", "V1", "D1", models.TripDraft, may1)},
			want:      ResourceDriver,
		},
		{
			name:      "vehicle and driver clash on different trips",
			candidate: Candidate{VehicleID: "V1", DriverID: "D1", Date: may1},
			trips: []models.Trip{
				trip("TR-1", "V1", "D5", models.TripInProgress, may1),
				trip("TR-2", "V5", "D1", models.TripDispatched, may1),
			},
			want: ResourceBoth,
		},
		{
			name:      "other day is ignored",
			candidate: Candidate{VehicleID: "V1", DriverID: "D1", Date: may1},
			trips:     []models.Trip{trip("TR-1", "V1", "D1", models.TripConfirmed, may1.AddDate(0, 0, 1))},
		},
		{
			name:      "no resources set",
			candidate: Candidate{Date: may1},
			trips:     []models.Trip{trip("TR-1", "", "", models.TripConfirmed, may1)},
		},
		{
			name:      "empty window",
			candidate: Candidate{VehicleID: "V1", DriverID: "D1", Date: may1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CheckConflict(tt.candidate, tt.trips)
			if tt.want == "" {
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.Resource)
		})
	}
}

func TestCheckConflict_ExcludesEditedTrip(t *testing.T) {
	existing := trip("TR-1", "V1", "D1", models.TripConfirmed, may1)
	candidate := Candidate{VehicleID: "V1", DriverID: "D1", Date: may1, ExcludeTripID: existing.ID.Hex()}
	assert.Nil(t, CheckConflict(candidate, []models.Trip{existing}))
}

func TestCheckConflict_SkipsDeletedTrips(t *testing.T) {
	deleted := trip("TR-1", "V1", "D1", models.TripConfirmed, may1)
	deleted.Deleted = true
	assert.Nil(t, CheckConflict(Candidate{VehicleID: "V1", Date: may1}, []models.Trip{deleted}))
}

func TestCheckConflict_BothOnOneTrip(t *testing.T) {
	existing := trip("", "V1", "D1", models.TripDispatched, may1)
	c := CheckConflict(Candidate{VehicleID: "V1", DriverID: "D1", Date: may1}, []models.Trip{existing})
	require.NotNil(t, c)
	assert.Equal(t, ResourceBoth, c.Resource)
	assert.Equal(t, existing.ID.Hex(), c.TripID)
}
