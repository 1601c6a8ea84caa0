// Package lifecycle validates and applies trip status transitions.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/ukydev/fleet-dispatch/internal/period"
)

var (
	ErrLockedPeriod      = errors.New("trip departs in a closed accounting period")
	ErrInvalidTransition = errors.New("invalid trip status transition")
	ErrTripClosed        = errors.New("trip is closed")
	ErrActorRequired     = errors.New("closing a trip requires an actor")
)

// LockedPeriodError is returned for any mutation of a trip whose departure
// date falls inside a closed accounting period.
type LockedPeriodError struct {
	TripCode string
	Date     time.Time
	Period   models.AccountingPeriod
}

func (e *LockedPeriodError) Error() string {
	return fmt.Sprintf("trip %s departs on %s, inside closed period %q",
		e.TripCode, e.Date.Format("2006-01-02"), e.Period.Name)
}

func (e *LockedPeriodError) Unwrap() error { return ErrLockedPeriod }

// InvalidTransitionError is returned when To is not reachable from From.
type InvalidTransitionError struct {
	From models.TripStatus
	To   models.TripStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move trip from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// AllowedTransitions is the trip status graph as code. Moves among the open
// statuses are allowed in both directions, closed is entered only from
// completed, and nothing leaves closed or cancelled.
var AllowedTransitions = map[models.TripStatus][]models.TripStatus{
	models.TripDraft:      {models.TripConfirmed, models.TripDispatched, models.TripInProgress, models.TripCompleted, models.TripCancelled},
	models.TripConfirmed:  {models.TripDraft, models.TripDispatched, models.TripInProgress, models.TripCompleted, models.TripCancelled},
	models.TripDispatched: {models.TripDraft, models.TripConfirmed, models.TripInProgress, models.TripCompleted, models.TripCancelled},
	models.TripInProgress: {models.TripDraft, models.TripConfirmed, models.TripDispatched, models.TripCompleted, models.TripCancelled},
	models.TripCompleted:  {models.TripDraft, models.TripConfirmed, models.TripDispatched, models.TripInProgress, models.TripClosed, models.TripCancelled},
}

func CanTransition(from, to models.TripStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine checks transitions against a snapshot of closed periods. It holds
// no other state; concurrent transitions on one trip must be serialized by
// the caller.
type Machine struct {
	periods []models.AccountingPeriod
}

func NewMachine(periods []models.AccountingPeriod) *Machine {
	return &Machine{periods: periods}
}

// CheckLocked fails when the trip's departure date is in a closed period.
func (m *Machine) CheckLocked(t models.Trip) error {
	if p, ok := period.FindClosedPeriod(t.DepartureDate, m.periods); ok {
		return &LockedPeriodError{TripCode: t.Code, Date: t.DepartureDate, Period: p}
	}
	return nil
}

// CheckMutable fails when any field of t may no longer change.
func (m *Machine) CheckMutable(t models.Trip) error {
	if err := m.CheckLocked(t); err != nil {
		return err
	}
	if t.IsClosed() || t.Status == models.TripClosed {
		return ErrTripClosed
	}
	return nil
}

// Transition returns a copy of t moved to status to. The closed-period check
// runs before the graph check, so a locked trip always yields a
// LockedPeriodError whatever the target.
func (m *Machine) Transition(t models.Trip, to models.TripStatus, actor string, now time.Time) (models.Trip, error) {
	if err := m.CheckLocked(t); err != nil {
		return t, err
	}
	if !CanTransition(t.Status, to) {
		return t, &InvalidTransitionError{From: t.Status, To: to}
	}
	if to == models.TripClosed && actor == "" {
		return t, ErrActorRequired
	}

	out := t
	out.Status = to
	out.TotalRevenue = out.FreightRevenue.Add(out.AdditionalCharges)
	if to == models.TripClosed {
		closedAt := now
		out.ClosedAt = &closedAt
		out.ClosedBy = actor
	}
	out.UpdatedAt = now
	return out, nil
}
