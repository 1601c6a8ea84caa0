// Package registry is a read-only view over the vehicles, drivers, routes and
// customers that trips reference by id.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/fleet-dispatch/internal/models"
)

var ErrMissingResource = errors.New("resource is not assignable")

type Kind string

const (
	KindVehicle Kind = "vehicle"
	KindDriver  Kind = "driver"
)

// MissingResourceError reports a vehicle or driver id that does not resolve
// to an active, non-deleted resource.
type MissingResourceError struct {
	Kind   Kind
	ID     string
	Reason string
}

func (e *MissingResourceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s is %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s %s is %s", e.Kind, e.ID, e.Reason)
}

func (e *MissingResourceError) Unwrap() error { return ErrMissingResource }

// Source is the part of the record store the registry is loaded from.
type Source interface {
	FetchVehicles(ctx context.Context) ([]models.Vehicle, error)
	FetchDrivers(ctx context.Context) ([]models.Driver, error)
	FetchRoutes(ctx context.Context) ([]models.Route, error)
	FetchCustomers(ctx context.Context) ([]models.Customer, error)
}

// Registry indexes resources by hex id.
type Registry struct {
	vehicles  map[string]models.Vehicle
	drivers   map[string]models.Driver
	routes    map[string]models.Route
	customers map[string]models.Customer
}

// New builds a registry from already fetched resources.
func New(vehicles []models.Vehicle, drivers []models.Driver, routes []models.Route, customers []models.Customer) *Registry {
	r := &Registry{
		vehicles:  make(map[string]models.Vehicle, len(vehicles)),
		drivers:   make(map[string]models.Driver, len(drivers)),
		routes:    make(map[string]models.Route, len(routes)),
		customers: make(map[string]models.Customer, len(customers)),
	}
	for _, v := range vehicles {
		r.vehicles[v.ID.Hex()] = v
	}
	for _, d := range drivers {
		r.drivers[d.ID.Hex()] = d
	}
	for _, rt := range routes {
		r.routes[rt.ID.Hex()] = rt
	}
	for _, c := range customers {
		r.customers[c.ID.Hex()] = c
	}
	return r
}

// Load fetches every resource from src and builds a registry.
func Load(ctx context.Context, src Source) (*Registry, error) {
	vehicles, err := src.FetchVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicles: %w", err)
	}
	drivers, err := src.FetchDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch drivers: %w", err)
	}
	routes, err := src.FetchRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch routes: %w", err)
	}
	customers, err := src.FetchCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	return New(vehicles, drivers, routes, customers), nil
}

func (r *Registry) Vehicle(id string) (models.Vehicle, bool) {
	v, ok := r.vehicles[id]
	return v, ok
}

func (r *Registry) Driver(id string) (models.Driver, bool) {
	d, ok := r.drivers[id]
	return d, ok
}

func (r *Registry) Route(id string) (models.Route, bool) {
	rt, ok := r.routes[id]
	return rt, ok
}

func (r *Registry) Customer(id string) (models.Customer, bool) {
	c, ok := r.customers[id]
	return c, ok
}

// RequireAssignable checks that both ids resolve to active, non-deleted
// resources. Both problems are reported when both fail.
func (r *Registry) RequireAssignable(vehicleID, driverID string) error {
	var errs []error
	if err := r.CheckVehicle(vehicleID); err != nil {
		errs = append(errs, err)
	}
	if err := r.CheckDriver(driverID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CheckVehicle fails unless id is an active, non-deleted vehicle.
func (r *Registry) CheckVehicle(id string) error {
	if id == "" {
		return &MissingResourceError{Kind: KindVehicle, Reason: "required"}
	}
	v, ok := r.vehicles[id]
	switch {
	case !ok:
		return &MissingResourceError{Kind: KindVehicle, ID: id, Reason: "not found"}
	case v.Deleted:
		return &MissingResourceError{Kind: KindVehicle, ID: id, Reason: "deleted"}
	case !v.IsAssignable():
		return &MissingResourceError{Kind: KindVehicle, ID: id, Reason: "not active (" + v.Status.Label() + ")"}
	}
	return nil
}

// CheckDriver fails unless id is an active, non-deleted driver.
func (r *Registry) CheckDriver(id string) error {
	if id == "" {
		return &MissingResourceError{Kind: KindDriver, Reason: "required"}
	}
	d, ok := r.drivers[id]
	switch {
	case !ok:
		return &MissingResourceError{Kind: KindDriver, ID: id, Reason: "not found"}
	case d.Deleted:
		return &MissingResourceError{Kind: KindDriver, ID: id, Reason: "deleted"}
	case !d.IsAssignable():
		return &MissingResourceError{Kind: KindDriver, ID: id, Reason: "not active (" + d.Status.Label() + ")"}
	}
	return nil
}

// Resolve attaches whichever references of t are known to the registry.
func (r *Registry) Resolve(t models.Trip) models.ResolvedTrip {
	rt := models.ResolvedTrip{Trip: t}
	if v, ok := r.vehicles[t.VehicleID]; ok {
		rt.Vehicle = &v
	}
	if d, ok := r.drivers[t.DriverID]; ok {
		rt.Driver = &d
	}
	if t.RouteID != "" {
		if route, ok := r.routes[t.RouteID]; ok {
			rt.Route = &route
		}
	}
	if t.CustomerID != "" {
		if c, ok := r.customers[t.CustomerID]; ok {
			rt.Customer = &c
		}
	}
	return rt
}

func (r *Registry) ResolveAll(trips []models.Trip) []models.ResolvedTrip {
	out := make([]models.ResolvedTrip, len(trips))
	for i, t := range trips {
		out[i] = r.Resolve(t)
	}
	return out
}
