// Package pricing derives freight revenue and surcharge suggestions from a
// route's standard rates.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-dispatch/internal/models"
)

var (
	ErrNoRoute      = errors.New("trip has no route")
	ErrNoRouteRates = errors.New("route has no standard freight rate or toll cost")
)

// Prices are the two user-editable revenue components of a trip.
type Prices struct {
	Revenue decimal.Decimal `json:"freight_revenue"`
	Charges decimal.Decimal `json:"additional_charges"`
}

// SuggestRevenue is the route rate times the cargo weight, or the flat rate
// when the weight is unknown.
func SuggestRevenue(route *models.Route, weightTons *decimal.Decimal) (decimal.Decimal, bool) {
	if route == nil || !route.StandardFreightRate.IsPositive() {
		return decimal.Zero, false
	}
	if weightTons != nil && weightTons.IsPositive() {
		return route.StandardFreightRate.Mul(*weightTons), true
	}
	return route.StandardFreightRate, true
}

// SuggestCharges is the route's toll cost.
func SuggestCharges(route *models.Route) (decimal.Decimal, bool) {
	if route == nil || !route.TollCost.IsPositive() {
		return decimal.Zero, false
	}
	return route.TollCost, true
}

// ResolveDefaults fills revenue and charges from the route only where the
// current value is zero. A value the user entered is never replaced, so
// calling it again with its own output changes nothing.
func ResolveDefaults(route *models.Route, weightTons *decimal.Decimal, currentRevenue, currentCharges decimal.Decimal) Prices {
	out := Prices{Revenue: currentRevenue, Charges: currentCharges}
	if s, ok := SuggestRevenue(route, weightTons); ok && currentRevenue.IsZero() {
		out.Revenue = s
	}
	if s, ok := SuggestCharges(route); ok && currentCharges.IsZero() {
		out.Charges = s
	}
	return out
}

// ApplyRoutePrice is the explicit "use route price" action: every component
// the route defines overwrites the current value.
func ApplyRoutePrice(route *models.Route, weightTons *decimal.Decimal, current Prices) (Prices, error) {
	if route == nil {
		return current, ErrNoRoute
	}
	revenue, hasRevenue := SuggestRevenue(route, weightTons)
	charges, hasCharges := SuggestCharges(route)
	if !hasRevenue && !hasCharges {
		return current, ErrNoRouteRates
	}

	out := current
	if hasRevenue {
		out.Revenue = revenue
	}
	if hasCharges {
		out.Charges = charges
	}
	return out, nil
}
