package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-dispatch/internal/models"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

var route = &models.Route{
	Code:                "HCM-CT",
	StandardFreightRate: d(450_000),
	TollCost:            d(120_000),
}

func TestResolveDefaults(t *testing.T) {
	tests := []struct {
		name        string
		route       *models.Route
		weight      *decimal.Decimal
		revenue     decimal.Decimal
		charges     decimal.Decimal
		wantRevenue decimal.Decimal
		wantCharges decimal.Decimal
	}{
		{"rate times weight", route, dp("12.5"), decimal.Zero, decimal.Zero, d(5_625_000), d(120_000)},
		{"flat rate without weight", route, nil, decimal.Zero, decimal.Zero, d(450_000), d(120_000)},
		{"zero weight counts as unknown", route, dp("0"), decimal.Zero, decimal.Zero, d(450_000), d(120_000)},
		{"entered revenue kept", route, dp("10"), d(4_000_000), decimal.Zero, d(4_000_000), d(120_000)},
		{"entered charges kept", route, dp("10"), decimal.Zero, d(50_000), d(4_500_000), d(50_000)},
		{"no route", nil, dp("10"), decimal.Zero, d(50_000), decimal.Zero, d(50_000)},
		{"route without rates", &models.Route{Code: "X"}, nil, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDefaults(tt.route, tt.weight, tt.revenue, tt.charges)
			assert.True(t, tt.wantRevenue.Equal(got.Revenue), "revenue %s", got.Revenue)
			assert.True(t, tt.wantCharges.Equal(got.Charges), "charges %s", got.Charges)
		})
	}
}

func TestResolveDefaults_Idempotent(t *testing.T) {
	first := ResolveDefaults(route, dp("8"), decimal.Zero, decimal.Zero)
	second := ResolveDefaults(route, dp("8"), first.Revenue, first.Charges)
	assert.True(t, first.Revenue.Equal(second.Revenue))
	assert.True(t, first.Charges.Equal(second.Charges))
}

func TestResolveDefaults_NoOpAfterManualEdit(t *testing.T) {
	edited := d(3_333_000)
	for i := 0; i < 3; i++ {
		got := ResolveDefaults(route, dp("8"), edited, d(1))
		assert.True(t, edited.Equal(got.Revenue))
		assert.True(t, d(1).Equal(got.Charges))
	}
}

func TestApplyRoutePrice(t *testing.T) {
	t.Run("overwrites entered values", func(t *testing.T) {
		got, err := ApplyRoutePrice(route, dp("2"), Prices{Revenue: d(1), Charges: d(2)})
		require.NoError(t, err)
		assert.True(t, d(900_000).Equal(got.Revenue))
		assert.True(t, d(120_000).Equal(got.Charges))
	})

	t.Run("keeps components the route does not define", func(t *testing.T) {
		tollOnly := &models.Route{TollCost: d(80_000)}
		got, err := ApplyRoutePrice(tollOnly, nil, Prices{Revenue: d(700_000), Charges: d(2)})
		require.NoError(t, err)
		assert.True(t, d(700_000).Equal(got.Revenue))
		assert.True(t, d(80_000).Equal(got.Charges))
	})

	t.Run("no route", func(t *testing.T) {
		current := Prices{Revenue: d(5)}
		got, err := ApplyRoutePrice(nil, nil, current)
		assert.ErrorIs(t, err, ErrNoRoute)
		assert.Equal(t, current, got)
	})

	t.Run("route without rates", func(t *testing.T) {
		_, err := ApplyRoutePrice(&models.Route{}, nil, Prices{})
		assert.ErrorIs(t, err, ErrNoRouteRates)
	})
}
