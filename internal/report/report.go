// Package report rolls a flat trip ledger up into per-group financial rows
// and recovers the trips behind any row.
package report

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-dispatch/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Row is one aggregation group, or the grand total when Total is set.
type Row struct {
	Dimension       Dimension       `json:"dimension"`
	LegacyLabels    bool            `json:"legacy_labels,omitempty"`
	Total           bool            `json:"total,omitempty"`
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	MemberCount     int             `json:"member_count"`
	TripCount       int             `json:"trip_count"`
	TotalDistanceKm float64         `json:"total_distance_km"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalExpense    decimal.Decimal `json:"total_expense"`
	Profit          decimal.Decimal `json:"profit"`
	ProfitMarginPct decimal.Decimal `json:"profit_margin_pct"`
}

// GroupBy returns the grouping the row was built with.
func (r Row) GroupBy() GroupBy {
	return GroupBy{Dimension: r.Dimension, LegacyLabels: r.LegacyLabels}
}

// Report is the grouped rows plus the footer.
type Report struct {
	GroupBy GroupBy `json:"group_by"`
	Filters Filters `json:"filters"`
	Rows    []Row   `json:"rows"`
	Totals  Row     `json:"totals"`
}

// Margin is profit as a percentage of revenue, rounded to two places, or
// zero when there is no positive revenue.
func Margin(profit, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred).Round(2)
}

// Aggregate filters trips, buckets them by the chosen dimension and sums each
// bucket. Rows are ordered by revenue descending, then name and key.
func Aggregate(trips []models.ResolvedTrip, by GroupBy, filters Filters) Report {
	filtered := filters.Apply(trips)

	type bucket struct {
		name  string
		trips []models.ResolvedTrip
	}
	buckets := make(map[string]*bucket)
	var order []string
	for _, t := range filtered {
		key, name := groupKey(t, by)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: name}
			buckets[key] = b
			order = append(order, key)
		}
		b.trips = append(b.trips, t)
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		rows = append(rows, Summarize(by, key, b.name, b.trips))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].TotalRevenue.Cmp(rows[j].TotalRevenue); c != 0 {
			return c > 0
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Key < rows[j].Key
	})

	totals := Totals(by, rows)
	totals.MemberCount = countMembers(filtered, by.Dimension)

	return Report{GroupBy: by, Filters: filters, Rows: rows, Totals: totals}
}

// Summarize computes one row from the trips of a group.
func Summarize(by GroupBy, key, name string, trips []models.ResolvedTrip) Row {
	row := Row{
		Dimension:    by.Dimension,
		LegacyLabels: by.LegacyLabels,
		Key:          key,
		Name:         name,
		TripCount:    len(trips),
		MemberCount:  countMembers(trips, by.Dimension),
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, t := range trips {
		row.TotalDistanceKm += t.DistanceKm()
		row.TotalRevenue = row.TotalRevenue.Add(t.TotalRevenue)
		row.TotalExpense = row.TotalExpense.Add(t.TotalExpense)
	}
	row.Profit = row.TotalRevenue.Sub(row.TotalExpense)
	row.ProfitMarginPct = Margin(row.Profit, row.TotalRevenue)
	return row
}

// Totals re-applies the row formulas across rows: sums of the additive
// fields, and the margin of the summed profit over the summed revenue.
// Row margins are never averaged. MemberCount is the sum of row counts;
// Aggregate replaces it with the count of distinct members across all trips.
func Totals(by GroupBy, rows []Row) Row {
	total := Row{
		Dimension:    by.Dimension,
		LegacyLabels: by.LegacyLabels,
		Total:        true,
		Name:         "Total",
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, r := range rows {
		total.MemberCount += r.MemberCount
		total.TripCount += r.TripCount
		total.TotalDistanceKm += r.TotalDistanceKm
		total.TotalRevenue = total.TotalRevenue.Add(r.TotalRevenue)
		total.TotalExpense = total.TotalExpense.Add(r.TotalExpense)
	}
	total.Profit = total.TotalRevenue.Sub(total.TotalExpense)
	total.ProfitMarginPct = Margin(total.Profit, total.TotalRevenue)
	return total
}

func countMembers(trips []models.ResolvedTrip, d Dimension) int {
	seen := make(map[string]struct{}, len(trips))
	for _, t := range trips {
		if id := memberID(t, d); id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
