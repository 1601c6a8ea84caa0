package report

import "github.com/ukydev/fleet-dispatch/internal/models"

// Resolve returns the trips of filtered that belong to row. Only the group
// predicate is applied: filtered must already be the output of the filter
// pipeline that produced the row. A total row matches every trip. The result
// is empty, never nil, when nothing matches.
func Resolve(row Row, filtered []models.ResolvedTrip) []models.ResolvedTrip {
	out := make([]models.ResolvedTrip, 0)
	by := row.GroupBy()
	for _, t := range filtered {
		if row.Total {
			out = append(out, t)
			continue
		}
		if key, _ := groupKey(t, by); key == row.Key {
			out = append(out, t)
		}
	}
	return out
}

// FindRow returns the row of rep with the given key.
func (rep Report) FindRow(key string) (Row, bool) {
	for _, r := range rep.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return Row{}, false
}
