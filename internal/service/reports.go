package service

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/ukydev/fleet-dispatch/internal/registry"
	"github.com/ukydev/fleet-dispatch/internal/report"
)

// ReportRequest selects the trips and grouping of a report.
type ReportRequest struct {
	Filters report.Filters
	GroupBy report.GroupBy
}

// DrillDownRequest names one row of a report. Total selects the footer.
type DrillDownRequest struct {
	ReportRequest
	Key   string
	Total bool
}

// refreshExpenses replaces the stored expense snapshot with the sum of the
// linked expenses. Cancelled trips keep their snapshot.
func (s *TripService) refreshExpenses(ctx context.Context, trips []models.Trip) error {
	ids := make([]string, 0, len(trips))
	for _, t := range trips {
		if t.Status != models.TripCancelled {
			ids = append(ids, t.ID.Hex())
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sums, err := s.store.SumExpensesByTrip(ctx, ids)
	if err != nil {
		return fmt.Errorf("sum expenses: %w", err)
	}
	for i := range trips {
		if trips[i].Status == models.TripCancelled {
			continue
		}
		sum, ok := sums[trips[i].ID.Hex()]
		if !ok {
			sum = decimal.Zero
		}
		trips[i].TotalExpense = sum
	}
	return nil
}

// filteredTrips fetches the date window, refreshes expense totals, resolves
// references and runs the filter pipeline once.
func (s *TripService) filteredTrips(ctx context.Context, f report.Filters) ([]models.ResolvedTrip, error) {
	if f.From != nil {
		from := s.inFleetZone(*f.From)
		f.From = &from
	}
	if f.To != nil {
		to := s.inFleetZone(*f.To)
		f.To = &to
	}
	trips, err := s.store.FetchTripsInRange(ctx, f.From, f.To)
	if err != nil {
		return nil, err
	}
	if err := s.refreshExpenses(ctx, trips); err != nil {
		return nil, err
	}
	reg, err := registry.Load(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return f.Apply(reg.ResolveAll(trips)), nil
}

func (s *TripService) validateGroupBy(by report.GroupBy) error {
	if _, ok := report.ParseDimension(string(by.Dimension)); !ok {
		return invalid("group_by", fmt.Sprintf("unknown dimension %q", by.Dimension))
	}
	return nil
}

// ListTrips returns the filtered trips with references resolved.
func (s *TripService) ListTrips(ctx context.Context, f report.Filters) ([]models.ResolvedTrip, error) {
	return s.filteredTrips(ctx, f)
}

// Report aggregates the filtered trips by the requested dimension.
func (s *TripService) Report(ctx context.Context, req ReportRequest) (report.Report, error) {
	rep, _, err := s.buildReport(ctx, req)
	return rep, err
}

func (s *TripService) buildReport(ctx context.Context, req ReportRequest) (report.Report, []models.ResolvedTrip, error) {
	if err := s.validateGroupBy(req.GroupBy); err != nil {
		return report.Report{}, nil, err
	}
	filtered, err := s.filteredTrips(ctx, req.Filters)
	if err != nil {
		return report.Report{}, nil, err
	}
	rep := report.Aggregate(filtered, req.GroupBy, report.Filters{})
	rep.Filters = req.Filters
	return rep, filtered, nil
}

// DrillDown returns the row and the trips behind it. A key that no longer
// matches any row yields an empty trip list, not an error.
func (s *TripService) DrillDown(ctx context.Context, req DrillDownRequest) (report.Row, []models.ResolvedTrip, error) {
	rep, filtered, err := s.buildReport(ctx, req.ReportRequest)
	if err != nil {
		return report.Row{}, nil, err
	}
	row := rep.Totals
	if !req.Total {
		var ok bool
		if row, ok = rep.FindRow(req.Key); !ok {
			row = report.Row{Dimension: req.GroupBy.Dimension, LegacyLabels: req.GroupBy.LegacyLabels, Key: req.Key}
		}
	}
	return row, report.Resolve(row, filtered), nil
}

// ExportReport writes the report and its trips as an xlsx workbook.
func (s *TripService) ExportReport(ctx context.Context, req ReportRequest, w io.Writer) error {
	rep, filtered, err := s.buildReport(ctx, req)
	if err != nil {
		return err
	}
	return report.WriteXLSX(w, rep, filtered)
}
