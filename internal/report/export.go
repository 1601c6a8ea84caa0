package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	reportSheet = "Report"
	tripsSheet  = "Trips"
	dateLayout  = "2006-01-02"
)

var reportHeaders = []string{"Group", "Members", "Trips", "Distance (km)", "Revenue", "Expense", "Profit", "Margin (%)"}

var tripHeaders = []string{"Code", "Departure", "Status", "Vehicle", "Driver", "Customer", "Route", "Distance (km)", "Revenue", "Expense", "Profit"}

// WriteXLSX writes the report rows and footer to a "Report" sheet and the
// trips behind them to a "Trips" sheet.
func WriteXLSX(w io.Writer, rep Report, trips []models.ResolvedTrip) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(tripsSheet); err != nil {
		return fmt.Errorf("create trips sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRow(f, reportSheet, 1, toCells(reportHeaders), bold); err != nil {
		return err
	}
	for i, r := range rep.Rows {
		if err := writeRow(f, reportSheet, i+2, rowCells(r), 0); err != nil {
			return err
		}
	}
	if err := writeRow(f, reportSheet, len(rep.Rows)+2, rowCells(rep.Totals), bold); err != nil {
		return err
	}

	if err := writeRow(f, tripsSheet, 1, toCells(tripHeaders), bold); err != nil {
		return err
	}
	for i, t := range trips {
		if err := writeRow(f, tripsSheet, i+2, tripCells(t), 0); err != nil {
			return err
		}
	}

	f.SetColWidth(reportSheet, "A", "A", 30)
	f.SetColWidth(tripsSheet, "A", "G", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}, style int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	if style == 0 || len(values) == 0 {
		return nil
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(values), row)
	return f.SetCellStyle(sheet, first, last, style)
}

func toCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func rowCells(r Row) []interface{} {
	return []interface{}{
		r.Name,
		r.MemberCount,
		r.TripCount,
		r.TotalDistanceKm,
		money(r.TotalRevenue),
		money(r.TotalExpense),
		money(r.Profit),
		money(r.ProfitMarginPct),
	}
}

func tripCells(t models.ResolvedTrip) []interface{} {
	var vehicle, driver, customer, route string
	if t.Vehicle != nil {
		vehicle = t.Vehicle.DisplayName()
	}
	if t.Driver != nil {
		driver = t.Driver.FullName
	}
	if t.Customer != nil {
		customer = t.Customer.Name
	}
	if t.Route != nil {
		route = t.Route.DisplayName()
	}
	return []interface{}{
		t.Code,
		t.DepartureDate.Format(dateLayout),
		t.Status.Label(),
		vehicle,
		driver,
		customer,
		route,
		t.DistanceKm(),
		money(t.TotalRevenue),
		money(t.TotalExpense),
		money(t.Profit()),
	}
}
