package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/models"
	"github.com/ukydev/fleet-dispatch/internal/report"
	"github.com/ukydev/fleet-dispatch/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *TripHandler) parseReportRequest(r *http.Request) (service.ReportRequest, error) {
	f, err := h.parseFilters(r)
	if err != nil {
		return service.ReportRequest{}, err
	}
	raw := r.URL.Query().Get("group_by")
	if raw == "" {
		raw = string(report.ByVehicle)
	}
	dim, ok := report.ParseDimension(raw)
	if !ok {
		return service.ReportRequest{}, fmt.Errorf("group_by: unknown dimension %q", raw)
	}
	legacy, err := queryBool(r, "legacy_labels")
	if err != nil {
		return service.ReportRequest{}, err
	}
	return service.ReportRequest{
		Filters: f,
		GroupBy: report.GroupBy{Dimension: dim, LegacyLabels: legacy},
	}, nil
}

// Report returns the grouped rows and the weighted footer.
func (h *TripHandler) Report(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := h.trips.Report(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// DrillDown lists the trips behind one row, chosen by ?key= or ?total=true.
// The key of the unknown bucket is the empty string, so key= with no value
// selects it.
func (h *TripHandler) DrillDown(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	total, err := queryBool(r, "total")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := r.URL.Query()["key"]; !ok && !total {
		writeError(w, http.StatusBadRequest, "key or total=true is required")
		return
	}
	row, trips, err := h.trips.DrillDown(r.Context(), service.DrillDownRequest{
		ReportRequest: req,
		Key:           r.URL.Query().Get("key"),
		Total:         total,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if trips == nil {
		trips = []models.ResolvedTrip{}
	}
	writeJSON(w, http.StatusOK, struct {
		Row   report.Row            `json:"row"`
		Trips []models.ResolvedTrip `json:"trips"`
	}{Row: row, Trips: trips})
}

// ExportReport streams the report as an xlsx workbook. The workbook is built
// in memory first so a failure still gets a JSON error.
func (h *TripHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := h.trips.ExportReport(r.Context(), req, &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	name := fmt.Sprintf("trips-by-%s-%s.xlsx", req.GroupBy.Dimension, time.Now().In(h.loc).Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.WithError(err).WithField("file", name).Warn("export write interrupted")
	}
}
