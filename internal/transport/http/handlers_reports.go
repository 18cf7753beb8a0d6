package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYear(w, chi.URLParam(r, "year"))
	if !ok {
		return
	}
	report, err := h.reports.GenerateAnnualComplianceReport(r.Context(), year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAnomalies defaults to the current year; ?year= overrides.
func (h *Handler) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		var ok bool
		if year, ok = parseYear(w, raw); !ok {
			return
		}
	}
	anomalies, err := h.reports.DetectComplianceAnomalies(r.Context(), year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, anomalies)
}

// handleTrends covers ?from=YYYY&to=YYYY, defaulting to the last three
// years inclusive.
func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	current := time.Now().UTC().Year()
	from, to := current-2, current
	if raw := r.URL.Query().Get("from"); raw != "" {
		var ok bool
		if from, ok = parseYear(w, raw); !ok {
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		var ok bool
		if to, ok = parseYear(w, raw); !ok {
			return
		}
	}
	if from > to {
		writeError(w, http.StatusBadRequest, "invalid_input", "from year is after to year")
		return
	}
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	report, err := h.reports.AnalyzeMultiYearTrends(r.Context(), years)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseYear(w http.ResponseWriter, raw string) (int, bool) {
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 3000 {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid year")
		return 0, false
	}
	return year, true
}
