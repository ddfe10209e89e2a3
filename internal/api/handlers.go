package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/newsletter-metrics/internal/domain"
)

// MetricsSource is the slice of the repository the API reads from.
type MetricsSource interface {
	ListRange(ctx context.Context, start, end time.Time) ([]domain.MetricRecord, error)
	ListRangeByPlatform(ctx context.Context, start, end time.Time, platform domain.Platform) ([]domain.MetricRecord, error)
}

// ReportRenderer renders stored metrics into the sheet CSV layout.
type ReportRenderer interface {
	CombinedCSV(ctx context.Context, start, end time.Time) (string, error)
	PlatformCSV(ctx context.Context, start, end time.Time, platform domain.Platform) (string, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	metrics MetricsSource
	reports ReportRenderer
}

// NewHandlers creates handlers over the given metrics source.
func NewHandlers(metrics MetricsSource, reports ReportRenderer) *Handlers {
	return &Handlers{metrics: metrics, reports: reports}
}

// HealthCheck returns the health status of the API
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// GetMetrics returns stored records for a date range as JSON. Query params:
// start, end (YYYY-MM-DD, default yesterday) and an optional platform filter.
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	platform, err := parsePlatform(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var records []domain.MetricRecord
	if platform != "" {
		records, err = h.metrics.ListRangeByPlatform(r.Context(), start, end, platform)
	} else {
		records, err = h.metrics.ListRange(r.Context(), start, end)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch metrics")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"start":   start.Format("2006-01-02"),
		"end":     end.Format("2006-01-02"),
		"count":   len(records),
		"metrics": records,
	})
}

// GetExportCSV streams the sheet-compatible CSV for a date range. Takes the
// same query params as GetMetrics.
func (h *Handlers) GetExportCSV(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	platform, err := parsePlatform(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var content string
	if platform != "" {
		content, err = h.reports.PlatformCSV(r.Context(), start, end, platform)
	} else {
		content, err = h.reports.CombinedCSV(r.Context(), start, end)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render export")
		return
	}

	filename := fmt.Sprintf("newsletter_%s_to_%s.csv", start.Format("2006-01-02"), end.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// parseDateRange reads start/end query params, defaulting both to yesterday.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	yesterday := domain.DateOnly(time.Now().AddDate(0, 0, -1))
	start, end := yesterday, yesterday

	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q, expected YYYY-MM-DD", v)
		}
		start = parsed
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q, expected YYYY-MM-DD", v)
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s precedes start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}

func parsePlatform(r *http.Request) (domain.Platform, error) {
	switch v := r.URL.Query().Get("platform"); v {
	case "":
		return "", nil
	case string(domain.PlatformTinyEmail):
		return domain.PlatformTinyEmail, nil
	case string(domain.PlatformBeehiiv):
		return domain.PlatformBeehiiv, nil
	default:
		return "", fmt.Errorf("unknown platform %q", v)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
