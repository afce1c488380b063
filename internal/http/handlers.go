package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"saldo/internal/core"
	"saldo/internal/metrics"
	"saldo/internal/report"
)

// handleReports serves the point lookup and the per-user listing:
//
//	GET /api/reports?user_id=u1&period=2024-03  -> single report or 404
//	GET /api/reports?user_id=u1                 -> all reports for the user
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	period := strings.TrimSpace(r.URL.Query().Get("period"))

	if userID == "" {
		metrics.QueryServed("reports", "bad_request")
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if period == "" {
		reports, err := s.service.GetReportsByUserID(r.Context(), userID)
		if err != nil {
			metrics.QueryServed("reports", "error")
			slog.ErrorContext(r.Context(), "List reports failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list reports")
			return
		}
		metrics.QueryServed("reports", "ok")
		writeJSON(w, http.StatusOK, reports)
		return
	}

	rep, err := s.service.GetReport(r.Context(), userID, period)
	switch {
	case errors.Is(err, report.ErrNotFound):
		// A key with no recorded transactions is a 404, never a zeroed
		// report: callers must be able to tell "nothing recorded" from
		// "zero balance".
		metrics.QueryServed("reports", "not_found")
		writeError(w, http.StatusNotFound, "report not found")
	case errors.Is(err, core.ErrInvalidPeriod):
		metrics.QueryServed("reports", "bad_request")
		writeError(w, http.StatusBadRequest, "invalid period, want YYYY-MM")
	case err != nil:
		metrics.QueryServed("reports", "error")
		slog.ErrorContext(r.Context(), "Get report failed", "user_id", userID, "period", period, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get report")
	default:
		metrics.QueryServed("reports", "ok")
		writeJSON(w, http.StatusOK, rep)
	}
}

// handleSummary serves the range fold:
//
//	GET /api/reports/summary?user_id=u1&start=2024-01&end=2024-06
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("user_id"))
	start := strings.TrimSpace(q.Get("start"))
	end := strings.TrimSpace(q.Get("end"))

	if userID == "" || start == "" || end == "" {
		metrics.QueryServed("summary", "bad_request")
		writeError(w, http.StatusBadRequest, "user_id, start and end are required")
		return
	}

	cacheKey := userID + "|" + start + "|" + end
	if summary, ok := s.summaryCache.Get(cacheKey); ok {
		metrics.QueryServed("summary", "cache_hit")
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.service.GetReportsByPeriodRange(r.Context(), userID, start, end)
	switch {
	case errors.Is(err, core.ErrInvalidPeriod):
		metrics.QueryServed("summary", "bad_request")
		writeError(w, http.StatusBadRequest, "invalid period bounds, want YYYY-MM")
		return
	case err != nil:
		metrics.QueryServed("summary", "error")
		slog.ErrorContext(r.Context(), "Range summary failed",
			"user_id", userID, "start", start, "end", end, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize reports")
		return
	}

	s.summaryCache.Set(cacheKey, summary)
	metrics.QueryServed("summary", "ok")
	writeJSON(w, http.StatusOK, summary)
}
