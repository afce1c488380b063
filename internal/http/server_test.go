package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/report"
	"saldo/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *report.Service) {
	t.Helper()
	svc := report.NewService(storage.NewMemoryRepository())
	srv := NewServer(":0", svc, Options{
		RateLimitPerMinute: 1000,
		SummaryCacheSize:   16,
		SummaryCacheTTL:    time.Minute,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, svc
}

func seedEvent(t *testing.T, svc *report.Service, userID string, typ core.TransactionType, amount string, year, month, day int) {
	t.Helper()
	a := decimal.RequireFromString(amount)
	ev := core.TransactionEvent{
		TransactionID: 1,
		UserID:        userID,
		Type:          typ,
		Amount:        &a,
		Date:          core.NewDate(year, month, day),
	}
	if err := svc.ApplyEvent(context.Background(), ev); err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func doRequest(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleReports_PointLookup(t *testing.T) {
	srv, svc := newTestServer(t)
	seedEvent(t, svc, "u1", core.Income, "100.00", 2024, 3, 15)
	seedEvent(t, svc, "u1", core.Expense, "40.00", 2024, 3, 20)

	rec := doRequest(srv, http.MethodGet, "/api/reports?user_id=u1&period=2024-03")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var rep core.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.UserID != "u1" || rep.Period != "2024-03" {
		t.Errorf("unexpected key: %+v", rep)
	}
	if !rep.Balance.Equal(decimal.RequireFromString("60.00")) {
		t.Errorf("balance = %s", rep.Balance)
	}
}

func TestHandleReports_NotFoundIsNotZeroRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/reports?user_id=u1&period=2024-03")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestHandleReports_ListByUser(t *testing.T) {
	srv, svc := newTestServer(t)
	seedEvent(t, svc, "u1", core.Income, "10", 2024, 1, 1)
	seedEvent(t, svc, "u1", core.Income, "20", 2024, 2, 1)

	rec := doRequest(srv, http.MethodGet, "/api/reports?user_id=u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var reports []core.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reports) != 2 || reports[0].Period != "2024-01" || reports[1].Period != "2024-02" {
		t.Errorf("unexpected listing: %+v", reports)
	}
}

func TestHandleReports_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doRequest(srv, http.MethodGet, "/api/reports"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id: status = %d", rec.Code)
	}
	if rec := doRequest(srv, http.MethodGet, "/api/reports?user_id=u1&period=03-2024"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad period: status = %d", rec.Code)
	}
	if rec := doRequest(srv, http.MethodPost, "/api/reports?user_id=u1"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status = %d", rec.Code)
	}
}

func TestHandleSummary(t *testing.T) {
	srv, svc := newTestServer(t)
	seedEvent(t, svc, "u1", core.Income, "50", 2024, 1, 5)
	seedEvent(t, svc, "u1", core.Expense, "10", 2024, 1, 10)
	seedEvent(t, svc, "u1", core.Income, "20", 2024, 2, 5)
	seedEvent(t, svc, "u1", core.Expense, "5", 2024, 2, 10)

	rec := doRequest(srv, http.MethodGet, "/api/reports/summary?user_id=u1&start=2024-01&end=2024-02")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var sum core.RangeSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sum.TotalIncome.Equal(decimal.RequireFromString("70")) ||
		!sum.TotalExpense.Equal(decimal.RequireFromString("15")) ||
		!sum.Balance.Equal(decimal.RequireFromString("55")) {
		t.Errorf("unexpected totals: %+v", sum)
	}
	if len(sum.Reports) != 2 || sum.Reports[0].Period != "2024-01" {
		t.Errorf("unexpected sequence: %+v", sum.Reports)
	}
}

func TestHandleSummary_EmptyWindow(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/reports/summary?user_id=u1&start=2020-01&end=2020-12")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for empty window", rec.Code)
	}

	var sum core.RangeSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sum.TotalIncome.IsZero() || len(sum.Reports) != 0 {
		t.Errorf("expected empty summary: %+v", sum)
	}
}

func TestHandleSummary_ServesCachedResult(t *testing.T) {
	srv, svc := newTestServer(t)
	seedEvent(t, svc, "u1", core.Income, "10", 2024, 1, 1)

	first := doRequest(srv, http.MethodGet, "/api/reports/summary?user_id=u1&start=2024-01&end=2024-01")
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}

	// New writes are invisible until the cache entry expires.
	seedEvent(t, svc, "u1", core.Income, "90", 2024, 1, 2)

	second := doRequest(srv, http.MethodGet, "/api/reports/summary?user_id=u1&start=2024-01&end=2024-01")
	var sum core.RangeSummary
	if err := json.Unmarshal(second.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sum.TotalIncome.Equal(decimal.RequireFromString("10")) {
		t.Errorf("expected cached total 10, got %s", sum.TotalIncome)
	}
}

func TestHandleSummary_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doRequest(srv, http.MethodGet, "/api/reports/summary?user_id=u1&start=2024-01"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing end: status = %d", rec.Code)
	}
	if rec := doRequest(srv, http.MethodGet, "/api/reports/summary?user_id=u1&start=2024-1&end=2024-02"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad start: status = %d", rec.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	svc := report.NewService(storage.NewMemoryRepository())
	srv := NewServer(":0", svc, Options{
		RateLimitPerMinute: 2,
		SummaryCacheSize:   16,
		SummaryCacheTTL:    time.Minute,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	for i := 0; i < 2; i++ {
		if rec := doRequest(srv, http.MethodGet, "/api/reports?user_id=u1"); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	rec := doRequest(srv, http.MethodGet, "/api/reports?user_id=u1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doRequest(srv, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := doRequest(srv, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}
