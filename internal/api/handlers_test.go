package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/streamfleet/downtime-report/internal/cache"
	"github.com/streamfleet/downtime-report/internal/models"
	"github.com/streamfleet/downtime-report/internal/services"
)

const sampleCSV = `Record Time,Device Name,Type
01-11-2023 10:00:00,D1,encoding offline
01-11-2023 10:05:00,D1,encoding online
`

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	service := services.NewReportService(nil, nil, nil, cache.NoopProvider{}, time.Minute, time.UTC)
	handler := NewHandler(nil, service, time.UTC, 0)
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux
}

func TestHandleReportJSON(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON response, got %q", ct)
	}

	var report models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.ReportID == "" || report.DeviceCount != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Intervals) != 1 || report.Intervals[0].Status != models.IntervalCompleted {
		t.Fatalf("expected one completed interval, got %+v", report.Intervals)
	}
}

func TestHandleReportMultipartDowntimeCSV(t *testing.T) {
	mux := newTestMux(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "events.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(sampleCSV)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := form.WriteField("format", "downtime-csv"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected CSV response, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "downtime_") {
		t.Fatalf("expected downtime attachment, got %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "Device,Offline_Time,Online_Time,Downtime_Duration,Downtime_Status" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "D1,2023-11-01 10:00:00,2023-11-01 10:05:00,00:05:00,") {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestHandleReportDeviceFilterQuery(t *testing.T) {
	mux := newTestMux(t)

	input := sampleCSV + "01-11-2023 11:00:00,D2,encoding offline\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports?devices=D2", strings.NewReader(input))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.DeviceCount != 1 || report.Summaries[0].Device != "D2" {
		t.Fatalf("device filter ignored: %+v", report.Summaries)
	}
}

func TestHandleReportMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("expected Allow: POST, got %q", allow)
	}
}

func TestHandleReportBadFormat(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports?format=xml", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleReportBadUpload(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader("Wrong,Header\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed upload, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] == "" {
		t.Fatalf("expected an error message, got %+v", payload)
	}
}

func TestHandleReportBadDate(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports?start=yesterday", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unparseable date, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
}
