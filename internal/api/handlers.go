package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/streamfleet/downtime-report/internal/services"
	"github.com/streamfleet/downtime-report/internal/utils"
)

// Output formats accepted on the report endpoint.
const (
	formatJSON        = "json"
	formatSummaryCSV  = "summary-csv"
	formatDowntimeCSV = "downtime-csv"
)

// Handler exposes the report service over HTTP. Every request carries its
// own upload; the handler keeps nothing between calls.
type Handler struct {
	logger         *slog.Logger
	service        *services.ReportService
	loc            *time.Location
	maxUploadBytes int64
}

// NewHandler constructs the HTTP handler set.
func NewHandler(logger *slog.Logger, service *services.ReportService, loc *time.Location, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{logger: logger, service: service, loc: loc, maxUploadBytes: maxUploadBytes}
}

// Register installs the routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/reports", h.handleReport)
	mux.HandleFunc("/healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"report_p95_ms": h.service.LatencyP95().Milliseconds(),
	})
}

// handleReport accepts a CSV log (multipart field "file", or the request
// body for text/csv uploads) plus filter fields, and returns the report as
// JSON or one of the two CSV tables.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, http.StatusMethodNotAllowed, "use POST with a CSV upload")
		return
	}

	upload, opts, format, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer upload.Close()

	report, err := h.service.GenerateFromCSV(r.Context(), upload, opts)
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			h.writeError(w, http.StatusBadRequest, appErr.Error())
			return
		}
		h.logger.Error("report generation failed", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	switch format {
	case formatSummaryCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", csvAttachment("summary", report.ReferenceTime))
		if err := WriteSummaryCSV(w, report); err != nil {
			h.logger.Warn("summary csv write failed", slog.Any("error", err))
		}
	case formatDowntimeCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", csvAttachment("downtime", report.ReferenceTime))
		if err := WriteDowntimeCSV(w, report); err != nil {
			h.logger.Warn("downtime csv write failed", slog.Any("error", err))
		}
	default:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			h.logger.Warn("report encode failed", slog.Any("error", err))
		}
	}
}

// parseRequest extracts the upload stream, filter options, and output format.
func (h *Handler) parseRequest(r *http.Request) (io.ReadCloser, services.ReportOptions, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadBytes)

	var upload io.ReadCloser
	isMultipart := false
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		isMultipart = true
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return nil, services.ReportOptions{}, "", errors.New("could not parse multipart upload")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, services.ReportOptions{}, "", errors.New(`multipart upload requires a "file" field`)
		}
		upload = file
	} else {
		upload = r.Body
	}

	opts := services.ReportOptions{}
	query := r.URL.Query()
	formValue := func(name string) string {
		if v := query.Get(name); v != "" {
			return v
		}
		if isMultipart {
			// ParseMultipartForm already ran; this cannot touch the body.
			return r.PostFormValue(name)
		}
		return ""
	}

	if v := formValue("start"); v != "" {
		start, err := utils.ParseReportDate(v, h.loc)
		if err != nil {
			closeQuietly(upload)
			return nil, services.ReportOptions{}, "", err
		}
		opts.Start = start
	}
	if v := formValue("end"); v != "" {
		end, err := utils.ParseReportDate(v, h.loc)
		if err != nil {
			closeQuietly(upload)
			return nil, services.ReportOptions{}, "", err
		}
		opts.End = end
	}
	if v := formValue("devices"); v != "" {
		for _, device := range strings.Split(v, ",") {
			if device = strings.TrimSpace(device); device != "" {
				opts.Devices = append(opts.Devices, device)
			}
		}
	}

	format := formValue("format")
	switch format {
	case "", formatJSON:
		format = formatJSON
	case formatSummaryCSV, formatDowntimeCSV:
	default:
		closeQuietly(upload)
		return nil, services.ReportOptions{}, "", errors.New("format must be json, summary-csv, or downtime-csv")
	}

	return upload, opts, format, nil
}

func (h *Handler) writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func csvAttachment(table string, reference time.Time) string {
	return `attachment; filename="` + table + `_` + reference.Format("20060102_150405") + `.csv"`
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
