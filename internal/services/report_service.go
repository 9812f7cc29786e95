package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/streamfleet/downtime-report/internal/cache"
	"github.com/streamfleet/downtime-report/internal/engine"
	"github.com/streamfleet/downtime-report/internal/ingest"
	"github.com/streamfleet/downtime-report/internal/metrics"
	"github.com/streamfleet/downtime-report/internal/models"
	"github.com/streamfleet/downtime-report/internal/utils"
)

// ReportOptions carries the caller-supplied filters for one report run.
// Zero Start/End disables the date bound on that side.
type ReportOptions struct {
	Start   time.Time
	End     time.Time
	Devices []string
}

// ReportService orchestrates one report run: normalise the upload, capture
// the reference clock once, hand the canonical batch to the engine, and
// stamp the resulting snapshot. It holds no request state; concurrent calls
// each work on their own snapshot.
type ReportService struct {
	logger     *slog.Logger
	engine     *engine.Engine
	normalizer *ingest.Normalizer
	cache      cache.Provider
	eventsTTL  time.Duration
	loc        *time.Location
	latencies  *utils.LatencyTracker
	now        func() time.Time
}

// NewReportService constructs the report facade.
func NewReportService(logger *slog.Logger, eng *engine.Engine, normalizer *ingest.Normalizer, cacheProvider cache.Provider, eventsTTL time.Duration, loc *time.Location) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if normalizer == nil {
		normalizer = ingest.NewNormalizer(loc)
	}
	if eng == nil {
		eng = engine.New(logger)
	}
	return &ReportService{
		logger:     logger,
		engine:     eng,
		normalizer: normalizer,
		cache:      cacheProvider,
		eventsTTL:  eventsTTL,
		loc:        loc,
		latencies:  utils.NewLatencyTracker(1024),
		now:        time.Now,
	}
}

// GenerateFromCSV reads an uploaded CSV log and produces a full report for
// the requested filters. Only an unreadable upload (bad header, no payload)
// is an error; a batch that filters down to nothing yields an empty report.
func (s *ReportService) GenerateFromCSV(ctx context.Context, upload io.Reader, opts ReportOptions) (models.Report, error) {
	raw, err := io.ReadAll(upload)
	if err != nil {
		return models.Report{}, utils.NewAppError("report.upload", "read upload", err)
	}

	events, diags, err := s.normalizedEvents(ctx, raw)
	if err != nil {
		return models.Report{}, err
	}
	return s.Generate(ctx, events, diags, opts), nil
}

// Generate runs the engine over an already-canonical batch. The reference
// instant is captured exactly once here and reused for the interval pass,
// the summary pass, and the report envelope.
func (s *ReportService) Generate(ctx context.Context, events []models.Event, diags []models.Diagnostic, opts ReportOptions) models.Report {
	started := s.now()
	reference := started.In(s.loc)

	if !opts.Start.IsZero() && !opts.End.IsZero() && opts.Start.After(opts.End) {
		opts.Start, opts.End = opts.End, opts.Start
		diags = append(diags, models.Diagnostic{
			Kind:    models.DiagnosticInput,
			Message: fmt.Sprintf("start date was after end date; range corrected to %s..%s", opts.Start.Format("2006-01-02"), opts.End.Format("2006-01-02")),
		})
	}

	report := s.engine.Generate(events, models.ReportRequest{
		Start:         opts.Start,
		End:           opts.End,
		Devices:       opts.Devices,
		ReferenceTime: reference,
	})
	report.ReportID = uuid.NewString()
	report.Diagnostics = diags

	duration := time.Since(started)
	s.latencies.Observe(duration)
	metrics.ObserveReport(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("report latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	s.logger.Debug("report ready",
		slog.String("report_id", report.ReportID),
		slog.Int("devices", report.DeviceCount),
		slog.Int("diagnostics", len(report.Diagnostics)))

	return report
}

// cachedBatch is the cache representation of a normalised upload.
type cachedBatch struct {
	Events      []models.Event      `json:"events"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

// normalizedEvents parses and normalises the raw upload, consulting the
// cache first so re-filtering the same file skips the parse. Cache failures
// are logged and ignored; the cache is an optimisation, never a dependency.
func (s *ReportService) normalizedEvents(ctx context.Context, raw []byte) ([]models.Event, []models.Diagnostic, error) {
	sum := sha256.Sum256(raw)
	key := "downtime-report:events:" + hex.EncodeToString(sum[:])

	if payload, err := s.cache.Get(ctx, key); err == nil {
		var batch cachedBatch
		if err := json.Unmarshal(payload, &batch); err == nil {
			return batch.Events, batch.Diagnostics, nil
		}
		_ = s.cache.Del(ctx, key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("events cache read failed", slog.Any("error", err))
	}

	rows, err := ingest.ReadRows(bytes.NewReader(raw))
	if err != nil {
		metrics.ObserveReport(0, metrics.OutcomeError)
		return nil, nil, utils.NewAppError("report.normalize", "parse upload", err)
	}

	events, diags := s.normalizer.Normalize(rows)
	metrics.AddDroppedRows(len(diags))

	if payload, err := json.Marshal(cachedBatch{Events: events, Diagnostics: diags}); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.eventsTTL); err != nil {
			s.logger.Warn("events cache write failed", slog.Any("error", err))
		}
	}

	return events, diags, nil
}

// LatencyP95 returns the current p95 report latency.
func (s *ReportService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}
