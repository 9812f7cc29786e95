package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/streamfleet/downtime-report/internal/models"
)

// Engine reconstructs downtime intervals and per-device summaries from a
// canonical event batch. It holds no state across invocations; every call is
// a pure function of (events, request) and returns freshly allocated tables.
type Engine struct {
	logger *slog.Logger
}

// New constructs the report engine.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Generate runs the interval reconstruction and aggregation passes. The
// request's reference time bounds every open interval in both tables; an
// empty filtered batch yields empty, correctly shaped tables rather than an
// error.
func (e *Engine) Generate(events []models.Event, req models.ReportRequest) models.Report {
	report := models.Report{
		ReferenceTime: req.ReferenceTime,
		Intervals:     []models.Interval{},
		Summaries:     []models.DeviceSummary{},
	}

	filtered := filterEvents(events, req)
	if len(filtered) == 0 {
		return report
	}

	devices, byDevice := partitionByDevice(filtered)
	for _, device := range devices {
		intervals := buildIntervals(device, byDevice[device], req.ReferenceTime)
		if len(intervals) == 0 {
			continue
		}
		report.Intervals = append(report.Intervals, intervals...)
		report.Summaries = append(report.Summaries, summarize(device, intervals, req.ReferenceTime))
	}

	for _, summary := range report.Summaries {
		report.DeviceCount++
		if summary.CurrentlyDown {
			report.OfflineCount++
		} else {
			report.OnlineCount++
		}
	}

	e.logger.Debug("report generated",
		slog.Int("events", len(filtered)),
		slog.Int("intervals", len(report.Intervals)),
		slog.Int("devices", report.DeviceCount),
		slog.Time("reference", req.ReferenceTime))

	return report
}

// filterEvents keeps events inside [start, end+24h) and the device
// allow-list. A zero start/end disables the date bound on that side.
func filterEvents(events []models.Event, req models.ReportRequest) []models.Event {
	var windowEnd time.Time
	if !req.End.IsZero() {
		windowEnd = req.WindowEnd()
	}

	kept := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if !req.WantsDevice(ev.Device) {
			continue
		}
		if !req.Start.IsZero() && ev.Timestamp.Before(req.Start) {
			continue
		}
		if !windowEnd.IsZero() && !ev.Timestamp.Before(windowEnd) {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

// partitionByDevice splits the sorted batch into per-device slices, keeping
// each device's internal order, and returns the device names sorted.
func partitionByDevice(events []models.Event) ([]string, map[string][]models.Event) {
	byDevice := make(map[string][]models.Event)
	for _, ev := range events {
		byDevice[ev.Device] = append(byDevice[ev.Device], ev)
	}
	devices := make([]string, 0, len(byDevice))
	for device := range byDevice {
		devices = append(devices, device)
	}
	sort.Strings(devices)
	return devices, byDevice
}
