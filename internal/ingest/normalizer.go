package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/streamfleet/downtime-report/internal/models"
	"github.com/streamfleet/downtime-report/internal/utils"
)

// Normalizer turns raw log rows into canonical events: encoding rows only,
// status inferred from the free-text type, day-first timestamps parsed in a
// single fixed location, sorted by device then time. It is a pure transform;
// the same rows always produce the same events.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer builds a Normalizer parsing timestamps in loc (UTC when nil).
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize produces the canonical event sequence and a diagnostic per row
// that had to be dropped. Rows are dropped when the type text lacks
// "encoding", when no status can be inferred, or when the timestamp does not
// parse; a dropped row never aborts the batch.
func (n *Normalizer) Normalize(rows []models.RawRow) ([]models.Event, []models.Diagnostic) {
	events := make([]models.Event, 0, len(rows))
	var diags []models.Diagnostic

	for _, row := range rows {
		if !strings.Contains(strings.ToLower(row.Type), "encoding") {
			continue
		}

		status := inferStatus(row.Type)
		if status == models.StatusUnknown {
			// Indeterminate status cannot participate in interval
			// construction; record and move on.
			diags = append(diags, models.Diagnostic{
				Kind:    models.DiagnosticRow,
				Line:    row.Line,
				Message: fmt.Sprintf("no online/offline marker in type %q", row.Type),
			})
			continue
		}

		ts, err := utils.ParseRecordTime(row.RecordTime, n.loc)
		if err != nil {
			// Policy: unparseable timestamps are dropped, not sorted on a
			// sentinel. The row is surfaced as a diagnostic instead.
			diags = append(diags, models.Diagnostic{
				Kind:    models.DiagnosticRow,
				Line:    row.Line,
				Message: fmt.Sprintf("dropped row for %s: %v", row.DeviceName, err),
			})
			continue
		}
		if row.DeviceName == "" {
			diags = append(diags, models.Diagnostic{
				Kind:    models.DiagnosticRow,
				Line:    row.Line,
				Message: "dropped row with empty device name",
			})
			continue
		}

		events = append(events, models.Event{
			Device:    row.DeviceName,
			Timestamp: ts,
			Status:    status,
		})
	}

	// Stable: equal (device, timestamp) pairs keep their input order.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Device != events[j].Device {
			return events[i].Device < events[j].Device
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return events, diags
}

func inferStatus(typeText string) models.Status {
	lower := strings.ToLower(typeText)
	switch {
	case strings.Contains(lower, "offline"):
		return models.StatusOffline
	case strings.Contains(lower, "online"):
		return models.StatusOnline
	default:
		return models.StatusUnknown
	}
}
