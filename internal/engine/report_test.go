package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/streamfleet/downtime-report/internal/models"
)

func ts(hour, minute int) time.Time {
	return time.Date(2023, time.November, 1, hour, minute, 0, 0, time.UTC)
}

func event(device string, at time.Time, status models.Status) models.Event {
	return models.Event{Device: device, Timestamp: at, Status: status}
}

func TestGenerateCompletedInterval(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("D1", ts(10, 0), models.StatusOffline),
		event("D1", ts(10, 5), models.StatusOnline),
	}

	report := eng.Generate(events, models.ReportRequest{ReferenceTime: ts(12, 0)})

	if len(report.Intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(report.Intervals))
	}
	iv := report.Intervals[0]
	if iv.Status != models.IntervalCompleted {
		t.Fatalf("expected Completed, got %s", iv.Status)
	}
	if iv.Duration != 5*time.Minute {
		t.Fatalf("expected 5m duration, got %v", iv.Duration)
	}
	if iv.OnlineAt == nil || !iv.OnlineAt.Equal(ts(10, 5)) {
		t.Fatalf("expected online_at 10:05, got %v", iv.OnlineAt)
	}

	if len(report.Summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(report.Summaries))
	}
	sum := report.Summaries[0]
	if sum.CurrentlyDown {
		t.Fatalf("device should be back online")
	}
	if sum.CurrentStatus != models.DisplayStatusOnline {
		t.Fatalf("expected Online status, got %s", sum.CurrentStatus)
	}
	if sum.TotalDowntime != 5*time.Minute {
		t.Fatalf("expected total 5m, got %v", sum.TotalDowntime)
	}
	if sum.CurrentDowntime != nil {
		t.Fatalf("no current downtime expected, got %v", *sum.CurrentDowntime)
	}
	if report.OnlineCount != 1 || report.OfflineCount != 0 {
		t.Fatalf("expected 1 online / 0 offline, got %d/%d", report.OnlineCount, report.OfflineCount)
	}
}

func TestGenerateOngoingInterval(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("D1", ts(10, 0), models.StatusOffline),
	}

	report := eng.Generate(events, models.ReportRequest{ReferenceTime: ts(10, 10)})

	if len(report.Intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(report.Intervals))
	}
	iv := report.Intervals[0]
	if iv.Status != models.IntervalOngoing {
		t.Fatalf("expected Ongoing, got %s", iv.Status)
	}
	if iv.Duration != 10*time.Minute {
		t.Fatalf("expected 10m open duration, got %v", iv.Duration)
	}
	if iv.OnlineAt != nil {
		t.Fatalf("open interval must not have online_at")
	}

	sum := report.Summaries[0]
	if !sum.CurrentlyDown || sum.CurrentStatus != models.DisplayStatusOffline {
		t.Fatalf("device should be reported down: %+v", sum)
	}
	if sum.CurrentDowntime == nil || *sum.CurrentDowntime != 10*time.Minute {
		t.Fatalf("expected current downtime 10m, got %v", sum.CurrentDowntime)
	}
	if sum.TotalDowntime != *sum.CurrentDowntime {
		t.Fatalf("single open interval: total must equal current, got %v vs %v", sum.TotalDowntime, *sum.CurrentDowntime)
	}
}

func TestGenerateIntermediateRun(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("D1", ts(9, 0), models.StatusOffline),
		event("D1", ts(9, 30), models.StatusOffline),
		event("D1", ts(10, 0), models.StatusOnline),
	}

	report := eng.Generate(events, models.ReportRequest{ReferenceTime: ts(12, 0)})

	if len(report.Intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(report.Intervals))
	}
	first, second := report.Intervals[0], report.Intervals[1]

	if first.Status != models.IntervalIntermediate {
		t.Fatalf("expected Intermediate opener, got %s", first.Status)
	}
	if first.Duration != 30*time.Minute {
		t.Fatalf("intermediate should span to the next offline, got %v", first.Duration)
	}
	if first.OnlineAt == nil || !first.OnlineAt.Equal(ts(9, 30)) {
		t.Fatalf("intermediate online_at should be the next event time, got %v", first.OnlineAt)
	}

	if second.Status != models.IntervalCompleted || second.Duration != 30*time.Minute {
		t.Fatalf("closer should be Completed 30m, got %s %v", second.Status, second.Duration)
	}

	sum := report.Summaries[0]
	if sum.OngoingCount != 0 || sum.CurrentlyDown {
		t.Fatalf("nothing should be open: %+v", sum)
	}
	if sum.TotalDowntime != time.Hour {
		t.Fatalf("intermediate downtime must count toward the total, got %v", sum.TotalDowntime)
	}
	if sum.EventCount != 2 {
		t.Fatalf("expected event count 2, got %d", sum.EventCount)
	}
}

func TestGenerateReclassifiesOpenRunWithKnownEnd(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("D1", ts(9, 0), models.StatusOnline),
		event("D1", ts(9, 30), models.StatusOffline),
		event("D1", ts(10, 0), models.StatusOffline),
	}

	report := eng.Generate(events, models.ReportRequest{ReferenceTime: ts(11, 0)})

	if len(report.Intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(report.Intervals))
	}
	first, second := report.Intervals[0], report.Intervals[1]

	// The opener has a recorded next-event time, so it cannot stay open.
	if first.Status != models.IntervalCompleted {
		t.Fatalf("expected reclassified Completed, got %s", first.Status)
	}
	if second.Status != models.IntervalOngoing {
		t.Fatalf("trailing offline must stay open, got %s", second.Status)
	}
	if second.Duration != time.Hour {
		t.Fatalf("open tail should span to the reference, got %v", second.Duration)
	}

	sum := report.Summaries[0]
	if sum.OngoingCount != 1 || !sum.CurrentlyDown {
		t.Fatalf("one open interval expected: %+v", sum)
	}
	if sum.TotalDowntime < *sum.CurrentDowntime {
		t.Fatalf("total %v must never undercut current %v", sum.TotalDowntime, *sum.CurrentDowntime)
	}
}

func TestGenerateIdempotentForFixedReference(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("D1", ts(9, 0), models.StatusOffline),
		event("D1", ts(9, 30), models.StatusOnline),
		event("D2", ts(10, 0), models.StatusOffline),
	}
	req := models.ReportRequest{ReferenceTime: ts(12, 0)}

	first := eng.Generate(events, req)
	second := eng.Generate(events, req)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same batch and reference must reproduce the same report")
	}
}

func TestGenerateDateWindow(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("D1", time.Date(2023, time.October, 31, 23, 0, 0, 0, time.UTC), models.StatusOffline),
		event("D1", ts(10, 0), models.StatusOffline),
		event("D1", ts(10, 5), models.StatusOnline),
		event("D1", time.Date(2023, time.November, 2, 1, 0, 0, 0, time.UTC), models.StatusOffline),
	}

	start := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
	report := eng.Generate(events, models.ReportRequest{
		Start:         start,
		End:           start, // single-day window, end is inclusive
		ReferenceTime: ts(12, 0),
	})

	if len(report.Intervals) != 1 {
		t.Fatalf("expected only the in-window pair, got %d intervals", len(report.Intervals))
	}
	if !report.Intervals[0].OfflineAt.Equal(ts(10, 0)) {
		t.Fatalf("wrong interval survived the window: %+v", report.Intervals[0])
	}
}

func TestGenerateDeviceAllowList(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("D1", ts(10, 0), models.StatusOffline),
		event("D2", ts(10, 0), models.StatusOffline),
	}

	report := eng.Generate(events, models.ReportRequest{
		Devices:       []string{"D2"},
		ReferenceTime: ts(11, 0),
	})

	if report.DeviceCount != 1 || len(report.Summaries) != 1 || report.Summaries[0].Device != "D2" {
		t.Fatalf("allow-list not applied: %+v", report.Summaries)
	}
}

func TestGenerateEmptyBatch(t *testing.T) {
	eng := New(nil)
	report := eng.Generate(nil, models.ReportRequest{ReferenceTime: ts(12, 0)})

	if report.Intervals == nil || report.Summaries == nil {
		t.Fatalf("empty report must still carry non-nil tables")
	}
	if len(report.Intervals) != 0 || len(report.Summaries) != 0 || report.DeviceCount != 0 {
		t.Fatalf("expected empty tables, got %+v", report)
	}
}

func TestGenerateSortsDevices(t *testing.T) {
	eng := New(nil)
	events := []models.Event{
		event("Zeta", ts(10, 0), models.StatusOffline),
		event("Alpha", ts(10, 0), models.StatusOffline),
	}

	report := eng.Generate(events, models.ReportRequest{ReferenceTime: ts(11, 0)})

	if len(report.Summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(report.Summaries))
	}
	if report.Summaries[0].Device != "Alpha" || report.Summaries[1].Device != "Zeta" {
		t.Fatalf("summaries not device-sorted: %+v", report.Summaries)
	}
}

func TestSummaryDerivedMetrics(t *testing.T) {
	// Offline 10:00-10:30 and 11:00-11:30, reference 12:00: one hour of
	// downtime over a two hour span.
	intervals := buildIntervals("D1", []models.Event{
		event("D1", ts(10, 0), models.StatusOffline),
		event("D1", ts(10, 30), models.StatusOnline),
		event("D1", ts(11, 0), models.StatusOffline),
		event("D1", ts(11, 30), models.StatusOnline),
	}, ts(12, 0))

	sum := summarize("D1", intervals, ts(12, 0))

	if sum.UptimePct != 50 {
		t.Fatalf("expected 50%% uptime, got %v", sum.UptimePct)
	}
	if sum.MTBF != time.Hour {
		t.Fatalf("expected MTBF 1h (uptime over count-1), got %v", sum.MTBF)
	}
	if sum.LastOnlineAt == nil || !sum.LastOnlineAt.Equal(ts(11, 30)) {
		t.Fatalf("expected last online 11:30, got %v", sum.LastOnlineAt)
	}
	if !sum.LastOfflineAt.Equal(ts(11, 0)) {
		t.Fatalf("expected last offline 11:00, got %v", sum.LastOfflineAt)
	}
}

func TestSummaryUptimeNeverNegative(t *testing.T) {
	// The whole observed span is downtime.
	intervals := buildIntervals("D1", []models.Event{
		event("D1", ts(10, 0), models.StatusOffline),
	}, ts(11, 0))

	sum := summarize("D1", intervals, ts(11, 0))
	if sum.UptimePct != 0 {
		t.Fatalf("expected 0%% uptime, got %v", sum.UptimePct)
	}
	if sum.MTBF != 0 {
		t.Fatalf("single event has no MTBF, got %v", sum.MTBF)
	}
}
