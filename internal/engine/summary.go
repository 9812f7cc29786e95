package engine

import (
	"time"

	"github.com/streamfleet/downtime-report/internal/models"
	"github.com/streamfleet/downtime-report/internal/utils"
)

// summarize folds one device's finalized intervals into its rollup row.
// Intermediate intervals count toward event_count and total_downtime; the
// aggregation does not filter by status, only ongoing_count does.
func summarize(device string, intervals []models.Interval, reference time.Time) models.DeviceSummary {
	summary := models.DeviceSummary{Device: device, EventCount: len(intervals)}

	var total time.Duration
	earliestOffline := time.Time{}
	for _, iv := range intervals {
		total += iv.Duration
		if iv.Status == models.IntervalOngoing {
			summary.OngoingCount++
		}
		if iv.OfflineAt.After(summary.LastOfflineAt) {
			summary.LastOfflineAt = iv.OfflineAt
		}
		if iv.OnlineAt != nil && (summary.LastOnlineAt == nil || iv.OnlineAt.After(*summary.LastOnlineAt)) {
			onlineAt := *iv.OnlineAt
			summary.LastOnlineAt = &onlineAt
		}
		if earliestOffline.IsZero() || iv.OfflineAt.Before(earliestOffline) {
			earliestOffline = iv.OfflineAt
		}
	}
	summary.TotalDowntime = total
	summary.CurrentlyDown = summary.OngoingCount > 0

	// Current downtime is recomputed here, against the same reference
	// instant the interval pass used, then reconciled below so the two
	// computations cannot drift apart.
	if summary.CurrentlyDown {
		current := reference.Sub(summary.LastOfflineAt)
		if current < 0 {
			current = 0
		}
		summary.CurrentDowntime = &current
		if summary.TotalDowntime < current {
			summary.TotalDowntime = current
		}
		summary.CurrentDowntimeText = utils.FormatDuration(current)
		summary.CurrentStatus = models.DisplayStatusOffline
	} else {
		summary.CurrentStatus = models.DisplayStatusOnline
	}
	summary.TotalDowntimeText = utils.FormatDuration(summary.TotalDowntime)

	applyDerivedMetrics(&summary, earliestOffline, reference)
	return summary
}

// applyDerivedMetrics computes uptime percentage and MTBF over the span from
// the earliest offline event to the reference time. Degenerate spans clamp
// to 100% uptime and an insufficient sample yields MTBF zero; neither path
// can divide by zero or leak NaN.
func applyDerivedMetrics(summary *models.DeviceSummary, earliestOffline, reference time.Time) {
	totalPeriod := reference.Sub(earliestOffline)
	if earliestOffline.IsZero() || totalPeriod <= 0 {
		summary.UptimePct = 100
		return
	}

	uptime := totalPeriod - summary.TotalDowntime
	if uptime < 0 {
		uptime = 0
	}
	summary.UptimePct = 100 * float64(uptime) / float64(totalPeriod)
	if summary.UptimePct < 0 {
		summary.UptimePct = 0
	}
	if summary.UptimePct > 100 {
		summary.UptimePct = 100
	}

	if summary.EventCount > 1 {
		summary.MTBF = uptime / time.Duration(summary.EventCount-1)
	}
}
