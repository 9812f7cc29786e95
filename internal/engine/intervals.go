package engine

import (
	"time"

	"github.com/streamfleet/downtime-report/internal/models"
	"github.com/streamfleet/downtime-report/internal/utils"
)

// buildIntervals reconstructs downtime intervals from one device's events,
// already sorted by time. Classification works off each offline event's
// immediate neighbours:
//
//   - next event is online            -> Completed, duration next-offline
//   - no next event                   -> Ongoing, still open at reference
//   - previous event is online        -> Ongoing (corrected below)
//   - otherwise                       -> Intermediate (duplicate offline)
//
// A candidate tagged Ongoing that turns out to have a recorded next-event
// time is coerced to Completed: the local prev/next heuristic misclassifies
// an offline run whose opener was preceded by an online event. Intermediate
// stays Intermediate; it is never promoted to Ongoing.
func buildIntervals(device string, events []models.Event, reference time.Time) []models.Interval {
	intervals := make([]models.Interval, 0, len(events))

	for i, ev := range events {
		if ev.Status != models.StatusOffline {
			continue
		}

		var prev, next *models.Event
		if i > 0 {
			prev = &events[i-1]
		}
		if i < len(events)-1 {
			next = &events[i+1]
		}

		interval := models.Interval{Device: device, OfflineAt: ev.Timestamp}
		if next != nil {
			onlineAt := next.Timestamp
			interval.OnlineAt = &onlineAt
		}

		switch {
		case next != nil && next.Status == models.StatusOnline:
			interval.Status = models.IntervalCompleted
			interval.Duration = next.Timestamp.Sub(ev.Timestamp)
		case next == nil:
			interval.Status = models.IntervalOngoing
		case prev != nil && prev.Status == models.StatusOnline:
			interval.Status = models.IntervalOngoing
		default:
			interval.Status = models.IntervalIntermediate
		}

		intervals = append(intervals, interval)
	}

	reclassify(intervals)
	finalizeDurations(intervals, reference)
	return intervals
}

// reclassify forces any Ongoing candidate with a recorded next-event time to
// Completed. Classification is corrected here, at finalization time, so the
// interval table never ships a stale Ongoing with a known end.
func reclassify(intervals []models.Interval) {
	for i := range intervals {
		if intervals[i].OnlineAt != nil && intervals[i].Status == models.IntervalOngoing {
			intervals[i].Status = models.IntervalCompleted
		}
	}
}

// finalizeDurations settles every interval's duration against the single
// reference time captured for this invocation.
//
//   - Completed keeps its precomputed delta, defaulting to zero when the
//     candidate was only completed by reclassification.
//   - An unresolved interval with a recorded next-event time spans up to
//     that time.
//   - Everything still open spans up to the reference time. Both sides are
//     already expressed in the same location, so the subtraction never mixes
//     offsets.
func finalizeDurations(intervals []models.Interval, reference time.Time) {
	for i := range intervals {
		iv := &intervals[i]
		switch {
		case iv.Status == models.IntervalCompleted:
			if iv.Duration < 0 {
				iv.Duration = 0
			}
		case iv.OnlineAt != nil:
			iv.Duration = iv.OnlineAt.Sub(iv.OfflineAt)
		default:
			iv.Duration = reference.Sub(iv.OfflineAt)
		}
		if iv.Duration < 0 {
			iv.Duration = 0
		}
		iv.DurationText = utils.FormatDuration(iv.Duration)
	}
}
