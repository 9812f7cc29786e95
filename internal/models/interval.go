package models

import "time"

// IntervalStatus classifies a reconstructed downtime interval.
type IntervalStatus string

const (
	// IntervalCompleted marks an offline period resolved by a later event.
	IntervalCompleted IntervalStatus = "Completed"
	// IntervalOngoing marks an offline period still open at the reference time.
	IntervalOngoing IntervalStatus = "Ongoing"
	// IntervalIntermediate marks a duplicate/malformed offline record that is
	// neither resolved by an online event nor the device's most recent event.
	IntervalIntermediate IntervalStatus = "Intermediate"
)

// Interval is one reconstructed downtime period for a device. OnlineAt is nil
// while the interval is open; Duration for open intervals is measured against
// the report's reference time.
type Interval struct {
	Device    string         `json:"device"`
	OfflineAt time.Time      `json:"offline_at"`
	OnlineAt  *time.Time     `json:"online_at,omitempty"`
	Status    IntervalStatus `json:"status"`
	Duration  time.Duration  `json:"duration"`
	// DurationText is Duration rendered as "Nd HH:MM:SS" for display.
	DurationText string `json:"duration_text"`
}
