package models

import "time"

// DeviceSummary is the per-device rollup over the interval table. It is an
// immutable snapshot derived from a single reference time; TotalDowntime is
// never less than CurrentDowntime while the device is down.
type DeviceSummary struct {
	Device        string     `json:"device"`
	CurrentStatus string     `json:"current_status"`
	LastOfflineAt time.Time  `json:"last_offline_at"`
	LastOnlineAt  *time.Time `json:"last_online_at,omitempty"`
	EventCount    int        `json:"event_count"`
	OngoingCount  int        `json:"ongoing_count"`
	CurrentlyDown bool       `json:"currently_down"`

	TotalDowntime     time.Duration  `json:"total_downtime"`
	TotalDowntimeText string         `json:"total_downtime_text"`
	CurrentDowntime   *time.Duration `json:"current_downtime,omitempty"`
	CurrentDowntimeText string       `json:"current_downtime_text,omitempty"`

	UptimePct float64       `json:"uptime_pct"`
	MTBF      time.Duration `json:"mtbf"`
}

// Display status values for the summary table.
const (
	DisplayStatusOnline  = "Online"
	DisplayStatusOffline = "Offline"
)
