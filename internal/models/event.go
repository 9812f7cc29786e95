package models

import "time"

// Status enumerates the canonical device states inferred from raw log rows.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// Event is one canonical transition record for a device. Events handed to the
// engine are totally ordered by (Device, Timestamp), ties broken by the
// original input order, and never carry StatusUnknown.
type Event struct {
	Device    string
	Timestamp time.Time
	Status    Status
}

// RawRow is one row of the uploaded log before normalisation.
type RawRow struct {
	RecordTime string
	DeviceName string
	Type       string
	Line       int
}
