package models

import "time"

// ReportRequest bounds one engine invocation. Start and End are dates; the
// window covers [Start, End+24h) so the end date keeps its full day. An empty
// Devices list selects all devices. ReferenceTime is captured once by the
// caller and reused for every open-interval duration in the invocation.
type ReportRequest struct {
	Start         time.Time
	End           time.Time
	Devices       []string
	ReferenceTime time.Time
}

// WindowEnd returns the exclusive upper bound of the date window.
func (r ReportRequest) WindowEnd() time.Time {
	return r.End.Add(24 * time.Hour)
}

// WantsDevice reports whether the allow-list admits the given device.
func (r ReportRequest) WantsDevice(device string) bool {
	if len(r.Devices) == 0 {
		return true
	}
	for _, d := range r.Devices {
		if d == device {
			return true
		}
	}
	return false
}
