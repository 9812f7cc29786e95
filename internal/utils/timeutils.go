package utils

import (
	"fmt"
	"strings"
	"time"
)

// recordTimeLayouts lists accepted day-first record time layouts, most
// specific first. The upload contract is DD-MM-YYYY HH:MM:SS; the slash and
// short variants show up in exports from older firmware.
var recordTimeLayouts = []string{
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02-01-2006",
}

// ParseRecordTime parses a day-first record timestamp in the given location.
func ParseRecordTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty record time")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range recordTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised record time %q", value)
}

// ParseReportDate parses a date filter value (YYYY-MM-DD or day-first) at
// midnight in the given location.
func ParseReportDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range []string{"2006-01-02", "02-01-2006", "02/01/2006"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// FormatDuration renders a duration as "Nd HH:MM:SS", omitting the day part
// when it is zero. Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
