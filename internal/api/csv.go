package api

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/streamfleet/downtime-report/internal/models"
	"github.com/streamfleet/downtime-report/internal/utils"
)

const csvTimeLayout = "2006-01-02 15:04:05"

// WriteSummaryCSV renders the device summary table as CSV.
func WriteSummaryCSV(w io.Writer, report models.Report) error {
	writer := csv.NewWriter(w)
	header := []string{
		"Device", "Current_Status", "Last_Offline_Time", "Last_Online_Time",
		"Total_DownTime_Events", "Current_Downtime_Duration",
		"Total_Downtime_Duration", "Uptime_Pct", "MTBF",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, s := range report.Summaries {
		record := []string{
			s.Device,
			s.CurrentStatus,
			formatCSVTime(s.LastOfflineAt),
			formatCSVTimePtr(s.LastOnlineAt),
			strconv.Itoa(s.EventCount),
			s.CurrentDowntimeText,
			s.TotalDowntimeText,
			strconv.FormatFloat(s.UptimePct, 'f', 2, 64),
			utils.FormatDuration(s.MTBF),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDowntimeCSV renders the interval table as CSV.
func WriteDowntimeCSV(w io.Writer, report models.Report) error {
	writer := csv.NewWriter(w)
	header := []string{"Device", "Offline_Time", "Online_Time", "Downtime_Duration", "Downtime_Status"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, iv := range report.Intervals {
		record := []string{
			iv.Device,
			formatCSVTime(iv.OfflineAt),
			formatCSVTimePtr(iv.OnlineAt),
			iv.DurationText,
			string(iv.Status),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCSVTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(csvTimeLayout)
}

func formatCSVTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatCSVTime(*t)
}
