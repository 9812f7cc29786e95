package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/streamfleet/downtime-report/internal/models"
)

// Column names required in the uploaded log.
const (
	ColumnRecordTime = "Record Time"
	ColumnDeviceName = "Device Name"
	ColumnType       = "Type"
)

// ReadRows decodes an uploaded CSV log into raw rows. The header row must
// contain the three required columns; extra columns are ignored. Rows with
// too few fields are skipped, the reader does not abort on them.
func ReadRows(r io.Reader) ([]models.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty upload")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	rows := make([]models.RawRow, 0, 256)
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.Reader surfaces quoting problems per record; skip the
			// record and keep going so one bad row cannot sink the upload.
			if _, ok := err.(*csv.ParseError); ok {
				continue
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(record) <= idx.max() {
			continue
		}
		rows = append(rows, models.RawRow{
			RecordTime: record[idx.recordTime],
			DeviceName: strings.TrimSpace(record[idx.deviceName]),
			Type:       record[idx.typ],
			Line:       line,
		})
	}
	return rows, nil
}

type columnIdx struct {
	recordTime int
	deviceName int
	typ        int
}

func (c columnIdx) max() int {
	m := c.recordTime
	if c.deviceName > m {
		m = c.deviceName
	}
	if c.typ > m {
		m = c.typ
	}
	return m
}

func columnIndex(header []string) (columnIdx, error) {
	idx := columnIdx{recordTime: -1, deviceName: -1, typ: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColumnRecordTime:
			idx.recordTime = i
		case ColumnDeviceName:
			idx.deviceName = i
		case ColumnType:
			idx.typ = i
		}
	}
	missing := make([]string, 0, 3)
	if idx.recordTime < 0 {
		missing = append(missing, ColumnRecordTime)
	}
	if idx.deviceName < 0 {
		missing = append(missing, ColumnDeviceName)
	}
	if idx.typ < 0 {
		missing = append(missing, ColumnType)
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("upload is missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}
