package spreadsheet

import (
	"strconv"
	"strings"
	"time"

	"projtrack/internal/model"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2/1/2006",
	"2.1.2006",
	"2-1-2006",
}

// ParseDateValue normalizes a cell value to a Date. It accepts spreadsheet
// serial numbers, ISO and dd/mm/yyyy strings and time.Time.
func ParseDateValue(v any) (model.Date, bool) {
	switch x := v.(type) {
	case nil:
		return model.Date{}, false
	case time.Time:
		if x.IsZero() {
			return model.Date{}, false
		}
		return model.DateOf(x), true
	case float64:
		return fromSerial(x)
	case int:
		return fromSerial(float64(x))
	case string:
		return parseDateString(x)
	}
	return model.Date{}, false
}

func parseDateString(s string) (model.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Date{}, false
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(serial)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), true
		}
	}
	return model.Date{}, false
}

// serial range accepted as a date: 1970-01-01 through 2199-12-31
const (
	minSerial = 25569
	maxSerial = 109574
)

func fromSerial(serial float64) (model.Date, bool) {
	if serial < minSerial || serial >= maxSerial+1 {
		return model.Date{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

// formatBR renders a date as dd/mm/yyyy.
func formatBR(d model.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format("02/01/2006")
}
