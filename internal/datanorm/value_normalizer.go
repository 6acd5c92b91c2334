package datanorm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// referenceYear anchors sheet-name ordinals. The exact year is irrelevant —
// only relative ordering within a dataset matters — but it must be applied
// consistently.
const referenceYear = 2025

// String coerces a raw cell value to its string form. nil becomes "".
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var floatPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// Float coerces a raw cell value to a number. Like the spreadsheet sources
// themselves, it accepts a numeric prefix ("5 objs" → 5); anything
// non-numeric or missing is 0.
func Float(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return 0
	}

	s := strings.TrimSpace(String(v))
	if s == "" {
		return 0
	}
	m := floatPrefix.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

var timePattern = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})(?::(\d{2}))?\s*(AM|PM)?`)

// TimeToMinutes converts a raw login-time cell to minutes since midnight.
// Accepted forms: a time.Time, a fraction-of-day number in (0,1) (the sheet
// API encodes times this way), or an "H:MM(:SS) AM/PM" string. The sentinel
// strings "", "n/a", "0" and "00:00:00" mean no time; ok is false for those
// and for anything unparseable.
func TimeToMinutes(v any) (minutes int, ok bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case time.Time:
		return t.Hour()*60 + t.Minute(), true
	case float64:
		return fractionToMinutes(t)
	case int:
		return fractionToMinutes(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return fractionToMinutes(f)
		}
		return 0, false
	}

	s := strings.TrimSpace(String(v))
	switch strings.ToLower(s) {
	case "", "n/a", "0", "00:00:00":
		return 0, false
	}

	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	switch strings.ToUpper(m[4]) {
	case "PM":
		if hours < 12 {
			hours += 12
		}
	case "AM":
		if hours == 12 {
			hours = 0
		}
	}
	return hours*60 + mins, true
}

func fractionToMinutes(f float64) (int, bool) {
	if f <= 0 || f >= 1 {
		return 0, false
	}
	return int(math.Round(f * 24 * 60)), true
}

var isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2})`)

// dateLayouts are tried in order for generic date parsing.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// NormalizeDate converts a raw date cell to the canonical "YYYY/MM/DD" form.
// ISO timestamps with an hour of 18 or later roll forward one day — the
// sources record evening timestamps against the next business date.
// Unparseable values pass through verbatim rather than being discarded;
// the sentinels "", "nil", "-" and "undefined" normalize to "".
func NormalizeDate(v any) string {
	if t, isTime := v.(time.Time); isTime {
		if t.Year() > 1900 && t.Year() < 2100 {
			return t.Format("2006/01/02")
		}
		return String(v)
	}

	s := strings.TrimSpace(String(v))
	switch strings.ToLower(s) {
	case "", "nil", "-", "undefined":
		return ""
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[4])
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if hour >= 18 {
			d = d.AddDate(0, 0, 1)
		}
		return d.Format("2006/01/02")
	}

	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if d.Year() > 1900 && d.Year() < 2100 {
			return d.Format("2006/01/02")
		}
		break
	}

	return s
}

var sheetMonths = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

var (
	dayMonthPattern = regexp.MustCompile(`(\d+)(?:ST|ND|RD|TH)?\s+([A-Z]{3})`)
	monthDayPattern = regexp.MustCompile(`([A-Z]{3})\s*-?\s*(\d+)`)
)

// SheetNameOrdinal derives a sortable timestamp from date tokens in a sheet's
// display name, e.g. "1ST SEP LOGIN" or "SEP-1 PRODUCTION". Returns 0 when no
// pattern matches, which sorts first. An unknown month abbreviation falls back
// to January rather than rejecting the match.
func SheetNameOrdinal(sheetName string) int64 {
	clean := strings.ToUpper(sheetName)

	if m := dayMonthPattern.FindStringSubmatch(clean); m != nil {
		return ordinalFor(m[2], m[1])
	}
	if m := monthDayPattern.FindStringSubmatch(clean); m != nil {
		return ordinalFor(m[1], m[2])
	}
	return 0
}

func ordinalFor(monthAbbr, dayDigits string) int64 {
	day, _ := strconv.Atoi(dayDigits)
	month, ok := sheetMonths[monthAbbr]
	if !ok {
		month = time.January
	}
	return time.Date(referenceYear, month, day, 0, 0, 0, 0, time.UTC).UnixMilli()
}

// FormatOrdinal renders a sheet-name ordinal back to a display date.
func FormatOrdinal(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.UnixMilli(ts).UTC().Format("2006/01/02")
}
