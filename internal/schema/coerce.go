package schema

import (
	"strconv"
	"strings"
	"time"
)

// spreadsheetEpoch is day zero of the spreadsheet serial date system.
// Serial 25569 is 1970-01-01.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are the ISO-8601-like string forms accepted for dates,
// tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
}

// CoerceDate converts a raw cell value to a timestamp. It accepts a
// spreadsheet-epoch serial number (days since 1899-12-30, fractional
// part is time of day) or an ISO-8601-like string; both converge on the
// same UTC timestamp type. Unparseable values return nil, not an error.
func CoerceDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	// Serial number form. The upper bound keeps plain years ("2024")
	// and zips from being misread; 2958465 is the spreadsheet max
	// (year 9999) but anything past ~200k (year 2447) is noise here.
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v <= 0 || v >= 200000 {
			return nil
		}
		days := int(v)
		frac := v - float64(days)
		t := spreadsheetEpoch.AddDate(0, 0, days).Add(time.Duration(frac * 24 * float64(time.Hour)))
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// NormalizePhone strips all non-digit characters and reformats as
// (XXX) XXX-XXXX when exactly 10 digits remain; otherwise returns "".
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 10 {
		return ""
	}
	return "(" + d[0:3] + ") " + d[3:6] + "-" + d[6:10]
}

// CoerceCoordinate parses a numeric string and validates it against the
// [min, max] range. Out-of-range values are dropped to nil, never
// clamped or rounded.
func CoerceCoordinate(raw string, min, max float64) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < min || v > max {
		return nil
	}
	return &v
}

// BuildFullAddress joins the non-empty address components with ", ",
// never leaving a stray leading or trailing comma. If the source
// already supplied a full address it is preserved by the caller and
// this is not invoked.
func BuildFullAddress(street, city, state, zip string) string {
	var parts []string
	for _, p := range []string{street, city, state, zip} {
		if v := strings.TrimSpace(p); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
