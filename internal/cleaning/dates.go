package cleaning

import (
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// dateLayouts are tried in order. Slash dates are month first.
var dateLayouts = []string{
	dateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	dateTimeLayout,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"20060102",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// ParseDate parses a date-like cell. Values carrying a zone offset are
// converted to UTC.
func ParseDate(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeDates rewrites the named column into canonical dates in place.
// Unparseable cells become empty (null). The whole column is written as
// "2006-01-02" unless some value carries a time of day, in which case every
// value is written as "2006-01-02 15:04:05". It returns the number of nulls.
func NormalizeDates(t *Table, column string) (int, error) {
	col, err := t.Column(column)
	if err != nil {
		return 0, err
	}

	parsed := make([]time.Time, len(t.Rows))
	valid := make([]bool, len(t.Rows))
	layout := dateLayout
	for i, row := range t.Rows {
		parsed[i], valid[i] = ParseDate(row[col])
		if valid[i] && !isMidnight(parsed[i]) {
			layout = dateTimeLayout
		}
	}

	nulls := 0
	for i, row := range t.Rows {
		// copy so rows shared with the source table stay untouched
		out := make([]string, len(row))
		copy(out, row)
		if valid[i] {
			out[col] = parsed[i].Format(layout)
		} else {
			out[col] = ""
			nulls++
		}
		t.Rows[i] = out
	}
	return nulls, nil
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
