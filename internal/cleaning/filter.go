package cleaning

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bounds is an inclusive price range.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether Min <= price <= Max. NaN is never contained, and
// an inverted range contains nothing.
func (b Bounds) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g]", b.Min, b.Max)
}

// FilterPrice returns a new table holding the rows whose price lies within b.
// Rows keep their order and their cells are shared with t.
func FilterPrice(t *Table, b Bounds) (*Table, error) {
	col, err := t.Column(PriceColumn)
	if err != nil {
		return nil, err
	}

	out := &Table{Header: t.Header, Rows: make([][]string, 0, len(t.Rows))}
	for i, row := range t.Rows {
		price, err := parsePrice(row[col])
		if err != nil {
			// line numbers count the header as line 1
			return nil, fmt.Errorf("%w: %s on line %d: %v", ErrMalformedValue, PriceColumn, i+2, err)
		}
		if b.Contains(price) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// parsePrice reads a price cell. Empty cells and NaN spellings are missing
// values and come back as NaN.
func parsePrice(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "nan", "na", "n/a", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
