// Package temporal assigns years to fixed-width blocks and extracts years
// from occurrence event dates.
package temporal

import (
	"strconv"
	"strings"
	"time"

	"github.com/batatlas/batatlas/internal/errors"
)

// DefaultWidth is the block width in years.
const DefaultWidth = 5

// Binner maps years to blocks of Width consecutive years. Blocks are
// aligned to multiples of Width.
type Binner struct {
	Width int
}

// NewBinner returns a Binner of the given width.
func NewBinner(width int) (Binner, error) {
	if width < 1 {
		return Binner{}, errors.Newf("block width must be positive, got %d", width).
			Component("temporal").
			Category(errors.CategoryValidation).
			Build()
	}
	return Binner{Width: width}, nil
}

// BlockStart returns floor(year/Width)*Width. Division floors toward
// negative infinity so that BlockStart <= year holds for negative years.
func (b Binner) BlockStart(year int) int {
	q := year / b.Width
	if year%b.Width != 0 && year < 0 {
		q--
	}
	return q * b.Width
}

// Label renders a block as "start-end", e.g. "1985-1989".
func (b Binner) Label(start int) string {
	return strconv.Itoa(start) + "-" + strconv.Itoa(start+b.Width-1)
}

// dateLayouts are tried in order. Time-of-day forms are listed before
// their date-only prefixes, zoned forms before zone-less ones. Fractional
// seconds are accepted after any seconds field.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseYear extracts the calendar year from an event date. GBIF interval
// dates ("start/end") use the start. The year is taken as written; no
// timezone conversion is applied.
func ParseYear(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if start, _, found := strings.Cut(s, "/"); found {
		s = strings.TrimSpace(start)
	}
	if s == "" {
		return 0, errors.Newf("empty event date").
			Component("temporal").
			Category(errors.CategoryFileParsing).
			Build()
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), nil
		}
	}

	return 0, errors.Newf("unable to parse event date %q", raw).
		Component("temporal").
		Category(errors.CategoryFileParsing).
		Context("event_date", raw).
		Build()
}
