// Package report turns aggregated bins into sorted, rounded output rows,
// suppressing bins with too few records.
package report

import (
	"cmp"
	"math"
	"slices"

	"github.com/batatlas/batatlas/internal/aggregate"
	"github.com/batatlas/batatlas/internal/diversity"
	"github.com/batatlas/batatlas/internal/errors"
	"github.com/batatlas/batatlas/internal/temporal"
)

// DefaultMinRecords is the minimum bin total that is emitted.
const DefaultMinRecords = 10

// CoordDecimals is the precision of emitted centroid coordinates.
const CoordDecimals = 7

// Row is one emitted bin.
type Row struct {
	TimePeriod      string  `json:"time_period"`
	SortYear        int     `json:"sort_year"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	CellID          int64   `json:"cell_id"`
	TotalRecords    int     `json:"total_records"`
	SpeciesRichness int     `json:"species_richness"`
	ShannonH        float64 `json:"shannon_H"`
	RichnessPer100  float64 `json:"richness_per_100"`
}

// Options control emission.
type Options struct {
	MinRecords int
	Binner     temporal.Binner
}

// Summary describes one Build.
type Summary struct {
	Bins       int // bins seen
	Emitted    int
	Suppressed int // bins below MinRecords
}

// Build computes metrics for every bin of res and returns the emitted rows
// in output order: sort year descending, richness descending, then total
// records descending and cell id ascending. Bins with fewer than
// MinRecords records are dropped before any metric is computed.
func Build(res aggregate.Result, opts Options) ([]Row, Summary, error) {
	bins := res.Bins()
	summary := Summary{Bins: len(bins)}
	rows := make([]Row, 0, len(bins))

	for _, b := range bins {
		if b.Total.TotalRecords < opts.MinRecords {
			summary.Suppressed++
			continue
		}

		m, err := diversity.Compute(b.Total, b.Species)
		if err != nil {
			return nil, summary, err
		}

		centroid, ok := res.Centroids[b.Total.Key.CellID]
		if !ok || centroid.N == 0 {
			return nil, summary, errors.Newf("no centroid for cell %d", b.Total.Key.CellID).
				Component("report").
				Category(errors.CategoryInvariant).
				Context("cell_id", b.Total.Key.CellID).
				Build()
		}

		rows = append(rows, Row{
			TimePeriod:      opts.Binner.Label(b.Total.Key.BlockStart),
			SortYear:        b.Total.Key.BlockStart,
			Lat:             Round(centroid.Lat, CoordDecimals),
			Lon:             Round(centroid.Lon, CoordDecimals),
			CellID:          b.Total.Key.CellID,
			TotalRecords:    m.TotalRecords,
			SpeciesRichness: m.Richness,
			ShannonH:        Round(m.ShannonH, 3),
			RichnessPer100:  Round(m.RichnessPer100, 1),
		})
	}

	Sort(rows)
	summary.Emitted = len(rows)
	return rows, summary, nil
}

// Sort orders rows for output.
func Sort(rows []Row) {
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.SortYear, a.SortYear); c != 0 {
			return c
		}
		if c := cmp.Compare(b.SpeciesRichness, a.SpeciesRichness); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalRecords, a.TotalRecords); c != 0 {
			return c
		}
		return cmp.Compare(a.CellID, b.CellID)
	})
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
