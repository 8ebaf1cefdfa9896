// Package diversity computes richness and Shannon diversity for a bin.
package diversity

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/batatlas/batatlas/internal/aggregate"
	"github.com/batatlas/batatlas/internal/errors"
)

// proportionTolerance bounds |Σp - 1| for a valid distribution.
const proportionTolerance = 1e-9

// Metrics are the unrounded diversity measures of one bin.
type Metrics struct {
	TotalRecords   int
	Richness       int     // species with at least one record
	ShannonH       float64 // -Σ p ln p, natural log
	RichnessPer100 float64 // richness / total × 100
}

// Compute derives the metrics of the bin described by total and its
// species counts. Inconsistent input (zero total, counts from another bin,
// a non-positive count, or counts not summing to the total) is an
// invariant violation and returns a CategoryInvariant error.
func Compute(total aggregate.BlockTotal, counts []aggregate.SpeciesCount) (Metrics, error) {
	if err := checkConsistency(total, counts); err != nil {
		return Metrics{}, err
	}

	p := Proportions(total.TotalRecords, counts)
	if sum := floats.Sum(p); sum < 1-proportionTolerance || sum > 1+proportionTolerance {
		return Metrics{}, invariant(total.Key, "species proportions do not sum to 1").
			Context("proportion_sum", sum).
			Build()
	}

	// stat.Entropy skips zero proportions and uses the natural log
	h := stat.Entropy(p)
	if h == 0 {
		h = 0 // -0 for a single species
	}

	return Metrics{
		TotalRecords:   total.TotalRecords,
		Richness:       len(counts),
		ShannonH:       h,
		RichnessPer100: float64(len(counts)) / float64(total.TotalRecords) * 100,
	}, nil
}

// Proportions returns n_s / total for each species count, in input order.
func Proportions(total int, counts []aggregate.SpeciesCount) []float64 {
	p := make([]float64, len(counts))
	for i, sc := range counts {
		p[i] = float64(sc.N) / float64(total)
	}
	return p
}

func checkConsistency(total aggregate.BlockTotal, counts []aggregate.SpeciesCount) error {
	if total.TotalRecords <= 0 {
		return invariant(total.Key, "bin has no records").
			Context("total_records", total.TotalRecords).
			Build()
	}

	sum := 0
	for _, sc := range counts {
		if sc.Key != total.Key {
			return invariant(total.Key, "species count belongs to another bin").
				Context("species", sc.Species).
				Context("species_cell_id", sc.Key.CellID).
				Context("species_block_start", sc.Key.BlockStart).
				Build()
		}
		if sc.N < 1 {
			return invariant(total.Key, "species count is not positive").
				Context("species", sc.Species).
				Context("n", sc.N).
				Build()
		}
		sum += sc.N
	}

	if sum != total.TotalRecords {
		return invariant(total.Key, "species counts do not sum to bin total").
			Context("species_sum", sum).
			Context("total_records", total.TotalRecords).
			Build()
	}
	return nil
}

func invariant(key aggregate.Key, msg string) *errors.ErrorBuilder {
	return errors.Newf("%s", msg).
		Component("diversity").
		Category(errors.CategoryInvariant).
		Priority(errors.PriorityCritical).
		Context("cell_id", key.CellID).
		Context("block_start", key.BlockStart)
}
