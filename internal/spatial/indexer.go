// Package spatial maps coordinates to hierarchical S2 cell identifiers.
//
// Cell ids are returned as the two's-complement int64 of the 64-bit S2 id,
// which is the value BigQuery's S2_CELLIDFROMPOINT produces for the same
// point and level. Level 10 cells cover roughly 80 km², level 12 roughly
// 5 km².
package spatial

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/batatlas/batatlas/internal/errors"
)

const (
	// MaxLevel is the leaf level of the S2 hierarchy.
	MaxLevel = 30

	// DefaultCoarseLevel is the aggregation level.
	DefaultCoarseLevel = 10
	// DefaultFineLevel is the point export level.
	DefaultFineLevel = 12
)

// Indexer assigns a cell id to a point at a given hierarchy level.
// Implementations must be deterministic and safe for concurrent use.
type Indexer interface {
	CellID(lat, lon float64, level int) (int64, error)
}

// S2Indexer is the Indexer backed by the S2 geometry library.
type S2Indexer struct{}

// NewS2Indexer returns an S2-backed Indexer.
func NewS2Indexer() S2Indexer {
	return S2Indexer{}
}

// CellID returns the id of the level-`level` cell containing (lat, lon).
func (S2Indexer) CellID(lat, lon float64, level int) (int64, error) {
	if err := checkLevel(level); err != nil {
		return 0, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || math.IsNaN(lat) || math.IsNaN(lon) {
		return 0, errors.Newf("coordinates out of range: lat=%v lon=%v", lat, lon).
			Component("spatial").
			Category(errors.CategoryValidation).
			Context("latitude", lat).
			Context("longitude", lon).
			Build()
	}

	leaf := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon))
	return int64(leaf.Parent(level)), nil //nolint:gosec // two's-complement reinterpretation is intended
}

// Parent returns the ancestor of cellID at level. Level must not be finer
// than the cell's own level.
func Parent(cellID int64, level int) (int64, error) {
	if err := checkLevel(level); err != nil {
		return 0, err
	}
	id := s2.CellID(uint64(cellID)) //nolint:gosec // see package doc
	if !id.IsValid() {
		return 0, invalidCell(cellID)
	}
	if level > id.Level() {
		return 0, errors.Newf("level %d is finer than cell level %d", level, id.Level()).
			Component("spatial").
			Category(errors.CategoryValidation).
			Context("cell_id", cellID).
			Build()
	}
	return int64(id.Parent(level)), nil //nolint:gosec // see package doc
}

// Contains reports whether child lies within parent in the hierarchy.
// Every cell contains itself.
func Contains(parent, child int64) bool {
	p := s2.CellID(uint64(parent)) //nolint:gosec // see package doc
	c := s2.CellID(uint64(child))  //nolint:gosec // see package doc
	return p.IsValid() && c.IsValid() && p.Contains(c)
}

// Level returns the hierarchy level of cellID.
func Level(cellID int64) (int, error) {
	id := s2.CellID(uint64(cellID)) //nolint:gosec // see package doc
	if !id.IsValid() {
		return 0, invalidCell(cellID)
	}
	return id.Level(), nil
}

func checkLevel(level int) error {
	if level < 0 || level > MaxLevel {
		return errors.Newf("cell level %d out of range [0, %d]", level, MaxLevel).
			Component("spatial").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func invalidCell(cellID int64) error {
	return errors.Newf("invalid cell id %d", cellID).
		Component("spatial").
		Category(errors.CategoryValidation).
		Build()
}
