package occurrence

import (
	"strings"
	"sync"

	"github.com/batatlas/batatlas/internal/temporal"
)

// unidentifiedMarker matches "Unidentified", "unidentified" and any other
// label containing it. The check is a case-sensitive substring test.
const unidentifiedMarker = "nidentified"

// YearWindow is an inclusive year range.
type YearWindow struct {
	Min int
	Max int
}

// Contains reports whether year lies in the window.
func (w YearWindow) Contains(year int) bool {
	return year >= w.Min && year <= w.Max
}

// DefaultYearWindow is the default admission window.
var DefaultYearWindow = YearWindow{Min: 1960, Max: 2026}

// MetricsFilter admits records eligible for diversity metrics: valid
// coordinates, a named species that is not an "unidentified" label, and a
// parseable event date inside the year window. It has no side effects.
type MetricsFilter struct {
	Years YearWindow
}

// Admit returns the validated record, or the first rejection reason.
func (f MetricsFilter) Admit(r Record) (Filtered, Reason) {
	lat, lon, reason := checkCoordinates(r)
	if reason != Admitted {
		return Filtered{}, reason
	}

	if r.Species == nil || strings.TrimSpace(*r.Species) == "" {
		return Filtered{}, ReasonMissingSpecies
	}
	if strings.Contains(*r.Species, unidentifiedMarker) {
		return Filtered{}, ReasonUnidentified
	}

	year, reason := checkYear(r, f.Years)
	if reason != Admitted {
		return Filtered{}, reason
	}

	return Filtered{
		Species:   *r.Species,
		Year:      year,
		Latitude:  lat,
		Longitude: lon,
	}, Admitted
}

// PointFilter admits records for the per-record point export. It applies
// the coordinate and year rules of MetricsFilter but keeps records without
// a species or with an "unidentified" label.
type PointFilter struct {
	Years YearWindow
}

// Admit returns the point, or the first rejection reason.
func (f PointFilter) Admit(r Record) (Point, Reason) {
	lat, lon, reason := checkCoordinates(r)
	if reason != Admitted {
		return Point{}, reason
	}

	year, reason := checkYear(r, f.Years)
	if reason != Admitted {
		return Point{}, reason
	}

	return Point{
		GBIFID:     r.GBIFID,
		SpeciesKey: r.SpeciesKey,
		Species:    r.Species,
		Remarks:    r.OccurrenceRemarks,
		Year:       year,
		Latitude:   lat,
		Longitude:  lon,
	}, Admitted
}

func checkCoordinates(r Record) (lat, lon float64, reason Reason) {
	if r.Latitude == nil || r.Longitude == nil {
		return 0, 0, ReasonMissingCoordinates
	}
	lat, lon = *r.Latitude, *r.Longitude
	if !(lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180) {
		return 0, 0, ReasonCoordinatesRange
	}
	return lat, lon, Admitted
}

func checkYear(r Record, window YearWindow) (int, Reason) {
	if r.EventDate == nil || strings.TrimSpace(*r.EventDate) == "" {
		return 0, ReasonMissingEventDate
	}
	year, err := temporal.ParseYear(*r.EventDate)
	if err != nil {
		return 0, ReasonUnparseableDate
	}
	if !window.Contains(year) {
		return 0, ReasonYearOutOfRange
	}
	return year, Admitted
}

// RejectionStats counts rejections per reason. Safe for concurrent use.
type RejectionStats struct {
	mu     sync.Mutex
	counts map[Reason]int64
	total  int64
}

// NewRejectionStats returns an empty counter.
func NewRejectionStats() *RejectionStats {
	return &RejectionStats{counts: make(map[Reason]int64)}
}

// Record counts one rejection. Admitted is ignored.
func (s *RejectionStats) Record(reason Reason) {
	if reason == Admitted {
		return
	}
	s.mu.Lock()
	s.counts[reason]++
	s.total++
	s.mu.Unlock()
}

// Merge adds other's counts into s.
func (s *RejectionStats) Merge(other *RejectionStats) {
	snapshot := other.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	for reason, n := range snapshot {
		s.counts[reason] += n
		s.total += n
	}
}

// Count returns the number of rejections for reason.
func (s *RejectionStats) Count(reason Reason) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[reason]
}

// Total returns the number of rejections across all reasons.
func (s *RejectionStats) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Snapshot returns a copy of the per-reason counts.
func (s *RejectionStats) Snapshot() map[Reason]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Reason]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
