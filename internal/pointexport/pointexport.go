// Package pointexport turns occurrence records into per-record map points
// keyed to a fine S2 cell.
package pointexport

import (
	"strconv"
	"strings"

	"github.com/batatlas/batatlas/internal/occurrence"
	"github.com/batatlas/batatlas/internal/spatial"
)

// UnidentifiedLabel replaces a missing species name.
const UnidentifiedLabel = "Unidentified Bat"

// SpeciesURLPrefix is the GBIF species page prefix.
const SpeciesURLPrefix = "https://www.gbif.org/species/"

// remarkMarkers flag remarks that are import metadata rather than field notes.
var remarkMarkers = []string{"Metadata", "BCT", "CVI"}

// Row is one exported point.
type Row struct {
	GBIFID     int64
	Species    string
	Remarks    *string
	SpeciesURL string
	Latitude   float64
	Longitude  float64
	Year       int
	CellID     int64
}

// Exporter converts admitted records into rows.
type Exporter struct {
	Filter  occurrence.PointFilter
	Indexer spatial.Indexer
	Level   int
}

// NewExporter returns an exporter at the given S2 level.
func NewExporter(years occurrence.YearWindow, indexer spatial.Indexer, level int) *Exporter {
	return &Exporter{
		Filter:  occurrence.PointFilter{Years: years},
		Indexer: indexer,
		Level:   level,
	}
}

// Convert admits r and builds its row. A non-empty reason means the record
// was rejected; err is only set when the cell cannot be computed.
func (e *Exporter) Convert(r occurrence.Record) (Row, occurrence.Reason, error) {
	p, reason := e.Filter.Admit(r)
	if reason != occurrence.Admitted {
		return Row{}, reason, nil
	}

	cell, err := e.Indexer.CellID(p.Latitude, p.Longitude, e.Level)
	if err != nil {
		return Row{}, occurrence.Admitted, err
	}

	return Row{
		GBIFID:     p.GBIFID,
		Species:    SpeciesName(p.Species),
		Remarks:    CleanRemarks(p.Remarks),
		SpeciesURL: SpeciesURL(p.SpeciesKey),
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Year:       p.Year,
		CellID:     cell,
	}, occurrence.Admitted, nil
}

// SpeciesName returns the species verbatim, or UnidentifiedLabel when null.
func SpeciesName(species *string) string {
	if species == nil {
		return UnidentifiedLabel
	}
	return *species
}

// CleanRemarks drops remarks containing a metadata marker and trims the rest.
func CleanRemarks(remarks *string) *string {
	if remarks == nil {
		return nil
	}
	for _, marker := range remarkMarkers {
		if strings.Contains(*remarks, marker) {
			return nil
		}
	}
	trimmed := strings.TrimSpace(*remarks)
	return &trimmed
}

// SpeciesURL links to the GBIF species page, or "" without a key.
func SpeciesURL(key *int64) string {
	if key == nil {
		return ""
	}
	return SpeciesURLPrefix + strconv.FormatInt(*key, 10)
}
