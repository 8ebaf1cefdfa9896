package datastore

import "github.com/batatlas/batatlas/internal/occurrence"

// Occurrence is one row of a GBIF occurrence download. Nullable columns are
// pointers.
type Occurrence struct {
	GBIFID            int64    `gorm:"column:gbif_id;primaryKey;autoIncrement:false"`
	SpeciesKey        *int64   `gorm:"column:species_key"`
	Species           *string  `gorm:"column:species;size:255;index"`
	EventDate         *string  `gorm:"column:event_date;size:64"`
	DecimalLatitude   *float64 `gorm:"column:decimal_latitude"`
	DecimalLongitude  *float64 `gorm:"column:decimal_longitude"`
	OccurrenceRemarks *string  `gorm:"column:occurrence_remarks;type:text"`
}

// TableName overrides the GORM default.
func (Occurrence) TableName() string {
	return "occurrences"
}

// Record converts the row to the domain record.
func (o *Occurrence) Record() occurrence.Record {
	return occurrence.Record{
		GBIFID:            o.GBIFID,
		SpeciesKey:        o.SpeciesKey,
		Species:           o.Species,
		EventDate:         o.EventDate,
		Latitude:          o.DecimalLatitude,
		Longitude:         o.DecimalLongitude,
		OccurrenceRemarks: o.OccurrenceRemarks,
	}
}

// FromRecord converts a domain record to a row.
func FromRecord(r occurrence.Record) Occurrence {
	return Occurrence{
		GBIFID:            r.GBIFID,
		SpeciesKey:        r.SpeciesKey,
		Species:           r.Species,
		EventDate:         r.EventDate,
		DecimalLatitude:   r.Latitude,
		DecimalLongitude:  r.Longitude,
		OccurrenceRemarks: r.OccurrenceRemarks,
	}
}
