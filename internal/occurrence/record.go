// Package occurrence defines occurrence records and the admission
// policies that decide which records feed the metrics and point outputs.
package occurrence

// Record is one raw occurrence as read from the store. Nil pointers are
// SQL NULLs.
type Record struct {
	GBIFID            int64
	SpeciesKey        *int64
	Species           *string
	EventDate         *string
	Latitude          *float64
	Longitude         *float64
	OccurrenceRemarks *string
}

// Filtered is a record admitted by MetricsFilter. All fields are validated.
type Filtered struct {
	Species   string
	Year      int
	Latitude  float64
	Longitude float64
}

// Point is a record admitted by PointFilter. Species may be absent.
type Point struct {
	GBIFID     int64
	SpeciesKey *int64
	Species    *string
	Remarks    *string
	Year       int
	Latitude   float64
	Longitude  float64
}

// Reason identifies why a record was rejected. The empty Reason means the
// record was admitted.
type Reason string

const (
	Admitted                 Reason = ""
	ReasonMissingCoordinates Reason = "missing-coordinates"
	ReasonCoordinatesRange   Reason = "coordinates-out-of-range"
	ReasonMissingSpecies     Reason = "missing-species"
	ReasonUnidentified       Reason = "unidentified-species"
	ReasonMissingEventDate   Reason = "missing-event-date"
	ReasonUnparseableDate    Reason = "unparseable-event-date"
	ReasonYearOutOfRange     Reason = "year-out-of-range"
)

// Reasons lists every rejection reason in evaluation order.
var Reasons = []Reason{
	ReasonMissingCoordinates,
	ReasonCoordinatesRange,
	ReasonMissingSpecies,
	ReasonUnidentified,
	ReasonMissingEventDate,
	ReasonUnparseableDate,
	ReasonYearOutOfRange,
}

// Str returns a pointer to s. Convenience for building records.
func Str(s string) *string { return &s }

// F64 returns a pointer to f.
func F64(f float64) *float64 { return &f }

// I64 returns a pointer to i.
func I64(i int64) *int64 { return &i }
