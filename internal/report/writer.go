package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/batatlas/batatlas/internal/errors"
)

// Header is the CSV column order.
var Header = []string{
	"time_period",
	"sort_year",
	"lat",
	"lon",
	"cell_id",
	"total_records",
	"species_richness",
	"shannon_H",
	"richness_per_100",
}

// Writer serializes rows.
type Writer interface {
	Write(rows []Row) error
}

// CSVWriter writes rows as CSV with a header line.
type CSVWriter struct {
	w io.Writer
}

// NewCSVWriter returns a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

// Write emits the header and all rows. Metrics are printed with their
// rounded precision; coordinates with the shortest exact representation.
func (c *CSVWriter) Write(rows []Row) error {
	cw := csv.NewWriter(c.w)
	if err := cw.Write(Header); err != nil {
		return writeError(err, "csv")
	}

	record := make([]string, len(Header))
	for i := range rows {
		r := &rows[i]
		record[0] = r.TimePeriod
		record[1] = strconv.Itoa(r.SortYear)
		record[2] = strconv.FormatFloat(r.Lat, 'f', -1, 64)
		record[3] = strconv.FormatFloat(r.Lon, 'f', -1, 64)
		record[4] = strconv.FormatInt(r.CellID, 10)
		record[5] = strconv.Itoa(r.TotalRecords)
		record[6] = strconv.Itoa(r.SpeciesRichness)
		record[7] = strconv.FormatFloat(r.ShannonH, 'f', 3, 64)
		record[8] = strconv.FormatFloat(r.RichnessPer100, 'f', 1, 64)
		if err := cw.Write(record); err != nil {
			return writeError(err, "csv")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return writeError(err, "csv")
	}
	return nil
}

// JSONWriter writes rows as a JSON array.
type JSONWriter struct {
	w io.Writer
}

// NewJSONWriter returns a JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (j *JSONWriter) Write(rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return writeError(err, "json")
	}
	return nil
}

// NewWriter returns the writer for format ("csv" or "json").
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case "", "csv":
		return NewCSVWriter(w), nil
	case "json":
		return NewJSONWriter(w), nil
	default:
		return nil, errors.Newf("unsupported output format %q", format).
			Component("report").
			Category(errors.CategoryValidation).
			Build()
	}
}

func writeError(err error, format string) error {
	return errors.New(err).
		Component("report").
		Category(errors.CategoryFileIO).
		Context("format", format).
		Build()
}
