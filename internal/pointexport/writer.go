package pointexport

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/batatlas/batatlas/internal/errors"
)

// Header is the CSV column order.
var Header = []string{
	"gbif_id",
	"species",
	"remarks",
	"species_url",
	"lat",
	"lon",
	"year",
	"cell_id",
}

// CSVWriter streams rows as CSV. The header is written before the first row
// or on Flush, whichever comes first.
type CSVWriter struct {
	cw          *csv.Writer
	record      []string
	wroteHeader bool
	rows        int64
}

// NewCSVWriter returns a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		cw:     csv.NewWriter(w),
		record: make([]string, len(Header)),
	}
}

// Write appends one row. A null remark is an empty cell.
func (c *CSVWriter) Write(r Row) error {
	if err := c.writeHeader(); err != nil {
		return err
	}

	c.record[0] = strconv.FormatInt(r.GBIFID, 10)
	c.record[1] = r.Species
	c.record[2] = ""
	if r.Remarks != nil {
		c.record[2] = *r.Remarks
	}
	c.record[3] = r.SpeciesURL
	c.record[4] = strconv.FormatFloat(r.Latitude, 'f', -1, 64)
	c.record[5] = strconv.FormatFloat(r.Longitude, 'f', -1, 64)
	c.record[6] = strconv.Itoa(r.Year)
	c.record[7] = strconv.FormatInt(r.CellID, 10)
	if err := c.cw.Write(c.record); err != nil {
		return writeError(err)
	}
	c.rows++
	return nil
}

// Flush writes buffered data to the underlying writer.
func (c *CSVWriter) Flush() error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	c.cw.Flush()
	if err := c.cw.Error(); err != nil {
		return writeError(err)
	}
	return nil
}

// Rows returns the number of rows written.
func (c *CSVWriter) Rows() int64 {
	return c.rows
}

func (c *CSVWriter) writeHeader() error {
	if c.wroteHeader {
		return nil
	}
	c.wroteHeader = true
	if err := c.cw.Write(Header); err != nil {
		return writeError(err)
	}
	return nil
}

func writeError(err error) error {
	return errors.New(err).
		Component("pointexport").
		Category(errors.CategoryFileIO).
		Build()
}
