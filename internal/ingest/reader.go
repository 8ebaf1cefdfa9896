package ingest

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/unicode/norm"

	"github.com/batatlas/batatlas/internal/datastore"
	"github.com/batatlas/batatlas/internal/errors"
)

// GBIF occurrence download column names.
const (
	ColGBIFID            = "gbifID"
	ColSpeciesKey        = "speciesKey"
	ColSpecies           = "species"
	ColEventDate         = "eventDate"
	ColDecimalLatitude   = "decimalLatitude"
	ColDecimalLongitude  = "decimalLongitude"
	ColOccurrenceRemarks = "occurrenceRemarks"
)

// maxLineSize bounds a single TSV line. GBIF rows with long remarks can
// exceed bufio's 64 KiB default.
const maxLineSize = 16 << 20

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompress wraps r in a gzip or zstd reader when the stream starts with
// the matching magic bytes. Plain text passes through.
func decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(br), nil
	}
}

// columns maps header names to field positions.
type columns struct {
	gbifID, speciesKey, species, eventDate, lat, lon, remarks int
}

func parseHeader(line string) (columns, error) {
	index := make(map[string]int)
	for i, name := range strings.Split(strings.TrimPrefix(line, "\ufeff"), "\t") {
		index[strings.TrimSpace(name)] = i
	}
	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}
	cols := columns{
		gbifID:     lookup(ColGBIFID),
		speciesKey: lookup(ColSpeciesKey),
		species:    lookup(ColSpecies),
		eventDate:  lookup(ColEventDate),
		lat:        lookup(ColDecimalLatitude),
		lon:        lookup(ColDecimalLongitude),
		remarks:    lookup(ColOccurrenceRemarks),
	}
	if cols.gbifID < 0 {
		return cols, errors.Newf("header has no %s column", ColGBIFID).
			Component("ingest").
			Category(errors.CategoryFileParsing).
			Build()
	}
	return cols, nil
}

// parseRow converts one tab-separated line. ok is false when the row has no
// usable gbifID. Empty or unparseable cells become NULL.
func (c columns) parseRow(fields []string) (row datastore.Occurrence, ok bool) {
	id, err := strconv.ParseInt(field(fields, c.gbifID), 10, 64)
	if err != nil {
		return row, false
	}
	row.GBIFID = id
	row.SpeciesKey = intCell(field(fields, c.speciesKey))
	row.Species = textCell(field(fields, c.species))
	row.EventDate = textCell(field(fields, c.eventDate))
	row.DecimalLatitude = floatCell(field(fields, c.lat))
	row.DecimalLongitude = floatCell(field(fields, c.lon))
	row.OccurrenceRemarks = textCell(field(fields, c.remarks))
	return row, true
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// textCell returns nil for an empty cell. Text is NFC-normalized with
// invalid UTF-8 dropped; surrounding whitespace is kept.
func textCell(s string) *string {
	if s == "" {
		return nil
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = norm.NFC.String(s)
	return &s
}

func intCell(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func floatCell(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
