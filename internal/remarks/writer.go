package remarks

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/batatlas/batatlas/internal/errors"
)

// Header is the CSV column order.
var Header = []string{"count", "remarks"}

// WriteCSV writes entries with a header line. The null entry has an
// empty remarks field, the same as NULL remarks in a points export.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return writeError(err)
	}
	for _, e := range entries {
		if err := cw.Write([]string{strconv.FormatInt(e.Count, 10), e.Text}); err != nil {
			return writeError(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return writeError(err)
	}
	return nil
}

func writeError(err error) error {
	return errors.New(err).
		Component("remarks").
		Category(errors.CategoryFileIO).
		Build()
}
