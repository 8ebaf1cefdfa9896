package app

import (
	"io"
	"os"
	"path/filepath"

	"github.com/batatlas/batatlas/internal/errors"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// CreateOutput opens path for writing, creating parent directories. An
// empty path or "-" writes to stdout, which is never closed.
func CreateOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{stdout}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return f, nil
}
