// Package staging persists an extraction batch as a delimited file and
// reads it back record by record.
package staging

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dux-ghl-sync/internal/model"
)

// Write replaces the artifact at path with rows. The file is written to a
// temporary sibling and renamed, so readers never see a partial batch.
func Write(path string, rows []model.RawRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "staging: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "staging: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	w := csv.NewWriter(tmp)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close() //nolint:errcheck
			return eris.Wrap(err, "staging: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "staging: flush")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "staging: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "staging: rename to %s", path)
	}
	return nil
}

// Reader streams rows from an artifact.
type Reader struct {
	f   *os.File
	csv *csv.Reader
	n   int
}

// Open opens the artifact at path for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "staging: open %s", path)
	}
	r := csv.NewReader(f)
	// Row width is validated by the field mapper, not the reader.
	r.FieldsPerRecord = -1
	return &Reader{f: f, csv: r}, nil
}

// Next returns the next row, or io.EOF when the artifact is exhausted.
func (r *Reader) Next() (model.RawRow, error) {
	rec, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, eris.Wrapf(err, "staging: read row %d", r.n+1)
	}
	r.n++
	return model.RawRow(rec), nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// ReadAll loads every row of the artifact at path.
func ReadAll(path string) ([]model.RawRow, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck

	var rows []model.RawRow
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Remove deletes the artifact. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "staging: remove %s", path)
	}
	return nil
}
