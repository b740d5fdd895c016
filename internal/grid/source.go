package grid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Formats accepted by Open.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrNoNextPage is returned by Next on the last page.
var ErrNoNextPage = errors.New("grid: no next page")

// Options configures a FileSource.
type Options struct {
	Format    string // csv or xlsx; inferred from the extension when empty
	Charset   string
	PageSize  int
	HasHeader bool
}

// FileSource serves a loaded grid in fixed-size pages.
type FileSource struct {
	rows     [][]string
	pageSize int
	page     int
}

// Open loads the grid export at path.
func Open(path string, opts Options) (*FileSource, error) {
	format := opts.Format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		f, oerr := os.Open(path)
		if oerr != nil {
			return nil, eris.Wrapf(oerr, "grid: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err = ReadCSV(f, CSVOptions{Charset: opts.Charset, HasHeader: opts.HasHeader})
	case FormatXLSX:
		skip := 0
		if opts.HasHeader {
			skip = 1
		}
		rows, err = ReadXLSX(path, XLSXOptions{SkipRows: skip})
	default:
		return nil, eris.Errorf("grid: unsupported format %q", format)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "grid: load %s", path)
	}

	return NewSource(rows, opts.PageSize), nil
}

// NewSource wraps rows already in memory. A non-positive pageSize serves
// everything as one page.
func NewSource(rows [][]string, pageSize int) *FileSource {
	if pageSize <= 0 {
		pageSize = len(rows)
		if pageSize == 0 {
			pageSize = 1
		}
	}
	return &FileSource{rows: rows, pageSize: pageSize}
}

// Rows returns the current page.
func (s *FileSource) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := s.page * s.pageSize
	if start >= len(s.rows) {
		return nil, nil
	}
	end := min(start+s.pageSize, len(s.rows))
	return s.rows[start:end], nil
}

// HasNext reports whether a page follows the current one.
func (s *FileSource) HasNext(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return (s.page+1)*s.pageSize < len(s.rows), nil
}

// Next advances one page.
func (s *FileSource) Next(ctx context.Context) error {
	ok, err := s.HasNext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoNextPage
	}
	s.page++
	return nil
}

// Page returns the zero-based index of the current page.
func (s *FileSource) Page() int { return s.page }

// Len returns the number of loaded rows.
func (s *FileSource) Len() int { return len(s.rows) }
