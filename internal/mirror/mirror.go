// Package mirror keeps a spreadsheet copy of the extracted customer batch.
package mirror

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dux-ghl-sync/internal/model"
)

// DefaultSheet is the worksheet the batch is written to.
const DefaultSheet = "Clientes DUX"

// XLSXMirror rewrites an XLSX workbook with a header row followed by the
// batch, starting at row 2.
type XLSXMirror struct {
	path   string
	sheet  string
	header []string
}

// NewXLSX creates a mirror at path with headers taken from schema order.
func NewXLSX(path string, schema model.Schema) *XLSXMirror {
	fields := schema.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = string(f)
	}
	return &XLSXMirror{path: path, sheet: DefaultSheet, header: header}
}

// Write replaces the workbook contents with rows.
func (m *XLSXMirror) Write(rows []model.RawRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(m.sheet)
	if err != nil {
		return eris.Wrap(err, "mirror: add sheet")
	}

	appendRow(sheet, m.header)
	for _, r := range rows {
		appendRow(sheet, r)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "mirror: create dir %s", dir)
	}
	tmp := m.path + ".tmp"
	if err := f.Save(tmp); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return eris.Wrap(err, "mirror: save workbook")
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return eris.Wrapf(err, "mirror: rename to %s", m.path)
	}
	return nil
}

func appendRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
