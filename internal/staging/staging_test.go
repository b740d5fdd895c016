package staging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dux-ghl-sync/internal/model"
)

func TestWriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.csv")
	rows := []model.RawRow{
		{"1", "Acme, S.A.", `quote "x"`},
		{"2", "Beta", ""},
	}

	require.NoError(t, Write(path, rows))

	got, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWrite_ReplacesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.csv")

	require.NoError(t, Write(path, []model.RawRow{{"1"}, {"2"}, {"3"}}))
	require.NoError(t, Write(path, []model.RawRow{{"9"}}))

	got, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, []model.RawRow{{"9"}}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWrite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "clients.csv")
	require.NoError(t, Write(path, []model.RawRow{{"1"}}))
	assert.FileExists(t, path)
}

func TestReader_VariableWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\nd\n"), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, row, 3)

	row, err = r.Next()
	require.NoError(t, err)
	assert.Len(t, row, 1)

	_, err = r.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging: open")
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, Write(path, []model.RawRow{{"1"}}))

	require.NoError(t, Remove(path))
	assert.NoFileExists(t, path)
	require.NoError(t, Remove(path))
}
