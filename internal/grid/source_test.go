package grid

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsN(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{string(rune('a' + i))}
	}
	return rows
}

func TestFileSource_Pagination(t *testing.T) {
	ctx := context.Background()
	s := NewSource(rowsN(5), 2)

	var pages [][][]string
	for {
		rows, err := s.Rows(ctx)
		require.NoError(t, err)
		pages = append(pages, rows)

		more, err := s.HasNext(ctx)
		require.NoError(t, err)
		if !more {
			break
		}
		require.NoError(t, s.Next(ctx))
	}

	require.Len(t, pages, 3)
	assert.Len(t, pages[0], 2)
	assert.Len(t, pages[2], 1)
	assert.Equal(t, 2, s.Page())
	assert.ErrorIs(t, s.Next(ctx), ErrNoNextPage)
}

func TestFileSource_ExactMultiple(t *testing.T) {
	ctx := context.Background()
	s := NewSource(rowsN(4), 2)
	require.NoError(t, s.Next(ctx))

	more, err := s.HasNext(ctx)
	require.NoError(t, err)
	assert.False(t, more)
}

func TestFileSource_Empty(t *testing.T) {
	s := NewSource(nil, 10)
	rows, err := s.Rows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)

	more, err := s.HasNext(context.Background())
	require.NoError(t, err)
	assert.False(t, more)
}

func TestFileSource_SinglePageWhenUnsized(t *testing.T) {
	s := NewSource(rowsN(7), 0)
	rows, err := s.Rows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 7)
}

func TestFileSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSource(rowsN(1), 1).Rows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_CSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.csv")
	require.NoError(t, os.WriteFile(path, []byte("h1,h2\n1,2\n3,4\n5,6\n"), 0o644))

	s, err := Open(path, Options{PageSize: 2, HasHeader: true})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestOpen_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Clientes": {{"h"}, {"1"}, {"2"}},
	})

	s, err := Open(path, Options{Format: FormatXLSX, PageSize: 1, HasHeader: true})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	rows, err := s.Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}}, rows)
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	_, err := Open("grid.json", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
}
