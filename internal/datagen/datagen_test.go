package datagen

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

func TestGenerate_ProducesParseableCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	res, err := NewGenerator(1, logging.NewNullLogger()).Generate(path, 1)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.SizeBytes, int64(1024*1024), "size target is a floor")
	assert.Greater(t, res.Rows, int64(0))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, Columns, header)

	var rows int64
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		require.Len(t, record, len(Columns))
		rows++
	}
	assert.Equal(t, res.Rows, rows, "reported row count matches the file")
}

func TestGenerate_DeterministicForSeed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")

	_, err := NewGenerator(42, logging.NewNullLogger()).Generate(a, 1)
	require.NoError(t, err)
	_, err = NewGenerator(42, logging.NewNullLogger()).Generate(b, 1)
	require.NoError(t, err)

	dataA, err := os.ReadFile(a)
	require.NoError(t, err)
	dataB, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, dataA, dataB)
}

func TestGenerate_InvalidSize(t *testing.T) {
	_, err := NewGenerator(1, logging.NewNullLogger()).Generate(filepath.Join(t.TempDir(), "x.csv"), 0)
	assert.True(t, errors.Is(err, pgload.ErrInvalidConfig), "got: %v", err)
}

func TestNewGenerator_NilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { NewGenerator(1, nil) })
}
