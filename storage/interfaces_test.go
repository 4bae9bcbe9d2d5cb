package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPropertyWriterDispatchesOnFormat(t *testing.T) {
	dir := t.TempDir()

	for format, want := range map[string]any{
		"csv":     &CSVWriter{},
		"json":    &JSONWriter{},
		"parquet": &ParquetWriter{},
	} {
		w, err := NewPropertyWriter(format, filepath.Join(dir, "batch."+format))
		require.NoError(t, err, format)
		assert.IsType(t, want, w, format)
		assert.NoError(t, w.Close(), format)
	}
}

func TestNewPropertyWriterRejectsUnknownFormat(t *testing.T) {
	_, err := NewPropertyWriter("xml", filepath.Join(t.TempDir(), "batch.xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
