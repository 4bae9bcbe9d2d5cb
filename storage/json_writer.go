package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

// JSONWriter writes a normalized batch as one indented JSON array.
type JSONWriter struct {
	file *os.File
}

func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("json: create file %q: %w", path, err)
	}
	return &JSONWriter{file: f}, nil
}

// Write serializes the whole batch. HTML escaping is off so URLs and
// Japanese text stay readable in the output.
func (w *JSONWriter) Write(props []*models.Property) error {
	if props == nil {
		props = []*models.Property{}
	}

	enc := json.NewEncoder(w.file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(props); err != nil {
		return fmt.Errorf("json: encode batch: %w", err)
	}
	return nil
}

func (w *JSONWriter) Close() error {
	return w.file.Close()
}
