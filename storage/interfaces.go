package storage

import (
	"context"
	"fmt"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

// listSeparator joins multi-value columns (train lines, features) in flat
// formats. 、never occurs inside the values themselves.
const listSeparator = "、"

// PropertyWriter serializes one normalized batch to a local file.
type PropertyWriter interface {
	Write(props []*models.Property) error
	Close() error
}

// RawWriter persists unprocessed scraped listings.
type RawWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}

// Uploader pushes a finished local file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteKey string) error
}

// NewPropertyWriter opens the writer matching the export format. The
// format string is expected to be pre-validated by config.
func NewPropertyWriter(format, path string) (PropertyWriter, error) {
	switch format {
	case "csv":
		return NewCSVWriter(path)
	case "json":
		return NewJSONWriter(path)
	case "parquet":
		return NewParquetWriter(path)
	}
	return nil, fmt.Errorf("storage: unknown export format %q", format)
}
