package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

// utf8BOM makes Excel open the file as UTF-8; without it Japanese text
// renders as mojibake.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var propertyHeader = []string{
	"property_id", "site_name", "url", "title", "property_type",
	"prefecture", "city", "district", "address",
	"latitude", "longitude",
	"rent", "management_fee", "deposit", "key_money",
	"floor_plan", "has_service_room", "area",
	"floor_number", "total_floors", "building_age", "construction_year",
	"nearest_station", "station_distance", "train_lines",
	"features", "scraped_at", "updated_at",
}

// CSVWriter writes normalized properties to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the BOM and header row. Intermediate directories are created
// automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	if _, err := f.Write(utf8BOM); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(propertyHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per property. Unknown numeric fields serialize as
// empty cells, not zeros.
func (c *CSVWriter) Write(props []*models.Property) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range props {
		row := []string{
			p.PropertyID,
			p.SiteName,
			p.URL,
			p.Title,
			string(p.PropertyType),
			p.Prefecture,
			p.City,
			p.District,
			p.Address,
			floatCell(p.Latitude, 6),
			floatCell(p.Longitude, 6),
			intCell(p.Rent),
			intCell(p.ManagementFee),
			intCell(p.Deposit),
			intCell(p.KeyMoney),
			p.FloorPlan,
			strconv.FormatBool(p.HasServiceRoom),
			floatCell(p.Area, 1),
			intCell(p.FloorNumber),
			intCell(p.TotalFloors),
			intCell(p.BuildingAge),
			intCell(p.ConstructionYear),
			p.NearestStation,
			intCell(p.StationDistance),
			joinCell(p.TrainLines),
			joinCell(p.Features),
			p.ScrapedAt.Format(time.RFC3339),
			p.UpdatedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// RawCSVWriter writes raw (unparsed) listings to a CSV file, one column per
// scraped field. It is safe for concurrent use.
type RawCSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var rawHeader = []string{
	"property_id", "site_name", "url", "title", "property_type", "address",
	"rent", "management_fee", "deposit", "key_money", "floor_plan", "area",
	"floor_info", "building_age", "station", "features", "scraped_at",
}

func NewRawCSVWriter(path string) (*RawCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	if _, err := f.Write(utf8BOM); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(rawHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &RawCSVWriter{file: f, writer: w}, nil
}

func (c *RawCSVWriter) WriteRaw(listings []*models.RawListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.PropertyID,
			l.SiteName,
			l.URL,
			l.Title,
			l.PropertyType,
			l.Address,
			l.Rent,
			l.ManagementFee,
			l.Deposit,
			l.KeyMoney,
			l.FloorPlan,
			l.Area,
			l.FloorInfo,
			l.BuildingAge,
			l.Station,
			l.Features,
			l.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func (c *RawCSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func joinCell(values []string) string {
	return strings.Join(values, listSeparator)
}
