package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

// propertyRow is the flat parquet schema for one property. List-valued
// fields are joined into one column; numeric columns stay null when the
// source field is unknown.
type propertyRow struct {
	PropertyID   string `parquet:"property_id"`
	SiteName     string `parquet:"site_name"`
	URL          string `parquet:"url"`
	Title        string `parquet:"title,optional"`
	PropertyType string `parquet:"property_type,optional"`

	Prefecture string `parquet:"prefecture,optional"`
	City       string `parquet:"city,optional"`
	District   string `parquet:"district,optional"`
	Address    string `parquet:"address,optional"`

	Latitude  *float64 `parquet:"latitude"`
	Longitude *float64 `parquet:"longitude"`

	Rent          *int64 `parquet:"rent"`
	ManagementFee *int64 `parquet:"management_fee"`
	Deposit       *int64 `parquet:"deposit"`
	KeyMoney      *int64 `parquet:"key_money"`

	FloorPlan      string   `parquet:"floor_plan,optional"`
	HasServiceRoom bool     `parquet:"has_service_room"`
	Area           *float64 `parquet:"area"`

	FloorNumber      *int64 `parquet:"floor_number"`
	TotalFloors      *int64 `parquet:"total_floors"`
	BuildingAge      *int64 `parquet:"building_age"`
	ConstructionYear *int64 `parquet:"construction_year"`

	NearestStation  string `parquet:"nearest_station,optional"`
	StationDistance *int64 `parquet:"station_distance"`
	TrainLines      string `parquet:"train_lines,optional"`

	Features  string    `parquet:"features,optional"`
	ScrapedAt time.Time `parquet:"scraped_at,timestamp(millisecond)"`
	UpdatedAt time.Time `parquet:"updated_at,timestamp(millisecond)"`
}

// ParquetWriter writes a normalized batch as one parquet row group.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[propertyRow]
}

func NewParquetWriter(path string) (*ParquetWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("parquet: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("parquet: create file %q: %w", path, err)
	}
	return &ParquetWriter{file: f, writer: parquet.NewGenericWriter[propertyRow](f)}, nil
}

func (w *ParquetWriter) Write(props []*models.Property) error {
	rows := make([]propertyRow, len(props))
	for i, p := range props {
		rows[i] = toRow(p)
	}
	if _, err := w.writer.Write(rows); err != nil {
		return fmt.Errorf("parquet: write rows: %w", err)
	}
	return nil
}

func (w *ParquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("parquet: close writer: %w", err)
	}
	return w.file.Close()
}

func toRow(p *models.Property) propertyRow {
	return propertyRow{
		PropertyID:   p.PropertyID,
		SiteName:     p.SiteName,
		URL:          p.URL,
		Title:        p.Title,
		PropertyType: string(p.PropertyType),

		Prefecture: p.Prefecture,
		City:       p.City,
		District:   p.District,
		Address:    p.Address,

		Latitude:  p.Latitude,
		Longitude: p.Longitude,

		Rent:          i64(p.Rent),
		ManagementFee: i64(p.ManagementFee),
		Deposit:       i64(p.Deposit),
		KeyMoney:      i64(p.KeyMoney),

		FloorPlan:      p.FloorPlan,
		HasServiceRoom: p.HasServiceRoom,
		Area:           p.Area,

		FloorNumber:      i64(p.FloorNumber),
		TotalFloors:      i64(p.TotalFloors),
		BuildingAge:      i64(p.BuildingAge),
		ConstructionYear: i64(p.ConstructionYear),

		NearestStation:  p.NearestStation,
		StationDistance: i64(p.StationDistance),
		TrainLines:      strings.Join(p.TrainLines, listSeparator),

		Features:  strings.Join(p.Features, listSeparator),
		ScrapedAt: p.ScrapedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func i64(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
