package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

// propertyColumns is the insert column order. property_id leads because it
// is the conflict key.
var propertyColumns = []string{
	"property_id", "site_name", "url", "title", "property_type",
	"prefecture", "city", "district", "address",
	"latitude", "longitude",
	"rent", "management_fee", "deposit", "key_money",
	"floor_plan", "has_service_room", "area",
	"floor_number", "total_floors", "building_age", "construction_year",
	"nearest_station", "station_distance", "train_lines",
	"features", "scraped_at", "updated_at",
}

// PostgresWriter persists normalized properties to PostgreSQL. Re-scraped
// properties upsert on property_id, so repeated runs refresh rows instead
// of duplicating them.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id                SERIAL PRIMARY KEY,
			property_id       TEXT        UNIQUE NOT NULL,
			site_name         VARCHAR(50) NOT NULL,
			url               TEXT        NOT NULL,
			title             TEXT        NOT NULL DEFAULT '',
			property_type     VARCHAR(20) NOT NULL DEFAULT '',
			prefecture        TEXT        NOT NULL DEFAULT '',
			city              TEXT        NOT NULL DEFAULT '',
			district          TEXT        NOT NULL DEFAULT '',
			address           TEXT        NOT NULL DEFAULT '',
			latitude          DOUBLE PRECISION,
			longitude         DOUBLE PRECISION,
			rent              INTEGER,
			management_fee    INTEGER,
			deposit           INTEGER,
			key_money         INTEGER,
			floor_plan        VARCHAR(20) NOT NULL DEFAULT '',
			has_service_room  BOOLEAN     NOT NULL DEFAULT FALSE,
			area              DOUBLE PRECISION,
			floor_number      INTEGER,
			total_floors      INTEGER,
			building_age      INTEGER,
			construction_year INTEGER,
			nearest_station   TEXT        NOT NULL DEFAULT '',
			station_distance  INTEGER,
			train_lines       TEXT        NOT NULL DEFAULT '',
			features          TEXT        NOT NULL DEFAULT '',
			scraped_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_properties_city       ON properties(city);
		CREATE INDEX IF NOT EXISTS idx_properties_rent       ON properties(rent);
		CREATE INDEX IF NOT EXISTS idx_properties_site_name  ON properties(site_name);
		CREATE INDEX IF NOT EXISTS idx_properties_floor_plan ON properties(floor_plan);
	`)
	return err
}

// Clear deletes all stored properties.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM properties")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write upserts the batch in chunks.
func (pw *PostgresWriter) Write(props []*models.Property) error {
	if len(props) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(props); i += batchSize {
		end := i + batchSize
		if end > len(props) {
			end = len(props)
		}
		if err := pw.insertBatch(props[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.Property) error {
	n := len(propertyColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*n)

	for idx, p := range batch {
		placeholders := make([]string, n)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", idx*n+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		valueArgs = append(valueArgs,
			p.PropertyID, p.SiteName, p.URL, p.Title, string(p.PropertyType),
			p.Prefecture, p.City, p.District, p.Address,
			p.Latitude, p.Longitude,
			p.Rent, p.ManagementFee, p.Deposit, p.KeyMoney,
			p.FloorPlan, p.HasServiceRoom, p.Area,
			p.FloorNumber, p.TotalFloors, p.BuildingAge, p.ConstructionYear,
			p.NearestStation, p.StationDistance, strings.Join(p.TrainLines, listSeparator),
			strings.Join(p.Features, listSeparator), p.ScrapedAt, p.UpdatedAt,
		)
	}

	updates := make([]string, 0, n-1)
	for _, col := range propertyColumns[1:] {
		updates = append(updates, col+" = EXCLUDED."+col)
	}

	query := fmt.Sprintf(`
		INSERT INTO properties (%s)
		VALUES %s
		ON CONFLICT (property_id) DO UPDATE SET %s
	`, strings.Join(propertyColumns, ", "), strings.Join(valueStrings, ","), strings.Join(updates, ", "))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// Count returns the number of stored properties.
func (pw *PostgresWriter) Count() (int, error) {
	var n int
	if err := pw.db.QueryRow("SELECT COUNT(*) FROM properties").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

// FetchAll retrieves all stored properties in insertion order.
func (pw *PostgresWriter) FetchAll() ([]*models.Property, error) {
	rows, err := pw.db.Query(fmt.Sprintf(
		"SELECT %s FROM properties ORDER BY id", strings.Join(propertyColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var props []*models.Property
	for rows.Next() {
		p := &models.Property{}
		var (
			propertyType                  string
			lat, lon, area                sql.NullFloat64
			rent, fee, deposit, keyMoney  sql.NullInt64
			floorNumber, totalFloors      sql.NullInt64
			buildingAge, constructionYear sql.NullInt64
			stationDistance               sql.NullInt64
			trainLines, features          string
		)
		if err := rows.Scan(
			&p.PropertyID, &p.SiteName, &p.URL, &p.Title, &propertyType,
			&p.Prefecture, &p.City, &p.District, &p.Address,
			&lat, &lon,
			&rent, &fee, &deposit, &keyMoney,
			&p.FloorPlan, &p.HasServiceRoom, &area,
			&floorNumber, &totalFloors, &buildingAge, &constructionYear,
			&p.NearestStation, &stationDistance, &trainLines,
			&features, &p.ScrapedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}

		p.PropertyType = models.PropertyType(propertyType)
		p.Latitude = nullFloat(lat)
		p.Longitude = nullFloat(lon)
		p.Area = nullFloat(area)
		p.Rent = nullInt(rent)
		p.ManagementFee = nullInt(fee)
		p.Deposit = nullInt(deposit)
		p.KeyMoney = nullInt(keyMoney)
		p.FloorNumber = nullInt(floorNumber)
		p.TotalFloors = nullInt(totalFloors)
		p.BuildingAge = nullInt(buildingAge)
		p.ConstructionYear = nullInt(constructionYear)
		p.StationDistance = nullInt(stationDistance)
		p.TrainLines = splitJoined(trainLines)
		p.Features = splitJoined(features)

		props = append(props, p)
	}
	return props, rows.Err()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func splitJoined(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}
