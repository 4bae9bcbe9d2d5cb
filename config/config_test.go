package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"suumo", "homes"}, cfg.Scraper.Sites)
	assert.Equal(t, 5, cfg.Scraper.MaxPages)
	assert.Equal(t, 10, cfg.Scraper.RateLimitCalls)
	assert.Equal(t, time.Minute, cfg.Scraper.RateLimitPeriod)
	assert.Equal(t, "csv", cfg.Export.Format)
	assert.Equal(t, "tokyo", cfg.Export.Region)
	assert.Equal(t, "raw", cfg.Export.S3Prefix)
	assert.Equal(t, "ap-northeast-1", cfg.Export.AWSRegion)
	assert.False(t, cfg.Geocode.Enabled)
	assert.Equal(t, []string{"google", "nominatim"}, cfg.Geocode.Providers)

	require.Contains(t, cfg.Quality.Bounds, "rent")
	assert.Equal(t, 10000.0, cfg.Quality.Bounds["rent"].Min)
	assert.Equal(t, 5000000.0, cfg.Quality.Bounds["rent"].Max)
	assert.Contains(t, cfg.Quality.RequiredFields, "property_id")
	assert.Contains(t, cfg.Quality.RequiredFields, "rent")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", "test-key-123")
	t.Setenv("S3_BUCKET_NAME", "listing-archive")
	t.Setenv("SCRAPER_DEMO_MODE", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test-key-123", cfg.Geocode.GoogleAPIKey)
	assert.Equal(t, "listing-archive", cfg.Export.S3Bucket)
	assert.True(t, cfg.Scraper.DemoMode)
}

func TestValidateRejectsUnknownFormat(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Export.Format = "xml"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownFormat)
}

func TestValidateRejectsUnknownSite(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Scraper.Sites = []string{"suumo", "zillow"}
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownSite)

	cfg.Scraper.Sites = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoSites)

	// demo is a valid pseudo-site even though it has no site table entry
	cfg.Scraper.Sites = []string{"demo"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvalidBounds(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Quality.Bounds["rent"] = Bound{Min: 100, Max: 10}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidBounds)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Geocode.Providers = []string{"google", "yandex"}
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownProvider)
}

func TestProviderRateInterval(t *testing.T) {
	r := ProviderRate{Calls: 10, Period: time.Second}
	assert.Equal(t, 100*time.Millisecond, r.Interval())

	r = ProviderRate{Calls: 1, Period: time.Second}
	assert.Equal(t, time.Second, r.Interval())

	r = ProviderRate{}
	assert.Equal(t, time.Duration(0), r.Interval())
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "localhost", Port: "5432", User: "scraper",
		Password: "secret", DB: "realestate_db", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=scraper password=secret dbname=realestate_db sslmode=disable",
		p.DSN())
}

func TestResolveAreas(t *testing.T) {
	areas := ResolveAreas([]string{"13113", "新宿区", "99999"})
	require.Len(t, areas, 2)
	assert.Equal(t, "渋谷区", areas[0].Name)
	assert.Equal(t, "sc_shibuya", areas[0].SuumoSlug)
	assert.Equal(t, "13104", areas[1].Code)

	// Empty selection falls back to the first three wards.
	areas = ResolveAreas(nil)
	require.Len(t, areas, 3)
	assert.Equal(t, "千代田区", areas[0].Name)
}
