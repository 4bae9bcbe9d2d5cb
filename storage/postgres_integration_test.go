//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "scraper",
			"POSTGRES_PASSWORD": "scraper",
			"POSTGRES_DB":       "realestate_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf(
		"host=%s port=%s user=scraper password=scraper dbname=realestate_test sslmode=disable",
		host, port.Port())
}

func storedProperty(id string, rent int) *models.Property {
	scraped := time.Date(2026, time.August, 25, 10, 0, 0, 0, time.UTC)
	return &models.Property{
		PropertyID:   id,
		SiteName:     "suumo",
		URL:          "https://suumo.jp/chintai/" + id + "/",
		Title:        "テスト物件 " + id,
		PropertyType: models.TypeApartment,
		Prefecture:   "東京都",
		City:         "渋谷区",
		Address:      "東京都渋谷区恵比寿1-2-3",
		Latitude:     floatPtr(35.6581),
		Longitude:    floatPtr(139.7017),
		Rent:         intPtr(rent),
		FloorPlan:    "1LDK",
		Area:         floatPtr(35.0),
		TrainLines:   []string{"JR山手線"},
		ScrapedAt:    scraped,
		UpdatedAt:    scraped,
	}
}

func TestPostgresWriterLifecycle(t *testing.T) {
	dsn := startPostgres(t)

	pw, err := NewPostgresWriter(dsn)
	require.NoError(t, err)
	defer pw.Close()

	require.NoError(t, pw.Write([]*models.Property{
		storedProperty("suumo_1", 85000),
		storedProperty("suumo_2", 120000),
	}))

	count, err := pw.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Re-scraping the same property updates the row instead of adding one.
	require.NoError(t, pw.Write([]*models.Property{storedProperty("suumo_1", 90000)}))

	count, err = pw.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	props, err := pw.FetchAll()
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "suumo_1", props[0].PropertyID)
	require.NotNil(t, props[0].Rent)
	assert.Equal(t, 90000, *props[0].Rent)
	assert.Equal(t, []string{"JR山手線"}, props[0].TrainLines)
	require.NotNil(t, props[0].Latitude)
	assert.InDelta(t, 35.6581, *props[0].Latitude, 1e-6)

	require.NoError(t, pw.Clear())
	count, err = pw.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
