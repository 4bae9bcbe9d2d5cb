package demo

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/models"
)

func newFixedScraper() *Scraper {
	s := New(config.ScraperConfig{}, zerolog.Nop())
	s.now = func() time.Time {
		return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func testAreas(t *testing.T) []config.Area {
	t.Helper()
	area, ok := config.AreaByCode("13113")
	require.True(t, ok)
	return []config.Area{area}
}

func TestScrapeIsDeterministic(t *testing.T) {
	ctx := context.Background()
	areas := testAreas(t)

	first, err := newFixedScraper().Scrape(ctx, areas, nil)
	require.NoError(t, err)
	second, err := newFixedScraper().Scrape(ctx, areas, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScrapeBatchShape(t *testing.T) {
	batch, err := newFixedScraper().Scrape(context.Background(), testAreas(t), nil)
	require.NoError(t, err)

	// 30 units plus one re-listed duplicate per 10.
	assert.Len(t, batch, listingsPerArea+listingsPerArea/10)

	for _, l := range batch {
		assert.Equal(t, "demo", l.SiteName)
		assert.NotEmpty(t, l.PropertyID)
		assert.NotEmpty(t, l.URL)
		assert.NotEmpty(t, l.Rent)
	}
}

func TestScrapeContainsDirtyRecords(t *testing.T) {
	batch, err := newFixedScraper().Scrape(context.Background(), testAreas(t), nil)
	require.NoError(t, err)

	var badRent, missingPlan, missingArea, missingTitle bool
	counts := make(map[string]int)
	for _, l := range batch {
		counts[l.PropertyID]++
		switch {
		case l.Rent == "要相談" || l.Rent == "八万五千円":
			badRent = true
		case l.FloorPlan == "":
			missingPlan = true
		case l.Area == "":
			missingArea = true
		case l.Title == "":
			missingTitle = true
		}
	}

	assert.True(t, badRent, "expected at least one unparseable rent")
	assert.True(t, missingPlan, "expected at least one missing floor plan")
	assert.True(t, missingArea, "expected at least one missing area")
	assert.True(t, missingTitle, "expected at least one missing title")

	duplicates := 0
	for _, n := range counts {
		if n > 1 {
			duplicates++
		}
	}
	assert.Equal(t, listingsPerArea/10, duplicates)
}

func TestScrapeHonorsPropertyTypeFilter(t *testing.T) {
	batch, err := newFixedScraper().Scrape(context.Background(), testAreas(t),
		[]models.PropertyType{models.TypeApart})
	require.NoError(t, err)
	require.NotEmpty(t, batch)

	for _, l := range batch {
		assert.Equal(t, "アパート", l.PropertyType)
	}
}

func TestScrapeStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := newFixedScraper().Scrape(ctx, testAreas(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch)
}
