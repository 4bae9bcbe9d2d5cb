package suumo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/scraper"
)

func TestSearchURL(t *testing.T) {
	s := New(&scraper.Base{})
	area, ok := config.AreaByCode("13113")
	assert.True(t, ok)

	assert.Equal(t,
		"https://suumo.jp/chintai/tokyo/sc_shibuya/?ts=1&page=1",
		s.searchURL(area, models.TypeApartment, 1))
	assert.Equal(t,
		"https://suumo.jp/chintai/tokyo/sc_shibuya/?ts=3&page=4",
		s.searchURL(area, models.TypeHouse, 4))
}

func TestTypeCodesCoverAllCategories(t *testing.T) {
	for _, pt := range []models.PropertyType{models.TypeApartment, models.TypeApart, models.TypeHouse} {
		assert.NotEmpty(t, typeCodes[pt], string(pt))
	}
}
