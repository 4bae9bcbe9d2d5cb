package homes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/scraper"
)

func TestSearchURL(t *testing.T) {
	s := New(&scraper.Base{})
	area, ok := config.AreaByCode("13113")
	assert.True(t, ok)

	assert.Equal(t,
		"https://www.homes.co.jp/chintai/tokyo/shibuya-city/list/?page=2",
		s.searchURL(area, 2))
}

func TestToRawListingSplitsCombinedCells(t *testing.T) {
	now := time.Now()
	c := buildingCard{
		PropertyID:   "b-1234560012345",
		URL:          "https://www.homes.co.jp/chintai/b-1234560012345/",
		Title:        "恵比寿ガーデンテラス",
		TypeLabel:    "賃貸マンション",
		Address:      "東京都渋谷区恵比寿1-2-3",
		Station:      "ＪＲ山手線/恵比寿駅 徒歩5分",
		BuildingInfo: "築9年 / 10階建",
		UnitFloor:    "3階",
		PriceCell:    "8.5万円 (5,000円)",
		DepositCell:  "1ヶ月 / 1ヶ月",
		LayoutCell:   "1LDK / 40.5m²",
	}

	raw := c.toRawListing("homes", now)

	assert.Equal(t, "b-1234560012345", raw.PropertyID)
	assert.Equal(t, "homes", raw.SiteName)
	assert.Equal(t, "賃貸マンション", raw.PropertyType)
	assert.Equal(t, "8.5万円", raw.Rent)
	assert.Equal(t, "5,000円", raw.ManagementFee)
	assert.Equal(t, "1ヶ月", raw.Deposit)
	assert.Equal(t, "1ヶ月", raw.KeyMoney)
	assert.Equal(t, "1LDK", raw.FloorPlan)
	assert.Equal(t, "40.5m²", raw.Area)
	assert.Equal(t, "3階/10階建", raw.FloorInfo)
	assert.Equal(t, "築9年", raw.BuildingAge)
	assert.Equal(t, now, raw.ScrapedAt)
}

func TestToRawListingWithSparseCells(t *testing.T) {
	c := buildingCard{
		URL:       "https://www.homes.co.jp/chintai/b-99/",
		PriceCell: "12万円",
		UnitFloor: "2階",
	}

	raw := c.toRawListing("homes", time.Now())

	assert.Equal(t, "12万円", raw.Rent)
	assert.Empty(t, raw.ManagementFee)
	assert.Empty(t, raw.Deposit)
	assert.Empty(t, raw.KeyMoney)
	assert.Equal(t, "2階", raw.FloorInfo)
}
