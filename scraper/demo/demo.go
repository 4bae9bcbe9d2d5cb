// Package demo generates a deterministic sample batch so the pipeline can
// run end to end without a browser or network access. The data includes the
// same defects real scrapes produce: unparseable prices, missing fields, and
// re-listed duplicates.
package demo

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/models"
)

const listingsPerArea = 30

var (
	namePrefixes = []string{"グランド", "パーク", "サニー", "メゾン", "リバーサイド", "コート", "ヴェル"}
	nameSuffixes = []string{"ハイツ", "レジデンス", "タワー", "コーポ", "ハウス", "テラス"}
	districts    = []string{"本町", "中央", "東", "西", "緑が丘", "桜台", "富士見"}

	stations = []string{"恵比寿", "新宿", "渋谷", "上野", "品川", "池袋", "目黒", "神田"}
	lines    = []string{"ＪＲ山手線", "東京メトロ銀座線", "都営大江戸線", "東急東横線", "京王線"}

	floorPlans = []string{"1R", "1K", "1DK", "1LDK", "２ＬＤＫ", "2LDK", "3LDK", "2SLDK"}
	features   = []string{
		"オートロック", "バス・トイレ別", "宅配ボックス", "2階以上",
		"エアコン付", "ペット相談可", "室内洗濯機置場", "駅徒歩5分以内",
	}
)

// Scraper fabricates listings instead of fetching them. Output is seeded per
// ward, so repeated runs over the same areas produce identical batches.
type Scraper struct {
	cfg    config.ScraperConfig
	logger zerolog.Logger
	now    func() time.Time
}

func New(cfg config.ScraperConfig, logger zerolog.Logger) *Scraper {
	return &Scraper{cfg: cfg, logger: logger, now: time.Now}
}

func (s *Scraper) Name() string { return "demo" }

func (s *Scraper) Scrape(ctx context.Context, areas []config.Area, propertyTypes []models.PropertyType) ([]*models.RawListing, error) {
	if len(propertyTypes) == 0 {
		propertyTypes = []models.PropertyType{models.TypeApartment, models.TypeApart, models.TypeHouse}
	}

	var out []*models.RawListing
	for _, area := range areas {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, s.generateArea(area, propertyTypes)...)
	}

	s.logger.Info().Int("listings", len(out)).Int("areas", len(areas)).Msg("demo batch generated")
	return out, nil
}

func (s *Scraper) generateArea(area config.Area, propertyTypes []models.PropertyType) []*models.RawListing {
	seed, _ := strconv.ParseInt(area.Code, 10, 64)
	rng := rand.New(rand.NewSource(seed))
	now := s.now()

	listings := make([]*models.RawListing, 0, listingsPerArea+listingsPerArea/10)
	for i := 0; i < listingsPerArea; i++ {
		listings = append(listings, s.generateListing(rng, area, propertyTypes, i, now))
	}

	// Re-list every tenth unit an hour later with a new price, the way
	// refreshed ads come back on real sites.
	for i := 0; i < listingsPerArea; i += 10 {
		dup := *listings[i]
		dup.Rent = rentText(rng, dup.PropertyType)
		dup.ScrapedAt = now.Add(time.Hour)
		listings = append(listings, &dup)
	}

	return listings
}

func (s *Scraper) generateListing(rng *rand.Rand, area config.Area, propertyTypes []models.PropertyType, i int, now time.Time) *models.RawListing {
	ptype := pick(rng, propertyTypes)
	ward := strings.TrimSuffix(area.Name, "区")
	building := pick(rng, namePrefixes) + ward + pick(rng, nameSuffixes)
	totalFloors := 2 + rng.Intn(12)
	unitFloor := 1 + rng.Intn(totalFloors)

	l := &models.RawListing{
		PropertyID:   fmt.Sprintf("demo_%s_%04d", area.Code, i),
		SiteName:     "demo",
		URL:          fmt.Sprintf("https://demo.example.jp/chintai/%s/%04d/", area.Code, i),
		Title:        fmt.Sprintf("%s %d0%d号室", building, unitFloor, 1+rng.Intn(8)),
		PropertyType: ptype.Japanese(),
		Address: fmt.Sprintf("東京都%s%s%d-%d-%d",
			area.Name, pick(rng, districts), 1+rng.Intn(7), 1+rng.Intn(30), 1+rng.Intn(20)),
		Rent:          rentText(rng, ptype.Japanese()),
		ManagementFee: pick(rng, []string{"5000円", "8000円", "１００００円", "なし", ""}),
		Deposit:       pick(rng, []string{"1ヶ月", "2ヶ月", "なし", "0円"}),
		KeyMoney:      pick(rng, []string{"1ヶ月", "なし", "0円", ""}),
		FloorPlan:     pick(rng, floorPlans),
		Area:          fmt.Sprintf("%.1f㎡", 16+rng.Float64()*90),
		FloorInfo:     fmt.Sprintf("%d階/%d階建", unitFloor, totalFloors),
		BuildingAge:   pick(rng, []string{fmt.Sprintf("築%d年", rng.Intn(40)), "新築", fmt.Sprintf("%d年%d月", now.Year()-rng.Intn(30), 1+rng.Intn(12))}),
		Station:       fmt.Sprintf("%s/%s駅 徒歩%d分", pick(rng, lines), pick(rng, stations), 1+rng.Intn(20)),
		Features:      strings.Join(pickN(rng, features, 2+rng.Intn(3)), " / "),
		ScrapedAt:     now.Add(-time.Duration(rng.Intn(120)) * time.Minute),
	}

	// Sprinkle in the defects the quality checker exists to catch.
	switch {
	case i%11 == 3:
		l.Rent = pick(rng, []string{"要相談", "八万五千円"})
	case i%11 == 5:
		l.FloorPlan = ""
	case i%11 == 7:
		l.Area = ""
	case i%13 == 9:
		l.Title = ""
	case i%17 == 4:
		l.Address = ""
		l.Station = fmt.Sprintf("%s駅 バス%d分", pick(rng, stations), 5+rng.Intn(15))
	}

	return l
}

func rentText(rng *rand.Rand, typeLabel string) string {
	base := 6.0
	spread := 24.0
	switch {
	case strings.Contains(typeLabel, "アパート"):
		base, spread = 4, 8
	case strings.Contains(typeLabel, "一戸建"):
		base, spread = 10, 30
	}
	man := base + rng.Float64()*spread

	switch rng.Intn(3) {
	case 0:
		return fmt.Sprintf("%.1f万円", man)
	case 1:
		return fmt.Sprintf("%d万円", int(man))
	default:
		return fmt.Sprintf("%d,000円", int(man*10))
	}
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

func pickN(rng *rand.Rand, items []string, n int) []string {
	idx := rng.Perm(len(items))
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = items[idx[i]]
	}
	return out
}
