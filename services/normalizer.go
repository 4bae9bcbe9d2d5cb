package services

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/utils"
)

// Normalizer transforms RawListings into typed Properties. Records that
// cannot be identified (no property id or URL) are dropped with a warning;
// every other parsing problem just leaves the affected field nil so the
// quality checker can report it. Duplicates are kept here on purpose —
// detecting them is the quality checker's job.
type Normalizer struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "normalizer").Logger(),
		now:    time.Now,
	}
}

// Normalize processes raw listings in input order.
func (n *Normalizer) Normalize(raw []*models.RawListing) []*models.Property {
	result := make([]*models.Property, 0, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.PropertyID)
		url := strings.TrimSpace(r.URL)
		if id == "" || url == "" {
			n.logger.Warn().Str("title", r.Title).Str("site", r.SiteName).
				Msg("dropping listing without property id or url")
			continue
		}
		result = append(result, n.normalizeOne(r, id, url))
	}

	n.logger.Info().Int("raw", len(raw)).Int("normalized", len(result)).
		Int("dropped", len(raw)-len(result)).Msg("normalized listings")
	return result
}

func (n *Normalizer) normalizeOne(r *models.RawListing, id, url string) *models.Property {
	now := n.now()

	p := &models.Property{
		PropertyID: id,
		SiteName:   strings.ToLower(strings.TrimSpace(r.SiteName)),
		URL:        url,
		Title:      utils.NormalizeText(r.Title),
		ScrapedAt:  r.ScrapedAt,
		UpdatedAt:  now,
	}
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = now
	}

	if pt, ok := models.PropertyTypeFromLabel(strings.ToLower(utils.NormalizeText(r.PropertyType))); ok {
		p.PropertyType = pt
	}

	p.Rent = utils.ParseRent(r.Rent)
	p.Area = utils.ParseArea(r.Area)
	p.FloorPlan, p.HasServiceRoom = utils.ParseFloorPlan(r.FloorPlan)

	p.ManagementFee = feeAmount(r.ManagementFee, p.Rent)
	p.Deposit = feeAmount(r.Deposit, p.Rent)
	p.KeyMoney = feeAmount(r.KeyMoney, p.Rent)

	p.FloorNumber, p.TotalFloors = utils.ParseFloorInfo(r.FloorInfo)
	p.BuildingAge, p.ConstructionYear = buildingAge(r.BuildingAge, now)

	p.NearestStation, p.StationDistance, p.TrainLines = utils.ParseStationInfo(r.Station)

	p.Address = utils.NormalizeText(r.Address)
	parts := utils.SplitAddress(p.Address)
	p.Prefecture = parts.Prefecture
	p.City = parts.City
	p.District = parts.District

	p.Features = splitFeatures(r.Features)

	return p
}

// feeAmount resolves fee text to yen. Month-denominated fees (敷金1ヶ月)
// convert through the monthly rent; without a parsed rent they stay unknown.
func feeAmount(raw string, rent *int) *int {
	amount, months := utils.ParseFee(raw)
	if months == nil {
		return amount
	}
	if rent == nil {
		return nil
	}
	yen := int(math.Round(*months * float64(*rent)))
	return &yen
}

// buildingAge fills whichever of age and construction year the source text
// lacks. The derived values are computed once, at normalization time, and
// stored as plain numbers. A construction year in the future (pre-completion
// listings) counts as age zero.
func buildingAge(raw string, now time.Time) (age, year *int) {
	age = utils.ParseBuildingAge(raw)
	year = utils.ParseConstructionYear(raw)

	switch {
	case age != nil && year == nil:
		y := now.Year() - *age
		year = &y
	case age == nil && year != nil:
		a := now.Year() - *year
		if a < 0 {
			a = 0
		}
		age = &a
	}
	return age, year
}

func splitFeatures(s string) []string {
	s = utils.NormalizeText(s)
	if s == "" {
		return nil
	}

	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '、' || r == ','
	}) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
