// Package homes scrapes rental listings from LIFULL HOME'S city list pages.
package homes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/scraper"
)

// buildingCard mirrors the object shape produced by the extraction script.
// One card per unit row inside a merged-building block.
type buildingCard struct {
	PropertyID   string `json:"propertyId"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	TypeLabel    string `json:"typeLabel"`
	Address      string `json:"address"`
	Station      string `json:"station"`
	BuildingInfo string `json:"buildingInfo"`
	UnitFloor    string `json:"unitFloor"`
	PriceCell    string `json:"priceCell"`
	DepositCell  string `json:"depositCell"`
	LayoutCell   string `json:"layoutCell"`
}

// Scraper collects unit cards from HOME'S list pages. Building categories
// are filtered from the card label; the list URL itself is not typed.
type Scraper struct {
	base *scraper.Base
	site config.Site
}

func New(base *scraper.Base) *Scraper {
	site, _ := config.SiteByKey("homes")
	return &Scraper{base: base, site: site}
}

func (s *Scraper) Name() string { return s.site.Key }

func (s *Scraper) Scrape(ctx context.Context, areas []config.Area, propertyTypes []models.PropertyType) ([]*models.RawListing, error) {
	wanted := make(map[models.PropertyType]bool, len(propertyTypes))
	for _, pt := range propertyTypes {
		wanted[pt] = true
	}

	browserCtx, cancel := s.base.NewAllocator(ctx)
	defer cancel()

	var out []*models.RawListing
	for _, area := range areas {
		listings, err := s.scrapeWard(browserCtx, area, wanted)
		out = append(out, listings...)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.base.Logger.Error().
				Err(err).
				Str("area", area.Name).
				Msg("ward scrape failed, moving on")
		}
	}

	s.base.Logger.Info().Int("listings", len(out)).Msg("homes scrape finished")
	return out, nil
}

func (s *Scraper) scrapeWard(browserCtx context.Context, area config.Area, wanted map[models.PropertyType]bool) ([]*models.RawListing, error) {
	var out []*models.RawListing
	for page := 1; page <= s.base.Cfg.MaxPages; page++ {
		pageURL := s.searchURL(area, page)
		if s.base.Robots != nil && !s.base.Robots.Allowed(browserCtx, pageURL) {
			s.base.Logger.Warn().Str("url", pageURL).Msg("blocked by robots.txt, skipping ward")
			return out, nil
		}

		result, err := s.scrapePage(browserCtx, area, page, pageURL, wanted)
		if err != nil {
			return out, err
		}
		if len(result.Listings) == 0 {
			break
		}

		for _, l := range result.Listings {
			if !s.base.Seen.Add(l.URL) {
				continue
			}
			out = append(out, l)
		}

		s.base.Logger.Info().
			Str("area", area.Name).
			Int("page", page).
			Int("listings", len(result.Listings)).
			Msg("page scraped")

		if page < s.base.Cfg.MaxPages {
			if err := scraper.SleepCtx(browserCtx, s.base.PageDelay(pageURL)); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// searchURL builds the city list URL. HOME'S city slugs drop the sc_ prefix
// of the SUUMO ones and append -city.
func (s *Scraper) searchURL(area config.Area, page int) string {
	slug := strings.TrimPrefix(area.SuumoSlug, "sc_") + "-city"
	return fmt.Sprintf("%s%s/list/?page=%d", s.site.SearchURL, slug, page)
}

func (s *Scraper) scrapePage(browserCtx context.Context, area config.Area, page int, pageURL string, wanted map[models.PropertyType]bool) (*models.SearchResult, error) {
	// HOME'S merges units of one building into a block; the spec table keys
	// building facts by row header.
	js := `
		(() => {
			const out = [];
			document.querySelectorAll('.mod-mergeBuilding--rent').forEach((block) => {
				const text = (root, sel) => {
					const el = root.querySelector(sel);
					return el ? el.textContent.trim().replace(/\s+/g, ' ') : '';
				};
				const title = text(block, '.bukkenName');
				const typeLabel = text(block, '.bukkenType');

				const spec = {};
				block.querySelectorAll('.bukkenSpec tr').forEach((row) => {
					const th = row.querySelector('th');
					const td = row.querySelector('td');
					if (th && td) {
						spec[th.textContent.trim()] = td.textContent.trim().replace(/\s+/g, ' ');
					}
				});

				block.querySelectorAll('.unitSummary tbody tr').forEach((row) => {
					const link = row.querySelector('a[href*="/chintai/"]');
					if (!link) {
						return;
					}
					const href = link.href;
					const idMatch = href.match(/(b-\d+)/);
					const tds = Array.from(row.querySelectorAll('td'))
						.map((td) => td.textContent.trim().replace(/\s+/g, ' '));
					out.push({
						propertyId: idMatch ? idMatch[1] : '',
						url: href,
						title: title,
						typeLabel: typeLabel,
						address: spec['所在地'] || '',
						station: spec['交通'] || '',
						buildingInfo: spec['築年数/階数'] || '',
						unitFloor: tds.length > 1 ? tds[1] : '',
						priceCell: tds.length > 2 ? tds[2] : '',
						depositCell: tds.length > 3 ? tds[3] : '',
						layoutCell: tds.length > 4 ? tds[4] : '',
					});
				});
			});
			return out;
		})()
	`

	op := fmt.Sprintf("homes %s page %d", area.Name, page)
	var cards []buildingCard
	err := s.base.Retry.Do(browserCtx, op, func() error {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 90*time.Second)
		defer cancelTimeout()

		cards = nil
		return chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(js, &cards),
		)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := &models.SearchResult{
		SiteName:  s.site.Key,
		AreaName:  area.Name,
		Page:      page,
		FetchedAt: now,
	}
	for _, c := range cards {
		if c.URL == "" {
			continue
		}
		pt, ok := models.PropertyTypeFromLabel(c.TypeLabel)
		if len(wanted) > 0 && (!ok || !wanted[pt]) {
			continue
		}
		result.Listings = append(result.Listings, c.toRawListing(s.site.Key, now))
	}
	return result, nil
}

// toRawListing splits the combined table cells into the per-field raw
// strings the normalizer expects.
func (c buildingCard) toRawListing(siteName string, now time.Time) *models.RawListing {
	rent, fee := splitPair(c.PriceCell, "(")
	fee = strings.TrimSuffix(strings.TrimSpace(fee), ")")
	deposit, keyMoney := splitPair(c.DepositCell, "/")
	floorPlan, area := splitPair(c.LayoutCell, "/")
	buildingAge, totalFloors := splitPair(c.BuildingInfo, "/")

	floorInfo := c.UnitFloor
	if totalFloors != "" {
		floorInfo = floorInfo + "/" + totalFloors
	}

	return &models.RawListing{
		PropertyID:    c.PropertyID,
		SiteName:      siteName,
		URL:           c.URL,
		Title:         c.Title,
		PropertyType:  c.TypeLabel,
		Address:       c.Address,
		Rent:          rent,
		ManagementFee: fee,
		Deposit:       deposit,
		KeyMoney:      keyMoney,
		FloorPlan:     floorPlan,
		Area:          area,
		FloorInfo:     floorInfo,
		BuildingAge:   buildingAge,
		Station:       c.Station,
		ScrapedAt:     now,
	}
}

func splitPair(s, sep string) (string, string) {
	before, after, found := strings.Cut(s, sep)
	if !found {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
