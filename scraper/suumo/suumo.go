// Package suumo scrapes rental listings from SUUMO ward search pages.
package suumo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/scraper"
)

// typeCodes maps building categories to SUUMO's ts query parameter.
var typeCodes = map[models.PropertyType]string{
	models.TypeApartment: "1",
	models.TypeApart:     "2",
	models.TypeHouse:     "3",
}

// unitCard mirrors the object shape produced by the extraction script.
type unitCard struct {
	PropertyID    string `json:"propertyId"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Address       string `json:"address"`
	Rent          string `json:"rent"`
	ManagementFee string `json:"managementFee"`
	Deposit       string `json:"deposit"`
	KeyMoney      string `json:"keyMoney"`
	FloorPlan     string `json:"floorPlan"`
	Area          string `json:"area"`
	FloorInfo     string `json:"floorInfo"`
	BuildingAge   string `json:"buildingAge"`
	Station       string `json:"station"`
}

// Scraper collects unit cards from SUUMO list pages and enriches them with
// detail-page features.
type Scraper struct {
	base *scraper.Base
	site config.Site
}

func New(base *scraper.Base) *Scraper {
	site, _ := config.SiteByKey("suumo")
	return &Scraper{base: base, site: site}
}

func (s *Scraper) Name() string { return s.site.Key }

// Scrape walks the ward search pages for each requested building category.
// Pagination stops at the first empty page or after cfg.MaxPages.
func (s *Scraper) Scrape(ctx context.Context, areas []config.Area, propertyTypes []models.PropertyType) ([]*models.RawListing, error) {
	if len(propertyTypes) == 0 {
		propertyTypes = []models.PropertyType{models.TypeApartment, models.TypeApart, models.TypeHouse}
	}

	browserCtx, cancel := s.base.NewAllocator(ctx)
	defer cancel()

	var out []*models.RawListing
	for _, area := range areas {
		for _, ptype := range propertyTypes {
			listings, err := s.scrapeWard(browserCtx, area, ptype)
			out = append(out, listings...)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				s.base.Logger.Error().
					Err(err).
					Str("area", area.Name).
					Str("property_type", string(ptype)).
					Msg("ward scrape failed, moving on")
			}
		}
	}

	s.enrich(browserCtx, out)

	s.base.Logger.Info().Int("listings", len(out)).Msg("suumo scrape finished")
	return out, nil
}

func (s *Scraper) scrapeWard(browserCtx context.Context, area config.Area, ptype models.PropertyType) ([]*models.RawListing, error) {
	var out []*models.RawListing
	for page := 1; page <= s.base.Cfg.MaxPages; page++ {
		pageURL := s.searchURL(area, ptype, page)
		if s.base.Robots != nil && !s.base.Robots.Allowed(browserCtx, pageURL) {
			s.base.Logger.Warn().Str("url", pageURL).Msg("blocked by robots.txt, skipping ward")
			return out, nil
		}

		result, err := s.scrapePage(browserCtx, area, ptype, page, pageURL)
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
			Str("property_type", string(ptype)).
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

func (s *Scraper) searchURL(area config.Area, ptype models.PropertyType, page int) string {
	return fmt.Sprintf("%s%s/?ts=%s&page=%d", s.site.SearchURL, area.SuumoSlug, typeCodes[ptype], page)
}

func (s *Scraper) scrapePage(browserCtx context.Context, area config.Area, ptype models.PropertyType, page int, pageURL string) (*models.SearchResult, error) {
	// SUUMO groups units under a building cassette; one card per unit row.
	js := `
		(() => {
			const out = [];
			document.querySelectorAll('.cassetteitem').forEach((item) => {
				const text = (root, sel) => {
					const el = root.querySelector(sel);
					return el ? el.textContent.trim() : '';
				};
				const title = text(item, '.cassetteitem_content-title');
				const address = text(item, '.cassetteitem_detail-col1');
				const stations = Array.from(item.querySelectorAll('.cassetteitem_detail-col2 .cassetteitem_detail-text'))
					.map((el) => el.textContent.trim())
					.filter(Boolean);
				const col3 = Array.from(item.querySelectorAll('.cassetteitem_detail-col3 div'))
					.map((el) => el.textContent.trim());

				item.querySelectorAll('.cassetteitem_other tbody tr.js-cassette_link').forEach((row) => {
					const link = row.querySelector('a[href*="/chintai/"]');
					const href = link ? link.href : '';
					const idMatch = href.match(/(jnc_\d+)/);
					const tds = row.querySelectorAll('td');
					const unitFloor = tds.length > 2 ? tds[2].textContent.trim() : '';
					const building = col3.length > 1 ? col3[1] : '';
					out.push({
						propertyId: idMatch ? idMatch[1] : '',
						url: href,
						title: title,
						address: address,
						rent: text(row, '.cassetteitem_price--rent'),
						managementFee: text(row, '.cassetteitem_price--administration'),
						deposit: text(row, '.cassetteitem_price--deposit'),
						keyMoney: text(row, '.cassetteitem_price--gratuity'),
						floorPlan: text(row, '.cassetteitem_madori'),
						area: text(row, '.cassetteitem_menseki'),
						floorInfo: building ? unitFloor + '/' + building : unitFloor,
						buildingAge: col3.length > 0 ? col3[0] : '',
						station: stations.join(' / '),
					});
				});
			});
			return out;
		})()
	`

	op := fmt.Sprintf("suumo %s %s page %d", area.Name, ptype, page)
	var cards []unitCard
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
		SiteName:     s.site.Key,
		AreaName:     area.Name,
		PropertyType: ptype,
		Page:         page,
		FetchedAt:    now,
	}
	for _, c := range cards {
		if c.URL == "" {
			continue
		}
		result.Listings = append(result.Listings, &models.RawListing{
			PropertyID:    c.PropertyID,
			SiteName:      s.site.Key,
			URL:           c.URL,
			Title:         c.Title,
			PropertyType:  string(ptype),
			Address:       c.Address,
			Rent:          c.Rent,
			ManagementFee: c.ManagementFee,
			Deposit:       c.Deposit,
			KeyMoney:      c.KeyMoney,
			FloorPlan:     c.FloorPlan,
			Area:          c.Area,
			FloorInfo:     c.FloorInfo,
			BuildingAge:   c.BuildingAge,
			Station:       c.Station,
			ScrapedAt:     now,
		})
	}
	return result, nil
}

// enrich fills Features from the unit detail pages. Failures leave the
// listing as scraped from the list page.
func (s *Scraper) enrich(browserCtx context.Context, listings []*models.RawListing) {
	var (
		mu       sync.Mutex
		enriched int
	)
	for _, l := range listings {
		if l.URL == "" || l.Features != "" {
			continue
		}
		if s.base.Robots != nil && !s.base.Robots.Allowed(browserCtx, l.URL) {
			continue
		}

		listing := l
		s.base.Pool.Submit(browserCtx, func() {
			features, err := s.scrapeDetail(browserCtx, listing.URL)
			if err != nil {
				s.base.Logger.Debug().Err(err).Str("url", listing.URL).Msg("detail fetch failed")
				return
			}
			if features == "" {
				return
			}
			mu.Lock()
			listing.Features = features
			enriched++
			mu.Unlock()
		})
	}
	s.base.Pool.Wait()

	s.base.Logger.Info().Int("enriched", enriched).Msg("detail enrichment finished")
}

func (s *Scraper) scrapeDetail(browserCtx context.Context, detailURL string) (string, error) {
	js := `
		(() => {
			const items = Array.from(document.querySelectorAll('#bkdt-option li'))
				.map((el) => el.textContent.trim())
				.filter(Boolean);
			return items.join(' / ');
		})()
	`

	var features string
	err := s.base.Retry.Do(browserCtx, "suumo detail page", func() error {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		features = ""
		return chromedp.Run(tabCtx,
			chromedp.Navigate(detailURL),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(js, &features),
		)
	})
	return features, err
}
