package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/geocode"
	"github.com/kawafuchieirin/real-estate-scraping/models"
)

// QualityChecker inspects a normalized batch for missing required fields,
// out-of-bounds values, and duplicate keys. Checking never mutates the
// batch; repairs live in FixCommonIssues.
type QualityChecker struct {
	cfg    config.QualityConfig
	logger zerolog.Logger
}

func NewQualityChecker(cfg config.QualityConfig, logger zerolog.Logger) *QualityChecker {
	return &QualityChecker{
		cfg:    cfg,
		logger: logger.With().Str("component", "quality").Logger(),
	}
}

// Check builds the quality report for a batch. The score starts at 100 and
// loses weight×percentage for each category, where the percentage is the
// share of records affected by that category; it is clamped to [0, 100] and
// rounded to one decimal place. An empty batch scores 100.
func (q *QualityChecker) Check(props []*models.Property) *models.QualityReport {
	report := &models.QualityReport{
		GeneratedAt:   time.Now(),
		TotalRecords:  len(props),
		QualityScore:  100,
		MissingValues: make(map[string]models.MissingFieldStat),
		Outliers:      make(map[string][]models.Outlier),
		Duplicates:    make(map[string]map[string]int),
	}
	if len(props) == 0 {
		return report
	}

	missing := q.checkMissing(props, report)
	outliers := q.checkOutliers(props, report)
	duplicates := q.checkDuplicates(props, report)

	total := float64(len(props))
	penalty := q.cfg.MissingWeight*pct(missing, total) +
		q.cfg.OutlierWeight*pct(outliers, total) +
		q.cfg.DuplicateWeight*pct(duplicates, total)

	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	report.QualityScore = round1(score)

	q.logger.Info().Float64("score", report.QualityScore).Int("records", len(props)).
		Int("with_missing", missing).Int("with_outliers", outliers).
		Int("duplicate_records", duplicates).Msg("quality check complete")
	return report
}

// checkMissing fills the per-field missing stats and returns how many
// records miss at least one required field.
func (q *QualityChecker) checkMissing(props []*models.Property, report *models.QualityReport) int {
	affected := make([]bool, len(props))

	for _, field := range q.cfg.RequiredFields {
		count := 0
		for i, p := range props {
			if fieldMissing(p, field) {
				count++
				affected[i] = true
			}
		}
		if count > 0 {
			report.MissingValues[field] = models.MissingFieldStat{
				Count:      count,
				Percentage: round1(100 * float64(count) / float64(len(props))),
			}
		}
	}
	return countTrue(affected)
}

// checkOutliers fills the per-field outlier lists, each capped at
// MaxOutliersPerField entries, and returns how many records carry at least
// one out-of-bounds value. Records with the field unset are not outliers;
// absence is the missing check's concern.
func (q *QualityChecker) checkOutliers(props []*models.Property, report *models.QualityReport) int {
	fields := make([]string, 0, len(q.cfg.Bounds))
	for f := range q.cfg.Bounds {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	affected := make([]bool, len(props))
	for _, field := range fields {
		bound := q.cfg.Bounds[field]
		var list []models.Outlier

		for i, p := range props {
			v, ok := numericField(p, field)
			if !ok || (v >= bound.Min && v <= bound.Max) {
				continue
			}
			affected[i] = true
			if q.cfg.MaxOutliersPerField > 0 && len(list) >= q.cfg.MaxOutliersPerField {
				continue
			}
			list = append(list, models.Outlier{
				Index:      i,
				PropertyID: p.PropertyID,
				Value:      v,
				Reason:     boundReason(field, v, bound),
			})
		}
		if len(list) > 0 {
			report.Outliers[field] = list
		}
	}
	return countTrue(affected)
}

// checkDuplicates fills the duplicate-value counts for the key fields and
// returns how many records are surplus occurrences of an already-seen key.
func (q *QualityChecker) checkDuplicates(props []*models.Property, report *models.QualityReport) int {
	keys := []struct {
		field string
		value func(*models.Property) string
	}{
		{"property_id", func(p *models.Property) string { return p.PropertyID }},
		{"url", func(p *models.Property) string { return p.URL }},
	}

	surplus := make([]bool, len(props))
	for _, key := range keys {
		counts := make(map[string]int)
		for i, p := range props {
			v := key.value(p)
			if v == "" {
				continue
			}
			counts[v]++
			if counts[v] > 1 {
				surplus[i] = true
			}
		}
		for v, c := range counts {
			if c > 1 {
				if report.Duplicates[key.field] == nil {
					report.Duplicates[key.field] = make(map[string]int)
				}
				report.Duplicates[key.field][v] = c
			}
		}
	}
	return countTrue(surplus)
}

// FixCommonIssues returns a repaired copy of the batch: duplicate property
// ids collapse to the record scraped most recently (the first occurrence
// wins a tie and keeps its position), and coordinates outside Japan are
// cleared. The input and its records are left untouched. Nothing else is
// dropped — bound violations stay in the data and only show up in the
// report.
func (q *QualityChecker) FixCommonIssues(props []*models.Property) []*models.Property {
	result := make([]*models.Property, 0, len(props))
	slot := make(map[string]int, len(props))

	for _, p := range props {
		c := *p
		if c.HasCoordinates() && !geocode.WithinJapan(*c.Latitude, *c.Longitude) {
			q.logger.Warn().Str("property_id", c.PropertyID).
				Float64("lat", *c.Latitude).Float64("lon", *c.Longitude).
				Msg("clearing coordinates outside japan")
			c.Latitude = nil
			c.Longitude = nil
		}

		if c.PropertyID == "" {
			result = append(result, &c)
			continue
		}

		i, ok := slot[c.PropertyID]
		if !ok {
			slot[c.PropertyID] = len(result)
			result = append(result, &c)
			continue
		}
		if c.ScrapedAt.After(result[i].ScrapedAt) {
			result[i] = &c
		}
	}

	if removed := len(props) - len(result); removed > 0 {
		q.logger.Info().Int("in", len(props)).Int("out", len(result)).
			Int("removed", removed).Msg("collapsed duplicate records")
	}
	return result
}

func fieldMissing(p *models.Property, field string) bool {
	switch field {
	case "property_id":
		return p.PropertyID == ""
	case "site_name":
		return p.SiteName == ""
	case "url":
		return p.URL == ""
	case "title":
		return p.Title == ""
	case "property_type":
		return p.PropertyType == ""
	case "prefecture":
		return p.Prefecture == ""
	case "city":
		return p.City == ""
	case "address":
		return p.Address == ""
	case "rent":
		return p.Rent == nil
	case "management_fee":
		return p.ManagementFee == nil
	case "floor_plan":
		return p.FloorPlan == ""
	case "area":
		return p.Area == nil
	case "building_age":
		return p.BuildingAge == nil
	case "nearest_station":
		return p.NearestStation == ""
	case "station_distance":
		return p.StationDistance == nil
	case "latitude":
		return p.Latitude == nil
	case "longitude":
		return p.Longitude == nil
	}
	return false
}

func numericField(p *models.Property, field string) (float64, bool) {
	switch field {
	case "rent":
		if p.Rent != nil {
			return float64(*p.Rent), true
		}
	case "area":
		if p.Area != nil {
			return *p.Area, true
		}
	case "floor_number":
		if p.FloorNumber != nil {
			return float64(*p.FloorNumber), true
		}
	case "total_floors":
		if p.TotalFloors != nil {
			return float64(*p.TotalFloors), true
		}
	case "building_age":
		if p.BuildingAge != nil {
			return float64(*p.BuildingAge), true
		}
	case "station_distance":
		if p.StationDistance != nil {
			return float64(*p.StationDistance), true
		}
	case "latitude":
		if p.Latitude != nil {
			return *p.Latitude, true
		}
	case "longitude":
		if p.Longitude != nil {
			return *p.Longitude, true
		}
	}
	return 0, false
}

func boundReason(field string, v float64, b config.Bound) string {
	val := strconv.FormatFloat(v, 'f', -1, 64)
	if v < b.Min {
		return fmt.Sprintf("%s %s below minimum %s", field, val, strconv.FormatFloat(b.Min, 'f', -1, 64))
	}
	return fmt.Sprintf("%s %s above maximum %s", field, val, strconv.FormatFloat(b.Max, 'f', -1, 64))
}

func pct(affected int, total float64) float64 {
	return 100 * float64(affected) / total
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
