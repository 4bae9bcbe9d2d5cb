package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

type InsightService struct {
	logger zerolog.Logger
}

func NewInsightService(logger zerolog.Logger) *InsightService {
	return &InsightService{logger: logger.With().Str("component", "insights").Logger()}
}

// Generate computes summary analytics over a normalized batch.
func (s *InsightService) Generate(props []*models.Property) *models.SummaryReport {
	report := &models.SummaryReport{
		GeneratedAt:    time.Now(),
		BySite:         make(map[string]int),
		ByCity:         make(map[string]int),
		ByFloorPlan:    make(map[string]int),
		ByPropertyType: make(map[string]int),
	}
	if len(props) == 0 {
		return report
	}
	report.TotalProperties = len(props)

	var rents, areas []float64
	for _, p := range props {
		if p.SiteName != "" {
			report.BySite[p.SiteName]++
		}
		if p.City != "" {
			report.ByCity[p.City]++
		}
		if p.FloorPlan != "" {
			report.ByFloorPlan[p.FloorPlan]++
		}
		if p.PropertyType != "" {
			report.ByPropertyType[string(p.PropertyType)]++
		}

		if p.Rent != nil {
			rents = append(rents, float64(*p.Rent))
			if report.MostExpensive == nil || *p.Rent > *report.MostExpensive.Rent {
				report.MostExpensive = p
			}
		}
		if p.Area != nil {
			areas = append(areas, *p.Area)
		}
	}

	report.RentStats = distribution(rents)
	report.AreaStats = distribution(areas)
	return report
}

// Print renders the report to stdout. Column alignment goes through
// go-runewidth because ward names and titles are double-width.
func (s *InsightService) Print(r *models.SummaryReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🏠 RENTAL MARKET SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total properties : \033[1m%d\033[0m\n", r.TotalProperties)
	for _, sc := range sortedCounts(r.BySite) {
		fmt.Printf("  %s : \033[1m%d\033[0m\n", runewidth.FillRight(sc.key, 16), sc.count)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Rent (yen/month)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.RentStats.Count > 0 {
		fmt.Printf("  Average : \033[1;32m¥%.0f\033[0m\n", r.RentStats.Mean)
		fmt.Printf("  Median  : \033[1;32m¥%.0f\033[0m\n", r.RentStats.Median)
		fmt.Printf("  Range   : \033[1;32m¥%.0f 〜 ¥%.0f\033[0m\n", r.RentStats.Min, r.RentStats.Max)
	} else {
		fmt.Printf("  No rent data available\n")
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Area (㎡)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AreaStats.Count > 0 {
		fmt.Printf("  Average : \033[1;32m%.1f㎡\033[0m\n", r.AreaStats.Mean)
		fmt.Printf("  Median  : \033[1;32m%.1f㎡\033[0m\n", r.AreaStats.Median)
		fmt.Printf("  Range   : \033[1;32m%.1f㎡ 〜 %.1f㎡\033[0m\n", r.AreaStats.Min, r.AreaStats.Max)
	} else {
		fmt.Printf("  No area data available\n")
	}
	fmt.Println()

	if r.MostExpensive != nil && r.MostExpensive.Rent != nil {
		fmt.Printf("\033[1;33m  Most Expensive Property\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", runewidth.Truncate(r.MostExpensive.Title, 50, "..."))
		fmt.Printf("  Address : %s\n", r.MostExpensive.Address)
		fmt.Printf("  Rent    : \033[1;31m¥%d/month\033[0m\n", *r.MostExpensive.Rent)
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  Properties by Ward\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByCity) == 0 {
		fmt.Printf("  No address data\n")
	} else {
		for _, cc := range sortedCounts(r.ByCity) {
			bar := strings.Repeat("█", min(cc.count, 30))
			name := runewidth.FillRight(runewidth.Truncate(cc.key, 20, "…"), 20)
			fmt.Printf("  %s %s (%d)\n", name, bar, cc.count)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top Floor Plans\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByFloorPlan) == 0 {
		fmt.Printf("  No floor plan data\n")
	} else {
		plans := sortedCounts(r.ByFloorPlan)
		if len(plans) > 5 {
			plans = plans[:5]
		}
		for i, pc := range plans {
			fmt.Printf("  \033[1m%d.\033[0m %s \033[1;32m%d\033[0m\n",
				i+1, runewidth.FillRight(pc.key, 10), pc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// SaveJSON writes the report next to the exported batch files.
func (s *InsightService) SaveJSON(r *models.SummaryReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("insights: create directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("insights: marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("insights: write %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("summary report saved")
	return nil
}

// distribution sorts a copy of the samples and reads the stats off it.
func distribution(values []float64) models.DistributionStats {
	if len(values) == 0 {
		return models.DistributionStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return models.DistributionStats{
		Count:  len(sorted),
		Mean:   round1(total / float64(len(sorted))),
		Median: round1(median),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders a counter map by descending count, ties by key.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}
