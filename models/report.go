package models

import "time"

// MissingFieldStat counts records where a field is absent.
type MissingFieldStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"` // of total records, one decimal place
}

// Outlier flags a numeric value outside its configured bounds. The record is
// kept in the batch; this entry is the only trace of the violation.
type Outlier struct {
	Index      int     `json:"index"`
	PropertyID string  `json:"property_id"`
	Value      float64 `json:"value"`
	Reason     string  `json:"reason"`
}

// QualityReport is the read-only result of a quality check over one batch.
type QualityReport struct {
	GeneratedAt   time.Time                   `json:"generated_at"`
	TotalRecords  int                         `json:"total_records"`
	QualityScore  float64                     `json:"quality_score"`
	MissingValues map[string]MissingFieldStat `json:"missing_values"`
	Outliers      map[string][]Outlier        `json:"outliers"`
	Duplicates    map[string]map[string]int   `json:"duplicates"`
}

// OutlierCount returns the total number of outlier entries across all fields.
func (r *QualityReport) OutlierCount() int {
	n := 0
	for _, list := range r.Outliers {
		n += len(list)
	}
	return n
}

// DuplicateCount returns the number of surplus records across all duplicate
// groups for the given key field.
func (r *QualityReport) DuplicateCount(field string) int {
	n := 0
	for _, cnt := range r.Duplicates[field] {
		if cnt > 1 {
			n += cnt - 1
		}
	}
	return n
}

// ExportResult summarizes one pipeline run.
type ExportResult struct {
	BatchID          string         `json:"batch_id"`
	Format           string         `json:"format"`
	RecordsIn        int            `json:"records_in"`
	RecordsProcessed int            `json:"records_processed"`
	Geocoded         int            `json:"geocoded"`
	QualityScore     float64        `json:"quality_score"`
	Report           *QualityReport `json:"-"`
	LocalPath        string         `json:"local_path"`
	RemotePath       string         `json:"remote_path,omitempty"`
	// UploadError is set when remote upload failed after retries. The batch
	// itself still succeeded; the local file is the source of truth.
	UploadError string `json:"upload_error,omitempty"`

	// Properties carries the processed batch for downstream sinks.
	Properties []*Property `json:"-"`
}

// DistributionStats describes a numeric column of the batch.
type DistributionStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SummaryReport holds the computed analytics over a normalized batch.
type SummaryReport struct {
	GeneratedAt     time.Time      `json:"generated_at"`
	TotalProperties int            `json:"total_properties"`
	BySite          map[string]int `json:"by_site"`
	ByCity          map[string]int `json:"by_city"`
	ByFloorPlan     map[string]int `json:"by_floor_plan"`
	ByPropertyType  map[string]int `json:"by_property_type"`

	RentStats DistributionStats `json:"rent_stats"`
	AreaStats DistributionStats `json:"area_stats"`

	MostExpensive *Property `json:"most_expensive,omitempty"`
}
