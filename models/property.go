package models

import (
	"strings"
	"time"
)

// PropertyType is the normalized building category code.
type PropertyType string

const (
	TypeApartment PropertyType = "apartment" // マンション
	TypeApart     PropertyType = "apart"     // アパート
	TypeHouse     PropertyType = "house"     // 一戸建て
)

var propertyTypeLabels = map[string]PropertyType{
	"apartment": TypeApartment,
	"apart":     TypeApart,
	"house":     TypeHouse,
	"マンション":     TypeApartment,
	"アパート":      TypeApart,
	"一戸建て":      TypeHouse,
	"一戸建":       TypeHouse,
	"戸建て":       TypeHouse,
}

// PropertyTypeFromLabel maps a type code or its Japanese site label to the
// normalized code. Listing-card labels with a 賃貸 prefix match too. ok is
// false for unrecognized labels.
func PropertyTypeFromLabel(label string) (PropertyType, bool) {
	if pt, ok := propertyTypeLabels[label]; ok {
		return pt, true
	}
	pt, ok := propertyTypeLabels[strings.TrimPrefix(label, "賃貸")]
	return pt, ok
}

// Japanese returns the site-facing Japanese label for a property type.
func (pt PropertyType) Japanese() string {
	switch pt {
	case TypeApartment:
		return "マンション"
	case TypeApart:
		return "アパート"
	case TypeHouse:
		return "一戸建て"
	}
	return string(pt)
}

// RawListing holds unprocessed scraped field text exactly as it appeared on
// the source page. Empty string means the field was not present. Scrapers
// only fill this in; all parsing happens in the normalizer.
type RawListing struct {
	PropertyID    string
	SiteName      string
	URL           string
	Title         string
	PropertyType  string
	Address       string
	Rent          string // e.g. "8.5万円", "１２．３万円"
	ManagementFee string // e.g. "5000円", "なし"
	Deposit       string // e.g. "1ヶ月", "85000円"
	KeyMoney      string
	FloorPlan     string // e.g. "２ＬＤＫ", "1SLDK"
	Area          string // e.g. "25.5㎡"
	FloorInfo     string // e.g. "3階/5階建"
	BuildingAge   string // e.g. "築5年", "新築", "2019年"
	Station       string // e.g. "ＪＲ山手線/恵比寿駅 徒歩5分"
	Features      string // e.g. "オートロック / バス・トイレ別"
	ScrapedAt     time.Time
}

// Property is the normalized, typed record ready for quality checking and
// export. Numeric fields that can legitimately be unknown are pointers; nil
// means the source text was missing or unparseable.
type Property struct {
	PropertyID   string       `json:"property_id"`
	SiteName     string       `json:"site_name"`
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	PropertyType PropertyType `json:"property_type,omitempty"`

	Prefecture string `json:"prefecture,omitempty"`
	City       string `json:"city,omitempty"`
	District   string `json:"district,omitempty"`
	Address    string `json:"address,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Rent          *int `json:"rent"`
	ManagementFee *int `json:"management_fee,omitempty"`
	Deposit       *int `json:"deposit,omitempty"`
	KeyMoney      *int `json:"key_money,omitempty"`

	FloorPlan      string   `json:"floor_plan,omitempty"`
	HasServiceRoom bool     `json:"has_service_room,omitempty"`
	Area           *float64 `json:"area"`

	FloorNumber *int `json:"floor_number,omitempty"`
	TotalFloors *int `json:"total_floors,omitempty"`

	BuildingAge      *int `json:"building_age,omitempty"`
	ConstructionYear *int `json:"construction_year,omitempty"`

	NearestStation  string   `json:"nearest_station,omitempty"`
	StationDistance *int     `json:"station_distance,omitempty"`
	TrainLines      []string `json:"train_lines,omitempty"`

	Features  []string  `json:"features,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// SearchResult groups the raw listings collected from one result page.
type SearchResult struct {
	SiteName     string
	AreaName     string
	PropertyType PropertyType
	Page         int
	Listings     []*RawListing
	FetchedAt    time.Time
}
