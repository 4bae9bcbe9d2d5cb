package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// manRegexp captures the 万円-denominated amount, e.g. "8.5万円"
	manRegexp = regexp.MustCompile(`([\d.]+)\s*万`)
	// yenRegexp captures a plain digit run after commas are stripped
	yenRegexp = regexp.MustCompile(`(\d+)`)
	// decimalRegexp captures the first decimal number, e.g. "25.5"
	decimalRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	// areaUnitRegexp strips area unit labels (㎡ folds to "m2" under NFKC)
	areaUnitRegexp = regexp.MustCompile(`(m2|㎡|平米|平方メートル)`)
	// serviceSuffixRegexp marks "+S" style service-room suffixes
	serviceSuffixRegexp = regexp.MustCompile(`\+S$`)
	// serviceInfixRegexp marks "2SLDK" style service-room layouts
	serviceInfixRegexp = regexp.MustCompile(`^(\d+)S([LDK]+)$`)
	// walkRegexp captures walking minutes; bus rides must not match
	walkRegexp = regexp.MustCompile(`(?:徒歩|歩)\s*(\d+)\s*分`)
	// ageRegexp captures the 築N年 building age
	ageRegexp = regexp.MustCompile(`築\s*(\d+)\s*年`)
	// yearRegexp captures a 4-digit construction year
	yearRegexp = regexp.MustCompile(`((?:19|20)\d{2})`)
	// floorPairRegexp captures "3階/5階建" style floor/total pairs
	floorPairRegexp = regexp.MustCompile(`(\d+)\s*階?\s*/\s*(\d+)\s*階`)
	// floorSingleRegexp captures a bare "3階" or "3F"
	floorSingleRegexp = regexp.MustCompile(`(\d+)\s*[階F]`)
	// monthsRegexp captures month-denominated fees, e.g. "1ヶ月", "0.5ヵ月"
	monthsRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[ヶヵケか箇]月`)
	// cityRegexp captures the municipality up to its 市/区/町/村 marker
	cityRegexp = regexp.MustCompile(`^(.+?[市区町村])`)
)

// freeFeeLabels are site spellings for a zero fee.
var freeFeeLabels = map[string]struct{}{
	"なし": {}, "ナシ": {}, "無し": {}, "無": {}, "無料": {}, "-": {}, "0": {},
}

// Prefectures is the closed list of the 47 prefecture names used for
// address decomposition. Order follows the JIS X 0401 code order.
var Prefectures = []string{
	"北海道", "青森県", "岩手県", "宮城県", "秋田県", "山形県", "福島県",
	"茨城県", "栃木県", "群馬県", "埼玉県", "千葉県", "東京都", "神奈川県",
	"新潟県", "富山県", "石川県", "福井県", "山梨県", "長野県", "岐阜県",
	"静岡県", "愛知県", "三重県", "滋賀県", "京都府", "大阪府", "兵庫県",
	"奈良県", "和歌山県", "鳥取県", "島根県", "岡山県", "広島県", "山口県",
	"徳島県", "香川県", "愛媛県", "高知県", "福岡県", "佐賀県", "長崎県",
	"熊本県", "大分県", "宮崎県", "鹿児島県", "沖縄県",
}

// NormalizeText canonicalizes Japanese listing text: NFKC compatibility
// folding (full-width alphanumerics and symbols become half-width,
// half-width katakana becomes full-width), runs of whitespace collapse to a
// single space, and leading/trailing whitespace is trimmed. The function is
// idempotent and never fails; empty input returns empty output.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseRent converts rent text to yen. 万円-denominated amounts are
// multiplied out ("8.5万円" → 85000, rounded to the nearest yen); plain
// amounts have 円/¥ labels and comma separators stripped. Returns nil when
// no numeric amount is present ("無料", kanji-numeral text, empty).
func ParseRent(s string) *int {
	s = NormalizeText(s)
	if s == "" {
		return nil
	}

	if m := manRegexp.FindStringSubmatch(s); m != nil {
		val, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		yen := int(math.Round(val * 10000))
		return &yen
	}

	cleaned := strings.ReplaceAll(s, ",", "")
	m := yenRegexp.FindStringSubmatch(cleaned)
	if m == nil {
		return nil
	}
	yen, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &yen
}

// ParseArea extracts the floor area in square meters, rounded to one
// decimal place. Unit labels (㎡, m2, 平米, 平方メートル) are ignored.
// Non-positive and non-numeric values return nil.
func ParseArea(s string) *float64 {
	s = NormalizeText(s)
	if s == "" {
		return nil
	}
	s = areaUnitRegexp.ReplaceAllString(s, "")

	m := decimalRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil || val <= 0 {
		return nil
	}
	val = math.Round(val*10) / 10
	return &val
}

// ParseFloorPlan canonicalizes a floor-plan token ("２ＬＤＫ" → "2LDK") and
// extracts the service-room marker into a separate flag: "2LDK+S" and
// "2SLDK" both yield ("2LDK", true). Unknown layouts pass through
// normalized but unflagged.
func ParseFloorPlan(s string) (string, bool) {
	s = strings.ToUpper(NormalizeText(s))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", false
	}
	if s == "ワンルーム" {
		return "1R", false
	}

	hasServiceRoom := false
	if serviceSuffixRegexp.MatchString(s) {
		s = serviceSuffixRegexp.ReplaceAllString(s, "")
		hasServiceRoom = true
	}
	if m := serviceInfixRegexp.FindStringSubmatch(s); m != nil {
		s = m[1] + m[2]
		hasServiceRoom = true
	}
	return s, hasServiceRoom
}

// ParseStationDistance extracts walking minutes from text like "徒歩5分".
// The number must follow a 徒歩/歩 marker so that bus rides ("バス10分")
// and bare durations do not count as walking distance.
func ParseStationDistance(s string) *int {
	s = NormalizeText(s)
	m := walkRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &minutes
}

// ParseBuildingAge extracts the age in years from "築N年" text. "新築"
// carries no count and returns nil.
func ParseBuildingAge(s string) *int {
	s = NormalizeText(s)
	m := ageRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &years
}

// ParseConstructionYear extracts a 4-digit construction year ("2019年3月" →
// 2019) from text that does not use the 築N年 form.
func ParseConstructionYear(s string) *int {
	s = NormalizeText(s)
	if ageRegexp.MatchString(s) {
		return nil
	}
	m := yearRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &year
}

// ParseFloorInfo extracts (floor, total floors) from text like "3階/5階建".
// A bare "3階" or "3F" yields only the floor.
func ParseFloorInfo(s string) (*int, *int) {
	s = NormalizeText(s)
	if m := floorPairRegexp.FindStringSubmatch(s); m != nil {
		floor, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return &floor, &total
		}
	}
	if m := floorSingleRegexp.FindStringSubmatch(s); m != nil {
		floor, err := strconv.Atoi(m[1])
		if err == nil {
			return &floor, nil
		}
	}
	return nil, nil
}

// ParseFee interprets fee text. A zero label (なし, 無料, -) yields amount
// 0; a month-denominated fee ("1ヶ月", "0.5ヵ月") yields the month count for
// the caller to multiply by rent; anything else is parsed as a yen amount.
func ParseFee(s string) (amount *int, months *float64) {
	s = NormalizeText(s)
	if s == "" {
		return nil, nil
	}
	if _, free := freeFeeLabels[s]; free {
		zero := 0
		return &zero, nil
	}
	if m := monthsRegexp.FindStringSubmatch(s); m != nil {
		val, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return nil, &val
		}
	}
	return ParseRent(s), nil
}

// ParseStationInfo decomposes a station cell like "ＪＲ山手線/恵比寿駅 徒歩5分"
// into the station name (駅 suffix dropped), walking minutes, and the train
// lines mentioned.
func ParseStationInfo(s string) (station string, minutes *int, lines []string) {
	s = NormalizeText(s)
	if s == "" {
		return "", nil, nil
	}
	minutes = ParseStationDistance(s)

	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == ' ' || r == '、'
	}) {
		if strings.Contains(tok, "線") {
			lines = append(lines, tok)
			continue
		}
		if station == "" && strings.Contains(tok, "駅") {
			station = tok[:strings.Index(tok, "駅")]
		}
	}
	return station, minutes, lines
}

// AddressParts is the decomposition of a Japanese address. Zero-value
// components mean the corresponding level could not be identified; the full
// address text is always preserved by the caller.
type AddressParts struct {
	Prefecture string
	City       string
	District   string
	Detail     string
}

// SplitAddress decomposes an address into prefecture, city/ward, district,
// and street-level detail. The prefecture must match the closed 47-name
// list; without one the whole string is left undecomposed.
func SplitAddress(s string) AddressParts {
	s = NormalizeText(s)
	var parts AddressParts
	if s == "" {
		return parts
	}

	rest := s
	for _, pref := range Prefectures {
		if strings.HasPrefix(rest, pref) {
			parts.Prefecture = pref
			rest = rest[len(pref):]
			break
		}
	}

	if m := cityRegexp.FindStringSubmatch(rest); m != nil {
		parts.City = m[1]
		rest = rest[len(m[1]):]
	} else {
		// Without a municipality marker the remainder stays unsplit.
		return parts
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return parts
	}
	if idx := strings.IndexRune(rest, ' '); idx >= 0 {
		parts.District = rest[:idx]
		parts.Detail = strings.TrimSpace(rest[idx+1:])
	} else {
		parts.District = rest
	}
	return parts
}
