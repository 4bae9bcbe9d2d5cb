package config

// Site is one supported listing site.
type Site struct {
	Key       string
	Name      string
	BaseURL   string
	SearchURL string
	RobotsURL string
}

// Area is one search target, a Tokyo special ward.
type Area struct {
	Code      string // JIS city code
	Name      string
	SuumoSlug string // path segment on SUUMO ward pages
}

var sites = []Site{
	{
		Key:       "suumo",
		Name:      "SUUMO",
		BaseURL:   "https://suumo.jp",
		SearchURL: "https://suumo.jp/chintai/tokyo/",
		RobotsURL: "https://suumo.jp/robots.txt",
	},
	{
		Key:       "homes",
		Name:      "HOMES",
		BaseURL:   "https://www.homes.co.jp",
		SearchURL: "https://www.homes.co.jp/chintai/tokyo/",
		RobotsURL: "https://www.homes.co.jp/robots.txt",
	},
}

// TokyoWards lists the 23 special wards in JIS code order.
var TokyoWards = []Area{
	{Code: "13101", Name: "千代田区", SuumoSlug: "sc_chiyoda"},
	{Code: "13102", Name: "中央区", SuumoSlug: "sc_chuo"},
	{Code: "13103", Name: "港区", SuumoSlug: "sc_minato"},
	{Code: "13104", Name: "新宿区", SuumoSlug: "sc_shinjuku"},
	{Code: "13105", Name: "文京区", SuumoSlug: "sc_bunkyo"},
	{Code: "13106", Name: "台東区", SuumoSlug: "sc_taito"},
	{Code: "13107", Name: "墨田区", SuumoSlug: "sc_sumida"},
	{Code: "13108", Name: "江東区", SuumoSlug: "sc_koto"},
	{Code: "13109", Name: "品川区", SuumoSlug: "sc_shinagawa"},
	{Code: "13110", Name: "目黒区", SuumoSlug: "sc_meguro"},
	{Code: "13111", Name: "大田区", SuumoSlug: "sc_ota"},
	{Code: "13112", Name: "世田谷区", SuumoSlug: "sc_setagaya"},
	{Code: "13113", Name: "渋谷区", SuumoSlug: "sc_shibuya"},
	{Code: "13114", Name: "中野区", SuumoSlug: "sc_nakano"},
	{Code: "13115", Name: "杉並区", SuumoSlug: "sc_suginami"},
	{Code: "13116", Name: "豊島区", SuumoSlug: "sc_toshima"},
	{Code: "13117", Name: "北区", SuumoSlug: "sc_kita"},
	{Code: "13118", Name: "荒川区", SuumoSlug: "sc_arakawa"},
	{Code: "13119", Name: "板橋区", SuumoSlug: "sc_itabashi"},
	{Code: "13120", Name: "練馬区", SuumoSlug: "sc_nerima"},
	{Code: "13121", Name: "足立区", SuumoSlug: "sc_adachi"},
	{Code: "13122", Name: "葛飾区", SuumoSlug: "sc_katsushika"},
	{Code: "13123", Name: "江戸川区", SuumoSlug: "sc_edogawa"},
}

// SiteByKey looks up a site definition by its lowercase key.
func SiteByKey(key string) (Site, bool) {
	for _, s := range sites {
		if s.Key == key {
			return s, true
		}
	}
	return Site{}, false
}

// AreaByCode looks up a ward by its JIS city code.
func AreaByCode(code string) (Area, bool) {
	for _, a := range TokyoWards {
		if a.Code == code {
			return a, true
		}
	}
	return Area{}, false
}

// AreaByName looks up a ward by its Japanese name.
func AreaByName(name string) (Area, bool) {
	for _, a := range TokyoWards {
		if a.Name == name {
			return a, true
		}
	}
	return Area{}, false
}

// ResolveAreas maps mixed codes and names to ward definitions, silently
// skipping anything unknown. Empty input selects the first three wards, the
// usual smoke-run scope.
func ResolveAreas(keys []string) []Area {
	if len(keys) == 0 {
		return TokyoWards[:3]
	}
	var out []Area
	for _, k := range keys {
		if a, ok := AreaByCode(k); ok {
			out = append(out, a)
			continue
		}
		if a, ok := AreaByName(k); ok {
			out = append(out, a)
		}
	}
	return out
}
