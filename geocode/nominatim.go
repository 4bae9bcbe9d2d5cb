package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimProvider resolves addresses through a Nominatim instance.
// Nominatim's usage policy requires an identifying User-Agent and at most
// one request per second; the caller's rate gate enforces the latter.
type NominatimProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration) *NominatimProvider {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	return &NominatimProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *NominatimProvider) Name() string { return "nominatim" }

func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Coordinate, error) {
	query := address
	if !strings.Contains(query, "日本") {
		query += ", 日本"
	}

	endpoint := p.baseURL + "/search?" + url.Values{
		"q":            {query},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {"jp"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: nominatim status %d", resp.StatusCode)
	}

	// Nominatim encodes coordinates as JSON strings.
	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("geocode: nominatim decode: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(hits[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, errors.New("geocode: nominatim returned malformed coordinates")
	}
	return &Coordinate{Latitude: lat, Longitude: lon}, nil
}
