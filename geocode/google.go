package geocode

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// GoogleProvider resolves addresses through the Google Maps Geocoding API.
type GoogleProvider struct {
	client *maps.Client
}

// NewGoogle builds a Google provider. The API key must be non-empty.
func NewGoogle(apiKey string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("geocode: google api key is empty")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("geocode: google client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Coordinate, error) {
	results, err := p.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Language: "ja",
		Region:   "jp",
	})
	if err != nil {
		return nil, fmt.Errorf("geocode: google: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	loc := results[0].Geometry.Location
	return &Coordinate{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
