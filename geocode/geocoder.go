package geocode

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/utils"
)

// Coordinate is a WGS84 point rounded to six decimal places.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WithinJapan reports whether the point falls inside the bounding box that
// covers the Japanese archipelago.
func WithinJapan(lat, lon float64) bool {
	return lat >= 24 && lat <= 46 && lon >= 122 && lon <= 146
}

// Provider resolves one address to coordinates. A (nil, nil) return means
// the provider answered but found no match.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Coordinate, error)
}

// cacheEntry remembers one lookup outcome. Unresolved addresses are cached
// too, so a batch never hits the network twice for the same address.
type cacheEntry struct {
	coord    Coordinate
	resolved bool
	provider string
	at       time.Time
}

// Geocoder walks a provider chain with per-provider rate gates and an
// in-memory cache keyed by the normalized address. Lookup failures are
// data (a nil result), never errors; only context cancellation surfaces
// as an error.
type Geocoder struct {
	providers []Provider
	limiters  map[string]*rate.Limiter
	logger    zerolog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New assembles a Geocoder over the given providers, in chain order.
func New(cfg config.GeocodeConfig, logger zerolog.Logger, providers ...Provider) *Geocoder {
	g := &Geocoder{
		providers: providers,
		limiters:  make(map[string]*rate.Limiter, len(providers)),
		logger:    logger.With().Str("component", "geocoder").Logger(),
		cache:     make(map[string]cacheEntry),
	}
	for _, p := range providers {
		g.limiters[p.Name()] = newLimiter(providerInterval(cfg, p.Name()))
	}
	return g
}

// Build constructs the Geocoder from config, skipping providers whose
// prerequisites are missing. A missing Google API key only disables that
// provider, it never fails the run.
func Build(cfg config.GeocodeConfig, logger zerolog.Logger) *Geocoder {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case "google":
			if cfg.GoogleAPIKey == "" {
				logger.Warn().Msg("GOOGLE_MAPS_API_KEY not set, google geocoding disabled")
				continue
			}
			p, err := NewGoogle(cfg.GoogleAPIKey)
			if err != nil {
				logger.Warn().Err(err).Msg("google geocoding disabled")
				continue
			}
			providers = append(providers, p)
		case "nominatim":
			providers = append(providers, NewNominatim(cfg.NominatimURL, cfg.UserAgent, cfg.RequestTimeout))
		}
	}
	return New(cfg, logger, providers...)
}

func providerInterval(cfg config.GeocodeConfig, name string) time.Duration {
	switch name {
	case "google":
		return cfg.Google.Interval()
	case "nominatim":
		return cfg.Nominatim.Interval()
	}
	return 0
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Geocode resolves a single address. It returns nil when every provider
// failed or found nothing; that outcome is cached like a hit. The only
// error it returns is context cancellation.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*Coordinate, error) {
	addr := utils.NormalizeText(address)
	if addr == "" {
		return nil, nil
	}

	g.mu.Lock()
	if e, ok := g.cache[addr]; ok {
		g.mu.Unlock()
		if !e.resolved {
			return nil, nil
		}
		c := e.coord
		return &c, nil
	}
	g.mu.Unlock()

	for _, p := range g.providers {
		if err := g.limiters[p.Name()].Wait(ctx); err != nil {
			return nil, err
		}

		coord, err := p.Geocode(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.Warn().Str("provider", p.Name()).Str("address", addr).
				Err(err).Msg("provider lookup failed, trying next")
			continue
		}
		if coord == nil {
			g.logger.Debug().Str("provider", p.Name()).Str("address", addr).
				Msg("no match, trying next provider")
			continue
		}

		resolved := Coordinate{
			Latitude:  round6(coord.Latitude),
			Longitude: round6(coord.Longitude),
		}
		g.store(addr, cacheEntry{coord: resolved, resolved: true, provider: p.Name(), at: time.Now()})
		return &resolved, nil
	}

	// Remember the miss so the chain is not walked again for this address.
	g.store(addr, cacheEntry{at: time.Now()})
	g.logger.Debug().Str("address", addr).Msg("address unresolved by all providers")
	return nil, nil
}

// BatchGeocode resolves addresses in input order, one result slot per input.
// Duplicate addresses are served from cache. On cancellation the partial
// result is returned together with the context error; slots not reached
// stay nil.
func (g *Geocoder) BatchGeocode(ctx context.Context, addresses []string) ([]*Coordinate, error) {
	out := make([]*Coordinate, len(addresses))

	for i, addr := range addresses {
		coord, err := g.Geocode(ctx, addr)
		if err != nil {
			g.logger.Warn().Int("resolved", i).Int("total", len(addresses)).
				Msg("batch geocoding aborted")
			return out, err
		}
		out[i] = coord

		if (i+1)%10 == 0 {
			g.logger.Info().Int("done", i+1).Int("total", len(addresses)).
				Msg("batch geocoding progress")
		}
	}
	return out, nil
}

// ProviderNames lists the active chain in lookup order.
func (g *Geocoder) ProviderNames() []string {
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	return names
}

// CacheSize returns the number of cached lookups, resolved or not.
func (g *Geocoder) CacheSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cache)
}

func (g *Geocoder) store(addr string, e cacheEntry) {
	g.mu.Lock()
	g.cache[addr] = e
	g.mu.Unlock()
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
