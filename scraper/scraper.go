package scraper

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/utils"
)

// Source produces raw listings for one site.
type Source interface {
	Name() string
	Scrape(ctx context.Context, areas []config.Area, propertyTypes []models.PropertyType) ([]*models.RawListing, error)
}

// Base carries the shared plumbing for chromedp-driven site scrapers: the
// browser allocator, politeness gates, retry policy, and URL dedup.
type Base struct {
	Cfg    config.ScraperConfig
	Logger zerolog.Logger
	Pool   *utils.WorkerPool
	Seen   *utils.URLSet
	Retry  utils.RetryConfig
	Robots *RobotsGate
}

func NewBase(cfg config.ScraperConfig, logger zerolog.Logger, robots *RobotsGate) *Base {
	return &Base{
		Cfg:    cfg,
		Logger: logger,
		Pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RequestInterval()),
		Seen:   utils.NewURLSet(),
		Retry: utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		Robots: robots,
	}
}

// NewAllocator builds the headless browser context shared by one scrape
// run. The returned cancel tears the whole allocator down.
func (b *Base) NewAllocator(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "ja-JP"),
		chromedp.UserAgent(b.Cfg.UserAgent),
	)
	if bin := FindChromeBinary(b.Cfg.ChromeBin); bin != "" {
		b.Logger.Debug().Str("binary", bin).Msg("using browser binary")
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return silentCtx, func() {
		cancelSilent()
		cancelAlloc()
	}
}

// PageDelay is the politeness pause between page fetches: the configured
// interval, stretched to the site's robots.txt crawl-delay when larger.
func (b *Base) PageDelay(rawURL string) time.Duration {
	delay := b.Cfg.RequestInterval()
	if b.Robots != nil {
		if cd := b.Robots.CrawlDelay(rawURL); cd > delay {
			delay = cd
		}
	}
	return delay
}

// SleepCtx pauses between requests but returns early on cancellation.
func SleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FindChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func FindChromeBinary(preferred string) string {
	if preferred != "" {
		return preferred
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
