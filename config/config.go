package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrNoSites         = errors.New("config: no target sites configured")
	ErrUnknownSite     = errors.New("config: unknown site")
	ErrUnknownFormat   = errors.New("config: unknown export format")
	ErrUnknownProvider = errors.New("config: unknown geocode provider")
	ErrInvalidBounds   = errors.New("config: bound minimum exceeds maximum")
	ErrInvalidWeights  = errors.New("config: score weights must be non-negative")
	ErrInvalidRate     = errors.New("config: rate limit must allow at least one call")
)

// ScraperConfig controls site scraping behavior.
type ScraperConfig struct {
	Sites           []string      `mapstructure:"sites"`
	MaxPages        int           `mapstructure:"max_pages"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	RateLimitCalls  int           `mapstructure:"rate_limit_calls"`
	RateLimitPeriod time.Duration `mapstructure:"rate_limit_period"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	DemoMode        bool          `mapstructure:"demo_mode"`
	ChromeBin       string        `mapstructure:"chrome_bin"`
}

// RequestInterval is the minimum polite gap between two requests derived
// from the calls-per-period ceiling.
func (s ScraperConfig) RequestInterval() time.Duration {
	if s.RateLimitCalls <= 0 {
		return 0
	}
	return s.RateLimitPeriod / time.Duration(s.RateLimitCalls)
}

// ProviderRate is a calls-per-period ceiling for one geocoding provider.
type ProviderRate struct {
	Calls  int           `mapstructure:"calls"`
	Period time.Duration `mapstructure:"period"`
}

// Interval converts the ceiling to the gap enforced between two calls.
func (r ProviderRate) Interval() time.Duration {
	if r.Calls <= 0 {
		return 0
	}
	return r.Period / time.Duration(r.Calls)
}

// GeocodeConfig controls the provider chain.
type GeocodeConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Providers      []string      `mapstructure:"providers"`
	GoogleAPIKey   string        `mapstructure:"google_api_key"`
	Google         ProviderRate  `mapstructure:"google"`
	Nominatim      ProviderRate  `mapstructure:"nominatim"`
	NominatimURL   string        `mapstructure:"nominatim_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Bound is an inclusive numeric range for outlier detection.
type Bound struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// QualityConfig controls quality checking.
type QualityConfig struct {
	RequiredFields      []string         `mapstructure:"required_fields"`
	Bounds              map[string]Bound `mapstructure:"bounds"`
	MissingWeight       float64          `mapstructure:"missing_weight"`
	OutlierWeight       float64          `mapstructure:"outlier_weight"`
	DuplicateWeight     float64          `mapstructure:"duplicate_weight"`
	MaxOutliersPerField int              `mapstructure:"max_outliers_per_field"`
}

// ExportConfig controls serialization and remote upload.
type ExportConfig struct {
	Format         string        `mapstructure:"format"`
	OutputDir      string        `mapstructure:"output_dir"`
	Region         string        `mapstructure:"region"`
	Upload         bool          `mapstructure:"upload"`
	S3Bucket       string        `mapstructure:"s3_bucket"`
	S3Prefix       string        `mapstructure:"s3_prefix"`
	AWSRegion      string        `mapstructure:"aws_region"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// PostgresConfig controls the optional database sink.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (p PostgresConfig) DSN() string {
	return "host=" + p.Host +
		" port=" + p.Port +
		" user=" + p.User +
		" password=" + p.Password +
		" dbname=" + p.DB +
		" sslmode=" + p.SSLMode
}

// Config holds all application configuration. It is loaded once at startup
// and treated as immutable afterwards.
type Config struct {
	LogLevel         string `mapstructure:"log_level"`
	LogDir           string `mapstructure:"log_dir"`
	RawDataDir       string `mapstructure:"raw_data_dir"`
	ProcessedDataDir string `mapstructure:"processed_data_dir"`

	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	Quality  QualityConfig  `mapstructure:"quality"`
	Export   ExportConfig   `mapstructure:"export"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// Load reads config.yaml from path (optional), layers environment overrides
// on top of the defaults, and validates the result. Secrets only ever come
// from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("raw_data_dir", "data/raw")
	v.SetDefault("processed_data_dir", "data/processed")

	v.SetDefault("scraper.sites", []string{"suumo", "homes"})
	v.SetDefault("scraper.max_pages", 5)
	v.SetDefault("scraper.max_concurrency", 3)
	v.SetDefault("scraper.rate_limit_calls", 10)
	v.SetDefault("scraper.rate_limit_period", time.Minute)
	v.SetDefault("scraper.request_timeout", 30*time.Second)
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	v.SetDefault("scraper.demo_mode", false)

	v.SetDefault("geocode.enabled", false)
	v.SetDefault("geocode.providers", []string{"google", "nominatim"})
	v.SetDefault("geocode.google.calls", 10)
	v.SetDefault("geocode.google.period", time.Second)
	v.SetDefault("geocode.nominatim.calls", 1)
	v.SetDefault("geocode.nominatim.period", time.Second)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "real-estate-scraping/1.0")
	v.SetDefault("geocode.request_timeout", 10*time.Second)

	v.SetDefault("quality.required_fields", []string{
		"property_id", "site_name", "url", "title", "property_type",
		"city", "rent", "floor_plan", "area",
	})
	v.SetDefault("quality.bounds", map[string]map[string]float64{
		"rent":             {"min": 10000, "max": 5000000},
		"area":             {"min": 5, "max": 500},
		"floor_number":     {"min": -3, "max": 100},
		"station_distance": {"min": 0, "max": 60},
		"latitude":         {"min": 24, "max": 46},
		"longitude":        {"min": 122, "max": 146},
	})
	v.SetDefault("quality.missing_weight", 0.40)
	v.SetDefault("quality.outlier_weight", 0.35)
	v.SetDefault("quality.duplicate_weight", 0.25)
	v.SetDefault("quality.max_outliers_per_field", 10)

	v.SetDefault("export.format", "csv")
	v.SetDefault("export.output_dir", "data/processed")
	v.SetDefault("export.region", "tokyo")
	v.SetDefault("export.upload", false)
	v.SetDefault("export.s3_prefix", "raw")
	v.SetDefault("export.aws_region", "ap-northeast-1")
	v.SetDefault("export.max_retries", 3)
	v.SetDefault("export.retry_base_delay", 2*time.Second)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "scraper")
	v.SetDefault("postgres.password", "scraper123")
	v.SetDefault("postgres.db", "realestate_db")
	v.SetDefault("postgres.sslmode", "disable")
}

// bindEnv wires the well-known environment variables. Everything else can
// still be overridden with the REALESTATE_ prefix, e.g. REALESTATE_LOG_LEVEL.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("geocode.google_api_key", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("export.s3_bucket", "S3_BUCKET_NAME")
	_ = v.BindEnv("export.aws_region", "AWS_REGION")
	_ = v.BindEnv("scraper.demo_mode", "SCRAPER_DEMO_MODE")
	_ = v.BindEnv("scraper.chrome_bin", "CHROME_BIN")
	_ = v.BindEnv("postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("postgres.db", "POSTGRES_DB")
	_ = v.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE")

	v.SetEnvPrefix("REALESTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Validate checks cross-field consistency. It returns the first problem
// found, wrapped around one of the sentinel errors above.
func (c *Config) Validate() error {
	if len(c.Scraper.Sites) == 0 {
		return ErrNoSites
	}
	for _, site := range c.Scraper.Sites {
		if _, ok := SiteByKey(site); !ok && site != "demo" {
			return fmt.Errorf("%w: %q", ErrUnknownSite, site)
		}
	}

	switch c.Export.Format {
	case "csv", "json", "parquet":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Export.Format)
	}

	for _, p := range c.Geocode.Providers {
		if p != "google" && p != "nominatim" {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, p)
		}
	}
	for name, r := range map[string]ProviderRate{
		"google": c.Geocode.Google, "nominatim": c.Geocode.Nominatim,
	} {
		if r.Calls < 1 || r.Period <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidRate, name)
		}
	}

	for field, b := range c.Quality.Bounds {
		if b.Min > b.Max {
			return fmt.Errorf("%w: %s [%g, %g]", ErrInvalidBounds, field, b.Min, b.Max)
		}
	}
	if c.Quality.MissingWeight < 0 || c.Quality.OutlierWeight < 0 || c.Quality.DuplicateWeight < 0 {
		return ErrInvalidWeights
	}

	return nil
}
