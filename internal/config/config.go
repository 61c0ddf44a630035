// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Scorer   ScorerConfig   `yaml:"scorer" mapstructure:"scorer"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourcesConfig names the two input datasets.
type SourcesConfig struct {
	Referrals SourceConfig `yaml:"referrals" mapstructure:"referrals"`
	Preferred SourceConfig `yaml:"preferred" mapstructure:"preferred"`
	// MappingPath optionally points at a YAML column-mapping overlay.
	MappingPath string `yaml:"mapping_path" mapstructure:"mapping_path"`
}

// SourceConfig describes where one dataset comes from.
type SourceConfig struct {
	// Origin selects the fetch strategy: local, http, or ftp.
	Origin string `yaml:"origin" mapstructure:"origin"`
	// Path is a filesystem path (local) or remote path (ftp).
	Path string `yaml:"path" mapstructure:"path"`
	// URL is the download URL for the http origin.
	URL string `yaml:"url" mapstructure:"url"`
	// Host and credentials apply to the ftp origin.
	Host     string `yaml:"host" mapstructure:"host"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// PipelineConfig configures normalization and aggregation behavior.
type PipelineConfig struct {
	WindowFallback       bool    `yaml:"window_fallback" mapstructure:"window_fallback"`
	PreferredMaxEntries  int     `yaml:"preferred_max_entries" mapstructure:"preferred_max_entries"`
	PreferredMaxFraction float64 `yaml:"preferred_max_fraction" mapstructure:"preferred_max_fraction"`
}

// ScorerConfig holds the default ranking parameters. Per-request
// parameters override these.
type ScorerConfig struct {
	MinReferrals   int           `yaml:"min_referrals" mapstructure:"min_referrals"`
	MaxRadiusMiles float64       `yaml:"max_radius_miles" mapstructure:"max_radius_miles"`
	TimeWindowDays int           `yaml:"time_window_days" mapstructure:"time_window_days"`
	Specialties    []string      `yaml:"specialties" mapstructure:"specialties"`
	Weights        WeightsConfig `yaml:"weights" mapstructure:"weights"`
}

// WeightsConfig holds the composite score weights.
type WeightsConfig struct {
	Distance  float64 `yaml:"distance" mapstructure:"distance"`
	Outbound  float64 `yaml:"outbound" mapstructure:"outbound"`
	Inbound   float64 `yaml:"inbound" mapstructure:"inbound"`
	Preferred float64 `yaml:"preferred" mapstructure:"preferred"`
}

// CacheConfig configures the provider-set cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// RefreshHour is the local hour (0-23) of the scheduled daily
	// refresh; negative disables scheduling.
	RefreshHour int `yaml:"refresh_hour" mapstructure:"refresh_hour"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REFERRAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.referrals.origin", "local")
	v.SetDefault("sources.preferred.origin", "local")
	v.SetDefault("pipeline.window_fallback", true)
	v.SetDefault("pipeline.preferred_max_entries", 500)
	v.SetDefault("pipeline.preferred_max_fraction", 0.5)
	v.SetDefault("scorer.min_referrals", 3)
	v.SetDefault("scorer.max_radius_miles", 50)
	v.SetDefault("scorer.time_window_days", 730)
	v.SetDefault("scorer.weights.distance", 0.4)
	v.SetDefault("scorer.weights.outbound", 0.3)
	v.SetDefault("scorer.weights.inbound", 0.2)
	v.SetDefault("scorer.weights.preferred", 0.1)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.refresh_hour", 5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "referral.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required for the given mode ("recommend",
// "refresh", "serve"). All modes validate the shared pipeline and
// store settings; serve additionally validates the listener port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch c.Sources.Referrals.Origin {
	case "local", "http", "ftp":
	default:
		problems = append(problems, "sources.referrals.origin must be local, http, or ftp")
	}

	if c.Scorer.MinReferrals < 0 {
		problems = append(problems, "scorer.min_referrals must be >= 0")
	}
	if c.Scorer.MaxRadiusMiles < 0 {
		problems = append(problems, "scorer.max_radius_miles must be >= 0")
	}
	if w := c.Scorer.Weights; w.Distance < 0 || w.Outbound < 0 || w.Inbound < 0 || w.Preferred < 0 {
		problems = append(problems, "scorer.weights values must be >= 0")
	}
	if c.Pipeline.PreferredMaxFraction < 0 || c.Pipeline.PreferredMaxFraction > 1 {
		problems = append(problems, "pipeline.preferred_max_fraction must be between 0 and 1")
	}

	switch mode {
	case "recommend", "refresh", "status":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Cache.RefreshHour > 23 {
			problems = append(problems, "cache.refresh_hour must be <= 23")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
