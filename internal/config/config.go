// Package config loads and validates profiler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Browser engines.
const (
	EngineChromedp = "chromedp"
	EngineStatic   = "static"
)

// Enrichment providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Archive and notification drivers.
const (
	DriverNone   = "none"
	DriverLocal  = "local"
	DriverGCS    = "gcs"
	DriverPubSub = "pubsub"
)

// Config captures all profiler configuration knobs loaded via Viper.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StoreConfig selects and configures the company record store.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
}

// PipelineConfig governs batch size and the concurrency cap.
type PipelineConfig struct {
	BatchSize   int    `mapstructure:"batch_size"`
	Concurrency int    `mapstructure:"concurrency"`
	Mode        string `mapstructure:"mode"`
}

// BrowserConfig configures the page text extraction engine.
type BrowserConfig struct {
	Engine          string        `mapstructure:"engine"`
	Headless        bool          `mapstructure:"headless"`
	NoSandbox       bool          `mapstructure:"no_sandbox"`
	DisableGPU      bool          `mapstructure:"disable_gpu"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	Proxy           string        `mapstructure:"proxy"`
	ExecPath        string        `mapstructure:"exec_path"`
}

// EnrichConfig toggles and configures the optional analysis call.
type EnrichConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Provider      string        `mapstructure:"provider"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	MaxInputChars int           `mapstructure:"max_input_chars"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig controls where raw extracted text is archived.
type ArchiveConfig struct {
	Driver  string `mapstructure:"driver"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// NotifyConfig holds metadata for per-record notifications.
type NotifyConfig struct {
	Driver    string `mapstructure:"driver"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig sets the ops listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROFILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key gets a default so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", StorePostgres)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "company")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("pipeline.batch_size", 400)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.mode", "rounds")
	v.SetDefault("browser.engine", EngineChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.ready_timeout", 10*time.Second)
	v.SetDefault("browser.navigate_timeout", 30*time.Second)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("enrich.enabled", false)
	v.SetDefault("enrich.provider", ProviderAnthropic)
	v.SetDefault("enrich.api_key", "")
	v.SetDefault("enrich.model", "")
	v.SetDefault("enrich.max_input_chars", 3000)
	v.SetDefault("enrich.max_tokens", 500)
	v.SetDefault("enrich.timeout", 60*time.Second)
	v.SetDefault("archive.driver", DriverNone)
	v.SetDefault("archive.base_dir", "")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "descriptions")
	v.SetDefault("notify.driver", DriverNone)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("store.driver must be one of %q, %q; got %q", StorePostgres, StoreSQLite, c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn must be set")
	}
	if c.Store.Table == "" {
		return fmt.Errorf("store.table must be set")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	switch c.Pipeline.Mode {
	case "", "rounds", "pool":
	default:
		return fmt.Errorf("pipeline.mode must be rounds or pool; got %q", c.Pipeline.Mode)
	}
	switch c.Browser.Engine {
	case EngineChromedp, EngineStatic:
	default:
		return fmt.Errorf("browser.engine must be one of %q, %q; got %q", EngineChromedp, EngineStatic, c.Browser.Engine)
	}
	if c.Browser.ReadyTimeout <= 0 {
		return fmt.Errorf("browser.ready_timeout must be > 0")
	}
	if c.Browser.NavigateTimeout < 0 {
		return fmt.Errorf("browser.navigate_timeout must be >= 0")
	}
	if c.Enrich.Enabled {
		switch c.Enrich.Provider {
		case ProviderAnthropic, ProviderGemini:
		default:
			return fmt.Errorf("enrich.provider must be one of %q, %q; got %q", ProviderAnthropic, ProviderGemini, c.Enrich.Provider)
		}
		if c.Enrich.APIKey == "" {
			return fmt.Errorf("enrich.api_key must be set when enrichment is enabled")
		}
		if c.Enrich.MaxInputChars <= 0 {
			return fmt.Errorf("enrich.max_input_chars must be > 0")
		}
		if c.Enrich.MaxTokens <= 0 {
			return fmt.Errorf("enrich.max_tokens must be > 0")
		}
	}
	switch c.Archive.Driver {
	case "", DriverNone:
	case DriverLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local driver")
		}
	case DriverGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set for the gcs driver")
		}
	default:
		return fmt.Errorf("archive.driver %q is not supported", c.Archive.Driver)
	}
	switch c.Notify.Driver {
	case "", DriverNone:
	case DriverPubSub:
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic must be set for the pubsub driver")
		}
	default:
		return fmt.Errorf("notify.driver %q is not supported", c.Notify.Driver)
	}
	return nil
}
