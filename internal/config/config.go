package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dgallion1/formlens/internal/extract"
)

const (
	EnvPrefix = "FORMLENS"

	DefaultPort           = 8090
	DefaultHost           = "0.0.0.0"
	DefaultLogLevel       = "info"
	DefaultMaxUploadBytes = 50 * 1024 * 1024 // 50MB
)

type Config struct {
	Port     int
	Host     string
	LogLevel string

	// Optional bearer token guarding /api.
	APIKey string

	// Extraction endpoint
	Provider    string
	Model       string
	UpstreamURL string
	MaxImages   int

	// Rasterizing
	RenderScale float64
	Pdftoppm    string

	// Response cache
	CacheSize int
	CacheTTL  time.Duration

	// Upstream rate limit
	RequestsPerSecond float64
	Burst             int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Limits
	MaxUploadBytes int64
	MaxConnections int
	RequestTimeout time.Duration

	// Session state
	SessionTTL     time.Duration
	SubmitDelay    time.Duration
	NoticeDuration time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("api_key", "")
	v.SetDefault("provider", extract.ProviderGemini)
	v.SetDefault("model", "")
	v.SetDefault("upstream_url", "")
	v.SetDefault("max_images", 10)
	v.SetDefault("render_scale", 2.0)
	v.SetDefault("pdftoppm", "pdftoppm")
	v.SetDefault("cache_size", 100)
	v.SetDefault("cache_ttl", 15*time.Minute)
	v.SetDefault("requests_per_second", 2.0)
	v.SetDefault("burst", 4)
	v.SetDefault("worker_count", 2)
	v.SetDefault("max_queue_size", 32)
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)
	v.SetDefault("max_connections", 256)
	v.SetDefault("request_timeout", 120*time.Second)
	v.SetDefault("session_ttl", time.Hour)
	v.SetDefault("submit_delay", time.Second)
	v.SetDefault("notice_duration", 5*time.Second)
}

func defineFlags(fs *pflag.FlagSet) {
	fs.Int("port", DefaultPort, "HTTP listen port")
	fs.String("host", DefaultHost, "HTTP listen address")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.String("provider", extract.ProviderGemini, "Extraction provider (gemini, anthropic, openai)")
	fs.String("model", "", "Model id (provider default when empty)")
	fs.String("upstream-url", "", "Override the provider base URL")
	fs.Int("max-images", 10, "Maximum page images forwarded per extraction")
	fs.Float64("render-scale", 2.0, "Render scale applied to PDF pages")
	fs.String("pdftoppm", "pdftoppm", "Path to the pdftoppm binary")
	fs.Int("worker-count", 2, "Concurrent document workers")
	fs.Int("max-queue-size", 32, "Pending upload queue size")
}

var flagKeys = map[string]string{
	"port":           "port",
	"host":           "host",
	"log-level":      "log_level",
	"provider":       "provider",
	"model":          "model",
	"upstream-url":   "upstream_url",
	"max-images":     "max_images",
	"render-scale":   "render_scale",
	"pdftoppm":       "pdftoppm",
	"worker-count":   "worker_count",
	"max-queue-size": "max_queue_size",
}

// Load reads configuration from defaults, FORMLENS_* environment variables
// and command line flags, in increasing precedence.
func Load(args []string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	fs := pflag.NewFlagSet("formlens", pflag.ContinueOnError)
	defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	for flag, key := range flagKeys {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}

	cfg := Config{
		Port:     v.GetInt("port"),
		Host:     v.GetString("host"),
		LogLevel: v.GetString("log_level"),
		APIKey:   v.GetString("api_key"),

		Provider:    v.GetString("provider"),
		Model:       v.GetString("model"),
		UpstreamURL: v.GetString("upstream_url"),
		MaxImages:   v.GetInt("max_images"),

		RenderScale: v.GetFloat64("render_scale"),
		Pdftoppm:    v.GetString("pdftoppm"),

		CacheSize: v.GetInt("cache_size"),
		CacheTTL:  v.GetDuration("cache_ttl"),

		RequestsPerSecond: v.GetFloat64("requests_per_second"),
		Burst:             v.GetInt("burst"),

		WorkerCount:  v.GetInt("worker_count"),
		MaxQueueSize: v.GetInt("max_queue_size"),

		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
		MaxConnections: v.GetInt("max_connections"),
		RequestTimeout: v.GetDuration("request_timeout"),

		SessionTTL:     v.GetDuration("session_ttl"),
		SubmitDelay:    v.GetDuration("submit_delay"),
		NoticeDuration: v.GetDuration("notice_duration"),
	}
	if cfg.Model == "" {
		cfg.Model = extract.DefaultModel(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges. Provider credentials are not checked here; they
// are read on every extraction.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	switch c.Provider {
	case extract.ProviderGemini, extract.ProviderAnthropic, extract.ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.MaxImages <= 0 {
		return errors.New("max_images must be positive")
	}
	if c.RenderScale <= 0 {
		return errors.New("render_scale must be positive")
	}
	if c.CacheSize <= 0 || c.CacheTTL <= 0 {
		return errors.New("cache_size and cache_ttl must be positive")
	}
	if c.WorkerCount <= 0 || c.MaxQueueSize <= 0 {
		return errors.New("worker_count and max_queue_size must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.SubmitDelay < 0 || c.NoticeDuration < 0 {
		return errors.New("submit_delay and notice_duration cannot be negative")
	}
	return nil
}

// Address returns the listen address as host:port.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderSpec describes the extraction model to build.
func (c Config) ProviderSpec() extract.ProviderSpec {
	return extract.ProviderSpec{
		Provider: c.Provider,
		Model:    c.Model,
		BaseURL:  c.UpstreamURL,
		Timeout:  c.RequestTimeout,
	}
}

// Credential returns a reader for the named secret. The environment is
// consulted on every call so a key can be supplied without a restart.
func Credential(key string) extract.Credential {
	return extract.Credential{
		Key: key,
		Get: func() string { return os.Getenv(key) },
	}
}
