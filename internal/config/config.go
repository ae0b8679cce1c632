package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvDevelopment enables development logging and disables asset caching.
	EnvDevelopment = "dev"

	defaultHost            = "0.0.0.0"
	defaultPort            = "8900"
	defaultStaticDir       = "frontend/dist"
	defaultRateLimitRPS    = 25.0
	defaultRateLimitBurst  = 50
	defaultCacheSize       = 256
	defaultMaxRequestBytes = 10 << 20
	defaultMaxImageDim     = 1024
	defaultVisionProvider  = "gemini"
	defaultVisionModel     = "gemini-1.5-flash"
	defaultVisionTimeout   = 60 * time.Second
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Host                 string
	Port                 string
	Env                  string
	StaticDir            string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	EnableMetrics        bool
	RateLimitRPS         float64
	RateLimitBurst       int
	MaxRequestBytes      int64
	CacheSize            int
	Vision               VisionConfig
}

// VisionConfig selects the OpenAI-compatible model that reads canvas images.
type VisionConfig struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	MaxImageSide int
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// Addr joins host and port into a listen address.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return net.JoinHostPort(c.Host, c.Port)
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Host                 string        `yaml:"host"`
	Port                 string        `yaml:"port"`
	Env                  string        `yaml:"env"`
	StaticDir            string        `yaml:"static_dir"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	EnableMetrics        *bool         `yaml:"enable_metrics"`
	MaxRequestBytes      int64         `yaml:"max_request_bytes"`
	CacheSize            *int          `yaml:"cache_size"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Vision               yamlVision    `yaml:"vision"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlVision struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Timeout      string `yaml:"timeout"`
	MaxImageSide int    `yaml:"max_image_side"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Host           *string
	Port           *string
	Env            *string
	StaticDir      *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	VisionModel    *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	envFile := ".env"
	if overrides != nil && overrides.EnvFile != "" {
		envFile = overrides.EnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := defaultConfig()
	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Host:                 defaultHost,
		Port:                 defaultPort,
		Env:                  EnvDevelopment,
		StaticDir:            defaultStaticDir,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         90 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		EnableMetrics:        true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		MaxRequestBytes:      defaultMaxRequestBytes,
		CacheSize:            defaultCacheSize,
		Vision: VisionConfig{
			Provider:     defaultVisionProvider,
			Model:        defaultVisionModel,
			Timeout:      defaultVisionTimeout,
			MaxImageSide: defaultMaxImageDim,
		},
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.Host, yamlCfg.Host)
	setString(&cfg.Port, yamlCfg.Port)
	setString(&cfg.Env, yamlCfg.Env)
	setString(&cfg.StaticDir, yamlCfg.StaticDir)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"vision.timeout", yamlCfg.Vision.Timeout, &cfg.Vision.Timeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.EnableMetrics != nil {
		cfg.EnableMetrics = *yamlCfg.EnableMetrics
	}
	if yamlCfg.MaxRequestBytes > 0 {
		cfg.MaxRequestBytes = yamlCfg.MaxRequestBytes
	}
	if yamlCfg.CacheSize != nil {
		cfg.CacheSize = *yamlCfg.CacheSize
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	setString(&cfg.Vision.Provider, yamlCfg.Vision.Provider)
	setString(&cfg.Vision.Model, yamlCfg.Vision.Model)
	setString(&cfg.Vision.APIKey, yamlCfg.Vision.APIKey)
	setString(&cfg.Vision.BaseURL, yamlCfg.Vision.BaseURL)
	if yamlCfg.Vision.MaxImageSide > 0 {
		cfg.Vision.MaxImageSide = yamlCfg.Vision.MaxImageSide
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
// Malformed numeric values are ignored and the previous value is kept.
func applyEnvConfig(cfg *Config) {
	setString(&cfg.Host, env("SERVER_URL"))
	setString(&cfg.Port, env("PORT"))
	setString(&cfg.Env, env("ENV"))
	setString(&cfg.StaticDir, env("STATIC_DIR"))

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if size := env("CACHE_SIZE"); size != "" {
		if value, err := strconv.Atoi(size); err == nil && value >= 0 {
			cfg.CacheSize = value
		}
	}

	if limit := env("MAX_REQUEST_BYTES"); limit != "" {
		if value, err := strconv.ParseInt(limit, 10, 64); err == nil && value > 0 {
			cfg.MaxRequestBytes = value
		}
	}

	if enabled := env("METRICS_ENABLED"); enabled != "" {
		if value, err := strconv.ParseBool(enabled); err == nil {
			cfg.EnableMetrics = value
		}
	}

	setString(&cfg.Vision.Provider, env("VISION_PROVIDER"))
	setString(&cfg.Vision.Model, env("VISION_MODEL"))
	setString(&cfg.Vision.BaseURL, env("VISION_BASE_URL"))
	setString(&cfg.Vision.APIKey, env("GEMINI_API_KEY"))
	setString(&cfg.Vision.APIKey, env("VISION_API_KEY"))

	if timeout := env("VISION_TIMEOUT"); timeout != "" {
		if value, err := time.ParseDuration(timeout); err == nil && value > 0 {
			cfg.Vision.Timeout = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	setStringPtr(&cfg.Host, overrides.Host)
	setStringPtr(&cfg.Port, overrides.Port)
	setStringPtr(&cfg.Env, overrides.Env)
	setStringPtr(&cfg.StaticDir, overrides.StaticDir)
	setStringPtr(&cfg.Vision.Model, overrides.VisionModel)

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if _, err := parsePort(cfg.Port); err != nil {
		return err
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.CacheSize < 0 {
		return fmt.Errorf("CACHE_SIZE must be >= 0")
	}
	if cfg.MaxRequestBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.StaticDir) == "" {
		return fmt.Errorf("static directory cannot be empty")
	}
	if cfg.Vision.Timeout <= 0 {
		return fmt.Errorf("vision timeout must be > 0")
	}
	return nil
}

// parsePort accepts "8900" or ":8900" and checks the numeric range.
func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), ":"))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return port, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setStringPtr(dst *string, value *string) {
	if value != nil {
		setString(dst, *value)
	}
}
