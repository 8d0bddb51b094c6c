package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Generation    GenerationConfig    `yaml:"generation"`
	Assets        AssetsConfig        `yaml:"assets"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// SubmitRateLimit is the sustained per-IP request rate on the submit route.
	SubmitRateLimit float64 `yaml:"submit_rate_limit"`
	SubmitBurst     int     `yaml:"submit_burst"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// EmbeddingConfig holds the remote embedding service settings.
type EmbeddingConfig struct {
	URL         string        `yaml:"url"`
	Dims        int           `yaml:"dims"`
	Timeout     time.Duration `yaml:"timeout"`
	RedisURL    string        `yaml:"redis_url"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
	CacheKeyLen int           `yaml:"cache_key_len"`
}

// GenerationConfig holds the text-to-image provider settings.
type GenerationConfig struct {
	URL           string        `yaml:"url"`
	PollURL       string        `yaml:"poll_url"`
	Model         string        `yaml:"model"`
	APIKeys       []string      `yaml:"api_keys"`
	KeyStrategy   string        `yaml:"key_strategy"` // random|round_robin
	Timeout       time.Duration `yaml:"timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	MaxPolls      int           `yaml:"max_polls"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	Steps         int           `yaml:"steps"`
	GuidanceScale float64       `yaml:"guidance_scale"`
}

// AssetsConfig holds the static asset root used for local challenge images.
type AssetsConfig struct {
	Root         string        `yaml:"root"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// ScoringConfig holds orchestrator tuning.
type ScoringConfig struct {
	FallbackScore  float64       `yaml:"fallback_score"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	// MaxPromptLength bounds submitted and free-play prompts, in characters.
	MaxPromptLength int `yaml:"max_prompt_length"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment    string `yaml:"environment"`
	MetricsAddress string `yaml:"metrics_address"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config populated with the values the service runs with
// when nothing else is configured.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":3000",
			SubmitRateLimit: 1,
			SubmitBurst:     3,
		},
		JWT: JWTConfig{
			DefaultTTL: 24 * time.Hour,
		},
		Embedding: EmbeddingConfig{
			Dims:        256,
			Timeout:     20 * time.Second,
			RedisTTL:    24 * time.Hour,
			CacheKeyLen: 32,
		},
		Generation: GenerationConfig{
			URL:           "https://api.studio.nebius.ai/v1/images/generations",
			Model:         "black-forest-labs/FLUX.1-schnell",
			KeyStrategy:   "random",
			Timeout:       60 * time.Second,
			PollInterval:  2 * time.Second,
			MaxPolls:      30,
			Width:         1024,
			Height:        1024,
			Steps:         4,
			GuidanceScale: 3.5,
		},
		Assets: AssetsConfig{
			Root:         "public",
			FetchTimeout: 10 * time.Second,
		},
		Scoring: ScoringConfig{
			FallbackScore:   0.10,
			RetryAttempts:   3,
			BackoffBase:     time.Second,
			AttemptTimeout:  20 * time.Second,
			MaxPromptLength: 1000,
		},
		Observability: ObservabilityConfig{
			Environment: "production",
			LogLevel:    "info",
		},
	}
}

// Validate rejects configuration the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres dsn is required"))
	}
	if c.Scoring.FallbackScore < 0 || c.Scoring.FallbackScore > 0.25 {
		errs = append(errs, fmt.Errorf("scoring.fallback_score %.2f outside [0, 0.25]", c.Scoring.FallbackScore))
	}
	if c.Scoring.RetryAttempts < 1 {
		errs = append(errs, errors.New("scoring.retry_attempts must be at least 1"))
	}
	if c.Generation.MaxPolls < 1 {
		errs = append(errs, errors.New("generation.max_polls must be at least 1"))
	}
	switch c.Generation.KeyStrategy {
	case "random", "round_robin":
	default:
		errs = append(errs, fmt.Errorf("generation.key_strategy %q is not supported", c.Generation.KeyStrategy))
	}
	return errors.Join(errs...)
}

func applyEnvOverrides(cfg *Config) {
	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("JWT_DEFAULT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.JWT.DefaultTTL = d
		}
	}
	if v := os.Getenv("EMBEDDING_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("EMBEDDING_DIMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dims = n
		}
	}
	if v := os.Getenv("EMBEDDING_REDIS_URL"); v != "" {
		cfg.Embedding.RedisURL = v
	}
	if v := os.Getenv("GENERATION_URL"); v != "" {
		cfg.Generation.URL = v
	}
	if v := os.Getenv("GENERATION_POLL_URL"); v != "" {
		cfg.Generation.PollURL = v
	}
	if v := os.Getenv("GENERATION_KEY_STRATEGY"); v != "" {
		cfg.Generation.KeyStrategy = v
	}
	if keys := apiKeysFromEnv(); len(keys) > 0 {
		cfg.Generation.APIKeys = keys
	}
	if v := os.Getenv("ASSETS_ROOT"); v != "" {
		cfg.Assets.Root = v
	}
	if v := os.Getenv("SCORING_FALLBACK_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.FallbackScore = f
		}
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	cfg := Default()

	// Load Postgres DSN
	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apiKeysFromEnv reads the generation key pool: NEBIUS_API_KEYS (comma separated)
// wins over the single NEBIUS_API_KEY.
func apiKeysFromEnv() []string {
	if v := os.Getenv("NEBIUS_API_KEYS"); v != "" {
		return splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("NEBIUS_API_KEY")); v != "" {
		return []string{v}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
