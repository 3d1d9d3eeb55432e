// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Feed, Backend, LLM, Pipeline, Cache, State, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Feed     FeedConfig     `yaml:"feed"`
	Backend  BackendConfig  `yaml:"backend"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	State    StateConfig    `yaml:"state"`
	Retry    RetryConfig    `yaml:"retry"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the QA service.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// FeedConfig identifies the blog feed to ingest and how hard to hit it.
type FeedConfig struct {
	URL              string        `yaml:"url"`
	Source           string        `yaml:"source"`
	FetchTimeout     time.Duration `yaml:"fetchTimeout"`
	FetchConcurrency int           `yaml:"fetchConcurrency"`
}

// BackendConfig selects and parameterises the retrieval backend.
// Kind is "managed" or "http".
type BackendConfig struct {
	Kind     string         `yaml:"kind"`
	CorpusID string         `yaml:"corpusId"`
	Timeout  time.Duration  `yaml:"timeout"`
	Managed  ManagedBackend `yaml:"managed"`
	HTTP     HTTPBackend    `yaml:"http"`
}

// ManagedBackend holds the object-store location indexed by the managed
// corpus plus the query endpoint for retrieval.
type ManagedBackend struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	PathStyle       bool   `yaml:"pathStyle"`
	QueryURL        string `yaml:"queryUrl"`
	APIKey          string `yaml:"apiKey"`
}

// HTTPBackend holds the generic HTTP RAG service location.
type HTTPBackend struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

// LLMConfig selects the model provider used for summarization and answering.
// Provider is "anthropic" or "openai".
type LLMConfig struct {
	Provider           string        `yaml:"provider"`
	Model              string        `yaml:"model"`
	APIKey             string        `yaml:"apiKey"`
	BaseURL            string        `yaml:"baseUrl"`
	MaxTokens          int           `yaml:"maxTokens"`
	Timeout            time.Duration `yaml:"timeout"`
	SummaryBudgetChars int           `yaml:"summaryBudgetChars"`
}

// PipelineConfig bounds the ingestion pipeline's fan-out per stage.
type PipelineConfig struct {
	SummarizeConcurrency int `yaml:"summarizeConcurrency"`
	IngestConcurrency    int `yaml:"ingestConcurrency"`
	HistoryMaxEntries    int `yaml:"historyMaxEntries"`
}

// CacheConfig controls the QA response cache. Backend is "memory" or "redis".
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	MaxSize int           `yaml:"maxSize"`
	TTL     time.Duration `yaml:"ttl"`
	TopK    int           `yaml:"topK"`
}

// SessionConfig controls the session query log overlay.
type SessionConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	LogMax int           `yaml:"logMax"`
}

// StateConfig locates the durable watermark state. Path may be a local file
// path, an s3://bucket/key URI, or a postgres:// DSN.
type StateConfig struct {
	Path string `yaml:"path"`
}

// RetryConfig controls the backoff policy for transient failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	BaseDelay      time.Duration `yaml:"baseDelay"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	Multiplier     float64       `yaml:"multiplier"`
	JitterFraction float64       `yaml:"jitterFraction"`
}

// RedisConfig holds Redis connection parameters, used when the response
// cache backend is "redis".
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// EventsConfig controls publication of ingestion run records to Kafka.
type EventsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint. When Port is set
// the scrape endpoint is additionally served on its own listener.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  55 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Feed: FeedConfig{
			Source:           "blog",
			FetchTimeout:     10 * time.Second,
			FetchConcurrency: 8,
		},
		Backend: BackendConfig{
			Kind:    "http",
			Timeout: 30 * time.Second,
			HTTP: HTTPBackend{
				BaseURL: "http://localhost:8001",
			},
		},
		LLM: LLMConfig{
			Provider:           "anthropic",
			Model:              "claude-sonnet-4-5",
			MaxTokens:          1024,
			Timeout:            60 * time.Second,
			SummaryBudgetChars: 4000,
		},
		Pipeline: PipelineConfig{
			SummarizeConcurrency: 4,
			IngestConcurrency:    4,
			HistoryMaxEntries:    10,
		},
		Cache: CacheConfig{
			Backend: "memory",
			MaxSize: 1000,
			TTL:     time.Hour,
			TopK:    8,
		},
		Session: SessionConfig{
			TTL:    24 * time.Hour,
			LogMax: 50,
		},
		State: StateConfig{
			Path: "data/state.json",
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BaseDelay:      500 * time.Millisecond,
			MaxDelay:       30 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.2,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Events: EventsConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "ingestion-runs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// validate rejects configurations that cannot be wired at startup.
func validate(cfg *Config) error {
	switch cfg.Backend.Kind {
	case "managed", "http":
	default:
		return fmt.Errorf("backend.kind must be \"managed\" or \"http\", got %q", cfg.Backend.Kind)
	}
	switch cfg.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm.provider must be \"anthropic\" or \"openai\", got %q", cfg.LLM.Provider)
	}
	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", cfg.Cache.Backend)
	}
	return nil
}

// applyEnvOverrides reads BP_* environment variables and overrides the
// corresponding config fields. Secrets are expected to arrive this way in
// deployed environments.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BP_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("BP_FEED_SOURCE"); v != "" {
		cfg.Feed.Source = v
	}
	if v := os.Getenv("BP_BACKEND_KIND"); v != "" {
		cfg.Backend.Kind = v
	}
	if v := os.Getenv("BP_BACKEND_CORPUS_ID"); v != "" {
		cfg.Backend.CorpusID = v
	}
	if v := os.Getenv("BP_BACKEND_BUCKET"); v != "" {
		cfg.Backend.Managed.Bucket = v
	}
	if v := os.Getenv("BP_BACKEND_ACCESS_KEY_ID"); v != "" {
		cfg.Backend.Managed.AccessKeyID = v
	}
	if v := os.Getenv("BP_BACKEND_SECRET_ACCESS_KEY"); v != "" {
		cfg.Backend.Managed.SecretAccessKey = v
	}
	if v := os.Getenv("BP_BACKEND_QUERY_URL"); v != "" {
		cfg.Backend.Managed.QueryURL = v
	}
	if v := os.Getenv("BP_HTTP_RAG_BASE_URL"); v != "" {
		cfg.Backend.HTTP.BaseURL = v
	}
	if v := os.Getenv("BP_HTTP_RAG_API_KEY"); v != "" {
		cfg.Backend.HTTP.APIKey = v
	}
	if v := os.Getenv("BP_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("BP_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("BP_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("BP_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("BP_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("BP_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("BP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BP_EVENTS_BROKERS"); v != "" {
		cfg.Events.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
