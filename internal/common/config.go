package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	DataDir     string          `toml:"data_dir"`    // Root data directory (default: platform user data dir + /docbro)
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	Assistant   AssistantConfig `toml:"assistant"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path (empty: <data_dir>/db)
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// DefaultMaxErrors is the error budget applied when neither config nor CLI
// overrides it.
const DefaultMaxErrors = 50

// CrawlerConfig contains crawl defaults applied when a project or CLI flag
// does not override them.
type CrawlerConfig struct {
	UserAgent      string        `toml:"user_agent" validate:"required"`
	RateLimit      float64       `toml:"rate_limit" validate:"gt=0"`        // Requests per second per origin
	RequestTimeout time.Duration `toml:"request_timeout" validate:"gt=0"`   // HTTP request timeout
	MaxPages       int           `toml:"max_pages" validate:"gte=1"`        // Maximum pages per session
	CrawlDepth     int           `toml:"crawl_depth" validate:"gte=0"`      // Default BFS depth bound
	MaxErrors      int           `toml:"max_errors" validate:"gte=1"`       // Error budget before the session stops
	MaxBodySize    int64         `toml:"max_body_size" validate:"gt=0"`     // Maximum response body size in bytes
	FollowRobots   bool          `toml:"follow_robots"`                     // Respect robots.txt rules
	RobotsTimeout  time.Duration `toml:"robots_timeout" validate:"gt=0"`    // robots.txt fetch timeout
	QueuePollShort time.Duration `toml:"queue_poll_short" validate:"gt=0"`  // Dequeue timeout at the configured depth
	QueuePollLong  time.Duration `toml:"queue_poll_long" validate:"gt=0"`   // Dequeue timeout while deeper pages may still arrive
	DrainRecheck   time.Duration `toml:"drain_recheck" validate:"gte=0"`    // Sleep before re-checking an empty frontier
	PollInterval   time.Duration `toml:"poll_interval" validate:"gt=0"`     // Orchestrator session poll interval
}

// EmbeddingConfig contains Gemini embedding configuration
type EmbeddingConfig struct {
	APIKey       string `toml:"api_key"`        // Google Gemini API key (env GEMINI_API_KEY preferred)
	Model        string `toml:"model"`          // Embedding model (default: "gemini-embedding-001")
	BatchSize    int    `toml:"batch_size"`     // Chunks per EmbedContent call
	MaxChunkSize int    `toml:"max_chunk_size"` // Maximum chunk length in runes
	MinChunkSize int    `toml:"min_chunk_size"` // Chunks shorter than this are merged forward
}

// AssistantConfig contains Anthropic Claude configuration for the ask command
type AssistantConfig struct {
	APIKey    string `toml:"api_key"`    // Anthropic API key (env ANTHROPIC_API_KEY preferred)
	Model     string `toml:"model"`      // Model for answer synthesis
	MaxTokens int    `toml:"max_tokens"` // Maximum tokens in response
	TopK      int    `toml:"top_k"`      // Retrieved chunks per question
}

// SchedulerConfig contains periodic recrawl configuration
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`  // Run scheduled batch updates while serving
	Schedule string `toml:"schedule"` // Cron expression (default: daily at 03:00)
}

// WebSocketConfig contains configuration for progress streaming
type WebSocketConfig struct {
	ThrottleInterval string `toml:"throttle_interval"` // Minimum spacing between progress broadcasts
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in docbro.toml; crawl timing
// parameters keep their defaults unless deliberately tuned.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		DataDir:     "", // resolved lazily via ResolveDataDir
		Server: ServerConfig{
			Port: 9382,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "", // resolved to <data_dir>/db
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Crawler: CrawlerConfig{
			UserAgent:      "DocBro/" + Version + " (+https://github.com/ternarybob/docbro)",
			RateLimit:      2.0,
			RequestTimeout: 30 * time.Second,
			MaxPages:       1000,
			CrawlDepth:     2,
			MaxErrors:      DefaultMaxErrors,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
			FollowRobots:   true,
			RobotsTimeout:  5 * time.Second,
			QueuePollShort: 30 * time.Second,
			QueuePollLong:  60 * time.Second,
			DrainRecheck:   10 * time.Second,
			PollInterval:   500 * time.Millisecond,
		},
		Embedding: EmbeddingConfig{
			APIKey:       "",
			Model:        "gemini-embedding-001",
			BatchSize:    32,
			MaxChunkSize: 1200,
			MinChunkSize: 50,
		},
		Assistant: AssistantConfig{
			APIKey:    "",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 2048,
			TopK:      6,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 3 * * *",
		},
		WebSocket: WebSocketConfig{
			ThrottleInterval: "250ms",
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path falls back to the standard search locations.
func LoadFromFile(path string) (*Config, error) {
	if path != "" {
		return LoadFromFiles(path)
	}
	return LoadFromFiles(defaultConfigPaths()...)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files. Missing files in the default search path are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// defaultConfigPaths returns the standard config search order.
func defaultConfigPaths() []string {
	paths := []string{"./docbro.toml"}
	if dataDir, err := ResolveDataDir(""); err == nil {
		paths = append(paths, filepath.Join(dataDir, "config.toml"))
	}
	return paths
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DOCBRO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if dataDir := os.Getenv("DOCBRO_DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}

	// Server configuration
	if port := os.Getenv("DOCBRO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DOCBRO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("DOCBRO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("DOCBRO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("DOCBRO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("DOCBRO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Crawler configuration
	if userAgent := os.Getenv("DOCBRO_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}
	if rateLimit := os.Getenv("DOCBRO_CRAWLER_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.ParseFloat(rateLimit, 64); err == nil && rl > 0 {
			config.Crawler.RateLimit = rl
		}
	}
	if requestTimeout := os.Getenv("DOCBRO_CRAWLER_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Crawler.RequestTimeout = rt
		}
	}
	if maxPages := os.Getenv("DOCBRO_CRAWLER_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Crawler.MaxPages = mp
		}
	}
	if crawlDepth := os.Getenv("DOCBRO_CRAWLER_CRAWL_DEPTH"); crawlDepth != "" {
		if cd, err := strconv.Atoi(crawlDepth); err == nil {
			config.Crawler.CrawlDepth = cd
		}
	}
	if maxErrors := os.Getenv("DOCBRO_CRAWLER_MAX_ERRORS"); maxErrors != "" {
		if me, err := strconv.Atoi(maxErrors); err == nil {
			config.Crawler.MaxErrors = me
		}
	}
	if maxBodySize := os.Getenv("DOCBRO_CRAWLER_MAX_BODY_SIZE"); maxBodySize != "" {
		if mbs, err := strconv.ParseInt(maxBodySize, 10, 64); err == nil {
			config.Crawler.MaxBodySize = mbs
		}
	}
	if followRobots := os.Getenv("DOCBRO_CRAWLER_FOLLOW_ROBOTS"); followRobots != "" {
		if fr, err := strconv.ParseBool(followRobots); err == nil {
			config.Crawler.FollowRobots = fr
		}
	}

	// Embedding configuration
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
	}
	if apiKey := os.Getenv("DOCBRO_GEMINI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey // DOCBRO_ prefix takes priority
	}
	if model := os.Getenv("DOCBRO_EMBEDDING_MODEL"); model != "" {
		config.Embedding.Model = model
	}

	// Assistant configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Assistant.APIKey = apiKey
	}
	if apiKey := os.Getenv("DOCBRO_CLAUDE_API_KEY"); apiKey != "" {
		config.Assistant.APIKey = apiKey // DOCBRO_ prefix takes priority
	}
	if model := os.Getenv("DOCBRO_CLAUDE_MODEL"); model != "" {
		config.Assistant.Model = model
	}

	// Scheduler configuration
	if enabled := os.Getenv("DOCBRO_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("DOCBRO_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
}

// Validate checks the crawler section against its constraints. Commands call
// this once at entry; violations map to the validation error kind.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(&c.Crawler); err != nil {
		return fmt.Errorf("invalid crawler configuration: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// BadgerPath returns the configured Badger directory, defaulting to
// <data_dir>/db when unset.
func (c *Config) BadgerPath() (string, error) {
	if c.Storage.Badger.Path != "" {
		return c.Storage.Badger.Path, nil
	}
	dataDir, err := ResolveDataDir(c.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "db"), nil
}
