package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/campusguide/internal/cache"
	"github.com/cloo-solutions/campusguide/internal/conversation"
	"github.com/cloo-solutions/campusguide/internal/ingest"
	"github.com/cloo-solutions/campusguide/internal/openai"
	"github.com/cloo-solutions/campusguide/internal/retrieval"
	"github.com/cloo-solutions/campusguide/internal/service"
	"github.com/cloo-solutions/campusguide/internal/storage"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// EnvPrefix prefixes every environment variable, e.g. CAMPUSGUIDE_PORT.
const EnvPrefix = "CAMPUSGUIDE"

type Config struct {
	Port         string   `envconfig:"PORT" default:"8080"`
	Debug        bool     `envconfig:"DEBUG" default:"false"`
	APIKeys      []string `envconfig:"API_KEYS"`
	MaxBodyBytes int64    `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	SentryDSN         string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment string  `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	SentrySampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"0.1"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"campusguide-snapshots"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3PathStyle bool   `envconfig:"S3_PATH_STYLE" default:"true"`

	SnapshotDir    string `envconfig:"SNAPSHOT_DIR" default:"data/snapshots"`
	SnapshotPrefix string `envconfig:"SNAPSHOT_PREFIX" default:"crawls"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	ChatModel      string `envconfig:"CHAT_MODEL"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	// LinksFile replaces the embedded static fallback catalogue.
	LinksFile string `envconfig:"LINKS_FILE"`

	WebSearchAPIKey string `envconfig:"WEB_SEARCH_API_KEY"`
	WebSearchURL    string `envconfig:"WEB_SEARCH_URL" default:"https://google.serper.dev/search"`
	WebSearchLocale string `envconfig:"WEB_SEARCH_LOCALE" default:"au"`

	Institution     string        `envconfig:"INSTITUTION" default:"RMIT"`
	InstitutionURL  string        `envconfig:"INSTITUTION_URL" default:"https://www.rmit.edu.au"`
	Domain          string        `envconfig:"DOMAIN" default:"rmit.edu.au"`
	AutoSearch      bool          `envconfig:"AUTO_SEARCH" default:"true"`
	SearchDeadline  time.Duration `envconfig:"SEARCH_DEADLINE" default:"8s"`
	ResultLimit     int           `envconfig:"RESULT_LIMIT" default:"10"`
	MinResults      int           `envconfig:"MIN_RESULTS" default:"3"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	CacheMaxEntries int           `envconfig:"CACHE_MAX_ENTRIES" default:"1000"`
	HistoryLimit    int           `envconfig:"HISTORY_LIMIT" default:"20"`

	EmbeddingPollInterval time.Duration `envconfig:"EMBEDDING_POLL_INTERVAL" default:"5s"`

	CrawlInterval  time.Duration `envconfig:"CRAWL_INTERVAL"`
	CrawlWorkers   int           `envconfig:"CRAWL_WORKERS" default:"5"`
	CrawlRateLimit time.Duration `envconfig:"CRAWL_RATE_LIMIT" default:"300ms"`
	CrawlMaxDepth  int           `envconfig:"CRAWL_MAX_DEPTH" default:"5"`
	CrawlMaxPages  int           `envconfig:"CRAWL_MAX_PAGES" default:"15000"`
	CrawlMaxItems  int           `envconfig:"CRAWL_MAX_ITEMS" default:"8000"`
	CrawlUserAgent string        `envconfig:"CRAWL_USER_AGENT"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

func (c *Config) HasWebSearch() bool {
	return strings.TrimSpace(c.WebSearchAPIKey) != ""
}

// HasPeriodicCrawl reports whether serve should run the crawler on a timer.
func (c *Config) HasPeriodicCrawl() bool {
	return c.CrawlInterval > 0
}

// AggregatorConfig returns the fan-out settings.
func (c *Config) AggregatorConfig() retrieval.Config {
	cfg := retrieval.DefaultConfig()
	if c.SearchDeadline > 0 {
		cfg.Deadline = c.SearchDeadline
	}
	if c.ResultLimit > 0 {
		cfg.ResultLimit = c.ResultLimit
	}
	if c.MinResults > 0 {
		cfg.MinResults = c.MinResults
	}
	if c.CacheTTL > 0 {
		cfg.CacheTTL = c.CacheTTL
	}
	if c.Institution != "" {
		cfg.Institution = c.Institution
	}
	return cfg
}

func (c *Config) RetrievalConfig() service.RetrievalConfig {
	return service.RetrievalConfig{AutoSearch: c.AutoSearch}
}

func (c *Config) ConversationConfig() conversation.Config {
	cfg := conversation.DefaultConfig()
	if c.HistoryLimit > 0 {
		cfg.HistoryLimit = c.HistoryLimit
	}
	return cfg
}

func (c *Config) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.MaxEntries = c.CacheMaxEntries
	return cfg
}

func (c *Config) WebSearchConfig() retrieval.WebSearchConfig {
	return retrieval.WebSearchConfig{
		APIKey:  c.WebSearchAPIKey,
		URL:     c.WebSearchURL,
		Domain:  c.Domain,
		Locale:  c.WebSearchLocale,
		Timeout: c.SearchDeadline,
	}
}

func (c *Config) ScrapeConfig() retrieval.ScrapeConfig {
	return retrieval.ScrapeConfig{
		BaseURL:   c.InstitutionURL,
		UserAgent: c.CrawlUserAgent,
	}
}

// CrawlConfig overlays the crawl settings on the ingest defaults.
func (c *Config) CrawlConfig() ingest.Config {
	cfg := ingest.DefaultConfig()
	if c.InstitutionURL != "" {
		cfg.BaseURL = strings.TrimSuffix(c.InstitutionURL, "/")
	}
	if c.Domain != "" {
		cfg.Domain = c.Domain
	}
	if c.CrawlWorkers > 0 {
		cfg.Workers = c.CrawlWorkers
	}
	if c.CrawlRateLimit > 0 {
		cfg.RateLimit = c.CrawlRateLimit
	}
	if c.CrawlMaxDepth > 0 {
		cfg.MaxDepth = c.CrawlMaxDepth
	}
	if c.CrawlMaxPages > 0 {
		cfg.MaxPages = c.CrawlMaxPages
	}
	if c.CrawlMaxItems > 0 {
		cfg.MaxItems = c.CrawlMaxItems
	}
	if c.CrawlUserAgent != "" {
		cfg.UserAgent = c.CrawlUserAgent
	}
	return cfg
}

func (c *Config) OpenAIConfig() openai.Config {
	cfg := openai.Config{
		APIKey:    c.OpenAIAPIKey,
		BaseURL:   c.OpenAIBaseURL,
		ChatModel: c.ChatModel,
	}
	if c.EmbeddingModel != "" {
		cfg.EmbeddingModel = goopenai.EmbeddingModel(c.EmbeddingModel)
	}
	return cfg
}

func (c *Config) S3Config() storage.S3ClientConfig {
	return storage.S3ClientConfig{
		Endpoint:        c.S3Endpoint,
		AccessKeyID:     c.S3AccessKey,
		SecretAccessKey: c.S3SecretKey,
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		UsePathStyle:    c.S3PathStyle,
	}
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		DSN:              c.SentryDSN,
		Environment:      c.SentryEnvironment,
		TracesSampleRate: c.SentrySampleRate,
		Debug:            c.Debug,
	}
}
