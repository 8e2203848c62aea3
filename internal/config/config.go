package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DeafMist/smart-portfolio/backend/internal/elasticsearch"
	"github.com/DeafMist/smart-portfolio/backend/internal/events"
	"github.com/DeafMist/smart-portfolio/backend/internal/portfolio"
	"github.com/DeafMist/smart-portfolio/backend/internal/quotes"
	"github.com/DeafMist/smart-portfolio/backend/internal/sentiment"
	"github.com/DeafMist/smart-portfolio/backend/internal/sources"
)

// Portfolio store backends.
const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Kafka holds the event stream settings. An empty broker list disables it.
type Kafka struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// News configures the aggregation pipeline.
type News struct {
	Timeout             time.Duration
	Limit               int
	PerSourceLimit      int
	SimilarityThreshold float64
	ETMarketsFeedURL    string
	MoneycontrolURL     string
	MoneycontrolBaseURL string
}

// Sentiment configures the language model client.
type Sentiment struct {
	GeminiAPIKey string
	GeminiModel  string
	Concurrency  int
}

// Portfolio selects and configures the holdings store.
type Portfolio struct {
	Backend       string
	MongoURI      string
	MongoDatabase string
	RedisURL      string
}

// API describes HTTP-layer configuration. ArchiveEnabled is set only when
// ELASTICSEARCH_ADDR is given explicitly.
type API struct {
	Common
	Kafka
	BindAddr       string
	News           News
	Sentiment      Sentiment
	Portfolio      Portfolio
	JWTSecret      string
	QuotesBaseURL  string
	QuotesTimeout  time.Duration
	ArchiveEnabled bool
	DefaultPage    int
	MaxPage        int
}

// Archiver holds configuration for the Kafka -> Elasticsearch archiver.
type Archiver struct {
	Common
	Kafka
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
	MetricsAddr      string
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// LoadDotEnv loads variables from the given files (".env" by default)
// without overriding the real environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", elasticsearch.DefaultIndex),
	}
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common: loadCommon(),
		Kafka: Kafka{
			KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "")),
			KafkaTopic:   getEnv("KAFKA_TOPIC", events.DefaultTopic),
		},
		BindAddr: getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		News: News{
			Timeout:             getDuration("NEWS_TIMEOUT", "15s"),
			Limit:               getInt("NEWS_LIMIT", 16),
			PerSourceLimit:      getInt("NEWS_PER_SOURCE_LIMIT", 10),
			SimilarityThreshold: getFloat("NEWS_SIMILARITY_THRESHOLD", 0.8),
			ETMarketsFeedURL:    getEnv("ETMARKETS_FEED_URL", sources.DefaultETMarketsFeed),
			MoneycontrolURL:     getEnv("MONEYCONTROL_URL", sources.DefaultMoneycontrolURL),
			MoneycontrolBaseURL: getEnv("MONEYCONTROL_BASE_URL", sources.DefaultMoneycontrolBase),
		},
		Sentiment: Sentiment{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", sentiment.DefaultModel),
			Concurrency:  getInt("SENTIMENT_CONCURRENCY", 1),
		},
		Portfolio: Portfolio{
			Backend:       strings.ToLower(getEnv("PORTFOLIO_BACKEND", BackendMongo)),
			MongoURI:      getEnv("MONGODB_URI", ""),
			MongoDatabase: getEnv("MONGODB_DATABASE", portfolio.DefaultDatabase),
			RedisURL:      getEnv("REDIS_URL", "redis://redis:6379/0"),
		},
		JWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		QuotesBaseURL:  getEnv("QUOTES_BASE_URL", quotes.DefaultBaseURL),
		QuotesTimeout:  getDuration("QUOTES_TIMEOUT", "10s"),
		ArchiveEnabled: getEnv("ELASTICSEARCH_ADDR", "") != "",
		DefaultPage:    getInt("API_PAGE_SIZE", 20),
		MaxPage:        getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.News.Timeout <= 0 {
		return nil, fmt.Errorf("NEWS_TIMEOUT must be positive")
	}
	if c.News.Limit <= 0 {
		return nil, fmt.Errorf("NEWS_LIMIT must be positive")
	}
	if c.News.PerSourceLimit <= 0 {
		return nil, fmt.Errorf("NEWS_PER_SOURCE_LIMIT must be positive")
	}
	if c.News.SimilarityThreshold <= 0 || c.News.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("NEWS_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.Sentiment.Concurrency <= 0 {
		return nil, fmt.Errorf("SENTIMENT_CONCURRENCY must be positive")
	}
	switch c.Portfolio.Backend {
	case BackendMongo:
		if c.Portfolio.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required for the mongo portfolio backend")
		}
	case BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("PORTFOLIO_BACKEND must be one of mongo, redis, memory")
	}
	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadArchiver builds an Archiver config from environment variables.
func LoadArchiver() (*Archiver, error) {
	c := &Archiver{
		Common: loadCommon(),
		Kafka: Kafka{
			KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
			KafkaTopic:   getEnv("KAFKA_TOPIC", events.DefaultTopic),
		},
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "news-archiver"),
		KeywordLimit:     getInt("ARCHIVER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("ARCHIVER_KEYWORD_MIN_LEN", 4),
		DedupeCapacity:   getInt("ARCHIVER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("ARCHIVER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("ARCHIVER_BATCH_SIZE", 10),
		MetricsAddr:      getEnv("ARCHIVER_METRICS_ADDR", ":9101"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("ARCHIVER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("ARCHIVER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("ARCHIVER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("ARCHIVER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// Enabled reports whether an event stream is configured.
func (k Kafka) Enabled() bool {
	return len(k.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
