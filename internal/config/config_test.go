package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/smart-portfolio/backend/internal/config"
	"github.com/DeafMist/smart-portfolio/backend/internal/elasticsearch"
	"github.com/DeafMist/smart-portfolio/backend/internal/events"
	"github.com/DeafMist/smart-portfolio/backend/internal/portfolio"
	"github.com/DeafMist/smart-portfolio/backend/internal/quotes"
	"github.com/DeafMist/smart-portfolio/backend/internal/sentiment"
	"github.com/DeafMist/smart-portfolio/backend/internal/sources"
)

func setAPIBase(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("PORTFOLIO_BACKEND", "memory")
	for _, key := range []string{
		"ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"API_BIND_ADDR", "NEWS_TIMEOUT", "NEWS_LIMIT", "NEWS_PER_SOURCE_LIMIT",
		"NEWS_SIMILARITY_THRESHOLD", "SENTIMENT_CONCURRENCY", "GEMINI_MODEL",
		"API_PAGE_SIZE", "API_MAX_PAGE_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadAPIDefaults(t *testing.T) {
	setAPIBase(t)

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, 15*time.Second, cfg.News.Timeout)
	require.Equal(t, 16, cfg.News.Limit)
	require.Equal(t, 10, cfg.News.PerSourceLimit)
	require.InDelta(t, 0.8, cfg.News.SimilarityThreshold, 1e-9)
	require.Equal(t, "gemini-2.0-flash", cfg.Sentiment.GeminiModel)
	require.Equal(t, 1, cfg.Sentiment.Concurrency)
	require.Equal(t, config.BackendMemory, cfg.Portfolio.Backend)
	require.False(t, cfg.Kafka.Enabled())
	require.Equal(t, "news_aggregated", cfg.KafkaTopic)
	require.False(t, cfg.ArchiveEnabled)
	require.Equal(t, "news_archive", cfg.ElasticsearchIndex)
}

func TestLoadAPIDefaultsFollowPackages(t *testing.T) {
	setAPIBase(t)
	for _, key := range []string{
		"ETMARKETS_FEED_URL", "MONEYCONTROL_URL", "MONEYCONTROL_BASE_URL",
		"MONGODB_DATABASE", "QUOTES_BASE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, sources.DefaultETMarketsFeed, cfg.News.ETMarketsFeedURL)
	require.Equal(t, sources.DefaultMoneycontrolURL, cfg.News.MoneycontrolURL)
	require.Equal(t, sources.DefaultMoneycontrolBase, cfg.News.MoneycontrolBaseURL)
	require.Equal(t, sentiment.DefaultModel, cfg.Sentiment.GeminiModel)
	require.Equal(t, portfolio.DefaultDatabase, cfg.Portfolio.MongoDatabase)
	require.Equal(t, quotes.DefaultBaseURL, cfg.QuotesBaseURL)
	require.Equal(t, events.DefaultTopic, cfg.KafkaTopic)
	require.Equal(t, elasticsearch.DefaultIndex, cfg.ElasticsearchIndex)
}

func TestLoadAPIOverrides(t *testing.T) {
	setAPIBase(t)
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("NEWS_TIMEOUT", "5s")
	t.Setenv("NEWS_LIMIT", "20")
	t.Setenv("NEWS_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("SENTIMENT_CONCURRENCY", "4")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")
	t.Setenv("PORTFOLIO_BACKEND", "Redis")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 5*time.Second, cfg.News.Timeout)
	require.Equal(t, 20, cfg.News.Limit)
	require.InDelta(t, 0.9, cfg.News.SimilarityThreshold, 1e-9)
	require.Equal(t, 4, cfg.Sentiment.Concurrency)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.True(t, cfg.Kafka.Enabled())
	require.True(t, cfg.ArchiveEnabled)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, config.BackendRedis, cfg.Portfolio.Backend)
}

func TestLoadAPIValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing jwt secret", env: map[string]string{"AUTH_JWT_SECRET": ""}},
		{name: "mongo without uri", env: map[string]string{"PORTFOLIO_BACKEND": "mongo", "MONGODB_URI": ""}},
		{name: "unknown backend", env: map[string]string{"PORTFOLIO_BACKEND": "sqlite"}},
		{name: "threshold above one", env: map[string]string{"NEWS_SIMILARITY_THRESHOLD": "1.5"}},
		{name: "zero limit", env: map[string]string{"NEWS_LIMIT": "0"}},
		{name: "page larger than max", env: map[string]string{"API_PAGE_SIZE": "50", "API_MAX_PAGE_SIZE": "10"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setAPIBase(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadAPI()
			require.Error(t, err)
		})
	}
}

func TestLoadArchiverDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadArchiver()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "news_archive", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "news_aggregated", cfg.KafkaTopic)
	require.Equal(t, "news-archiver", cfg.KafkaConsumer)
	require.Equal(t, ":9101", cfg.MetricsAddr)
}

func TestLoadArchiverOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("ARCHIVER_KEYWORD_LIMIT", "12")
	t.Setenv("ARCHIVER_KEYWORD_MIN_LEN", "5")
	t.Setenv("ARCHIVER_DEDUPE_CAPACITY", "5")
	t.Setenv("ARCHIVER_DEDUPE_TTL", "48h")
	t.Setenv("ARCHIVER_BATCH_SIZE", "3")

	cfg, err := config.LoadArchiver()
	require.NoError(t, err)

	require.Len(t, cfg.KafkaBrokers, 2)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 12, cfg.KeywordLimit)
	require.Equal(t, 5, cfg.KeywordMinLength)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
}

func TestLoadArchiverRejectsBadDedupeCapacity(t *testing.T) {
	t.Setenv("ARCHIVER_DEDUPE_CAPACITY", "-1")
	_, err := config.LoadArchiver()
	require.Error(t, err)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RETENTION_CRON", "daily")
	cfg, err := config.LoadRetention()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.Interval)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SMART_PORTFOLIO_TEST_KEY=from-file\n"), 0o600))

	t.Setenv("SMART_PORTFOLIO_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("SMART_PORTFOLIO_TEST_KEY"))

	require.NoError(t, config.LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	require.Equal(t, "from-file", os.Getenv("SMART_PORTFOLIO_TEST_KEY"))
}
