package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         App         `mapstructure:"app"`
	Logging     Logging     `mapstructure:"logging"`
	Database    Database    `mapstructure:"database"`
	Embedding   Embedding   `mapstructure:"embedding"`
	LLM         LLM         `mapstructure:"llm"`
	Similarity  Similarity  `mapstructure:"similarity"`
	Adjudicator Adjudicator `mapstructure:"adjudicator"`
	Pipeline    Pipeline    `mapstructure:"pipeline"`
	Redis       Redis       `mapstructure:"redis"`
	Kafka       Kafka       `mapstructure:"kafka"`
	Feeds       Feeds       `mapstructure:"feeds"`
	Archive     Archive     `mapstructure:"archive"`
	Server      Server      `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database selects and configures the article store
type Database struct {
	Driver     string `mapstructure:"driver"` // postgres or sqlite
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Embedding configures the embedding provider
type Embedding struct {
	Provider   string        `mapstructure:"provider"` // gemini or cohere
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	GeminiKey  string        `mapstructure:"gemini_api_key"`
	CohereKey  string        `mapstructure:"cohere_api_key"`
}

// LLM configures the model that adjudicates clustering
type LLM struct {
	Provider       string        `mapstructure:"provider"` // gemini, anthropic or openai
	Model          string        `mapstructure:"model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Temperature    float32       `mapstructure:"temperature"`
	MaxTokens      int32         `mapstructure:"max_tokens"`
	DebugResponses bool          `mapstructure:"debug_responses"`
	GeminiKey      string        `mapstructure:"gemini_api_key"`
	AnthropicKey   string        `mapstructure:"anthropic_api_key"`
	OpenAIKey      string        `mapstructure:"openai_api_key"`
}

// Similarity configures nearest-neighbor candidate search
type Similarity struct {
	Threshold float64                       `mapstructure:"threshold"`
	Limit     int                           `mapstructure:"limit"`
	Overrides map[string]SimilarityOverride `mapstructure:"overrides"` // keyed by lowercase category
}

// SimilarityOverride replaces the global threshold or limit for one category
type SimilarityOverride struct {
	Threshold float64 `mapstructure:"threshold"`
	Limit     int     `mapstructure:"limit"`
}

// Adjudicator configures the clustering judge
type Adjudicator struct {
	StrictSubcategories bool   `mapstructure:"strict_subcategories"`
	TaxonomyFile        string `mapstructure:"taxonomy_file"`
	MaxCandidates       int    `mapstructure:"max_candidates"`
}

// Pipeline configures batch ingestion
type Pipeline struct {
	Concurrency int `mapstructure:"concurrency"`
}

// Redis configures the intake queue and the fingerprint Bloom filter
type Redis struct {
	URL           string        `mapstructure:"url"`
	QueueKey      string        `mapstructure:"queue_key"`
	DeadLetterKey string        `mapstructure:"dead_letter_key"`
	PopTimeout    time.Duration `mapstructure:"pop_timeout"`
	Bloom         BloomConfig   `mapstructure:"bloom"`
}

// BloomConfig configures the RedisBloom pre-filter
type BloomConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Key       string        `mapstructure:"key"`
	Capacity  int           `mapstructure:"capacity"`
	ErrorRate float64       `mapstructure:"error_rate"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Kafka configures the stream intake
type Kafka struct {
	Brokers         []string `mapstructure:"brokers"`
	Topic           string   `mapstructure:"topic"`
	GroupID         string   `mapstructure:"group_id"`
	DeadLetterTopic string   `mapstructure:"dead_letter_topic"`
}

// Feeds configures the RSS poller
type Feeds struct {
	Schedule        string        `mapstructure:"schedule"`
	MaxItemsPerFeed int           `mapstructure:"max_items_per_feed"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// Archive configures raw intake archiving to S3
type Archive struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	Region  string `mapstructure:"region"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	APIKey       string        `mapstructure:"api_key"` // required on write endpoints when set
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings for the API
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".storydesk")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.sqlite_path", ".storydesk/storydesk.db")

	viper.SetDefault("embedding.provider", "gemini")
	viper.SetDefault("embedding.model", "gemini-embedding-001")
	viper.SetDefault("embedding.dimensions", 768)
	viper.SetDefault("embedding.timeout", "20s")

	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.model", "gemini-flash-lite-latest")
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.debug_responses", false)

	viper.SetDefault("similarity.threshold", 0.85)
	viper.SetDefault("similarity.limit", 10)

	viper.SetDefault("adjudicator.strict_subcategories", true)
	viper.SetDefault("adjudicator.max_candidates", 5)

	viper.SetDefault("pipeline.concurrency", 4)

	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.queue_key", "storydesk:queue:articles")
	viper.SetDefault("redis.dead_letter_key", "storydesk:queue:failed")
	viper.SetDefault("redis.pop_timeout", "5s")
	viper.SetDefault("redis.bloom.enabled", false)
	viper.SetDefault("redis.bloom.key", "storydesk:fingerprints")
	viper.SetDefault("redis.bloom.capacity", 100000)
	viper.SetDefault("redis.bloom.error_rate", 0.001)
	viper.SetDefault("redis.bloom.ttl", "720h")

	viper.SetDefault("kafka.topic", "storydesk.articles")
	viper.SetDefault("kafka.group_id", "storydesk-ingest")
	viper.SetDefault("kafka.dead_letter_topic", "storydesk.articles.dead-letter")

	viper.SetDefault("feeds.schedule", "*/15 * * * *")
	viper.SetDefault("feeds.max_items_per_feed", 25)
	viper.SetDefault("feeds.timeout", "30s")
	viper.SetDefault("feeds.user_agent", "storydesk/1.0")

	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.prefix", "incoming/")
	viper.SetDefault("archive.region", "us-east-1")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.cors.enabled", false)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	geminiKeys := []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_API_KEY"}
	bindEnvKeys("embedding.gemini_api_key", geminiKeys)
	bindEnvKeys("llm.gemini_api_key", geminiKeys)

	bindEnvKeys("embedding.cohere_api_key", []string{"COHERE_API_KEY", "CO_API_KEY"})
	bindEnvKeys("llm.anthropic_api_key", []string{"ANTHROPIC_API_KEY"})
	bindEnvKeys("llm.openai_api_key", []string{"OPENAI_API_KEY"})

	bindEnvKeys("database.url", []string{"DATABASE_URL", "POSTGRES_URL"})
	bindEnvKeys("redis.url", []string{"REDIS_URL"})
	bindEnvKeys("archive.bucket", []string{"ARCHIVE_BUCKET", "S3_BUCKET"})
	bindEnvKeys("server.api_key", []string{"STORYDESK_API_KEY", "ADMIN_API_KEY"})

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		viper.Set("kafka.brokers", strings.Split(brokers, ","))
	}

	bindEnvKeys("app.debug", []string{"DEBUG", "STORYDESK_DEBUG"})
	bindEnvKeys("logging.level", []string{"LOG_LEVEL"})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig normalizes values that viper leaves loosely typed
func postProcessConfig(config *Config) error {
	if config.Database.SQLitePath != "" {
		config.Database.SQLitePath = expandPath(config.Database.SQLitePath)
	}
	if config.Adjudicator.TaxonomyFile != "" {
		config.Adjudicator.TaxonomyFile = expandPath(config.Adjudicator.TaxonomyFile)
	}

	// viper lowercases map keys; keep that explicit so lookups can rely on it
	overrides := make(map[string]SimilarityOverride, len(config.Similarity.Overrides))
	for category, o := range config.Similarity.Overrides {
		overrides[strings.ToLower(strings.TrimSpace(category))] = o
	}
	config.Similarity.Overrides = overrides

	brokers := config.Kafka.Brokers[:0]
	for _, b := range config.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	config.Kafka.Brokers = brokers

	durations := map[string]time.Duration{
		"embedding.timeout":    config.Embedding.Timeout,
		"llm.timeout":          config.LLM.Timeout,
		"redis.pop_timeout":    config.Redis.PopTimeout,
		"feeds.timeout":        config.Feeds.Timeout,
		"server.read_timeout":  config.Server.ReadTimeout,
		"server.write_timeout": config.Server.WriteTimeout,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("invalid duration for %s: %s", key, d)
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig checks structural settings every command depends on
func validateConfig(config *Config) error {
	var errors []string

	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: postgres, sqlite", config.Database.Driver))
	}

	switch config.Embedding.Provider {
	case "gemini", "cohere":
	default:
		errors = append(errors, fmt.Sprintf("Unknown embedding provider: %s. Supported: gemini, cohere", config.Embedding.Provider))
	}
	if config.Embedding.Dimensions != 768 && config.Embedding.Dimensions != 1024 && config.Embedding.Dimensions != 1536 {
		errors = append(errors, fmt.Sprintf("Unsupported embedding dimensions: %d. Supported: 768, 1024, 1536", config.Embedding.Dimensions))
	}

	switch config.LLM.Provider {
	case "gemini", "anthropic", "openai":
	default:
		errors = append(errors, fmt.Sprintf("Unknown LLM provider: %s. Supported: gemini, anthropic, openai", config.LLM.Provider))
	}

	if config.Similarity.Threshold <= 0 || config.Similarity.Threshold >= 1 {
		errors = append(errors, fmt.Sprintf("similarity.threshold must be in (0, 1), got %v", config.Similarity.Threshold))
	}
	if config.Similarity.Limit <= 0 {
		errors = append(errors, "similarity.limit must be positive")
	}
	for category, o := range config.Similarity.Overrides {
		if o.Threshold < 0 || o.Threshold >= 1 {
			errors = append(errors, fmt.Sprintf("similarity.overrides.%s.threshold must be in [0, 1)", category))
		}
		if o.Limit < 0 {
			errors = append(errors, fmt.Sprintf("similarity.overrides.%s.limit must not be negative", category))
		}
	}

	if config.Pipeline.Concurrency <= 0 {
		errors = append(errors, "pipeline.concurrency must be positive")
	}

	if config.Archive.Enabled && config.Archive.Bucket == "" {
		errors = append(errors, "archive.bucket is required when archiving is enabled. Set ARCHIVE_BUCKET")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateIngestion checks the credentials and store settings that ingestion needs.
// Commands that only read (select, catalog) skip it.
func (c *Config) ValidateIngestion() error {
	var errors []string

	if err := c.ValidateStore(); err != nil {
		errors = append(errors, err.Error())
	}

	switch c.Embedding.Provider {
	case "gemini":
		if !isValidAPIKey(c.Embedding.GeminiKey) {
			errors = append(errors, "Gemini API key is required for embeddings. Set GEMINI_API_KEY")
		}
	case "cohere":
		if !isValidAPIKey(c.Embedding.CohereKey) {
			errors = append(errors, "Cohere API key is required for embeddings. Set COHERE_API_KEY")
		}
	}

	switch c.LLM.Provider {
	case "gemini":
		if !isValidAPIKey(c.LLM.GeminiKey) {
			errors = append(errors, "Gemini API key is required for adjudication. Set GEMINI_API_KEY")
		}
	case "anthropic":
		if !isValidAPIKey(c.LLM.AnthropicKey) {
			errors = append(errors, "Anthropic API key is required for adjudication. Set ANTHROPIC_API_KEY")
		}
	case "openai":
		if !isValidAPIKey(c.LLM.OpenAIKey) {
			errors = append(errors, "OpenAI API key is required for adjudication. Set OPENAI_API_KEY")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateStore checks that the selected database can be opened.
func (c *Config) ValidateStore() error {
	if c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("database connection string not configured. Set DATABASE_URL or database.url")
	}
	if c.Database.Driver == "sqlite" && c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
	}
	return nil
}

// ThresholdFor returns the similarity threshold and limit for a category.
func (s Similarity) ThresholdFor(category string) (float64, int) {
	threshold, limit := s.Threshold, s.Limit
	if o, ok := s.Overrides[strings.ToLower(strings.TrimSpace(category))]; ok {
		if o.Threshold > 0 {
			threshold = o.Threshold
		}
		if o.Limit > 0 {
			limit = o.Limit
		}
	}
	return threshold, limit
}

// Convenience getters for commonly used configuration values
func GetLogging() Logging         { return Get().Logging }
func GetDatabase() Database       { return Get().Database }
func GetEmbedding() Embedding     { return Get().Embedding }
func GetLLM() LLM                 { return Get().LLM }
func GetSimilarity() Similarity   { return Get().Similarity }
func GetAdjudicator() Adjudicator { return Get().Adjudicator }
func GetServer() Server           { return Get().Server }
func IsDebugMode() bool           { return Get().App.Debug }

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-gemini-key", "your-cohere-key", "your-openai-key",
		"your-anthropic-key", "YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}
	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
