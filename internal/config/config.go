package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ListingScope selects which projects feed the generation context.
type ListingScope string

const (
	ListingScopeOngoing ListingScope = "ongoing"
	ListingScopeAll     ListingScope = "all"
)

type Config struct {
	GeminiAPIKey   string
	ChatModel      string
	EmbeddingModel string

	DatabaseDriver string
	DatabaseURL    string

	HTTPPort  string
	LogLevel  string
	LogFormat string

	Redis      RedisConfig
	Assistant  AssistantConfig
	Background BackgroundConfig
	Leads      LeadsConfig
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type AssistantConfig struct {
	SemanticThreshold float64
	HistoryLimit      int
	ListingScope      ListingScope
	EmbedTimeout      time.Duration
	GenerateTimeout   time.Duration
}

type BackgroundConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	TaskTimeout time.Duration
}

type LeadsConfig struct {
	SNSTopicARN string
	AWSRegion   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("chat_model", "gemini-1.5-flash-latest")
	v.SetDefault("embedding_model", "text-embedding-004")
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("database_url", "assistant.db")
	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("assistant.semantic_threshold", 0.9)
	v.SetDefault("assistant.history_limit", 10)
	v.SetDefault("assistant.listing_scope", string(ListingScopeOngoing))
	v.SetDefault("assistant.embed_timeout", 15*time.Second)
	v.SetDefault("assistant.generate_timeout", 60*time.Second)

	v.SetDefault("background.workers", 4)
	v.SetDefault("background.queue_size", 256)
	v.SetDefault("background.max_attempts", 1)
	v.SetDefault("background.task_timeout", 10*time.Second)

	v.SetDefault("leads.sns_topic_arn", "")
	v.SetDefault("leads.aws_region", "ap-south-1")
}

// Load reads .env, an optional config.yaml and the environment, in increasing
// order of precedence. Nested keys map to env vars with "_" (ASSISTANT_LISTING_SCOPE).
func Load() (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:   v.GetString("gemini_api_key"),
		ChatModel:      v.GetString("chat_model"),
		EmbeddingModel: v.GetString("embedding_model"),
		DatabaseDriver: v.GetString("database_driver"),
		DatabaseURL:    v.GetString("database_url"),
		HTTPPort:       v.GetString("http_port"),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		LogFormat:      v.GetString("log_format"),
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Assistant: AssistantConfig{
			SemanticThreshold: v.GetFloat64("assistant.semantic_threshold"),
			HistoryLimit:      v.GetInt("assistant.history_limit"),
			ListingScope:      ListingScope(strings.ToLower(v.GetString("assistant.listing_scope"))),
			EmbedTimeout:      v.GetDuration("assistant.embed_timeout"),
			GenerateTimeout:   v.GetDuration("assistant.generate_timeout"),
		},
		Background: BackgroundConfig{
			Workers:     v.GetInt("background.workers"),
			QueueSize:   v.GetInt("background.queue_size"),
			MaxAttempts: v.GetInt("background.max_attempts"),
			TaskTimeout: v.GetDuration("background.task_timeout"),
		},
		Leads: LeadsConfig{
			SNSTopicARN: v.GetString("leads.sns_topic_arn"),
			AWSRegion:   v.GetString("leads.aws_region"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without. The ingest
// command also needs the API key, so it is required everywhere.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want sqlite3 or postgres)", c.DatabaseDriver)
	}
	switch c.Assistant.ListingScope {
	case ListingScopeOngoing, ListingScopeAll:
	default:
		return fmt.Errorf("invalid ASSISTANT_LISTING_SCOPE %q (want ongoing or all)", c.Assistant.ListingScope)
	}
	if c.Assistant.SemanticThreshold <= 0 || c.Assistant.SemanticThreshold > 1 {
		return fmt.Errorf("ASSISTANT_SEMANTIC_THRESHOLD must be in (0, 1], got %v", c.Assistant.SemanticThreshold)
	}
	if c.Background.Workers < 1 || c.Background.QueueSize < 1 {
		return fmt.Errorf("background workers and queue size must be positive")
	}
	if c.Background.MaxAttempts < 1 {
		c.Background.MaxAttempts = 1
	}
	return nil
}
