package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/meeting-auditor/internal/detection"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. MEETING_AUDIT_LLM_PROVIDER
const EnvPrefix = "MEETING_AUDIT"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/meeting-auditor/")
	v.AddConfigPath("$HOME/.meeting-auditor")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromFile loads configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults; "none" disables the semantic oracle
	v.SetDefault("llm.provider", "none")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 512)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 512)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 512)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)

	// Detection defaults
	weights := detection.DefaultWeights()
	v.SetDefault("detection.keywords", detection.DefaultKeywords())
	v.SetDefault("detection.min_confidence", 0.2)
	v.SetDefault("detection.weights.keyword.weight", weights.Keyword.Weight)
	v.SetDefault("detection.weights.keyword.cap", weights.Keyword.Cap)
	v.SetDefault("detection.weights.date.weight", weights.Date.Weight)
	v.SetDefault("detection.weights.date.cap", weights.Date.Cap)
	v.SetDefault("detection.weights.time.weight", weights.Time.Weight)
	v.SetDefault("detection.weights.time.cap", weights.Time.Cap)
	v.SetDefault("detection.weights.name.weight", weights.Name.Weight)
	v.SetDefault("detection.weights.name.cap", weights.Name.Cap)

	// Oracle defaults
	v.SetDefault("oracle.timeout", "20s")
	v.SetDefault("oracle.max_concurrency", 4)
	v.SetDefault("oracle.rate_limit", 2.0)
	v.SetDefault("oracle.burst", 4)
	v.SetDefault("oracle.fallback_threshold", 0.3)
	v.SetDefault("oracle.max_prompt_size", 4000)

	// Context window defaults
	v.SetDefault("window.span", "2h")
	v.SetDefault("window.max_messages", 6)
	v.SetDefault("window.history_size", 200)

	// Reconciliation defaults
	v.SetDefault("reconcile.missing_threshold_oracle", 0.6)
	v.SetDefault("reconcile.missing_threshold_heuristic", 0.4)
	v.SetDefault("reconcile.time_tolerance", "30m")

	// Audit defaults
	v.SetDefault("audit.timezone", "UTC")
	v.SetDefault("audit.detail_limit", 3)
	v.SetDefault("audit.lookahead_days", 7)
	v.SetDefault("audit.ignored_senders", []string{})
	v.SetDefault("audit.ignored_chats", []string{})

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "168h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/verdict_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/meeting_audit")

	// Audit history defaults
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.type", "sqlite")
	v.SetDefault("history.sqlite_path", "/data/audit_history.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/meeting_audit")

	// Inputs and outputs
	v.SetDefault("messages.path", "messages.json")
	v.SetDefault("calendar.type", "ics")
	v.SetDefault("calendar.path", "")
	v.SetDefault("calendar.url", "")
	v.SetDefault("calendar.timeout", "30s")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.path", "")
	v.SetDefault("metrics.textfile", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
