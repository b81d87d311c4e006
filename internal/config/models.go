package config

import (
	"fmt"
	"time"

	"github.com/mikey/meeting-auditor/internal/detection"
	"github.com/mikey/meeting-auditor/internal/judge"
	"github.com/mikey/meeting-auditor/internal/reconcile"
	"github.com/mikey/meeting-auditor/internal/window"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI or a compatible endpoint
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OracleConfig controls calls to the semantic oracle
type OracleConfig struct {
	Timeout           time.Duration
	MaxConcurrency    int
	RateLimit         float64
	Burst             int
	FallbackThreshold float64
	MaxPromptSize     int
}

// AuditConfig holds the run-level audit settings
type AuditConfig struct {
	Timezone       string
	DetailLimit    int
	LookaheadDays  int
	IgnoredSenders []string
	IgnoredChats   []string
}

// CacheConfig configures the verdict cache
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// HistoryConfig configures persistence of audit reports
type HistoryConfig struct {
	Enabled    bool
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// CalendarConfig selects the calendar source
type CalendarConfig struct {
	Type    string
	Path    string
	URL     string
	Timeout time.Duration
}

// OutputConfig selects how reports are written
type OutputConfig struct {
	Format string
	Path   string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetDetection returns the keyword lists, weights and pruning threshold
func (c *Config) GetDetection() detection.Config {
	weight := func(name string) detection.SignalWeight {
		return detection.SignalWeight{
			Weight: c.GetFloat64("detection.weights." + name + ".weight"),
			Cap:    c.GetFloat64("detection.weights." + name + ".cap"),
		}
	}

	return detection.Config{
		Keywords:      c.v.GetStringMapStringSlice("detection.keywords"),
		MinConfidence: c.GetFloat64("detection.min_confidence"),
		Weights: detection.Weights{
			Keyword: weight("keyword"),
			Date:    weight("date"),
			Time:    weight("time"),
			Name:    weight("name"),
		},
	}
}

// GetOracle returns the oracle call settings
func (c *Config) GetOracle() (OracleConfig, error) {
	timeout, err := c.GetDuration("oracle.timeout")
	if err != nil {
		return OracleConfig{}, err
	}
	return OracleConfig{
		Timeout:           timeout,
		MaxConcurrency:    c.GetInt("oracle.max_concurrency"),
		RateLimit:         c.GetFloat64("oracle.rate_limit"),
		Burst:             c.GetInt("oracle.burst"),
		FallbackThreshold: c.GetFloat64("oracle.fallback_threshold"),
		MaxPromptSize:     c.GetInt("oracle.max_prompt_size"),
	}, nil
}

// GetJudge returns the judge configuration, including the verdict cache ttl
func (c *Config) GetJudge() (judge.Config, error) {
	oracle, err := c.GetOracle()
	if err != nil {
		return judge.Config{}, err
	}
	cache, err := c.GetCache()
	if err != nil {
		return judge.Config{}, err
	}
	loc, err := c.GetLocation()
	if err != nil {
		return judge.Config{}, err
	}

	return judge.Config{
		FallbackThreshold: oracle.FallbackThreshold,
		Timeout:           oracle.Timeout,
		RateLimit:         oracle.RateLimit,
		Burst:             oracle.Burst,
		MaxPromptSize:     oracle.MaxPromptSize,
		CacheTTL:          cache.TTL,
		Location:          loc,
	}, nil
}

// GetWindow returns the context window bounds
func (c *Config) GetWindow() (window.Config, error) {
	span, err := c.GetDuration("window.span")
	if err != nil {
		return window.Config{}, err
	}
	return window.Config{
		Span:        span,
		MaxMessages: c.GetInt("window.max_messages"),
	}, nil
}

// GetReconcile returns the matcher thresholds
func (c *Config) GetReconcile() (reconcile.Config, error) {
	tolerance, err := c.GetDuration("reconcile.time_tolerance")
	if err != nil {
		return reconcile.Config{}, err
	}
	return reconcile.Config{
		MissingThresholdOracle:    c.GetFloat64("reconcile.missing_threshold_oracle"),
		MissingThresholdHeuristic: c.GetFloat64("reconcile.missing_threshold_heuristic"),
		TimeTolerance:             tolerance,
	}, nil
}

// GetAudit returns the run-level audit settings
func (c *Config) GetAudit() AuditConfig {
	return AuditConfig{
		Timezone:       c.GetString("audit.timezone"),
		DetailLimit:    c.GetInt("audit.detail_limit"),
		LookaheadDays:  c.GetInt("audit.lookahead_days"),
		IgnoredSenders: c.GetStringSlice("audit.ignored_senders"),
		IgnoredChats:   c.GetStringSlice("audit.ignored_chats"),
	}
}

// GetLocation loads the configured audit time zone
func (c *Config) GetLocation() (*time.Location, error) {
	name := c.GetString("audit.timezone")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid audit.timezone %q: %w", name, err)
	}
	return loc, nil
}

// GetCache returns the verdict cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetHistory returns the audit history configuration
func (c *Config) GetHistory() HistoryConfig {
	return HistoryConfig{
		Enabled:    c.GetBool("history.enabled"),
		Type:       c.GetString("history.type"),
		SQLitePath: c.GetString("history.sqlite_path"),
		MySQLDSN:   c.GetString("history.mysql_dsn"),
	}
}

// GetCalendar returns the calendar source configuration
func (c *Config) GetCalendar() (CalendarConfig, error) {
	timeout, err := c.GetDuration("calendar.timeout")
	if err != nil {
		return CalendarConfig{}, err
	}
	return CalendarConfig{
		Type:    c.GetString("calendar.type"),
		Path:    c.GetString("calendar.path"),
		URL:     c.GetString("calendar.url"),
		Timeout: timeout,
	}, nil
}

// GetOutput returns the report output configuration
func (c *Config) GetOutput() OutputConfig {
	return OutputConfig{
		Format: c.GetString("output.format"),
		Path:   c.GetString("output.path"),
	}
}
