package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Outreach  OutreachConfig  `yaml:"outreach" mapstructure:"outreach"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Content   ContentConfig   `yaml:"content" mapstructure:"content"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Sender    SenderConfig    `yaml:"sender" mapstructure:"sender"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run journal backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// NotionConfig holds Notion API credentials and the database IDs of every table.
type NotionConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
	// SourceDB and DestinationDB are the working and archive tables for the active mode.
	SourceDB      string  `yaml:"source_db" mapstructure:"source_db"`
	DestinationDB string  `yaml:"destination_db" mapstructure:"destination_db"`
	MandatesDB    string  `yaml:"mandates_db" mapstructure:"mandates_db"`
	VenturesDB    string  `yaml:"ventures_db" mapstructure:"ventures_db"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	StatusAsText  bool    `yaml:"status_as_text" mapstructure:"status_as_text"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// OutreachConfig selects the operating mode and test-mode mail redirection.
type OutreachConfig struct {
	Mode      string `yaml:"mode" mapstructure:"mode"`
	TestMode  bool   `yaml:"test_mode" mapstructure:"test_mode"`
	TestEmail string `yaml:"test_email" mapstructure:"test_email"`
}

// CrawlConfig configures the website crawler.
type CrawlConfig struct {
	MaxInternalPages int      `yaml:"max_internal_pages" mapstructure:"max_internal_pages"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PriorityPaths    []string `yaml:"priority_paths" mapstructure:"priority_paths"`
	ExcludePaths     []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
	HostRate         float64  `yaml:"host_rate" mapstructure:"host_rate"`
	MaxBodyKB        int      `yaml:"max_body_kb" mapstructure:"max_body_kb"`
}

// ContentConfig bounds the usable-text gate.
type ContentConfig struct {
	MinWords int `yaml:"min_words" mapstructure:"min_words"`
	MaxWords int `yaml:"max_words" mapstructure:"max_words"`
}

// ScoringConfig configures prompt assembly and the send decision.
type ScoringConfig struct {
	PromptChars        int      `yaml:"prompt_chars" mapstructure:"prompt_chars"`
	MaxCounterparts    int      `yaml:"max_counterparts" mapstructure:"max_counterparts"`
	FitThreshold       int      `yaml:"fit_threshold" mapstructure:"fit_threshold"`
	NoteMaxChars       int      `yaml:"note_max_chars" mapstructure:"note_max_chars"`
	InvestorDropFields []string `yaml:"investor_drop_fields" mapstructure:"investor_drop_fields"`
}

// SMTPConfig holds mail submission settings. Security is "ssl" (implicit TLS),
// "starttls", or "none" for local relays; empty derives it from the port.
type SMTPConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	Security    string `yaml:"security" mapstructure:"security"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SenderConfig is the outreach identity used in mail headers and prompts.
type SenderConfig struct {
	Address      string `yaml:"address" mapstructure:"address"`
	DisplayName  string `yaml:"display_name" mapstructure:"display_name"`
	PersonaName  string `yaml:"persona_name" mapstructure:"persona_name"`
	Organization string `yaml:"organization" mapstructure:"organization"`
	Website      string `yaml:"website" mapstructure:"website"`
}

// ScheduleConfig configures the active-hours loop.
type ScheduleConfig struct {
	DelaySecs int      `yaml:"delay_secs" mapstructure:"delay_secs"`
	Jitter    float64  `yaml:"jitter" mapstructure:"jitter"`
	IdleSecs  int      `yaml:"idle_secs" mapstructure:"idle_secs"`
	Days      []string `yaml:"days" mapstructure:"days"`
	StartHour int      `yaml:"start_hour" mapstructure:"start_hour"`
	EndHour   int      `yaml:"end_hour" mapstructure:"end_hour"`
	Timezone  string   `yaml:"timezone" mapstructure:"timezone"`
}

// RetryConfig configures retries of row-store calls and the circuit breaker
// in front of the model.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	CircuitThreshold int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultPriorityPaths are fetched on every crawl regardless of link discovery.
var DefaultPriorityPaths = []string{
	"contact", "contact-us", "about", "about-us", "get-in-touch",
	"support", "help", "connect", "reach-us", "contacts",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.source_db", "")
	v.SetDefault("notion.destination_db", "")
	v.SetDefault("notion.mandates_db", "")
	v.SetDefault("notion.ventures_db", "")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("notion.status_as_text", false)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1500)
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("outreach.mode", "Ventures")
	v.SetDefault("outreach.test_mode", true)
	v.SetDefault("outreach.test_email", "")
	v.SetDefault("crawl.max_internal_pages", 5)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.priority_paths", DefaultPriorityPaths)
	v.SetDefault("crawl.exclude_paths", []string{"/blog/*", "/news/*", "/press/*", "/careers/*"})
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("crawl.host_rate", 2.0)
	v.SetDefault("crawl.max_body_kb", 1024)
	v.SetDefault("content.min_words", 10)
	v.SetDefault("content.max_words", 2000)
	v.SetDefault("scoring.prompt_chars", 3000)
	v.SetDefault("scoring.max_counterparts", 10)
	v.SetDefault("scoring.fit_threshold", 7)
	v.SetDefault("scoring.note_max_chars", 10000)
	v.SetDefault("scoring.investor_drop_fields", []string{"Total Funding Amount"})
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.security", "")
	v.SetDefault("smtp.timeout_secs", 30)
	v.SetDefault("sender.address", "")
	v.SetDefault("sender.display_name", "")
	v.SetDefault("sender.persona_name", "")
	v.SetDefault("sender.organization", "")
	v.SetDefault("sender.website", "")
	v.SetDefault("schedule.delay_secs", 600)
	v.SetDefault("schedule.jitter", 0.2)
	v.SetDefault("schedule.idle_secs", 300)
	v.SetDefault("schedule.days", []string{"Mon", "Tue", "Wed", "Thu", "Fri"})
	v.SetDefault("schedule.start_hour", 9)
	v.SetDefault("schedule.end_hour", 17)
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("retry.circuit_threshold", 3)
	v.SetDefault("retry.circuit_reset_secs", 900)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// CrawlTimeout is the per-page fetch timeout.
func (c CrawlConfig) CrawlTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout is the mail transport timeout.
func (c SMTPConfig) Timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
