package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from YAML with
// ${VAR:default} environment expansion.
type Config struct {
	LinkedIn   LinkedInConfig   `yaml:"linkedin"`
	Automation AutomationConfig `yaml:"automation"`
	Comments   CommentsConfig   `yaml:"comments"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Stealth    StealthConfig    `yaml:"stealth"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	ErrorLog   ErrorLogConfig   `yaml:"error_log"`
}

// LinkedInConfig contains LinkedIn credentials.
type LinkedInConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// AutomationConfig drives the collector and the engagement runner.
type AutomationConfig struct {
	// SearchURL is the search-results or hashtag-feed page the collector scans.
	SearchURL string `yaml:"search_url"`
	// Quota is how many post URNs one collection run gathers.
	Quota int `yaml:"quota"`
	// PostAgeLimit caps how old a post may be ("1d", "1w", "2w", "1mo";
	// empty means not specified).
	PostAgeLimit string `yaml:"post_age_limit"`
	// ScrollWaitMs is the fixed wait after each bottom scroll.
	ScrollWaitMs int `yaml:"scroll_wait_ms"`
	// NoGrowthLimit is how many consecutive scrolls without page growth end
	// the run.
	NoGrowthLimit int `yaml:"no_growth_limit"`
	// GraceDelayMs is how long the automation window stays open after a run
	// completes.
	GraceDelayMs int `yaml:"grace_delay_ms"`
	// Delay bounds between engaging consecutive posts.
	MinDelaySeconds int `yaml:"min_delay_seconds"`
	MaxDelaySeconds int `yaml:"max_delay_seconds"`
}

// CommentsConfig holds the default comment-generation settings. They are
// copied into storage on first run and edited there afterwards.
type CommentsConfig struct {
	Goal      string `yaml:"goal"`
	Tone      string `yaml:"tone"`
	Length    string `yaml:"length"`
	Expertise string `yaml:"expertise"`
	Autopost  string `yaml:"autopost"`
}

// GeneratorConfig configures the OpenAI comment generator.
type GeneratorConfig struct {
	APIKey         string   `yaml:"api_key"`
	Model          string   `yaml:"model"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	DailyLimit     int      `yaml:"daily_limit"`
	// FallbackComments are used verbatim when generation fails.
	FallbackComments []string `yaml:"fallback_comments"`
}

// ScheduleConfig enables recurring automation cycles.
type ScheduleConfig struct {
	Enabled bool `yaml:"enabled"`
	// Cron is a standard 5-field cron expression.
	Cron string `yaml:"cron"`
}

// StealthConfig contains anti-detection settings.
type StealthConfig struct {
	Headless         bool `yaml:"headless"`
	MinActionDelayMs int  `yaml:"min_action_delay_ms"`
	MaxActionDelayMs int  `yaml:"max_action_delay_ms"`
	TypingSpeedMs    int  `yaml:"typing_speed_ms"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	ToFile   bool   `yaml:"to_file"`
	FilePath string `yaml:"file_path"`
}

// ErrorLogConfig points at the remote error-reporting endpoint. Empty URL
// disables reporting.
type ErrorLogConfig struct {
	URL string `yaml:"url"`
}

var globalConfig *Config

// Load reads the config file named by CONFIG_PATH (default
// ./config/config.yaml), expands environment variables and validates the
// result.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Parse unmarshals, expands and validates raw YAML config bytes.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Get returns the global configuration instance.
func Get() *Config {
	if globalConfig == nil {
		panic("configuration not loaded, call Load() first")
	}
	return globalConfig
}

func (c *Config) applyDefaults() {
	if c.Automation.Quota == 0 {
		c.Automation.Quota = 10
	}
	if c.Automation.ScrollWaitMs == 0 {
		c.Automation.ScrollWaitMs = 1500
	}
	if c.Automation.NoGrowthLimit == 0 {
		c.Automation.NoGrowthLimit = 5
	}
	if c.Automation.GraceDelayMs == 0 {
		c.Automation.GraceDelayMs = 3000
	}
	if c.Generator.Model == "" {
		c.Generator.Model = "gpt-4o-mini"
	}
	if c.Generator.TimeoutSeconds == 0 {
		c.Generator.TimeoutSeconds = 90
	}
	if c.Generator.DailyLimit == 0 {
		c.Generator.DailyLimit = 50
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/commentron.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

var validAgeLimits = map[string]bool{"": true, "1d": true, "1w": true, "2w": true, "1mo": true}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.LinkedIn.Email == "" {
		return fmt.Errorf("linkedin email is required")
	}
	if c.LinkedIn.Password == "" {
		return fmt.Errorf("linkedin password is required")
	}
	if c.Automation.SearchURL == "" {
		return fmt.Errorf("automation search_url is required")
	}
	if c.Automation.Quota <= 0 {
		return fmt.Errorf("automation quota must be positive")
	}
	if !validAgeLimits[c.Automation.PostAgeLimit] {
		return fmt.Errorf("invalid post_age_limit: %q (must be 1d, 1w, 2w, 1mo or empty)", c.Automation.PostAgeLimit)
	}
	if c.Automation.MinDelaySeconds < 0 {
		return fmt.Errorf("min_delay_seconds must be non-negative")
	}
	if c.Automation.MaxDelaySeconds < c.Automation.MinDelaySeconds {
		return fmt.Errorf("max_delay_seconds must be >= min_delay_seconds")
	}
	if c.Generator.APIKey == "" {
		return fmt.Errorf("generator api_key is required")
	}
	if c.Generator.DailyLimit <= 0 {
		return fmt.Errorf("generator daily_limit must be positive")
	}
	if c.Schedule.Enabled && c.Schedule.Cron == "" {
		return fmt.Errorf("schedule cron expression is required when schedule is enabled")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	return nil
}

// PostAgeLimitDuration converts the configured age-limit enum to a duration.
// Zero means not specified.
func (c *Config) PostAgeLimitDuration() time.Duration {
	switch c.Automation.PostAgeLimit {
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	case "2w":
		return 14 * 24 * time.Hour
	case "1mo":
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ScrollWait returns the collector's per-scroll wait.
func (c *Config) ScrollWait() time.Duration {
	return time.Duration(c.Automation.ScrollWaitMs) * time.Millisecond
}

// GraceDelay returns how long the automation window lingers after a run.
func (c *Config) GraceDelay() time.Duration {
	return time.Duration(c.Automation.GraceDelayMs) * time.Millisecond
}

// GetMinDelay returns the minimum delay between engagements.
func (c *Config) GetMinDelay() time.Duration {
	return time.Duration(c.Automation.MinDelaySeconds) * time.Second
}

// GetMaxDelay returns the maximum delay between engagements.
func (c *Config) GetMaxDelay() time.Duration {
	return time.Duration(c.Automation.MaxDelaySeconds) * time.Second
}

// GeneratorTimeout returns the generation call timeout.
func (c *Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutSeconds) * time.Second
}

// expandEnvVars expands environment variables in the format ${VAR} or
// ${VAR:default}.
func expandEnvVars(s string) string {
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := pattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
