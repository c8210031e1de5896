package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Vapi     VapiConfig     `yaml:"vapi" mapstructure:"vapi"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Campaign CampaignConfig `yaml:"campaign" mapstructure:"campaign"`
	Webhook  WebhookConfig  `yaml:"webhook" mapstructure:"webhook"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// VapiConfig holds the outbound calling platform credentials.
type VapiConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	PhoneNumberID string `yaml:"phone_number_id" mapstructure:"phone_number_id"`
	AssistantID   string `yaml:"assistant_id" mapstructure:"assistant_id"`
}

// SheetsConfig holds spreadsheet backend settings. AgentTabs routes result
// rows to per-agent tabs; unknown agents land on ResultsTab.
type SheetsConfig struct {
	Token         string            `yaml:"token" mapstructure:"token"`
	BaseURL       string            `yaml:"base_url" mapstructure:"base_url"`
	SpreadsheetID string            `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	CampaignTab   string            `yaml:"campaign_tab" mapstructure:"campaign_tab"`
	ResultsTab    string            `yaml:"results_tab" mapstructure:"results_tab"`
	AgentTabs     map[string]string `yaml:"agent_tabs" mapstructure:"agent_tabs"`
}

// CampaignConfig configures batch dispatch pacing.
type CampaignConfig struct {
	BatchSize         int `yaml:"batch_size" mapstructure:"batch_size"`
	BatchIntervalSecs int `yaml:"batch_interval_secs" mapstructure:"batch_interval_secs"`
	CallDelaySecs     int `yaml:"call_delay_secs" mapstructure:"call_delay_secs"`
}

// WebhookConfig configures inbound event handling.
type WebhookConfig struct {
	Secret             string `yaml:"secret" mapstructure:"secret"`
	PhoneCacheTTLHours int    `yaml:"phone_cache_ttl_hours" mapstructure:"phone_cache_ttl_hours"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
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
	v.SetDefault("store.driver", "sheets")
	v.SetDefault("store.sqlite_path", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("vapi.base_url", "https://api.vapi.ai")
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com/v4")
	v.SetDefault("sheets.campaign_tab", "Campaign")
	v.SetDefault("sheets.results_tab", "Results")
	v.SetDefault("campaign.batch_size", 10)
	v.SetDefault("campaign.batch_interval_secs", 60)
	v.SetDefault("campaign.call_delay_secs", 2)
	v.SetDefault("webhook.phone_cache_ttl_hours", 24)

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

// Validate checks the fields the given command mode actually uses. A config
// usable for status reporting may still be missing the calling credentials.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sheets":
		if c.Sheets.SpreadsheetID == "" {
			problems = append(problems, "sheets.spreadsheet_id is required")
		}
		if c.Sheets.Token == "" {
			problems = append(problems, "sheets.token is required")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, "store.driver must be sheets, sqlite, or postgres")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Vapi.Key == "" {
			problems = append(problems, "vapi.key is required")
		}
		if c.Vapi.PhoneNumberID == "" {
			problems = append(problems, "vapi.phone_number_id is required")
		}
		if c.Vapi.AssistantID == "" {
			problems = append(problems, "vapi.assistant_id is required")
		}
	case "migrate", "status", "enqueue":
		// Store checks above cover these.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
