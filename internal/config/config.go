package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Governor    GovernorConfig  `mapstructure:"governor"`
	Advisor     AdvisorConfig   `mapstructure:"advisor"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Security    SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	// Enabled false keeps the engine on the in-memory store, which is the
	// default for simulation runs.
	Enabled bool `mapstructure:"enabled"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type SchedulerConfig struct {
	// CycleInterval is the idle pause between scan cycles.
	CycleInterval string `mapstructure:"cycle_interval"`
	// ErrorBackoff is the longer pause after a failed cycle.
	ErrorBackoff string `mapstructure:"error_backoff"`
	Enabled      bool   `mapstructure:"enabled"`
}

type GovernorConfig struct {
	// CountOpenPositions switches the advisor concurrent-position governor
	// from the recent-trade proxy to counting actual open position rows.
	CountOpenPositions bool `mapstructure:"count_open_positions"`
}

type AdvisorConfig struct {
	APIKey  string `mapstructure:"api_key" json:"-" yaml:"-"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Timeout string `mapstructure:"timeout"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID   string `mapstructure:"chat_id"`
	// MinProfitPct is the profit percentage above which an opportunity is
	// pushed to the chat.
	MinProfitPct float64 `mapstructure:"min_profit_pct"`
}

type SecurityConfig struct {
	// CredentialKey encrypts broker credentials at rest. Any string works;
	// it is stretched to a cipher key.
	CredentialKey string `mapstructure:"credential_key" json:"-" yaml:"-"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("advisor.api_key", "ADVISOR_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ADVISOR_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("security.credential_key", "CREDENTIAL_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind CREDENTIAL_KEY environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	for name, value := range map[string]string{
		"scheduler.cycle_interval": config.Scheduler.CycleInterval,
		"scheduler.error_backoff":  config.Scheduler.ErrorBackoff,
		"advisor.timeout":          config.Advisor.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	return &config, nil
}

// Duration parses a pre-validated duration string.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "fxarb")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.enabled", false)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", false)

	// Scheduler
	viper.SetDefault("scheduler.cycle_interval", "1s")
	viper.SetDefault("scheduler.error_backoff", "5s")
	viper.SetDefault("scheduler.enabled", true)

	// Governor
	viper.SetDefault("governor.count_open_positions", false)

	// Advisor
	viper.SetDefault("advisor.api_key", "")
	viper.SetDefault("advisor.base_url", "https://api.anthropic.com")
	viper.SetDefault("advisor.model", "claude-3-5-sonnet-20241022")
	viper.SetDefault("advisor.timeout", "30s")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")
	viper.SetDefault("telegram.min_profit_pct", 0.01)

	// Security
	viper.SetDefault("security.credential_key", "")
}
