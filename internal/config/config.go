package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken        string           `yaml:"discord_token" envconfig:"DISCORD_TOKEN"`
	LogLevel            string           `yaml:"log_level" envconfig:"LOG_LEVEL"`
	DefaultModLog       string           `yaml:"default_mod_log_channel" envconfig:"DEFAULT_MOD_LOG_CHANNEL"`
	DefaultLanguage     string           `yaml:"default_language" envconfig:"DEFAULT_LANGUAGE"`
	RetentionDays       int              `yaml:"retention_days" envconfig:"RETENTION_DAYS"`
	SyncCommandsOnStart bool             `yaml:"sync_commands_on_start" envconfig:"SYNC_COMMANDS"`
	Database            DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	HTTP                HTTPConfig       `yaml:"http" envconfig:"HTTP"`
	Moderation          ModerationConfig `yaml:"moderation" envconfig:"MODERATION"`
	Notifications       NotifyConfig     `yaml:"notifications" envconfig:"NOTIFY"`
	Tracing             TracingConfig    `yaml:"tracing" envconfig:"TRACING"`
}

// Nested fields use split_words so their variables are always prefixed
// (DATABASE_PATH, MODERATION_GUARD_MAX_ACTIONS, ...). An explicit tag would
// also match the bare name, and PATH is always set.

type DatabaseConfig struct {
	Driver string `yaml:"driver" split_words:"true"`
	Path   string `yaml:"path" split_words:"true"`
	URL    string `yaml:"url" split_words:"true"`
}

// DSN is the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Addr    string `yaml:"addr" split_words:"true"`
}

type ModerationConfig struct {
	DefaultReasons     []string    `yaml:"default_reasons" split_words:"true"`
	MaxTimeoutDays     int         `yaml:"max_timeout_days" split_words:"true"`
	MaxSlowmodeSeconds int         `yaml:"max_slowmode_seconds" split_words:"true"`
	PurgeMax           int         `yaml:"purge_max" split_words:"true"`
	RestoreOnStart     bool        `yaml:"restore_on_start" split_words:"true"`
	LockdownDefault    string      `yaml:"lockdown_default_duration" split_words:"true"`
	Guard              GuardConfig `yaml:"guard" envconfig:"GUARD"`
}

type GuardConfig struct {
	Enabled       bool `yaml:"enabled" split_words:"true"`
	MaxActions    int  `yaml:"max_actions" split_words:"true"`
	WindowSeconds int  `yaml:"window_seconds" split_words:"true"`
}

type NotifyConfig struct {
	AuditToChannel bool        `yaml:"audit_to_channel" split_words:"true"`
	DMOnAction     bool        `yaml:"dm_on_action" split_words:"true"`
	EmbedColors    EmbedColors `yaml:"embed_colors" envconfig:"COLOR"`
}

type EmbedColors struct {
	Success    int `yaml:"success" split_words:"true"`
	Error      int `yaml:"error" split_words:"true"`
	Warning    int `yaml:"warning" split_words:"true"`
	Info       int `yaml:"info" split_words:"true"`
	Moderation int `yaml:"moderation" split_words:"true"`
	Voice      int `yaml:"voice" split_words:"true"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" split_words:"true"`
	ServiceName string `yaml:"service_name" split_words:"true"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:            "info",
		DefaultLanguage:     "en",
		RetentionDays:       30,
		SyncCommandsOnStart: true,
		Database:            DatabaseConfig{Driver: "sqlite", Path: "~/.keeper/keeper.db"},
		HTTP:                HTTPConfig{Enabled: false, Addr: ":8080"},
		Moderation: ModerationConfig{
			DefaultReasons:     []string{"Breaking server rules", "Spamming", "Disruptive behavior", "Toxicity"},
			MaxTimeoutDays:     28,
			MaxSlowmodeSeconds: 21600,
			PurgeMax:           100,
			RestoreOnStart:     true,
			LockdownDefault:    "15m",
			Guard:              GuardConfig{Enabled: true, MaxActions: 10, WindowSeconds: 60},
		},
		Notifications: NotifyConfig{
			AuditToChannel: true,
			DMOnAction:     true,
			EmbedColors: EmbedColors{
				Success:    0x57F287,
				Error:      0xED4245,
				Warning:    0xFEE75C,
				Info:       0x3498DB,
				Moderation: 0xEB459E,
				Voice:      0xF1C40F,
			},
		},
		Tracing: TracingConfig{Enabled: false, ServiceName: "keeper"},
	}
}

// Load reads CONFIG_PATH (default config.yaml) when present, then applies
// environment overrides. Unset variables keep the file values.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the bot cannot start without.
func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	return nil
}

func (c *Config) normalize() error {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "", "sqlite":
		c.Database.Driver = "sqlite"
		if c.Database.Path != ":memory:" {
			expanded, err := homedir.Expand(c.Database.Path)
			if err != nil {
				return fmt.Errorf("database path: %w", err)
			}
			c.Database.Path = expanded
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	c.DefaultLanguage = NormalizeLanguage(c.DefaultLanguage)
	if c.Moderation.MaxSlowmodeSeconds <= 0 || c.Moderation.MaxSlowmodeSeconds > 21600 {
		c.Moderation.MaxSlowmodeSeconds = 21600
	}
	if c.Moderation.MaxTimeoutDays <= 0 || c.Moderation.MaxTimeoutDays > 28 {
		c.Moderation.MaxTimeoutDays = 28
	}
	if c.Moderation.PurgeMax <= 0 || c.Moderation.PurgeMax > 100 {
		c.Moderation.PurgeMax = 100
	}
	if len(c.Moderation.DefaultReasons) == 0 {
		c.Moderation.DefaultReasons = []string{"No reason provided"}
	}
	return nil
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

func NormalizeLanguage(value string) string {
	switch strings.ToLower(value) {
	case "fr":
		return "fr"
	default:
		return "en"
	}
}
