// Package config loads the bot configuration from a YAML file, WORDSTATS_*
// environment variables and built-in defaults, and validates it.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the complete application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Health    HealthConfig    `mapstructure:"health"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log level, format and the optional rotating file.
type LoggerConfig struct {
	Level         string `mapstructure:"level"          validate:"required,oneof=debug info warn error"`
	JSON          bool   `mapstructure:"json"`
	File          string `mapstructure:"file"`
	RotationHours int    `mapstructure:"rotation_hours" validate:"min=1"`
	MaxAgeDays    int    `mapstructure:"max_age_days"   validate:"min=1"`
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"         validate:"required"`
	AdminUserID int64         `mapstructure:"admin_user_id" validate:"required,gt=0"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"  validate:"min=1s"`

	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"              validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=1s"`
}

// BotConfig tunes handler behaviour.
type BotConfig struct {
	DBTimeout         time.Duration `mapstructure:"db_timeout"         validate:"min=100ms"`
	ShutdownFreshness time.Duration `mapstructure:"shutdown_freshness" validate:"min=1s"`
}

// StatsConfig tunes the stats wizard.
type StatsConfig struct {
	Timezone   string `mapstructure:"timezone"    validate:"required,timezone"`
	TopLimit   int    `mapstructure:"top_limit"   validate:"min=1,max=100"`
	MediaLimit int    `mapstructure:"media_limit" validate:"min=1,max=20"`
}

// Location returns the configured time zone.
func (s StatsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"omitempty,cron"`
}

// HealthConfig controls the HTTP health endpoint.
type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-facing text.
type MessagesConfig struct {
	StartMsg             string `mapstructure:"start"              validate:"required"`
	HelpMsg              string `mapstructure:"help"               validate:"required"`
	ErrorGeneralMsg      string `mapstructure:"error_general"      validate:"required"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized" validate:"required"`
	NotTrackedMsg        string `mapstructure:"not_tracked"        validate:"required"`
	ShutdownMsg          string `mapstructure:"shutdown"           validate:"required"`
	ChooseMetricMsg      string `mapstructure:"choose_metric"      validate:"required"`
	ChooseRangeMsg       string `mapstructure:"choose_range"       validate:"required"`
	ChooseScopeMsg       string `mapstructure:"choose_scope"       validate:"required"`
	ChooseUserMsg        string `mapstructure:"choose_user"        validate:"required"`
	NoDataMsg            string `mapstructure:"no_data"            validate:"required"`
	SettingsUsageMsg     string `mapstructure:"settings_usage"     validate:"required"`
	SettingsUpdatedMsg   string `mapstructure:"settings_updated"   validate:"required"`
	SettingsForbiddenMsg string `mapstructure:"settings_forbidden" validate:"required"`
}
