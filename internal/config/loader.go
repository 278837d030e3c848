package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/edgard/wordstats/internal/errs"
)

const envPrefix = "WORDSTATS"

var defaults = map[string]any{
	"logger.level":          "info",
	"logger.json":           false,
	"logger.file":           "",
	"logger.rotation_hours": 24,
	"logger.max_age_days":   7,

	"telegram.token":         "",
	"telegram.admin_user_id": 0,
	"telegram.poll_timeout":  "10s",

	"database.path":              "wordstats.db",
	"database.max_open_conns":    1,
	"database.conn_max_lifetime": "5m",

	"bot.db_timeout":         "10s",
	"bot.shutdown_freshness": "1m",

	"stats.timezone":    "UTC",
	"stats.top_limit":   20,
	"stats.media_limit": 10,

	"scheduler.tasks.sql_maintenance.enabled":  true,
	"scheduler.tasks.sql_maintenance.schedule": "0 4 * * 0",
	"scheduler.tasks.prune_orphans.enabled":    true,
	"scheduler.tasks.prune_orphans.schedule":   "30 3 * * *",

	"health.enabled": false,
	"health.address": ":8080",

	"messages.start":              "Hi! Add me to a group and I'll keep count of the words, GIFs and stickers people send. Use /stats there to see the numbers.",
	"messages.help":               "/stats - browse word, character, GIF and sticker stats\n/settings <name> <on|off> - choose what gets counted (chat admins)\n/help - this message",
	"messages.error_general":      "Something went wrong. Please try again later.",
	"messages.error_unauthorized": "You are not allowed to use this command.",
	"messages.not_tracked":        "I'm not tracking this chat.",
	"messages.shutdown":           "Shutting down.",
	"messages.choose_metric":      "What do you want to see?",
	"messages.choose_range":       "For which period?",
	"messages.choose_scope":       "For whom?",
	"messages.choose_user":        "Pick a user:",
	"messages.no_data":            "Nothing recorded for this selection.",
	"messages.settings_usage":     "Usage: /settings <name> <on|off>\nNames: %s",
	"messages.settings_updated":   "%s is now %s.",
	"messages.settings_forbidden": "Only chat administrators can change settings.",
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on v.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// ReadFile merges the YAML file at path into v. An empty path or a missing
// file leaves v unchanged.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return errs.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
		}
		slog.Info("Configuration file not found, using defaults and environment", "path", path)
	}
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	start := time.Now()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigError("failed to parse configuration", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"log_level", cfg.Logger.Level,
		"db_path", cfg.Database.Path,
		"timezone", cfg.Stats.Timezone,
		"tasks", len(cfg.Scheduler.Tasks),
		"duration", time.Since(start))
	return cfg, nil
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("cron", validateCron); err != nil {
		return errs.NewConfigError("failed to register cron validator", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return errs.NewConfigError("configuration validation failed", err)
	}

	for name, task := range cfg.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			return errs.NewConfigError(fmt.Sprintf("scheduler task %q is enabled without a schedule", name), nil)
		}
	}
	return nil
}

// validateCron accepts standard five-field expressions only.
func validateCron(fl validator.FieldLevel) bool {
	expr := fl.Field().String()
	if len(strings.Fields(expr)) != 5 {
		return false
	}
	gx := gronx.New()
	return gx.IsValid(expr)
}
