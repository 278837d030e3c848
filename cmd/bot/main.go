// Package main contains the entrypoint for the word statistics Telegram bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgard/wordstats/internal/bot"
	"github.com/edgard/wordstats/internal/bot/handlers"
	"github.com/edgard/wordstats/internal/bot/tasks"
	"github.com/edgard/wordstats/internal/config"
	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/health"
	"github.com/edgard/wordstats/internal/ingest"
	"github.com/edgard/wordstats/internal/logger"
	"github.com/edgard/wordstats/internal/stats"
	"github.com/edgard/wordstats/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exitCode = 1
	}
	stop()
	os.Exit(exitCode)
}

// flagBindings maps command line flags to configuration keys.
var flagBindings = map[string]string{
	"log-level":     "logger.level",
	"log-json":      "logger.json",
	"log-file":      "logger.file",
	"database-path": "database.path",
	"timezone":      "stats.timezone",
	"health-addr":   "health.address",
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "wordstats",
		Short:         "Telegram bot counting words, GIFs and stickers in group chats",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				slog.Error("Failed to load configuration", "path", cfgFile, "error", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "./config.yaml", "Path to configuration file")
	flags.String("log-level", v.GetString("logger.level"), "Log level (debug, info, warn, error)")
	flags.Bool("log-json", v.GetBool("logger.json"), "Emit JSON logs")
	flags.String("log-file", v.GetString("logger.file"), "Also write logs to this rotated file")
	flags.String("database-path", v.GetString("database.path"), "SQLite database path")
	flags.String("timezone", v.GetString("stats.timezone"), "IANA timezone used to align calendar ranges")
	flags.String("health-addr", v.GetString("health.address"), "Health endpoint listen address")
	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(newMigrateCmd(v))
	return rootCmd
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString("database.path")
			db, err := database.NewDB(path, database.Options{})
			if err != nil {
				slog.Error("Failed to migrate database", "path", path, "error", err)
				return err
			}
			database.CloseDB(db)
			slog.Info("Database is up to date", "path", path)
			return nil
		},
	}
}

// run initializes and starts all application components (logger, db, services,
// Telegram client, scheduler, health server) and blocks until shutdown.
func run(ctx context.Context, cfg *config.Config) error {
	log, logCloser, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return err
	}
	defer logCloser.Close()
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "file", cfg.Logger.File)

	db, err := database.NewDB(cfg.Database.Path, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Ingest: ingest.NewService(store, log),
		Stats: stats.NewService(store, stats.Config{
			TopLimit:   cfg.Stats.TopLimit,
			MediaLimit: cfg.Stats.MediaLimit,
			Location:   cfg.Stats.Location(),
		}, log),
		Shutdown: shutdown,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewUpdateHandler(hDeps)),
		tgbot.WithAllowedUpdates(tgbot.AllowedUpdates{"message", "edited_message", "callback_query", "my_chat_member"}),
		tgbot.WithHTTPClient(cfg.Telegram.PollTimeout, &http.Client{Timeout: cfg.Telegram.PollTimeout + 10*time.Second}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return err
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}
	if err := telegram.PublishCommands(ctx, tg, cmdHandlers); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, cfg.Stats.Location(), tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(cfg.Health.Address, health.NewHandler(store, log), log)
	}

	log.Info("Starting bot...")
	runErr := bot.NewBot(log, tg, sched, healthServer).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
