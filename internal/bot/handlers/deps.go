package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/wordstats/internal/config"
	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/ingest"
	"github.com/edgard/wordstats/internal/logger"
	"github.com/edgard/wordstats/internal/stats"
)

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Ingest *ingest.Service
	Stats  *stats.Service

	// Shutdown stops the bot. It is called by the /shutdown command.
	Shutdown context.CancelFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// dbContext bounds a store call with the configured timeout.
func (d HandlerDeps) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Config == nil || d.Config.Bot.DBTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Config.Bot.DBTimeout)
}

// logger returns the handler logger tagged with the update's trace id.
func (d HandlerDeps) logger(ctx context.Context, args ...any) *slog.Logger {
	log := d.Logger.With(args...)
	if id := logger.TraceID(ctx); id != "" {
		log = log.With("trace_id", id)
	}
	return log
}
