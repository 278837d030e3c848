package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewShutdownHandler returns a handler for the admin-only /shutdown command.
// Commands older than the configured freshness window are ignored so that a
// /shutdown still queued from before a restart does not stop the bot again.
func NewShutdownHandler(deps HandlerDeps) bot.HandlerFunc {
	return shutdownHandler{deps}.Handle
}

type shutdownHandler struct {
	deps HandlerDeps
}

func (h shutdownHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.logger(ctx, "handler", "shutdown")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.ErrorContext(ctx, "Shutdown handler called with nil Message or From", "update_id", update.ID)
		return
	}

	age := h.deps.now().Sub(time.Unix(int64(msg.Date), 0))
	if age > h.deps.Config.Bot.ShutdownFreshness {
		log.WarnContext(ctx, "Ignoring stale shutdown command", "chat_id", msg.Chat.ID, "age", age)
		return
	}

	log.InfoContext(ctx, "Admin requested shutdown", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	sendText(ctx, b, log, msg.Chat.ID, h.deps.Config.Messages.ShutdownMsg)

	if h.deps.Shutdown != nil {
		h.deps.Shutdown()
	}
}
