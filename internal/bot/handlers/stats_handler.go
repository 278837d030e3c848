package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/wordstats/internal/navigation"
)

// NewStatsHandler returns a handler for the /stats command, which opens the
// drill-down menu.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.logger(ctx, "handler", "stats")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /stats command", "chat_id", chatID, "user_id", update.Message.From.ID)

	dbCtx, cancel := h.deps.dbContext(ctx)
	defer cancel()

	settings, err := h.deps.Store.GetChatSettings(dbCtx, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load chat settings", "error", err, "chat_id", chatID)
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}
	if settings == nil {
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.NotTrackedMsg)
		return
	}

	reply, err := h.deps.Stats.HandleWizardStep(dbCtx, chatID, navigation.Encode(navigation.State{}))
	if err != nil || reply.Menu == nil {
		log.ErrorContext(ctx, "Failed to build root menu", "error", err, "chat_id", chatID)
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        Prompt(h.deps.Config.Messages, reply.State.Step()),
		ReplyMarkup: Keyboard(reply.Menu.Rows),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send stats menu", "error", err, "chat_id", chatID)
	}
}
