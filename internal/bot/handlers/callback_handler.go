package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/navigation"
	"github.com/edgard/wordstats/internal/stats"
)

// NewCallbackHandler returns the handler for inline keyboard presses. Every
// press carries a navigation token and moves the menu message one step.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.Handle
}

type callbackHandler struct {
	deps HandlerDeps
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.logger(ctx, "handler", "callback")

	cq := update.CallbackQuery
	if cq == nil {
		log.WarnContext(ctx, "Callback handler received update without callback query", "update_id", update.ID)
		return
	}

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err, "callback_id", cq.ID)
	}

	msg := cq.Message.Message
	if msg == nil {
		log.DebugContext(ctx, "Callback on inaccessible message, ignoring", "user_id", cq.From.ID)
		return
	}
	chatID := msg.Chat.ID

	dbCtx, cancel := h.deps.dbContext(ctx)
	defer cancel()

	reply, err := h.deps.Stats.HandleWizardStep(dbCtx, chatID, cq.Data)
	if err != nil {
		log.ErrorContext(ctx, "Failed to answer wizard step", "error", err, "chat_id", chatID, "token", cq.Data)
		h.edit(ctx, b, msg, h.deps.Config.Messages.ErrorGeneralMsg, nil)
		return
	}

	if reply.Menu != nil {
		h.edit(ctx, b, msg, Prompt(h.deps.Config.Messages, reply.State.Step()), Keyboard(reply.Menu.Rows))
		return
	}

	res := *reply.Result
	back := Keyboard([][]navigation.Choice{{navigation.BackChoice(reply.State)}})
	h.edit(ctx, b, msg, ResultText(h.deps.Config.Messages, res), back)
	h.sendMedia(ctx, b, chatID, res)
}

func (h callbackHandler) edit(ctx context.Context, b *bot.Bot, msg *models.Message, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		h.deps.logger(ctx, "handler", "callback").ErrorContext(ctx, "Failed to edit menu message",
			"error", err, "chat_id", msg.Chat.ID, "message_id", msg.ID)
	}
}

// sendMedia posts the ranked animations or stickers in order, using the
// file id of each one's representative usage.
func (h callbackHandler) sendMedia(ctx context.Context, b *bot.Bot, chatID int64, res stats.Result) {
	for i, m := range res.Media {
		file := &models.InputFileString{Data: m.FileID}

		var err error
		switch m.Kind {
		case database.MediaAnimation:
			_, err = b.SendAnimation(ctx, &bot.SendAnimationParams{
				ChatID:    chatID,
				Animation: file,
				Caption:   ResultRank(i, m.Count),
			})
		case database.MediaSticker:
			_, err = b.SendSticker(ctx, &bot.SendStickerParams{ChatID: chatID, Sticker: file})
		}
		if err != nil {
			h.deps.logger(ctx, "handler", "callback").ErrorContext(ctx, "Failed to send ranked media",
				"error", err, "chat_id", chatID, "kind", m.Kind, "content_id", m.ContentID)
		}
	}
}
