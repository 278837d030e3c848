package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/wordstats/internal/errs"
)

// NewUpdateHandler returns the default handler. It feeds new and edited
// messages to the ingestion service and tracks the bot's own membership.
func NewUpdateHandler(deps HandlerDeps) bot.HandlerFunc {
	return updateHandler{deps}.Handle
}

type updateHandler struct {
	deps HandlerDeps
}

func (h updateHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.logger(ctx, "handler", "update")

	dbCtx, cancel := h.deps.dbContext(ctx)
	defer cancel()

	switch {
	case update.Message != nil:
		h.ingest(dbCtx, update.Message, false)
	case update.EditedMessage != nil:
		h.ingest(dbCtx, update.EditedMessage, true)
	case update.MyChatMember != nil:
		ev, _ := MembershipFromUpdate(update.MyChatMember)
		if err := h.deps.Ingest.HandleMembership(dbCtx, ev); err != nil {
			log.ErrorContext(ctx, "Failed to apply membership change", "error", err, "chat_id", ev.ChatID, "status", ev.Status)
		}
	default:
		log.DebugContext(ctx, "Ignoring unhandled update", "update_id", update.ID)
	}
}

func (h updateHandler) ingest(ctx context.Context, msg *models.Message, edited bool) {
	log := h.deps.logger(ctx, "handler", "update")

	ev, ok := EventFromMessage(msg, edited)
	if !ok {
		log.DebugContext(ctx, "Ignoring message without sender", "chat_id", msg.Chat.ID, "message_id", msg.ID)
		return
	}

	outcome, err := h.deps.Ingest.HandleIngestionEvent(ctx, ev)
	switch {
	case errs.Is(err, errs.CodeDuplicateMessage):
		log.ErrorContext(ctx, "Message delivered twice", "error", err, "chat_id", ev.ChatID, "message_id", ev.MessageID)
	case err != nil:
		log.ErrorContext(ctx, "Failed to ingest message", "error", err, "chat_id", ev.ChatID, "message_id", ev.MessageID)
	default:
		log.DebugContext(ctx, "Message processed", "chat_id", ev.ChatID, "message_id", ev.MessageID,
			"outcome", outcome.Kind.String(), "reason", string(outcome.Reason))
	}
}
