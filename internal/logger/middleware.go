package logger

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

type traceKey struct{}

// TraceID returns the trace id Middleware attached to ctx, if any.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Middleware logs every update with a trace id and its processing time.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			traceID := uuid.NewString()
			ctx = context.WithValue(ctx, traceKey{}, traceID)

			logEntry := log.With("update_id", update.ID, "trace_id", traceID)
			logEntry = logEntry.With(updateAttrs(update)...)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

func updateAttrs(update *models.Update) []any {
	switch {
	case update.Message != nil:
		return messageAttrs("message", update.Message)

	case update.EditedMessage != nil:
		return messageAttrs("edited_message", update.EditedMessage)

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		attrs := []any{
			"update_type", "callback_query",
			"callback_query_id", cq.ID,
			"user_id", cq.From.ID,
			"data", cq.Data,
		}
		if cq.Message.Message != nil {
			attrs = append(attrs, "chat_id", cq.Message.Message.Chat.ID, "message_accessible", true)
		} else if cq.Message.InaccessibleMessage != nil {
			attrs = append(attrs, "chat_id", cq.Message.InaccessibleMessage.Chat.ID, "message_accessible", false)
		}
		return attrs

	case update.MyChatMember != nil:
		return []any{
			"update_type", "my_chat_member",
			"chat_id", update.MyChatMember.Chat.ID,
			"user_id", update.MyChatMember.From.ID,
		}

	default:
		return []any{"update_type", "other"}
	}
}

func messageAttrs(kind string, msg *models.Message) []any {
	attrs := []any{
		"update_type", kind,
		"message_id", msg.ID,
		"chat_id", msg.Chat.ID,
	}
	if msg.From != nil {
		attrs = append(attrs, "user_id", msg.From.ID)
	}
	if msg.Text != "" {
		attrs = append(attrs, "text_preview", truncateString(msg.Text, 50))
	}
	return attrs
}

// truncateString shortens s to at most maxLen runes.
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
