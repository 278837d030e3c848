// Package handlers contains Telegram bot command, callback and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/wordstats/internal/errs"
)

// AdminOnly creates a middleware that checks if the message sender is the configured admin user.
// If not, it sends a "Not Authorized" message and stops processing by returning early.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, bot, update)
				return
			}

			userID := update.Message.From.ID
			if userID == deps.Config.Telegram.AdminUserID {
				next(ctx, bot, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.logger(ctx, "middleware", "AdminOnly")
			err := errs.NewUnauthorizedError(fmt.Sprintf("user %d may not run admin commands", userID))
			log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID, "error", err)

			_, err = bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.ErrorUnauthorizedMsg,
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
			}
		}
	}
}
