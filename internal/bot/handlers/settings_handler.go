package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/ingest"
)

// NewSettingsHandler returns a handler for the /settings command.
//
//	/settings                     shows the current flags
//	/settings ignore_gifs on      changes one flag
//
// Only chat administrators and the bot admin may change flags.
func NewSettingsHandler(deps HandlerDeps) bot.HandlerFunc {
	return settingsHandler{deps}.Handle
}

type settingsHandler struct {
	deps HandlerDeps
}

func (h settingsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.logger(ctx, "handler", "settings")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Settings handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID
	msgs := h.deps.Config.Messages

	dbCtx, cancel := h.deps.dbContext(ctx)
	defer cancel()

	settings, err := h.deps.Store.GetChatSettings(dbCtx, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load chat settings", "error", err, "chat_id", chatID)
		sendText(ctx, b, log, chatID, msgs.ErrorGeneralMsg)
		return
	}
	if settings == nil {
		sendText(ctx, b, log, chatID, msgs.NotTrackedMsg)
		return
	}

	name, value, ok := parseSettingArgs(msg.Text)
	if !ok {
		sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.SettingsUsageMsg, describeSettings(*settings)))
		return
	}

	if !h.canChange(ctx, b, chatID, msg.From.ID) {
		log.WarnContext(ctx, "Settings change refused", "chat_id", chatID, "user_id", msg.From.ID, "setting", name)
		sendText(ctx, b, log, chatID, msgs.SettingsForbiddenMsg)
		return
	}

	if _, err := h.deps.Store.UpdateChatSetting(dbCtx, chatID, name, value); err != nil {
		log.ErrorContext(ctx, "Failed to update chat setting", "error", err, "chat_id", chatID, "setting", name)
		sendText(ctx, b, log, chatID, msgs.ErrorGeneralMsg)
		return
	}

	log.InfoContext(ctx, "Chat setting updated", "chat_id", chatID, "user_id", msg.From.ID, "setting", name, "value", value)
	sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.SettingsUpdatedMsg, name, onOff(value)))
}

// canChange reports whether userID administers chatID or is the bot admin.
func (h settingsHandler) canChange(ctx context.Context, b *bot.Bot, chatID, userID int64) bool {
	if userID == h.deps.Config.Telegram.AdminUserID {
		return true
	}
	member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: userID})
	if err != nil {
		h.deps.logger(ctx, "handler", "settings").WarnContext(ctx, "Failed to look up chat member",
			"error", err, "chat_id", chatID, "user_id", userID)
		return false
	}
	switch ingest.MembershipStatus(member.Type) {
	case ingest.StatusCreator, ingest.StatusAdministrator:
		return true
	default:
		return false
	}
}

// parseSettingArgs extracts "<name> <on|off>" from a /settings command.
func parseSettingArgs(text string) (string, bool, bool) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return "", false, false
	}
	name := strings.ToLower(fields[1])
	if !slices.Contains(database.SettingNames(), name) {
		return "", false, false
	}
	value, ok := parseSwitch(fields[2])
	if !ok {
		return "", false, false
	}
	return name, value, true
}

func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "yes", "true", "1":
		return true, true
	case "off", "no", "false", "0":
		return false, true
	default:
		return false, false
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func describeSettings(s database.ChatSettings) string {
	names := database.SettingNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, _ := s.Flag(name)
		parts = append(parts, name+"="+onOff(v))
	}
	return strings.Join(parts, ", ")
}
