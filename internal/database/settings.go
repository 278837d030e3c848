package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/edgard/wordstats/internal/errs"
)

// GetChatSettings returns the chat's settings, or nil if the chat is not tracked.
func (s *sqlxStore) GetChatSettings(ctx context.Context, chatID int64) (*ChatSettings, error) {
	var settings ChatSettings
	err := s.db.GetContext(ctx, &settings, `
        SELECT chat_id, ignore_photo_captions, ignore_video_captions, ignore_document_captions,
               ignore_gifs, ignore_stickers, ignore_channel_posts, created_at
        FROM chat_settings WHERE chat_id = ?`, chatID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No settings for chat", "chat_id", chatID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting chat settings", "chat_id", chatID, "error", err)
		return nil, errs.NewStoreError(fmt.Sprintf("failed to get settings for chat %d", chatID), err)
	}
	return &settings, nil
}

// CreateChatSettings starts tracking a chat. It reports false when the chat
// was already tracked, leaving its settings untouched.
func (s *sqlxStore) CreateChatSettings(ctx context.Context, settings ChatSettings) (bool, error) {
	if settings.CreatedAt == 0 {
		settings.CreatedAt = time.Now().UTC().Unix()
	}
	result, err := s.db.NamedExecContext(ctx, `
        INSERT INTO chat_settings (chat_id, ignore_photo_captions, ignore_video_captions, ignore_document_captions,
                                   ignore_gifs, ignore_stickers, ignore_channel_posts, created_at)
        VALUES (:chat_id, :ignore_photo_captions, :ignore_video_captions, :ignore_document_captions,
                :ignore_gifs, :ignore_stickers, :ignore_channel_posts, :created_at)
        ON CONFLICT (chat_id) DO NOTHING;
    `, settings)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating chat settings", "chat_id", settings.ChatID, "error", err)
		return false, errs.NewStoreError(fmt.Sprintf("failed to create settings for chat %d", settings.ChatID), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errs.NewStoreError("failed to read affected rows", err)
	}
	return affected > 0, nil
}

// DeleteChatSettings stops tracking a chat. Its recorded messages go with it.
func (s *sqlxStore) DeleteChatSettings(ctx context.Context, chatID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_settings WHERE chat_id = ?`, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting chat settings", "chat_id", chatID, "error", err)
		return false, errs.NewStoreError(fmt.Sprintf("failed to delete settings for chat %d", chatID), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errs.NewStoreError("failed to read affected rows", err)
	}
	return affected > 0, nil
}

// UpdateChatSetting sets one flag by name. It reports false when the chat is
// not tracked.
func (s *sqlxStore) UpdateChatSetting(ctx context.Context, chatID int64, name string, value bool) (bool, error) {
	// The column name is interpolated, so it must come from the fixed list.
	if !slices.Contains(SettingNames(), name) {
		return false, errs.NewValidationError(fmt.Sprintf("unknown setting %q", name), nil)
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE chat_settings SET %s = ? WHERE chat_id = ?`, name), value, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating chat setting", "chat_id", chatID, "setting", name, "error", err)
		return false, errs.NewStoreError(fmt.Sprintf("failed to update %s for chat %d", name, chatID), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errs.NewStoreError("failed to read affected rows", err)
	}
	return affected > 0, nil
}
