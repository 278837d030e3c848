package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/wordstats/internal/errs"
	"github.com/edgard/wordstats/internal/tokenizer"
)

// sqlxWriter runs the write operations on either the pool or a transaction.
type sqlxWriter struct {
	ext    sqlx.ExtContext
	logger *slog.Logger
}

// UpsertUser inserts u if absent. Unlike a plain insert-if-absent it also
// refreshes the handle and display name of an existing user; it never fails
// on an existing id.
func (w *sqlxWriter) UpsertUser(ctx context.Context, u User) error {
	query := `
        INSERT INTO users (user_id, username, display_name)
        VALUES (:user_id, :username, :display_name)
        ON CONFLICT (user_id) DO UPDATE SET
            username = excluded.username,
            display_name = excluded.display_name
        WHERE users.username IS NOT excluded.username
           OR users.display_name IS NOT excluded.display_name;
    `
	if _, err := sqlx.NamedExecContext(ctx, w.ext, query, u); err != nil {
		w.logger.ErrorContext(ctx, "Error upserting user", "user_id", u.ID, "error", err)
		return errs.NewStoreError(fmt.Sprintf("failed to upsert user %d", u.ID), err)
	}
	return nil
}

func (w *sqlxWriter) UpsertWords(ctx context.Context, words []string) error {
	seen := make(map[int64]struct{}, len(words))
	ids := make([]int64, 0, len(words))
	texts := make([]string, 0, len(words))
	for _, word := range words {
		id := tokenizer.WordID(word)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		texts = append(texts, word)
	}

	const cols = 2
	for start := 0; start < len(ids); start += maxSQLVars / cols {
		end := min(start+maxSQLVars/cols, len(ids))
		args := make([]any, 0, (end-start)*cols)
		for i := start; i < end; i++ {
			args = append(args, ids[i], texts[i])
		}
		query := "INSERT INTO words (word_id, word) VALUES " + valuesPlaceholders(end-start, cols) +
			" ON CONFLICT DO NOTHING;"
		if _, err := w.ext.ExecContext(ctx, query, args...); err != nil {
			w.logger.ErrorContext(ctx, "Error upserting words", "count", end-start, "error", err)
			return errs.NewStoreError("failed to upsert words", err)
		}
	}
	return nil
}

func (w *sqlxWriter) RecordMessage(ctx context.Context, m Message) error {
	var exists int
	err := sqlx.GetContext(ctx, w.ext, &exists,
		`SELECT 1 FROM messages WHERE chat_id = ? AND message_id = ? LIMIT 1`, m.ChatID, m.MessageID)
	switch {
	case err == nil:
		w.logger.ErrorContext(ctx, "Message already recorded", "chat_id", m.ChatID, "message_id", m.MessageID)
		return errs.NewDuplicateMessageError(m.ChatID, m.MessageID)
	case !errors.Is(err, sql.ErrNoRows):
		w.logger.ErrorContext(ctx, "Error checking message existence",
			"chat_id", m.ChatID, "message_id", m.MessageID, "error", err)
		return errs.NewStoreError("failed to check message existence", err)
	}

	_, err = w.ext.ExecContext(ctx,
		`INSERT INTO messages (chat_id, message_id, user_id, timestamp) VALUES (?, ?, ?, ?)`,
		m.ChatID, m.MessageID, m.UserID, m.Timestamp.Unix())
	if err != nil {
		w.logger.ErrorContext(ctx, "Error recording message",
			"chat_id", m.ChatID, "message_id", m.MessageID, "error", err)
		return errs.NewStoreError(fmt.Sprintf("failed to record message %d in chat %d", m.MessageID, m.ChatID), err)
	}
	return nil
}

func (w *sqlxWriter) LinkWordsToMessage(ctx context.Context, chatID int64, messageID int, words []tokenizer.WordCount) error {
	const cols = 4
	for start := 0; start < len(words); start += maxSQLVars / cols {
		end := min(start+maxSQLVars/cols, len(words))
		args := make([]any, 0, (end-start)*cols)
		for _, wc := range words[start:end] {
			args = append(args, chatID, messageID, wc.ID, wc.Occurrences)
		}
		query := "INSERT INTO message_words (chat_id, message_id, word_id, occurrences) VALUES " +
			valuesPlaceholders(end-start, cols) + ";"
		if _, err := w.ext.ExecContext(ctx, query, args...); err != nil {
			w.logger.ErrorContext(ctx, "Error linking words to message",
				"chat_id", chatID, "message_id", messageID, "error", err)
			return errs.NewStoreError(fmt.Sprintf("failed to link words to message %d", messageID), err)
		}
	}
	return nil
}

type animationRow struct {
	ContentID string `db:"content_id"`
	AnimationMeta
}

type stickerRow struct {
	ContentID string `db:"content_id"`
	StickerMeta
}

func (w *sqlxWriter) RecordMediaUsage(ctx context.Context, u MediaUsage) error {
	var (
		query string
		arg   any
	)
	switch u.Kind {
	case MediaAnimation:
		meta := AnimationMeta{}
		if u.Animation != nil {
			meta = *u.Animation
		}
		query = `
            INSERT INTO animations (content_id, duration, width, height, file_name, mime_type)
            VALUES (:content_id, :duration, :width, :height, :file_name, :mime_type)
            ON CONFLICT (content_id) DO NOTHING;
        `
		arg = animationRow{ContentID: u.ContentID, AnimationMeta: meta}
	case MediaSticker:
		meta := StickerMeta{}
		if u.Sticker != nil {
			meta = *u.Sticker
		}
		query = `
            INSERT INTO stickers (content_id, width, height, set_name, emoji)
            VALUES (:content_id, :width, :height, :set_name, :emoji)
            ON CONFLICT (content_id) DO NOTHING;
        `
		arg = stickerRow{ContentID: u.ContentID, StickerMeta: meta}
	default:
		return errs.NewValidationError(fmt.Sprintf("unknown media kind %q", u.Kind), nil)
	}

	if _, err := sqlx.NamedExecContext(ctx, w.ext, query, arg); err != nil {
		w.logger.ErrorContext(ctx, "Error storing media metadata", "kind", u.Kind, "content_id", u.ContentID, "error", err)
		return errs.NewStoreError(fmt.Sprintf("failed to store %s metadata", u.Kind), err)
	}

	_, err := w.ext.ExecContext(ctx,
		`INSERT INTO media_usages (kind, content_id, chat_id, message_id, file_id) VALUES (?, ?, ?, ?, ?)`,
		string(u.Kind), u.ContentID, u.ChatID, u.MessageID, u.FileID)
	if err != nil {
		w.logger.ErrorContext(ctx, "Error recording media usage",
			"kind", u.Kind, "chat_id", u.ChatID, "message_id", u.MessageID, "error", err)
		return errs.NewStoreError(fmt.Sprintf("failed to record %s usage", u.Kind), err)
	}
	return nil
}

func (w *sqlxWriter) DeleteMessage(ctx context.Context, chatID int64, messageID int) (bool, error) {
	result, err := w.ext.ExecContext(ctx,
		`DELETE FROM messages WHERE chat_id = ? AND message_id = ?`, chatID, messageID)
	if err != nil {
		w.logger.ErrorContext(ctx, "Error deleting message", "chat_id", chatID, "message_id", messageID, "error", err)
		return false, errs.NewStoreError(fmt.Sprintf("failed to delete message %d", messageID), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errs.NewStoreError("failed to read affected rows", err)
	}
	return affected > 0, nil
}

// valuesPlaceholders renders "(?,?),(?,?)" for rows of cols columns.
func valuesPlaceholders(rows, cols int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", cols), ",") + ")"
	return strings.TrimSuffix(strings.Repeat(row+",", rows), ",")
}
