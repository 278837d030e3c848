package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/edgard/wordstats/internal/errs"
)

// messageFilter renders the WHERE clause shared by every aggregate read. The
// messages table must be aliased as m.
func messageFilter(q Query) (string, []any) {
	clauses := []string{"m.chat_id = ?"}
	args := []any{q.ChatID}
	if q.UserID != nil {
		clauses = append(clauses, "m.user_id = ?")
		args = append(args, *q.UserID)
	}
	if !q.Range.IsAll() {
		clauses = append(clauses, "m.timestamp >= ?", "m.timestamp < ?")
		args = append(args, ceilUnix(q.Range.Start), ceilUnix(q.Range.End))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// ceilUnix rounds t up to whole seconds. Timestamps are stored in seconds, so
// ts >= t and ts < t hold exactly when they hold against the rounded bound.
func ceilUnix(t time.Time) int64 {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	return sec
}

func (s *sqlxStore) TopWords(ctx context.Context, q Query, limit int) ([]WordStat, error) {
	where, args := messageFilter(q)
	query := fmt.Sprintf(`
        SELECT w.word_id, w.word, SUM(mw.occurrences) AS total
        FROM message_words mw
        JOIN messages m ON m.chat_id = mw.chat_id AND m.message_id = mw.message_id
        JOIN words w ON w.word_id = mw.word_id
        %s
        GROUP BY w.word_id, w.word
        ORDER BY total DESC, w.word_id ASC
        LIMIT ?;
    `, where)

	var stats []WordStat
	if err := s.db.SelectContext(ctx, &stats, query, append(args, limit)...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching top words", "chat_id", q.ChatID, "error", err)
		return nil, errs.NewStoreError(fmt.Sprintf("failed to get top words for chat %d", q.ChatID), err)
	}

	s.logger.DebugContext(ctx, "Fetched top words", "chat_id", q.ChatID, "count", len(stats))
	return stats, nil
}

func (s *sqlxStore) TotalCharacters(ctx context.Context, q Query) (int64, bool, error) {
	where, args := messageFilter(q)
	query := fmt.Sprintf(`
        SELECT SUM(length(w.word) * mw.occurrences)
        FROM message_words mw
        JOIN messages m ON m.chat_id = mw.chat_id AND m.message_id = mw.message_id
        JOIN words w ON w.word_id = mw.word_id
        %s;
    `, where)

	var total sql.NullInt64
	if err := s.db.GetContext(ctx, &total, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error summing characters", "chat_id", q.ChatID, "error", err)
		return 0, false, errs.NewStoreError(fmt.Sprintf("failed to count characters for chat %d", q.ChatID), err)
	}
	return total.Int64, total.Valid, nil
}

type animationStatRow struct {
	ContentID string `db:"content_id"`
	FileID    string `db:"file_id"`
	Total     int64  `db:"total"`
	AnimationMeta
}

type stickerStatRow struct {
	ContentID string `db:"content_id"`
	FileID    string `db:"file_id"`
	Total     int64  `db:"total"`
	StickerMeta
}

// rankedUsages numbers each content id's usages by message id so rn = 1 is
// the earliest one.
const rankedUsages = `
        WITH ranked AS (
            SELECT u.content_id, u.file_id,
                   COUNT(*) OVER (PARTITION BY u.content_id) AS total,
                   ROW_NUMBER() OVER (PARTITION BY u.content_id ORDER BY u.message_id ASC) AS rn
            FROM media_usages u
            JOIN messages m ON m.chat_id = u.chat_id AND m.message_id = u.message_id
            %s AND u.kind = ?
        )`

func (s *sqlxStore) TopMedia(ctx context.Context, kind MediaKind, q Query, limit int) ([]MediaStat, error) {
	where, args := messageFilter(q)
	args = append(args, string(kind), limit)

	var (
		stats []MediaStat
		err   error
	)
	switch kind {
	case MediaAnimation:
		query := fmt.Sprintf(rankedUsages, where) + `
        SELECT r.content_id, r.file_id, r.total,
               a.duration, a.width, a.height, a.file_name, a.mime_type
        FROM ranked r
        JOIN animations a ON a.content_id = r.content_id
        WHERE r.rn = 1
        ORDER BY r.total DESC, r.content_id ASC
        LIMIT ?;`
		var rows []animationStatRow
		if err = s.db.SelectContext(ctx, &rows, query, args...); err == nil {
			stats = make([]MediaStat, 0, len(rows))
			for _, r := range rows {
				meta := r.AnimationMeta
				stats = append(stats, MediaStat{
					Kind: kind, ContentID: r.ContentID, FileID: r.FileID, Count: r.Total, Animation: &meta,
				})
			}
		}
	case MediaSticker:
		query := fmt.Sprintf(rankedUsages, where) + `
        SELECT r.content_id, r.file_id, r.total,
               st.width, st.height, st.set_name, st.emoji
        FROM ranked r
        JOIN stickers st ON st.content_id = r.content_id
        WHERE r.rn = 1
        ORDER BY r.total DESC, r.content_id ASC
        LIMIT ?;`
		var rows []stickerStatRow
		if err = s.db.SelectContext(ctx, &rows, query, args...); err == nil {
			stats = make([]MediaStat, 0, len(rows))
			for _, r := range rows {
				meta := r.StickerMeta
				stats = append(stats, MediaStat{
					Kind: kind, ContentID: r.ContentID, FileID: r.FileID, Count: r.Total, Sticker: &meta,
				})
			}
		}
	default:
		return nil, errs.NewValidationError(fmt.Sprintf("unknown media kind %q", kind), nil)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching top media", "kind", kind, "chat_id", q.ChatID, "error", err)
		return nil, errs.NewStoreError(fmt.Sprintf("failed to get top %s for chat %d", kind, q.ChatID), err)
	}
	return stats, nil
}

func (s *sqlxStore) DistinctUserCount(ctx context.Context, chatID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT user_id) FROM messages WHERE chat_id = ?`, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error counting users", "chat_id", chatID, "error", err)
		return 0, errs.NewStoreError(fmt.Sprintf("failed to count users in chat %d", chatID), err)
	}
	return n, nil
}

func (s *sqlxStore) PagedUsers(ctx context.Context, chatID int64, pageSize, offset int) ([]User, error) {
	query := `
        SELECT u.user_id, u.username, u.display_name
        FROM users u
        WHERE u.user_id IN (SELECT DISTINCT user_id FROM messages WHERE chat_id = ?)
        ORDER BY u.display_name DESC, u.user_id ASC
        LIMIT ? OFFSET ?;
    `
	var users []User
	if err := s.db.SelectContext(ctx, &users, query, chatID, pageSize, offset); err != nil {
		s.logger.ErrorContext(ctx, "Error paging users", "chat_id", chatID, "offset", offset, "error", err)
		return nil, errs.NewStoreError(fmt.Sprintf("failed to page users in chat %d", chatID), err)
	}
	return users, nil
}
