package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/wordstats/internal/errs"
	"github.com/edgard/wordstats/internal/tokenizer"
)

// maxSQLVars keeps multi-row inserts under SQLite's bind-variable limit.
const maxSQLVars = 500

// Writer holds the write operations. Store implements it directly and InTx
// hands out a transactional one.
type Writer interface {
	// UpsertUser inserts the user, or refreshes the handle and display name
	// when they changed. It never fails on an existing id.
	UpsertUser(ctx context.Context, u User) error

	// UpsertWords inserts every word whose id is not present yet.
	UpsertWords(ctx context.Context, words []string) error

	// RecordMessage inserts a message. An existing (chat, message) pair is a
	// *errs.DuplicateMessageError.
	RecordMessage(ctx context.Context, m Message) error

	// LinkWordsToMessage attaches word occurrences to a recorded message.
	LinkWordsToMessage(ctx context.Context, chatID int64, messageID int, words []tokenizer.WordCount) error

	// RecordMediaUsage stores the media metadata if it is new and always adds
	// a usage row for the message.
	RecordMediaUsage(ctx context.Context, u MediaUsage) error

	// DeleteMessage removes a message together with its word and media links.
	// It reports whether a message was removed.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) (bool, error)
}

// Store is the aggregation store: append-only facts plus aggregate reads.
type Store interface {
	Writer

	// InTx runs fn in one transaction, committing when it returns nil.
	InTx(ctx context.Context, fn func(w Writer) error) error

	GetChatSettings(ctx context.Context, chatID int64) (*ChatSettings, error)
	CreateChatSettings(ctx context.Context, s ChatSettings) (bool, error)
	DeleteChatSettings(ctx context.Context, chatID int64) (bool, error)
	UpdateChatSetting(ctx context.Context, chatID int64, name string, value bool) (bool, error)

	TopWords(ctx context.Context, q Query, limit int) ([]WordStat, error)
	TotalCharacters(ctx context.Context, q Query) (int64, bool, error)
	TopMedia(ctx context.Context, kind MediaKind, q Query, limit int) ([]MediaStat, error)
	DistinctUserCount(ctx context.Context, chatID int64) (int, error)
	PagedUsers(ctx context.Context, chatID int64, pageSize, offset int) ([]User, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance vacuums and optimizes the database file.
	RunSQLMaintenance(ctx context.Context) error

	// PruneOrphans deletes words and media metadata no recorded message refers
	// to any more. It returns the number of rows removed.
	PruneOrphans(ctx context.Context) (int64, error)
}

type sqlxStore struct {
	sqlxWriter
	db *sqlx.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "store")
	return &sqlxStore{
		sqlxWriter: sqlxWriter{ext: db, logger: logger},
		db:         db,
	}
}

func (s *sqlxStore) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return errs.NewStoreError("failed to begin transaction", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	if err := fn(&sqlxWriter{ext: tx, logger: s.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return errs.NewStoreError("failed to commit transaction", err)
	}
	return nil
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.NewStoreError("ping failed", err)
	}
	return nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context done before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return errs.NewStoreError("database maintenance (VACUUM) timed out", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return errs.NewStoreError("failed to execute VACUUM", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
		return errs.NewStoreError("failed to optimize database", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}

var pruneStatements = []string{
	`DELETE FROM words WHERE NOT EXISTS (SELECT 1 FROM message_words mw WHERE mw.word_id = words.word_id)`,
	`DELETE FROM animations WHERE NOT EXISTS (
		SELECT 1 FROM media_usages u WHERE u.kind = 'animation' AND u.content_id = animations.content_id)`,
	`DELETE FROM stickers WHERE NOT EXISTS (
		SELECT 1 FROM media_usages u WHERE u.kind = 'sticker' AND u.content_id = stickers.content_id)`,
}

func (s *sqlxStore) PruneOrphans(ctx context.Context) (int64, error) {
	var removed int64
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errs.NewStoreError("failed to begin transaction", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	for _, stmt := range pruneStatements {
		res, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to prune orphaned rows", "error", err)
			return 0, errs.NewStoreError("failed to prune orphaned rows", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errs.NewStoreError("failed to read affected rows", err)
		}
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, errs.NewStoreError("failed to commit transaction", err)
	}
	s.logger.InfoContext(ctx, "Pruned orphaned rows", "removed", removed)
	return removed, nil
}
