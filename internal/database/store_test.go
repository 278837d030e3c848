package database_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/errs"
	"github.com/edgard/wordstats/internal/timerange"
	"github.com/edgard/wordstats/internal/tokenizer"
)

const chatID int64 = -100123

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "stats.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	created, err := store.CreateChatSettings(context.Background(), database.DefaultChatSettings(chatID))
	require.NoError(t, err)
	require.True(t, created)
	return store
}

var base = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// say records a text message from user the same way ingestion does.
func say(t *testing.T, store database.Store, messageID int, userID int64, name string, at time.Time, text string) {
	t.Helper()

	counts := tokenizer.CountWords(tokenizer.Tokenize(text))
	require.NotEmpty(t, counts)

	err := store.InTx(context.Background(), func(w database.Writer) error {
		ctx := context.Background()
		if err := w.UpsertUser(ctx, database.User{ID: userID, DisplayName: name}); err != nil {
			return err
		}
		if err := w.RecordMessage(ctx, database.Message{ChatID: chatID, MessageID: messageID, UserID: userID, Timestamp: at}); err != nil {
			return err
		}
		if err := w.UpsertWords(ctx, tokenizer.Words(counts)); err != nil {
			return err
		}
		return w.LinkWordsToMessage(ctx, chatID, messageID, counts)
	})
	require.NoError(t, err)
}

func sticker(t *testing.T, store database.Store, messageID int, userID int64, contentID, fileID string) {
	t.Helper()

	err := store.InTx(context.Background(), func(w database.Writer) error {
		ctx := context.Background()
		if err := w.UpsertUser(ctx, database.User{ID: userID, DisplayName: "u"}); err != nil {
			return err
		}
		if err := w.RecordMessage(ctx, database.Message{ChatID: chatID, MessageID: messageID, UserID: userID, Timestamp: base}); err != nil {
			return err
		}
		return w.RecordMediaUsage(ctx, database.MediaUsage{
			Kind:      database.MediaSticker,
			ContentID: contentID,
			FileID:    fileID,
			ChatID:    chatID,
			MessageID: messageID,
			Sticker:   &database.StickerMeta{Width: 512, Height: 512, Emoji: sql.NullString{String: "🙂", Valid: true}},
		})
	})
	require.NoError(t, err)
}

func everything() database.Query {
	return database.Query{ChatID: chatID, Range: timerange.Range{Start: timerange.Min, End: timerange.Max}}
}

func TestTopWordsCountsOccurrences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "Hi there")
	say(t, store, 2, 10, "Ann", base.Add(time.Minute), "there!! HI hi")

	stats, err := store.TopWords(ctx, everything(), 20)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "hi", stats[0].Word)
	assert.EqualValues(t, 3, stats[0].Count)
	assert.Equal(t, "there", stats[1].Word)
	assert.EqualValues(t, 2, stats[1].Count)
}

func TestTopWordsTiesByWordID(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "alpha beta gamma")

	stats, err := store.TopWords(context.Background(), everything(), 20)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	for i := 1; i < len(stats); i++ {
		assert.Less(t, stats[i-1].WordID, stats[i].WordID)
	}

	limited, err := store.TopWords(context.Background(), everything(), 2)
	require.NoError(t, err)
	assert.Equal(t, stats[:2], limited)
}

func TestReadsFilterByUserAndRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "early")
	say(t, store, 2, 20, "Bob", base.Add(48*time.Hour), "late")

	bob := int64(20)
	stats, err := store.TopWords(ctx, database.Query{ChatID: chatID, UserID: &bob, Range: everything().Range}, 20)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "late", stats[0].Word)

	window := timerange.Range{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}
	stats, err = store.TopWords(ctx, database.Query{ChatID: chatID, Range: window}, 20)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "early", stats[0].Word)

	// End is exclusive.
	window = timerange.Range{Start: base.Add(-time.Hour), End: base}
	stats, err = store.TopWords(ctx, database.Query{ChatID: chatID, Range: window}, 20)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestReadsRangeWithSubsecondBounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "current")
	say(t, store, 2, 10, "Ann", base.Add(-24*time.Hour), "boundary")

	now := base.Add(500 * time.Millisecond)
	window, err := timerange.Resolve("last-day", now)
	require.NoError(t, err)

	stats, err := store.TopWords(ctx, database.Query{ChatID: chatID, Range: window}, 20)
	require.NoError(t, err)
	require.Len(t, stats, 1, "a message from the current second is inside, one before the start is not")
	assert.Equal(t, "current", stats[0].Word)

	window = timerange.Range{Start: base.Add(-24 * time.Hour), End: base.Add(-time.Millisecond)}
	stats, err = store.TopWords(ctx, database.Query{ChatID: chatID, Range: window}, 20)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "boundary", stats[0].Word)
}

func TestTotalCharacters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, ok, err := store.TotalCharacters(ctx, everything())
	require.NoError(t, err)
	assert.False(t, ok, "no data must differ from zero")

	say(t, store, 1, 10, "Ann", base, "héllo hi hi")

	total, ok, err := store.TotalCharacters(ctx, everything())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 5+2+2, total)
}

func TestRecordMessageRejectsDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "hello")

	err := store.RecordMessage(ctx, database.Message{ChatID: chatID, MessageID: 1, UserID: 10, Timestamp: base})
	require.Error(t, err)

	var dup *errs.DuplicateMessageError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, 1, dup.MessageID)
	assert.Equal(t, chatID, dup.ChatID)
}

func TestInTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(w database.Writer) error {
		require.NoError(t, w.UpsertUser(ctx, database.User{ID: 10, DisplayName: "Ann"}))
		require.NoError(t, w.RecordMessage(ctx, database.Message{ChatID: chatID, MessageID: 5, UserID: 10, Timestamp: base}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := store.DistinctUserCount(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteMessageCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "gone")
	sticker(t, store, 2, 10, "uniq-a", "file-a")

	removed, err := store.DeleteMessage(ctx, chatID, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeleteMessage(ctx, chatID, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	words, err := store.TopWords(ctx, everything(), 20)
	require.NoError(t, err)
	assert.Empty(t, words)

	media, err := store.TopMedia(ctx, database.MediaSticker, everything(), 10)
	require.NoError(t, err)
	assert.Empty(t, media)

	removed, err = store.DeleteMessage(ctx, chatID, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	// The same id can be recorded again once the prior record is gone.
	say(t, store, 1, 10, "Ann", base, "back")
}

func TestTopMediaRepresentativeIsEarliestUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	sticker(t, store, 7, 10, "uniq-a", "file-a-late")
	sticker(t, store, 3, 10, "uniq-a", "file-a-early")
	sticker(t, store, 5, 20, "uniq-b", "file-b")

	stats, err := store.TopMedia(ctx, database.MediaSticker, everything(), 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "uniq-a", stats[0].ContentID)
	assert.EqualValues(t, 2, stats[0].Count)
	assert.Equal(t, "file-a-early", stats[0].FileID)
	require.NotNil(t, stats[0].Sticker)
	assert.Equal(t, "🙂", stats[0].Sticker.Emoji.String)

	assert.Equal(t, "uniq-b", stats[1].ContentID)
	assert.EqualValues(t, 1, stats[1].Count)

	animations, err := store.TopMedia(ctx, database.MediaAnimation, everything(), 10)
	require.NoError(t, err)
	assert.Empty(t, animations)
}

func TestPagedUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "a")
	say(t, store, 2, 20, "Cid", base, "b")
	say(t, store, 3, 30, "Bob", base, "c")
	say(t, store, 4, 10, "Ann", base, "d")

	// A known user who never posted here is not listed.
	require.NoError(t, store.UpsertUser(ctx, database.User{ID: 40, DisplayName: "Zed"}))

	n, err := store.DistinctUserCount(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := store.PagedUsers(ctx, chatID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Cid", page[0].DisplayName)
	assert.Equal(t, "Bob", page[1].DisplayName)

	page, err = store.PagedUsers(ctx, chatID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Ann", page[0].DisplayName)
}

func TestUpsertUserRefreshesNames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "a")
	require.NoError(t, store.UpsertUser(ctx, database.User{
		ID:          10,
		Username:    sql.NullString{String: "annie", Valid: true},
		DisplayName: "Annie",
	}))
	require.NoError(t, store.UpsertUser(ctx, database.User{
		ID:          10,
		Username:    sql.NullString{String: "annie", Valid: true},
		DisplayName: "Annie",
	}))

	page, err := store.PagedUsers(ctx, chatID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Annie", page[0].DisplayName)
	assert.Equal(t, "annie", page[0].Username.String)
}

func TestChatSettingsLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	settings, err := store.GetChatSettings(ctx, chatID)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.True(t, settings.IgnoreChannelPosts)
	assert.False(t, settings.IgnoreGifs)

	created, err := store.CreateChatSettings(ctx, database.DefaultChatSettings(chatID))
	require.NoError(t, err)
	assert.False(t, created)

	found, err := store.UpdateChatSetting(ctx, chatID, database.SettingIgnoreGifs, true)
	require.NoError(t, err)
	assert.True(t, found)

	settings, err = store.GetChatSettings(ctx, chatID)
	require.NoError(t, err)
	assert.True(t, settings.IgnoreGifs)

	_, err = store.UpdateChatSetting(ctx, chatID, "ignore_everything; DROP TABLE users", true)
	assert.True(t, errs.Is(err, errs.CodeValidation))

	found, err = store.UpdateChatSetting(ctx, 1, database.SettingIgnoreGifs, true)
	require.NoError(t, err)
	assert.False(t, found)

	say(t, store, 1, 10, "Ann", base, "bye")

	deleted, err := store.DeleteChatSettings(ctx, chatID)
	require.NoError(t, err)
	assert.True(t, deleted)

	settings, err = store.GetChatSettings(ctx, chatID)
	require.NoError(t, err)
	assert.Nil(t, settings)

	n, err := store.DistinctUserCount(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordMessageRequiresTrackedChat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpsertUser(ctx, database.User{ID: 10, DisplayName: "Ann"}))
	err := store.RecordMessage(ctx, database.Message{ChatID: 999, MessageID: 1, UserID: 10, Timestamp: base})
	assert.True(t, errs.Is(err, errs.CodeStore))
}

func TestMaintenance(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.RunSQLMaintenance(context.Background()))
}

func TestPruneOrphans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	say(t, store, 1, 10, "Ann", base, "keep drop")
	say(t, store, 2, 10, "Ann", base, "keep")
	sticker(t, store, 3, 10, "s-1", "f-1")

	removed, err := store.PruneOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	for _, id := range []int{1, 3} {
		deleted, err := store.DeleteMessage(ctx, chatID, id)
		require.NoError(t, err)
		require.True(t, deleted)
	}

	removed, err = store.PruneOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed) // "drop" and the sticker

	stats, err := store.TopWords(ctx, everything(), 20)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "keep", stats[0].Word)
}
