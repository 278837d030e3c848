package ingest_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/errs"
	"github.com/edgard/wordstats/internal/ingest"
	"github.com/edgard/wordstats/internal/timerange"
)

const chatID int64 = -42

var now = time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*ingest.Service, database.Store) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "ingest.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	svc := ingest.NewService(store, nil)
	require.NoError(t, svc.HandleMembership(context.Background(), ingest.MembershipEvent{ChatID: chatID, Status: ingest.StatusMember}))
	return svc, store
}

func text(id int, body string) ingest.Event {
	return ingest.Event{
		MessageID:   id,
		Timestamp:   now,
		ChatID:      chatID,
		UserID:      7,
		DisplayName: "Ann",
		Text:        body,
	}
}

func topWords(t *testing.T, store database.Store) map[string]int64 {
	t.Helper()

	stats, err := store.TopWords(context.Background(), database.Query{
		ChatID: chatID,
		Range:  timerange.Range{Start: timerange.Min, End: timerange.Max},
	}, 20)
	require.NoError(t, err)

	out := make(map[string]int64, len(stats))
	for _, s := range stats {
		out[s.Word] = s.Count
	}
	return out
}

func TestIngestCountsWordsAcrossMessages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	out, err := svc.HandleIngestionEvent(ctx, text(1, "Hi there"))
	require.NoError(t, err)
	assert.Equal(t, ingest.OutcomeWords, out.Kind)
	assert.Equal(t, 2, out.Words)

	_, err = svc.HandleIngestionEvent(ctx, text(2, "there!! HI"))
	require.NoError(t, err)
	_, err = svc.HandleIngestionEvent(ctx, text(3, "bye"))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"hi": 2, "there": 2, "bye": 1}, topWords(t, store))
}

func TestIngestSkipsUntrackedChat(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	ev := text(1, "hello")
	ev.ChatID = 999
	out, err := svc.HandleIngestionEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, ingest.OutcomeSkipped, out.Kind)
	assert.Equal(t, ingest.ReasonNoSettings, out.Reason)
}

func TestIngestSkipsCommands(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)

	out, err := svc.HandleIngestionEvent(context.Background(), text(1, "/stats please"))
	require.NoError(t, err)
	assert.Equal(t, ingest.Skipped(ingest.ReasonCommand), out)
	assert.Empty(t, topWords(t, store))
}

func TestIngestNoWords(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)

	out, err := svc.HandleIngestionEvent(context.Background(), text(1, "https://example.com 123 !!"))
	require.NoError(t, err)
	assert.Equal(t, ingest.OutcomeNoWords, out.Kind)

	n, err := store.DistinctUserCount(context.Background(), chatID)
	require.NoError(t, err)
	assert.Zero(t, n, "a message without words is not recorded")
}

func TestIngestRejectsDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	_, err := svc.HandleIngestionEvent(ctx, text(1, "hello"))
	require.NoError(t, err)

	_, err = svc.HandleIngestionEvent(ctx, text(1, "hello again"))
	require.Error(t, err)
	var dup *errs.DuplicateMessageError
	assert.True(t, errors.As(err, &dup))

	assert.Equal(t, map[string]int64{"hello": 1}, topWords(t, store))
}

func TestIngestEditReplacesPriorRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	_, err := svc.HandleIngestionEvent(ctx, text(1, "teh cat"))
	require.NoError(t, err)

	edit := text(1, "the cat")
	edit.Edited = true
	out, err := svc.HandleIngestionEvent(ctx, edit)
	require.NoError(t, err)
	assert.True(t, out.Replaced)
	assert.Equal(t, map[string]int64{"the": 1, "cat": 1}, topWords(t, store))

	// Editing down to no words leaves the message removed.
	edit = text(1, "👍")
	edit.Edited = true
	out, err = svc.HandleIngestionEvent(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, ingest.OutcomeNoWords, out.Kind)
	assert.True(t, out.Replaced)
	assert.Empty(t, topWords(t, store))

	// An edit of a message never seen is recorded like a new one.
	edit = text(2, "fresh")
	edit.Edited = true
	out, err = svc.HandleIngestionEvent(ctx, edit)
	require.NoError(t, err)
	assert.False(t, out.Replaced)
	assert.Equal(t, map[string]int64{"fresh": 1}, topWords(t, store))

	// Editing into a command retires the prior words.
	edit = text(2, "/nevermind")
	edit.Edited = true
	out, err = svc.HandleIngestionEvent(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, ingest.OutcomeSkipped, out.Kind)
	assert.Equal(t, ingest.ReasonCommand, out.Reason)
	assert.True(t, out.Replaced)
	assert.Empty(t, topWords(t, store))
}

func TestIngestEditOfIgnoredCaptionRetiresPriorRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	photo := text(1, "sunset beach")
	photo.Attachment = ingest.AttachmentPhoto
	_, err := svc.HandleIngestionEvent(ctx, photo)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"sunset": 1, "beach": 1}, topWords(t, store))

	_, err = store.UpdateChatSetting(ctx, chatID, database.SettingIgnorePhotoCaptions, true)
	require.NoError(t, err)

	photo.Text = "sunrise beach"
	photo.Edited = true
	out, err := svc.HandleIngestionEvent(ctx, photo)
	require.NoError(t, err)
	assert.Equal(t, ingest.ReasonPhotoCaption, out.Reason)
	assert.True(t, out.Replaced)
	assert.Empty(t, topWords(t, store))

	// An untracked chat is never written to, edits included.
	other := text(5, "/cmd")
	other.ChatID = 999
	other.Edited = true
	out, err = svc.HandleIngestionEvent(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, ingest.Skipped(ingest.ReasonNoSettings), out)
}

func TestIngestMedia(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	gif := ingest.Event{
		MessageID:   10,
		Timestamp:   now,
		ChatID:      chatID,
		UserID:      7,
		DisplayName: "Ann",
		Text:        "caption is not counted",
		Attachment:  ingest.AttachmentAnimation,
		ContentID:   "uniq",
		FileID:      "file",
		Animation:   &database.AnimationMeta{Duration: 3, Width: 320, Height: 240},
	}
	out, err := svc.HandleIngestionEvent(ctx, gif)
	require.NoError(t, err)
	assert.Equal(t, ingest.OutcomeMedia, out.Kind)
	assert.Equal(t, database.MediaAnimation, out.Media)

	stats, err := store.TopMedia(ctx, database.MediaAnimation, database.Query{
		ChatID: chatID,
		Range:  timerange.Range{Start: timerange.Min, End: timerange.Max},
	}, 10)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "file", stats[0].FileID)
	assert.Equal(t, 3, stats[0].Animation.Duration)
	assert.Empty(t, topWords(t, store))

	_, err = svc.HandleIngestionEvent(ctx, ingest.Event{
		MessageID: 11, ChatID: chatID, UserID: 7, Timestamp: now, Attachment: ingest.AttachmentSticker,
	})
	assert.True(t, errs.Is(err, errs.CodeValidation), "media without identifiers is rejected")
}

func TestIngestHonoursSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	_, err := store.UpdateChatSetting(ctx, chatID, database.SettingIgnoreStickers, true)
	require.NoError(t, err)

	out, err := svc.HandleIngestionEvent(ctx, ingest.Event{
		MessageID: 1, ChatID: chatID, UserID: 7, Timestamp: now,
		Attachment: ingest.AttachmentSticker, ContentID: "c", FileID: "f",
	})
	require.NoError(t, err)
	assert.Equal(t, ingest.ReasonSticker, out.Reason)

	// Channel posts are ignored by default.
	ev := text(2, "forwarded news")
	ev.ForwardedFromChannel = true
	out, err = svc.HandleIngestionEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, ingest.ReasonChannelPost, out.Reason)
}

func TestHandleMembership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	require.NoError(t, svc.HandleMembership(ctx, ingest.MembershipEvent{ChatID: chatID, Status: ingest.StatusAdministrator}))
	settings, err := store.GetChatSettings(ctx, chatID)
	require.NoError(t, err)
	require.NotNil(t, settings)

	require.NoError(t, svc.HandleMembership(ctx, ingest.MembershipEvent{ChatID: chatID, Status: ingest.StatusRestricted}))
	settings, err = store.GetChatSettings(ctx, chatID)
	require.NoError(t, err)
	assert.NotNil(t, settings)

	require.NoError(t, svc.HandleMembership(ctx, ingest.MembershipEvent{ChatID: chatID, Status: ingest.StatusBanned}))
	settings, err = store.GetChatSettings(ctx, chatID)
	require.NoError(t, err)
	assert.Nil(t, settings)

	out, err := svc.HandleIngestionEvent(ctx, text(1, "hello"))
	require.NoError(t, err)
	assert.Equal(t, ingest.ReasonNoSettings, out.Reason)
}
