package database

import (
	"database/sql"
	"time"

	"github.com/edgard/wordstats/internal/timerange"
)

// ChatSettings is the per-chat ingestion policy. A row exists iff the chat is
// being tracked.
type ChatSettings struct {
	ChatID                 int64 `db:"chat_id"`
	IgnorePhotoCaptions    bool  `db:"ignore_photo_captions"`
	IgnoreVideoCaptions    bool  `db:"ignore_video_captions"`
	IgnoreDocumentCaptions bool  `db:"ignore_document_captions"`
	IgnoreGifs             bool  `db:"ignore_gifs"`
	IgnoreStickers         bool  `db:"ignore_stickers"`
	IgnoreChannelPosts     bool  `db:"ignore_channel_posts"`
	CreatedAt              int64 `db:"created_at"`
}

// DefaultChatSettings returns the settings a newly joined chat starts with.
func DefaultChatSettings(chatID int64) ChatSettings {
	return ChatSettings{ChatID: chatID, IgnoreChannelPosts: true}
}

// Flag returns the value of the named setting and whether the name is known.
func (s ChatSettings) Flag(name string) (bool, bool) {
	switch name {
	case SettingIgnorePhotoCaptions:
		return s.IgnorePhotoCaptions, true
	case SettingIgnoreVideoCaptions:
		return s.IgnoreVideoCaptions, true
	case SettingIgnoreDocumentCaptions:
		return s.IgnoreDocumentCaptions, true
	case SettingIgnoreGifs:
		return s.IgnoreGifs, true
	case SettingIgnoreStickers:
		return s.IgnoreStickers, true
	case SettingIgnoreChannelPosts:
		return s.IgnoreChannelPosts, true
	default:
		return false, false
	}
}

// Setting names accepted by UpdateChatSetting. They match the column names.
const (
	SettingIgnorePhotoCaptions    = "ignore_photo_captions"
	SettingIgnoreVideoCaptions    = "ignore_video_captions"
	SettingIgnoreDocumentCaptions = "ignore_document_captions"
	SettingIgnoreGifs             = "ignore_gifs"
	SettingIgnoreStickers         = "ignore_stickers"
	SettingIgnoreChannelPosts     = "ignore_channel_posts"
)

// SettingNames lists the toggleable flags.
func SettingNames() []string {
	return []string{
		SettingIgnorePhotoCaptions,
		SettingIgnoreVideoCaptions,
		SettingIgnoreDocumentCaptions,
		SettingIgnoreGifs,
		SettingIgnoreStickers,
		SettingIgnoreChannelPosts,
	}
}

// User is a message author.
type User struct {
	ID          int64          `db:"user_id"`
	Username    sql.NullString `db:"username"`
	DisplayName string         `db:"display_name"`
}

// Message is one recorded chat message. Timestamp is stored as unix seconds.
type Message struct {
	ChatID    int64     `db:"chat_id"`
	MessageID int       `db:"message_id"`
	UserID    int64     `db:"user_id"`
	Timestamp time.Time `db:"-"`
}

// MediaKind tells animations and stickers apart.
type MediaKind string

// Media kinds, stored verbatim in media_usages.kind.
const (
	MediaAnimation MediaKind = "animation"
	MediaSticker   MediaKind = "sticker"
)

// AnimationMeta is the metadata kept for an animation.
type AnimationMeta struct {
	Duration int            `db:"duration"`
	Width    int            `db:"width"`
	Height   int            `db:"height"`
	FileName sql.NullString `db:"file_name"`
	MimeType sql.NullString `db:"mime_type"`
}

// StickerMeta is the metadata kept for a sticker.
type StickerMeta struct {
	Width   int            `db:"width"`
	Height  int            `db:"height"`
	SetName sql.NullString `db:"set_name"`
	Emoji   sql.NullString `db:"emoji"`
}

// MediaUsage records one send of an animation or sticker. Exactly one of
// Animation and Sticker is set, matching Kind.
type MediaUsage struct {
	Kind      MediaKind
	ContentID string
	FileID    string
	ChatID    int64
	MessageID int
	Animation *AnimationMeta
	Sticker   *StickerMeta
}

// WordStat is one row of a top-words ranking.
type WordStat struct {
	WordID int64  `db:"word_id"`
	Word   string `db:"word"`
	Count  int64  `db:"total"`
}

// MediaStat is one row of a top-media ranking. FileID and the metadata come
// from the usage with the smallest message id.
type MediaStat struct {
	Kind      MediaKind
	ContentID string
	FileID    string
	Count     int64
	Animation *AnimationMeta
	Sticker   *StickerMeta
}

// Query selects the facts a read aggregates over. A nil UserID means every
// user of the chat.
type Query struct {
	ChatID int64
	UserID *int64
	Range  timerange.Range
}
