package handlers

import (
	"database/sql"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/ingest"
)

// EventFromMessage converts a Telegram message into an ingestion event.
// Messages without a sender, such as anonymous service messages, return false.
func EventFromMessage(msg *models.Message, edited bool) (ingest.Event, bool) {
	if msg == nil || msg.From == nil {
		return ingest.Event{}, false
	}

	ev := ingest.Event{
		MessageID:   msg.ID,
		Timestamp:   time.Unix(int64(msg.Date), 0).UTC(),
		ChatID:      msg.Chat.ID,
		UserID:      msg.From.ID,
		Username:    msg.From.Username,
		DisplayName: DisplayName(msg.From),
		Text:        msg.Text,
		Edited:      edited,
	}
	if ev.Text == "" {
		ev.Text = msg.Caption
	}
	if msg.ForwardOrigin != nil && msg.ForwardOrigin.Type == models.MessageOriginTypeChannel {
		ev.ForwardedFromChannel = true
	}

	// Telegram delivers GIFs with both Animation and Document set.
	switch {
	case len(msg.Photo) > 0:
		ev.Attachment = ingest.AttachmentPhoto
	case msg.Video != nil:
		ev.Attachment = ingest.AttachmentVideo
	case msg.Animation != nil:
		a := msg.Animation
		ev.Attachment = ingest.AttachmentAnimation
		ev.ContentID = a.FileUniqueID
		ev.FileID = a.FileID
		ev.Animation = &database.AnimationMeta{
			Duration: a.Duration,
			Width:    a.Width,
			Height:   a.Height,
			FileName: nullString(a.FileName),
			MimeType: nullString(a.MimeType),
		}
	case msg.Document != nil:
		ev.Attachment = ingest.AttachmentDocument
	case msg.Sticker != nil:
		s := msg.Sticker
		ev.Attachment = ingest.AttachmentSticker
		ev.ContentID = s.FileUniqueID
		ev.FileID = s.FileID
		ev.Sticker = &database.StickerMeta{
			Width:   s.Width,
			Height:  s.Height,
			SetName: nullString(s.SetName),
			Emoji:   nullString(s.Emoji),
		}
	}

	return ev, true
}

// MembershipFromUpdate converts a my_chat_member update into a membership event.
func MembershipFromUpdate(u *models.ChatMemberUpdated) (ingest.MembershipEvent, bool) {
	if u == nil {
		return ingest.MembershipEvent{}, false
	}
	return ingest.MembershipEvent{
		ChatID: u.Chat.ID,
		Status: ingest.MembershipStatus(u.NewChatMember.Type),
	}, true
}

// DisplayName joins a user's first and last name.
func DisplayName(u *models.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
