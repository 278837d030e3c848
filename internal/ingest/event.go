// Package ingest decides which chat messages are recorded and writes the
// accepted ones to the aggregation store.
package ingest

import (
	"time"

	"github.com/edgard/wordstats/internal/database"
)

// AttachmentKind is the kind of media a message carries.
type AttachmentKind int

// Attachment kinds.
const (
	AttachmentNone AttachmentKind = iota
	AttachmentPhoto
	AttachmentVideo
	AttachmentDocument
	AttachmentAnimation
	AttachmentSticker
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentNone:
		return "none"
	case AttachmentPhoto:
		return "photo"
	case AttachmentVideo:
		return "video"
	case AttachmentDocument:
		return "document"
	case AttachmentAnimation:
		return "animation"
	case AttachmentSticker:
		return "sticker"
	default:
		return "unknown"
	}
}

// Event is a platform-neutral inbound message, new or edited.
type Event struct {
	MessageID   int
	Timestamp   time.Time
	ChatID      int64
	UserID      int64
	Username    string // empty when the author has no handle
	DisplayName string

	// Text is the message text, or the caption for media messages.
	Text string

	Attachment AttachmentKind
	// ContentID and FileID identify animation and sticker attachments.
	ContentID string
	FileID    string
	Animation *database.AnimationMeta
	Sticker   *database.StickerMeta

	ForwardedFromChannel bool
	Edited               bool
}

// MembershipStatus is the bot's new status in a chat.
type MembershipStatus string

// Membership statuses as reported by Telegram.
const (
	StatusCreator       MembershipStatus = "creator"
	StatusAdministrator MembershipStatus = "administrator"
	StatusMember        MembershipStatus = "member"
	StatusRestricted    MembershipStatus = "restricted"
	StatusLeft          MembershipStatus = "left"
	StatusBanned        MembershipStatus = "kicked"
)

// MembershipEvent reports a change of the bot's own membership in a chat.
type MembershipEvent struct {
	ChatID int64
	Status MembershipStatus
}
