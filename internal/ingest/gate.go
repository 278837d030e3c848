package ingest

import (
	"strings"

	"github.com/edgard/wordstats/internal/database"
)

const commandPrefix = "/"

// Reason names why the gate denied an event. The zero value means allowed.
type Reason string

// Gate reasons, in rule order.
const (
	ReasonAllowed         Reason = ""
	ReasonNoSettings      Reason = "no_settings"
	ReasonCommand         Reason = "command"
	ReasonPhotoCaption    Reason = "photo_caption"
	ReasonVideoCaption    Reason = "video_caption"
	ReasonDocumentCaption Reason = "document_caption"
	ReasonGif             Reason = "gif"
	ReasonSticker         Reason = "sticker"
	ReasonChannelPost     Reason = "channel_post"
)

// Decision is the gate verdict.
type Decision struct {
	Reason Reason
}

// Allowed reports whether the event may be recorded.
func (d Decision) Allowed() bool {
	return d.Reason == ReasonAllowed
}

// ShouldIngest applies the chat's settings to ev. Rules are evaluated in
// order and the first match wins; a chat without settings is never recorded.
func ShouldIngest(ev Event, settings *database.ChatSettings) Decision {
	switch {
	case settings == nil:
		return Decision{Reason: ReasonNoSettings}
	case strings.HasPrefix(ev.Text, commandPrefix):
		return Decision{Reason: ReasonCommand}
	case settings.IgnorePhotoCaptions && ev.Attachment == AttachmentPhoto:
		return Decision{Reason: ReasonPhotoCaption}
	case settings.IgnoreVideoCaptions && ev.Attachment == AttachmentVideo:
		return Decision{Reason: ReasonVideoCaption}
	case settings.IgnoreDocumentCaptions && ev.Attachment == AttachmentDocument:
		return Decision{Reason: ReasonDocumentCaption}
	case settings.IgnoreGifs && ev.Attachment == AttachmentAnimation:
		return Decision{Reason: ReasonGif}
	case settings.IgnoreStickers && ev.Attachment == AttachmentSticker:
		return Decision{Reason: ReasonSticker}
	case settings.IgnoreChannelPosts && ev.ForwardedFromChannel:
		return Decision{Reason: ReasonChannelPost}
	}
	return Decision{}
}
