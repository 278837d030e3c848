package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/errs"
	"github.com/edgard/wordstats/internal/tokenizer"
)

// OutcomeKind classifies what HandleIngestionEvent did.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeSkipped OutcomeKind = iota
	OutcomeWords
	OutcomeMedia
	OutcomeNoWords
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeWords:
		return "recorded_words"
	case OutcomeMedia:
		return "recorded_media"
	case OutcomeNoWords:
		return "no_words"
	default:
		return "unknown"
	}
}

// Outcome reports the result of one ingestion event.
// Reason is set for skipped events, Words counts the distinct words linked.
// Replaced is true when an edit removed a prior record, including a denied edit.
type Outcome struct {
	Kind     OutcomeKind
	Reason   Reason
	Words    int
	Media    database.MediaKind
	Replaced bool
}

// Skipped builds the outcome of a denied event.
func Skipped(reason Reason) Outcome { return Outcome{Kind: OutcomeSkipped, Reason: reason} }

// Service records gated events into the store.
type Service struct {
	store  database.Store
	logger *slog.Logger
}

// NewService creates an ingestion service.
func NewService(store database.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, logger: logger.With("component", "ingest")}
}

// HandleIngestionEvent gates ev and records it. Everything written for one
// event, including the removal of the prior record of an edited message,
// happens in one transaction. A message id recorded twice outside an edit
// returns an *errs.DuplicateMessageError.
func (s *Service) HandleIngestionEvent(ctx context.Context, ev Event) (Outcome, error) {
	settings, err := s.store.GetChatSettings(ctx, ev.ChatID)
	if err != nil {
		return Outcome{}, err
	}

	decision := ShouldIngest(ev, settings)
	if !decision.Allowed() {
		s.logger.DebugContext(ctx, "Event skipped",
			"chat_id", ev.ChatID, "message_id", ev.MessageID, "reason", decision.Reason)
		if ev.Edited && decision.Reason != ReasonNoSettings {
			return s.retire(ctx, ev, decision.Reason)
		}
		return Skipped(decision.Reason), nil
	}

	var outcome Outcome
	err = s.store.InTx(ctx, func(w database.Writer) error {
		replaced := false
		if ev.Edited {
			removed, err := w.DeleteMessage(ctx, ev.ChatID, ev.MessageID)
			if err != nil {
				return err
			}
			replaced = removed
		}

		var err error
		switch ev.Attachment {
		case AttachmentAnimation, AttachmentSticker:
			outcome, err = s.recordMedia(ctx, w, ev)
		default:
			outcome, err = s.recordWords(ctx, w, ev)
		}
		outcome.Replaced = replaced
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to ingest event",
			"chat_id", ev.ChatID, "message_id", ev.MessageID, "edited", ev.Edited, "error", err)
		return Outcome{}, err
	}

	s.logger.DebugContext(ctx, "Event ingested",
		"chat_id", ev.ChatID, "message_id", ev.MessageID, "outcome", outcome.Kind, "words", outcome.Words)
	return outcome, nil
}

// retire removes the prior record of a message whose edited content is no
// longer recorded.
func (s *Service) retire(ctx context.Context, ev Event, reason Reason) (Outcome, error) {
	outcome := Skipped(reason)
	err := s.store.InTx(ctx, func(w database.Writer) error {
		removed, err := w.DeleteMessage(ctx, ev.ChatID, ev.MessageID)
		outcome.Replaced = removed
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to retire edited message",
			"chat_id", ev.ChatID, "message_id", ev.MessageID, "error", err)
		return Outcome{}, err
	}
	if outcome.Replaced {
		s.logger.DebugContext(ctx, "Retired edited message", "chat_id", ev.ChatID, "message_id", ev.MessageID, "reason", reason)
	}
	return outcome, nil
}

func (s *Service) recordWords(ctx context.Context, w database.Writer, ev Event) (Outcome, error) {
	counts := tokenizer.CountWords(tokenizer.Tokenize(ev.Text))
	if len(counts) == 0 {
		return Outcome{Kind: OutcomeNoWords}, nil
	}

	if err := s.recordMessage(ctx, w, ev); err != nil {
		return Outcome{}, err
	}
	if err := w.UpsertWords(ctx, tokenizer.Words(counts)); err != nil {
		return Outcome{}, err
	}
	if err := w.LinkWordsToMessage(ctx, ev.ChatID, ev.MessageID, counts); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeWords, Words: len(counts)}, nil
}

func (s *Service) recordMedia(ctx context.Context, w database.Writer, ev Event) (Outcome, error) {
	kind := database.MediaAnimation
	if ev.Attachment == AttachmentSticker {
		kind = database.MediaSticker
	}
	if ev.ContentID == "" || ev.FileID == "" {
		return Outcome{}, errs.NewValidationError(fmt.Sprintf("%s event %d has no file identifiers", kind, ev.MessageID), nil)
	}

	if err := s.recordMessage(ctx, w, ev); err != nil {
		return Outcome{}, err
	}
	err := w.RecordMediaUsage(ctx, database.MediaUsage{
		Kind:      kind,
		ContentID: ev.ContentID,
		FileID:    ev.FileID,
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		Animation: ev.Animation,
		Sticker:   ev.Sticker,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeMedia, Media: kind}, nil
}

func (s *Service) recordMessage(ctx context.Context, w database.Writer, ev Event) error {
	user := database.User{
		ID:          ev.UserID,
		Username:    sql.NullString{String: ev.Username, Valid: ev.Username != ""},
		DisplayName: ev.DisplayName,
	}
	if err := w.UpsertUser(ctx, user); err != nil {
		return err
	}
	return w.RecordMessage(ctx, database.Message{
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		UserID:    ev.UserID,
		Timestamp: ev.Timestamp,
	})
}

// HandleMembership starts or stops tracking a chat when the bot joins or leaves it.
func (s *Service) HandleMembership(ctx context.Context, ev MembershipEvent) error {
	switch ev.Status {
	case StatusAdministrator, StatusMember:
		created, err := s.store.CreateChatSettings(ctx, database.DefaultChatSettings(ev.ChatID))
		if err != nil {
			return err
		}
		if created {
			s.logger.InfoContext(ctx, "Tracking chat", "chat_id", ev.ChatID, "status", ev.Status)
		}
	case StatusLeft, StatusBanned:
		deleted, err := s.store.DeleteChatSettings(ctx, ev.ChatID)
		if err != nil {
			return err
		}
		if deleted {
			s.logger.InfoContext(ctx, "Stopped tracking chat", "chat_id", ev.ChatID, "status", ev.Status)
		}
	default:
		s.logger.DebugContext(ctx, "Ignoring membership status", "chat_id", ev.ChatID, "status", ev.Status)
	}
	return nil
}
