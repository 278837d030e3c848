// Package stats answers the drill-down wizard: it turns a navigation token
// into either the next menu or the aggregated result for a chat.
package stats

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/wordstats/internal/database"
	"github.com/edgard/wordstats/internal/navigation"
	"github.com/edgard/wordstats/internal/timerange"
)

// Default result sizes.
const (
	DefaultTopLimit   = 20
	DefaultMediaLimit = 10
)

// Config tunes the facade. Zero values fall back to the defaults, UTC and
// the wall clock.
type Config struct {
	TopLimit   int
	MediaLimit int
	Location   *time.Location
	Now        func() time.Time
}

// Result is the payload of a terminal wizard state.
type Result struct {
	Metric   navigation.Metric
	RangeKey string
	Range    timerange.Range
	// User is nil when the result covers everyone.
	User *navigation.PickerUser

	Words []database.WordStat

	Characters    int64
	HasCharacters bool

	Media []database.MediaStat
}

// Empty reports whether the query matched nothing.
func (r Result) Empty() bool {
	switch r.Metric {
	case navigation.MetricWords:
		return len(r.Words) == 0
	case navigation.MetricChars:
		return !r.HasCharacters
	default:
		return len(r.Media) == 0
	}
}

// Reply is what one wizard step produces: exactly one of Menu and Result is set.
type Reply struct {
	State  navigation.State
	Menu   *navigation.Menu
	Result *Result
}

// Service is the stats query facade.
type Service struct {
	store  database.Store
	cfg    Config
	logger *slog.Logger
}

// NewService creates a stats facade over store.
func NewService(store database.Store, cfg Config, logger *slog.Logger) *Service {
	if cfg.TopLimit <= 0 {
		cfg.TopLimit = DefaultTopLimit
	}
	if cfg.MediaLimit <= 0 {
		cfg.MediaLimit = DefaultMediaLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, cfg: cfg, logger: logger.With("component", "stats")}
}

// HandleWizardStep decodes token and answers it for chatID. A malformed token
// is not an error: the wizard resumes at the first unresolved step.
func (s *Service) HandleWizardStep(ctx context.Context, chatID int64, token string) (Reply, error) {
	state, err := navigation.Decode(token)
	if err != nil {
		s.logger.WarnContext(ctx, "Malformed navigation token", "chat_id", chatID, "token", token, "error", err)
	}

	switch state.Step() {
	case navigation.ShowResult:
		result, err := s.result(ctx, chatID, state)
		if err != nil {
			return Reply{}, err
		}
		return Reply{State: state, Result: &result}, nil

	case navigation.SelectUserPage:
		page, clamped, err := s.userPage(ctx, chatID, state.Scope.Page)
		if err != nil {
			return Reply{}, err
		}
		state.Scope = navigation.Page(clamped)
		menu, _ := navigation.BuildMenu(state, page)
		return Reply{State: state, Menu: &menu}, nil

	default:
		menu, _ := navigation.BuildMenu(state, navigation.UserPage{})
		return Reply{State: state, Menu: &menu}, nil
	}
}

// userPage fetches page n of the picker, moving back to the last page when n
// is past the end.
func (s *Service) userPage(ctx context.Context, chatID int64, n int) (navigation.UserPage, int, error) {
	total, err := s.store.DistinctUserCount(ctx, chatID)
	if err != nil {
		return navigation.UserPage{}, 0, err
	}
	if total > 0 && navigation.Offset(n) >= total {
		n = (total - 1) / navigation.UserPageSize
	}

	users, err := s.store.PagedUsers(ctx, chatID, navigation.UserPageSize, navigation.Offset(n))
	if err != nil {
		return navigation.UserPage{}, 0, err
	}

	page := navigation.UserPage{Total: total, Users: make([]navigation.PickerUser, 0, len(users))}
	for _, u := range users {
		page.Users = append(page.Users, navigation.PickerUser{ID: u.ID, DisplayName: u.DisplayName})
	}
	return page, n, nil
}

func (s *Service) result(ctx context.Context, chatID int64, state navigation.State) (Result, error) {
	now := s.cfg.Now().In(s.cfg.Location)
	rng, err := timerange.Resolve(state.Range, now)
	if err != nil {
		// Decode only accepts resolvable keys.
		return Result{}, err
	}

	res := Result{Metric: state.Metric, RangeKey: state.Range, Range: rng}
	q := database.Query{ChatID: chatID, Range: rng}
	if state.Scope.Kind == navigation.ScopeUser {
		id := state.Scope.UserID
		q.UserID = &id
		res.User = &navigation.PickerUser{ID: id, DisplayName: state.Scope.DisplayName}
	}

	switch state.Metric {
	case navigation.MetricWords:
		res.Words, err = s.store.TopWords(ctx, q, s.cfg.TopLimit)
	case navigation.MetricChars:
		res.Characters, res.HasCharacters, err = s.store.TotalCharacters(ctx, q)
	case navigation.MetricGifs:
		res.Media, err = s.store.TopMedia(ctx, database.MediaAnimation, q, s.cfg.MediaLimit)
	case navigation.MetricStickers:
		res.Media, err = s.store.TopMedia(ctx, database.MediaSticker, q, s.cfg.MediaLimit)
	}
	if err != nil {
		return Result{}, err
	}

	s.logger.DebugContext(ctx, "Stats computed",
		"chat_id", chatID, "metric", state.Metric, "range", state.Range, "user_scoped", res.User != nil)
	return res, nil
}
