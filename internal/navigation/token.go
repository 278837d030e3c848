// Package navigation encodes the stats wizard state into the callback tokens
// carried by each button, so no per-user session lives on the server.
//
// A token has up to three '|' separated segments resolved in order:
//
//	metric|range|scope
//
// where scope is "all", "user_<id>[_<name>]" or "page_<n>".
package navigation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgard/wordstats/internal/errs"
	"github.com/edgard/wordstats/internal/timerange"
)

const (
	delimiter = "|"

	// rootToken stands for the initial state; Telegram rejects empty callback data.
	rootToken = "~"

	scopeAll     = "all"
	scopeUser    = "user_"
	scopePage    = "page_"
	scopeNameSep = "_"
)

// Metric is the statistic the wizard is drilling into.
type Metric string

// Supported metrics.
const (
	MetricWords    Metric = "words"
	MetricChars    Metric = "chars"
	MetricGifs     Metric = "gifs"
	MetricStickers Metric = "stickers"
)

// Metrics lists metrics in menu order.
func Metrics() []Metric {
	return []Metric{MetricWords, MetricChars, MetricGifs, MetricStickers}
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricWords, MetricChars, MetricGifs, MetricStickers:
		return true
	}
	return false
}

// Step is a wizard state.
type Step int

// Wizard steps in resolution order.
const (
	SelectType Step = iota
	SelectTime
	SelectScope
	SelectUserPage
	ShowResult
)

func (s Step) String() string {
	switch s {
	case SelectType:
		return "select_type"
	case SelectTime:
		return "select_time"
	case SelectScope:
		return "select_scope"
	case SelectUserPage:
		return "select_user_page"
	case ShowResult:
		return "show_result"
	default:
		return "unknown"
	}
}

// ScopeKind tells which form the scope segment has.
type ScopeKind int

// Scope kinds.
const (
	ScopeUnset ScopeKind = iota
	ScopeAll
	ScopeUser
	ScopePage
)

// Scope is the third token dimension.
type Scope struct {
	Kind        ScopeKind
	UserID      int64
	DisplayName string
	Page        int
}

// AllUsers is the scope aggregating every user of the chat.
func AllUsers() Scope { return Scope{Kind: ScopeAll} }

// User is the scope of a single user.
func User(id int64, displayName string) Scope {
	return Scope{Kind: ScopeUser, UserID: id, DisplayName: displayName}
}

// Page is the unresolved scope showing page n of the user picker.
func Page(n int) Scope { return Scope{Kind: ScopePage, Page: n} }

func (s Scope) encode() string {
	switch s.Kind {
	case ScopeAll:
		return scopeAll
	case ScopeUser:
		seg := scopeUser + strconv.FormatInt(s.UserID, 10)
		if s.DisplayName != "" {
			seg += scopeNameSep + s.DisplayName
		}
		return seg
	case ScopePage:
		return scopePage + strconv.Itoa(s.Page)
	default:
		return ""
	}
}

// State is the decoded wizard state.
type State struct {
	Metric Metric
	Range  string
	Scope  Scope
}

// Step derives the wizard step from the dimensions present.
func (s State) Step() Step {
	switch {
	case s.Metric == "":
		return SelectType
	case s.Range == "":
		return SelectTime
	case s.Scope.Kind == ScopeUnset:
		return SelectScope
	case s.Scope.Kind == ScopePage:
		return SelectUserPage
	default:
		return ShowResult
	}
}

// Parent returns the state one step back, used by the "back" choice.
func (s State) Parent() State {
	switch s.Step() {
	case SelectTime:
		return State{}
	case SelectScope:
		return State{Metric: s.Metric}
	case SelectUserPage, ShowResult:
		return State{Metric: s.Metric, Range: s.Range}
	default:
		return State{}
	}
}

// Encode renders the state as a token. Only dimensions up to the first unset
// one are written.
func Encode(s State) string {
	if s.Metric == "" {
		return rootToken
	}
	segments := []string{string(s.Metric)}
	if s.Range != "" {
		segments = append(segments, s.Range)
		if scope := s.Scope.encode(); scope != "" {
			segments = append(segments, scope)
		}
	}
	return strings.Join(segments, delimiter)
}

// Decode parses a token. It always returns a usable state: when a segment is
// malformed, decoding stops there and the state falls back to the first
// unresolved dimension. The returned error describes the rejected segment.
func Decode(token string) (State, error) {
	var s State
	if token == "" || token == rootToken {
		return s, nil
	}

	// The scope segment may carry a display name containing the delimiter.
	parts := strings.SplitN(token, delimiter, 3)

	metric := Metric(parts[0])
	if !metric.Valid() {
		return State{}, errs.NewValidationError(fmt.Sprintf("invalid metric segment %q", parts[0]), nil)
	}
	s.Metric = metric
	if len(parts) == 1 {
		return s, nil
	}

	if !timerange.Valid(parts[1]) {
		return s, errs.NewValidationError(fmt.Sprintf("invalid range segment %q", parts[1]), nil)
	}
	s.Range = parts[1]
	if len(parts) == 2 {
		return s, nil
	}

	scope, err := decodeScope(parts[2])
	if err != nil {
		return s, err
	}
	s.Scope = scope
	return s, nil
}

func decodeScope(seg string) (Scope, error) {
	switch {
	case seg == scopeAll:
		return AllUsers(), nil

	case strings.HasPrefix(seg, scopePage):
		n, err := strconv.Atoi(strings.TrimPrefix(seg, scopePage))
		if err != nil || n < 0 {
			return Scope{}, errs.NewValidationError(fmt.Sprintf("invalid page segment %q", seg), err)
		}
		return Page(n), nil

	case strings.HasPrefix(seg, scopeUser):
		rest := strings.TrimPrefix(seg, scopeUser)
		rawID, name, _ := strings.Cut(rest, scopeNameSep)
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			return Scope{}, errs.NewValidationError(fmt.Sprintf("invalid user segment %q", seg), err)
		}
		return User(id, name), nil
	}

	return Scope{}, errs.NewValidationError(fmt.Sprintf("invalid scope segment %q", seg), nil)
}
