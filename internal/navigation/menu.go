package navigation

import (
	"unicode/utf8"

	"github.com/edgard/wordstats/internal/timerange"
)

const (
	// UserPageSize is the number of users listed per picker page.
	UserPageSize = 10

	// MaxTokenLen is Telegram's limit on callback data.
	MaxTokenLen = 64

	labelPrev = "<"
	labelNext = ">"
	labelBack = "« Back"
)

var metricLabels = map[Metric]string{
	MetricWords:    "Words",
	MetricChars:    "Characters",
	MetricGifs:     "GIFs",
	MetricStickers: "Stickers",
}

var rangeLabels = map[string]string{
	"last-day":   "Last 24h",
	"last-week":  "Last 7 days",
	"last-month": "Last month",
	"last-year":  "Last year",
	"this-day":   "Today",
	"this-week":  "This week",
	"this-month": "This month",
	"this-year":  "This year",
	"prev-day":   "Yesterday",
	"prev-week":  "Previous week",
	"prev-month": "Previous month",
	"prev-year":  "Previous year",
	timerange.All: "All time",
}

// MetricLabel returns the button label of a metric.
func MetricLabel(m Metric) string {
	if l, ok := metricLabels[m]; ok {
		return l
	}
	return string(m)
}

// RangeLabel returns the button label of a time range key.
func RangeLabel(key string) string {
	if l, ok := rangeLabels[key]; ok {
		return l
	}
	return key
}

// Choice is one interactive option: a label and the token it carries.
type Choice struct {
	Label string
	Token string
}

// Menu is the render payload of a non-terminal wizard state.
type Menu struct {
	State State
	Rows  [][]Choice
}

// PickerUser is a row of the user picker.
type PickerUser struct {
	ID          int64
	DisplayName string
}

// UserPage describes one page of the user picker.
type UserPage struct {
	Users []PickerUser
	Total int
}

// Offset returns the store offset of page n.
func Offset(page int) int {
	return page * UserPageSize
}

// BuildMenu returns the choices offered in state s. For SelectUserPage the
// caller passes the page it fetched; other steps ignore it. ShowResult has no menu.
func BuildMenu(s State, page UserPage) (Menu, bool) {
	var rows [][]Choice

	switch s.Step() {
	case SelectType:
		row := make([]Choice, 0, len(Metrics()))
		for _, m := range Metrics() {
			row = append(row, choice(MetricLabel(m), State{Metric: m}))
		}
		rows = append(rows, row)

	case SelectTime:
		keys := timerange.Keys()
		for i := 0; i < len(keys); i += 4 {
			end := min(i+4, len(keys))
			row := make([]Choice, 0, end-i)
			for _, k := range keys[i:end] {
				row = append(row, choice(RangeLabel(k), State{Metric: s.Metric, Range: k}))
			}
			rows = append(rows, row)
		}

	case SelectScope:
		rows = append(rows, []Choice{
			choice("Everyone", State{Metric: s.Metric, Range: s.Range, Scope: AllUsers()}),
			choice("Pick a user", State{Metric: s.Metric, Range: s.Range, Scope: Page(0)}),
		})

	case SelectUserPage:
		n := s.Scope.Page
		for _, u := range page.Users {
			name := FitDisplayName(s.Metric, s.Range, u.ID, u.DisplayName)
			rows = append(rows, []Choice{choice(u.DisplayName, State{Metric: s.Metric, Range: s.Range, Scope: User(u.ID, name)})})
		}
		var nav []Choice
		if n > 0 {
			nav = append(nav, choice(labelPrev, State{Metric: s.Metric, Range: s.Range, Scope: Page(n - 1)}))
		}
		if Offset(n+1) < page.Total {
			nav = append(nav, choice(labelNext, State{Metric: s.Metric, Range: s.Range, Scope: Page(n + 1)}))
		}
		if len(nav) > 0 {
			rows = append(rows, nav)
		}

	default:
		return Menu{}, false
	}

	if s.Step() != SelectType {
		rows = append(rows, []Choice{BackChoice(s)})
	}
	return Menu{State: s, Rows: rows}, true
}

// FitDisplayName trims name so the encoded user choice stays within MaxTokenLen.
// Truncation is rune-safe.
func FitDisplayName(metric Metric, rangeKey string, userID int64, name string) string {
	base := Encode(State{Metric: metric, Range: rangeKey, Scope: User(userID, "")})
	room := MaxTokenLen - len(base) - len(scopeNameSep)
	if room <= 0 {
		return ""
	}
	if len(name) <= room {
		return name
	}
	cut := 0
	for cut < len(name) {
		_, size := utf8.DecodeRuneInString(name[cut:])
		if cut+size > room {
			break
		}
		cut += size
	}
	return name[:cut]
}

// BackChoice returns the choice leading to the parent of s.
func BackChoice(s State) Choice {
	return choice(labelBack, s.Parent())
}

func choice(label string, s State) Choice {
	return Choice{Label: label, Token: Encode(s)}
}
