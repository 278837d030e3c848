package handlers

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/wordstats/internal/config"
	"github.com/edgard/wordstats/internal/navigation"
	"github.com/edgard/wordstats/internal/stats"
)

// Keyboard converts menu rows into an inline keyboard.
func Keyboard(rows [][]navigation.Choice) *models.InlineKeyboardMarkup {
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: c.Label, CallbackData: c.Token})
		}
		kb = append(kb, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

// Prompt returns the question shown above the menu of a step.
func Prompt(msgs config.MessagesConfig, step navigation.Step) string {
	switch step {
	case navigation.SelectTime:
		return msgs.ChooseRangeMsg
	case navigation.SelectScope:
		return msgs.ChooseScopeMsg
	case navigation.SelectUserPage:
		return msgs.ChooseUserMsg
	default:
		return msgs.ChooseMetricMsg
	}
}

// ResultTitle names what a result covers, e.g. "Words, Last 7 days, Mary".
func ResultTitle(res stats.Result) string {
	who := "Everyone"
	if res.User != nil {
		who = res.User.DisplayName
		if who == "" {
			who = fmt.Sprintf("user %d", res.User.ID)
		}
	}
	return fmt.Sprintf("%s, %s, %s", navigation.MetricLabel(res.Metric), navigation.RangeLabel(res.RangeKey), who)
}

// ResultText renders a result as a plain text message. Media results list
// the usage counts; the media themselves are sent separately.
func ResultText(msgs config.MessagesConfig, res stats.Result) string {
	var sb strings.Builder
	sb.WriteString(ResultTitle(res))
	sb.WriteString("\n\n")

	if res.Empty() {
		sb.WriteString(msgs.NoDataMsg)
		return sb.String()
	}

	switch res.Metric {
	case navigation.MetricWords:
		for i, w := range res.Words {
			fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, w.Word, w.Count)
		}
	case navigation.MetricChars:
		fmt.Fprintf(&sb, "%d characters", res.Characters)
	default:
		for i, m := range res.Media {
			sb.WriteString(ResultRank(i, m.Count))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func times(n int64) string {
	if n == 1 {
		return "once"
	}
	return fmt.Sprintf("%d times", n)
}

// ResultRank is the caption of the i-th ranked media item.
func ResultRank(i int, count int64) string {
	return fmt.Sprintf("%d. used %s", i+1, times(count))
}
