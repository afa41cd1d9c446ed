package chat

import (
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/raphaelgruber/girs/internal/models"
)

// Period is a relative-date bucket of the conversation history.
type Period string

const (
	PeriodToday     Period = "Today"
	PeriodYesterday Period = "Yesterday"
	PeriodThisWeek  Period = "This week"
	PeriodEarlier   Period = "Earlier"
)

var periods = []Period{PeriodToday, PeriodYesterday, PeriodThisWeek, PeriodEarlier}

// HistoryGroup is one bucket of the sidebar history.
type HistoryGroup struct {
	Period        Period
	Conversations []models.Conversation
}

// RelativeDay buckets t by calendar days before now, in now's location.
// Future timestamps count as today.
func RelativeDay(t, now time.Time) Period {
	t = t.In(now.Location())
	day := func(x time.Time) time.Time { return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, x.Location()) }
	days := int(math.Round(day(now).Sub(day(t)).Hours() / 24))

	switch {
	case days <= 0:
		return PeriodToday
	case days == 1:
		return PeriodYesterday
	case days <= 6:
		return PeriodThisWeek
	default:
		return PeriodEarlier
	}
}

// GroupHistory drops empty and placeholder-titled conversations and buckets
// the rest by RelativeDay, keeping input order within each bucket. Empty
// buckets are omitted.
func GroupHistory(convs []models.Conversation, now time.Time) []HistoryGroup {
	visible := lo.Filter(convs, func(c models.Conversation, _ int) bool { return c.InHistory() })
	byPeriod := lo.GroupBy(visible, func(c models.Conversation) Period { return RelativeDay(c.LastMessageAt, now) })

	groups := make([]HistoryGroup, 0, len(byPeriod))
	for _, p := range periods {
		if cs, ok := byPeriod[p]; ok {
			groups = append(groups, HistoryGroup{Period: p, Conversations: cs})
		}
	}
	return groups
}
