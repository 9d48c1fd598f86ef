package briefing

import (
	"fmt"
	"time"

	"github.com/nightdesk/nightdesk/internal/platform/apperrors"
)

// Period selects the briefing window.
type Period string

const (
	Period12h    Period = "12h"
	Period24h    Period = "24h"
	PeriodWeekly Period = "weekly"
)

// ParsePeriod validates a period string.
func ParsePeriod(value string) (Period, error) {
	switch Period(value) {
	case Period12h, Period24h, PeriodWeekly:
		return Period(value), nil
	}
	return "", apperrors.E(apperrors.KindInvalidInput, "period must be 12h, 24h, or weekly")
}

// Hours returns the article window for the period.
func (p Period) Hours() int {
	switch p {
	case Period12h:
		return 12
	case PeriodWeekly:
		return 168
	default:
		return 24
	}
}

// Label returns the human phrasing used in prompts.
func (p Period) Label() string {
	switch p {
	case Period12h:
		return "last 12 hours"
	case PeriodWeekly:
		return "past week"
	default:
		return "last 24 hours"
	}
}

// bucket returns the cache bucket for now. Weekly briefings refresh per ISO
// week, daily ones every six hours, half-day ones every three.
func (p Period) bucket(now time.Time) string {
	now = now.UTC()
	switch p {
	case PeriodWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%d", year, week)
	case Period24h:
		return fmt.Sprintf("%s-%d", now.Format("2006-01-02"), now.Hour()/6)
	default:
		return fmt.Sprintf("%s-%d", now.Format("2006-01-02"), now.Hour()/3)
	}
}
