package progress

import (
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// TouchLogin updates the daily streak for a visit at now. A visit on the
// day after LastLoginDate extends the streak, a later visit resets it to
// one and a repeat visit on the same day changes nothing. The second result
// reports whether p changed.
func TouchLogin(p domain.UserProgress, now time.Time) (domain.UserProgress, bool) {
	today := domain.FormatDate(now)
	if p.LastLoginDate == today {
		return p, false
	}

	next := p.Clone()
	next.LastLoginDate = today

	last, err := time.ParseInLocation(domain.DateLayout, p.LastLoginDate, now.Location())
	if err != nil {
		next.StreakDays = 1
		return next, true
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch {
	case last.Equal(midnight.AddDate(0, 0, -1)):
		next.StreakDays = max(p.StreakDays, 1) + 1
	case last.After(midnight):
		// Clock moved backwards; keep the streak but adopt today's date.
		next.StreakDays = max(p.StreakDays, 1)
	default:
		next.StreakDays = 1
	}
	return next, true
}
