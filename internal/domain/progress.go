package domain

import (
	"slices"
	"time"
)

// DateLayout is the calendar date format used for LastLoginDate.
const DateLayout = "2006-01-02"

// UserProgress is the persistent gamification state of a learner.
type UserProgress struct {
	XP                 int      `json:"xp"`
	Level              int      `json:"level"`
	Badges             []string `json:"badges"`
	CompletedModuleIDs []string `json:"completedModuleIds"`
	CompletedVideoIDs  []string `json:"completedVideoIds"`
	QuizzesTaken       int      `json:"quizzesTaken"`
	StreakDays         int      `json:"streakDays"`
	LastLoginDate      string   `json:"lastLoginDate"`
}

// DefaultProgress returns the state of a learner who has never played.
func DefaultProgress(now time.Time) UserProgress {
	return UserProgress{
		XP:                 0,
		Level:              1,
		Badges:             []string{},
		CompletedModuleIDs: []string{},
		CompletedVideoIDs:  []string{},
		QuizzesTaken:       0,
		StreakDays:         1,
		LastLoginDate:      FormatDate(now),
	}
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Clone returns a deep copy so callers can derive new values without
// aliasing the backing arrays of p.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.Badges = cloneStrings(p.Badges)
	out.CompletedModuleIDs = cloneStrings(p.CompletedModuleIDs)
	out.CompletedVideoIDs = cloneStrings(p.CompletedVideoIDs)
	return out
}

// HasBadge reports whether the badge title has been awarded.
func (p UserProgress) HasBadge(title string) bool {
	return slices.Contains(p.Badges, title)
}

// HasCompletedModule reports whether the module id is in the completion set.
func (p UserProgress) HasCompletedModule(id string) bool {
	return slices.Contains(p.CompletedModuleIDs, id)
}

// HasCompletedVideo reports whether the video id is in the completion set.
func (p UserProgress) HasCompletedVideo(id string) bool {
	return slices.Contains(p.CompletedVideoIDs, id)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
