package progress

import (
	"fmt"
	"slices"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// Engine applies the gamification rules. All methods are pure: they take a
// progress value and return a new one without touching the input.
type Engine struct {
	levels *LevelTable
	policy Policy
}

// NewEngine creates an engine for the given table and policy.
func NewEngine(levels *LevelTable, policy Policy) *Engine {
	return &Engine{levels: levels, policy: policy}
}

// Levels returns the engine's level table.
func (e *Engine) Levels() *LevelTable {
	return e.levels
}

// Policy returns the engine's gamification policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// AwardXP adds amount to the learner's XP, recomputes the level and grants
// the badge of every level crossed.
func (e *Engine) AwardXP(p domain.UserProgress, amount int) (domain.UserProgress, error) {
	if amount <= 0 {
		return p, fmt.Errorf("award %d xp: %w", amount, domain.ErrInvalidAmount)
	}

	next := p.Clone()
	next.XP = p.XP + amount
	newLevel := e.levels.ComputeLevel(next.XP)

	if newLevel > p.Level {
		for lvl := p.Level + 1; lvl <= newLevel; lvl++ {
			title := e.levels.Title(lvl)
			if title != "" && !slices.Contains(next.Badges, title) {
				next.Badges = append(next.Badges, title)
			}
		}
		next.Level = newLevel
	}
	return next, nil
}

// AddCompletedModule adds id to the module completion set. The second
// result is false when id was already present.
func AddCompletedModule(p domain.UserProgress, id string) (domain.UserProgress, bool) {
	if p.HasCompletedModule(id) {
		return p, false
	}
	next := p.Clone()
	next.CompletedModuleIDs = append(next.CompletedModuleIDs, id)
	return next, true
}

// AddCompletedVideo adds id to the video completion set. The second result
// is false when id was already present.
func AddCompletedVideo(p domain.UserProgress, id string) (domain.UserProgress, bool) {
	if p.HasCompletedVideo(id) {
		return p, false
	}
	next := p.Clone()
	next.CompletedVideoIDs = append(next.CompletedVideoIDs, id)
	return next, true
}

// RewardCorrectAnswer grants the per-question XP. It returns the awarded
// amount, which is zero when the policy has no per-question reward.
func (e *Engine) RewardCorrectAnswer(p domain.UserProgress) (domain.UserProgress, int, error) {
	if e.policy.XPPerCorrectAnswer <= 0 {
		return p, 0, nil
	}
	next, err := e.AwardXP(p, e.policy.XPPerCorrectAnswer)
	if err != nil {
		return p, 0, err
	}
	return next, e.policy.XPPerCorrectAnswer, nil
}

// QuizResult is the final tally of a finished quiz.
type QuizResult struct {
	Kind          domain.ContextKind
	ContextID     string
	Score         int
	QuestionCount int
}

// Outcome describes what a finished quiz changed.
type Outcome struct {
	Passed        bool               `json:"passed"`
	Kind          domain.ContextKind `json:"kind"`
	ContextID     string             `json:"context_id"`
	Score         int                `json:"score"`
	QuestionCount int                `json:"question_count"`
	RequiredScore int                `json:"required_score"`
	Recorded      bool               `json:"recorded"`
	BonusXP       int                `json:"bonus_xp"`
	LevelBefore   int                `json:"level_before"`
	LevelAfter    int                `json:"level_after"`
	NewBadges     []string           `json:"new_badges,omitempty"`
	Message       string             `json:"message"`
}

// LeveledUp reports whether the quiz completion raised the level.
func (o Outcome) LeveledUp() bool {
	return o.LevelAfter > o.LevelBefore
}

// CompleteQuiz evaluates a finished quiz: it counts the attempt and, when
// passed, records completion of a bound context and grants the bonus.
func (e *Engine) CompleteQuiz(p domain.UserProgress, r QuizResult) (domain.UserProgress, Outcome, error) {
	out := Outcome{
		Kind:          r.Kind,
		ContextID:     r.ContextID,
		Score:         r.Score,
		QuestionCount: r.QuestionCount,
		RequiredScore: e.policy.RequiredScore(r.QuestionCount),
		Passed:        e.policy.Passed(r.Score, r.QuestionCount),
		LevelBefore:   p.Level,
		LevelAfter:    p.Level,
	}

	next := p.Clone()
	next.QuizzesTaken++

	if !out.Passed {
		out.Message = "Keep learning and try again!"
		return next, out, nil
	}

	firstCompletion := true
	if r.ContextID != "" && r.ContextID != domain.PlaceholderContextID {
		if r.Kind == domain.ContextVideo {
			next, firstCompletion = AddCompletedVideo(next, r.ContextID)
		} else {
			next, firstCompletion = AddCompletedModule(next, r.ContextID)
		}
		out.Recorded = firstCompletion
	}

	bonus := e.policy.CompletionBonus(r.Kind)
	if bonus > 0 && (firstCompletion || e.policy.RepeatCompletionBonus) {
		awarded, err := e.AwardXP(next, bonus)
		if err != nil {
			return p, Outcome{}, err
		}
		out.NewBadges = newBadges(next.Badges, awarded.Badges)
		next = awarded
		out.BonusXP = bonus
	}
	out.LevelAfter = next.Level
	out.Message = completionMessage(r.Kind, out.BonusXP, firstCompletion)
	return next, out, nil
}

func completionMessage(kind domain.ContextKind, bonus int, first bool) string {
	if kind == domain.ContextVideo {
		if bonus > 0 {
			return fmt.Sprintf("Video Verified! +%d XP", bonus)
		}
		if !first {
			return "Video already verified. Nice review!"
		}
		return "Video Verified!"
	}
	if bonus > 0 {
		return fmt.Sprintf("Module Mastered! +%d XP", bonus)
	}
	if !first {
		return "Module already mastered. Nice review!"
	}
	return "Module Mastered!"
}

func newBadges(before, after []string) []string {
	var added []string
	for _, b := range after {
		if !slices.Contains(before, b) {
			added = append(added, b)
		}
	}
	return added
}

// Normalize repairs a restored progress value so that it satisfies the
// invariants: non-negative counters, level derived from XP, duplicate-free
// sets and a streak of at least one day.
func (e *Engine) Normalize(p domain.UserProgress) domain.UserProgress {
	next := p.Clone()
	if next.XP < 0 {
		next.XP = 0
	}
	if next.QuizzesTaken < 0 {
		next.QuizzesTaken = 0
	}
	if next.StreakDays < 1 {
		next.StreakDays = 1
	}
	next.Level = e.levels.ComputeLevel(next.XP)
	next.Badges = dedupe(next.Badges)
	next.CompletedModuleIDs = dedupe(next.CompletedModuleIDs)
	next.CompletedVideoIDs = dedupe(next.CompletedVideoIDs)
	return next
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// LevelProgress describes the position between the current and next level.
type LevelProgress struct {
	Current LevelThreshold  `json:"current"`
	Next    *LevelThreshold `json:"next,omitempty"`
	Percent float64         `json:"percent"`
}

// LevelProgress returns how far p is towards the next level, in percent.
// At the top level the percentage is 100.
func (e *Engine) LevelProgress(p domain.UserProgress) LevelProgress {
	current, ok := e.levels.Threshold(p.Level)
	if !ok {
		current, _ = e.levels.Threshold(1)
	}
	lp := LevelProgress{Current: current, Percent: 100}

	next, ok := e.levels.Threshold(current.Level + 1)
	if !ok {
		return lp
	}
	lp.Next = &next
	span := next.XPRequired - current.XPRequired
	pct := float64(p.XP-current.XPRequired) / float64(span) * 100
	lp.Percent = min(100, max(0, pct))
	return lp
}
