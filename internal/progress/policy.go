package progress

import (
	"errors"
	"math"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// Policy holds the tunable gamification rules.
type Policy struct {
	// PassThreshold is the fraction of questions that must be answered
	// correctly, rounded up to a whole question.
	PassThreshold float64 `json:"pass_threshold" yaml:"pass_threshold"`
	// XPPerCorrectAnswer is awarded immediately for each correct answer.
	XPPerCorrectAnswer int `json:"xp_per_correct_answer" yaml:"xp_per_correct_answer"`
	// ModuleCompletionBonus is awarded when a module quiz is passed.
	ModuleCompletionBonus int `json:"module_completion_bonus" yaml:"module_completion_bonus"`
	// VideoCompletionBonus is awarded when a video quiz is passed.
	VideoCompletionBonus int `json:"video_completion_bonus" yaml:"video_completion_bonus"`
	// RepeatCompletionBonus re-awards the completion bonus when an already
	// completed context is passed again.
	RepeatCompletionBonus bool `json:"repeat_completion_bonus" yaml:"repeat_completion_bonus"`
}

// DefaultPolicy returns the standard rules.
func DefaultPolicy() Policy {
	return Policy{
		PassThreshold:         0.6,
		XPPerCorrectAnswer:    10,
		ModuleCompletionBonus: 150,
		VideoCompletionBonus:  50,
	}
}

// Validate checks that the policy can be applied.
func (p Policy) Validate() error {
	if p.PassThreshold <= 0 || p.PassThreshold > 1 {
		return errors.New("pass threshold must be in (0, 1]")
	}
	if p.XPPerCorrectAnswer < 0 || p.ModuleCompletionBonus < 0 || p.VideoCompletionBonus < 0 {
		return errors.New("xp rewards must not be negative")
	}
	return nil
}

// epsilon absorbs float error such as 3*0.6 = 1.7999999999999998.
const epsilon = 1e-9

// RequiredScore returns the number of correct answers needed to pass.
func (p Policy) RequiredScore(questionCount int) int {
	if questionCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(questionCount)*p.PassThreshold - epsilon))
}

// Passed reports whether score passes a quiz of questionCount questions.
func (p Policy) Passed(score, questionCount int) bool {
	return score >= p.RequiredScore(questionCount)
}

// CompletionBonus returns the XP bonus for passing a quiz of kind.
func (p Policy) CompletionBonus(kind domain.ContextKind) int {
	if kind == domain.ContextVideo {
		return p.VideoCompletionBonus
	}
	return p.ModuleCompletionBonus
}
