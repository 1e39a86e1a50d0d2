// Package progress implements the level table and the pure XP, badge and
// completion transitions applied to domain.UserProgress.
package progress

import (
	"errors"
	"fmt"
)

// LevelThreshold maps the XP required to reach a level to its title.
type LevelThreshold struct {
	Level      int    `json:"level" yaml:"level"`
	XPRequired int    `json:"xp" yaml:"xp"`
	Title      string `json:"title" yaml:"title"`
}

// LevelTable is an ordered, validated list of thresholds.
type LevelTable struct {
	levels []LevelThreshold
}

// DefaultLevels is the built-in progression.
var DefaultLevels = []LevelThreshold{
	{Level: 1, XPRequired: 0, Title: "Novice"},
	{Level: 2, XPRequired: 100, Title: "Apprentice"},
	{Level: 3, XPRequired: 300, Title: "Practitioner"},
	{Level: 4, XPRequired: 600, Title: "Specialist"},
	{Level: 5, XPRequired: 1000, Title: "Expert"},
	{Level: 6, XPRequired: 2000, Title: "Master"},
}

var errEmptyTable = errors.New("level table is empty")

// NewLevelTable validates thresholds and returns a table that owns a copy.
// Level 1 must start at 0 XP, levels must be numbered index+1 and XP
// requirements must strictly increase.
func NewLevelTable(thresholds []LevelThreshold) (*LevelTable, error) {
	if len(thresholds) == 0 {
		return nil, errEmptyTable
	}
	for i, t := range thresholds {
		if t.Level != i+1 {
			return nil, fmt.Errorf("threshold %d: level %d, want %d", i, t.Level, i+1)
		}
		if t.Title == "" {
			return nil, fmt.Errorf("level %d: empty title", t.Level)
		}
		if i == 0 {
			if t.XPRequired != 0 {
				return nil, fmt.Errorf("level 1 must require 0 xp, got %d", t.XPRequired)
			}
			continue
		}
		if t.XPRequired <= thresholds[i-1].XPRequired {
			return nil, fmt.Errorf("level %d: xp %d not above level %d xp %d",
				t.Level, t.XPRequired, thresholds[i-1].Level, thresholds[i-1].XPRequired)
		}
	}
	levels := make([]LevelThreshold, len(thresholds))
	copy(levels, thresholds)
	return &LevelTable{levels: levels}, nil
}

// MustLevelTable is NewLevelTable for static tables.
func MustLevelTable(thresholds []LevelThreshold) *LevelTable {
	t, err := NewLevelTable(thresholds)
	if err != nil {
		panic("progress: " + err.Error())
	}
	return t
}

// ComputeLevel returns the highest level whose threshold is at most xp.
func (t *LevelTable) ComputeLevel(xp int) int {
	for i := len(t.levels) - 1; i >= 0; i-- {
		if xp >= t.levels[i].XPRequired {
			return t.levels[i].Level
		}
	}
	return t.levels[0].Level
}

// Threshold returns the entry for level.
func (t *LevelTable) Threshold(level int) (LevelThreshold, bool) {
	if level < 1 || level > len(t.levels) {
		return LevelThreshold{}, false
	}
	return t.levels[level-1], true
}

// Title returns the badge title of level, or "" for unknown levels.
func (t *LevelTable) Title(level int) string {
	th, ok := t.Threshold(level)
	if !ok {
		return ""
	}
	return th.Title
}

// MaxLevel returns the highest level in the table.
func (t *LevelTable) MaxLevel() int {
	return len(t.levels)
}

// Levels returns a copy of the thresholds.
func (t *LevelTable) Levels() []LevelThreshold {
	out := make([]LevelThreshold, len(t.levels))
	copy(out, t.levels)
	return out
}
