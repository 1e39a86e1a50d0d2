package progress

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk gamification document:
//
//	levels:
//	  - {level: 1, xp: 0, title: Novice}
//	policy:
//	  pass_threshold: 0.6
type fileDoc struct {
	Levels []LevelThreshold `yaml:"levels"`
	Policy Policy           `yaml:"policy"`
}

// LoadFile reads a YAML gamification file. Policy fields absent from the
// file keep their value from base; an absent levels list keeps DefaultLevels.
func LoadFile(path string, base Policy) (*LevelTable, Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, base, fmt.Errorf("read gamification file: %w", err)
	}
	return Parse(data, base)
}

// Parse decodes a YAML gamification document.
func Parse(data []byte, base Policy) (*LevelTable, Policy, error) {
	doc := fileDoc{Policy: base}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, base, fmt.Errorf("parse gamification file: %w", err)
	}

	levels := doc.Levels
	if len(levels) == 0 {
		levels = DefaultLevels
	}
	table, err := NewLevelTable(levels)
	if err != nil {
		return nil, base, fmt.Errorf("invalid level table: %w", err)
	}
	if err := doc.Policy.Validate(); err != nil {
		return nil, base, fmt.Errorf("invalid policy: %w", err)
	}
	return table, doc.Policy, nil
}
