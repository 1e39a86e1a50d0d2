package domain

import (
	"errors"
	"fmt"
)

// PlaceholderContextID marks a quiz that is not bound to any module or
// video. Such a quiz never records completion.
const PlaceholderContextID = "temp"

// OptionsPerQuestion is the number of answer options in every question.
const OptionsPerQuestion = 4

// ContextKind identifies what a quiz verifies.
type ContextKind string

const (
	ContextModule ContextKind = "module"
	ContextVideo  ContextKind = "video"
)

// Valid reports whether k is a known kind.
func (k ContextKind) Valid() bool {
	return k == ContextModule || k == ContextVideo
}

// Quiz is a generated set of multiple-choice questions bound to a context.
type Quiz struct {
	ContextID string         `json:"contextId"`
	Kind      ContextKind    `json:"kind"`
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// QuizQuestion is a single multiple-choice question.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// IsBound reports whether completion credit can be routed to ContextID.
func (q *Quiz) IsBound() bool {
	return q.ContextID != "" && q.ContextID != PlaceholderContextID
}

var errNoQuestions = errors.New("quiz has no questions")

// ValidateQuestions checks the structural contract of generated questions.
func ValidateQuestions(questions []QuizQuestion) error {
	if len(questions) == 0 {
		return errNoQuestions
	}
	for i, q := range questions {
		if q.Question == "" {
			return fmt.Errorf("question %d: empty text", i)
		}
		if len(q.Options) != OptionsPerQuestion {
			return fmt.Errorf("question %d: expected %d options, got %d", i, OptionsPerQuestion, len(q.Options))
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			return fmt.Errorf("question %d: correct answer index %d out of range", i, q.CorrectAnswerIndex)
		}
	}
	return nil
}
