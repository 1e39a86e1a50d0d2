// Package quiz implements the ephemeral quiz session state machine and the
// registry that owns active sessions.
package quiz

import (
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// State is the lifecycle state of a quiz session.
type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateRevealed   State = "revealed"
	StateFinished   State = "finished"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed || s == StateCancelled
}

// Session is a single quiz attempt. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	owner     string
	kind      domain.ContextKind
	contextID string
	title     string

	state    State
	quiz     domain.Quiz
	index    int
	score    int
	selected *int
	err      error

	createdAt time.Time
	updatedAt time.Time
}

func newSession(id, owner string, kind domain.ContextKind, contextID, title string, now time.Time) *Session {
	if contextID == "" {
		contextID = domain.PlaceholderContextID
	}
	return &Session{
		id:        id,
		owner:     owner,
		kind:      kind,
		contextID: contextID,
		title:     title,
		state:     StateLoading,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identity.
func (s *Session) ID() string { return s.id }

// Owner returns the key of the client that owns the session.
func (s *Session) Owner() string { return s.owner }

// Kind returns what the quiz verifies.
func (s *Session) Kind() domain.ContextKind { return s.kind }

// ContextID returns the module or video the quiz is bound to.
func (s *Session) ContextID() string { return s.contextID }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure cause of a failed session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start binds the generated questions and enters InProgress at question 0.
// The session's own context and title override whatever the quiz carries.
func (s *Session) Start(q domain.Quiz, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return fmt.Errorf("start from %s: %w", s.state, domain.ErrInvalidTransition)
	}
	if err := domain.ValidateQuestions(q.Questions); err != nil {
		return domain.NewGenerationError("quiz", err)
	}

	q.ContextID = s.contextID
	q.Kind = s.kind
	q.Title = s.title
	s.quiz = q
	s.index = 0
	s.score = 0
	s.selected = nil
	s.state = StateInProgress
	s.updatedAt = now
	return nil
}

// Fail moves a loading session to Failed.
func (s *Session) Fail(err error, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = StateFailed
	s.err = err
	s.updatedAt = now
}

// Cancel discards the session. It reports false if it had already ended.
func (s *Session) Cancel(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.state = StateCancelled
	s.updatedAt = now
	return true
}

// AnswerResult describes the effect of Answer.
type AnswerResult struct {
	// Applied is false when the question was already revealed and the
	// call was ignored.
	Applied            bool   `json:"applied"`
	Correct            bool   `json:"correct"`
	SelectedOption     int    `json:"selected_option"`
	CorrectAnswerIndex int    `json:"correct_answer_index"`
	Explanation        string `json:"explanation"`
}

// Answer records the selected option for the current question and reveals
// it. Answering an already revealed question is a no-op.
func (s *Session) Answer(option int, now time.Time) (AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRevealed {
		q := s.quiz.Questions[s.index]
		return AnswerResult{
			Applied:            false,
			Correct:            *s.selected == q.CorrectAnswerIndex,
			SelectedOption:     *s.selected,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Explanation:        q.Explanation,
		}, nil
	}
	if s.state != StateInProgress {
		return AnswerResult{}, fmt.Errorf("answer in %s: %w", s.state, domain.ErrInvalidTransition)
	}

	q := s.quiz.Questions[s.index]
	if option < 0 || option >= len(q.Options) {
		return AnswerResult{}, fmt.Errorf("option %d: %w", option, domain.ErrInvalidOption)
	}

	selected := option
	s.selected = &selected
	s.state = StateRevealed
	s.updatedAt = now

	correct := option == q.CorrectAnswerIndex
	if correct {
		s.score++
	}
	return AnswerResult{
		Applied:            true,
		Correct:            correct,
		SelectedOption:     option,
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		Explanation:        q.Explanation,
	}, nil
}

// RevertAnswer undoes the answer to the current question, returning it to
// InProgress so it can be answered again.
func (s *Session) RevertAnswer(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRevealed || s.selected == nil {
		return
	}
	if *s.selected == s.quiz.Questions[s.index].CorrectAnswerIndex {
		s.score--
	}
	s.selected = nil
	s.state = StateInProgress
	s.updatedAt = now
}

// Reopen returns a finished session to its last revealed question.
func (s *Session) Reopen(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFinished {
		return
	}
	s.state = StateRevealed
	s.updatedAt = now
}

// Tally is the final result of a finished session.
type Tally struct {
	Kind          domain.ContextKind
	ContextID     string
	Score         int
	QuestionCount int
}

// AdvanceResult describes the effect of Advance.
type AdvanceResult struct {
	Finished bool
	Tally    Tally
}

// Advance moves past a revealed question. After the last question the
// session finishes and the tally is returned for completion evaluation.
func (s *Session) Advance(now time.Time) (AdvanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRevealed {
		return AdvanceResult{}, fmt.Errorf("advance in %s: %w", s.state, domain.ErrInvalidTransition)
	}
	s.updatedAt = now

	if s.index < len(s.quiz.Questions)-1 {
		s.index++
		s.selected = nil
		s.state = StateInProgress
		return AdvanceResult{}, nil
	}

	s.state = StateFinished
	return AdvanceResult{
		Finished: true,
		Tally: Tally{
			Kind:          s.kind,
			ContextID:     s.contextID,
			Score:         s.score,
			QuestionCount: len(s.quiz.Questions),
		},
	}, nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Snapshot is the client-facing view of a session. The answer key of the
// current question is only included once it has been revealed.
type Snapshot struct {
	ID                 string             `json:"id"`
	Kind               domain.ContextKind `json:"kind"`
	ContextID          string             `json:"context_id"`
	Title              string             `json:"title"`
	State              State              `json:"state"`
	QuestionIndex      int                `json:"question_index"`
	QuestionCount      int                `json:"question_count"`
	Score              int                `json:"score"`
	Question           *QuestionView      `json:"question,omitempty"`
	SelectedOption     *int               `json:"selected_option"`
	IsRevealed         bool               `json:"is_revealed"`
	CorrectAnswerIndex *int               `json:"correct_answer_index,omitempty"`
	Explanation        string             `json:"explanation,omitempty"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		Kind:          s.kind,
		ContextID:     s.contextID,
		Title:         s.title,
		State:         s.state,
		QuestionIndex: s.index,
		QuestionCount: len(s.quiz.Questions),
		Score:         s.score,
		IsRevealed:    s.state == StateRevealed,
	}
	if s.selected != nil {
		selected := *s.selected
		snap.SelectedOption = &selected
	}
	if s.state == StateInProgress || s.state == StateRevealed {
		q := s.quiz.Questions[s.index]
		snap.Question = &QuestionView{Question: q.Question, Options: append([]string(nil), q.Options...)}
		if snap.IsRevealed {
			correct := q.CorrectAnswerIndex
			snap.CorrectAnswerIndex = &correct
			snap.Explanation = q.Explanation
		}
	}
	return snap
}
