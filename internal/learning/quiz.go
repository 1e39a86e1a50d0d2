package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/skill-accelerator/internal/ai"
	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/notify"
	"github.com/ashureev/skill-accelerator/internal/progress"
	"github.com/ashureev/skill-accelerator/internal/quiz"
)

// Caller identifies a learner's browser tab.
type Caller struct {
	UserID string
	TabID  string
}

func (c Caller) owner() string {
	return quiz.OwnerKey(c.UserID, c.TabID)
}

// StartModuleQuiz generates a mastery quiz for a curriculum module.
func (s *Service) StartModuleQuiz(ctx context.Context, c Caller, moduleID string) (quiz.Snapshot, error) {
	cur, err := s.loadCurriculum(ctx, c.UserID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	mod, ok := cur.Module(moduleID)
	if !ok {
		return quiz.Snapshot{}, fmt.Errorf("module %s: %w", moduleID, domain.ErrModuleNotFound)
	}

	req := ai.QuizRequest{
		Kind:      domain.ContextModule,
		Skill:     cur.SkillName,
		Title:     mod.Title,
		Concepts:  mod.KeyConcepts,
		Questions: s.quizQuestions,
	}
	return s.startQuiz(ctx, c, req, mod.ID)
}

// StartVideoQuiz generates a verification quiz for one video of a module.
// Videos without a resolved id are quizzed under the placeholder context
// and never recorded.
func (s *Service) StartVideoQuiz(ctx context.Context, c Caller, moduleID string, videoIndex int) (quiz.Snapshot, error) {
	cur, err := s.loadCurriculum(ctx, c.UserID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	mod, ok := cur.Module(moduleID)
	if !ok {
		return quiz.Snapshot{}, fmt.Errorf("module %s: %w", moduleID, domain.ErrModuleNotFound)
	}
	if videoIndex < 0 || videoIndex >= len(mod.Videos) {
		return quiz.Snapshot{}, fmt.Errorf("video %d of %s: %w", videoIndex, moduleID, domain.ErrVideoNotFound)
	}
	v := mod.Videos[videoIndex]

	req := ai.QuizRequest{
		Kind:        domain.ContextVideo,
		Skill:       cur.SkillName,
		Title:       v.DisplayTitle(),
		Concepts:    mod.KeyConcepts,
		Description: v.Description,
		Questions:   s.quizQuestions,
	}
	return s.startQuiz(ctx, c, req, v.ContextID())
}

// startQuiz registers a loading session before generation so that a
// cancel or a newer quiz in the same tab makes this result stale.
func (s *Service) startQuiz(ctx context.Context, c Caller, req ai.QuizRequest, contextID string) (quiz.Snapshot, error) {
	creds, err := s.credentials(ctx, c.UserID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	if !creds.HasGemini() {
		return quiz.Snapshot{}, domain.MissingCredential("gemini")
	}

	sess := s.registry.Begin(c.owner(), req.Kind, contextID, req.Title)
	s.metrics.ActiveSessions(s.registry.Len())
	log := slog.With("user_id", c.UserID, "session_id", sess.ID(), "kind", req.Kind, "context_id", sess.ContextID())
	log.Info("quiz generation started")

	questions, err := s.gen.GenerateQuiz(ctx, req, creds.GeminiAPIKey)
	if err != nil {
		s.registry.Fail(sess.ID(), err)
		s.metrics.ActiveSessions(s.registry.Len())
		if domain.IsGenerationError(err) {
			s.metrics.GenerationError("quiz")
		}
		log.Error("quiz generation failed", "error", err)
		return quiz.Snapshot{}, err
	}

	started, err := s.registry.Attach(sess.ID(), domain.Quiz{Questions: questions})
	s.metrics.ActiveSessions(s.registry.Len())
	if err != nil {
		if errors.Is(err, domain.ErrStaleSession) {
			log.Info("discarding quiz for stale session")
		} else {
			log.Error("generated quiz rejected", "error", err)
		}
		return quiz.Snapshot{}, err
	}

	s.metrics.QuizStarted(string(req.Kind))
	log.Info("quiz started", "questions", len(questions))
	return started.Snapshot(), nil
}

// Quiz returns the current snapshot of a session.
func (s *Service) Quiz(_ context.Context, c Caller, sessionID string) (quiz.Snapshot, error) {
	sess, err := s.registry.Get(c.owner(), sessionID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// AnswerResponse is the result of answering a question.
type AnswerResponse struct {
	quiz.AnswerResult
	XPAwarded int           `json:"xp_awarded"`
	Session   quiz.Snapshot `json:"session"`
	Progress  *ProgressView `json:"progress,omitempty"`
}

// Answer selects an option for the current question. A correct first
// answer awards per-question XP.
func (s *Service) Answer(ctx context.Context, c Caller, sessionID string, option int) (AnswerResponse, error) {
	sess, err := s.registry.Get(c.owner(), sessionID)
	if err != nil {
		return AnswerResponse{}, err
	}

	res, err := sess.Answer(option, s.now())
	if err != nil {
		return AnswerResponse{}, err
	}
	resp := AnswerResponse{AnswerResult: res, Session: sess.Snapshot()}
	if !res.Applied || !res.Correct {
		return resp, nil
	}

	var awarded int
	before, after, err := s.mutateProgress(ctx, c.UserID, func(p domain.UserProgress) (domain.UserProgress, error) {
		var next domain.UserProgress
		var err error
		next, awarded, err = s.engine.RewardCorrectAnswer(p)
		return next, err
	})
	if err != nil {
		sess.RevertAnswer(s.now())
		slog.Error("failed to award answer xp", "user_id", c.UserID, "session_id", sessionID, "error", err)
		return AnswerResponse{}, err
	}

	s.metrics.XPAwarded(awarded)
	v := s.view(after)
	resp.XPAwarded = awarded
	resp.Progress = &v
	s.publishProgress(c.UserID, v)
	s.announceLevelUp(c.UserID, before, after)
	return resp, nil
}

// AdvanceResponse is the result of moving past a revealed question.
type AdvanceResponse struct {
	Session  quiz.Snapshot     `json:"session"`
	Finished bool              `json:"finished"`
	Outcome  *progress.Outcome `json:"outcome,omitempty"`
	Progress *ProgressView     `json:"progress,omitempty"`
}

// Advance moves to the next question or finishes the quiz and applies its
// completion outcome to the user's progress.
func (s *Service) Advance(ctx context.Context, c Caller, sessionID string) (AdvanceResponse, error) {
	sess, err := s.registry.Get(c.owner(), sessionID)
	if err != nil {
		return AdvanceResponse{}, err
	}

	res, err := sess.Advance(s.now())
	if err != nil {
		return AdvanceResponse{}, err
	}
	resp := AdvanceResponse{Session: sess.Snapshot(), Finished: res.Finished}
	if !res.Finished {
		return resp, nil
	}

	var outcome progress.Outcome
	before, after, err := s.mutateProgress(ctx, c.UserID, func(p domain.UserProgress) (domain.UserProgress, error) {
		next, out, err := s.engine.CompleteQuiz(p, progress.QuizResult{
			Kind:          res.Tally.Kind,
			ContextID:     res.Tally.ContextID,
			Score:         res.Tally.Score,
			QuestionCount: res.Tally.QuestionCount,
		})
		outcome = out
		return next, err
	})
	if err != nil {
		sess.Reopen(s.now())
		slog.Error("failed to apply quiz outcome", "user_id", c.UserID, "session_id", sessionID, "error", err)
		return AdvanceResponse{}, err
	}

	s.registry.Remove(sessionID)
	s.metrics.ActiveSessions(s.registry.Len())

	s.metrics.QuizCompleted(string(outcome.Kind), outcome.Passed)
	s.metrics.XPAwarded(outcome.BonusXP)
	slog.Info("quiz finished",
		"user_id", c.UserID,
		"session_id", sessionID,
		"kind", outcome.Kind,
		"context_id", outcome.ContextID,
		"score", outcome.Score,
		"questions", outcome.QuestionCount,
		"passed", outcome.Passed,
		"recorded", outcome.Recorded,
	)

	v := s.view(after)
	resp.Outcome = &outcome
	resp.Progress = &v

	tone := notify.ToneInfo
	if outcome.Passed {
		tone = notify.ToneSuccess
	}
	s.publisher.Publish(c.UserID, notify.Event{Type: notify.EventToast, Message: outcome.Message, Tone: tone})
	s.publishProgress(c.UserID, v)
	s.announceLevelUp(c.UserID, before, after)
	return resp, nil
}

// CancelQuiz discards a session without touching progress. A generation
// still in flight for it will be discarded as stale.
func (s *Service) CancelQuiz(_ context.Context, c Caller, sessionID string) error {
	if !s.registry.Close(c.owner(), sessionID) {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	s.metrics.ActiveSessions(s.registry.Len())
	slog.Info("quiz cancelled", "user_id", c.UserID, "session_id", sessionID)
	return nil
}

// CancelCurrentQuiz discards whatever quiz the caller's tab has open,
// including one still being generated.
func (s *Service) CancelCurrentQuiz(_ context.Context, c Caller) error {
	id, ok := s.registry.CloseCurrent(c.owner())
	if !ok {
		return fmt.Errorf("current session: %w", domain.ErrSessionNotFound)
	}
	s.metrics.ActiveSessions(s.registry.Len())
	slog.Info("quiz cancelled", "user_id", c.UserID, "session_id", id)
	return nil
}
