package learning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/notify"
	"github.com/ashureev/skill-accelerator/internal/progress"
)

// ProgressView is a user's progress with derived level information.
type ProgressView struct {
	domain.UserProgress
	LevelTitle    string                 `json:"levelTitle"`
	LevelProgress progress.LevelProgress `json:"levelProgress"`
}

func (s *Service) view(p domain.UserProgress) ProgressView {
	return ProgressView{
		UserProgress:  p,
		LevelTitle:    s.engine.Levels().Title(p.Level),
		LevelProgress: s.engine.LevelProgress(p),
	}
}

// Progress loads the user's progress, recording today's visit for the
// daily streak.
func (s *Service) Progress(ctx context.Context, userID string) (ProgressView, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.loadProgressLocked(ctx, userID)
	if err != nil {
		return ProgressView{}, err
	}
	return s.view(p), nil
}

// ResetProgress replaces the user's progress with the default.
func (s *Service) ResetProgress(ctx context.Context, userID string) (ProgressView, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p := domain.DefaultProgress(s.now())
	if err := s.saveProgressLocked(ctx, userID, p); err != nil {
		return ProgressView{}, err
	}
	slog.Info("progress reset", "user_id", userID)

	v := s.view(p)
	s.publishProgress(userID, v)
	return v, nil
}

// loadProgressLocked restores stored progress and applies the daily streak.
// Defaults, recoveries and streak changes are persisted immediately.
func (s *Service) loadProgressLocked(ctx context.Context, userID string) (domain.UserProgress, error) {
	raw, _, err := s.repo.GetState(ctx, userID, domain.StateKeyProgress)
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("load progress: %w", err)
	}

	now := s.now()
	p, status, decodeErr := s.engine.Restore(raw, now)
	if decodeErr != nil {
		slog.Warn("stored progress is malformed, using defaults", "user_id", userID, "error", decodeErr)
	}

	p, touched := progress.TouchLogin(p, now)
	if touched || status != progress.RestoredStored {
		if err := s.saveProgressLocked(ctx, userID, p); err != nil {
			return domain.UserProgress{}, err
		}
	}
	return p, nil
}

func (s *Service) saveProgressLocked(ctx context.Context, userID string, p domain.UserProgress) error {
	raw, err := progress.Encode(p)
	if err != nil {
		return err
	}
	if err := s.repo.PutState(ctx, userID, domain.StateKeyProgress, raw); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// mutateProgress runs fn on the user's current progress and persists the
// result before releasing the user's lock.
func (s *Service) mutateProgress(ctx context.Context, userID string, fn func(domain.UserProgress) (domain.UserProgress, error)) (before, after domain.UserProgress, err error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	before, err = s.loadProgressLocked(ctx, userID)
	if err != nil {
		return before, before, err
	}
	after, err = fn(before)
	if err != nil {
		return before, before, err
	}
	if err := s.saveProgressLocked(ctx, userID, after); err != nil {
		return before, before, err
	}
	return before, after, nil
}

func (s *Service) publishProgress(userID string, v ProgressView) {
	s.publisher.Publish(userID, notify.Event{Type: notify.EventProgress, Payload: v})
}

// announceLevelUp emits level-up events and metrics for a transition.
func (s *Service) announceLevelUp(userID string, before, after domain.UserProgress) {
	if after.Level <= before.Level {
		return
	}
	s.metrics.LevelUp(after.Level - before.Level)
	title := s.engine.Levels().Title(after.Level)
	slog.Info("level up", "user_id", userID, "from", before.Level, "to", after.Level, "title", title)
	s.publisher.Publish(userID, notify.Event{
		Type:    notify.EventLevelUp,
		Message: fmt.Sprintf("Level %d: %s", after.Level, title),
		Tone:    notify.ToneSuccess,
		Payload: map[string]any{"level": after.Level, "title": title},
	})
}
