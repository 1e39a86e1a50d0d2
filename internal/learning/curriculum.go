package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ashureev/skill-accelerator/internal/curriculum"
	"github.com/ashureev/skill-accelerator/internal/domain"
)

// CurriculumResult is the outcome of generating a curriculum.
type CurriculumResult struct {
	Curriculum curriculum.View             `json:"curriculum"`
	Hydrated   bool                        `json:"hydrated"`
	Report     *curriculum.HydrationReport `json:"hydration,omitempty"`
}

// GenerateCurriculum builds a new curriculum for skill, enriches its videos
// when a video credential is available and stores it as the user's current
// curriculum. On failure the previous curriculum is kept.
func (s *Service) GenerateCurriculum(ctx context.Context, userID, skill string) (CurriculumResult, error) {
	creds, err := s.credentials(ctx, userID)
	if err != nil {
		return CurriculumResult{}, err
	}
	if !creds.HasGemini() {
		return CurriculumResult{}, domain.MissingCredential("gemini")
	}

	cur, err := curriculum.Generate(ctx, s.gen, skill, creds.GeminiAPIKey)
	if err != nil {
		s.metrics.CurriculumGenerated(false)
		if domain.IsGenerationError(err) {
			s.metrics.GenerationError("curriculum")
		}
		slog.Error("curriculum generation failed", "user_id", userID, "skill", skill, "error", err)
		return CurriculumResult{}, err
	}
	s.metrics.CurriculumGenerated(true)

	var result CurriculumResult
	if s.searcher != nil && creds.HasYouTube() {
		var report curriculum.HydrationReport
		cur, report = curriculum.Hydrate(ctx, s.searcher, cur, creds.YouTubeAPIKey, s.hydrateConcurrency)
		s.metrics.VideoSearches(report.Enriched, report.Failed, report.Total-report.Enriched-report.Failed)
		slog.Info("curriculum hydrated", "user_id", userID, "total", report.Total, "enriched", report.Enriched, "failed", report.Failed)
		result.Hydrated = true
		result.Report = &report
	}

	if err := s.saveCurriculum(ctx, userID, cur); err != nil {
		return CurriculumResult{}, err
	}

	p, err := s.Progress(ctx, userID)
	if err != nil {
		return CurriculumResult{}, err
	}
	result.Curriculum = curriculum.WithProgress(cur, p.UserProgress)
	slog.Info("curriculum generated", "user_id", userID, "skill", cur.SkillName, "modules", len(cur.Modules), "videos", cur.VideoCount())
	return result, nil
}

// Curriculum returns the user's current curriculum with completion flags
// derived from their progress.
func (s *Service) Curriculum(ctx context.Context, userID string) (curriculum.View, error) {
	cur, err := s.loadCurriculum(ctx, userID)
	if err != nil {
		return curriculum.View{}, err
	}
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return curriculum.View{}, err
	}
	return curriculum.WithProgress(cur, p.UserProgress), nil
}

func (s *Service) loadCurriculum(ctx context.Context, userID string) (domain.Curriculum, error) {
	raw, ok, err := s.repo.GetState(ctx, userID, domain.StateKeyCurriculum)
	if err != nil {
		return domain.Curriculum{}, fmt.Errorf("load curriculum: %w", err)
	}
	if !ok || raw == "" {
		return domain.Curriculum{}, domain.ErrNoCurriculum
	}
	var cur domain.Curriculum
	if err := json.Unmarshal([]byte(raw), &cur); err != nil {
		slog.Warn("stored curriculum is malformed", "user_id", userID, "error", err)
		return domain.Curriculum{}, domain.ErrNoCurriculum
	}
	return cur, nil
}

func (s *Service) saveCurriculum(ctx context.Context, userID string, cur domain.Curriculum) error {
	data, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("encode curriculum: %w", err)
	}
	if err := s.repo.PutState(ctx, userID, domain.StateKeyCurriculum, string(data)); err != nil {
		return fmt.Errorf("save curriculum: %w", err)
	}
	return nil
}
