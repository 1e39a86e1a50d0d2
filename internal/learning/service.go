// Package learning orchestrates curricula, quizzes and progress for each
// learner. Every progress mutation for a user is a single
// read-modify-write-persist step under that user's lock.
package learning

import (
	"context"
	"time"

	"github.com/ashureev/skill-accelerator/internal/ai"
	"github.com/ashureev/skill-accelerator/internal/curriculum"
	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/metrics"
	"github.com/ashureev/skill-accelerator/internal/notify"
	"github.com/ashureev/skill-accelerator/internal/progress"
	"github.com/ashureev/skill-accelerator/internal/quiz"
	"github.com/ashureev/skill-accelerator/internal/store"
	"github.com/ashureev/skill-accelerator/internal/video"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Repo      store.Repository
	Engine    *progress.Engine
	Registry  *quiz.Registry
	Generator ai.Generator
	Searcher  video.Searcher
	Publisher notify.Publisher
	Metrics   *metrics.Metrics

	// Fallback credentials are used when a user has not set their own.
	Fallback domain.Credentials

	HydrateConcurrency int
	QuizQuestions      int
}

// Service implements the learner-facing operations.
type Service struct {
	repo      store.Repository
	engine    *progress.Engine
	registry  *quiz.Registry
	gen       ai.Generator
	searcher  video.Searcher
	publisher notify.Publisher
	metrics   *metrics.Metrics
	fallback  domain.Credentials

	hydrateConcurrency int
	quizQuestions      int

	locks *keyedMutex
	now   func() time.Time
}

// New creates a Service. Repo, Engine and Generator are required.
func New(d Deps) *Service {
	if d.Registry == nil {
		d.Registry = quiz.NewRegistry()
	}
	if d.Publisher == nil {
		d.Publisher = notify.Discard{}
	}
	if d.HydrateConcurrency <= 0 {
		d.HydrateConcurrency = curriculum.DefaultConcurrency
	}
	if d.QuizQuestions <= 0 {
		d.QuizQuestions = ai.DefaultQuizQuestions
	}
	return &Service{
		repo:               d.Repo,
		engine:             d.Engine,
		registry:           d.Registry,
		gen:                d.Generator,
		searcher:           d.Searcher,
		publisher:          d.Publisher,
		metrics:            d.Metrics,
		fallback:           d.Fallback,
		hydrateConcurrency: d.HydrateConcurrency,
		quizQuestions:      d.QuizQuestions,
		locks:              newKeyedMutex(),
		now:                time.Now,
	}
}

// Registry exposes the quiz session registry for the background sweeper.
func (s *Service) Registry() *quiz.Registry {
	return s.registry
}

// FeatureConfig describes server capabilities to the client.
type FeatureConfig struct {
	VideoHydration   bool                      `json:"video_hydration"`
	ServerGeminiKey  bool                      `json:"server_gemini_key"`
	ServerYouTubeKey bool                      `json:"server_youtube_key"`
	QuizQuestions    int                       `json:"quiz_questions"`
	Policy           progress.Policy           `json:"policy"`
	Levels           []progress.LevelThreshold `json:"levels"`
}

// Config returns the server-wide feature configuration.
func (s *Service) Config() FeatureConfig {
	return FeatureConfig{
		VideoHydration:   s.searcher != nil,
		ServerGeminiKey:  s.fallback.HasGemini(),
		ServerYouTubeKey: s.fallback.HasYouTube(),
		QuizQuestions:    s.quizQuestions,
		Policy:           s.engine.Policy(),
		Levels:           s.engine.Levels().Levels(),
	}
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
