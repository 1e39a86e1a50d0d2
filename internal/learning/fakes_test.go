package learning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashureev/skill-accelerator/internal/ai"
	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/notify"
	"github.com/ashureev/skill-accelerator/internal/progress"
	"github.com/ashureev/skill-accelerator/internal/quiz"
	"github.com/ashureev/skill-accelerator/internal/video"
)

type memRepo struct {
	mu     sync.Mutex
	state  map[string]map[string]string
	putErr map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{state: map[string]map[string]string{}}
}

func (m *memRepo) GetUser(context.Context, string) (*domain.User, error) { return nil, nil }

func (m *memRepo) UpsertUser(context.Context, *domain.User) error { return nil }

func (m *memRepo) UpdateLastSeen(context.Context, string, time.Time) error { return nil }

func (m *memRepo) GetState(_ context.Context, userID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[userID][key]
	return v, ok, nil
}

// failPuts makes writes of key fail with err; a nil err clears it.
func (m *memRepo) failPuts(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr == nil {
		m.putErr = map[string]error{}
	}
	m.putErr[key] = err
}

func (m *memRepo) PutState(_ context.Context, userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putErr[key]; err != nil {
		return err
	}
	if m.state[userID] == nil {
		m.state[userID] = map[string]string{}
	}
	m.state[userID][key] = value
	return nil
}

func (m *memRepo) DeleteState(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state[userID], key)
	return nil
}

func (m *memRepo) DeleteAllState(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, userID)
	return nil
}

func (m *memRepo) Ping(context.Context) error { return nil }

func (m *memRepo) Close() error { return nil }

// fakeGenerator returns a fixed curriculum and n-question quizzes whose
// correct answer for question i is i%4. A non-nil gate blocks the first
// quiz call until it is closed; started is signalled when that call begins.
type fakeGenerator struct {
	mu        sync.Mutex
	cur       *domain.Curriculum
	curErr    error
	quizErr   error
	questions int
	gate      chan struct{}
	started   chan struct{}
	quizCalls int
	requests  []ai.QuizRequest
}

func (f *fakeGenerator) GenerateCurriculum(context.Context, string, string) (*domain.Curriculum, error) {
	if f.curErr != nil {
		return nil, f.curErr
	}
	c := *f.cur
	c.Modules = append([]domain.Module(nil), f.cur.Modules...)
	return &c, nil
}

func (f *fakeGenerator) GenerateQuiz(_ context.Context, req ai.QuizRequest, _ string) ([]domain.QuizQuestion, error) {
	f.mu.Lock()
	f.quizCalls++
	first := f.quizCalls == 1
	f.requests = append(f.requests, req)
	gate := f.gate
	f.mu.Unlock()

	if first && gate != nil {
		if f.started != nil {
			close(f.started)
		}
		<-gate
	}
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	return sampleQuestions(f.questions), nil
}

func sampleQuestions(n int) []domain.QuizQuestion {
	qs := make([]domain.QuizQuestion, n)
	for i := range qs {
		qs[i] = domain.QuizQuestion{
			Question:           "question",
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: i % 4,
			Explanation:        "because",
		}
	}
	return qs
}

type fakeSearcher struct {
	results map[string]*video.Match
	errs    map[string]error
}

func (f *fakeSearcher) Search(_ context.Context, query, _ string) (*video.Match, error) {
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingPublisher) Publish(_ string, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) byType(t string) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

var errUpstream = errors.New("upstream unavailable")

func testCurriculum() *domain.Curriculum {
	return &domain.Curriculum{
		SkillName: "Go",
		Modules: []domain.Module{
			{
				Level:       domain.ModuleLevelBeginner,
				Title:       "Basics",
				KeyConcepts: []string{"syntax", "types", "packages"},
				Videos: []domain.Video{
					{Title: "Intro", Description: "generated intro"},
					{Title: "Tour", Description: "generated tour"},
				},
			},
			{Level: domain.ModuleLevelIntermediate, Title: "Concurrency"},
		},
	}
}

type testEnv struct {
	svc  *Service
	repo *memRepo
	gen  *fakeGenerator
	pub  *recordingPublisher
	now  time.Time
}

func newTestEnv(fallback domain.Credentials) *testEnv {
	env := &testEnv{
		repo: newMemRepo(),
		gen:  &fakeGenerator{cur: testCurriculum(), questions: 3},
		pub:  &recordingPublisher{},
		now:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	env.svc = New(Deps{
		Repo:      env.repo,
		Engine:    progress.NewEngine(progress.MustLevelTable(progress.DefaultLevels), progress.DefaultPolicy()),
		Registry:  quiz.NewRegistry(),
		Generator: env.gen,
		Searcher: &fakeSearcher{
			errs: map[string]error{"Intro Basics": errUpstream},
			results: map[string]*video.Match{
				"Tour Basics": {VideoID: "tour1234567", Title: "A Tour of Go", ChannelTitle: "golang"},
			},
		},
		Publisher: env.pub,
		Fallback:  fallback,
	})
	env.svc.now = func() time.Time { return env.now }
	return env
}

var bothKeys = domain.Credentials{GeminiAPIKey: "gem", YouTubeAPIKey: "yt"}
