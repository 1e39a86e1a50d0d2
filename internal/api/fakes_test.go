package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/skill-accelerator/internal/ai"
	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/identity"
	"github.com/ashureev/skill-accelerator/internal/learning"
	"github.com/ashureev/skill-accelerator/internal/progress"
	"github.com/go-chi/chi/v5"
)

type memRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	state   map[string]map[string]string
	pingErr error
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]*domain.User{}, state: map[string]map[string]string{}}
}

func (m *memRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

func (m *memRepo) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
	return nil
}

func (m *memRepo) UpdateLastSeen(context.Context, string, time.Time) error { return nil }

func (m *memRepo) GetState(_ context.Context, userID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[userID][key]
	return v, ok, nil
}

func (m *memRepo) PutState(_ context.Context, userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memRepo) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *memRepo) Close() error { return nil }

// fakeGenerator answers every quiz with option 0 as the correct choice.
type fakeGenerator struct {
	quizErr error
}

func (f *fakeGenerator) GenerateCurriculum(_ context.Context, skill, _ string) (*domain.Curriculum, error) {
	return &domain.Curriculum{
		SkillName: skill,
		Modules: []domain.Module{
			{Level: domain.ModuleLevelBeginner, Title: "Basics", Videos: []domain.Video{{Title: "Intro"}}},
			{Level: domain.ModuleLevelAdvanced, Title: "Generics"},
		},
	}, nil
}

func (f *fakeGenerator) GenerateQuiz(_ context.Context, req ai.QuizRequest, _ string) ([]domain.QuizQuestion, error) {
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	qs := make([]domain.QuizQuestion, req.Questions)
	for i := range qs {
		qs[i] = domain.QuizQuestion{
			Question:    "q",
			Options:     []string{"right", "wrong", "wrong", "wrong"},
			Explanation: "first option",
		}
	}
	return qs, nil
}

var errUpstream = errors.New("upstream unavailable")

// withUser stands in for the identity middleware.
func withUser(userID, tabID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithLearner(r.Context(), userID, tabID)))
		})
	}
}

type testServer struct {
	router http.Handler
	repo   *memRepo
	gen    *fakeGenerator
	svc    *learning.Service
}

func newEngine() *progress.Engine {
	return progress.NewEngine(progress.MustLevelTable(progress.DefaultLevels), progress.DefaultPolicy())
}

func newTestServer(fallback domain.Credentials) *testServer {
	repo := newMemRepo()
	gen := &fakeGenerator{}
	svc := learning.New(learning.Deps{
		Repo:          repo,
		Engine:        newEngine(),
		Generator:     gen,
		Fallback:      fallback,
		QuizQuestions: 3,
	})

	r := chi.NewRouter()
	r.Use(withUser("lrn_alice", "tab-1"))
	NewLearningHandler(NewHandler(repo, svc), nil).RegisterRoutes(r)
	NewHealthHandler(repo).RegisterHealth(r)
	return &testServer{router: r, repo: repo, gen: gen, svc: svc}
}
