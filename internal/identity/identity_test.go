package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	lastSeen map[string]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]*domain.User{}, lastSeen: map[string]time.Time{}}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserID] = user
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSeen[userID] = lastSeen
	return nil
}

func (f *fakeRepo) GetState(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeRepo) PutState(context.Context, string, string, string) error { return nil }
func (f *fakeRepo) DeleteState(context.Context, string, string) error      { return nil }
func (f *fakeRepo) DeleteAllState(context.Context, string) error           { return nil }
func (f *fakeRepo) Ping(context.Context) error                             { return nil }
func (f *fakeRepo) Close() error                                           { return nil }

func TestMiddlewareIssuesCookieAndRegistersLearner(t *testing.T) {
	repo := newFakeRepo()
	var got Learner
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(TabHeaderName, "tab-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !learnerIDPattern.MatchString(got.UserID) {
		t.Fatalf("user id %q is not a learner id", got.UserID)
	}
	if got.TabID != "tab-7" {
		t.Errorf("tab = %q, want tab-7", got.TabID)
	}
	user := repo.users[got.UserID]
	if user == nil {
		t.Fatal("learner was not persisted")
	}
	if user.DisplayName != got.DisplayName || !strings.HasPrefix(user.DisplayName, "Learner ") {
		t.Errorf("display name = %q, context has %q", user.DisplayName, got.DisplayName)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != LearnerCookieName || cookies[0].Value != got.UserID || cookies[0].Secure {
		t.Errorf("unexpected cookies: %v", cookies)
	}
}

func TestMiddlewareReusesCookie(t *testing.T) {
	repo := newFakeRepo()
	id := learnerIDPrefix + strings.Repeat("ab", 16)
	repo.users[id] = &domain.User{UserID: id, LastSeenAt: time.Now().Add(-time.Hour)}

	var gotUser, gotTab string
	h := Middleware(repo, false)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotTab = TabIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me?tab=bad%20id", nil)
	req.AddCookie(&http.Cookie{Name: LearnerCookieName, Value: id})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if gotUser != id {
		t.Errorf("user = %q, want %q", gotUser, id)
	}
	if gotTab != DefaultTabID {
		t.Errorf("tab = %q, want %q", gotTab, DefaultTabID)
	}
	if _, ok := repo.lastSeen[id]; !ok {
		t.Error("last seen was not refreshed for an idle learner")
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 1 || !cookies[0].Secure {
		t.Errorf("expected a refreshed secure cookie, got %v", cookies)
	}
}

func TestMiddlewareSkipsLastSeenForActiveLearner(t *testing.T) {
	repo := newFakeRepo()
	id := learnerIDPrefix + strings.Repeat("cd", 16)
	repo.users[id] = &domain.User{UserID: id, LastSeenAt: time.Now()}

	h := Middleware(repo, true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/api/progress", nil)
	req.AddCookie(&http.Cookie{Name: LearnerCookieName, Value: id})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := repo.lastSeen[id]; ok {
		t.Error("last seen written for a learner seen moments ago")
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	repo := newFakeRepo()
	var gotUser string
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: LearnerCookieName, Value: "lrn_../../etc"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotUser == "lrn_../../etc" || !learnerIDPattern.MatchString(gotUser) {
		t.Errorf("user = %q, want a freshly issued id", gotUser)
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("lrn_0123456789abcdef0123456789ab3f9a"); got != "Learner 3F9A" {
		t.Errorf("DisplayName = %q, want Learner 3F9A", got)
	}
	if got := DisplayName("alice"); got != "Learner" {
		t.Errorf("DisplayName(alice) = %q, want Learner", got)
	}
}

func TestNormalizeTabID(t *testing.T) {
	cases := map[string]string{
		"":          DefaultTabID,
		"  ":        DefaultTabID,
		"tab-1":     "tab-1",
		" tab-2 ":   "tab-2",
		"has space": DefaultTabID,
		"a:b.c_d-e": "a:b.c_d-e",
		"<script>":  DefaultTabID,
	}
	for in, want := range cases {
		if got := normalizeTabID(in); got != want {
			t.Errorf("normalizeTabID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContextWithoutLearner(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != "" {
		t.Errorf("user id = %q, want empty", id)
	}
	if tab := TabIDFromContext(ctx); tab != DefaultTabID {
		t.Errorf("tab = %q, want %q", tab, DefaultTabID)
	}
}
