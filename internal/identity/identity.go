// Package identity resolves the anonymous learner behind a request and the
// browser tab it came from. Learners are keyed by a long-lived cookie; each
// tab names itself so it can run its own quiz.
package identity

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/store"
)

const (
	LearnerCookieName = "skillacc_learner"
	TabHeaderName     = "X-Skill-Tab-ID"
	DefaultTabID      = "main"

	tabQueryParam       = "tab"
	learnerIDPrefix     = "lrn_"
	learnerCookieMaxAge = 180 * 24 * time.Hour

	// lastSeenResolution limits last_seen writes to one per interval.
	lastSeenResolution = time.Minute
)

var (
	learnerIDPattern = regexp.MustCompile(`^lrn_[a-f0-9]{32}$`)
	tabIDPattern     = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// Learner is the identity attached to a request.
type Learner struct {
	UserID      string
	DisplayName string
	TabID       string
}

type learnerKey struct{}

// WithLearner returns a context carrying userID on tabID.
func WithLearner(ctx context.Context, userID, tabID string) context.Context {
	return context.WithValue(ctx, learnerKey{}, Learner{
		UserID:      userID,
		DisplayName: DisplayName(userID),
		TabID:       normalizeTabID(tabID),
	})
}

// FromContext returns the learner set by Middleware or WithLearner.
func FromContext(ctx context.Context) (Learner, bool) {
	l, ok := ctx.Value(learnerKey{}).(Learner)
	return l, ok
}

// UserIDFromContext returns the learner id, or "" for anonymous requests
// that did not pass through Middleware.
func UserIDFromContext(ctx context.Context) string {
	l, _ := FromContext(ctx)
	return l.UserID
}

// TabIDFromContext returns the requesting tab, defaulting to DefaultTabID.
func TabIDFromContext(ctx context.Context) string {
	if l, ok := FromContext(ctx); ok && l.TabID != "" {
		return l.TabID
	}
	return DefaultTabID
}

// DisplayName gives a learner a short readable handle such as "Learner 3F9A".
func DisplayName(userID string) string {
	if !learnerIDPattern.MatchString(userID) {
		return "Learner"
	}
	return "Learner " + strings.ToUpper(userID[len(userID)-4:])
}

func newLearnerID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate learner id: %w", err)
	}
	return learnerIDPrefix + hex.EncodeToString(u[:]), nil
}

func normalizeTabID(id string) string {
	id = strings.TrimSpace(id)
	if !tabIDPattern.MatchString(id) {
		return DefaultTabID
	}
	return id
}

func tabIDFromRequest(r *http.Request) string {
	id := r.Header.Get(TabHeaderName)
	if id == "" {
		id = r.URL.Query().Get(tabQueryParam)
	}
	return normalizeTabID(id)
}

// learnerCookie issues the device cookie. Every request slides its expiry.
type learnerCookie struct {
	secure bool
}

func (c learnerCookie) resolve(w http.ResponseWriter, r *http.Request) (string, error) {
	var id string
	if ck, err := r.Cookie(LearnerCookieName); err == nil && learnerIDPattern.MatchString(ck.Value) {
		id = ck.Value
	} else {
		if id, err = newLearnerID(); err != nil {
			return "", err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     LearnerCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(learnerCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
	return id, nil
}

// touchLearner registers a first-time learner or refreshes last_seen for a
// returning one.
func touchLearner(ctx context.Context, repo store.Repository, userID string, now time.Time) error {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return repo.UpsertUser(ctx, &domain.User{
			UserID:      userID,
			DisplayName: DisplayName(userID),
			LastSeenAt:  now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if user.IdleFor(now) < lastSeenResolution {
		return nil
	}
	return repo.UpdateLastSeen(ctx, userID, now)
}

// Middleware attaches the learner and tab to every request, creating the
// learner record on first sight.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	cookie := learnerCookie{secure: !isDev}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := cookie.resolve(w, r)
			if err != nil {
				slog.Error("failed to issue learner id", "error", err)
				http.Error(w, `{"error":"failed to establish learner identity"}`, http.StatusInternalServerError)
				return
			}

			if err := touchLearner(r.Context(), repo, userID, time.Now()); err != nil {
				slog.Error("failed to register learner", "user_id", userID, "error", err)
				http.Error(w, `{"error":"failed to register learner"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithLearner(r.Context(), userID, tabIDFromRequest(r))))
		})
	}
}
