// Package api provides HTTP handlers for the Skill Accelerator API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/identity"
	"github.com/ashureev/skill-accelerator/internal/learning"
	"github.com/ashureev/skill-accelerator/internal/store"
)

// maxBodyBytes bounds request bodies; the largest is a settings update.
const maxBodyBytes = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
	svc  *learning.Service
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, svc *learning.Service) *Handler {
	return &Handler{
		repo: repo,
		svc:  svc,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps a service error to its HTTP response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var genErr *domain.GenerationError
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		JSON(w, http.StatusPreconditionFailed, map[string]interface{}{
			"error":    "credentials_required",
			"settings": true,
			"detail":   err.Error(),
		})
	case errors.As(err, &genErr):
		slog.Error("AI generation failed", "op", genErr.Op, "path", r.URL.Path, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNoCurriculum),
		errors.Is(err, domain.ErrModuleNotFound),
		errors.Is(err, domain.ErrVideoNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStaleSession),
		errors.Is(err, domain.ErrInvalidTransition):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidOption):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Request failed", "path", r.URL.Path, "user_id", identity.UserIDFromContext(r.Context()), "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a JSON request body into v. An empty body is an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// caller returns the requesting learner's tab, or false when the identity
// middleware did not run.
func caller(r *http.Request) (learning.Caller, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		return learning.Caller{}, false
	}
	return learning.Caller{
		UserID: userID,
		TabID:  identity.TabIDFromContext(r.Context()),
	}, true
}
