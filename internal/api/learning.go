package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/identity"
	"github.com/go-chi/chi/v5"
)

// LearningHandler handles curriculum, quiz, progress and settings endpoints.
type LearningHandler struct {
	*Handler
	generateLimit func(http.Handler) http.Handler
}

// NewLearningHandler creates a learning handler. limit wraps the endpoints
// that call the AI collaborator; nil leaves them unlimited.
func NewLearningHandler(base *Handler, limit func(http.Handler) http.Handler) *LearningHandler {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	return &LearningHandler{Handler: base, generateLimit: limit}
}

// RegisterRoutes registers learning routes.
func (h *LearningHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)
		r.Delete("/settings", h.DeleteSettings)

		r.Get("/progress", h.GetProgress)
		r.Delete("/progress", h.ResetProgress)

		r.Get("/curriculum", h.GetCurriculum)
		r.With(h.generateLimit).Post("/curriculum", h.GenerateCurriculum)

		r.Route("/quiz", func(r chi.Router) {
			r.With(h.generateLimit).Post("/module/{moduleID}", h.StartModuleQuiz)
			r.With(h.generateLimit).Post("/video/{moduleID}/{videoIndex}", h.StartVideoQuiz)
			r.Delete("/current", h.CancelCurrentQuiz)
			r.Get("/{sessionID}", h.GetQuiz)
			r.Delete("/{sessionID}", h.CancelQuiz)
			r.Post("/{sessionID}/answer", h.Answer)
			r.Post("/{sessionID}/advance", h.Advance)
		})
	})
}

// GetMe returns the current user's information.
func (h *LearningHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      user.UserID,
		"display_name": user.DisplayName,
		"tab_id":       identity.TabIDFromContext(r.Context()),
		"created_at":   user.CreatedAt,
	})
}

// GetConfig returns server capabilities and the gamification rules.
func (h *LearningHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.svc.Config())
}

// GetSettings reports which credentials are set, never their values.
func (h *LearningHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	status, err := h.svc.CredentialStatus(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

// PutSettings stores the learner's collaborator keys. Blank fields leave
// the stored key unchanged.
func (h *LearningHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := h.svc.SetCredentials(r.Context(), c.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

// DeleteSettings removes the learner's stored keys.
func (h *LearningHandler) DeleteSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	status, err := h.svc.ClearCredentials(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

// GetProgress returns the learner's progress with level details.
func (h *LearningHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Progress(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

// ResetProgress replaces the learner's progress with the default.
func (h *LearningHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.ResetProgress(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

type generateCurriculumRequest struct {
	Skill string `json:"skill"`
}

// GenerateCurriculum builds a curriculum for the requested skill.
func (h *LearningHandler) GenerateCurriculum(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req generateCurriculumRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Skill = strings.TrimSpace(req.Skill)
	if req.Skill == "" {
		Error(w, http.StatusBadRequest, "skill is required")
		return
	}

	res, err := h.svc.GenerateCurriculum(r.Context(), c.UserID, req.Skill)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, res)
}

// GetCurriculum returns the learner's current curriculum.
func (h *LearningHandler) GetCurriculum(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	view, err := h.svc.Curriculum(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// StartModuleQuiz starts a mastery quiz for a module.
func (h *LearningHandler) StartModuleQuiz(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	snap, err := h.svc.StartModuleQuiz(r.Context(), c, chi.URLParam(r, "moduleID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, snap)
}

// StartVideoQuiz starts a verification quiz for a module video.
func (h *LearningHandler) StartVideoQuiz(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "videoIndex"))
	if err != nil {
		Error(w, http.StatusBadRequest, "video index must be an integer")
		return
	}
	snap, err := h.svc.StartVideoQuiz(r.Context(), c, chi.URLParam(r, "moduleID"), idx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, snap)
}

// GetQuiz returns the current snapshot of a quiz session.
func (h *LearningHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	snap, err := h.svc.Quiz(r.Context(), c, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// CancelQuiz discards a quiz session.
func (h *LearningHandler) CancelQuiz(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.CancelQuiz(r.Context(), c, chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelCurrentQuiz cancels the tab's open quiz, including one whose
// questions are still being generated.
func (h *LearningHandler) CancelCurrentQuiz(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.CancelCurrentQuiz(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type answerRequest struct {
	Option *int `json:"option"`
}

// Answer selects an option for the current question.
func (h *LearningHandler) Answer(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Option == nil {
		Error(w, http.StatusBadRequest, "option is required")
		return
	}

	res, err := h.svc.Answer(r.Context(), c, chi.URLParam(r, "sessionID"), *req.Option)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// Advance moves to the next question or finishes the quiz.
func (h *LearningHandler) Advance(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.svc.Advance(r.Context(), c, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}
