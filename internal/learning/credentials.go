package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// Credential sources reported by CredentialStatus.
const (
	SourceUser   = "user"
	SourceServer = "server"
	SourceNone   = ""
)

// CredentialStatus reports which credentials are available without
// revealing their values.
type CredentialStatus struct {
	Gemini        bool   `json:"gemini"`
	GeminiSource  string `json:"gemini_source,omitempty"`
	YouTube       bool   `json:"youtube"`
	YouTubeSource string `json:"youtube_source,omitempty"`
}

func (s *Service) userCredentials(ctx context.Context, userID string) (domain.Credentials, error) {
	var c domain.Credentials
	var err error
	if c.GeminiAPIKey, _, err = s.repo.GetState(ctx, userID, domain.StateKeyGeminiAPIKey); err != nil {
		return c, fmt.Errorf("load credentials: %w", err)
	}
	if c.YouTubeAPIKey, _, err = s.repo.GetState(ctx, userID, domain.StateKeyYouTubeAPIKey); err != nil {
		return c, fmt.Errorf("load credentials: %w", err)
	}
	return c, nil
}

// credentials returns the user's keys with server-wide fallbacks applied.
func (s *Service) credentials(ctx context.Context, userID string) (domain.Credentials, error) {
	c, err := s.userCredentials(ctx, userID)
	if err != nil {
		return c, err
	}
	return c.Merge(s.fallback), nil
}

func source(user, fallback string) string {
	switch {
	case user != "":
		return SourceUser
	case fallback != "":
		return SourceServer
	default:
		return SourceNone
	}
}

// CredentialStatus reports which credentials the user can use.
func (s *Service) CredentialStatus(ctx context.Context, userID string) (CredentialStatus, error) {
	c, err := s.userCredentials(ctx, userID)
	if err != nil {
		return CredentialStatus{}, err
	}
	st := CredentialStatus{
		GeminiSource:  source(c.GeminiAPIKey, s.fallback.GeminiAPIKey),
		YouTubeSource: source(c.YouTubeAPIKey, s.fallback.YouTubeAPIKey),
	}
	st.Gemini = st.GeminiSource != SourceNone
	st.YouTube = st.YouTubeSource != SourceNone
	return st, nil
}

// SetCredentials stores the non-empty keys of c for the user.
func (s *Service) SetCredentials(ctx context.Context, userID string, c domain.Credentials) (CredentialStatus, error) {
	entries := []struct{ key, value string }{
		{domain.StateKeyGeminiAPIKey, strings.TrimSpace(c.GeminiAPIKey)},
		{domain.StateKeyYouTubeAPIKey, strings.TrimSpace(c.YouTubeAPIKey)},
	}
	for _, e := range entries {
		if e.value == "" {
			continue
		}
		if err := s.repo.PutState(ctx, userID, e.key, e.value); err != nil {
			return CredentialStatus{}, fmt.Errorf("save credentials: %w", err)
		}
	}
	return s.CredentialStatus(ctx, userID)
}

// ClearCredentials removes the user's own keys. Server fallbacks remain.
func (s *Service) ClearCredentials(ctx context.Context, userID string) (CredentialStatus, error) {
	for _, key := range []string{domain.StateKeyGeminiAPIKey, domain.StateKeyYouTubeAPIKey} {
		if err := s.repo.DeleteState(ctx, userID, key); err != nil {
			return CredentialStatus{}, fmt.Errorf("clear credentials: %w", err)
		}
	}
	return s.CredentialStatus(ctx, userID)
}
