package domain

// Keys of the per-user entries held by the state store.
const (
	StateKeyGeminiAPIKey  = "gemini_api_key"
	StateKeyYouTubeAPIKey = "youtube_api_key"
	StateKeyProgress      = "progress"
	StateKeyCurriculum    = "curriculum"
)

// Credentials holds the API keys for the external collaborators.
type Credentials struct {
	GeminiAPIKey  string `json:"gemini_api_key,omitempty"`
	YouTubeAPIKey string `json:"youtube_api_key,omitempty"`
}

// HasGemini reports whether curriculum and quiz generation can run.
func (c Credentials) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasYouTube reports whether video hydration can run.
func (c Credentials) HasYouTube() bool {
	return c.YouTubeAPIKey != ""
}

// Merge fills empty keys of c from fallback.
func (c Credentials) Merge(fallback Credentials) Credentials {
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = fallback.GeminiAPIKey
	}
	if c.YouTubeAPIKey == "" {
		c.YouTubeAPIKey = fallback.YouTubeAPIKey
	}
	return c
}
