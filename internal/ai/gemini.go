package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used by Gemini.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// clientFactory builds a contentGenerator for an API key.
type clientFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

// Gemini implements Generator on the Google Gen AI SDK.
// A client is built per call because each user may supply their own key.
type Gemini struct {
	model     string
	timeout   time.Duration
	newClient clientFactory
	logger    *slog.Logger
}

// GeminiOption configures a Gemini generator.
type GeminiOption func(*Gemini)

// WithTimeout bounds every generation call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *Gemini) { g.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *Gemini) { g.logger = logger }
}

func withClientFactory(f clientFactory) GeminiOption {
	return func(g *Gemini) { g.newClient = f }
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(model string, opts ...GeminiOption) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	g := &Gemini{
		model:     model,
		timeout:   90 * time.Second,
		newClient: newGenaiClient,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func newGenaiClient(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// GenerateCurriculum asks the model for a structured learning path.
func (g *Gemini) GenerateCurriculum(ctx context.Context, skill, apiKey string) (*domain.Curriculum, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.MissingCredential("gemini")
	}
	text, err := g.generate(ctx, apiKey, curriculumPrompt(skill), curriculumSchema(), 0.7)
	if err != nil {
		return nil, domain.NewGenerationError("curriculum", err)
	}
	cur, err := decodeCurriculum(text)
	if err != nil {
		return nil, domain.NewGenerationError("curriculum", err)
	}
	if cur.SkillName == "" {
		cur.SkillName = skill
	}
	g.logger.Info("curriculum generated", "skill", skill, "modules", len(cur.Modules))
	return cur, nil
}

// GenerateQuiz asks the model for multiple-choice questions.
func (g *Gemini) GenerateQuiz(ctx context.Context, req QuizRequest, apiKey string) ([]domain.QuizQuestion, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.MissingCredential("gemini")
	}
	if req.Questions <= 0 {
		req.Questions = DefaultQuizQuestions
	}
	text, err := g.generate(ctx, apiKey, quizPrompt(req), quizSchema(), 0.4)
	if err != nil {
		return nil, domain.NewGenerationError("quiz", err)
	}
	questions, err := decodeQuestions(text)
	if err != nil {
		return nil, domain.NewGenerationError("quiz", err)
	}
	g.logger.Info("quiz generated", "kind", req.Kind, "title", req.Title, "questions", len(questions))
	return questions, nil
}

func (g *Gemini) generate(ctx context.Context, apiKey, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	client, err := g.newClient(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	resp, err := client.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

func decodeCurriculum(text string) (*domain.Curriculum, error) {
	var cur domain.Curriculum
	if err := json.Unmarshal([]byte(stripFence(text)), &cur); err != nil {
		return nil, fmt.Errorf("unmarshal curriculum: %w", err)
	}
	if len(cur.Modules) == 0 {
		return nil, errors.New("curriculum has no modules")
	}
	return &cur, nil
}

func decodeQuestions(text string) ([]domain.QuizQuestion, error) {
	var payload struct {
		Questions []domain.QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripFence(text)), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal quiz: %w", err)
	}
	if err := domain.ValidateQuestions(payload.Questions); err != nil {
		return nil, err
	}
	return payload.Questions, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func curriculumPrompt(skill string) string {
	return fmt.Sprintf(`Create a structured learning path for the skill: %q.
Organize it into 4 to 6 modules that progress through the levels Beginner, Intermediate, Advanced and Mastery.
For each module list learning goals, key concepts and 2 or 3 recommended YouTube videos from reputable channels.
For each video give a title, the channel, a short description and an approximate duration. Leave videoId empty unless you are certain of it.
Finish with career guidance: project ideas, interview questions, resume bullets and a description for a GitHub starter repository.`, skill)
}

func quizPrompt(req QuizRequest) string {
	var b strings.Builder
	switch req.Kind {
	case domain.ContextVideo:
		fmt.Fprintf(&b, "Write a quiz checking that a learner understood the video %q", req.Title)
	default:
		fmt.Fprintf(&b, "Write a quiz checking mastery of the module %q", req.Title)
	}
	if req.Skill != "" {
		fmt.Fprintf(&b, " in a course on %s", req.Skill)
	}
	b.WriteString(".\n")
	if len(req.Concepts) > 0 {
		fmt.Fprintf(&b, "Key concepts: %s.\n", strings.Join(req.Concepts, ", "))
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "Content summary: %s\n", req.Description)
	}
	fmt.Fprintf(&b, "Return exactly %d multiple-choice questions, each with exactly %d options, the zero-based index of the correct option and a one-sentence explanation.",
		req.Questions, domain.OptionsPerQuestion)
	return b.String()
}
