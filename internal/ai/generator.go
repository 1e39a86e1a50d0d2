// Package ai provides the generative-AI collaborators that produce
// curricula and quizzes.
package ai

import (
	"context"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// CurriculumGenerator produces a curriculum for a skill topic.
type CurriculumGenerator interface {
	GenerateCurriculum(ctx context.Context, skill, apiKey string) (*domain.Curriculum, error)
}

// QuizGenerator produces quiz questions for a module or video.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, req QuizRequest, apiKey string) ([]domain.QuizQuestion, error)
}

// Generator is the full AI collaborator.
type Generator interface {
	CurriculumGenerator
	QuizGenerator
}

// QuizRequest describes what a quiz should test. The collaborator does not
// know which context id the quiz will be bound to.
type QuizRequest struct {
	Kind        domain.ContextKind
	Skill       string
	Title       string
	Concepts    []string
	Description string
	Questions   int
}

// DefaultQuizQuestions is the number of questions requested per quiz.
const DefaultQuizQuestions = 3

// Ensure Gemini implements Generator.
var _ Generator = (*Gemini)(nil)
