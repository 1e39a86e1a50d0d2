package ai

import (
	"google.golang.org/genai"
)

func stringSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString}
}

func stringArraySchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: stringSchema()}
}

func curriculumSchema() *genai.Schema {
	video := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       stringSchema(),
			"channel":     stringSchema(),
			"description": stringSchema(),
			"duration":    stringSchema(),
			"videoId": {
				Type:        genai.TypeString,
				Description: "Optional 11-character YouTube id if known, else empty string.",
			},
		},
		Required: []string{"title", "channel", "description", "duration"},
	}

	module := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id": stringSchema(),
			"level": {
				Type: genai.TypeString,
				Enum: []string{"Beginner", "Intermediate", "Advanced", "Mastery"},
			},
			"title":         stringSchema(),
			"learningGoals": stringArraySchema(),
			"keyConcepts":   stringArraySchema(),
			"videos":        {Type: genai.TypeArray, Items: video},
		},
		Required: []string{"id", "level", "title", "learningGoals", "keyConcepts", "videos"},
	}

	career := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"projectIdeas":             stringArraySchema(),
			"interviewQuestions":       stringArraySchema(),
			"resumeBullets":            stringArraySchema(),
			"githubStarterDescription": stringSchema(),
		},
		Required: []string{"projectIdeas", "interviewQuestions", "resumeBullets", "githubStarterDescription"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"skillName": stringSchema(),
			"modules":   {Type: genai.TypeArray, Items: module},
			"career":    career,
		},
		Required: []string{"skillName", "modules", "career"},
	}
}

func quizSchema() *genai.Schema {
	question := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"question":           stringSchema(),
			"options":            stringArraySchema(),
			"correctAnswerIndex": {Type: genai.TypeInteger},
			"explanation":        stringSchema(),
		},
		Required: []string{"question", "options", "correctAnswerIndex", "explanation"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {Type: genai.TypeArray, Items: question},
		},
		Required: []string{"questions"},
	}
}
