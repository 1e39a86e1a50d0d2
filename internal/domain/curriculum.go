package domain

import (
	"net/url"
)

// ModuleLevel is the difficulty tier of a curriculum module.
type ModuleLevel string

const (
	ModuleLevelBeginner     ModuleLevel = "Beginner"
	ModuleLevelIntermediate ModuleLevel = "Intermediate"
	ModuleLevelAdvanced     ModuleLevel = "Advanced"
	ModuleLevelMastery      ModuleLevel = "Mastery"
)

// ModuleLevels lists the tiers in curriculum order.
var ModuleLevels = []ModuleLevel{
	ModuleLevelBeginner,
	ModuleLevelIntermediate,
	ModuleLevelAdvanced,
	ModuleLevelMastery,
}

// Curriculum is a generated learning path for one skill.
type Curriculum struct {
	SkillName string     `json:"skillName"`
	Modules   []Module   `json:"modules"`
	Career    CareerInfo `json:"career"`
}

// Module is one unit of curriculum content.
// IsCompleted is derived from UserProgress when rendering and is never
// persisted as true.
type Module struct {
	ID            string      `json:"id"`
	Level         ModuleLevel `json:"level"`
	Title         string      `json:"title"`
	LearningGoals []string    `json:"learningGoals"`
	KeyConcepts   []string    `json:"keyConcepts"`
	Videos        []Video     `json:"videos"`
	IsCompleted   bool        `json:"isCompleted"`
}

// Video is a curated video resource. Title, SearchQuery, Channel,
// Description and Duration come from the AI collaborator; VideoID may be
// supplied by it too, while VideoTitle, ChannelTitle and ThumbnailURL are
// only set by hydration.
type Video struct {
	Title        string `json:"title"`
	SearchQuery  string `json:"searchQuery,omitempty"`
	Channel      string `json:"channel,omitempty"`
	Description  string `json:"description"`
	Duration     string `json:"duration,omitempty"`
	VideoID      string `json:"videoId,omitempty"`
	VideoTitle   string `json:"videoTitle,omitempty"`
	ChannelTitle string `json:"channelTitle,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// CareerInfo is the career integration section of a curriculum.
type CareerInfo struct {
	ProjectIdeas             []string `json:"projectIdeas"`
	InterviewQuestions       []string `json:"interviewQuestions"`
	ResumeBullets            []string `json:"resumeBullets"`
	GithubStarterDescription string   `json:"githubStarterDescription"`
}

// Query returns the free-text search used to find the video.
func (v Video) Query(moduleTitle string) string {
	if v.SearchQuery != "" {
		return v.SearchQuery
	}
	if moduleTitle == "" {
		return v.Title
	}
	return v.Title + " " + moduleTitle
}

// URL links to the video when its id is known and to a search otherwise.
func (v Video) URL() string {
	if v.VideoID != "" {
		return "https://www.youtube.com/watch?v=" + url.QueryEscape(v.VideoID)
	}
	q := v.SearchQuery
	if q == "" {
		q = v.Title
	}
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(q)
}

// ContextID is the id video quiz completion is recorded under. Videos
// without a resolved id map to the placeholder and are never recorded.
func (v Video) ContextID() string {
	if v.VideoID == "" {
		return PlaceholderContextID
	}
	return v.VideoID
}

// DisplayTitle prefers the verified title over the generated one.
func (v Video) DisplayTitle() string {
	if v.VideoTitle != "" {
		return v.VideoTitle
	}
	return v.Title
}

// Module looks up a module by id.
func (c *Curriculum) Module(id string) (*Module, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

// VideoCount returns the number of videos across all modules.
func (c *Curriculum) VideoCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Videos)
	}
	return n
}
