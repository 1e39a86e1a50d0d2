package curriculum

import (
	"github.com/ashureev/skill-accelerator/internal/domain"
)

// View is a curriculum annotated with a user's completion state.
type View struct {
	SkillName string            `json:"skillName"`
	Modules   []ModuleView      `json:"modules"`
	Career    domain.CareerInfo `json:"career"`
	Completed int               `json:"completedModules"`
	Verified  int               `json:"verifiedVideos"`
}

// ModuleView is a module with its derived completion flag set.
type ModuleView struct {
	domain.Module
	Videos []VideoView `json:"videos"`
}

// VideoView is a video with its link and verification state.
type VideoView struct {
	domain.Video
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// WithProgress derives completion flags from p. Completion is never read
// from the stored curriculum.
func WithProgress(cur domain.Curriculum, p domain.UserProgress) View {
	v := View{
		SkillName: cur.SkillName,
		Career:    cur.Career,
		Modules:   make([]ModuleView, 0, len(cur.Modules)),
	}
	for _, m := range cur.Modules {
		mv := ModuleView{Module: m, Videos: make([]VideoView, 0, len(m.Videos))}
		mv.IsCompleted = p.HasCompletedModule(m.ID)
		mv.Module.Videos = nil
		if mv.IsCompleted {
			v.Completed++
		}
		for _, vid := range m.Videos {
			vv := VideoView{
				Video:    vid,
				URL:      vid.URL(),
				Verified: vid.VideoID != "" && p.HasCompletedVideo(vid.VideoID),
			}
			if vv.Verified {
				v.Verified++
			}
			mv.Videos = append(mv.Videos, vv)
		}
		v.Modules = append(v.Modules, mv)
	}
	return v
}
