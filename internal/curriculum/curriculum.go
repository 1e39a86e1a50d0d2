// Package curriculum generates learning paths and enriches their video
// recommendations with concrete search results.
package curriculum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ashureev/skill-accelerator/internal/ai"
	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/video"
)

// DefaultConcurrency bounds parallel video searches during hydration.
const DefaultConcurrency = 8

var errEmptyCurriculum = errors.New("curriculum has no modules")

// Generate asks the AI collaborator for a curriculum and normalizes it:
// modules without an id get "mod-{index}" and no module is marked completed.
func Generate(ctx context.Context, gen ai.CurriculumGenerator, skill, apiKey string) (domain.Curriculum, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return domain.Curriculum{}, errors.New("skill is required")
	}

	cur, err := gen.GenerateCurriculum(ctx, skill, apiKey)
	if err != nil {
		return domain.Curriculum{}, err
	}
	if cur == nil || len(cur.Modules) == 0 {
		return domain.Curriculum{}, domain.NewGenerationError("curriculum", errEmptyCurriculum)
	}

	out := *cur
	if out.SkillName == "" {
		out.SkillName = skill
	}
	out.Modules = make([]domain.Module, len(cur.Modules))
	seen := make(map[string]bool, len(cur.Modules))
	for i, m := range cur.Modules {
		if m.ID == "" || seen[m.ID] {
			m.ID = fmt.Sprintf("mod-%d", i)
		}
		seen[m.ID] = true
		m.IsCompleted = false
		m.Videos = append([]domain.Video(nil), m.Videos...)
		out.Modules[i] = m
	}
	return out, nil
}

// HydrationReport summarizes a hydration pass.
type HydrationReport struct {
	Total    int `json:"total"`
	Enriched int `json:"enriched"`
	Failed   int `json:"failed"`
}

// Hydrate searches for every video in every module concurrently, at most
// limit at a time, and returns a copy of cur with matches applied. A failed
// or empty search leaves that video's placeholder untouched. Hydrate itself
// never fails.
func Hydrate(ctx context.Context, searcher video.Searcher, cur domain.Curriculum, apiKey string, limit int) (domain.Curriculum, HydrationReport) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	out := cur
	out.Modules = make([]domain.Module, len(cur.Modules))
	for i, m := range cur.Modules {
		m.Videos = append([]domain.Video(nil), m.Videos...)
		out.Modules[i] = m
	}

	type slot struct {
		match *video.Match
		err   error
	}
	results := make([][]slot, len(out.Modules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for mi := range out.Modules {
		mod := out.Modules[mi]
		results[mi] = make([]slot, len(mod.Videos))
		for vi := range mod.Videos {
			query := mod.Videos[vi].Query(mod.Title)
			g.Go(func() error {
				m, err := searcher.Search(gctx, query, apiKey)
				// Each slot is owned by exactly one goroutine.
				results[mi][vi] = slot{match: m, err: err}
				return nil
			})
		}
	}
	_ = g.Wait()

	var report HydrationReport
	for mi := range out.Modules {
		for vi := range out.Modules[mi].Videos {
			report.Total++
			r := results[mi][vi]
			v := &out.Modules[mi].Videos[vi]
			switch {
			case r.err != nil:
				report.Failed++
				slog.Warn("video search failed", "module_id", out.Modules[mi].ID, "video", v.Title, "error", r.err)
			case r.match == nil:
				slog.Debug("video search returned no match", "module_id", out.Modules[mi].ID, "video", v.Title)
			default:
				apply(v, r.match)
				report.Enriched++
			}
		}
	}
	return out, report
}

func apply(v *domain.Video, m *video.Match) {
	if m.VideoID != "" {
		v.VideoID = m.VideoID
	}
	if m.Title != "" {
		v.VideoTitle = m.Title
	}
	if m.ChannelTitle != "" {
		v.ChannelTitle = m.ChannelTitle
	}
	if m.ThumbnailURL != "" {
		v.ThumbnailURL = m.ThumbnailURL
	}
	if m.Description != "" {
		v.Description = m.Description
	}
}
