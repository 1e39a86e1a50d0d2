package video

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// YouTube searches the YouTube Data API v3.
type YouTube struct {
	opts []option.ClientOption
}

// NewYouTube creates a YouTube searcher. Extra client options are applied
// after the per-call API key.
func NewYouTube(opts ...option.ClientOption) *YouTube {
	return &YouTube{opts: opts}
}

// Search returns the first video result for query.
func (y *YouTube) Search(ctx context.Context, query, apiKey string) (*Match, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.MissingCredential("youtube")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, y.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	resp, err := svc.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(1).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}

	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		m := &Match{VideoID: item.Id.VideoId}
		if s := item.Snippet; s != nil {
			m.Title = html.UnescapeString(s.Title)
			m.ChannelTitle = html.UnescapeString(s.ChannelTitle)
			m.Description = html.UnescapeString(s.Description)
			m.ThumbnailURL = thumbnailURL(s.Thumbnails)
		}
		return m, nil
	}
	return nil, nil
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
