// Package video finds concrete videos for curriculum recommendations.
package video

import (
	"context"
)

// Match is the best search result for a query.
type Match struct {
	VideoID      string
	Title        string
	ChannelTitle string
	ThumbnailURL string
	Description  string
}

// Searcher looks up the single best video for a free-text query.
// A nil Match with a nil error means nothing matched.
type Searcher interface {
	Search(ctx context.Context, query, apiKey string) (*Match, error)
}
