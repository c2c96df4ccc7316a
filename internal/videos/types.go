package videos

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// Thumbnail is a single rendition of a video preview image.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int64  `json:"width,omitempty"`
	Height int64  `json:"height,omitempty"`
}

type Snippet struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	ChannelID    string               `json:"channelId"`
	ChannelTitle string               `json:"channelTitle"`
	PublishedAt  string               `json:"publishedAt"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	CategoryID   string               `json:"categoryId,omitempty"`
}

// Statistics mirrors the platform's encoding of counters as decimal strings.
type Statistics struct {
	ViewCount    uint64 `json:"viewCount,string"`
	LikeCount    uint64 `json:"likeCount,string"`
	CommentCount uint64 `json:"commentCount,string"`
}

type ContentDetails struct {
	Duration        string `json:"duration"`
	Definition      string `json:"definition"`
	Caption         string `json:"caption"`
	Dimension       string `json:"dimension"`
	LicensedContent bool   `json:"licensedContent"`
}

// Video is one enriched feed entry. ID is never empty in a returned Page.
type Video struct {
	ID             string          `json:"id"`
	Snippet        *Snippet        `json:"snippet,omitempty"`
	Statistics     *Statistics     `json:"statistics,omitempty"`
	ContentDetails *ContentDetails `json:"contentDetails,omitempty"`
}

// Page is one screen of the feed. A nil NextPageToken means there are no
// further results.
type Page struct {
	Items         []Video `json:"items"`
	NextPageToken *string `json:"nextPageToken"`
}

// SearchParams is the full parameter set of a search call; it doubles as the
// cache key.
type SearchParams struct {
	Query             string
	PageToken         string
	RegionCode        string
	RelevanceLanguage string
	MaxResults        int64
}

// Key returns a stable digest of the parameters.
func (p SearchParams) Key() string {
	joined := strings.Join([]string{
		p.Query,
		p.PageToken,
		p.RegionCode,
		p.RelevanceLanguage,
		strconv.FormatInt(p.MaxResults, 10),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("yt:search:%x", sum[:12])
}

// SearchResult holds the ids matched by a search, in ranking order.
type SearchResult struct {
	IDs           []string `json:"ids"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// Searcher runs the id-only search phase.
type Searcher interface {
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

// Enricher loads full details for a batch of ids.
type Enricher interface {
	Enrich(ctx context.Context, ids []string) ([]Video, error)
}
