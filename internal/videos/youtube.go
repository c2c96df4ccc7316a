package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/sawaflix/backend/internal/upstream"
)

const (
	serviceName = "youtube"
	// The SDK repeats multi-valued params; the API is sent the comma-joined form.
	enrichParts = "snippet,statistics,contentDetails"
)

// DataAPIClient talks to the YouTube Data API v3 with an API key. It
// implements both Searcher and Enricher.
type DataAPIClient struct {
	svc *youtube.Service
}

// NewDataAPIClient builds a client. endpoint overrides the API base URL and may
// be empty.
func NewDataAPIClient(ctx context.Context, apiKey, endpoint string) (*DataAPIClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &DataAPIClient{svc: svc}, nil
}

// Search runs search.list restricted to embeddable high-definition videos.
func (c *DataAPIClient) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	call := c.svc.Search.List([]string{"id"}).
		Type("video").
		MaxResults(params.MaxResults).
		Q(params.Query).
		VideoEmbeddable("true").
		VideoDefinition("high")
	if params.RegionCode != "" {
		call = call.RegionCode(params.RegionCode)
	}
	if params.RelevanceLanguage != "" {
		call = call.RelevanceLanguage(params.RelevanceLanguage)
	}
	if params.PageToken != "" {
		call = call.PageToken(params.PageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return SearchResult{}, toUpstreamError("search", err)
	}

	result := SearchResult{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		result.IDs = append(result.IDs, item.Id.VideoId)
	}
	return result, nil
}

// Enrich runs videos.list for ids and returns the items in response order.
func (c *DataAPIClient) Enrich(ctx context.Context, ids []string) ([]Video, error) {
	resp, err := c.svc.Videos.List([]string{enrichParts}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, toUpstreamError("videos", err)
	}

	out := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		out = append(out, fromAPIVideo(item))
	}
	return out, nil
}

func toUpstreamError(op string, err error) error {
	upErr := &upstream.Error{Service: serviceName, Op: op, Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		upErr.StatusCode = apiErr.Code
		upErr.Message = apiErr.Message
		if upErr.Message == "" && len(apiErr.Errors) > 0 {
			upErr.Message = apiErr.Errors[0].Message
		}
	}
	return upErr
}

func fromAPIVideo(v *youtube.Video) Video {
	out := Video{ID: v.Id}

	if s := v.Snippet; s != nil {
		out.Snippet = &Snippet{
			Title:        s.Title,
			Description:  s.Description,
			ChannelID:    s.ChannelId,
			ChannelTitle: s.ChannelTitle,
			PublishedAt:  s.PublishedAt,
			Tags:         s.Tags,
			CategoryID:   s.CategoryId,
			Thumbnails:   fromAPIThumbnails(s.Thumbnails),
		}
	}
	if s := v.Statistics; s != nil {
		out.Statistics = &Statistics{
			ViewCount:    s.ViewCount,
			LikeCount:    s.LikeCount,
			CommentCount: s.CommentCount,
		}
	}
	if d := v.ContentDetails; d != nil {
		out.ContentDetails = &ContentDetails{
			Duration:        d.Duration,
			Definition:      d.Definition,
			Caption:         d.Caption,
			Dimension:       d.Dimension,
			LicensedContent: d.LicensedContent,
		}
	}
	return out
}

func fromAPIThumbnails(details *youtube.ThumbnailDetails) map[string]Thumbnail {
	if details == nil {
		return nil
	}
	out := make(map[string]Thumbnail)
	add := func(name string, t *youtube.Thumbnail) {
		if t != nil && t.Url != "" {
			out[name] = Thumbnail{URL: t.Url, Width: t.Width, Height: t.Height}
		}
	}
	add("default", details.Default)
	add("medium", details.Medium)
	add("high", details.High)
	add("standard", details.Standard)
	add("maxres", details.Maxres)
	if len(out) == 0 {
		return nil
	}
	return out
}
