package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/dailydisco/discovery/app/feed"
)

var videoIDPattern = regexp.MustCompile(`"videoId":"([a-zA-Z0-9_-]{11})"`)

// VideoResult is one candidate returned by a search backend.
type VideoResult struct {
	ID     string
	Title  string
	Author string
}

// SearchBackend is one interchangeable video search provider. Backends are
// tried in priority order; the first one that yields results wins.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, query string) ([]VideoResult, error)
}

// resultsPageBackend scrapes video IDs out of the public search results
// page. It yields IDs only; titles come from the enrichment lookup.
type resultsPageBackend struct {
	client  *Client
	baseURL string
}

func (b *resultsPageBackend) Name() string { return "results-page" }

func (b *resultsPageBackend) Search(ctx context.Context, query string) ([]VideoResult, error) {
	searchURL := b.baseURL + "?search_query=" + url.QueryEscape(query)
	html, err := b.client.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var results []VideoResult
	for _, match := range videoIDPattern.FindAllStringSubmatch(string(html), -1) {
		id := match[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		results = append(results, VideoResult{ID: id})
	}

	return results, nil
}

// invidiousBackend queries an Invidious instance's JSON search API.
type invidiousBackend struct {
	client  *Client
	baseURL string
}

func (b *invidiousBackend) Name() string { return "invidious" }

func (b *invidiousBackend) Search(ctx context.Context, query string) ([]VideoResult, error) {
	searchURL := b.baseURL + "/api/v1/search?type=video&q=" + url.QueryEscape(query)

	var payload []struct {
		VideoID string `json:"videoId"`
		Title   string `json:"title"`
		Author  string `json:"author"`
	}
	if err := b.client.GetJSON(ctx, searchURL, &payload); err != nil {
		return nil, err
	}

	results := make([]VideoResult, 0, len(payload))
	for _, entry := range payload {
		if entry.VideoID == "" {
			continue
		}
		results = append(results, VideoResult{ID: entry.VideoID, Title: entry.Title, Author: entry.Author})
	}

	return results, nil
}

// VideoSource picks one video per rotating query. Candidates whose ID is
// already known to the uniqueness index are skipped; if every candidate is
// known the query contributes nothing this cycle (a seen ID is never
// re-emitted).
type VideoSource struct {
	backends     []SearchBackend
	client       *Client
	queries      []string
	oembedURL    string
	watchURL     string
	thumbnailURL string
}

func NewVideoSource(client *Client, catalog *Catalog) *VideoSource {
	return &VideoSource{
		backends: []SearchBackend{
			&resultsPageBackend{client: client, baseURL: catalog.Video.SearchURL},
			&invidiousBackend{client: client, baseURL: catalog.Video.InvidiousURL},
		},
		client:       client,
		queries:      catalog.Video.Queries,
		oembedURL:    catalog.Video.OEmbedURL,
		watchURL:     catalog.Video.WatchURL,
		thumbnailURL: catalog.Video.ThumbnailURL,
	}
}

func (s *VideoSource) Category() feed.Category { return feed.CategoryVideo }

func (s *VideoSource) Fetch(ctx context.Context, sc feed.SourceContext) ([]feed.Item, error) {
	var items []feed.Item
	picked := make(map[string]struct{})

	for _, query := range s.queries {
		results, err := s.search(ctx, query)
		if err != nil {
			slog.Warn("Video search failed for query", "query", query, "error", err)
			continue
		}

		candidate, ok := s.pickUnseen(results, sc.Index, picked)
		if !ok {
			slog.Debug("No unseen video candidate", "query", query, "candidates", len(results))
			continue
		}
		picked[candidate.ID] = struct{}{}

		items = append(items, s.buildItem(ctx, query, candidate))
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no unique video candidates for any query")
	}

	return items, nil
}

// search tries each backend in priority order; the first backend that
// succeeds with a non-empty result set wins.
func (s *VideoSource) search(ctx context.Context, query string) ([]VideoResult, error) {
	var lastErr error
	for _, backend := range s.backends {
		results, err := backend.Search(ctx, query)
		if err != nil {
			slog.Debug("Video backend failed", "backend", backend.Name(), "query", query, "error", err)
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all video backends failed: %w", lastErr)
	}
	return nil, nil
}

func (s *VideoSource) pickUnseen(results []VideoResult, index *feed.Index, picked map[string]struct{}) (VideoResult, bool) {
	for _, result := range results {
		if index.HasProviderID(result.ID) {
			continue
		}
		if _, ok := picked[result.ID]; ok {
			continue
		}
		return result, true
	}
	return VideoResult{}, false
}

func (s *VideoSource) buildItem(ctx context.Context, query string, candidate VideoResult) feed.Item {
	watchURL := s.watchURL + "?v=" + candidate.ID

	title := candidate.Title
	channelName := candidate.Author

	// Enrichment is best-effort: an oembed failure degrades the item to a
	// placeholder title, it never drops the candidate.
	if oembed, err := s.lookupOEmbed(ctx, watchURL); err != nil {
		slog.Debug("Video oembed lookup failed", "video_id", candidate.ID, "error", err)
	} else {
		if oembed.Title != "" {
			title = oembed.Title
		}
		if oembed.AuthorName != "" {
			channelName = oembed.AuthorName
		}
	}
	if title == "" {
		title = query
	}

	description := ""
	if channelName != "" {
		description = "By " + channelName
	}

	return feed.Item{
		Category:    feed.CategoryVideo,
		Title:       title,
		Description: description,
		Summary:     fmt.Sprintf("Top result for %q", query),
		ImageURL:    fmt.Sprintf(s.thumbnailURL, candidate.ID),
		Links:       []feed.Link{{Label: "Watch", URL: watchURL}},
		Metadata:    map[string]string{"videoId": candidate.ID, "channelName": channelName},
		ProviderID:  candidate.ID,
	}
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

func (s *VideoSource) lookupOEmbed(ctx context.Context, watchURL string) (*oembedResponse, error) {
	oembedURL := s.oembedURL + "?format=json&url=" + url.QueryEscape(watchURL)

	var payload oembedResponse
	if err := s.client.GetJSON(ctx, oembedURL, &payload); err != nil {
		return nil, err
	}

	return &payload, nil
}
