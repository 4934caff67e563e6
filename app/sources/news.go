package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"codeberg.org/readeck/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/dailydisco/discovery/app/feed"
)

// newsStory is one ranked aggregator story, normalized across backends.
type newsStory struct {
	ID            string
	Title         string
	URL           string
	DiscussionURL string
	Text          string
	Score         int
	Comments      int
}

// NewsSource walks the aggregator's ranked stories in order and returns the
// first one that matches the keyword filter and is not already known by
// title or discussion URL. At most `lookahead` candidates are examined.
// When the ranking API is unreachable, the front-page RSS feed serves as
// the fallback backend.
type NewsSource struct {
	client           *Client
	apiURL           string
	rssURL           string
	discussionURL    string
	keywords         []string
	lookahead        int
	extractSummaries bool
	rssParser        *gofeed.Parser
}

func NewNewsSource(client *Client, catalog *Catalog) *NewsSource {
	return &NewsSource{
		client:           client,
		apiURL:           catalog.News.APIURL,
		rssURL:           catalog.News.RSSURL,
		discussionURL:    catalog.News.DiscussionURL,
		keywords:         catalog.News.Keywords,
		lookahead:        catalog.News.Lookahead,
		extractSummaries: catalog.News.ExtractSummaries,
		rssParser:        gofeed.NewParser(),
	}
}

func (s *NewsSource) Category() feed.Category { return feed.CategoryNews }

func (s *NewsSource) Fetch(ctx context.Context, sc feed.SourceContext) ([]feed.Item, error) {
	story, err := s.findStory(ctx, sc.Index)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, nil
	}

	description := stripTags(story.Text)
	if description == "" && s.extractSummaries && story.URL != "" {
		// Best-effort readable summary of the linked article; failure
		// leaves the placeholder description in place.
		if extracted, err := s.extractSummary(ctx, story.URL); err != nil {
			slog.Debug("News summary extraction failed", "url", story.URL, "error", err)
		} else {
			description = extracted
		}
	}
	if description == "" {
		description = fmt.Sprintf("Trending story with %d points", story.Score)
	}

	var links []feed.Link
	if story.URL != "" {
		links = append(links, feed.Link{Label: "Read Article", URL: story.URL})
	}
	links = append(links, feed.Link{Label: "Discussion", URL: story.DiscussionURL})

	return []feed.Item{{
		Category:    feed.CategoryNews,
		Title:       story.Title,
		Description: truncate(description, 500),
		Summary:     fmt.Sprintf("Score: %d | %d comments", story.Score, story.Comments),
		Links:       links,
		Metadata:    map[string]string{"source": "Hacker News", "storyId": story.ID},
	}}, nil
}

// findStory returns the first ranked story passing the keyword filter and
// the uniqueness checks, or nil when the lookahead window is exhausted.
func (s *NewsSource) findStory(ctx context.Context, index *feed.Index) (*newsStory, error) {
	story, err := s.findViaAPI(ctx, index)
	if err == nil {
		return story, nil
	}

	slog.Warn("News ranking API unavailable, falling back to RSS", "error", err)
	return s.findViaRSS(ctx, index)
}

func (s *NewsSource) findViaAPI(ctx context.Context, index *feed.Index) (*newsStory, error) {
	var ids []int64
	if err := s.client.GetJSON(ctx, s.apiURL+"/topstories.json", &ids); err != nil {
		return nil, err
	}

	if len(ids) > s.lookahead {
		ids = ids[:s.lookahead]
	}

	for _, id := range ids {
		var payload struct {
			ID          int64  `json:"id"`
			Title       string `json:"title"`
			URL         string `json:"url"`
			Text        string `json:"text"`
			Score       int    `json:"score"`
			Descendants int    `json:"descendants"`
		}
		if err := s.client.GetJSON(ctx, fmt.Sprintf("%s/item/%d.json", s.apiURL, id), &payload); err != nil {
			slog.Debug("Failed to fetch story details", "id", id, "error", err)
			continue
		}
		if payload.Title == "" {
			continue
		}

		story := &newsStory{
			ID:            strconv.FormatInt(payload.ID, 10),
			Title:         payload.Title,
			URL:           payload.URL,
			DiscussionURL: fmt.Sprintf("%s?id=%d", s.discussionURL, payload.ID),
			Text:          payload.Text,
			Score:         payload.Score,
			Comments:      payload.Descendants,
		}
		if s.accepts(story, index) {
			return story, nil
		}
	}

	return nil, nil
}

func (s *NewsSource) findViaRSS(ctx context.Context, index *feed.Index) (*newsStory, error) {
	data, err := s.client.Get(ctx, s.rssURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fallback feed: %w", err)
	}

	parsed, err := s.rssParser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fallback feed: %w", err)
	}

	items := parsed.Items
	if len(items) > s.lookahead {
		items = items[:s.lookahead]
	}

	for _, item := range items {
		if item.Title == "" {
			continue
		}

		// hnrss carries the discussion thread as the item GUID.
		discussionURL := item.GUID
		if discussionURL == "" {
			discussionURL = item.Link
		}

		story := &newsStory{
			ID:            discussionURL,
			Title:         item.Title,
			URL:           item.Link,
			DiscussionURL: discussionURL,
			Text:          item.Description,
		}
		if s.accepts(story, index) {
			return story, nil
		}
	}

	return nil, nil
}

func (s *NewsSource) accepts(story *newsStory, index *feed.Index) bool {
	if !s.matchesKeywords(story.Title) {
		return false
	}
	if index.HasTitle(story.Title) || index.HasURL(story.DiscussionURL) {
		return false
	}
	return true
}

func (s *NewsSource) matchesKeywords(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range s.keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func (s *NewsSource) extractSummary(ctx context.Context, articleURL string) (string, error) {
	data, err := s.client.Get(ctx, articleURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(strings.Join(strings.Fields(article.TextContent), " "))
	if text == "" {
		return "", fmt.Errorf("no readable content extracted")
	}

	return truncate(text, 500), nil
}
