package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/dailydisco/discovery/app/feed"
)

type onThisDayPage struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	Thumbnail struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

type onThisDayEvent struct {
	Year  int             `json:"year"`
	Text  string          `json:"text"`
	Pages []onThisDayPage `json:"pages"`
}

// HistorySource fetches the on-this-day records for the target month-day,
// prefers entries with the most associated reference pages, and returns the
// first whose derived title is not already known.
type HistorySource struct {
	client *Client
	apiURL string
}

func NewHistorySource(client *Client, catalog *Catalog) *HistorySource {
	return &HistorySource{client: client, apiURL: catalog.History.APIURL}
}

func (s *HistorySource) Category() feed.Category { return feed.CategoryHistory }

func (s *HistorySource) Fetch(ctx context.Context, sc feed.SourceContext) ([]feed.Item, error) {
	eventsURL := fmt.Sprintf("%s/feed/onthisday/events/%s", s.apiURL, sc.Date.Format("01/02"))

	var payload struct {
		Events []onThisDayEvent `json:"events"`
	}
	if err := s.client.GetJSON(ctx, eventsURL, &payload); err != nil {
		return nil, err
	}
	if len(payload.Events) == 0 {
		return nil, nil
	}

	// Richer entries first: more reference pages means more context to show.
	sort.SliceStable(payload.Events, func(i, j int) bool {
		return len(payload.Events[i].Pages) > len(payload.Events[j].Pages)
	})

	for _, event := range payload.Events {
		title := historyTitle(event)
		if sc.Index.HasTitle(title) {
			continue
		}

		item := feed.Item{
			Category:    feed.CategoryHistory,
			Title:       title,
			Description: event.Text,
			Summary:     event.Text,
			Metadata: map[string]string{
				"year": strconv.Itoa(event.Year),
			},
		}

		if len(event.Pages) > 0 {
			page := event.Pages[0]
			if page.Extract != "" {
				item.Summary = page.Extract
			}
			item.ImageURL = page.Thumbnail.Source
			if wikiURL := pageURL(page); wikiURL != "" {
				item.Links = []feed.Link{{Label: "Read More", URL: wikiURL}}
				item.Metadata["wikiUrl"] = wikiURL
			}
		}

		return []feed.Item{item}, nil
	}

	return nil, nil
}

func historyTitle(event onThisDayEvent) string {
	text := event.Text
	if text == "" {
		text = "Historical Event"
	}
	return fmt.Sprintf("%d: %s", event.Year, truncate(text, 100))
}

func pageURL(page onThisDayPage) string {
	if page.ContentURLs.Desktop.Page != "" {
		return page.ContentURLs.Desktop.Page
	}
	if page.Title != "" {
		return "https://en.wikipedia.org/wiki/" + url.PathEscape(page.Title)
	}
	return ""
}
