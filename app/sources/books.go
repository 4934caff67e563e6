package sources

import (
	"context"
	"log/slog"
	"math/rand"
	"net/url"

	"github.com/dailydisco/discovery/app/feed"
)

// BookSource queries a bibliographic search API for a topic and filters out
// titles already known to the index. When the live query yields fewer than
// the wanted number of unique results, the remaining slots are filled from
// the bundled curated catalog, in randomized order.
type BookSource struct {
	client   *Client
	apiURL   string
	subject  string
	maxItems int
	fallback []BookEntry
}

func NewBookSource(client *Client, catalog *Catalog) *BookSource {
	return &BookSource{
		client:   client,
		apiURL:   catalog.Books.APIURL,
		subject:  catalog.Books.Subject,
		maxItems: catalog.Books.MaxItems,
		fallback: catalog.Books.Fallback,
	}
}

func (s *BookSource) Category() feed.Category { return feed.CategoryBook }

type volumesResponse struct {
	Items []struct {
		VolumeInfo struct {
			Title       string   `json:"title"`
			Subtitle    string   `json:"subtitle"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			ImageLinks  struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
			PreviewLink string `json:"previewLink"`
			InfoLink    string `json:"infoLink"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (s *BookSource) Fetch(ctx context.Context, sc feed.SourceContext) ([]feed.Item, error) {
	var items []feed.Item
	seen := make(map[string]struct{})

	known := func(title string) bool {
		if sc.Index.HasTitle(title) {
			return true
		}
		_, ok := seen[feed.NormalizeTitle(title)]
		return ok
	}
	accept := func(item feed.Item) {
		seen[feed.NormalizeTitle(item.Title)] = struct{}{}
		items = append(items, item)
	}

	queryURL := s.apiURL + "?orderBy=newest&maxResults=10&q=" + url.QueryEscape("subject:"+s.subject)

	var payload volumesResponse
	if err := s.client.GetJSON(ctx, queryURL, &payload); err != nil {
		// The curated catalog below still fills the slots, so a live-query
		// failure degrades rather than fails the source.
		slog.Warn("Book search failed, filling from curated catalog", "error", err)
	}

	for _, volume := range payload.Items {
		if len(items) >= s.maxItems {
			break
		}

		info := volume.VolumeInfo
		if info.Title == "" || known(info.Title) {
			continue
		}

		author := "Unknown"
		if len(info.Authors) > 0 {
			author = info.Authors[0]
		}

		description := info.Description
		if description == "" {
			description = info.Subtitle
		}

		var links []feed.Link
		if info.PreviewLink != "" {
			links = append(links, feed.Link{Label: "Preview", URL: info.PreviewLink})
		}
		if info.InfoLink != "" {
			links = append(links, feed.Link{Label: "More Info", URL: info.InfoLink})
		}

		accept(feed.Item{
			Category:    feed.CategoryBook,
			Title:       info.Title,
			Description: description,
			Summary:     description,
			ImageURL:    info.ImageLinks.Thumbnail,
			Links:       links,
			Metadata:    map[string]string{"author": author},
		})
	}

	for _, entry := range s.shuffledFallback() {
		if len(items) >= s.maxItems {
			break
		}
		if known(entry.Title) {
			continue
		}

		var links []feed.Link
		if entry.Link != "" {
			links = append(links, feed.Link{Label: "Read", URL: entry.Link})
		}

		accept(feed.Item{
			Category:    feed.CategoryBook,
			Title:       entry.Title,
			Description: entry.Description,
			Summary:     entry.Description,
			Links:       links,
			Metadata:    map[string]string{"author": entry.Author, "source": "curated"},
		})
	}

	return items, nil
}

func (s *BookSource) shuffledFallback() []BookEntry {
	shuffled := make([]BookEntry, len(s.fallback))
	copy(shuffled, s.fallback)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
