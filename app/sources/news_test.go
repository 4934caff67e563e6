package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dailydisco/discovery/app/feed"
)

func newsCatalog(apiURL, rssURL string) *Catalog {
	return &Catalog{
		News: NewsCatalog{
			APIURL:        apiURL,
			RSSURL:        rssURL,
			DiscussionURL: "https://news.example.com/item",
			Keywords:      []string{"health", "fitness", "sleep"},
			Lookahead:     10,
		},
	}
}

// rankedStoriesServer serves /topstories.json plus /item/N.json details.
func rankedStoriesServer(t *testing.T, ids []int64, details map[int64]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/topstories.json" {
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = fmt.Sprintf("%d", id)
			}
			fmt.Fprintf(w, "[%s]", strings.Join(parts, ","))
			return
		}
		for id, body := range details {
			if r.URL.Path == fmt.Sprintf("/item/%d.json", id) {
				w.Write([]byte(body))
				return
			}
		}
		http.NotFound(w, r)
	}))
}

func TestNewsSource_FirstKeywordMatchInRankOrder(t *testing.T) {
	api := rankedStoriesServer(t, []int64{1, 2, 3}, map[int64]string{
		1: `{"id":1,"title":"Show HN: My compiler","url":"https://a.example.com","score":900,"descendants":40}`,
		2: `{"id":2,"title":"Why sleep matters more than diet","url":"https://b.example.com","score":321,"descendants":87}`,
		3: `{"id":3,"title":"Fitness tracking at scale","url":"https://c.example.com","score":100,"descendants":5}`,
	})
	defer api.Close()

	source := NewNewsSource(testClient(), newsCatalog(api.URL, ""))

	items, err := source.Fetch(context.Background(), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.Title != "Why sleep matters more than diet" {
		t.Errorf("expected the highest-ranked keyword match, got %q", item.Title)
	}
	if item.Summary != "Score: 321 | 87 comments" {
		t.Errorf("unexpected summary %q", item.Summary)
	}
	if item.Description != "Trending story with 321 points" {
		t.Errorf("expected placeholder description, got %q", item.Description)
	}
	if len(item.Links) != 2 || item.Links[1].URL != "https://news.example.com/item?id=2" {
		t.Errorf("expected article plus discussion links, got %v", item.Links)
	}
}

func TestNewsSource_SkipsKnownDiscussionURL(t *testing.T) {
	api := rankedStoriesServer(t, []int64{7, 8}, map[int64]string{
		7: `{"id":7,"title":"Sleep research roundup","url":"https://a.example.com","score":50,"descendants":3}`,
		8: `{"id":8,"title":"Health effects of standing desks","url":"https://b.example.com","score":40,"descendants":2}`,
	})
	defer api.Close()

	source := NewNewsSource(testClient(), newsCatalog(api.URL, ""))

	sc := testContext()
	sc.Index.Record(feed.Item{
		Title: "Something Else Entirely",
		Links: []feed.Link{{URL: "https://news.example.com/item?id=7"}},
	})

	items, err := source.Fetch(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Health effects of standing desks" {
		t.Fatalf("expected story 8 after skipping the known discussion URL, got %v", items)
	}
}

func TestNewsSource_LookaheadExhaustedContributesNothing(t *testing.T) {
	api := rankedStoriesServer(t, []int64{1}, map[int64]string{
		1: `{"id":1,"title":"A story about nothing relevant","score":10}`,
	})
	defer api.Close()

	source := NewNewsSource(testClient(), newsCatalog(api.URL, ""))

	items, err := source.Fetch(context.Background(), testContext())
	if err != nil {
		t.Fatalf("no keyword match is not an error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected zero items, got %d", len(items))
	}
}

func TestNewsSource_RSSFallbackWhenAPIDown(t *testing.T) {
	rss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Front Page</title>
  <item>
    <title>Launching my startup</title>
    <link>https://x.example.com</link>
    <guid>https://news.example.com/item?id=90</guid>
  </item>
  <item>
    <title>How I fixed my sleep schedule</title>
    <link>https://y.example.com</link>
    <guid>https://news.example.com/item?id=91</guid>
  </item>
</channel></rss>`))
	}))
	defer rss.Close()

	source := NewNewsSource(testClient(), newsCatalog("http://127.0.0.1:0", rss.URL))

	items, err := source.Fetch(context.Background(), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "How I fixed my sleep schedule" {
		t.Errorf("expected the keyword match from RSS, got %q", items[0].Title)
	}
	if items[0].Links[len(items[0].Links)-1].URL != "https://news.example.com/item?id=91" {
		t.Errorf("expected discussion link from GUID, got %v", items[0].Links)
	}
}

func TestNewsSource_MatchesKeywordsCaseInsensitive(t *testing.T) {
	source := NewNewsSource(testClient(), newsCatalog("", ""))

	if !source.matchesKeywords("HEALTH insurance deep dive") {
		t.Error("expected case-insensitive keyword match")
	}
	if source.matchesKeywords("Completely unrelated title") {
		t.Error("expected no match for unrelated title")
	}
}
