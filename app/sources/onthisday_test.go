package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dailydisco/discovery/app/feed"
)

func onThisDayServer(t *testing.T, recordsPayload string, summaries map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/page/summary/") {
			page := strings.TrimPrefix(r.URL.Path, "/page/summary/")
			extract, ok := summaries[page]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(`{"extract": "` + extract + `"}`))
			return
		}
		w.Write([]byte(recordsPayload))
	}))
}

func onThisDayCatalog(apiURL string, maxPerKind int) *Catalog {
	return &Catalog{History: HistoryCatalog{APIURL: apiURL, MaxPerKind: maxPerKind}}
}

func TestOnThisDaySource_RanksByPagesAndCaps(t *testing.T) {
	payload := `{"births": [
		{"year": 1879, "text": "Albert Einstein, physicist", "pages": [
			{"title": "Albert_Einstein", "extract": "Physicist.",
			 "content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Albert_Einstein"}}}
		]},
		{"year": 1820, "text": "Lesser known figure", "pages": []},
		{"year": 1933, "text": "Famous author", "pages": [
			{"title": "Famous_Author", "extract": "Author."},
			{"title": "Other_Page", "extract": "Other."}
		]}
	]}`

	server := onThisDayServer(t, payload, nil)
	defer server.Close()

	source := NewOnThisDaySource(testClient(), onThisDayCatalog(server.URL, 2), feed.CategoryBirth)

	if source.Category() != feed.CategoryBirth {
		t.Fatalf("unexpected category %s", source.Category())
	}

	items, err := source.Fetch(context.Background(), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected the cap of 2 items, got %d", len(items))
	}
	if items[0].EventYear != "1933" || items[1].EventYear != "1879" {
		t.Errorf("expected page-count order 1933 then 1879, got %s then %s",
			items[0].EventYear, items[1].EventYear)
	}
	if items[0].Category != feed.CategoryBirth {
		t.Errorf("unexpected category %s", items[0].Category)
	}
}

func TestOnThisDaySource_OneRecordPerYear(t *testing.T) {
	payload := `{"events": [
		{"year": 1945, "text": "First event of the year", "pages": [{"title": "A", "extract": "a."}]},
		{"year": 1945, "text": "Second event of the same year", "pages": [{"title": "B", "extract": "b."}]},
		{"year": 1950, "text": "Different year", "pages": []}
	]}`

	server := onThisDayServer(t, payload, nil)
	defer server.Close()

	source := NewOnThisDaySource(testClient(), onThisDayCatalog(server.URL, 12), feed.CategoryEvent)

	items, err := source.Fetch(context.Background(), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected one record per year, got %d items", len(items))
	}

	years := map[string]int{}
	for _, item := range items {
		years[item.EventYear]++
	}
	if years["1945"] != 1 || years["1950"] != 1 {
		t.Errorf("unexpected year distribution %v", years)
	}
}

func TestOnThisDaySource_SkipsKnownTitles(t *testing.T) {
	payload := `{"deaths": [
		{"year": 1900, "text": "Known person", "pages": []},
		{"year": 1910, "text": "Unknown person", "pages": []}
	]}`

	server := onThisDayServer(t, payload, nil)
	defer server.Close()

	source := NewOnThisDaySource(testClient(), onThisDayCatalog(server.URL, 12), feed.CategoryDeath)

	sc := testContext()
	sc.Index.Record(feed.Item{Title: "1900: Known person"})

	items, err := source.Fetch(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Title != "1910: Unknown person" {
		t.Fatalf("expected only the unknown record, got %v", items)
	}
}

func TestOnThisDaySource_EnrichesMissingSummaries(t *testing.T) {
	payload := `{"events": [
		{"year": 1969, "text": "Moon landing", "pages": [
			{"title": "Apollo_11",
			 "content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Apollo_11"}}}
		]}
	]}`

	server := onThisDayServer(t, payload, map[string]string{
		"Apollo_11": "Apollo 11 was the first crewed Moon landing.",
	})
	defer server.Close()

	source := NewOnThisDaySource(testClient(), onThisDayCatalog(server.URL, 12), feed.CategoryEvent)

	items, err := source.Fetch(context.Background(), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Summary != "Apollo 11 was the first crewed Moon landing." {
		t.Errorf("expected enriched summary, got %q", items[0].Summary)
	}
}

func TestOnThisDaySource_EnrichmentFailureKeepsItem(t *testing.T) {
	payload := `{"events": [
		{"year": 1969, "text": "Moon landing", "pages": [{"title": "Missing_Page"}]}
	]}`

	server := onThisDayServer(t, payload, nil)
	defer server.Close()

	source := NewOnThisDaySource(testClient(), onThisDayCatalog(server.URL, 12), feed.CategoryEvent)

	items, err := source.Fetch(context.Background(), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the item to survive a failed summary lookup, got %d", len(items))
	}
	if items[0].Summary != "" {
		t.Errorf("expected empty summary, got %q", items[0].Summary)
	}
}

func TestOnThisDaySource_ProviderDown(t *testing.T) {
	source := NewOnThisDaySource(testClient(), onThisDayCatalog("http://127.0.0.1:0", 12), feed.CategoryEvent)

	if _, err := source.Fetch(context.Background(), testContext()); err == nil {
		t.Error("expected an error when the provider is unreachable")
	}
}
