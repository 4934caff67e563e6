package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"github.com/dailydisco/discovery/app/feed"
)

// enrichBatchSize bounds how many page-summary lookups run concurrently.
const enrichBatchSize = 10

// OnThisDaySource feeds the recurring month-day feed with one kind of
// on-this-day record (events, births, or deaths). Candidates missing an
// extract are enriched from the page-summary endpoint in small concurrent
// batches; enrichment order does not affect correctness since each lookup
// touches an independent item.
type OnThisDaySource struct {
	client     *Client
	apiURL     string
	kind       feed.Category
	maxPerKind int
}

func NewOnThisDaySource(client *Client, catalog *Catalog, kind feed.Category) *OnThisDaySource {
	return &OnThisDaySource{
		client:     client,
		apiURL:     catalog.History.APIURL,
		kind:       kind,
		maxPerKind: catalog.History.MaxPerKind,
	}
}

func (s *OnThisDaySource) Category() feed.Category { return s.kind }

func (s *OnThisDaySource) endpoint() string {
	switch s.kind {
	case feed.CategoryBirth:
		return "births"
	case feed.CategoryDeath:
		return "deaths"
	default:
		return "events"
	}
}

func (s *OnThisDaySource) Fetch(ctx context.Context, sc feed.SourceContext) ([]feed.Item, error) {
	recordsURL := fmt.Sprintf("%s/feed/onthisday/%s/%s", s.apiURL, s.endpoint(), sc.Date.Format("01/02"))

	var payload map[string][]onThisDayEvent
	if err := s.client.GetJSON(ctx, recordsURL, &payload); err != nil {
		return nil, err
	}

	records := payload[s.endpoint()]
	sort.SliceStable(records, func(i, j int) bool {
		return len(records[i].Pages) > len(records[j].Pages)
	})

	var items []feed.Item
	seenYears := make(map[string]struct{})
	for _, record := range records {
		if len(items) >= s.maxPerKind {
			break
		}
		if record.Year == 0 && record.Text == "" {
			continue
		}

		title := historyTitle(record)
		if sc.Index.HasTitle(title) {
			continue
		}

		// One record per year and kind: the storage upsert key is
		// (group, year, category), so a second same-year record would
		// silently replace the first.
		year := strconv.Itoa(record.Year)
		if _, ok := seenYears[year]; ok {
			continue
		}
		seenYears[year] = struct{}{}

		item := feed.Item{
			Category:    s.kind,
			Title:       title,
			Description: record.Text,
			EventYear:   year,
			Metadata:    map[string]string{"year": year},
		}

		if len(record.Pages) > 0 {
			page := record.Pages[0]
			item.Summary = page.Extract
			item.ImageURL = page.Thumbnail.Source
			if wikiURL := pageURL(page); wikiURL != "" {
				item.Links = []feed.Link{{Label: "Read More", URL: wikiURL}}
				item.Metadata["wikiUrl"] = wikiURL
				item.Metadata["pageTitle"] = page.Title
			}
		}

		items = append(items, item)
	}

	s.enrichSummaries(ctx, items)

	return items, nil
}

// enrichSummaries fills missing summaries from the page-summary endpoint,
// running lookups in bounded concurrent batches.
func (s *OnThisDaySource) enrichSummaries(ctx context.Context, items []feed.Item) {
	var pending []int
	for i := range items {
		if items[i].Summary == "" && items[i].Metadata["pageTitle"] != "" {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += enrichBatchSize {
		end := min(start+enrichBatchSize, len(pending))

		var wg sync.WaitGroup
		for _, idx := range pending[start:end] {
			wg.Add(1)
			go func(item *feed.Item) {
				defer wg.Done()

				summaryURL := fmt.Sprintf("%s/page/summary/%s",
					s.apiURL, url.PathEscape(item.Metadata["pageTitle"]))

				var payload struct {
					Extract string `json:"extract"`
				}
				if err := s.client.GetJSON(ctx, summaryURL, &payload); err != nil {
					slog.Debug("Page summary lookup failed",
						"page", item.Metadata["pageTitle"], "error", err)
					return
				}
				item.Summary = payload.Extract
			}(&items[idx])
		}
		wg.Wait()
	}
}
