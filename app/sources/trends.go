package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dailydisco/discovery/app/feed"
)

var seasonTitler = cases.Title(language.English)

// TrendSource walks a static ordered list of seasonal trend entries and
// returns the first one not yet known to the index. Deterministic for a
// given index state; no network calls.
type TrendSource struct {
	seasons map[string][]TrendEntry
}

func NewTrendSource(catalog *Catalog) *TrendSource {
	return &TrendSource{seasons: catalog.Trends}
}

func (s *TrendSource) Category() feed.Category { return feed.CategoryTrend }

func (s *TrendSource) Fetch(_ context.Context, sc feed.SourceContext) ([]feed.Item, error) {
	season := seasonFor(sc.Date.Month())

	for _, entry := range s.seasons[season] {
		if sc.Index.HasTitle(entry.Title) {
			continue
		}

		return []feed.Item{{
			Category:    feed.CategoryTrend,
			Title:       entry.Title,
			Description: entry.Description,
			Summary:     seasonTitler.String(season) + " fashion trend",
			Links: []feed.Link{{
				Label: "Explore",
				URL:   "https://www.pinterest.com/search/pins/?q=" + url.QueryEscape(entry.Title),
			}},
			Metadata: map[string]string{"source": "Seasonal curation", "season": season},
		}}, nil
	}

	return nil, fmt.Errorf("all %s trend entries already used", season)
}

func seasonFor(month time.Month) string {
	switch {
	case month == time.December || month <= time.February:
		return "winter"
	case month <= time.May:
		return "spring"
	case month <= time.August:
		return "summer"
	default:
		return "fall"
	}
}
