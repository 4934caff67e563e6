package sources

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

// Catalog holds the source configuration: provider endpoints, rotating
// query sets, keyword filters, and the bundled static entries the book and
// trend sources draw from. A YAML file may override the embedded defaults.
type Catalog struct {
	Video   VideoCatalog             `yaml:"video"`
	Books   BookCatalog              `yaml:"books"`
	News    NewsCatalog              `yaml:"news"`
	Trends  map[string][]TrendEntry  `yaml:"trends"`
	History HistoryCatalog           `yaml:"history"`
}

type VideoCatalog struct {
	Queries      []string `yaml:"queries"`
	SearchURL    string   `yaml:"search_url"`
	InvidiousURL string   `yaml:"invidious_url"`
	OEmbedURL    string   `yaml:"oembed_url"`
	WatchURL     string   `yaml:"watch_url"`
	ThumbnailURL string   `yaml:"thumbnail_url"` // format string taking the video ID
}

type BookCatalog struct {
	APIURL   string      `yaml:"api_url"`
	Subject  string      `yaml:"subject"`
	MaxItems int         `yaml:"max_items"`
	Fallback []BookEntry `yaml:"fallback"`
}

type BookEntry struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
}

type NewsCatalog struct {
	APIURL           string   `yaml:"api_url"`
	RSSURL           string   `yaml:"rss_url"`
	DiscussionURL    string   `yaml:"discussion_url"`
	Keywords         []string `yaml:"keywords"`
	Lookahead        int      `yaml:"lookahead"`
	ExtractSummaries bool     `yaml:"extract_summaries"`
}

type TrendEntry struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type HistoryCatalog struct {
	APIURL     string `yaml:"api_url"`
	MaxPerKind int    `yaml:"max_per_kind"`
}

// LoadCatalog reads the catalog from the given YAML file, or from the
// embedded defaults when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		data = fileData
		slog.Debug("Catalog loaded from file", "path", path)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := catalog.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return &catalog, nil
}

func (c *Catalog) validate() error {
	if len(c.Video.Queries) == 0 {
		return fmt.Errorf("video: at least one query is required")
	}
	if c.Books.Subject == "" {
		return fmt.Errorf("books: subject is required")
	}
	if c.Books.MaxItems <= 0 {
		c.Books.MaxItems = 2
	}
	if len(c.News.Keywords) == 0 {
		return fmt.Errorf("news: at least one keyword is required")
	}
	if c.News.Lookahead <= 0 {
		c.News.Lookahead = 60
	}
	if c.History.MaxPerKind <= 0 {
		c.History.MaxPerKind = 12
	}

	for _, season := range []string{"winter", "spring", "summer", "fall"} {
		if len(c.Trends[season]) == 0 {
			return fmt.Errorf("trends: season %q has no entries", season)
		}
	}

	return nil
}
