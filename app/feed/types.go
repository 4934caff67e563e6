package feed

import (
	"context"
	"time"
)

type Category string

const (
	CategoryVideo   Category = "video"
	CategoryBook    Category = "book"
	CategoryTrend   Category = "trend"
	CategoryNews    Category = "news"
	CategoryHistory Category = "history"
	CategoryEvent   Category = "event"
	CategoryBirth   Category = "birth"
	CategoryDeath   Category = "death"
)

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Item is one generated feed entry. GroupKey is the day bucket the item
// belongs to ("2024-03-01" for the daily feed, "03-01" for the on-this-day
// feed) and is assigned once at generation time.
type Item struct {
	ID          int64
	Feed        string
	GroupKey    string
	Category    Category
	Title       string
	Description string
	Summary     string
	ImageURL    string
	Links       []Link
	Metadata    map[string]string
	ProviderID  string // provider-native content ID (e.g. video ID), optional
	EventYear   string // only set for on-this-day items
	CreatedAt   time.Time
}

// Meta is the per-group generation record, used to answer "has this group
// already been generated" without scanning items.
type Meta struct {
	Feed        string
	GroupKey    string
	GeneratedAt time.Time
	ItemCount   int
}

type Mode string

const (
	// ModeReplace deletes all existing items for the target group before
	// inserting the new batch.
	ModeReplace Mode = "replace"
	// ModeUpsert inserts without deleting; overlapping records are updated
	// in place.
	ModeUpsert Mode = "upsert"
)

type Keying string

const (
	KeyDate     Keying = "date"      // YYYY-MM-DD
	KeyMonthDay Keying = "month-day" // MM-DD
)

// KeyFor derives the group key for a target date.
func (k Keying) KeyFor(t time.Time) string {
	if k == KeyMonthDay {
		return t.Format("01-02")
	}
	return t.Format("2006-01-02")
}

// SourceContext is the read-only view handed to each source for one cycle.
type SourceContext struct {
	GroupKey string
	Date     time.Time
	Index    *Index
}

// Source produces candidate items for one category. Implementations must
// absorb provider failures and report them as errors; the generator treats
// a failed source as contributing zero items.
type Source interface {
	Category() Category
	Fetch(ctx context.Context, sc SourceContext) ([]Item, error)
}

// FeedConfig parameterizes one generation pipeline. Replace-vs-upsert and
// date-vs-month-day keying are configuration, not separate code paths.
type FeedConfig struct {
	Name    string
	Keying  Keying
	Mode    Mode
	Sources []Source
}

// ItemStore is the persistence gateway for generated items.
type ItemStore interface {
	// InsertBatch inserts the cycle's accepted items in one transaction.
	// Rows colliding with the (feed, group, normalized title) constraint
	// are dropped silently; the constraint is the storage-level backstop
	// for the in-memory index.
	InsertBatch(ctx context.Context, feedName string, items []Item) error
	// UpsertBatch inserts in one transaction, replacing rows that collide
	// on (feed, group, event year, category). Used by the on-this-day feed
	// whose event set may overlap across runs.
	UpsertBatch(ctx context.Context, feedName string, items []Item) error
	DeleteGroup(ctx context.Context, feedName, groupKey string) (int, error)
	GetItems(ctx context.Context, feedName, groupKey string) ([]Item, error)
	// GetItemsForIndex returns all items for a feed except the given group,
	// oldest first. An empty excludeGroup returns everything.
	GetItemsForIndex(ctx context.Context, feedName, excludeGroup string) ([]Item, error)
	GetAllItems(ctx context.Context) ([]Item, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int, error)
	GetGroupKeys(ctx context.Context, feedName string) ([]string, error)
	GetGroupCount(ctx context.Context, feedName, groupKey string) (int, error)
	CountItems(ctx context.Context) (int, error)
}

type MetaStore interface {
	UpsertMeta(ctx context.Context, feedName, groupKey string, generatedAt time.Time, count int) error
	GetMeta(ctx context.Context, feedName, groupKey string) (*Meta, error)
}
