package feed

// Index is the uniqueness snapshot for one generation cycle. It is built
// from storage at the start of a cycle, mutated as items are accepted so
// later sources see earlier acceptances, and discarded when the cycle ends.
// It is never shared across cycles.
type Index struct {
	titles      map[string]struct{}
	providerIDs map[string]struct{}
	urls        map[string]struct{}
}

func NewIndex() *Index {
	return &Index{
		titles:      make(map[string]struct{}),
		providerIDs: make(map[string]struct{}),
		urls:        make(map[string]struct{}),
	}
}

// BuildIndex constructs an index from previously persisted items.
func BuildIndex(items []Item) *Index {
	idx := NewIndex()
	for i := range items {
		idx.Record(items[i])
	}
	return idx
}

func (idx *Index) HasTitle(title string) bool {
	_, ok := idx.titles[NormalizeTitle(title)]
	return ok
}

func (idx *Index) HasProviderID(id string) bool {
	if id == "" {
		return false
	}
	_, ok := idx.providerIDs[id]
	return ok
}

func (idx *Index) HasURL(url string) bool {
	if url == "" {
		return false
	}
	_, ok := idx.urls[url]
	return ok
}

// Record folds an accepted item into the index.
func (idx *Index) Record(item Item) {
	if key := NormalizeTitle(item.Title); key != "" {
		idx.titles[key] = struct{}{}
	}
	if item.ProviderID != "" {
		idx.providerIDs[item.ProviderID] = struct{}{}
	}
	for _, link := range item.Links {
		if link.URL != "" {
			idx.urls[link.URL] = struct{}{}
		}
	}
}

func (idx *Index) Size() int {
	return len(idx.titles)
}
