package api

import (
	"context"
	"time"

	"github.com/dailydisco/discovery/app/feed"
)

type GeneratorInterface interface {
	Run(ctx context.Context, cfg feed.FeedConfig, date time.Time) (int, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type SweeperInterface interface {
	Run(ctx context.Context) (*feed.SweepResult, error)
}

var _ SweeperInterface = (*feed.Sweeper)(nil)

type Handler struct {
	items       feed.ItemStore
	meta        feed.MetaStore
	generator   GeneratorInterface
	sweeper     SweeperInterface
	feedConfigs []feed.FeedConfig
}

// itemResponse is the wire shape of one feed entry.
type itemResponse struct {
	ID          int64             `json:"id"`
	Category    string            `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	Links       []feed.Link       `json:"links,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ProviderID  string            `json:"providerId,omitempty"`
	EventYear   string            `json:"eventYear,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func toItemResponse(item feed.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Category:    string(item.Category),
		Title:       item.Title,
		Description: item.Description,
		Summary:     item.Summary,
		ImageURL:    item.ImageURL,
		Links:       item.Links,
		Metadata:    item.Metadata,
		ProviderID:  item.ProviderID,
		EventYear:   item.EventYear,
		CreatedAt:   item.CreatedAt,
	}
}

func toItemResponses(items []feed.Item) []itemResponse {
	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}
	return responses
}
