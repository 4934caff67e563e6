package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dailydisco/discovery/app/feed"
)

func NewHandler(items feed.ItemStore, meta feed.MetaStore, generator GeneratorInterface,
	sweeper SweeperInterface, feedConfigs []feed.FeedConfig) *Handler {
	return &Handler{
		items:       items,
		meta:        meta,
		generator:   generator,
		sweeper:     sweeper,
		feedConfigs: feedConfigs,
	}
}

// dailyConfig returns the date-keyed feed, eventsConfig the month-day keyed
// one. Both are wired at startup, so a miss is a programming error and is
// reported as a 500 by the callers.
func (h *Handler) dailyConfig() *feed.FeedConfig {
	return h.configByKeying(feed.KeyDate)
}

func (h *Handler) eventsConfig() *feed.FeedConfig {
	return h.configByKeying(feed.KeyMonthDay)
}

func (h *Handler) configByKeying(keying feed.Keying) *feed.FeedConfig {
	for i := range h.feedConfigs {
		if h.feedConfigs[i].Keying == keying {
			return &h.feedConfigs[i]
		}
	}
	return nil
}

// GetFeed returns today's daily feed.
func (h *Handler) GetFeed(c *gin.Context) {
	h.serveGroup(c, h.dailyConfig(), feed.KeyDate.KeyFor(time.Now()))
}

// GetFeedByDate returns the daily feed for a specific date (YYYY-MM-DD).
func (h *Handler) GetFeedByDate(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	h.serveGroup(c, h.dailyConfig(), date)
}

func (h *Handler) serveGroup(c *gin.Context, feedConfig *feed.FeedConfig, groupKey string) {
	if feedConfig == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Feed not configured"})
		return
	}

	meta, err := h.meta.GetMeta(c.Request.Context(), feedConfig.Name, groupKey)
	if err != nil {
		slog.Error("Database error", "operation", "get_meta", "feed", feedConfig.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No feed generated for " + groupKey})
		return
	}

	items, err := h.items.GetItems(c.Request.Context(), feedConfig.Name, groupKey)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "feed", feedConfig.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":        groupKey,
		"generatedAt": meta.GeneratedAt.Format(time.RFC3339),
		"count":       len(items),
		"items":       toItemResponses(items),
	})
}

// GetEventsByDate returns the on-this-day records for a month-day (MM-DD),
// grouped by kind.
func (h *Handler) GetEventsByDate(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected MM-DD"})
		return
	}

	feedConfig := h.eventsConfig()
	if feedConfig == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Feed not configured"})
		return
	}

	meta, err := h.meta.GetMeta(c.Request.Context(), feedConfig.Name, date)
	if err != nil {
		slog.Error("Database error", "operation", "get_meta", "feed", feedConfig.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No records generated for " + date})
		return
	}

	items, err := h.items.GetItems(c.Request.Context(), feedConfig.Name, date)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "feed", feedConfig.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	events := make([]itemResponse, 0)
	births := make([]itemResponse, 0)
	deaths := make([]itemResponse, 0)
	for _, item := range items {
		switch item.Category {
		case feed.CategoryBirth:
			births = append(births, toItemResponse(item))
		case feed.CategoryDeath:
			deaths = append(deaths, toItemResponse(item))
		default:
			events = append(events, toItemResponse(item))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":        date,
		"generatedAt": meta.GeneratedAt.Format(time.RFC3339),
		"count":       len(items),
		"events":      events,
		"births":      births,
		"deaths":      deaths,
	})
}

// GetDates lists the generated daily group keys, newest first.
func (h *Handler) GetDates(c *gin.Context) {
	feedConfig := h.dailyConfig()
	if feedConfig == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Feed not configured"})
		return
	}

	dates, err := h.items.GetGroupKeys(c.Request.Context(), feedConfig.Name)
	if err != nil {
		slog.Error("Database error", "operation", "get_group_keys", "feed", feedConfig.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dates": dates,
		"total": len(dates),
	})
}

// PostGenerate runs a generation cycle synchronously for every configured
// feed, targeting the requested date (default today).
func (h *Handler) PostGenerate(c *gin.Context) {
	var request struct {
		Date string `json:"date"`
	}
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	date := time.Now()
	if request.Date != "" {
		parsed, err := time.Parse("2006-01-02", request.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	results := make([]gin.H, 0, len(h.feedConfigs))
	for _, feedConfig := range h.feedConfigs {
		// Month-day feeds also generate tomorrow's group, so the recurring
		// feed is warm before midnight rolls over.
		targets := []time.Time{date}
		if feedConfig.Keying == feed.KeyMonthDay {
			targets = append(targets, date.AddDate(0, 0, 1))
		}

		for _, target := range targets {
			accepted, err := h.generator.Run(c.Request.Context(), feedConfig, target)
			if err != nil {
				slog.Error("Generation failed", "feed", feedConfig.Name, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Generation failed",
					"feed":    feedConfig.Name,
					"details": err.Error(),
				})
				return
			}

			results = append(results, gin.H{
				"feed":     feedConfig.Name,
				"group":    feedConfig.Keying.KeyFor(target),
				"accepted": accepted,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

// PostDedup runs the duplicate sweep synchronously.
func (h *Handler) PostDedup(c *gin.Context) {
	result, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		slog.Error("Dedup sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Dedup sweep failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.items.CountItems(c.Request.Context()); err == nil {
		health["items"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	feeds := make([]map[string]interface{}, 0, len(h.feedConfigs))

	for _, feedConfig := range h.feedConfigs {
		feedInfo := map[string]interface{}{
			"name":    feedConfig.Name,
			"keying":  string(feedConfig.Keying),
			"mode":    string(feedConfig.Mode),
			"sources": len(feedConfig.Sources),
		}

		if keys, err := h.items.GetGroupKeys(c.Request.Context(), feedConfig.Name); err == nil {
			feedInfo["groups"] = len(keys)
		}

		feeds = append(feeds, feedInfo)
	}

	stats := map[string]interface{}{
		"feeds": feeds,
	}
	if count, err := h.items.CountItems(c.Request.Context()); err == nil {
		stats["total_items"] = count
	}

	c.JSON(http.StatusOK, stats)
}
