// Package api exposes the loopback HTTP surface consumed by the browser
// extension and the tray UI. It is a thin adapter: all semantics live in the
// store, tag engine and query layer.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mpearce/linktray/pkg/linktray/query"
	"github.com/mpearce/linktray/pkg/linktray/store"
	"github.com/mpearce/linktray/pkg/linktray/tags"
)

// Handler handles database and analytics requests
type Handler struct {
	store   *store.Store
	engine  *tags.Engine
	queries *query.Queries
	log     *zap.Logger
}

// NewHandler creates a new API handler over the core components.
func NewHandler(st *store.Store, engine *tags.Engine, queries *query.Queries, log *zap.Logger) *Handler {
	return &Handler{store: st, engine: engine, queries: queries, log: log}
}

// TrackClickRequest is the payload the browser extension posts when the user
// opens or saves an article. Title, points and comments feed the event
// snapshot and are optional.
type TrackClickRequest struct {
	URL       string `json:"url" binding:"required"`
	StoryID   string `json:"storyId"`
	Source    string `json:"source"`
	ClickType string `json:"clickType"`
	Title     string `json:"title"`
	Points    int    `json:"points"`
	Comments  int    `json:"comments"`
}

// AddTagRequest is the payload for tagging a story.
type AddTagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// Unread returns links with no article clicks. Pass randomized=true to vary
// which unread items surface.
func (h *Handler) Unread(c *gin.Context) {
	randomized := c.Query("randomized") == "true"
	links, err := h.queries.UnreadLinks(randomized)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch unread links"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// Recent returns links ordered by most recent article click.
func (h *Handler) Recent(c *gin.Context) {
	links, err := h.queries.RecentlyClicked()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent links"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// All returns every tracked link.
func (h *Handler) All(c *gin.Context) {
	links, err := h.queries.AllLinks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// Tags returns the global tag vocabulary, sorted ascending.
func (h *Handler) Tags(c *gin.Context) {
	vocab, err := h.engine.ListAllUniqueTags()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}
	c.JSON(http.StatusOK, vocab)
}

// Discover returns a random sample of unread links.
func (h *Handler) Discover(c *gin.Context) {
	links, err := h.queries.Discover(bagSize(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// BagOfLinks returns a random sample across all links.
func (h *Handler) BagOfLinks(c *gin.Context) {
	links, err := h.queries.BagOfLinks(bagSize(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// CuratedBag returns a random sample of tagged links.
func (h *Handler) CuratedBag(c *gin.Context) {
	links, err := h.queries.CuratedBag(bagSize(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// Search returns links matching a comma-separated tag query.
func (h *Handler) Search(c *gin.Context) {
	links, err := h.engine.SearchByTags(c.Query("tags"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// TrackClick records one event for a user action on a link.
func (h *Handler) TrackClick(c *gin.Context) {
	var req TrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.RecordEvent(req.ClickType, req.StoryID, req.Title, req.URL, req.Points, req.Comments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record click"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

// StoryTags returns the tag list of one story.
func (h *Handler) StoryTags(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid story ID"})
		return
	}
	c.JSON(http.StatusOK, h.engine.ListStoryTags(uint(id)))
}

// AddStoryTag attaches a tag to a story. Unknown stories and empty tags are
// no-ops and still return the (possibly empty) current tag list.
func (h *Handler) AddStoryTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid story ID"})
		return
	}

	var req AddTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.AddTag(uint(id), req.Tag); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add tag"})
		return
	}
	c.JSON(http.StatusOK, h.engine.ListStoryTags(uint(id)))
}

// RemoveStoryTag detaches a tag from a story.
func (h *Handler) RemoveStoryTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid story ID"})
		return
	}

	if err := h.engine.RemoveTag(uint(id), c.Param("tag")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove tag"})
		return
	}
	c.JSON(http.StatusOK, h.engine.ListStoryTags(uint(id)))
}

// Clear wipes the whole store. Development/debug endpoint.
func (h *Handler) Clear(c *gin.Context) {
	h.log.Warn("clearing all links and events")
	if err := h.store.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear database"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// TagStats returns per-tag aggregates.
func (h *Handler) TagStats(c *gin.Context) {
	stats, err := h.queries.TagStatistics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tag statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClicksPerDay returns daily article-click counts over a trailing window
// (default 30 days).
func (h *Handler) ClicksPerDay(c *gin.Context) {
	days := 30
	if v, err := strconv.Atoi(c.Query("days")); err == nil && v > 0 {
		days = v
	}
	counts, err := h.queries.ClicksPerDay(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch click counts"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Summary returns whole-store dashboard totals.
func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.queries.DashboardSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func bagSize(c *gin.Context) int {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		return v
	}
	return query.DefaultBagSize
}

// RegisterRoutes registers the database and analytics routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	db := rg.Group("/database")
	{
		db.GET("/unread", h.Unread)
		db.GET("/recent", h.Recent)
		db.GET("/all", h.All)
		db.GET("/tags", h.Tags)
		db.GET("/discover", h.Discover)
		db.GET("/bag-of-links", h.BagOfLinks)
		db.GET("/curated-bag", h.CuratedBag)
		db.GET("/search", h.Search)
		db.POST("/track-click", h.TrackClick)
		db.GET("/stories/:id/tags", h.StoryTags)
		db.POST("/stories/:id/tags", h.AddStoryTag)
		db.DELETE("/stories/:id/tags/:tag", h.RemoveStoryTag)
		db.DELETE("/clear", h.Clear)
	}

	analytics := rg.Group("/analytics")
	{
		analytics.GET("/tags", h.TagStats)
		analytics.GET("/clicks-per-day", h.ClicksPerDay)
		analytics.GET("/summary", h.Summary)
	}
}
