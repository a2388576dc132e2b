// Package query composes the link store and the click event log into the read
// views consumed by the tray menu and the HTTP API. All queries are read-only
// and tolerate an empty store.
package query

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mpearce/linktray/pkg/linktray/models"
	"github.com/mpearce/linktray/pkg/linktray/store"
	"github.com/mpearce/linktray/pkg/linktray/tags"
)

// DefaultBagSize is how many links the discover/bag sampling queries return.
const DefaultBagSize = 10

// TagStat is the per-tag aggregate used by the analytics views.
type TagStat struct {
	Tag            string  `json:"tag"`
	Stories        int     `json:"stories"`
	Viewed         int     `json:"viewed"`
	Engagements    int     `json:"engagements"`
	AvgImpressions float64 `json:"avg_impressions"`
}

// DayCount is one day's article-click total.
type DayCount struct {
	Day    string `json:"day"`
	Clicks int    `json:"clicks"`
}

// Summary is the dashboard-level aggregate of the whole store.
type Summary struct {
	Links            int64 `json:"links"`
	TaggedLinks      int64 `json:"tagged_links"`
	TotalImpressions int64 `json:"total_impressions"`
	ArticleClicks    int64 `json:"article_clicks"`
	Engagements      int64 `json:"engagements"`
}

// Queries answers read-side questions over the shared store.
type Queries struct {
	store *store.Store
	log   *zap.Logger
}

// New creates the query layer on the shared store.
func New(st *store.Store, log *zap.Logger) *Queries {
	return &Queries{store: st, log: log}
}

// UnreadLinks returns links with zero article-click events. The default order
// is most-recently-surfaced first; randomized varies which unread items the
// tray shows.
func (q *Queries) UnreadLinks(randomized bool) ([]models.Link, error) {
	if !q.store.Ready() {
		return []models.Link{}, nil
	}

	clicked := q.store.DB().Model(&models.ClickEvent{}).
		Select("url").
		Where("click_type = ?", models.ClickTypeArticle)

	order := "updated_at DESC"
	if randomized {
		order = "RANDOM()"
	}

	var links []models.Link
	err := q.store.DB().
		Where("url NOT IN (?)", clicked).
		Order(order).
		Find(&links).Error
	if err != nil {
		return nil, q.fail("unread links", err)
	}
	return links, nil
}

// RecentlyClicked returns links with at least one article click, most recent
// click first.
func (q *Queries) RecentlyClicked() ([]models.Link, error) {
	if !q.store.Ready() {
		return []models.Link{}, nil
	}

	var links []models.Link
	err := q.store.DB().Table("links").
		Select("links.*, MAX(click_events.clicked_at) AS last_clicked_at").
		Joins("INNER JOIN click_events ON click_events.url = links.url AND click_events.click_type = ?", models.ClickTypeArticle).
		Group("links.id").
		Order("last_clicked_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, q.fail("recently clicked", err)
	}
	return links, nil
}

// MostClicked returns links ordered by article-click count descending.
func (q *Queries) MostClicked(limit int) ([]models.Link, error) {
	if !q.store.Ready() {
		return []models.Link{}, nil
	}

	var links []models.Link
	err := q.store.DB().Table("links").
		Select("links.*, COUNT(click_events.id) AS click_total").
		Joins("INNER JOIN click_events ON click_events.url = links.url AND click_events.click_type = ?", models.ClickTypeArticle).
		Group("links.id").
		Order("click_total DESC").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, q.fail("most clicked", err)
	}
	return links, nil
}

// AllLinks returns every link, newest first.
func (q *Queries) AllLinks() ([]models.Link, error) {
	if !q.store.Ready() {
		return []models.Link{}, nil
	}
	var links []models.Link
	if err := q.store.DB().Order("first_seen_at DESC").Find(&links).Error; err != nil {
		return nil, q.fail("all links", err)
	}
	return links, nil
}

// Discover samples random unread links.
func (q *Queries) Discover(limit int) ([]models.Link, error) {
	if !q.store.Ready() {
		return []models.Link{}, nil
	}

	clicked := q.store.DB().Model(&models.ClickEvent{}).
		Select("url").
		Where("click_type = ?", models.ClickTypeArticle)

	var links []models.Link
	err := q.store.DB().
		Where("url NOT IN (?)", clicked).
		Order("RANDOM()").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, q.fail("discover", err)
	}
	return links, nil
}

// BagOfLinks samples random links from the whole store.
func (q *Queries) BagOfLinks(limit int) ([]models.Link, error) {
	if !q.store.Ready() {
		return []models.Link{}, nil
	}
	var links []models.Link
	err := q.store.DB().Order("RANDOM()").Limit(limit).Find(&links).Error
	if err != nil {
		return nil, q.fail("bag of links", err)
	}
	return links, nil
}

// CuratedBag samples random links that carry at least one tag.
func (q *Queries) CuratedBag(limit int) ([]models.Link, error) {
	if !q.store.Ready() {
		return []models.Link{}, nil
	}
	var links []models.Link
	err := q.store.DB().
		Where("tags <> ''").
		Order("RANDOM()").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, q.fail("curated bag", err)
	}
	return links, nil
}

// TagStatistics accumulates per-tag counters with the same split procedure as
// the vocabulary scan: story count, viewed count (links with at least one
// article click), total engagement events, and average impression count.
// Sorted by tag ascending.
func (q *Queries) TagStatistics() ([]TagStat, error) {
	if !q.store.Ready() {
		return []TagStat{}, nil
	}

	var links []models.Link
	if err := q.store.DB().Where("tags <> ''").Find(&links).Error; err != nil {
		return nil, q.fail("tag statistics", err)
	}

	var viewedURLs []string
	err := q.store.DB().Model(&models.ClickEvent{}).
		Distinct("url").
		Where("click_type = ?", models.ClickTypeArticle).
		Pluck("url", &viewedURLs).Error
	if err != nil {
		return nil, q.fail("tag statistics", err)
	}
	viewed := map[string]bool{}
	for _, u := range viewedURLs {
		viewed[u] = true
	}

	type urlCount struct {
		URL string
		N   int
	}
	var engagementRows []urlCount
	err = q.store.DB().Model(&models.ClickEvent{}).
		Select("url, COUNT(*) AS n").
		Where("click_type = ?", models.ClickTypeEngagement).
		Group("url").
		Scan(&engagementRows).Error
	if err != nil {
		return nil, q.fail("tag statistics", err)
	}
	engagements := map[string]int{}
	for _, row := range engagementRows {
		engagements[row.URL] = row.N
	}

	byTag := map[string]*TagStat{}
	impressions := map[string]uint{}
	for _, link := range links {
		for _, tag := range tags.Split(link.Tags) {
			stat, ok := byTag[tag]
			if !ok {
				stat = &TagStat{Tag: tag}
				byTag[tag] = stat
			}
			stat.Stories++
			if viewed[link.URL] {
				stat.Viewed++
			}
			stat.Engagements += engagements[link.URL]
			impressions[tag] += link.ImpressionCount
		}
	}

	stats := make([]TagStat, 0, len(byTag))
	for tag, stat := range byTag {
		if stat.Stories > 0 {
			stat.AvgImpressions = float64(impressions[tag]) / float64(stat.Stories)
		}
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Tag < stats[j].Tag })
	return stats, nil
}

// ClicksPerDay returns per-day article-click counts over the trailing window.
func (q *Queries) ClicksPerDay(days int) ([]DayCount, error) {
	if !q.store.Ready() {
		return []DayCount{}, nil
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	rows := []DayCount{}
	err := q.store.DB().Model(&models.ClickEvent{}).
		Select("DATE(clicked_at) AS day, COUNT(*) AS clicks").
		Where("click_type = ? AND clicked_at >= ?", models.ClickTypeArticle, cutoff).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, q.fail("clicks per day", err)
	}
	return rows, nil
}

// DashboardSummary returns whole-store totals.
func (q *Queries) DashboardSummary() (Summary, error) {
	var s Summary
	if !q.store.Ready() {
		return s, nil
	}

	db := q.store.DB()
	if err := db.Model(&models.Link{}).Count(&s.Links).Error; err != nil {
		return Summary{}, q.fail("summary", err)
	}
	if err := db.Model(&models.Link{}).Where("tags <> ''").Count(&s.TaggedLinks).Error; err != nil {
		return Summary{}, q.fail("summary", err)
	}
	if err := db.Model(&models.Link{}).
		Select("COALESCE(SUM(impression_count), 0)").
		Scan(&s.TotalImpressions).Error; err != nil {
		return Summary{}, q.fail("summary", err)
	}
	if err := db.Model(&models.ClickEvent{}).
		Where("click_type = ?", models.ClickTypeArticle).
		Count(&s.ArticleClicks).Error; err != nil {
		return Summary{}, q.fail("summary", err)
	}
	if err := db.Model(&models.ClickEvent{}).
		Where("click_type = ?", models.ClickTypeEngagement).
		Count(&s.Engagements).Error; err != nil {
		return Summary{}, q.fail("summary", err)
	}
	return s, nil
}

func (q *Queries) fail(op string, err error) error {
	q.log.Error("query failed", zap.String("op", op), zap.Error(err))
	return store.ErrStorage
}
