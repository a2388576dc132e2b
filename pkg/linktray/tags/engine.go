// Package tags mutates and queries the free-text tag vocabulary attached to
// links. Tags live as a denormalized comma-joined lowercase string on the
// link row; the global vocabulary is derived by scanning, never cached.
package tags

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mpearce/linktray/pkg/linktray/models"
	"github.com/mpearce/linktray/pkg/linktray/store"
)

// SearchLimit caps the number of links returned by a tag search.
const SearchLimit = 20

// Engine performs tag mutations and lookups against the shared store. Every
// successful mutation is also recorded as an engagement event.
type Engine struct {
	store *store.Store
	log   *zap.Logger
}

// NewEngine creates a tag engine on the shared store.
func NewEngine(st *store.Store, log *zap.Logger) *Engine {
	return &Engine{store: st, log: log}
}

// Normalize trims and lowercases a single tag.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Split parses a comma-joined tag string into normalized tags, dropping
// empties. Order is preserved.
func Split(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if tag := Normalize(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Join serializes a tag list back into the stored comma-joined form.
func Join(tags []string) string {
	return strings.Join(tags, ",")
}

// AddTag appends a tag to a link with set semantics: adding a tag the link
// already carries leaves it unchanged. Empty tags and unknown link ids are
// no-ops, not errors.
func (e *Engine) AddTag(linkID uint, tag string) error {
	tag = Normalize(tag)
	if tag == "" {
		return nil
	}
	if !e.store.Ready() {
		e.log.Warn("store not ready, dropping tag add", zap.String("tag", tag))
		return nil
	}

	var link models.Link
	if err := e.store.DB().First(&link, linkID).Error; err != nil {
		return nil
	}

	current := Split(link.Tags)
	for _, t := range current {
		if t == tag {
			return nil
		}
	}
	current = append(current, tag)

	if err := e.store.DB().Model(&link).Update("tags", Join(current)).Error; err != nil {
		e.log.Error("tag write failed", zap.Uint("link_id", linkID), zap.Error(err))
		return store.ErrStorage
	}
	return e.store.RecordEngagement(link.SourceNativeID, link.Title, link.URL, link.Points, link.Comments)
}

// RemoveTag filters a tag out of a link's list. Removing a tag the link does
// not carry, or from an unknown link, is a no-op.
func (e *Engine) RemoveTag(linkID uint, tag string) error {
	tag = Normalize(tag)
	if tag == "" {
		return nil
	}
	if !e.store.Ready() {
		e.log.Warn("store not ready, dropping tag remove", zap.String("tag", tag))
		return nil
	}

	var link models.Link
	if err := e.store.DB().First(&link, linkID).Error; err != nil {
		return nil
	}

	current := Split(link.Tags)
	kept := current[:0]
	for _, t := range current {
		if t != tag {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(current) {
		return nil
	}

	if err := e.store.DB().Model(&link).Update("tags", Join(kept)).Error; err != nil {
		e.log.Error("tag write failed", zap.Uint("link_id", linkID), zap.Error(err))
		return store.ErrStorage
	}
	return e.store.RecordEngagement(link.SourceNativeID, link.Title, link.URL, link.Points, link.Comments)
}

// ListStoryTags returns the parsed tag list for a link, or an empty list if
// the link is unknown or untagged. Never errors on a missing link.
func (e *Engine) ListStoryTags(linkID uint) []string {
	if !e.store.Ready() {
		return []string{}
	}
	var link models.Link
	if err := e.store.DB().First(&link, linkID).Error; err != nil {
		return []string{}
	}
	return Split(link.Tags)
}

// ListAllUniqueTags scans every non-empty tag string, splits and dedups into
// the global vocabulary, sorted ascending. O(links) per call.
func (e *Engine) ListAllUniqueTags() ([]string, error) {
	if !e.store.Ready() {
		return []string{}, nil
	}

	var rows []string
	err := e.store.DB().Model(&models.Link{}).
		Where("tags <> ''").
		Pluck("tags", &rows).Error
	if err != nil {
		e.log.Error("tag scan failed", zap.Error(err))
		return nil, store.ErrStorage
	}

	seen := map[string]bool{}
	unique := []string{}
	for _, row := range rows {
		for _, tag := range Split(row) {
			if !seen[tag] {
				seen[tag] = true
				unique = append(unique, tag)
			}
		}
	}
	sort.Strings(unique)
	return unique, nil
}

// SearchByTags parses a comma-separated query and returns links whose tag
// string contains ANY of the query tags as a substring, case-insensitively.
// The loose substring match is deliberate: querying "go" also surfaces links
// tagged "golang". Results are ordered by impression count then first-seen
// descending, capped at SearchLimit. An empty query returns no links.
func (e *Engine) SearchByTags(query string) ([]models.Link, error) {
	terms := Split(query)
	if len(terms) == 0 || !e.store.Ready() {
		return []models.Link{}, nil
	}

	match := e.store.DB().Where("tags LIKE ?", "%"+terms[0]+"%")
	for _, term := range terms[1:] {
		match = match.Or("tags LIKE ?", "%"+term+"%")
	}

	var links []models.Link
	err := e.store.DB().
		Where(match).
		Order("impression_count DESC").
		Order("first_seen_at DESC").
		Limit(SearchLimit).
		Find(&links).Error
	if err != nil {
		e.log.Error("tag search failed", zap.Error(err))
		return nil, store.ErrStorage
	}
	return links, nil
}
