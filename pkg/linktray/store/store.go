// Package store owns the canonical links table and the append-only click
// event log. It is the single shared storage handle for all core components.
package store

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mpearce/linktray/pkg/linktray/identity"
	"github.com/mpearce/linktray/pkg/linktray/models"
)

// ErrStorage wraps any persistence-layer failure. Callers get this generic
// error; the underlying cause is logged, not propagated.
var ErrStorage = errors.New("storage error")

// Appearance is one candidate link handed over by a feed fetcher during a
// refresh cycle. SourceID may be a native integer rendered as a string or an
// opaque alphanumeric id.
type Appearance struct {
	SourceID string `json:"id"`
	Source   string `json:"source"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Points   int    `json:"points"`
	Comments int    `json:"comments"`
}

// Store is the shared storage handle. Init must complete before any query or
// mutation is served; until then writes are dropped (and logged) and reads
// come back empty, so UI callers stay responsive during startup.
type Store struct {
	db    *gorm.DB
	log   *zap.Logger
	ready atomic.Bool
}

// New creates a Store on an open database handle. The store is not usable
// until Init has run.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// Init runs schema migration and flips the ready flag. This is the only
// required ordering barrier in the system.
func (s *Store) Init() error {
	if err := models.AutoMigrate(s.db); err != nil {
		s.log.Error("schema migration failed", zap.Error(err))
		return fmt.Errorf("migrate: %w", ErrStorage)
	}
	s.ready.Store(true)
	return nil
}

// Ready reports whether Init has completed.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

// DB exposes the underlying handle to the tag engine and query layer, which
// share this store rather than opening their own.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// RecordAppearance inserts the link on first sight of its URL; on every later
// sighting it increments the impression counter and refreshes points and
// comments. Title and FirstSeenAt keep their first-seen values. A missing URL
// is a no-op.
func (s *Store) RecordAppearance(a Appearance) error {
	if !s.ready.Load() {
		s.log.Warn("store not ready, dropping appearance", zap.String("url", a.URL))
		return nil
	}
	if a.URL == "" {
		return nil
	}

	var link models.Link
	err := s.db.Where("url = ?", a.URL).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		link = models.Link{
			NormalizedID:    identity.Normalize(a.SourceID),
			SourceNativeID:  a.SourceID,
			Source:          a.Source,
			Title:           a.Title,
			URL:             a.URL,
			Points:          a.Points,
			Comments:        a.Comments,
			ImpressionCount: 1,
			FirstSeenAt:     time.Now(),
		}
		if err := s.db.Create(&link).Error; err != nil {
			return s.fail("create link", a.URL, err)
		}
		return nil
	}
	if err != nil {
		return s.fail("lookup link", a.URL, err)
	}

	updates := map[string]interface{}{
		"impression_count": gorm.Expr("impression_count + 1"),
		"points":           a.Points,
		"comments":         a.Comments,
	}
	if err := s.db.Model(&link).Updates(updates).Error; err != nil {
		return s.fail("update link", a.URL, err)
	}
	return nil
}

// RecordClick appends an article-click event for the link at url.
func (s *Store) RecordClick(sourceID, title, url string, points, comments int) error {
	return s.RecordEvent(models.ClickTypeArticle, sourceID, title, url, points, comments)
}

// RecordEngagement appends an engagement event (tagging or other curation).
func (s *Store) RecordEngagement(sourceID, title, url string, points, comments int) error {
	return s.RecordEvent(models.ClickTypeEngagement, sourceID, title, url, points, comments)
}

// RecordEvent appends an event of the given kind, snapshotting the supplied
// metadata. It never fails because a link is unknown: a click can precede a
// recorded appearance, in which case LinkFirstSeenAt falls back to now.
// Unknown click types are recorded as article clicks.
func (s *Store) RecordEvent(clickType, sourceID, title, url string, points, comments int) error {
	if !s.ready.Load() {
		s.log.Warn("store not ready, dropping event", zap.String("url", url))
		return nil
	}

	switch clickType {
	case models.ClickTypeArticle, models.ClickTypeComments, models.ClickTypeEngagement:
	default:
		clickType = models.ClickTypeArticle
	}

	now := time.Now()
	event := models.ClickEvent{
		NormalizedID:    identity.Normalize(sourceID),
		ClickType:       clickType,
		Title:           title,
		URL:             url,
		Points:          points,
		Comments:        comments,
		LinkFirstSeenAt: now,
		ClickedAt:       now,
	}

	var link models.Link
	if err := s.db.Where("url = ?", url).First(&link).Error; err == nil {
		event.LinkID = link.ID
		event.LinkFirstSeenAt = link.FirstSeenAt
		if sourceID == "" {
			event.NormalizedID = link.NormalizedID
		}
	}

	if err := s.db.Create(&event).Error; err != nil {
		return s.fail("create event", url, err)
	}
	return nil
}

// ClearAll wipes links and click events. Development/debug operation only,
// outside the normal lifecycle.
func (s *Store) ClearAll() error {
	if !s.ready.Load() {
		return nil
	}
	session := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := session.Delete(&models.ClickEvent{}).Error; err != nil {
		return s.fail("clear events", "", err)
	}
	if err := session.Delete(&models.Link{}).Error; err != nil {
		return s.fail("clear links", "", err)
	}
	return nil
}

func (s *Store) fail(op, url string, err error) error {
	s.log.Error("storage write failed",
		zap.String("op", op),
		zap.String("url", url),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", op, ErrStorage)
}
