package store

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mpearce/linktray/pkg/linktray/identity"
	"github.com/mpearce/linktray/pkg/linktray/models"
)

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	s := New(db, zap.NewNop())
	if err := s.Init(); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	return s, db
}

func TestRecordAppearanceDeduplicatesByURL(t *testing.T) {
	s, db := setupTestStore(t)

	for i := 0; i < 3; i++ {
		err := s.RecordAppearance(Appearance{
			SourceID: "42",
			Title:    "A",
			URL:      "http://x",
			Points:   10 + i,
			Comments: 2,
		})
		if err != nil {
			t.Fatalf("RecordAppearance failed: %v", err)
		}
	}

	var count int64
	db.Model(&models.Link{}).Count(&count)
	if count != 1 {
		t.Fatalf("Expected 1 row, got %d", count)
	}

	var link models.Link
	db.Where("url = ?", "http://x").First(&link)
	if link.ImpressionCount != 3 {
		t.Errorf("Expected impression count 3, got %d", link.ImpressionCount)
	}
	if link.Points != 12 {
		t.Errorf("Expected points 12, got %d", link.Points)
	}
}

func TestRecordAppearanceRefreshScenario(t *testing.T) {
	s, db := setupTestStore(t)

	first := Appearance{SourceID: "42", Title: "A", URL: "http://x", Points: 10, Comments: 2}
	second := first
	second.Points = 15

	if err := s.RecordAppearance(first); err != nil {
		t.Fatalf("RecordAppearance failed: %v", err)
	}
	if err := s.RecordAppearance(second); err != nil {
		t.Fatalf("RecordAppearance failed: %v", err)
	}

	var count int64
	db.Model(&models.Link{}).Count(&count)
	if count != 1 {
		t.Fatalf("Expected 1 row, got %d", count)
	}

	var link models.Link
	db.Where("url = ?", "http://x").First(&link)
	if link.Points != 15 {
		t.Errorf("Expected points 15, got %d", link.Points)
	}
	if link.ImpressionCount != 2 {
		t.Errorf("Expected impression count 2, got %d", link.ImpressionCount)
	}
}

func TestRecordAppearanceTitleAndFirstSeenSticky(t *testing.T) {
	s, db := setupTestStore(t)

	s.RecordAppearance(Appearance{SourceID: "1", Title: "Original", URL: "http://x", Points: 1})

	var before models.Link
	db.Where("url = ?", "http://x").First(&before)

	s.RecordAppearance(Appearance{SourceID: "1", Title: "Changed", URL: "http://x", Points: 2})

	var after models.Link
	db.Where("url = ?", "http://x").First(&after)
	if after.Title != "Original" {
		t.Errorf("Expected title to stay Original, got %q", after.Title)
	}
	if after.FirstSeenAt.Unix() != before.FirstSeenAt.Unix() {
		t.Error("Expected FirstSeenAt to be immutable")
	}
}

func TestRecordAppearanceEmptyURLNoOp(t *testing.T) {
	s, db := setupTestStore(t)

	if err := s.RecordAppearance(Appearance{SourceID: "1", Title: "No URL"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var count int64
	db.Model(&models.Link{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected 0 rows, got %d", count)
	}
}

func TestRecordClickUnknownLink(t *testing.T) {
	s, db := setupTestStore(t)

	before := time.Now()
	if err := s.RecordClick("abc123", "T", "http://y", 5, 1); err != nil {
		t.Fatalf("Expected click on unknown link to succeed, got %v", err)
	}

	var events []models.ClickEvent
	db.Find(&events)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.LinkID != 0 {
		t.Errorf("Expected no link reference, got %d", event.LinkID)
	}
	if event.NormalizedID != identity.Normalize("abc123") {
		t.Errorf("Expected normalized id %d, got %d", identity.Normalize("abc123"), event.NormalizedID)
	}
	if event.LinkFirstSeenAt.Before(before.Add(-time.Second)) {
		t.Error("Expected LinkFirstSeenAt to fall back to click time")
	}
	if event.ClickType != models.ClickTypeArticle {
		t.Errorf("Expected article click, got %q", event.ClickType)
	}
}

func TestRecordClickSnapshotsFirstSeen(t *testing.T) {
	s, db := setupTestStore(t)

	s.RecordAppearance(Appearance{SourceID: "7", Title: "T", URL: "http://z", Points: 3})

	var link models.Link
	db.Where("url = ?", "http://z").First(&link)

	if err := s.RecordClick("7", "T", "http://z", 3, 0); err != nil {
		t.Fatalf("RecordClick failed: %v", err)
	}

	var event models.ClickEvent
	db.First(&event)
	if event.LinkID != link.ID {
		t.Errorf("Expected link id %d, got %d", link.ID, event.LinkID)
	}
	if event.LinkFirstSeenAt.Unix() != link.FirstSeenAt.Unix() {
		t.Error("Expected LinkFirstSeenAt copied from the link row")
	}
}

func TestRecordEventUnknownTypeDefaultsToArticle(t *testing.T) {
	s, db := setupTestStore(t)

	s.RecordEvent("bogus", "1", "T", "http://x", 0, 0)

	var event models.ClickEvent
	db.First(&event)
	if event.ClickType != models.ClickTypeArticle {
		t.Errorf("Expected article, got %q", event.ClickType)
	}
}

func TestNotReadyDropsWrites(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	s := New(db, zap.NewNop())

	if err := s.RecordAppearance(Appearance{SourceID: "1", URL: "http://x"}); err != nil {
		t.Errorf("Expected dropped write to return nil, got %v", err)
	}
	if err := s.RecordClick("1", "T", "http://x", 0, 0); err != nil {
		t.Errorf("Expected dropped write to return nil, got %v", err)
	}

	if err := s.Init(); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}

	var links, events int64
	db.Model(&models.Link{}).Count(&links)
	db.Model(&models.ClickEvent{}).Count(&events)
	if links != 0 || events != 0 {
		t.Errorf("Expected no rows from pre-ready writes, got %d links %d events", links, events)
	}
}

func TestClearAll(t *testing.T) {
	s, db := setupTestStore(t)

	s.RecordAppearance(Appearance{SourceID: "1", Title: "T", URL: "http://x"})
	s.RecordClick("1", "T", "http://x", 0, 0)

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	var links, events int64
	db.Model(&models.Link{}).Count(&links)
	db.Model(&models.ClickEvent{}).Count(&events)
	if links != 0 || events != 0 {
		t.Errorf("Expected empty tables, got %d links %d events", links, events)
	}
}
