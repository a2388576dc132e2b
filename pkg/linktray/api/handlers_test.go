package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mpearce/linktray/pkg/linktray/models"
	"github.com/mpearce/linktray/pkg/linktray/query"
	"github.com/mpearce/linktray/pkg/linktray/store"
	"github.com/mpearce/linktray/pkg/linktray/tags"
)

func setupTest(t *testing.T) (*gin.Engine, *gorm.DB, *store.Store) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	st := store.New(db, zap.NewNop())
	if err := st.Init(); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(st, tags.NewEngine(st, zap.NewNop()), query.New(st, zap.NewNop()), zap.NewNop())
	handler.RegisterRoutes(r.Group("/api"))
	return r, db, st
}

func createTestLink(t *testing.T, db *gorm.DB, url, tagString string) models.Link {
	link := models.Link{
		Title:           "Test Link",
		URL:             url,
		Tags:            tagString,
		ImpressionCount: 1,
		FirstSeenAt:     time.Now(),
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("Failed to create test link: %v", err)
	}
	return link
}

func TestTrackClick(t *testing.T) {
	router, db, _ := setupTest(t)

	body := TrackClickRequest{
		URL:       "http://x",
		StoryID:   "abc123",
		Source:    "lobsters",
		ClickType: "article",
		Title:     "T",
		Points:    5,
		Comments:  1,
	}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", "/api/database/track-click", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.ClickEvent{}).Where("url = ?", "http://x").Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 event, got %d", count)
	}
}

func TestTrackClickMissingURL(t *testing.T) {
	router, _, _ := setupTest(t)

	req, _ := http.NewRequest("POST", "/api/database/track-click", bytes.NewBufferString(`{"storyId":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestUnreadRoute(t *testing.T) {
	router, db, st := setupTest(t)
	createTestLink(t, db, "http://fresh", "")
	createTestLink(t, db, "http://read", "")
	st.RecordClick("", "T", "http://read", 0, 0)

	req, _ := http.NewRequest("GET", "/api/database/unread", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var links []models.Link
	json.Unmarshal(resp.Body.Bytes(), &links)
	if len(links) != 1 || links[0].URL != "http://fresh" {
		t.Errorf("Expected only the fresh link, got %v", links)
	}
}

func TestTagRoutes(t *testing.T) {
	router, db, _ := setupTest(t)
	link := createTestLink(t, db, "http://x", "")

	jsonBody, _ := json.Marshal(AddTagRequest{Tag: "  AI  "})
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/database/stories/%d/tags", link.ID), bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var tagList []string
	json.Unmarshal(resp.Body.Bytes(), &tagList)
	if len(tagList) != 1 || tagList[0] != "ai" {
		t.Errorf("Expected [ai], got %v", tagList)
	}

	req, _ = http.NewRequest("DELETE", fmt.Sprintf("/api/database/stories/%d/tags/ai", link.ID), nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	json.Unmarshal(resp.Body.Bytes(), &tagList)
	if len(tagList) != 0 {
		t.Errorf("Expected no tags after removal, got %v", tagList)
	}
}

func TestVocabularyRoute(t *testing.T) {
	router, db, _ := setupTest(t)
	createTestLink(t, db, "http://a", "go,news")
	createTestLink(t, db, "http://b", "ai")

	req, _ := http.NewRequest("GET", "/api/database/tags", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var vocab []string
	json.Unmarshal(resp.Body.Bytes(), &vocab)
	if len(vocab) != 3 || vocab[0] != "ai" {
		t.Errorf("Expected sorted vocabulary [ai go news], got %v", vocab)
	}
}

func TestSearchRoute(t *testing.T) {
	router, db, _ := setupTest(t)
	createTestLink(t, db, "http://a", "golang")
	createTestLink(t, db, "http://b", "rust")

	req, _ := http.NewRequest("GET", "/api/database/search?tags=go", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var links []models.Link
	json.Unmarshal(resp.Body.Bytes(), &links)
	if len(links) != 1 || links[0].URL != "http://a" {
		t.Errorf("Expected substring match on golang, got %v", links)
	}
}

func TestSummaryRoute(t *testing.T) {
	router, db, st := setupTest(t)
	createTestLink(t, db, "http://a", "go")
	st.RecordClick("", "T", "http://a", 0, 0)

	req, _ := http.NewRequest("GET", "/api/analytics/summary", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var summary query.Summary
	json.Unmarshal(resp.Body.Bytes(), &summary)
	if summary.Links != 1 || summary.ArticleClicks != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestClearRoute(t *testing.T) {
	router, db, _ := setupTest(t)
	createTestLink(t, db, "http://a", "")

	req, _ := http.NewRequest("DELETE", "/api/database/clear", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var count int64
	db.Model(&models.Link{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected empty table after clear, got %d rows", count)
	}
}
