package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mpearce/linktray/pkg/linktray/store"
)

// HackerNewsBaseURL is the public Firebase API endpoint.
const HackerNewsBaseURL = "https://hacker-news.firebaseio.com"

// HackerNews fetches top stories from the Hacker News API. Its id space is
// numeric.
type HackerNews struct {
	client  *http.Client
	baseURL string
	limit   int
}

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Type        string `json:"type"`
}

// NewHackerNews creates a Hacker News fetcher returning up to limit stories
// per cycle.
func NewHackerNews(client *http.Client, limit int) *HackerNews {
	if client == nil {
		client = http.DefaultClient
	}
	return &HackerNews{client: client, baseURL: HackerNewsBaseURL, limit: limit}
}

// NewHackerNewsWithBaseURL creates a fetcher against a custom endpoint, for
// testing.
func NewHackerNewsWithBaseURL(client *http.Client, baseURL string, limit int) *HackerNews {
	f := NewHackerNews(client, limit)
	f.baseURL = baseURL
	return f
}

// Name implements Fetcher.
func (f *HackerNews) Name() string {
	return "hackernews"
}

// Fetch returns the current top stories as appearances.
func (f *HackerNews) Fetch(ctx context.Context) ([]store.Appearance, error) {
	ids, err := f.topStories(ctx)
	if err != nil {
		return nil, err
	}
	if f.limit > 0 && f.limit < len(ids) {
		ids = ids[:f.limit]
	}

	links := make([]store.Appearance, 0, len(ids))
	for _, id := range ids {
		item, err := f.item(ctx, id)
		if err != nil {
			// One missing item should not sink the cycle.
			continue
		}
		if item.URL == "" || item.Type != "story" {
			continue
		}
		links = append(links, store.Appearance{
			SourceID: strconv.Itoa(item.ID),
			Source:   f.Name(),
			Title:    item.Title,
			URL:      item.URL,
			Points:   item.Score,
			Comments: item.Descendants,
		})
	}
	return links, nil
}

func (f *HackerNews) topStories(ctx context.Context) ([]int, error) {
	url := fmt.Sprintf("%s/v0/topstories.json", f.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating top stories request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching top stories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("top stories returned status %d", resp.StatusCode)
	}

	var ids []int
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decoding top stories: %w", err)
	}
	return ids, nil
}

func (f *HackerNews) item(ctx context.Context, id int) (*hnItem, error) {
	url := fmt.Sprintf("%s/v0/item/%d.json", f.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating item request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching item %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("item %d returned status %d", id, resp.StatusCode)
	}

	var item hnItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decoding item %d: %w", id, err)
	}
	return &item, nil
}
