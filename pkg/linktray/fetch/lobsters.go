package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mpearce/linktray/pkg/linktray/store"
)

// LobstersBaseURL is the public JSON endpoint.
const LobstersBaseURL = "https://lobste.rs"

// Lobsters fetches the hottest stories from the Lobsters JSON API. Its id
// space is opaque alphanumeric short ids, which exercise the string branch of
// the identity normalizer.
type Lobsters struct {
	client  *http.Client
	baseURL string
	limit   int
}

type lobstersStory struct {
	ShortID      string `json:"short_id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Score        int    `json:"score"`
	CommentCount int    `json:"comment_count"`
	CommentsURL  string `json:"comments_url"`
}

// NewLobsters creates a Lobsters fetcher returning up to limit stories per
// cycle.
func NewLobsters(client *http.Client, limit int) *Lobsters {
	if client == nil {
		client = http.DefaultClient
	}
	return &Lobsters{client: client, baseURL: LobstersBaseURL, limit: limit}
}

// NewLobstersWithBaseURL creates a fetcher against a custom endpoint, for
// testing.
func NewLobstersWithBaseURL(client *http.Client, baseURL string, limit int) *Lobsters {
	f := NewLobsters(client, limit)
	f.baseURL = baseURL
	return f
}

// Name implements Fetcher.
func (f *Lobsters) Name() string {
	return "lobsters"
}

// Fetch returns the current hottest stories as appearances. Text-only posts
// have no external URL; their comments page stands in.
func (f *Lobsters) Fetch(ctx context.Context) ([]store.Appearance, error) {
	url := fmt.Sprintf("%s/hottest.json", f.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating hottest request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching hottest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hottest returned status %d", resp.StatusCode)
	}

	var stories []lobstersStory
	if err := json.NewDecoder(resp.Body).Decode(&stories); err != nil {
		return nil, fmt.Errorf("decoding hottest: %w", err)
	}
	if f.limit > 0 && f.limit < len(stories) {
		stories = stories[:f.limit]
	}

	links := make([]store.Appearance, 0, len(stories))
	for _, story := range stories {
		url := story.URL
		if url == "" {
			url = story.CommentsURL
		}
		if url == "" {
			continue
		}
		links = append(links, store.Appearance{
			SourceID: story.ShortID,
			Source:   f.Name(),
			Title:    story.Title,
			URL:      url,
			Points:   story.Score,
			Comments: story.CommentCount,
		})
	}
	return links, nil
}
