package models

import "time"

// Event kinds. Article clicks and engagements are counted separately: one
// answers "did they read it", the other "did they care enough to curate it".
const (
	ClickTypeArticle    = "article"
	ClickTypeComments   = "comments"
	ClickTypeEngagement = "engagement"
)

// ClickEvent is an append-only record of a user acting on a link. Title, URL,
// points and comments are snapshots taken at event time so history stays
// meaningful if the Link row's metadata changes later. Rows are never updated
// or deleted outside the debug bulk-clear.
type ClickEvent struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	LinkID          uint      `gorm:"index" json:"link_id"`
	NormalizedID    int       `gorm:"index" json:"normalized_id"`
	ClickType       string    `gorm:"index;not null" json:"click_type"`
	Title           string    `json:"title"`
	URL             string    `gorm:"index" json:"url"`
	Points          int       `json:"points"`
	Comments        int       `json:"comments"`
	LinkFirstSeenAt time.Time `json:"link_first_seen_at"`
	ClickedAt       time.Time `json:"clicked_at"`
}
