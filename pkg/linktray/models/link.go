package models

import "time"

// Link is a distinct piece of content surfaced from any feed, deduplicated by
// canonical URL. Repeated appearances bump ImpressionCount on the existing row
// instead of inserting a second one.
type Link struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	NormalizedID    int       `gorm:"index" json:"normalized_id"`
	SourceNativeID  string    `json:"source_native_id"`
	Source          string    `json:"source"`
	Title           string    `json:"title"`
	URL             string    `gorm:"uniqueIndex;not null" json:"url"`
	Points          int       `json:"points"`
	Comments        int       `json:"comments"`
	Tags            string    `json:"tags"`
	ImpressionCount uint      `gorm:"default:0" json:"impression_count"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
