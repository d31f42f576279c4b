// internal/models/history.go
package models

import "time"

// SearchLogEntry is one row of a user's live-search history.
type SearchLogEntry struct {
	SearchID int64         `json:"searchId"`
	UserID   *int64        `json:"userId,omitempty"`
	Created  time.Time     `json:"created"`
	Queries  []SearchQuery `json:"queries"`
	Name     string        `json:"name,omitempty"`
}
