package project

import "time"

// ReportFile holds metadata for a report export registered with a study.
type ReportFile struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Series      int       `json:"series"`
	Issues      int       `json:"issues"`
	AddedAt     time.Time `json:"added_at"`
}
