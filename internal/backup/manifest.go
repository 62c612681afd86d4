package backup

import "time"

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version       string       `json:"version"`
	CreatedAt     time.Time    `json:"createdAt"`
	ServerVersion string       `json:"serverVersion,omitempty"`
	Counts        EntityCounts `json:"counts"`
}

// EntityCounts tracks entity counts for validation and progress reporting.
type EntityCounts struct {
	Books        int `json:"books"`
	Members      int `json:"members"`
	Loans        int `json:"loans"`
	Reservations int `json:"reservations"`
	Fines        int `json:"fines"`
	Payments     int `json:"payments"`
}
