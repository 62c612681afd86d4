package backup

import (
	"fmt"
	"time"
)

// BackupOptions configures backup creation.
type BackupOptions struct {
	OutputPath string // Where to write the archive; defaults to the backup directory
}

// RestoreOptions configures restoration.
type RestoreOptions struct {
	DryRun bool // Validate without writing
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   EntityCounts  `json:"counts"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// BackupInfo describes an existing backup archive.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// RestoreResult contains the outcome of a restore operation.
type RestoreResult struct {
	Imported EntityCounts  `json:"imported"`
	DryRun   bool          `json:"dryRun"`
	Duration time.Duration `json:"duration"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Manifest *Manifest `json:"manifest,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
