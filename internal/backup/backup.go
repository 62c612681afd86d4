package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

const archiveExt = ".shelfwise.zip"

// BackupService exports state and manages archives in the backup directory.
type BackupService struct {
	store     store.Store
	backupDir string
	version   string
	logger    *slog.Logger
	now       func() time.Time
}

// NewBackupService creates a BackupService.
func NewBackupService(s store.Store, backupDir, version string, logger *slog.Logger) *BackupService {
	return &BackupService{
		store:     s,
		backupDir: backupDir,
		version:   version,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export reads a consistent snapshot of all state. It runs inside a write
// transaction so no mutation can interleave with the reads.
func (s *BackupService) Export(ctx context.Context) (*Document, error) {
	doc := &Document{}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		policy, err := tx.GetPolicy(ctx)
		switch {
		case err == nil:
			doc.Settings = *policy
		case errors.Is(err, store.ErrNotFound):
			doc.Settings = domain.DefaultPolicy()
		default:
			return err
		}

		if doc.Books, err = tx.ListBooks(ctx, store.BookFilter{}); err != nil {
			return err
		}
		if doc.Members, err = tx.ListMembers(ctx); err != nil {
			return err
		}
		if doc.Loans, err = tx.ListLoans(ctx, store.LoanFilter{}); err != nil {
			return err
		}
		if doc.Reservations, err = tx.ListReservations(ctx, store.ReservationFilter{}); err != nil {
			return err
		}
		if doc.Fines, err = tx.ListFines(ctx, store.FineFilter{}); err != nil {
			return err
		}
		doc.Payments, err = tx.ListAllPayments(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	doc.Manifest = Manifest{
		Version:       FormatVersion,
		CreatedAt:     s.now(),
		ServerVersion: s.version,
		Counts:        doc.Counts(),
	}
	return doc, nil
}

// Create exports state and writes it as an archive.
func (s *BackupService) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := time.Now()

	doc, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := doc.Manifest.CreatedAt.Format("2006-01-02-150405")
		outputPath = filepath.Join(s.backupDir, "backup-"+timestamp+archiveExt)
	}

	size, checksum, err := WriteFile(outputPath, doc)
	if err != nil {
		return nil, err
	}

	result := &BackupResult{
		Path:     outputPath,
		Size:     size,
		Counts:   doc.Manifest.Counts,
		Duration: time.Since(start),
		Checksum: checksum,
	}
	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"duration", result.Duration,
		"checksum", result.Checksum)
	return result, nil
}

// List returns archives in the backup directory, newest first.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), archiveExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(entry.Name(), archiveExt),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Get returns a backup by ID.
func (s *BackupService) Get(ctx context.Context, id string) (*BackupInfo, error) {
	path := s.GetPath(id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	return &BackupInfo{ID: id, Path: path, Size: info.Size(), CreatedAt: info.ModTime()}, nil
}

// Delete removes a backup.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return os.Remove(s.GetPath(id))
}

// GetPath returns the file path for a backup ID.
func (s *BackupService) GetPath(id string) string {
	return filepath.Join(s.backupDir, filepath.Base(id)+archiveExt)
}
