package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ticketify/internal/config"

	"github.com/rs/zerolog"
)

// BackupService snapshots the booking store into StoragePath. For the
// sqlite store it uses VACUUM INTO; for the file store, and as a fallback,
// it copies the file.
type BackupService struct {
	db         *DB
	sourcePath string
	config     config.BackupConfig
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewBackupService backs up db when non-nil, otherwise the file at
// sourcePath.
func NewBackupService(db *DB, sourcePath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	if db != nil {
		sourcePath = db.Path()
	}
	return &BackupService{
		db:         db,
		sourcePath: sourcePath,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	interval := 24 * time.Hour
	if s.config.Schedule != "" {
		if d, err := time.ParseDuration(s.config.Schedule); err == nil {
			interval = d
		} else {
			s.logger.Warn().Err(err).Str("schedule", s.config.Schedule).Msg("Failed to parse backup schedule, using default 24h")
		}
	}
	s.logger.Info().Dur("interval", interval).Msg("Backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PerformBackup(); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes one snapshot and returns once it is on disk.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := os.Stat(s.sourcePath); os.IsNotExist(err) {
		s.logger.Info().Str("source", s.sourcePath).Msg("Nothing to back up yet")
		return nil
	}

	ext := filepath.Ext(s.sourcePath)
	if ext == "" {
		ext = ".bak"
	}
	backupPath := filepath.Join(s.config.StoragePath,
		fmt.Sprintf("backup_%s%s", s.now().Format("20060102_150405.000000000"), ext))

	if s.db != nil {
		s.logger.Info().Str("path", backupPath).Msg("Performing database backup using VACUUM INTO")
		_, err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(backupPath, "'", "''")))
		if err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, falling back to file copy")
	}

	return s.copyFile(backupPath)
}

func (s *BackupService) copyFile(backupPath string) error {
	source, err := os.Open(s.sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}

	s.logger.Info().Str("path", backupPath).Msg("File backup completed")
	return destination.Sync()
}

func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "backup_") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			_ = os.Remove(filepath.Join(s.config.StoragePath, file.Name()))
		}
	}
}
