package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ticketify/internal/models"

	"github.com/rs/zerolog"
)

// FileStore keeps the booking document in a plain JSON file, the layout
// the first deployment used (bookings.json). Writes go to a temp file that
// is renamed over the target so readers never see a torn document.
type FileStore struct {
	path   string
	logger *zerolog.Logger
}

func NewFileStore(path string, logger *zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	logger.Info().Str("path", path).Msg("file store initialized")
	return &FileStore{path: path, logger: logger}, nil
}

func (s *FileStore) LoadBookings(ctx context.Context) ([]models.Booking, error) {
	body, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Booking{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodeBookings(body)
}

func (s *FileStore) SaveBookings(ctx context.Context, bookings []models.Booking) error {
	body, err := encodeBookings(bookings)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
