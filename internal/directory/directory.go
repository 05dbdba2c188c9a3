// Package directory loads the member list used to verify identities.
//
// The list is maintained outside this service as a spreadsheet export
// (name, member id, phone). Both .csv and .xlsx files are accepted; the
// first row is a header. Phones are usually stored as '0911... so the
// leading zero survives spreadsheet tools.
package directory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ticketify/internal/domain"
	"ticketify/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// FileDirectory serves lookups from a member file, reloading it whenever
// its modification time changes.
type FileDirectory struct {
	path   string
	logger *zerolog.Logger

	mu      sync.RWMutex
	modTime time.Time
	size    int64
	index   map[string]models.Member
}

func NewFileDirectory(path string, logger *zerolog.Logger) *FileDirectory {
	return &FileDirectory{path: path, logger: logger}
}

// Lookup returns the canonical member for an exact case-insensitive match
// on all three fields, or nil when there is none. A missing or unreadable
// file is reported as domain.ErrConfig.
func (d *FileDirectory) Lookup(ctx context.Context, name, memberID, phone string) (*models.Member, error) {
	index, err := d.load()
	if err != nil {
		return nil, err
	}
	m, ok := index[key(name, memberID, phone)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// Count returns the number of members in the file, reloading it if it
// changed.
func (d *FileDirectory) Count() (int, error) {
	index, err := d.load()
	if err != nil {
		return 0, err
	}
	return len(index), nil
}

func (d *FileDirectory) load() (map[string]models.Member, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: member list %s not found", domain.ErrConfig, d.path)
		}
		return nil, fmt.Errorf("%w: stat member list: %v", domain.ErrConfig, err)
	}

	d.mu.RLock()
	if d.index != nil && info.ModTime().Equal(d.modTime) && info.Size() == d.size {
		index := d.index
		d.mu.RUnlock()
		return index, nil
	}
	d.mu.RUnlock()

	members, err := readMembers(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}

	index := make(map[string]models.Member, len(members))
	for _, m := range members {
		k := key(m.Name, m.MemberID, m.Phone)
		if _, dup := index[k]; !dup {
			index[k] = m
		}
	}

	d.mu.Lock()
	d.index = index
	d.modTime = info.ModTime()
	d.size = info.Size()
	d.mu.Unlock()

	d.logger.Info().Str("path", d.path).Int("members", len(index)).Msg("member list loaded")
	return index, nil
}

func key(name, memberID, phone string) string {
	return models.NormalizeName(name) + "\x00" + models.NormalizeMemberID(memberID) + "\x00" + normalizeDirectoryPhone(phone)
}

// normalizeDirectoryPhone strips quotes on both ends; exports sometimes
// wrap the number as '0911000111'.
func normalizeDirectoryPhone(phone string) string {
	p := models.NormalizePhone(phone)
	return strings.TrimSpace(strings.TrimSuffix(p, "'"))
}

func readMembers(path string) ([]models.Member, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readCSV(f)
	}
}

func readCSV(r io.Reader) ([]models.Member, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse member csv: %w", err)
	}
	return rowsToMembers(rows), nil
}

func readXLSX(path string) ([]models.Member, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open member workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("member workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read member sheet: %w", err)
	}
	return rowsToMembers(rows), nil
}

// rowsToMembers skips the header row and rows with fewer than three cells.
func rowsToMembers(rows [][]string) []models.Member {
	if len(rows) <= 1 {
		return nil
	}
	members := make([]models.Member, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 3 {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(row[0], "\ufeff"))
		if name == "" {
			continue
		}
		members = append(members, models.Member{
			Name:     name,
			MemberID: strings.TrimSpace(row[1]),
			Phone:    normalizeDirectoryPhone(row[2]),
		})
	}
	return members
}
