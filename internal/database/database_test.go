package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ticketify/internal/domain"
	"ticketify/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ domain.BookingStore = (*DB)(nil)
	_ domain.BookingStore = (*FileStore)(nil)
	_ domain.SecretStore  = (*PasswordFile)(nil)
	_ domain.Snapshotter  = (*BackupService)(nil)
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleBookings() []models.Booking {
	at := time.Date(2025, 12, 29, 7, 30, 0, 0, time.UTC)
	return []models.Booking{
		{
			ID:             "b1",
			CreatedAt:      at,
			User:           models.User{Name: "Nguyen Van A", MemberID: "rocket1", PhoneNumber: "0911000111"},
			Seats:          []models.Seat{{ID: "CAT1-1", Category: models.CategoryStandard}},
			DeliveryStatus: models.DeliverySent,
		},
		{
			ID:             "b2",
			CreatedAt:      at.Add(time.Second),
			User:           models.User{Name: "Tran Thi B", MemberID: "rocket2", PhoneNumber: "0911000222"},
			Seats:          []models.Seat{{ID: "CAT1-2", Category: models.CategoryStandard}},
			DeliveryStatus: models.DeliveryPending,
		},
	}
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestDB_EmptyStore(t *testing.T) {
	db := setupTestDB(t)

	bookings, err := db.LoadBookings(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, bookings)
	assert.Empty(t, bookings)
}

func TestDB_SaveAndLoadBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := sampleBookings()
	require.NoError(t, db.SaveBookings(ctx, in))

	out, err := db.LoadBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Whole-document replace, not append.
	require.NoError(t, db.SaveBookings(ctx, in[:1]))
	out, err = db.LoadBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	require.NoError(t, db.SaveBookings(ctx, nil))
	out, err = db.LoadBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDB_CorruptDocumentIsAnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.writeDocument(ctx, DocBookings, []byte("{not json")))
	_, err := db.LoadBookings(ctx)
	assert.Error(t, err)
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "data", "bookings.json")
	store, err := NewFileStore(path, &logger)
	require.NoError(t, err)
	ctx := context.Background()

	empty, err := store.LoadBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	in := sampleBookings()
	require.NoError(t, store.SaveBookings(ctx, in))

	out, err := store.LoadBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_ReadsLegacyDocument(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "bookings.json")
	legacy := `[{"id":"1766993400000","date":"2025-12-29T07:30:00.000Z",
		"user":{"name":"A","employeeId":"rocket1","phoneNumber":"0911000111"},
		"seats":[{"id":"CAT1-1","type":"STANDARD","price":0}],"chatStatus":"failed"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	store, err := NewFileStore(path, &logger)
	require.NoError(t, err)

	out, err := store.LoadBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "rocket1", out[0].User.MemberID)
	assert.Equal(t, models.DeliveryFailed, out[0].DeliveryStatus)
}
