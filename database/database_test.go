package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishtank/types"
)

func TestStatusTransitions(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	mod := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)
	require.NoError(t, UpsertPending(db, "/photos/fish1.jpg", mod))

	rec, err := GetRecord(db, "/photos/fish1.jpg")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, rec.Status)

	require.NoError(t, MarkAccepted(db, "/photos/fish1.jpg", 4032, 3024))
	rec, err = GetRecord(db, "/photos/fish1.jpg")
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, rec.Status)
	assert.Equal(t, 4032, rec.Width)
	assert.Equal(t, 3024, rec.Height)
	assert.Empty(t, rec.RejectReason)

	require.NoError(t, MarkRejected(db, "/photos/fish1.jpg", "markers not found"))
	rec, err = GetRecord(db, "/photos/fish1.jpg")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, rec.Status)
	assert.Equal(t, "markers not found", rec.RejectReason)
}

func TestUpsertResetsChangedPhotoToPending(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	mod := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)
	require.NoError(t, UpsertPending(db, "/photos/fish.jpg", mod))
	require.NoError(t, MarkRejected(db, "/photos/fish.jpg", "blurry"))

	// The file was re-photographed and saved again.
	require.NoError(t, UpsertPending(db, "/photos/fish.jpg", mod.Add(time.Hour)))

	rec, err := GetRecord(db, "/photos/fish.jpg")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, rec.Status)
	assert.Empty(t, rec.RejectReason)
}

func TestIsUnchanged(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	mod := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

	// Unknown paths are never "unchanged".
	unchanged, err := IsUnchanged(db, "/photos/new.jpg", mod)
	require.NoError(t, err)
	assert.False(t, unchanged)

	require.NoError(t, UpsertPending(db, "/photos/new.jpg", mod))

	unchanged, err = IsUnchanged(db, "/photos/new.jpg", mod)
	require.NoError(t, err)
	assert.True(t, unchanged)

	unchanged, err = IsUnchanged(db, "/photos/new.jpg", mod.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, unchanged)

	unchanged, err = IsUnchanged(db, "/photos/new.jpg", mod.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, unchanged)
}

func TestGetIngestStats(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	stats, err := GetIngestStats(db)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	mod := time.Now()
	require.NoError(t, UpsertPending(db, "/p/1.jpg", mod))
	require.NoError(t, UpsertPending(db, "/p/2.jpg", mod))
	require.NoError(t, UpsertPending(db, "/p/3.jpg", mod))
	require.NoError(t, MarkAccepted(db, "/p/1.jpg", 10, 10))
	require.NoError(t, MarkRejected(db, "/p/2.jpg", "bad quad"))

	stats, err = GetIngestStats(db)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
}
