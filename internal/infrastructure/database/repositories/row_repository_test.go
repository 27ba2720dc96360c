package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"excel-import-service/internal/core/domain"
	"excel-import-service/internal/core/importer"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Row{}, &domain.User{}))

	return db
}

func validRow(line int, fileID int64) importer.ValidatedRow {
	return importer.ValidatedRow{
		Line:   line,
		FileID: fileID,
		Name:   "Anna",
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRowRepository_InsertBatch_InsertsAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRowRepository(db, nil)

	inserted, rejections, err := repo.InsertBatch(context.Background(), []importer.ValidatedRow{
		validRow(2, 1),
		validRow(3, 2),
		validRow(4, 3),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, inserted)
	assert.Empty(t, rejections)

	count, err := repo.CountByFileIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRowRepository_InsertBatch_RejectsExistingIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRowRepository(db, nil)

	_, _, err := repo.InsertBatch(context.Background(), []importer.ValidatedRow{validRow(2, 10)})
	require.NoError(t, err)

	inserted, rejections, err := repo.InsertBatch(context.Background(), []importer.ValidatedRow{
		validRow(5, 10), // already persisted
		validRow(6, 11),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.Len(t, rejections, 1)
	assert.Equal(t, 5, rejections[0].Line)
	assert.Equal(t, []string{"Duplicate ID, already exists in DB"}, rejections[0].Reasons)
}

func TestRowRepository_InsertBatch_FirstOccurrenceWinsWithinChunk(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRowRepository(db, nil)

	inserted, rejections, err := repo.InsertBatch(context.Background(), []importer.ValidatedRow{
		validRow(2, 7),
		validRow(3, 7), // same ID later in the chunk
		validRow(4, 7),
		validRow(5, 8),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.Len(t, rejections, 2)
	assert.Equal(t, 3, rejections[0].Line)
	assert.Equal(t, []string{"Duplicate ID in current chunk"}, rejections[0].Reasons)
	assert.Equal(t, 4, rejections[1].Line)

	// Only the first occurrence was persisted.
	var stored []domain.Row
	require.NoError(t, db.Where("file_id = ?", int64(7)).Find(&stored).Error)
	require.Len(t, stored, 1)
}

func TestRowRepository_InsertBatch_DistinguishesDBFromChunkDuplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRowRepository(db, nil)

	_, _, err := repo.InsertBatch(context.Background(), []importer.ValidatedRow{validRow(2, 20)})
	require.NoError(t, err)

	// A repeated ID that already exists in the DB is reported as a DB
	// duplicate on every occurrence, not as a chunk duplicate.
	_, rejections, err := repo.InsertBatch(context.Background(), []importer.ValidatedRow{
		validRow(10, 20),
		validRow(11, 20),
	})

	require.NoError(t, err)
	require.Len(t, rejections, 2)
	assert.Equal(t, []string{"Duplicate ID, already exists in DB"}, rejections[0].Reasons)
	assert.Equal(t, []string{"Duplicate ID, already exists in DB"}, rejections[1].Reasons)
}

func TestRowRepository_InsertBatch_EmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRowRepository(db, nil)

	inserted, rejections, err := repo.InsertBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Empty(t, rejections)
}

func TestUserRepository_AuthenticateAndSeed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.SeedAdmin(ctx, "admin", "s3cret"))

	// Seeding again is a no-op, not a duplicate.
	require.NoError(t, repo.SeedAdmin(ctx, "admin", "s3cret"))

	ok, err := repo.Authenticate(ctx, "admin", "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Authenticate(ctx, "admin", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Authenticate(ctx, "nobody", "s3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}
