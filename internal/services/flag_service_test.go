package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theobourgeois/vexilo/internal/cache"
)

func newTestFlagService(t *testing.T) (*FlagService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewFlagService(db, newTestStorage(t), newTestCache(t)), mock
}

func flagRows(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "display_index"})
	for i, name := range names {
		rows.AddRow(uuid.NewString(), name, i)
	}
	return rows
}

func TestCountFlagsPredicate(t *testing.T) {
	t.Run("empty query counts everything", func(t *testing.T) {
		svc, mock := newTestFlagService(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "flags"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

		total, err := svc.CountFlags("")
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short query uses substring match", func(t *testing.T) {
		svc, mock := newTestFlagService(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "flags" WHERE name ILIKE`).
			WithArgs("%red%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

		total, err := svc.CountFlags("red")
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("long query uses trigram similarity", func(t *testing.T) {
		svc, mock := newTestFlagService(t)
		mock.ExpectQuery(`similarity\(name`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

		total, err := svc.CountFlags("maple")
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetFlagOfTheDayRecorded(t *testing.T) {
	svc, mock := newTestFlagService(t)
	flagID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "flag_of_the_days"`).
		WithArgs("2026-03-01", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "flag_id"}).
			AddRow(uuid.NewString(), "2026-03-01", flagID.String()))
	mock.ExpectQuery(`SELECT .* FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_index"}).
			AddRow(flagID.String(), "Canada", 0))

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	flag, err := svc.GetFlagOfTheDay(now)
	require.NoError(t, err)
	assert.Equal(t, flagID, flag.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFlagOfTheDayFallsBackToDayIndex(t *testing.T) {
	svc, mock := newTestFlagService(t)

	// March 1st is day 60; 60 mod 7 flags selects index 4.
	mock.ExpectQuery(`SELECT .* FROM "flag_of_the_days"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT .* FROM "flags" WHERE display_index =`).
		WithArgs(4, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_index"}).
			AddRow(uuid.NewString(), "Japan", 4))

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	flag, err := svc.GetFlagOfTheDay(now)
	require.NoError(t, err)
	assert.Equal(t, "Japan", flag.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFlagOfTheDayEmptyCatalog(t *testing.T) {
	svc, mock := newTestFlagService(t)

	mock.ExpectQuery(`SELECT .* FROM "flag_of_the_days"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	_, err := svc.GetFlagOfTheDay(time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRandomFlagEmptyCatalog(t *testing.T) {
	svc, mock := newTestFlagService(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	_, err := svc.GetRandomFlag()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHomeFlagsCaches(t *testing.T) {
	svc, mock := newTestFlagService(t)

	mock.ExpectQuery(`SELECT .* FROM "flags"`).
		WillReturnRows(flagRows("Canada", "Japan"))

	first, err := svc.GetHomeFlags()
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Second call is served from the cache; no further SQL runs.
	second, err := svc.GetHomeFlags()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleFavoriteMissingFlag(t *testing.T) {
	svc, mock := newTestFlagService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.ToggleFavorite(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPickFlagOfTheDayLosesCreateRace(t *testing.T) {
	svc, mock := newTestFlagService(t)
	winnerID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "flag_of_the_days"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT .* FROM "flags" WHERE display_index =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_index"}).
			AddRow(uuid.NewString(), "Japan", 1))

	// A concurrent trigger recorded the date first; the unique index
	// rejects this insert and the winner's pick is returned instead.
	mock.ExpectQuery(`INSERT INTO "flag_of_the_days"`).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "idx_flag_of_the_days_date"`))
	mock.ExpectQuery(`SELECT .* FROM "flag_of_the_days"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "flag_id"}).
			AddRow(uuid.NewString(), "2026-03-01", winnerID.String()))
	mock.ExpectQuery(`SELECT .* FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_index"}).
			AddRow(winnerID.String(), "Canada", 0))

	flag, err := svc.PickFlagOfTheDay(time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, winnerID, flag.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleFavoriteDropsCachedHomeFlags(t *testing.T) {
	db, mock := newMockDB(t)
	kv := newTestCache(t)
	svc := NewFlagService(db, newTestStorage(t), kv)

	require.NoError(t, kv.Set(cache.KeyHomeFlags, []string{"stale"}))

	flagID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_index"}).
			AddRow(flagID.String(), "Canada", 0))
	mock.ExpectQuery(`SELECT .* FROM "favorites"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "favorites"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectExec(`UPDATE "flags" SET "favorites"=favorites \+ 1`).
		WillReturnResult(sqlmockResult(1))
	mock.ExpectCommit()

	favorited, err := svc.ToggleFavorite(uuid.New(), flagID)
	require.NoError(t, err)
	assert.True(t, favorited)
	assert.NoError(t, mock.ExpectationsWereMet())

	var cached []string
	assert.ErrorIs(t, kv.Get(cache.KeyHomeFlags, &cached), cache.ErrMiss)
}

func TestDeleteFlagReindexesInTwoPhases(t *testing.T) {
	svc, mock := newTestFlagService(t)
	flagID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flags" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image", "display_index", "tags"}).
			AddRow(flagID.String(), "Canada", "https://upload.wikimedia.org/canada.svg", 2, []byte(`["maritime"]`)))
	mock.ExpectExec(`UPDATE "tags" SET "count"=count - 1`).
		WillReturnResult(sqlmockResult(1))
	mock.ExpectExec(`DELETE FROM "favorites"`).
		WillReturnResult(sqlmockResult(3))
	mock.ExpectExec(`UPDATE "flags" SET "deleted_at"`).
		WillReturnResult(sqlmockResult(1))

	// Higher indices park on negative values before landing one lower,
	// so the shift never collides with a live index.
	mock.ExpectExec(`UPDATE "flags" SET "display_index"=-display_index - 1`).
		WillReturnResult(sqlmockResult(4))
	mock.ExpectExec(`UPDATE "flags" SET "display_index"=-display_index - 2`).
		WillReturnResult(sqlmockResult(4))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteFlag(context.Background(), flagID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFlagMissing(t *testing.T) {
	svc, mock := newTestFlagService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flags" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := svc.DeleteFlag(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
