package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theobourgeois/vexilo/internal/cache"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/models"
)

func newTestRequestService(t *testing.T) (*RequestService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	kv := newTestCache(t)
	store := newTestStorage(t)
	board := NewLeaderboardService(db, kv)
	return NewRequestService(db, store, kv, board), mock
}

func TestValidateLink(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		wantErr bool
	}{
		{"https", "https://en.wikipedia.org/wiki/Flag_of_Canada", false},
		{"http", "http://example.com/flags", false},
		{"empty", "", true},
		{"relative", "/wiki/Flag_of_Canada", true},
		{"no scheme", "example.com/flags", true},
		{"ftp", "ftp://example.com/flag", true},
		{"javascript", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLink(tt.link)
			if tt.wantErr {
				assert.True(t, IsValidation(err), "expected validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmitUnknownUser(t *testing.T) {
	svc, mock := newTestRequestService(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Submit(context.Background(), uuid.New(), &dto.SubmitFlagRequest{
		Name:  "Canada",
		Image: "https://cdn.test.example/images/image-1.png",
		Link:  "https://example.com",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitPendingQuota(t *testing.T) {
	svc, mock := newTestRequestService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "flag_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(MaxPendingPerUser)))

	_, err := svc.Submit(context.Background(), userID, &dto.SubmitFlagRequest{
		Name:  "Canada",
		Image: "https://cdn.test.example/images/image-1.png",
		Link:  "https://example.com",
	})
	assert.True(t, IsValidation(err), "expected validation error, got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitFieldValidation(t *testing.T) {
	tests := []struct {
		name  string
		input dto.SubmitFlagRequest
	}{
		{"missing name", dto.SubmitFlagRequest{Image: "https://cdn.test.example/images/image-1.png", Link: "https://example.com"}},
		{"missing image", dto.SubmitFlagRequest{Name: "Canada", Link: "https://example.com"}},
		{"bad link", dto.SubmitFlagRequest{Name: "Canada", Image: "https://cdn.test.example/images/image-1.png", Link: "not-a-url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestRequestService(t)
			userID := uuid.New()

			mock.ExpectQuery(`SELECT .* FROM "users"`).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
			mock.ExpectQuery(`SELECT count\(\*\) FROM "flag_requests"`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

			_, err := svc.Submit(context.Background(), userID, &tt.input)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubmitEditOfMissingFlag(t *testing.T) {
	svc, mock := newTestRequestService(t)
	userID := uuid.New()
	flagID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "flag_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT .* FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Submit(context.Background(), userID, &dto.SubmitFlagRequest{
		Name:   "Canada",
		Image:  "https://cdn.test.example/images/image-1.png",
		Link:   "https://example.com",
		FlagID: &flagID,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveMissingRequestRollsBack(t *testing.T) {
	svc, mock := newTestRequestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flag_requests" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.Approve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveNewFlag(t *testing.T) {
	db, mock := newMockDB(t)
	kv := newTestCache(t)
	svc := NewRequestService(db, newTestStorage(t), kv, NewLeaderboardService(db, kv))

	require.NoError(t, kv.Set(cache.KeyHomeFlags, []string{"stale"}))

	requestID := uuid.New()
	userID := uuid.New()
	flagID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flag_requests" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "image", "link", "tags", "status", "is_edit"}).
			AddRow(requestID.String(), userID.String(), "Canada", "https://upload.wikimedia.org/canada.svg",
				"https://example.com/canada", []byte(`["maritime","striped"]`), models.RequestStatusPending, false))

	// Next display index is computed inside the transaction.
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(display_index\) \+ 1, 0\) FROM "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(5))
	mock.ExpectQuery(`INSERT INTO "flags"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "favorites"}).AddRow(flagID.String(), 0))

	// One upsert per tag.
	mock.ExpectQuery(`INSERT INTO "tags" .* ON CONFLICT \("name"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectQuery(`INSERT INTO "tags" .* ON CONFLICT \("name"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	// Leaderboard credit.
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO "leaderboard_entries" .* ON CONFLICT \("user_id"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	mock.ExpectExec(`UPDATE "flag_requests" SET`).
		WillReturnResult(sqlmockResult(1))
	mock.ExpectCommit()

	request, err := svc.Approve(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, request.Status)
	require.NotNil(t, request.FlagID)
	assert.Equal(t, flagID, *request.FlagID)
	assert.NoError(t, mock.ExpectationsWereMet())

	var cached []string
	assert.ErrorIs(t, kv.Get(cache.KeyHomeFlags, &cached), cache.ErrMiss)
}

func TestApproveEditTagsOnlyLeavesScalarsAlone(t *testing.T) {
	svc, mock := newTestRequestService(t)

	requestID := uuid.New()
	userID := uuid.New()
	flagID := uuid.New()

	// The proposal matches the snapshot on every scalar field; only the
	// tag set differs, so the flag update must touch nothing else.
	snapshot := []byte(`{"name":"Canada","image":"https://upload.wikimedia.org/canada.svg",` +
		`"link":"https://example.com/canada","description":"The maple leaf","tags":["old"]}`)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flag_requests" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "flag_id", "name", "image", "link", "description", "tags", "old_flag", "status", "is_edit"}).
			AddRow(requestID.String(), userID.String(), flagID.String(), "Canada",
				"https://upload.wikimedia.org/canada.svg", "https://example.com/canada",
				"The maple leaf", []byte(`["new"]`), snapshot, models.RequestStatusPending, true))
	mock.ExpectQuery(`SELECT .* FROM "flags" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image", "link", "description", "display_index", "tags"}).
			AddRow(flagID.String(), "Canada", "https://upload.wikimedia.org/canada.svg",
				"https://example.com/canada", "The maple leaf", 3, []byte(`["old"]`)))

	// Ledger reconciliation: the added tag is upserted, the removed one
	// decremented.
	mock.ExpectQuery(`INSERT INTO "tags" .* ON CONFLICT \("name"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectExec(`UPDATE "tags" SET "count"=count - 1`).
		WillReturnResult(sqlmockResult(1))

	// Exactly tags and the timestamp; a scalar column here means the
	// edit reverted fields it never proposed to change.
	mock.ExpectExec(`UPDATE "flags" SET "tags"=\$1,"updated_at"=\$2 WHERE`).
		WillReturnResult(sqlmockResult(1))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO "leaderboard_entries" .* ON CONFLICT \("user_id"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	mock.ExpectExec(`UPDATE "flag_requests" SET`).
		WillReturnResult(sqlmockResult(1))
	mock.ExpectCommit()

	request, err := svc.Approve(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, request.Status)
	assert.True(t, request.IsEdit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclinePendingRequest(t *testing.T) {
	svc, mock := newTestRequestService(t)
	requestID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flag_requests" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "image", "status"}).
			AddRow(requestID.String(), userID.String(), "Canada", "https://upload.wikimedia.org/canada.svg", models.RequestStatusPending))
	mock.ExpectExec(`UPDATE "flag_requests" SET`).
		WillReturnResult(sqlmockResult(1))
	mock.ExpectCommit()

	request, err := svc.Decline(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDeclined, request.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawRejectsForeignRequest(t *testing.T) {
	svc, mock := newTestRequestService(t)

	// The owner filter is part of the lock query, so a non-owner sees
	// not-found rather than forbidden.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "flag_requests" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := svc.Withdraw(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
