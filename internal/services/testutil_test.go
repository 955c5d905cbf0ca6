package services

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/theobourgeois/vexilo/internal/cache"
	"github.com/theobourgeois/vexilo/internal/config"
	"github.com/theobourgeois/vexilo/internal/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- helpers ---

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open error: %v", err)
	}
	return gdb, mock
}

func sqlmockResult(rows int64) driver.Result {
	return sqlmock.NewResult(0, rows)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	kv, err := cache.New()
	if err != nil {
		t.Fatalf("cache.New error: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func newTestStorage(t *testing.T) *storage.Client {
	t.Helper()
	cfg := &config.Config{
		S3Region:    "us-east-1",
		S3Bucket:    "test-bucket",
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "test",
		S3SecretKey: "test",
		CDNBaseURL:  "https://cdn.test.example",
	}
	client, err := storage.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	return client
}
