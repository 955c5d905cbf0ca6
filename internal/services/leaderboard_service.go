package services

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/cache"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardService maintains per-user contribution counts. Counts
// only ever go up; a contribution is never revoked, even if the flag
// it produced is later deleted.
type LeaderboardService struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewLeaderboardService(db *gorm.DB, c *cache.Cache) *LeaderboardService {
	return &LeaderboardService{db: db, cache: c}
}

// RecordContribution upserts the proposer's entry inside the caller's
// transaction: created at count 1, or incremented by 1. A missing user
// row is a foreign-key race with account deletion; it is logged and
// skipped rather than failing the approval.
func (s *LeaderboardService) RecordContribution(tx *gorm.DB, userID uuid.UUID) error {
	var exists int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		slog.Warn("skipping leaderboard credit for missing user", "user_id", userID)
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("leaderboard_entries.count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&models.LeaderboardEntry{UserID: userID, Count: 1}).Error
}

// GetLeaderboard returns the top contributors, highest count first.
// Anonymous users keep their rank but render without name, avatar or
// profile handle.
func (s *LeaderboardService) GetLeaderboard(limit int) ([]dto.LeaderboardRow, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var cached []dto.LeaderboardRow
	if err := s.cache.Get(cache.KeyLeaderboard, &cached); err == nil && len(cached) >= limit {
		return cached[:limit], nil
	}

	var entries []models.LeaderboardEntry
	err := s.db.Preload("User").
		Order("count DESC, updated_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	rows := make([]dto.LeaderboardRow, 0, len(entries))
	for _, entry := range entries {
		row := dto.LeaderboardRow{Count: entry.Count}
		if entry.User.IsAnonymous {
			row.Name = "Anonymous"
			row.Anonymous = true
		} else {
			row.Name = entry.User.Name
			row.Image = entry.User.Image
			row.UserNumber = entry.User.UserNumber
		}
		rows = append(rows, row)
	}

	if err := s.cache.Set(cache.KeyLeaderboard, rows); err != nil {
		slog.Error("failed to cache leaderboard", "error", err)
	}
	return rows, nil
}
