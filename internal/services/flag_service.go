package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/cache"
	"github.com/theobourgeois/vexilo/internal/models"
	"github.com/theobourgeois/vexilo/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Queries shorter than this use substring matching; longer ones use
// trigram similarity. Three characters is below the trigram floor.
const fuzzyQueryMinLen = 4

const homeFlagLimit = 24

// FlagService is the read path over published flags plus the two
// unmoderated write paths (favorites, admin deletion) that bypass the
// request workflow by design.
type FlagService struct {
	db      *gorm.DB
	storage *storage.Client
	cache   *cache.Cache
	tags    TagLedger
}

func NewFlagService(db *gorm.DB, st *storage.Client, c *cache.Cache) *FlagService {
	return &FlagService{db: db, storage: st, cache: c}
}

// ListFlags returns one page of flags. Empty query keeps storage
// order; short queries match case-insensitive substrings; longer
// queries rank by descending trigram similarity.
func (s *FlagService) ListFlags(page, limit int, query string) ([]models.Flag, int64, error) {
	offset := (page - 1) * limit

	total, err := s.CountFlags(query)
	if err != nil {
		return nil, 0, err
	}

	var flags []models.Flag
	switch {
	case query == "":
		err = s.db.Offset(offset).Limit(limit).Find(&flags).Error
	case len(query) < fuzzyQueryMinLen:
		err = s.db.Where("name ILIKE ?", "%"+query+"%").
			Offset(offset).Limit(limit).Find(&flags).Error
	default:
		err = s.db.Raw(`
			SELECT * FROM flags
			WHERE deleted_at IS NULL AND similarity(name, ?) > 0.1
			ORDER BY similarity(name, ?) DESC
			OFFSET ? LIMIT ?
		`, query, query, offset, limit).Scan(&flags).Error
	}
	if err != nil {
		return nil, 0, err
	}
	return flags, total, nil
}

// CountFlags mirrors the ListFlags predicate for pagination math.
func (s *FlagService) CountFlags(query string) (int64, error) {
	var total int64
	var err error
	switch {
	case query == "":
		err = s.db.Model(&models.Flag{}).Count(&total).Error
	case len(query) < fuzzyQueryMinLen:
		err = s.db.Model(&models.Flag{}).
			Where("name ILIKE ?", "%"+query+"%").Count(&total).Error
	default:
		err = s.db.Raw(`
			SELECT COUNT(*) FROM flags
			WHERE deleted_at IS NULL AND similarity(name, ?) > 0.1
		`, query).Scan(&total).Error
	}
	return total, err
}

func (s *FlagService) GetFlag(flagID uuid.UUID) (*models.Flag, error) {
	var flag models.Flag
	if err := s.db.First(&flag, "id = ?", flagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &flag, nil
}

// GetRelatedFlags resolves a flag's related-flag id list.
func (s *FlagService) GetRelatedFlags(flagID uuid.UUID) ([]models.Flag, error) {
	flag, err := s.GetFlag(flagID)
	if err != nil {
		return nil, err
	}
	if len(flag.RelatedFlags) == 0 {
		return []models.Flag{}, nil
	}

	var related []models.Flag
	err = s.db.Where("id IN ?", []string(flag.RelatedFlags)).Find(&related).Error
	return related, err
}

// ListFlagsByTag returns flags holding the tag, newest first.
func (s *FlagService) ListFlagsByTag(tag string, page, limit int) ([]models.Flag, int64, error) {
	offset := (page - 1) * limit

	member, err := json.Marshal([]string{tag})
	if err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Flag{}).Where("tags @> ?", datatypes.JSON(member))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var flags []models.Flag
	err = query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&flags).Error
	return flags, total, err
}

// GetHomeFlags returns the newest flags for the landing page, cached
// until the next publish.
func (s *FlagService) GetHomeFlags() ([]models.Flag, error) {
	var cached []models.Flag
	if err := s.cache.Get(cache.KeyHomeFlags, &cached); err == nil {
		return cached, nil
	}

	var flags []models.Flag
	if err := s.db.Order("created_at DESC").Limit(homeFlagLimit).Find(&flags).Error; err != nil {
		return nil, err
	}

	if err := s.cache.Set(cache.KeyHomeFlags, flags); err != nil {
		slog.Error("failed to cache home flags", "error", err)
	}
	return flags, nil
}

// GetTags returns every tag with its usage count, most used first,
// cached until the next tag-set change.
func (s *FlagService) GetTags() ([]models.Tag, error) {
	var cached []models.Tag
	if err := s.cache.Get(cache.KeyTags, &cached); err == nil {
		return cached, nil
	}

	var tags []models.Tag
	if err := s.db.Order("count DESC, name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}

	if err := s.cache.Set(cache.KeyTags, tags); err != nil {
		slog.Error("failed to cache tags", "error", err)
	}
	return tags, nil
}

// GetFlagOfTheDay returns today's pick: the recorded row when the
// daily job has run, otherwise the deterministic day-of-year selection
// so the result is stable across repeated calls within a day.
func (s *FlagService) GetFlagOfTheDay(now time.Time) (*models.Flag, error) {
	today := now.UTC().Format("2006-01-02")

	var record models.FlagOfTheDay
	if err := s.db.Where("date = ?", today).First(&record).Error; err == nil {
		return s.GetFlag(record.FlagID)
	}

	index, err := s.dayIndex(now)
	if err != nil {
		return nil, err
	}
	return s.flagByIndex(index)
}

// PickFlagOfTheDay appends today's FlagOfTheDay record. Idempotent per
// date: a second call within the same day returns the recorded pick.
func (s *FlagService) PickFlagOfTheDay(now time.Time) (*models.Flag, error) {
	today := now.UTC().Format("2006-01-02")

	var existing models.FlagOfTheDay
	if err := s.db.Where("date = ?", today).First(&existing).Error; err == nil {
		return s.GetFlag(existing.FlagID)
	}

	flag, err := s.GetRandomFlag()
	if err != nil {
		return nil, err
	}

	record := models.FlagOfTheDay{Date: today, FlagID: flag.ID}
	if err := s.db.Create(&record).Error; err != nil {
		// Lost the unique-date race with a concurrent trigger; the
		// winner's pick is the one that counts.
		var raced models.FlagOfTheDay
		if rerr := s.db.Where("date = ?", today).First(&raced).Error; rerr == nil {
			return s.GetFlag(raced.FlagID)
		}
		return nil, err
	}

	s.cache.Invalidate(cache.WriteFlagOfDayPicked)
	slog.Info("flag of the day recorded", "date", today, "flag_id", flag.ID)
	return flag, nil
}

// GetRandomFlag picks uniformly over display indices, which span
// 0..count-1 contiguously.
func (s *FlagService) GetRandomFlag() (*models.Flag, error) {
	var count int64
	if err := s.db.Model(&models.Flag{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return s.flagByIndex(rand.Intn(int(count)))
}

func (s *FlagService) dayIndex(now time.Time) (int, error) {
	var count int64
	if err := s.db.Model(&models.Flag{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNotFound
	}
	return now.UTC().YearDay() % int(count), nil
}

func (s *FlagService) flagByIndex(index int) (*models.Flag, error) {
	var flag models.Flag
	if err := s.db.Where("display_index = ?", index).First(&flag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &flag, nil
}

// ToggleFavorite adds or removes the user's favorite and keeps the
// flag's favorite counter in step. Unmoderated by design.
func (s *FlagService) ToggleFavorite(userID, flagID uuid.UUID) (favorited bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var flag models.Flag
		if err := tx.First(&flag, "id = ?", flagID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing models.Favorite
		err := tx.Where("user_id = ? AND flag_id = ?", userID, flagID).First(&existing).Error
		if err == nil {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			favorited = false
			return tx.Model(&models.Flag{}).Where("id = ?", flagID).
				Update("favorites", gorm.Expr("favorites - 1")).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		favorite := models.Favorite{UserID: userID, FlagID: flagID}
		if err := tx.Create(&favorite).Error; err != nil {
			return err
		}
		favorited = true
		return tx.Model(&models.Flag{}).Where("id = ?", flagID).
			Update("favorites", gorm.Expr("favorites + 1")).Error
	})
	if err != nil {
		return false, err
	}

	s.cache.Invalidate(cache.WriteFavoriteToggled)
	return favorited, nil
}

// ListFavorites returns the flags a user has favorited, newest first.
func (s *FlagService) ListFavorites(userID uuid.UUID, page, limit int) ([]models.Flag, int64, error) {
	offset := (page - 1) * limit

	var total int64
	err := s.db.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var flags []models.Flag
	err = s.db.
		Joins("JOIN favorites ON favorites.flag_id = flags.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&flags).Error
	return flags, total, err
}

// DeleteFlag removes a published flag outside the request workflow
// (admin trust boundary). Tag counts are reconciled down and every
// higher display index shifts down by one inside the transaction, so
// indices keep spanning 0..count-1. The leaderboard is never
// decremented.
func (s *FlagService) DeleteFlag(ctx context.Context, flagID uuid.UUID) error {
	var image string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var flag models.Flag
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&flag, "id = ?", flagID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		image = flag.Image

		for _, tag := range flag.Tags {
			if err := s.tags.Decrement(tx, tag); err != nil {
				return err
			}
		}

		if err := tx.Where("flag_id = ?", flagID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&flag).Error; err != nil {
			return err
		}

		// Two statements so the shift never collides under the partial
		// unique index on live display indices: index i parks on -i-1,
		// then lands on i-1.
		err = tx.Model(&models.Flag{}).
			Where("display_index > ?", flag.DisplayIndex).
			Update("display_index", gorm.Expr("-display_index - 1")).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Flag{}).
			Where("display_index < 0").
			Update("display_index", gorm.Expr("-display_index - 2")).Error
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(cache.WriteFlagDeleted)

	if s.storage.Hosted(image) {
		if key, err := s.storage.URLToKey(image); err == nil {
			if err := s.storage.DeleteObject(ctx, key); err != nil {
				slog.Error("failed to delete flag image", "error", err, "key", key)
			}
		}
	}
	return nil
}
