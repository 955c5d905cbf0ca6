package services

import (
	"strings"
	"time"

	"github.com/theobourgeois/vexilo/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagLedger maintains the denormalized per-tag usage counts. All
// methods take the caller's transaction handle so ledger updates
// commit or roll back with the flag mutation that caused them.
type TagLedger struct{}

// Increment bumps the tag's count, creating the row at count 1 if
// absent. The upsert is a single statement so concurrent approvals
// touching the same tag cannot lose updates.
func (TagLedger) Increment(tx *gorm.DB, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("tags.count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&models.Tag{Name: name, Count: 1}).Error
}

// Decrement lowers the tag's count, deleting the row when the count
// would drop to zero or below.
func (TagLedger) Decrement(tx *gorm.DB, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	result := tx.Model(&models.Tag{}).
		Where("name = ? AND count > 1", name).
		Update("count", gorm.Expr("count - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	return tx.Where("name = ?", name).Delete(&models.Tag{}).Error
}

// Reconcile applies the set difference between the old and new tag
// sets: additions are incremented, removals decremented.
func (l TagLedger) Reconcile(tx *gorm.DB, oldTags, newTags []string) error {
	added, removed := TagDiff(oldTags, newTags)
	for _, tag := range added {
		if err := l.Increment(tx, tag); err != nil {
			return err
		}
	}
	for _, tag := range removed {
		if err := l.Decrement(tx, tag); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeTags trims every tag and drops empty or whitespace-only
// entries. Comparison is exact post-trim; no case folding.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// TagDiff computes the order-insensitive set difference between two
// tag lists after normalization.
func TagDiff(oldTags, newTags []string) (added, removed []string) {
	oldSet := tagSet(oldTags)
	newSet := tagSet(newTags)

	seen := make(map[string]struct{})
	for _, tag := range NormalizeTags(newTags) {
		if _, ok := oldSet[tag]; ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		added = append(added, tag)
	}

	seen = make(map[string]struct{})
	for _, tag := range NormalizeTags(oldTags) {
		if _, ok := newSet[tag]; ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		removed = append(removed, tag)
	}
	return added, removed
}

// SameTagSet reports whether two tag lists hold the same set of tags,
// ignoring order, duplicates and surrounding whitespace.
func SameTagSet(a, b []string) bool {
	added, removed := TagDiff(a, b)
	return len(added) == 0 && len(removed) == 0
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range NormalizeTags(tags) {
		set[tag] = struct{}{}
	}
	return set
}
