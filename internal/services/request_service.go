package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/cache"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/models"
	"github.com/theobourgeois/vexilo/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxPendingPerUser is the only submission throttle: a user with this
// many pending requests is rejected until one is resolved.
const MaxPendingPerUser = 100

// RequestService runs the moderation workflow: a user submission
// creates a pending FlagRequest; an admin decision consumes it,
// mutating the flag table, tag ledger, leaderboard and cache as one
// transaction. Requests are terminal after the decision.
type RequestService struct {
	db      *gorm.DB
	storage *storage.Client
	cache   *cache.Cache
	tags    TagLedger
	board   *LeaderboardService
}

func NewRequestService(db *gorm.DB, st *storage.Client, c *cache.Cache, board *LeaderboardService) *RequestService {
	return &RequestService{db: db, storage: st, cache: c, board: board}
}

// Submit creates a pending request. Inline image payloads are uploaded
// to object storage first so the database never holds binary data; for
// edits, the published fields are snapshotted so approval can tell
// which fields the proposal actually changed.
func (s *RequestService) Submit(ctx context.Context, userID uuid.UUID, input *dto.SubmitFlagRequest) (*models.FlagRequest, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	var pending int64
	err := s.db.Model(&models.FlagRequest{}).
		Where("user_id = ? AND status = ?", userID, models.RequestStatusPending).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending >= MaxPendingPerUser {
		return nil, validationf("you have %d pending requests; wait for them to be reviewed", pending)
	}

	if input.Name == "" {
		return nil, validationf("flag name is required")
	}
	if input.Image == "" {
		return nil, validationf("flag image is required")
	}
	if err := validateLink(input.Link); err != nil {
		return nil, err
	}

	image := input.Image
	if storage.IsDataURI(image) {
		data, contentType, ext, err := storage.DecodeDataURI(image)
		if err != nil {
			return nil, validationf("invalid image payload: %v", err)
		}
		uploaded, err := s.storage.PutObject(ctx, data, storage.NewKey(ext), contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		image = uploaded
	}

	request := models.FlagRequest{
		UserID:      userID,
		Name:        input.Name,
		Image:       image,
		Link:        input.Link,
		Description: input.Description,
		Tags:        datatypes.JSONSlice[string](NormalizeTags(input.Tags)),
		Message:     input.Message,
		Status:      models.RequestStatusPending,
	}

	if input.FlagID != nil {
		var flag models.Flag
		if err := s.db.First(&flag, "id = ?", *input.FlagID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}

		snapshot := models.FlagSnapshot{
			Name:        flag.Name,
			Image:       flag.Image,
			Link:        flag.Link,
			Description: flag.Description,
			Tags:        flag.Tags,
		}
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot flag: %w", err)
		}

		request.FlagID = input.FlagID
		request.OldFlag = datatypes.JSON(raw)
		request.IsEdit = true
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&request).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Approve resolves a pending request. The request row is locked for
// the duration of the transaction, so a second concurrent approval
// observes the terminal state and reports not-found — one request can
// never produce two flags.
func (s *RequestService) Approve(ctx context.Context, requestID uuid.UUID) (*models.FlagRequest, error) {
	var request models.FlagRequest
	var staleImage string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockPendingRequest(tx, requestID, &request); err != nil {
			return err
		}
		if request.FlagID == nil {
			return s.approveNew(tx, &request)
		}
		return s.approveEdit(tx, &request, &staleImage)
	})
	if err != nil {
		return nil, err
	}

	if request.IsEdit {
		s.cache.Invalidate(cache.WriteFlagEdited, cache.WriteTagsChanged, cache.WriteLeaderboardCredited)
	} else {
		s.cache.Invalidate(cache.WriteFlagPublished, cache.WriteTagsChanged, cache.WriteLeaderboardCredited)
	}

	// Superseded image is removed only after the commit that stopped
	// referencing it.
	if staleImage != "" {
		s.deleteHosted(ctx, staleImage)
	}
	return &request, nil
}

func (s *RequestService) approveNew(tx *gorm.DB, request *models.FlagRequest) error {
	// Computed inside the transaction; the partial unique index on live
	// display indices rejects the loser if two approvals race to the
	// same value.
	var next int
	err := tx.Model(&models.Flag{}).
		Select("COALESCE(MAX(display_index) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		return err
	}

	flag := models.Flag{
		Name:         request.Name,
		Image:        request.Image,
		Link:         request.Link,
		Description:  request.Description,
		DisplayIndex: next,
		Tags:         request.Tags,
	}
	if err := tx.Create(&flag).Error; err != nil {
		return err
	}

	for _, tag := range flag.Tags {
		if err := s.tags.Increment(tx, tag); err != nil {
			return err
		}
	}

	if err := s.board.RecordContribution(tx, request.UserID); err != nil {
		return err
	}

	err = tx.Model(request).Updates(map[string]interface{}{
		"status":  models.RequestStatusApproved,
		"flag_id": flag.ID,
	}).Error
	if err != nil {
		return err
	}

	request.Status = models.RequestStatusApproved
	request.FlagID = &flag.ID
	slog.Info("flag request approved", "request_id", request.ID, "flag_id", flag.ID, "index", next)
	return nil
}

func (s *RequestService) approveEdit(tx *gorm.DB, request *models.FlagRequest, staleImage *string) error {
	var flag models.Flag
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&flag, "id = ?", *request.FlagID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var snapshot models.FlagSnapshot
	if len(request.OldFlag) > 0 {
		if err := json.Unmarshal(request.OldFlag, &snapshot); err != nil {
			return fmt.Errorf("failed to decode flag snapshot: %w", err)
		}
	}

	// A field is applied only when the proposal differs from the
	// snapshot taken at submission. An edit that touched one field
	// must not revert concurrent changes to the others.
	updates := make(map[string]interface{})
	if request.Name != snapshot.Name {
		updates["name"] = request.Name
	}
	if request.Link != snapshot.Link {
		updates["link"] = request.Link
	}
	if request.Description != snapshot.Description {
		updates["description"] = request.Description
	}
	if request.Image != snapshot.Image {
		updates["image"] = request.Image
		if flag.Image != request.Image && s.storage.Hosted(flag.Image) {
			*staleImage = flag.Image
		}
	}

	if !SameTagSet(request.Tags, flag.Tags) {
		updates["tags"] = datatypes.JSONSlice[string](NormalizeTags(request.Tags))
		if err := s.tags.Reconcile(tx, flag.Tags, request.Tags); err != nil {
			return err
		}
	}

	if len(updates) > 0 {
		if err := tx.Model(&flag).Updates(updates).Error; err != nil {
			return err
		}
	}

	if err := s.board.RecordContribution(tx, request.UserID); err != nil {
		return err
	}

	err = tx.Model(request).Updates(map[string]interface{}{
		"status":  models.RequestStatusApproved,
		"is_edit": true,
	}).Error
	if err != nil {
		return err
	}

	request.Status = models.RequestStatusApproved
	request.IsEdit = true
	slog.Info("flag edit approved", "request_id", request.ID, "flag_id", flag.ID, "fields", len(updates))
	return nil
}

// Decline marks a pending request declined. New-flag declines clean up
// the uploaded image (nothing else references it); edit declines leave
// the published flag and its image untouched.
func (s *RequestService) Decline(ctx context.Context, requestID uuid.UUID) (*models.FlagRequest, error) {
	var request models.FlagRequest
	var orphanImage string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockPendingRequest(tx, requestID, &request); err != nil {
			return err
		}

		if request.FlagID == nil && s.storage.Hosted(request.Image) {
			orphanImage = request.Image
		}

		if err := tx.Model(&request).Update("status", models.RequestStatusDeclined).Error; err != nil {
			return err
		}
		request.Status = models.RequestStatusDeclined
		return nil
	})
	if err != nil {
		return nil, err
	}

	if orphanImage != "" {
		s.deleteHosted(ctx, orphanImage)
	}
	slog.Info("flag request declined", "request_id", request.ID)
	return &request, nil
}

// Withdraw lets the proposer delete their own still-pending request.
// Uploaded images are cleaned up like a decline.
func (s *RequestService) Withdraw(ctx context.Context, userID, requestID uuid.UUID) error {
	var orphanImage string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var request models.FlagRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ? AND status = ?", requestID, userID, models.RequestStatusPending).
			First(&request).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if !request.IsEdit && s.storage.Hosted(request.Image) {
			orphanImage = request.Image
		}
		return tx.Delete(&request).Error
	})
	if err != nil {
		return err
	}

	if orphanImage != "" {
		s.deleteHosted(ctx, orphanImage)
	}
	return nil
}

// ListPending returns the admin moderation queue, oldest first.
func (s *RequestService) ListPending(page, limit int) ([]models.FlagRequest, int64, error) {
	var requests []models.FlagRequest
	var total int64

	offset := (page - 1) * limit

	query := s.db.Model(&models.FlagRequest{}).Where("status = ?", models.RequestStatusPending)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("User").
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&requests).Error
	return requests, total, err
}

// ListByUser returns a user's own requests in every state, newest first.
func (s *RequestService) ListByUser(userID uuid.UUID, page, limit int) ([]models.FlagRequest, int64, error) {
	var requests []models.FlagRequest
	var total int64

	offset := (page - 1) * limit

	query := s.db.Model(&models.FlagRequest{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&requests).Error
	return requests, total, err
}

func lockPendingRequest(tx *gorm.DB, requestID uuid.UUID, out *models.FlagRequest) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
		First(out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *RequestService) deleteHosted(ctx context.Context, imageURL string) {
	key, err := s.storage.URLToKey(imageURL)
	if err != nil {
		return
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		slog.Error("failed to delete stored image", "error", err, "key", key)
	}
}

func validateLink(link string) error {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return validationf("source link must be an absolute http(s) URL")
	}
	return nil
}
