package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/models"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetProfile resolves a public profile by its stable user number.
// Anonymous users expose only the handle.
func (s *UserService) GetProfile(userNumber int64) (*dto.UserResponse, error) {
	var user models.User
	if err := s.db.First(&user, "user_number = ?", userNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	profile := dto.UserResponse{
		UserNumber:  user.UserNumber,
		IsAnonymous: user.IsAnonymous,
	}
	if !user.IsAnonymous {
		profile.Name = user.Name
		profile.Image = user.Image
	}
	return &profile, nil
}

// UpdateProfile applies the fields present in the request.
func (s *UserService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		if *req.Name == "" {
			return nil, validationf("name cannot be empty")
		}
		updates["name"] = *req.Name
		user.Name = *req.Name
	}
	if req.IsAnonymous != nil {
		updates["is_anonymous"] = *req.IsAnonymous
		user.IsAnonymous = *req.IsAnonymous
	}

	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}
