package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"desk-planner/internal/model"
)

// UserRepository handles CRUD for users and their profiles.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram finds or creates a user based on TelegramID and updates basic profile info.
// The returned flag reports whether the user was created by this call.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, bool, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("update user: %w", err)
		}
		user.FirstName, user.LastName, user.Username = firstName, lastName, username
		return &user, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		return &user, true, nil
	default:
		return nil, false, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return &user, nil
}

// FindByUsername returns the user holding username. Telegram usernames can
// move between accounts, so the most recently refreshed row wins.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("updated_at DESC, id DESC").
		Take(&user).Error
	if err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return &user, nil
}

// EnsureProfile creates the user's profile if it does not exist yet.
func (r *UserRepository) EnsureProfile(ctx context.Context, userID uint) (*model.Profile, error) {
	profile := model.Profile{UserID: userID}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).FirstOrCreate(&profile).Error; err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return &profile, nil
}

func (r *UserRepository) FindProfile(ctx context.Context, userID uint) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return &profile, nil
}
