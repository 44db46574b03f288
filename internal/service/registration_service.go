package service

import (
	"context"

	"go.uber.org/zap"

	"desk-planner/internal/logger"
	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// DefaultDeskName is the name of the desk every new user starts with.
const DefaultDeskName = "My Desk"

// RegistrationService signs users up and runs the post-registration steps.
type RegistrationService struct {
	users  *repository.UserRepository
	desks  *DeskService
	logger *zap.Logger
}

func NewRegistrationService(users *repository.UserRepository, desks *DeskService, log *zap.Logger) *RegistrationService {
	return &RegistrationService{users: users, desks: desks, logger: logger.OrNop(log).Named("registration")}
}

// Register finds or creates the user for telegramID. A newly created user
// also gets a default desk and a profile. The profile is written last, so a
// user without one has not finished registration and the steps run again.
func (s *RegistrationService) Register(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, bool, error) {
	user, created, err := s.users.UpsertFromTelegram(ctx, telegramID, firstName, lastName, username)
	if err != nil {
		return nil, false, err
	}
	if !created {
		_, err := s.users.FindProfile(ctx, user.ID)
		switch {
		case err == nil:
			return user, false, nil
		case !repository.IsNotFound(err):
			return nil, false, err
		}
		s.logger.Warn("resuming unfinished registration", zap.Uint("user_id", user.ID))
	}
	if err := s.AfterRegistration(ctx, user); err != nil {
		return nil, false, model.WrapError(model.ErrCodeInternal, "finish registration", err)
	}
	if created {
		s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.Int64("telegram_id", telegramID))
	}
	return user, created, nil
}

// AfterRegistration creates the default desk unless the user already owns
// one, then the profile. Running it twice creates nothing new.
func (s *RegistrationService) AfterRegistration(ctx context.Context, user *model.User) error {
	owned, err := s.desks.desks.ListOwned(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(owned) == 0 {
		if _, err := s.desks.CreateDesk(ctx, user, DefaultDeskName); err != nil {
			return err
		}
	}
	if _, err := s.users.EnsureProfile(ctx, user.ID); err != nil {
		return err
	}
	return nil
}
