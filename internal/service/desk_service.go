package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"desk-planner/internal/logger"
	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// DeskService owns desk lookup, tenant isolation and sharing.
type DeskService struct {
	desks  *repository.DeskRepository
	users  *repository.UserRepository
	logger *zap.Logger
}

func NewDeskService(desks *repository.DeskRepository, users *repository.UserRepository, log *zap.Logger) *DeskService {
	return &DeskService{desks: desks, users: users, logger: logger.OrNop(log).Named("desks")}
}

// DeskView is a desk together with the caller's access to it.
type DeskView struct {
	Desk   model.Desk
	Access Access
}

// CreateDesk creates a desk owned by user.
func (s *DeskService) CreateDesk(ctx context.Context, user *model.User, name string) (*model.Desk, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Invalid("desk name is required")
	}
	desk := model.Desk{Name: name, UserID: user.ID}
	if err := s.desks.Create(ctx, &desk); err != nil {
		return nil, err
	}
	s.logger.Info("desk created", zap.Uint("desk_id", desk.ID), zap.String("slug", desk.Slug), zap.Uint("user_id", user.ID))
	return &desk, nil
}

// ListDesks returns the user's own desks followed by the desks shared with them.
func (s *DeskService) ListDesks(ctx context.Context, user *model.User) ([]DeskView, error) {
	owned, err := s.desks.ListOwned(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	shared, err := s.desks.ListShared(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]DeskView, 0, len(owned)+len(shared))
	for _, desk := range owned {
		views = append(views, DeskView{Desk: desk, Access: ResolvePermission(&desk, user.ID, nil)})
	}
	for _, desk := range shared {
		access, err := s.AccessFor(ctx, &desk, user)
		if err != nil {
			return nil, err
		}
		views = append(views, DeskView{Desk: desk, Access: access})
	}
	return views, nil
}

// AccessFor resolves user's access to desk.
func (s *DeskService) AccessFor(ctx context.Context, desk *model.Desk, user *model.User) (Access, error) {
	if desk.UserID == user.ID {
		return ResolvePermission(desk, user.ID, nil), nil
	}
	share, err := s.desks.FindShare(ctx, desk.ID, user.ID)
	switch {
	case err == nil:
		return ResolvePermission(desk, user.ID, share), nil
	case repository.IsNotFound(err):
		return Access{}, nil
	default:
		return Access{}, err
	}
}

// GetDeskBySlug returns the desk if the user owns it or has a share on it.
// Every other case, including a slug that exists elsewhere, is ErrDeskNotFound.
func (s *DeskService) GetDeskBySlug(ctx context.Context, slug string, user *model.User) (*model.Desk, Access, error) {
	if user == nil {
		return nil, Access{}, model.ErrDeskNotFound
	}
	desk, err := s.desks.FindBySlugForUser(ctx, slug, user.ID)
	if err != nil {
		return nil, Access{}, err
	}
	access, err := s.AccessFor(ctx, desk, user)
	if err != nil {
		return nil, Access{}, err
	}
	if !access.CanView {
		return nil, Access{}, model.ErrDeskNotFound
	}
	return desk, access, nil
}

// Resolve looks the desk up like GetDeskBySlug and then demands need.
// A desk the user can see but not act on yields model.ErrForbidden.
func (s *DeskService) Resolve(ctx context.Context, slug string, user *model.User, need Need) (*model.Desk, Access, error) {
	desk, access, err := s.GetDeskBySlug(ctx, slug, user)
	if err != nil {
		return nil, Access{}, err
	}
	if !access.Satisfies(need) {
		return nil, access, model.ErrForbidden
	}
	return desk, access, nil
}

func (s *DeskService) RenameDesk(ctx context.Context, user *model.User, slug, name string) (*model.Desk, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Invalid("desk name is required")
	}
	desk, _, err := s.Resolve(ctx, slug, user, NeedOwner)
	if err != nil {
		return nil, err
	}
	if err := s.desks.Rename(ctx, desk, name); err != nil {
		return nil, err
	}
	return desk, nil
}

func (s *DeskService) DeleteDesk(ctx context.Context, user *model.User, slug string) error {
	desk, _, err := s.Resolve(ctx, slug, user, NeedOwner)
	if err != nil {
		return err
	}
	if err := s.desks.Delete(ctx, desk); err != nil {
		return err
	}
	s.logger.Info("desk deleted", zap.Uint("desk_id", desk.ID), zap.String("slug", desk.Slug))
	return nil
}

// ShareToken returns the desk's current share token. Owner only.
func (s *DeskService) ShareToken(ctx context.Context, user *model.User, slug string) (string, error) {
	desk, _, err := s.Resolve(ctx, slug, user, NeedOwner)
	if err != nil {
		return "", err
	}
	return desk.ShareToken, nil
}

// RefreshShareToken issues a new share token, invalidating the old link.
func (s *DeskService) RefreshShareToken(ctx context.Context, user *model.User, slug string) (string, error) {
	desk, _, err := s.Resolve(ctx, slug, user, NeedOwner)
	if err != nil {
		return "", err
	}
	if err := s.desks.RotateShareToken(ctx, desk); err != nil {
		return "", err
	}
	s.logger.Info("share token rotated", zap.Uint("desk_id", desk.ID))
	return desk.ShareToken, nil
}

// AcceptShare grants user view access to the desk behind token. Owners and
// users who already hold a share keep their current level.
func (s *DeskService) AcceptShare(ctx context.Context, user *model.User, token string) (*model.Desk, error) {
	desk, err := s.desks.FindByShareToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if desk.UserID == user.ID {
		return desk, nil
	}
	if _, err := s.desks.CreateShareIfMissing(ctx, desk.ID, user.ID, model.PermissionView); err != nil {
		return nil, err
	}
	s.logger.Info("share accepted", zap.Uint("desk_id", desk.ID), zap.Uint("user_id", user.ID))
	return desk, nil
}

// ShareWithUser creates or updates target's share on desk. The owner always
// gets the owner level; anything but view or admin falls back to view.
func (s *DeskService) ShareWithUser(ctx context.Context, desk *model.Desk, target *model.User, permission model.Permission) (*model.DeskUserShare, error) {
	switch {
	case target.ID == desk.UserID:
		permission = model.PermissionOwner
	case permission != model.PermissionView && permission != model.PermissionAdmin:
		permission = model.PermissionView
	}
	return s.desks.UpsertShare(ctx, desk.ID, target.ID, permission)
}

// GrantPermission sets an existing or new share of target to view or admin. Owner only.
func (s *DeskService) GrantPermission(ctx context.Context, owner *model.User, slug string, targetID uint, permission model.Permission) (*model.DeskUserShare, error) {
	if permission != model.PermissionView && permission != model.PermissionAdmin {
		return nil, model.ErrInvalidPermission
	}
	desk, _, err := s.Resolve(ctx, slug, owner, NeedOwner)
	if err != nil {
		return nil, err
	}
	if targetID == desk.UserID {
		return nil, model.ErrOwnerPermission
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.desks.FindShare(ctx, desk.ID, target.ID); err == nil && existing.Permission == model.PermissionOwner {
		return nil, model.ErrOwnerPermission
	} else if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	share, err := s.ShareWithUser(ctx, desk, target, permission)
	if err != nil {
		return nil, err
	}
	s.logger.Info("permission updated", zap.Uint("desk_id", desk.ID), zap.Uint("user_id", target.ID), zap.String("permission", string(share.Permission)))
	return share, nil
}

// RevokeShare removes target's access. The owner cannot be removed.
func (s *DeskService) RevokeShare(ctx context.Context, owner *model.User, slug string, targetID uint) error {
	desk, _, err := s.Resolve(ctx, slug, owner, NeedOwner)
	if err != nil {
		return err
	}
	if targetID == desk.UserID {
		return model.ErrOwnerPermission
	}
	removed, err := s.desks.DeleteShare(ctx, desk.ID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrShareNotFound
	}
	return nil
}

// ListShares returns everyone but the owner who has access to the desk. Owner only.
func (s *DeskService) ListShares(ctx context.Context, owner *model.User, slug string) ([]model.DeskUserShare, error) {
	desk, _, err := s.Resolve(ctx, slug, owner, NeedOwner)
	if err != nil {
		return nil, err
	}
	return s.desks.ListShares(ctx, desk)
}
