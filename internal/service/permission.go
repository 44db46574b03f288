package service

import "desk-planner/internal/model"

// Access is what a user may do on one desk.
type Access struct {
	CanView bool
	CanEdit bool
	IsAdmin bool
	IsOwner bool
}

// ResolvePermission computes userID's access to desk from ownership and the
// user's share on it (nil when there is none). It has no side effects.
func ResolvePermission(desk *model.Desk, userID uint, share *model.DeskUserShare) Access {
	if desk == nil {
		return Access{}
	}
	if desk.UserID == userID {
		return Access{CanView: true, CanEdit: true, IsAdmin: true, IsOwner: true}
	}
	if share == nil || share.DeskID != desk.ID || share.UserID != userID {
		return Access{}
	}
	switch share.Permission {
	case model.PermissionAdmin, model.PermissionOwner:
		return Access{CanView: true, CanEdit: true, IsAdmin: true}
	case model.PermissionView:
		return Access{CanView: true}
	default:
		return Access{}
	}
}

// Need is the minimum access an operation requires.
type Need int

const (
	NeedView Need = iota
	NeedEdit
	NeedOwner
)

func (a Access) Satisfies(need Need) bool {
	switch need {
	case NeedView:
		return a.CanView
	case NeedEdit:
		return a.CanEdit
	case NeedOwner:
		return a.IsOwner
	}
	return false
}
