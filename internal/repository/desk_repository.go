package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"desk-planner/internal/model"
)

const maxSlugAttempts = 5

// DeskRepository manages desks and their user shares.
type DeskRepository struct {
	db *gorm.DB
}

func NewDeskRepository(db *gorm.DB) *DeskRepository {
	return &DeskRepository{db: db}
}

// Create stores a new desk, deriving a unique slug from its name and issuing a
// fresh share token when they are not set.
func (r *DeskRepository) Create(ctx context.Context, desk *model.Desk) error {
	if desk.ShareToken == "" {
		desk.ShareToken = uuid.NewString()
	}
	explicitSlug := desk.Slug != ""

	db := r.db.WithContext(ctx)
	for attempt := 0; ; attempt++ {
		if !explicitSlug {
			s, err := r.uniqueSlug(ctx, desk.Name)
			if err != nil {
				return err
			}
			desk.Slug = s
		}
		err := db.Create(desk).Error
		if err == nil {
			return nil
		}
		// Another writer took the slug between the check and the insert.
		if isDuplicate(err) && !explicitSlug && attempt < maxSlugAttempts {
			desk.ID = 0
			continue
		}
		return fmt.Errorf("create desk: %w", err)
	}
}

// uniqueSlug returns base, base-1, base-2 ... whichever is free first.
func (r *DeskRepository) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "desk"
	}
	candidate := base
	for counter := 1; ; counter++ {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Desk{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

func (r *DeskRepository) FindByID(ctx context.Context, id uint) (*model.Desk, error) {
	var desk model.Desk
	if err := r.db.WithContext(ctx).First(&desk, id).Error; err != nil {
		return nil, translate(err, model.ErrDeskNotFound)
	}
	return &desk, nil
}

// FindBySlugForUser returns the desk only if userID owns it or holds a share on it.
func (r *DeskRepository) FindBySlugForUser(ctx context.Context, deskSlug string, userID uint) (*model.Desk, error) {
	db := r.db.WithContext(ctx)
	shared := db.Model(&model.DeskUserShare{}).Select("desk_id").Where("user_id = ?", userID)

	var desk model.Desk
	err := db.Where("slug = ?", deskSlug).
		Where(db.Where("user_id = ?", userID).Or("id IN (?)", shared)).
		First(&desk).Error
	if err != nil {
		return nil, translate(err, model.ErrDeskNotFound)
	}
	return &desk, nil
}

func (r *DeskRepository) FindByShareToken(ctx context.Context, token string) (*model.Desk, error) {
	var desk model.Desk
	if err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&desk).Error; err != nil {
		return nil, translate(err, model.ErrDeskNotFound)
	}
	return &desk, nil
}

// ListOwned returns desks owned by userID, newest first.
func (r *DeskRepository) ListOwned(ctx context.Context, userID uint) ([]model.Desk, error) {
	var desks []model.Desk
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&desks).Error; err != nil {
		return nil, fmt.Errorf("list owned desks: %w", err)
	}
	return desks, nil
}

// ListShared returns desks owned by someone else that userID has a share on.
func (r *DeskRepository) ListShared(ctx context.Context, userID uint) ([]model.Desk, error) {
	db := r.db.WithContext(ctx)
	shared := db.Model(&model.DeskUserShare{}).Select("desk_id").Where("user_id = ?", userID)

	var desks []model.Desk
	if err := db.Where("id IN (?) AND user_id <> ?", shared, userID).Order("created_at DESC, id DESC").Find(&desks).Error; err != nil {
		return nil, fmt.Errorf("list shared desks: %w", err)
	}
	return desks, nil
}

func (r *DeskRepository) Rename(ctx context.Context, desk *model.Desk, name string) error {
	if err := r.db.WithContext(ctx).Model(desk).Update("name", name).Error; err != nil {
		return fmt.Errorf("rename desk: %w", err)
	}
	desk.Name = name
	return nil
}

// RotateShareToken replaces the share token; links built on the old one stop working.
func (r *DeskRepository) RotateShareToken(ctx context.Context, desk *model.Desk) error {
	token := uuid.NewString()
	if err := r.db.WithContext(ctx).Model(desk).Update("share_token", token).Error; err != nil {
		return fmt.Errorf("rotate share token: %w", err)
	}
	desk.ShareToken = token
	return nil
}

// Delete removes the desk with its categories, tasks, templates and shares.
func (r *DeskRepository) Delete(ctx context.Context, desk *model.Desk) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		templates := tx.Model(&model.ScheduleTemplate{}).Select("id").Where("desk_id = ?", desk.ID)
		categories := tx.Model(&model.Category{}).Select("id").Where("desk_id = ?", desk.ID)
		tasks := tx.Model(&model.Task{}).Select("id").Where("category_id IN (?)", categories)

		steps := []struct {
			name   string
			query  *gorm.DB
			target any
		}{
			{"triggers", tx.Where("template_id IN (?)", templates), &model.TriggerMoment{}},
			{"bindings", tx.Where("template_id IN (?) OR task_id IN (?)", templates, tasks), &model.TaskSchedule{}},
			{"templates", tx.Where("desk_id = ?", desk.ID), &model.ScheduleTemplate{}},
			{"tasks", tx.Where("category_id IN (?)", categories), &model.Task{}},
			{"categories", tx.Where("desk_id = ?", desk.ID), &model.Category{}},
			{"shares", tx.Where("desk_id = ?", desk.ID), &model.DeskUserShare{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.target).Error; err != nil {
				return fmt.Errorf("delete desk %s: %w", step.name, err)
			}
		}
		return tx.Delete(&model.Desk{}, desk.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete desk: %w", err)
	}
	return nil
}

func (r *DeskRepository) FindShare(ctx context.Context, deskID, userID uint) (*model.DeskUserShare, error) {
	var share model.DeskUserShare
	err := r.db.WithContext(ctx).Where("desk_id = ? AND user_id = ?", deskID, userID).First(&share).Error
	if err != nil {
		return nil, translate(err, model.ErrShareNotFound)
	}
	return &share, nil
}

// UpsertShare creates the (desk, user) share or updates its permission in place.
func (r *DeskRepository) UpsertShare(ctx context.Context, deskID, userID uint, permission model.Permission) (*model.DeskUserShare, error) {
	share := model.DeskUserShare{DeskID: deskID, UserID: userID, Permission: permission}
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "desk_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"permission"}),
	}).Create(&share).Error
	if err != nil {
		return nil, fmt.Errorf("upsert share: %w", err)
	}
	return r.FindShare(ctx, deskID, userID)
}

// CreateShareIfMissing adds a share at permission unless one already exists,
// in which case the existing row is returned untouched.
func (r *DeskRepository) CreateShareIfMissing(ctx context.Context, deskID, userID uint, permission model.Permission) (*model.DeskUserShare, error) {
	share := model.DeskUserShare{DeskID: deskID, UserID: userID, Permission: permission}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "desk_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&share).Error
	if err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}
	return r.FindShare(ctx, deskID, userID)
}

func (r *DeskRepository) DeleteShare(ctx context.Context, deskID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("desk_id = ? AND user_id = ?", deskID, userID).Delete(&model.DeskUserShare{})
	if res.Error != nil {
		return false, fmt.Errorf("delete share: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListShares returns the shares of a desk with their users, excluding the owner.
func (r *DeskRepository) ListShares(ctx context.Context, desk *model.Desk) ([]model.DeskUserShare, error) {
	var shares []model.DeskUserShare
	err := r.db.WithContext(ctx).Preload("User").
		Where("desk_id = ? AND user_id <> ?", desk.ID, desk.UserID).
		Order("created_at ASC, id ASC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

// IsNotFound reports whether err is one of the NOT_FOUND domain errors.
func IsNotFound(err error) bool {
	return model.IsDomainError(err, model.ErrCodeNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
