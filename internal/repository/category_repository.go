package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"desk-planner/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) ListByDesk(ctx context.Context, deskID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("desk_id = ?", deskID).Order("title ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindInDesk returns the category only if it belongs to deskID.
func (r *CategoryRepository) FindInDesk(ctx context.Context, deskID, categoryID uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("id = ? AND desk_id = ?", categoryID, deskID).First(&category).Error; err != nil {
		return nil, translate(err, model.ErrCategoryNotFound)
	}
	return &category, nil
}

// Delete removes a category together with its tasks and their bindings.
func (r *CategoryRepository) Delete(ctx context.Context, category *model.Category) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := tx.Model(&model.Task{}).Select("id").Where("category_id = ?", category.ID)
		if err := tx.Where("task_id IN (?)", tasks).Delete(&model.TaskSchedule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", category.ID).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Category{}, category.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
