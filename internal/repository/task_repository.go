package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"desk-planner/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) inDesk(db *gorm.DB, deskID uint) *gorm.DB {
	categories := db.Model(&model.Category{}).Select("id").Where("desk_id = ?", deskID)
	return db.Where("category_id IN (?)", categories)
}

// ListByDesk returns every task of the desk, grouped by category.
func (r *TaskRepository) ListByDesk(ctx context.Context, deskID uint) ([]model.Task, error) {
	db := r.db.WithContext(ctx)
	var tasks []model.Task
	if err := r.inDesk(db, deskID).Order("category_id ASC, created_at ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindInDesk returns the task only if its category belongs to deskID.
func (r *TaskRepository) FindInDesk(ctx context.Context, deskID, taskID uint) (*model.Task, error) {
	db := r.db.WithContext(ctx)
	var task model.Task
	if err := r.inDesk(db, deskID).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, translate(err, model.ErrTaskNotFound)
	}
	return &task, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, translate(err, model.ErrTaskNotFound)
	}
	return &task, nil
}

// Toggle flips the task's active flag and returns the stored value.
func (r *TaskRepository) Toggle(ctx context.Context, task *model.Task) error {
	task.IsActive = !task.IsActive
	if err := r.db.WithContext(ctx).Model(task).Update("is_active", task.IsActive).Error; err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}
	return nil
}

// Delete removes a task and its schedule bindings.
func (r *TaskRepository) Delete(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&model.TaskSchedule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, task.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
