package service

import (
	"context"
	"strings"

	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	CategoryID  uint
	Title       string
	Description string
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	desks        *DeskService
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, desks *DeskService) *TaskService {
	return &TaskService{taskRepo: taskRepo, categoryRepo: categoryRepo, desks: desks}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, deskSlug string, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.Invalid("title is required")
	}
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindInDesk(ctx, desk.ID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		CategoryID:  category.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, user *model.User, deskSlug string) ([]model.Task, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedView)
	if err != nil {
		return nil, err
	}
	return s.taskRepo.ListByDesk(ctx, desk.ID)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, deskSlug string, taskID uint) (*model.Task, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedView)
	if err != nil {
		return nil, err
	}
	return s.taskRepo.FindInDesk(ctx, desk.ID, taskID)
}

// ToggleTask flips a task between active and inactive.
func (s *TaskService) ToggleTask(ctx context.Context, user *model.User, deskSlug string, taskID uint) (*model.Task, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return nil, err
	}
	task, err := s.taskRepo.FindInDesk(ctx, desk.ID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.Toggle(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task together with its schedule bindings.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, deskSlug string, taskID uint) error {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return err
	}
	task, err := s.taskRepo.FindInDesk(ctx, desk.ID, taskID)
	if err != nil {
		return err
	}
	return s.taskRepo.Delete(ctx, task)
}
