package service

import (
	"context"
	"strings"

	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo  *repository.CategoryRepository
	desks *DeskService
}

func NewCategoryService(repo *repository.CategoryRepository, desks *DeskService) *CategoryService {
	return &CategoryService{repo: repo, desks: desks}
}

func (s *CategoryService) Create(ctx context.Context, user *model.User, deskSlug, title, description string) (*model.Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.Invalid("category title is required")
	}
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return nil, err
	}
	category := model.Category{DeskID: &desk.ID, Title: title, Description: strings.TrimSpace(description)}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) List(ctx context.Context, user *model.User, deskSlug string) ([]model.Category, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedView)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByDesk(ctx, desk.ID)
}

func (s *CategoryService) Delete(ctx context.Context, user *model.User, deskSlug string, categoryID uint) error {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return err
	}
	category, err := s.repo.FindInDesk(ctx, desk.ID, categoryID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, category)
}
