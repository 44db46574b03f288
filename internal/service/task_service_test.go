package service

import (
	"context"
	"errors"
	"testing"

	"desk-planner/internal/model"
	"desk-planner/internal/testutil"
)

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, 1, "alice")
	desk := testutil.CreateDesk(t, f.db, alice, "Home")
	other := testutil.CreateDesk(t, f.db, alice, "Other")
	category, err := f.categories.Create(ctx, alice, desk.Slug, "Chores", "weekly stuff")
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	if _, err := f.tasks.CreateTask(ctx, alice, desk.Slug, TaskInput{CategoryID: category.ID, Title: " "}); !model.IsDomainError(err, model.ErrCodeInvalid) {
		t.Fatalf("blank title err = %v", err)
	}
	if _, err := f.tasks.CreateTask(ctx, alice, other.Slug, TaskInput{CategoryID: category.ID, Title: "x"}); !errors.Is(err, model.ErrCategoryNotFound) {
		t.Fatalf("foreign category err = %v", err)
	}

	task, err := f.tasks.CreateTask(ctx, alice, desk.Slug, TaskInput{CategoryID: category.ID, Title: "Laundry"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.IsActive {
		t.Fatalf("new task should start inactive")
	}

	toggled, err := f.tasks.ToggleTask(ctx, alice, desk.Slug, task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.IsActive || !testutil.ReloadTask(t, f.db, task.ID).IsActive {
		t.Fatalf("toggle did not activate task")
	}

	if _, err := f.tasks.GetTask(ctx, alice, other.Slug, task.ID); !errors.Is(err, model.ErrTaskNotFound) {
		t.Fatalf("task from other desk err = %v", err)
	}
	tasks, err := f.tasks.ListTasks(ctx, alice, desk.Slug)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("list = %+v, %v", tasks, err)
	}

	if err := f.tasks.DeleteTask(ctx, alice, desk.Slug, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.tasks.GetTask(ctx, alice, desk.Slug, task.ID); !errors.Is(err, model.ErrTaskNotFound) {
		t.Fatalf("deleted task err = %v", err)
	}

	if err := f.categories.Delete(ctx, alice, desk.Slug, category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	categories, err := f.categories.List(ctx, alice, desk.Slug)
	if err != nil || len(categories) != 0 {
		t.Fatalf("categories = %+v, %v", categories, err)
	}
}
