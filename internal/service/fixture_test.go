package service

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"desk-planner/internal/repository"
	"desk-planner/internal/testutil"
)

type fixture struct {
	db *gorm.DB

	users     *repository.UserRepository
	desksRepo *repository.DeskRepository
	schedRepo *repository.ScheduleRepository
	jobs      *repository.JobRepository

	desks        *DeskService
	registration *RegistrationService
	categories   *CategoryService
	tasks        *TaskService
	schedules    *ScheduleService
	evaluator    *TriggerEvaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zaptest.NewLogger(t)

	users := repository.NewUserRepository(db)
	desksRepo := repository.NewDeskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	schedRepo := repository.NewScheduleRepository(db)

	desks := NewDeskService(desksRepo, users, log)
	return &fixture{
		db:           db,
		users:        users,
		desksRepo:    desksRepo,
		schedRepo:    schedRepo,
		jobs:         repository.NewJobRepository(db),
		desks:        desks,
		registration: NewRegistrationService(users, desks, log),
		categories:   NewCategoryService(categoryRepo, desks),
		tasks:        NewTaskService(taskRepo, categoryRepo, desks),
		schedules:    NewScheduleService(schedRepo, taskRepo, desks, log),
		evaluator:    NewTriggerEvaluator(schedRepo, time.UTC, log),
	}
}
