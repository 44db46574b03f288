package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// NewTestDB opens a migrated SQLite database in a temporary directory.
// It automatically closes the database when the test completes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "planner.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err != nil {
			t.Errorf("getting sql db: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})

	return db
}

// CreateUser stores a user with the given Telegram id and username.
func CreateUser(t *testing.T, db *gorm.DB, telegramID int64, username string) *model.User {
	t.Helper()
	user := model.User{TelegramID: telegramID, Username: username, FirstName: username}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

// CreateDesk stores a desk owned by owner through the repository so it gets
// a slug and a share token.
func CreateDesk(t *testing.T, db *gorm.DB, owner *model.User, name string) *model.Desk {
	t.Helper()
	desk := model.Desk{Name: name, UserID: owner.ID}
	if err := repository.NewDeskRepository(db).Create(context.Background(), &desk); err != nil {
		t.Fatalf("create desk: %v", err)
	}
	return &desk
}

// CreateCategory stores a category on desk.
func CreateCategory(t *testing.T, db *gorm.DB, desk *model.Desk, title string) *model.Category {
	t.Helper()
	category := model.Category{DeskID: &desk.ID, Title: title}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return &category
}

// CreateTask stores a task in category with the given active flag.
func CreateTask(t *testing.T, db *gorm.DB, category *model.Category, title string, active bool) *model.Task {
	t.Helper()
	task := model.Task{CategoryID: category.ID, Title: title}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	if active {
		if err := db.Model(&task).UpdateColumn("is_active", true).Error; err != nil {
			t.Fatalf("activate task: %v", err)
		}
		task.IsActive = true
	}
	return &task
}

// CreateTemplate stores a schedule template on desk owned by owner.
func CreateTemplate(t *testing.T, db *gorm.DB, owner *model.User, desk *model.Desk, name string) *model.ScheduleTemplate {
	t.Helper()
	tpl := model.ScheduleTemplate{Name: name, UserID: owner.ID, DeskID: desk.ID}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}
	return &tpl
}

// ReloadTask reads the task back from the database.
func ReloadTask(t *testing.T, db *gorm.DB, id uint) model.Task {
	t.Helper()
	var task model.Task
	if err := db.First(&task, id).Error; err != nil {
		t.Fatalf("reload task %d: %v", id, err)
	}
	return task
}
