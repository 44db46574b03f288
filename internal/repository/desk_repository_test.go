package repository_test

import (
	"context"
	"errors"
	"testing"

	"desk-planner/internal/model"
	"desk-planner/internal/repository"
	"desk-planner/internal/testutil"
)

func TestDeskCreateAssignsUniqueSlug(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewDeskRepository(db)
	alice := testutil.CreateUser(t, db, 1, "alice")
	bob := testutil.CreateUser(t, db, 2, "bob")

	first := model.Desk{Name: "Home Chores", UserID: alice.ID}
	second := model.Desk{Name: "Home chores", UserID: bob.ID}
	third := model.Desk{Name: "!!!", UserID: bob.ID}
	for _, desk := range []*model.Desk{&first, &second, &third} {
		if err := repo.Create(ctx, desk); err != nil {
			t.Fatalf("create desk %q: %v", desk.Name, err)
		}
	}

	if first.Slug != "home-chores" {
		t.Fatalf("first slug = %q, want home-chores", first.Slug)
	}
	if second.Slug != "home-chores-1" {
		t.Fatalf("second slug = %q, want home-chores-1", second.Slug)
	}
	if third.Slug != "desk" {
		t.Fatalf("fallback slug = %q, want desk", third.Slug)
	}
	if first.ShareToken == "" || first.ShareToken == second.ShareToken {
		t.Fatalf("share tokens must be set and distinct: %q %q", first.ShareToken, second.ShareToken)
	}
}

func TestFindBySlugForUserIsolatesTenants(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewDeskRepository(db)
	alice := testutil.CreateUser(t, db, 1, "alice")
	bob := testutil.CreateUser(t, db, 2, "bob")
	desk := testutil.CreateDesk(t, db, alice, "Garden")

	if _, err := repo.FindBySlugForUser(ctx, desk.Slug, alice.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.FindBySlugForUser(ctx, desk.Slug, bob.ID); !errors.Is(err, model.ErrDeskNotFound) {
		t.Fatalf("stranger lookup err = %v, want ErrDeskNotFound", err)
	}

	if _, err := repo.CreateShareIfMissing(ctx, desk.ID, bob.ID, model.PermissionView); err != nil {
		t.Fatalf("share: %v", err)
	}
	found, err := repo.FindBySlugForUser(ctx, desk.Slug, bob.ID)
	if err != nil {
		t.Fatalf("shared lookup: %v", err)
	}
	if found.ID != desk.ID {
		t.Fatalf("found desk %d, want %d", found.ID, desk.ID)
	}

	shared, err := repo.ListShared(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list shared: %v", err)
	}
	if len(shared) != 1 || shared[0].ID != desk.ID {
		t.Fatalf("shared desks = %+v", shared)
	}
}

func TestShareUpsertKeepsOneRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewDeskRepository(db)
	alice := testutil.CreateUser(t, db, 1, "alice")
	bob := testutil.CreateUser(t, db, 2, "bob")
	desk := testutil.CreateDesk(t, db, alice, "Work")

	if _, err := repo.UpsertShare(ctx, desk.ID, bob.ID, model.PermissionView); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	share, err := repo.UpsertShare(ctx, desk.ID, bob.ID, model.PermissionAdmin)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if share.Permission != model.PermissionAdmin {
		t.Fatalf("permission = %s, want admin", share.Permission)
	}

	kept, err := repo.CreateShareIfMissing(ctx, desk.ID, bob.ID, model.PermissionView)
	if err != nil {
		t.Fatalf("create if missing: %v", err)
	}
	if kept.Permission != model.PermissionAdmin {
		t.Fatalf("existing share downgraded to %s", kept.Permission)
	}

	var count int64
	db.Model(&model.DeskUserShare{}).Where("desk_id = ? AND user_id = ?", desk.ID, bob.ID).Count(&count)
	if count != 1 {
		t.Fatalf("share rows = %d, want 1", count)
	}

	shares, err := repo.ListShares(ctx, desk)
	if err != nil {
		t.Fatalf("list shares: %v", err)
	}
	if len(shares) != 1 || shares[0].User.Username != "bob" {
		t.Fatalf("shares = %+v", shares)
	}

	removed, err := repo.DeleteShare(ctx, desk.ID, bob.ID)
	if err != nil || !removed {
		t.Fatalf("delete share = %v, %v", removed, err)
	}
	removed, err = repo.DeleteShare(ctx, desk.ID, bob.ID)
	if err != nil || removed {
		t.Fatalf("second delete share = %v, %v", removed, err)
	}
}

func TestRotateShareToken(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewDeskRepository(db)
	alice := testutil.CreateUser(t, db, 1, "alice")
	desk := testutil.CreateDesk(t, db, alice, "Trips")
	old := desk.ShareToken

	if err := repo.RotateShareToken(ctx, desk); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if desk.ShareToken == old {
		t.Fatalf("token not rotated")
	}
	if _, err := repo.FindByShareToken(ctx, old); !errors.Is(err, model.ErrDeskNotFound) {
		t.Fatalf("old token err = %v, want ErrDeskNotFound", err)
	}
	found, err := repo.FindByShareToken(ctx, desk.ShareToken)
	if err != nil || found.ID != desk.ID {
		t.Fatalf("new token lookup = %+v, %v", found, err)
	}
}

func TestDeskDeleteRemovesContents(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewDeskRepository(db)
	schedules := repository.NewScheduleRepository(db)
	alice := testutil.CreateUser(t, db, 1, "alice")
	bob := testutil.CreateUser(t, db, 2, "bob")
	desk := testutil.CreateDesk(t, db, alice, "Old")
	other := testutil.CreateDesk(t, db, alice, "Keep")

	category := testutil.CreateCategory(t, db, desk, "Errands")
	task := testutil.CreateTask(t, db, category, "Buy milk", false)
	tpl := testutil.CreateTemplate(t, db, alice, desk, "Mornings")
	if _, err := schedules.AddTrigger(ctx, tpl.ID, model.Monday, 9*60); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if _, err := schedules.BindTask(ctx, task.ID, tpl.ID); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, err := repo.CreateShareIfMissing(ctx, desk.ID, bob.ID, model.PermissionView); err != nil {
		t.Fatalf("share: %v", err)
	}
	keptCategory := testutil.CreateCategory(t, db, other, "Keep")
	testutil.CreateTask(t, db, keptCategory, "Stay", false)

	if err := repo.Delete(ctx, desk); err != nil {
		t.Fatalf("delete desk: %v", err)
	}

	counts := []struct {
		name  string
		model any
		want  int64
	}{
		{"desks", &model.Desk{}, 1},
		{"categories", &model.Category{}, 1},
		{"tasks", &model.Task{}, 1},
		{"templates", &model.ScheduleTemplate{}, 0},
		{"triggers", &model.TriggerMoment{}, 0},
		{"bindings", &model.TaskSchedule{}, 0},
		{"shares", &model.DeskUserShare{}, 0},
	}
	for _, c := range counts {
		var got int64
		if err := db.Model(c.model).Count(&got).Error; err != nil {
			t.Fatalf("count %s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s = %d, want %d", c.name, got, c.want)
		}
	}
}
