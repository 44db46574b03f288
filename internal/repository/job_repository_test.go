package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"desk-planner/internal/model"
	"desk-planner/internal/repository"
	"desk-planner/internal/testutil"
)

func TestJobUpsertIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewJobRepository(db)

	first, created, err := repo.Upsert(ctx, &model.ScheduledJob{Name: "check_schedule_triggers", EntryPoint: "a", IntervalMinutes: 1, Repeats: model.RepeatForever})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Fatalf("first upsert should create")
	}

	second, created, err := repo.Upsert(ctx, &model.ScheduledJob{Name: "check_schedule_triggers", EntryPoint: "b", IntervalMinutes: 5, Repeats: 3})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatalf("second upsert should not create")
	}
	if second.ID != first.ID || second.EntryPoint != "a" || second.IntervalMinutes != 1 {
		t.Fatalf("second upsert changed the stored job: %+v", second)
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
}

func TestRecordRunCountsDownRepeats(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewJobRepository(db)
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	if _, _, err := repo.Upsert(ctx, &model.ScheduledJob{Name: "twice", EntryPoint: "x", IntervalMinutes: 1, Repeats: 2}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, _, err := repo.Upsert(ctx, &model.ScheduledJob{Name: "forever", EntryPoint: "x", IntervalMinutes: 1, Repeats: model.RepeatForever}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for i, want := range []int{1, 0} {
		remaining, err := repo.RecordRun(ctx, "twice", at)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if remaining != want {
			t.Fatalf("run %d remaining = %d, want %d", i, remaining, want)
		}
	}

	remaining, err := repo.RecordRun(ctx, "forever", at)
	if err != nil {
		t.Fatalf("record forever: %v", err)
	}
	if remaining != model.RepeatForever {
		t.Fatalf("forever remaining = %d", remaining)
	}
	job, err := repo.FindByName(ctx, "forever")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if job.LastRunAt == nil || !job.LastRunAt.Equal(at) {
		t.Fatalf("last run = %v, want %v", job.LastRunAt, at)
	}

	if _, err := repo.RecordRun(ctx, "missing", at); !errors.Is(err, model.ErrJobNotFound) {
		t.Fatalf("missing job err = %v, want ErrJobNotFound", err)
	}

	if err := repo.Delete(ctx, "twice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Name != "forever" {
		t.Fatalf("jobs = %+v", jobs)
	}
}
