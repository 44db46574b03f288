package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"desk-planner/internal/model"
)

// JobRepository is the persistent store of recurring job registrations.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Upsert registers job unless a job with the same name exists. The unique
// index on name decides the race; the stored row is returned either way.
func (r *JobRepository) Upsert(ctx context.Context, job *model.ScheduledJob) (*model.ScheduledJob, bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(job)
	if res.Error != nil {
		return nil, false, fmt.Errorf("upsert job: %w", res.Error)
	}
	stored, err := r.FindByName(ctx, job.Name)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected > 0, nil
}

func (r *JobRepository) FindByName(ctx context.Context, name string) (*model.ScheduledJob, error) {
	var job model.ScheduledJob
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&job).Error; err != nil {
		return nil, translate(err, model.ErrJobNotFound)
	}
	return &job, nil
}

func (r *JobRepository) List(ctx context.Context) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// RecordRun stamps the job's last run and counts down finite repeats. It
// returns the remaining repeats; RepeatForever jobs stay at RepeatForever.
func (r *JobRepository) RecordRun(ctx context.Context, name string, at time.Time) (int, error) {
	var remaining int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job model.ScheduledJob
		if err := tx.Where("name = ?", name).First(&job).Error; err != nil {
			return translate(err, model.ErrJobNotFound)
		}
		updates := map[string]interface{}{"last_run_at": at}
		if job.Repeats > 0 {
			job.Repeats--
			updates["repeats"] = job.Repeats
		}
		remaining = job.Repeats
		return tx.Model(&job).Updates(updates).Error
	})
	if err != nil {
		return 0, fmt.Errorf("record job run: %w", err)
	}
	return remaining, nil
}

func (r *JobRepository) Delete(ctx context.Context, name string) error {
	if err := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.ScheduledJob{}).Error; err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}
