package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"desk-planner/internal/model"
)

// ScheduleRepository stores schedule templates, their trigger moments and
// the bindings of templates to tasks.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) CreateTemplate(ctx context.Context, tpl *model.ScheduleTemplate) error {
	if tpl.Name == "" {
		return model.Invalid("template name is required")
	}
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) FindTemplate(ctx context.Context, id uint) (*model.ScheduleTemplate, error) {
	var tpl model.ScheduleTemplate
	if err := r.db.WithContext(ctx).First(&tpl, id).Error; err != nil {
		return nil, translate(err, model.ErrTemplateNotFound)
	}
	return &tpl, nil
}

func (r *ScheduleRepository) FindTemplateInDesk(ctx context.Context, deskID, id uint) (*model.ScheduleTemplate, error) {
	var tpl model.ScheduleTemplate
	if err := r.db.WithContext(ctx).Where("id = ? AND desk_id = ?", id, deskID).First(&tpl).Error; err != nil {
		return nil, translate(err, model.ErrTemplateNotFound)
	}
	return &tpl, nil
}

// ListTemplates returns the desk's templates with their triggers in weekly order.
func (r *ScheduleRepository) ListTemplates(ctx context.Context, deskID uint) ([]model.ScheduleTemplate, error) {
	var templates []model.ScheduleTemplate
	err := r.db.WithContext(ctx).
		Preload("Triggers", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_of_week ASC, time_of_day ASC")
		}).
		Where("desk_id = ?", deskID).
		Order("name ASC, id ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// DeleteTemplate removes the template with its triggers and bindings. Bound tasks stay.
func (r *ScheduleRepository) DeleteTemplate(ctx context.Context, tpl *model.ScheduleTemplate) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", tpl.ID).Delete(&model.TriggerMoment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", tpl.ID).Delete(&model.TaskSchedule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ScheduleTemplate{}, tpl.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// AddTrigger stores a (day, time) moment on the template. An identical moment
// already on the template yields model.ErrDuplicateTrigger and writes nothing.
func (r *ScheduleRepository) AddTrigger(ctx context.Context, templateID uint, day model.Weekday, at model.TimeOfDay) (*model.TriggerMoment, error) {
	if !day.Valid() {
		return nil, model.Invalid(fmt.Sprintf("day of week %d out of range 0..6", int(day)))
	}
	if at < 0 || at >= 24*60 {
		return nil, model.Invalid(fmt.Sprintf("time of day %d out of range", int(at)))
	}

	trigger := model.TriggerMoment{TemplateID: templateID, DayOfWeek: day, Time: at}
	err := r.db.WithContext(ctx).Create(&trigger).Error
	switch {
	case err == nil:
		return &trigger, nil
	case isDuplicate(err):
		return nil, model.ErrDuplicateTrigger
	default:
		return nil, fmt.Errorf("add trigger: %w", err)
	}
}

func (r *ScheduleRepository) RemoveTrigger(ctx context.Context, templateID, triggerID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND template_id = ?", triggerID, templateID).Delete(&model.TriggerMoment{})
	if res.Error != nil {
		return false, fmt.Errorf("remove trigger: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ScheduleRepository) ListTriggers(ctx context.Context, templateID uint) ([]model.TriggerMoment, error) {
	var triggers []model.TriggerMoment
	err := r.db.WithContext(ctx).Where("template_id = ?", templateID).
		Order("day_of_week ASC, time_of_day ASC").
		Find(&triggers).Error
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	return triggers, nil
}

// BindTask makes the (task, template) binding active, reusing an existing row.
func (r *ScheduleRepository) BindTask(ctx context.Context, taskID, templateID uint) (*model.TaskSchedule, error) {
	var binding model.TaskSchedule
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("task_id = ? AND template_id = ?", taskID, templateID).First(&binding).Error
		switch {
		case err == nil:
			if binding.IsActive() {
				return nil
			}
			binding.State = model.BindingActive
			return tx.Model(&binding).Update("state", model.BindingActive).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			binding = model.TaskSchedule{TaskID: taskID, TemplateID: templateID, State: model.BindingActive}
			return tx.Create(&binding).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bind task: %w", err)
	}
	return &binding, nil
}

// UnbindTask marks the binding inactive and reports whether one existed.
func (r *ScheduleRepository) UnbindTask(ctx context.Context, taskID, templateID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.TaskSchedule{}).
		Where("task_id = ? AND template_id = ?", taskID, templateID).
		Update("state", model.BindingInactive)
	if res.Error != nil {
		return false, fmt.Errorf("unbind task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ScheduleRepository) ListBindings(ctx context.Context, taskID uint) ([]model.TaskSchedule, error) {
	var bindings []model.TaskSchedule
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id ASC").Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	return bindings, nil
}

// MatchingTriggers returns the trigger moments stored for exactly (day, at).
func (r *ScheduleRepository) MatchingTriggers(ctx context.Context, day model.Weekday, at model.TimeOfDay) ([]model.TriggerMoment, error) {
	var triggers []model.TriggerMoment
	err := r.db.WithContext(ctx).
		Where("day_of_week = ? AND time_of_day = ?", day, at).
		Order("template_id ASC, id ASC").
		Find(&triggers).Error
	if err != nil {
		return nil, fmt.Errorf("match triggers: %w", err)
	}
	return triggers, nil
}

// ActivationFailure records a task whose activation write failed.
type ActivationFailure struct {
	Task model.Task
	Err  error
}

// ActivationReport is the outcome of one ActivatePending batch.
type ActivationReport struct {
	Activated []model.Task
	Failed    []ActivationFailure
}

// ActivatePending sets is_active on every inactive task that has an active
// binding to one of templateIDs. The batch runs in one transaction; each task
// is written under its own savepoint so a failed write is rolled back and
// reported without discarding the others. Only the is_active column changes.
func (r *ScheduleRepository) ActivatePending(ctx context.Context, templateIDs []uint) (ActivationReport, error) {
	var report ActivationReport
	if len(templateIDs) == 0 {
		return report, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound := tx.Model(&model.TaskSchedule{}).Select("task_id").
			Where("template_id IN ? AND state = ?", templateIDs, model.BindingActive)

		var tasks []model.Task
		if err := tx.Where("is_active = ? AND id IN (?)", false, bound).Order("id ASC").Find(&tasks).Error; err != nil {
			return fmt.Errorf("find pending tasks: %w", err)
		}

		for _, task := range tasks {
			var affected int64
			err := tx.Transaction(func(inner *gorm.DB) error {
				res := inner.Model(&model.Task{}).
					Where("id = ? AND is_active = ?", task.ID, false).
					UpdateColumn("is_active", true)
				affected = res.RowsAffected
				return res.Error
			})
			if err != nil {
				report.Failed = append(report.Failed, ActivationFailure{Task: task, Err: err})
				continue
			}
			if affected == 0 {
				continue
			}
			task.IsActive = true
			report.Activated = append(report.Activated, task)
		}
		return nil
	})
	if err != nil {
		return ActivationReport{}, err
	}
	return report, nil
}
