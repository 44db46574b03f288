package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"desk-planner/internal/logger"
	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// ScheduleService exposes the schedule definition store behind desk permissions.
type ScheduleService struct {
	schedules *repository.ScheduleRepository
	tasks     *repository.TaskRepository
	desks     *DeskService
	logger    *zap.Logger
}

func NewScheduleService(schedules *repository.ScheduleRepository, tasks *repository.TaskRepository, desks *DeskService, log *zap.Logger) *ScheduleService {
	return &ScheduleService{schedules: schedules, tasks: tasks, desks: desks, logger: logger.OrNop(log).Named("schedules")}
}

func (s *ScheduleService) CreateTemplate(ctx context.Context, user *model.User, deskSlug, name string) (*model.ScheduleTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Invalid("template name is required")
	}
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return nil, err
	}
	tpl := model.ScheduleTemplate{Name: name, UserID: user.ID, DeskID: desk.ID}
	if err := s.schedules.CreateTemplate(ctx, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *ScheduleService) ListTemplates(ctx context.Context, user *model.User, deskSlug string) ([]model.ScheduleTemplate, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedView)
	if err != nil {
		return nil, err
	}
	return s.schedules.ListTemplates(ctx, desk.ID)
}

func (s *ScheduleService) DeleteTemplate(ctx context.Context, user *model.User, deskSlug string, templateID uint) error {
	tpl, err := s.editableTemplate(ctx, user, deskSlug, templateID)
	if err != nil {
		return err
	}
	return s.schedules.DeleteTemplate(ctx, tpl)
}

// AddTrigger adds a weekly (day, time) moment to a template. A moment already
// on the template is reported as model.ErrDuplicateTrigger.
func (s *ScheduleService) AddTrigger(ctx context.Context, user *model.User, deskSlug string, templateID uint, day model.Weekday, at model.TimeOfDay) (*model.TriggerMoment, error) {
	tpl, err := s.editableTemplate(ctx, user, deskSlug, templateID)
	if err != nil {
		return nil, err
	}
	trigger, err := s.schedules.AddTrigger(ctx, tpl.ID, day, at)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("trigger added", zap.Uint("template_id", tpl.ID), zap.Stringer("day", day), zap.Stringer("time", at))
	return trigger, nil
}

func (s *ScheduleService) RemoveTrigger(ctx context.Context, user *model.User, deskSlug string, templateID, triggerID uint) error {
	tpl, err := s.editableTemplate(ctx, user, deskSlug, templateID)
	if err != nil {
		return err
	}
	removed, err := s.schedules.RemoveTrigger(ctx, tpl.ID, triggerID)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrTriggerNotFound
	}
	return nil
}

// BindTask applies a template to a task of the same desk.
func (s *ScheduleService) BindTask(ctx context.Context, user *model.User, deskSlug string, taskID, templateID uint) (*model.TaskSchedule, error) {
	tpl, task, err := s.editablePair(ctx, user, deskSlug, taskID, templateID)
	if err != nil {
		return nil, err
	}
	return s.schedules.BindTask(ctx, task.ID, tpl.ID)
}

// UnbindTask deactivates the binding and reports whether one existed.
func (s *ScheduleService) UnbindTask(ctx context.Context, user *model.User, deskSlug string, taskID, templateID uint) (bool, error) {
	tpl, task, err := s.editablePair(ctx, user, deskSlug, taskID, templateID)
	if err != nil {
		return false, err
	}
	return s.schedules.UnbindTask(ctx, task.ID, tpl.ID)
}

func (s *ScheduleService) ListBindings(ctx context.Context, user *model.User, deskSlug string, taskID uint) ([]model.TaskSchedule, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedView)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.FindInDesk(ctx, desk.ID, taskID)
	if err != nil {
		return nil, err
	}
	return s.schedules.ListBindings(ctx, task.ID)
}

func (s *ScheduleService) editableTemplate(ctx context.Context, user *model.User, deskSlug string, templateID uint) (*model.ScheduleTemplate, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return nil, err
	}
	return s.schedules.FindTemplateInDesk(ctx, desk.ID, templateID)
}

func (s *ScheduleService) editablePair(ctx context.Context, user *model.User, deskSlug string, taskID, templateID uint) (*model.ScheduleTemplate, *model.Task, error) {
	desk, _, err := s.desks.Resolve(ctx, deskSlug, user, NeedEdit)
	if err != nil {
		return nil, nil, err
	}
	task, err := s.tasks.FindInDesk(ctx, desk.ID, taskID)
	if err != nil {
		return nil, nil, err
	}
	// Templates of other desks are reported as missing, like foreign desks.
	tpl, err := s.schedules.FindTemplateInDesk(ctx, desk.ID, templateID)
	if err != nil {
		return nil, nil, err
	}
	return tpl, task, nil
}
