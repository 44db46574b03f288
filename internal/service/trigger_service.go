package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"desk-planner/internal/logger"
	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// TriggerEntryPoint is the job entry point name of the trigger evaluator.
const TriggerEntryPoint = "schedule.check_triggers"

// TriggerEvaluator activates the tasks bound to templates that have a trigger
// moment at the current minute.
type TriggerEvaluator struct {
	schedules *repository.ScheduleRepository
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewTriggerEvaluator(schedules *repository.ScheduleRepository, loc *time.Location, log *zap.Logger) *TriggerEvaluator {
	if loc == nil {
		loc = time.Local
	}
	return &TriggerEvaluator{
		schedules: schedules,
		loc:       loc,
		now:       time.Now,
		logger:    logger.OrNop(log).Named("triggers"),
	}
}

// TickResult describes one evaluation.
type TickResult struct {
	At        time.Time
	Day       model.Weekday
	Time      model.TimeOfDay
	Triggers  int
	Templates []uint
	Activated []model.Task
	Failed    []repository.ActivationFailure
}

// Run evaluates the current wall-clock minute. Errors are logged and absorbed;
// state is untouched on failure so the next tick retries naturally.
func (e *TriggerEvaluator) Run(ctx context.Context) error {
	res, err := e.Evaluate(ctx, e.now())
	if err != nil {
		e.logger.Error("trigger check failed",
			zap.Time("at", res.At),
			zap.Stringer("day", res.Day),
			zap.Stringer("time", res.Time),
			zap.Error(err),
		)
	}
	return nil
}

// Evaluate matches trigger moments against now, truncated to the minute in
// the configured location, and activates every inactive task bound through an
// active binding to a matching template. Re-running it for the same minute
// writes nothing because already active tasks are skipped.
func (e *TriggerEvaluator) Evaluate(ctx context.Context, now time.Time) (TickResult, error) {
	local := now.In(e.loc)
	res := TickResult{
		At:   local.Truncate(time.Minute),
		Day:  model.WeekdayOf(local),
		Time: model.TimeOfDayOf(local),
	}

	triggers, err := e.schedules.MatchingTriggers(ctx, res.Day, res.Time)
	if err != nil {
		return res, err
	}
	res.Triggers = len(triggers)

	e.logger.Info("checking triggers",
		zap.Time("at", local),
		zap.Stringer("day", res.Day),
		zap.Stringer("time", res.Time),
		zap.Int("matched", res.Triggers),
	)
	if len(triggers) == 0 {
		return res, nil
	}

	res.Templates = distinctTemplates(triggers)
	report, err := e.schedules.ActivatePending(ctx, res.Templates)
	if err != nil {
		return res, fmt.Errorf("activate tasks: %w", err)
	}
	res.Activated = report.Activated
	res.Failed = report.Failed

	for _, task := range report.Activated {
		e.logger.Info("task activated", zap.Uint("task_id", task.ID), zap.String("title", task.Title))
	}
	for _, failure := range report.Failed {
		e.logger.Warn("task activation failed", zap.Uint("task_id", failure.Task.ID), zap.Error(failure.Err))
	}
	if len(report.Activated) > 0 || len(report.Failed) > 0 {
		e.logger.Info("trigger check done",
			zap.Int("activated", len(report.Activated)),
			zap.Int("failed", len(report.Failed)),
		)
	}
	return res, nil
}

func distinctTemplates(triggers []model.TriggerMoment) []uint {
	seen := make(map[uint]struct{}, len(triggers))
	ids := make([]uint, 0, len(triggers))
	for _, t := range triggers {
		if _, ok := seen[t.TemplateID]; ok {
			continue
		}
		seen[t.TemplateID] = struct{}{}
		ids = append(ids, t.TemplateID)
	}
	return ids
}

// Install registers the evaluator as an entry point and makes sure a
// recurring job named jobName runs it every interval. Failures are logged as
// warnings and reported through the return value; they never stop start-up.
func (e *TriggerEvaluator) Install(ctx context.Context, scheduler *SchedulerService, jobName string, interval time.Duration) bool {
	scheduler.RegisterEntryPoint(TriggerEntryPoint, e.Run)
	if err := scheduler.EnsureScheduled(ctx, jobName, TriggerEntryPoint, interval, model.RepeatForever); err != nil {
		e.logger.Warn("could not set up scheduled trigger check", zap.String("job", jobName), zap.Error(err))
		return false
	}
	return true
}
