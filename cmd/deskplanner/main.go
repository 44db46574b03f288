package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"desk-planner/internal/bot"
	"desk-planner/internal/config"
	"desk-planner/internal/logger"
	"desk-planner/internal/repository"
	"desk-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	defer func() { _ = lg.Sync() }()

	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, lg)
	if err != nil {
		lg.Fatal("open database", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	deskRepo := repository.NewDeskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	jobRepo := repository.NewJobRepository(db)

	deskSvc := service.NewDeskService(deskRepo, userRepo, lg)
	registrationSvc := service.NewRegistrationService(userRepo, deskSvc, lg)
	categorySvc := service.NewCategoryService(categoryRepo, deskSvc)
	taskSvc := service.NewTaskService(taskRepo, categoryRepo, deskSvc)
	scheduleSvc := service.NewScheduleService(scheduleRepo, taskRepo, deskSvc, lg)

	scheduler := service.NewSchedulerService(loc, jobRepo, lg, service.SchedulerOptions{
		FireSecond: cfg.Trigger.Second,
		JobTimeout: cfg.Trigger.TickTimeout,
	})
	evaluator := service.NewTriggerEvaluator(scheduleRepo, loc, lg)
	evaluator.Install(ctx, scheduler, cfg.Trigger.JobName, cfg.Trigger.Interval)
	if err := scheduler.Sync(ctx); err != nil {
		lg.Warn("sync stored jobs", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	lg.Info("desk planner started",
		zap.String("timezone", loc.String()),
		zap.Strings("jobs", scheduler.Installed()),
	)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Telegram.Token != "" {
		handler := bot.NewHandler(bot.Deps{
			Registration: registrationSvc,
			Users:        userRepo,
			Desks:        deskSvc,
			Categories:   categorySvc,
			Tasks:        taskSvc,
			Schedules:    scheduleSvc,
		}, lg)
		telegramBot, err := bot.New(cfg.Telegram.Token, handler, cfg.Telegram.RatePerSec, lg)
		if err != nil {
			lg.Fatal("create bot", zap.Error(err))
		}
		g.Go(func() error {
			return telegramBot.Start(gctx)
		})
	} else {
		lg.Info("TELEGRAM_TOKEN is empty, chat front end disabled")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("stopped with error", zap.Error(err))
	}
	lg.Info("shutdown complete")
}
