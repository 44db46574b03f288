package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"desk-planner/internal/logger"
	"desk-planner/internal/model"
	"desk-planner/internal/repository"
)

// JobFunc is a job entry point.
type JobFunc func(ctx context.Context) error

// SchedulerOptions tunes when and how long jobs run.
type SchedulerOptions struct {
	// FireSecond is the second within the minute at which jobs fire.
	FireSecond int
	// JobTimeout bounds a single run; zero means no timeout.
	JobTimeout time.Duration
}

// SchedulerService wraps cron-based jobs backed by the persistent job store.
type SchedulerService struct {
	cron   *cron.Cron
	jobs   *repository.JobRepository
	opts   SchedulerOptions
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	entryPoints map[string]JobFunc
	entries     map[string]cron.EntryID
}

func NewSchedulerService(loc *time.Location, jobs *repository.JobRepository, log *zap.Logger, opts SchedulerOptions) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	log = logger.OrNop(log).Named("scheduler")
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		jobs:        jobs,
		opts:        opts,
		logger:      log,
		now:         time.Now,
		entryPoints: make(map[string]JobFunc),
		entries:     make(map[string]cron.EntryID),
	}
}

// RegisterEntryPoint makes fn runnable by stored jobs that name it.
func (s *SchedulerService) RegisterEntryPoint(name string, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryPoints[name] = fn
}

// EnsureScheduled registers a recurring job under name unless one exists,
// then installs it in this process at most once. Calling it again with the
// same name is a no-op. repeats is model.RepeatForever or a positive count.
func (s *SchedulerService) EnsureScheduled(ctx context.Context, name, entryPoint string, interval time.Duration, repeats int) error {
	minutes, err := intervalMinutes(interval)
	if err != nil {
		return err
	}
	if repeats == 0 || repeats < model.RepeatForever {
		return fmt.Errorf("repeats must be positive or %d, got %d", model.RepeatForever, repeats)
	}
	if !s.hasEntryPoint(entryPoint) {
		return fmt.Errorf("unknown entry point %q", entryPoint)
	}

	job, created, err := s.jobs.Upsert(ctx, &model.ScheduledJob{
		Name:            name,
		EntryPoint:      entryPoint,
		IntervalMinutes: minutes,
		Repeats:         repeats,
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("job registered", zap.String("job", name), zap.Int("interval_minutes", minutes))
	}
	return s.install(job)
}

// Sync installs every stored job whose entry point is known to this process.
func (s *SchedulerService) Sync(ctx context.Context) error {
	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return err
	}
	for i := range jobs {
		if err := s.install(&jobs[i]); err != nil {
			s.logger.Warn("skip stored job", zap.String("job", jobs[i].Name), zap.Error(err))
		}
	}
	return nil
}

// Remove uninstalls the job and deletes it from the store.
func (s *SchedulerService) Remove(ctx context.Context, name string) error {
	s.uninstall(name)
	return s.jobs.Delete(ctx, name)
}

func (s *SchedulerService) uninstall(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Installed lists the job names with a live cron entry in this process.
func (s *SchedulerService) Installed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SchedulerService) hasEntryPoint(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entryPoints[name]
	return ok
}

func (s *SchedulerService) install(job *model.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[job.Name]; ok {
		return nil
	}
	fn, ok := s.entryPoints[job.EntryPoint]
	if !ok {
		return fmt.Errorf("unknown entry point %q", job.EntryPoint)
	}
	spec, err := buildMinuteSpec(s.opts.FireSecond, job.IntervalMinutes)
	if err != nil {
		return err
	}
	name := job.Name
	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

func (s *SchedulerService) run(name string, fn JobFunc) {
	ctx := context.Background()
	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.JobTimeout)
		defer cancel()
	}

	start := s.now()
	if err := fn(ctx); err != nil {
		s.logger.Warn("job run failed", zap.String("job", name), zap.Error(err))
	}
	s.logger.Debug("job run", zap.String("job", name), zap.Duration("took", time.Since(start)))

	bookCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	remaining, err := s.jobs.RecordRun(bookCtx, name, start)
	if errors.Is(err, model.ErrJobNotFound) {
		// Deleted from the store behind our back.
		s.uninstall(name)
		s.logger.Info("job no longer stored, uninstalled", zap.String("job", name))
		return
	}
	if err != nil {
		s.logger.Warn("record job run", zap.String("job", name), zap.Error(err))
		return
	}
	if remaining == 0 {
		if err := s.Remove(bookCtx, name); err != nil {
			s.logger.Warn("remove finished job", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("job finished its repeats", zap.String("job", name))
	}
}

func intervalMinutes(interval time.Duration) (int, error) {
	if interval < time.Minute || interval%time.Minute != 0 {
		return 0, fmt.Errorf("interval must be a positive whole number of minutes, got %s", interval)
	}
	return int(interval / time.Minute), nil
}

// buildMinuteSpec fires at the given second of every n-th minute. Intervals of
// an hour or more cannot be expressed in the minute field and run "@every".
func buildMinuteSpec(second, everyMinutes int) (string, error) {
	if second < 0 || second > 59 {
		return "", fmt.Errorf("invalid second %d", second)
	}
	if everyMinutes < 1 {
		return "", fmt.Errorf("invalid minute interval %d", everyMinutes)
	}
	if everyMinutes >= 60 {
		return fmt.Sprintf("@every %dm", everyMinutes), nil
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("%d */%d * * * *", second, everyMinutes), nil
}
