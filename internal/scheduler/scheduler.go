package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/flow"
	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/repo"
)

const defaultTickInterval = time.Second

// RunStore — хранилище runs, нужное планировщику. Реализуется repo.RunRepo.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByIdempotencyKey(ctx context.Context, pipeline, key string) (*domain.Run, error)
}

// RequestPublisher ставит runs в очередь. Реализуется mq.Publisher.
type RequestPublisher interface {
	PublishRunRequested(ctx context.Context, payload mq.RunRequestedPayload) error
}

// Leader — выбор лидера среди реплик. Реализуется repo.AdvisoryLock.
type Leader interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// entry — pipeline с расписанием и временем следующего запуска.
type entry struct {
	def     *flow.Definition
	sched   cron.Schedule
	nextDue time.Time
}

// Scheduler создаёт runs по cron-расписаниям из определений pipeline.
type Scheduler struct {
	store     RunStore
	publisher RequestPublisher
	leader    Leader
	logger    *slog.Logger
	interval  time.Duration

	mu      sync.Mutex
	entries []*entry
}

// Config — конфигурация Scheduler.
type Config struct {
	Catalog   *flow.Catalog
	Store     RunStore
	Publisher RequestPublisher // опционально; без него runs забирает polling воркера
	Leader    Leader           // опционально; без него каждая реплика — лидер
	Logger    *slog.Logger
	Interval  time.Duration // период тика (default: 1s)
}

// New создаёт Scheduler и регистрирует все определения с schedule.cron.
// Время первого запуска считается от now.
func New(cfg Config, now time.Time) (*Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	s := &Scheduler{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		leader:    cfg.Leader,
		logger:    logger,
		interval:  interval,
	}

	if cfg.Catalog != nil {
		for _, def := range cfg.Catalog.Scheduled() {
			if err := s.Register(def, now); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Register добавляет pipeline с расписанием.
func (s *Scheduler) Register(def *flow.Definition, now time.Time) error {
	if def.Schedule == nil || def.Schedule.Cron == "" {
		return fmt.Errorf("%w: %s has no schedule", flow.ErrInvalidSchedule, def.Name)
	}

	sched, err := flow.ParseCron(def.Schedule.Cron)
	if err != nil {
		return fmt.Errorf("%s: %w", def.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{def: def, sched: sched, nextDue: sched.Next(now)})

	s.logger.Info("pipeline scheduled",
		"pipeline", def.Name,
		"cron", def.Schedule.Cron,
		"next_due_at", sched.Next(now).UTC(),
	)
	return nil
}

// NextDue возвращает следующее время запуска pipeline.
func (s *Scheduler) NextDue(pipeline string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.def.Name == pipeline {
			return e.nextDue, true
		}
	}
	return time.Time{}, false
}

// Tick создаёт runs для всех pipeline, у которых наступило время запуска.
//
// Ключ идемпотентности "{pipeline}_{unix due time}" гарантирует один run
// на срабатывание даже при смене лидера. Ошибка одного pipeline не
// блокирует остальные.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created int
	var errs []error
	for _, e := range s.entries {
		if now.Before(e.nextDue) {
			continue
		}

		ok, err := s.fire(ctx, e)
		if err != nil {
			s.logger.Error("failed to create scheduled run", "pipeline", e.def.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			created++
		}
		e.nextDue = e.sched.Next(now)
	}

	if created > 0 {
		s.logger.Info("scheduler tick completed", "runs_created", created)
	}
	return created, errors.Join(errs...)
}

// fire создаёт run для срабатывания. false — run уже существовал.
func (s *Scheduler) fire(ctx context.Context, e *entry) (bool, error) {
	key := fmt.Sprintf("%s_%d", e.def.Name, e.nextDue.Unix())

	existing, err := s.store.GetByIdempotencyKey(ctx, e.def.Name, key)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Debug("run already exists (idempotency)",
			"pipeline", e.def.Name,
			"run_id", existing.ID,
			"idempotency_key", key,
		)
		return false, nil
	}

	run := domain.NewRun(e.def.Name, e.def.Schedule.Input)
	run.IdempotencyKey = key

	if err := s.store.Create(ctx, run); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create run: %w", err)
	}

	s.logger.Info("created run from schedule",
		"run_id", run.ID,
		"pipeline", e.def.Name,
		"idempotency_key", key,
	)

	if s.publisher != nil {
		payload := mq.RunRequestedPayload{RunID: run.ID, Pipeline: run.Pipeline}
		if err := s.publisher.PublishRunRequested(ctx, payload); err != nil {
			// Run уже в БД, воркер заберёт его через polling
			s.logger.Warn("failed to publish run.requested", "run_id", run.ID, "error", err)
		}
	}
	return true, nil
}

// Run выполняет Tick каждые Interval, пока ctx не отменён.
// При заданном Leader тикает только лидер.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.leader != nil {
		defer func() {
			if err := s.leader.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release leadership", "error", err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if !s.isLeader(ctx) {
				continue
			}
			s.Tick(ctx, t)
		}
	}
}

func (s *Scheduler) isLeader(ctx context.Context) bool {
	if s.leader == nil {
		return true
	}
	ok, err := s.leader.TryAcquire(ctx)
	if err != nil {
		s.logger.Warn("leader election failed", "error", err)
		return false
	}
	return ok
}
