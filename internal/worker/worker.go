package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/runner"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
	defaultRetryDelay   = time.Second
	maxRetryDelay       = time.Minute
)

// RunStore — хранилище runs, нужное воркеру. Реализуется repo.RunRepo.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	Claim(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	ListPending(ctx context.Context, limit int) ([]domain.Run, error)
}

// CompletionPublisher публикует события о завершении runs.
// Реализуется mq.Publisher.
type CompletionPublisher interface {
	PublishRunCompleted(ctx context.Context, payload mq.RunCompletedPayload) error
}

// Worker выполняет runs.
//
// Worker — stateless компонент, который:
//   - Получает события conduit.run.requested из очереди runs.requested
//   - Периодически проверяет PENDING runs в БД (polling fallback)
//   - Забирает run (PENDING → RUNNING) и выполняет pipeline через Runner
//   - Повторяет run при retryable ошибке skill
//   - Сохраняет итог и публикует conduit.run.completed
//
// Несколько экземпляров могут потреблять из одной очереди: Claim
// гарантирует, что run выполнит только один из них.
type Worker struct {
	store     RunStore
	publisher CompletionPublisher
	conn      *mq.Connection
	runner    *runner.Runner

	consumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	retryDelay   time.Duration

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Store  RunStore
	Runner *runner.Runner

	// MQ (опционально; без Conn работает только polling)
	Publisher CompletionPublisher
	Conn      *mq.Connection

	PollInterval time.Duration // default: 10s
	BatchSize    int           // default: 50

	// MaxAttempts — попытки выполнения run с retryable ошибкой (default: 1).
	MaxAttempts int
	// RetryDelay — начальная задержка между попытками, удваивается (default: 1s).
	RetryDelay time.Duration

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		store:        cfg.Store,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		runner:       cfg.Runner,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		retryDelay:   retryDelay,
		logger:       logger,
	}
}

// Start запускает consumer runs.requested (если есть соединение)
// и polling горутину.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"max_attempts", w.maxAttempts,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueRunsRequested,
			Handler:  w.handleRunRequested,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("run consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущих runs.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Подхватываем runs, созданные пока воркер был выключен
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	runs, err := w.store.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list pending runs", "error", err)
		return
	}
	if len(runs) == 0 {
		return
	}

	w.logger.Debug("poll found pending runs", "count", len(runs))

	for i := range runs {
		if ctx.Err() != nil {
			return
		}
		if err := w.ProcessRun(ctx, runs[i].ID); err != nil && !isSkippable(err) {
			w.logger.Error("failed to process run from poll",
				"run_id", runs[i].ID,
				"error", err,
			)
		}
	}
}
