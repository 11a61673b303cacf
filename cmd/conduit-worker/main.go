// Conduit Worker — выполняет runs pipeline.
//
// Worker:
//   - Получает run.requested из RabbitMQ (и добирает PENDING через polling)
//   - Выполняет pipeline из каталога PIPELINES_DIR
//   - Повторяет runs, упавшие на retryable skill
//   - Сохраняет результат и публикует run.completed
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/repo"
	"github.com/shaiso/Conduit/internal/runner"
	"github.com/shaiso/Conduit/internal/telemetry"
	"github.com/shaiso/Conduit/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conduit-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Каталог pipeline
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	r, err := runner.NewFromEnv(metrics, logger)
	if err != nil {
		logger.Error("failed to load pipelines", "error", err)
		os.Exit(1)
	}
	logger.Info("pipelines loaded", "count", r.Catalog().Len())

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	cfg := worker.Config{
		Store:       repo.NewRunRepo(pool),
		Runner:      r,
		MaxAttempts: 3,
		Logger:      logger,
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(os.Getenv("RABBITMQ_URL"), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		cfg.Conn = mqConn
		cfg.Publisher = mq.NewPublisher(mqConn, logger, mq.DefaultSource)
	}

	w := worker.New(cfg)

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("conduit-worker stopped")
}
