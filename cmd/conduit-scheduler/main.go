// Conduit Scheduler — запускает pipeline по cron из их определений.
//
// Реплик может быть несколько: тикает только держатель advisory lock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conduit/internal/flow"
	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/repo"
	"github.com/shaiso/Conduit/internal/runner"
	"github.com/shaiso/Conduit/internal/scheduler"
	"github.com/shaiso/Conduit/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting conduit-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Scheduler только создаёт runs, поэтому Chain не собирается:
	// достаточно проверенного каталога.
	dir := runner.PipelinesDir()
	catalog, err := flow.LoadDir(dir, runner.DefaultBuilder(runner.PolicyFromEnv()))
	if err != nil {
		logger.Error("failed to load pipelines", "dir", dir, "error", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	cfg := scheduler.Config{
		Catalog: catalog,
		Store:   repo.NewRunRepo(pool),
		Leader:  repo.NewAdvisoryLock(pool, schedLockKey),
		Logger:  logger,
	}

	mqConn, err := mq.NewConnection(os.Getenv("RABBITMQ_URL"), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, runs will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger, mq.DefaultSource)
	}

	sched, err := scheduler.New(cfg, time.Now())
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("schedules registered", "count", len(catalog.Scheduled()))

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Блокирует до отмены ctx и отпускает lock
	sched.Run(ctx)
	logger.Info("conduit-scheduler stopped")
}
