package runner

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/shaiso/Conduit/internal/flow"
	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/steps"
	"github.com/shaiso/Conduit/internal/telemetry"
)

// DefaultPipelinesDir — каталог определений для локальной разработки.
const DefaultPipelinesDir = "pipelines"

// PipelinesDir возвращает каталог определений из PIPELINES_DIR.
func PipelinesDir() string {
	if dir := os.Getenv("PIPELINES_DIR"); dir != "" {
		return dir
	}
	return DefaultPipelinesDir
}

// PolicyFromEnv собирает политику skill из POLICY_ALLOW_NETWORK и
// POLICY_ALLOW_FILESYSTEM. По умолчанию всё запрещено.
func PolicyFromEnv() skill.CapabilityPolicy {
	return skill.CapabilityPolicy{
		AllowNetwork:    envBool("POLICY_ALLOW_NETWORK"),
		AllowFilesystem: envBool("POLICY_ALLOW_FILESYSTEM"),
	}
}

// TimeoutFromEnv читает RUN_TIMEOUT ("30s", "5m"). 0 — без ограничения.
func TimeoutFromEnv() (time.Duration, error) {
	v := os.Getenv("RUN_TIMEOUT")
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse RUN_TIMEOUT: %w", err)
	}
	return d, nil
}

// DefaultBuilder возвращает Builder со встроенными transformer'ами и skill.
func DefaultBuilder(policy skill.Policy) flow.Builder {
	return flow.Builder{
		Registry: steps.Default(),
		Skills:   skill.NewBuiltinCatalog(),
		Policy:   policy,
	}
}

// NewFromEnv загружает каталог из PIPELINES_DIR и создаёт Runner
// с политикой и таймаутом из окружения.
func NewFromEnv(metrics *telemetry.Metrics, logger *slog.Logger) (*Runner, error) {
	timeout, err := TimeoutFromEnv()
	if err != nil {
		return nil, err
	}

	builder := DefaultBuilder(PolicyFromEnv())

	dir := PipelinesDir()
	catalog, err := flow.LoadDir(dir, builder)
	if err != nil {
		return nil, fmt.Errorf("load pipelines from %s: %w", dir, err)
	}

	return New(Config{
		Catalog: catalog,
		Builder: builder,
		Metrics: metrics,
		Timeout: timeout,
		Logger:  logger,
	}), nil
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
