package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/Conduit/internal/pipeline"
)

// Значения метки status.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics — Prometheus метрики выполнения pipeline.
//
// Реализует pipeline.Observer: подключается к Chain через
// pipeline.WithObserver и считает каждый шаг, включая вложенные.
type Metrics struct {
	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	stepsInFlight prometheus.Gauge
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
}

var _ pipeline.Observer = (*Metrics)(nil)

// NewMetrics регистрирует метрики в reg. nil — prometheus.DefaultRegisterer.
// Повторная регистрация в одном реестре паникует.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_steps_total",
			Help: "Total pipeline steps executed, by kind and status",
		}, []string{"kind", "status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conduit_step_duration_seconds",
			Help:    "Pipeline step execution time",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"kind"}),
		stepsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "conduit_steps_in_flight",
			Help: "Pipeline steps currently executing",
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_runs_total",
			Help: "Total pipeline runs finished, by pipeline and status",
		}, []string{"pipeline", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conduit_run_duration_seconds",
			Help:    "Pipeline run execution time",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline"}),
	}
}

// StepStarted реализует pipeline.Observer.
func (m *Metrics) StepStarted(_ context.Context, _ pipeline.StepInfo) {
	m.stepsInFlight.Inc()
}

// StepFinished реализует pipeline.Observer.
func (m *Metrics) StepFinished(_ context.Context, info pipeline.StepInfo, elapsed time.Duration, err error) {
	m.stepsInFlight.Dec()

	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.stepsTotal.WithLabelValues(string(info.Kind), status).Inc()
	m.stepDuration.WithLabelValues(string(info.Kind)).Observe(elapsed.Seconds())
}

// RunFinished учитывает завершённый run. status — итоговый статус run.
func (m *Metrics) RunFinished(pipelineName, status string, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(pipelineName, status).Inc()
	m.runDuration.WithLabelValues(pipelineName).Observe(elapsed.Seconds())
}

// RunsCounter возвращает счётчик runs для pipeline и статуса.
func (m *Metrics) RunsCounter(pipelineName, status string) prometheus.Counter {
	return m.runsTotal.WithLabelValues(pipelineName, status)
}
