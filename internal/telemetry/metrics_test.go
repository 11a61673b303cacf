package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/Conduit/internal/pipeline"
	"github.com/shaiso/Conduit/internal/state"
)

func TestMetrics_ObservesChain(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	chain := pipeline.NewChain("strip", "uppercase").With(pipeline.WithObserver(m))
	out, err := chain.Run(context.Background(), "  hi ", state.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "HI" {
		t.Fatalf("expected HI, got %v", out)
	}

	// Chain не вызывает наблюдателя для себя, только для шагов
	ok := testutil.ToFloat64(m.stepsTotal.WithLabelValues(string(pipeline.KindTransformer), StatusOK))
	if ok != 2 {
		t.Errorf("expected 2 successful transformer steps, got %v", ok)
	}
	if inFlight := testutil.ToFloat64(m.stepsInFlight); inFlight != 0 {
		t.Errorf("expected 0 steps in flight, got %v", inFlight)
	}
}

func TestMetrics_InFlightAfterPanic(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	boom := func(any) any { panic("boom") }
	chain := pipeline.NewChain(boom).With(pipeline.WithObserver(m))

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_, _ = chain.Run(context.Background(), "x", state.New())
	}()

	if inFlight := testutil.ToFloat64(m.stepsInFlight); inFlight != 0 {
		t.Errorf("expected 0 steps in flight, got %v", inFlight)
	}
	if got := testutil.ToFloat64(m.stepsTotal.WithLabelValues(string(pipeline.KindFunc), StatusError)); got != 1 {
		t.Errorf("expected 1 failed func step, got %v", got)
	}
}

func TestMetrics_CountsFailures(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	info := pipeline.StepInfo{Kind: pipeline.KindSkill, Name: "fetch_url"}

	m.StepStarted(context.Background(), info)
	m.StepFinished(context.Background(), info, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.stepsTotal.WithLabelValues(string(pipeline.KindSkill), StatusError)); got != 1 {
		t.Errorf("expected 1 failed skill step, got %v", got)
	}
}

func TestMetrics_RunFinished(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RunFinished("demo", "SUCCEEDED", time.Second)
	m.RunFinished("demo", "SUCCEEDED", time.Second)
	m.RunFinished("demo", "FAILED", time.Second)

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("demo", "SUCCEEDED")); got != 2 {
		t.Errorf("expected 2 succeeded runs, got %v", got)
	}
	if got := testutil.CollectAndCount(m.runsTotal); got != 2 {
		t.Errorf("expected 2 label sets, got %d", got)
	}
}
