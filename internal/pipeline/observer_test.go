package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	started  []StepInfo
	finished []string
	failed   int
}

func (r *recordingObserver) StepStarted(_ context.Context, info StepInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, info)
}

func (r *recordingObserver) StepFinished(_ context.Context, info StepInfo, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, info.Namespace+"/"+info.Name)
	if err != nil {
		r.failed++
	}
}

func TestObserver_SeesNestedSteps(t *testing.T) {
	obs := &recordingObserver{}
	chain := NewChain("strip", NewParallel(MergeList, "uppercase", f_lower)).With(WithObserver(obs))

	_, err := chain.RunAsync(context.Background(), " a ", nil)
	require.NoError(t, err)

	sort.Strings(obs.finished)
	assert.Equal(t, []string{"/parallel", "/strip", "parallel_0/uppercase", "parallel_1/f_lower"}, obs.finished)
	for _, info := range obs.started {
		assert.True(t, info.Async)
	}
	assert.Equal(t, 0, obs.failed)
}

func TestObserver_CountsFailures(t *testing.T) {
	obs := &recordingObserver{}
	_, err := NewChain(fail).With(WithObserver(obs)).Run(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Equal(t, 1, obs.failed)
	assert.Equal(t, KindFunc, obs.started[0].Kind)
}

func TestObserver_FinishedOnPanic(t *testing.T) {
	obs := &recordingObserver{}
	boom := func(any) any { panic("boom") }
	chain := NewChain("strip", boom).With(WithObserver(obs))

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = chain.Run(context.Background(), " x ", nil)
	})

	require.Len(t, obs.started, 2)
	require.Len(t, obs.finished, 2)
	assert.Equal(t, 1, obs.failed)
}

func TestObservers_Combine(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := Observers(a, nil, b)

	_, err := NewChain("strip").With(WithObserver(obs)).Run(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Len(t, a.finished, 1)
	assert.Len(t, b.finished, 1)

	assert.IsType(t, noopObserver{}, Observers())
	assert.Same(t, a, Observers(nil, a))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := NewChain("strip", fail).With(WithLogger(logger)).Run(context.Background(), "x", nil)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "step started")
	assert.Contains(t, out, "step=strip")
	assert.Contains(t, out, "step failed")
	assert.Contains(t, out, "error=\"step failed\"")
}
