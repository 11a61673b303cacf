package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Conduit/internal/state"
)

func f_upper(v any) any { return shout(v) }

func f_lower(v any) any { return whisper(v) }

func runBoth(t *testing.T, p *Parallel, value any, sc func() *state.Context) (syncOut, asyncOut any) {
	t.Helper()
	var err error
	syncOut, err = p.Run(context.Background(), value, sc())
	require.NoError(t, err)
	asyncOut, err = p.RunAsync(context.Background(), value, sc())
	require.NoError(t, err)
	return syncOut, asyncOut
}

func TestParallel_Dict(t *testing.T) {
	p := NewParallel(MergeDict, f_upper, f_lower)

	syncOut, asyncOut := runBoth(t, p, "Hello", state.New)
	for _, out := range []any{syncOut, asyncOut} {
		res, ok := out.(*Results)
		require.True(t, ok, "expected *Results, got %T", out)
		assert.Equal(t, map[string]any{"f_upper": "HELLO", "f_lower": "hello"}, res.Map())
		assert.Equal(t, []string{"f_upper", "f_lower"}, res.Keys())
	}
}

func TestParallel_DictBothModes(t *testing.T) {
	p := NewParallel(MergeDict, f_upper, f_lower)
	syncOut, asyncOut := runBoth(t, p, "Hello", state.New)
	assert.Equal(t, syncOut.(*Results).Map(), asyncOut.(*Results).Map())
	assert.Equal(t, syncOut.(*Results).Keys(), asyncOut.(*Results).Keys())
}

func TestParallel_DictDuplicateNames(t *testing.T) {
	p := NewParallel(MergeDict, "uppercase", "uppercase", "lowercase", "uppercase", func(v any) any { return v })

	out, err := p.Run(context.Background(), "Ab", nil)
	require.NoError(t, err)

	res := out.(*Results)
	assert.Equal(t, 5, res.Len())
	assert.Equal(t, []string{"uppercase", "uppercase_2", "lowercase", "uppercase_3", "step_4"}, res.Keys())
	v, ok := res.Get("uppercase_3")
	require.True(t, ok)
	assert.Equal(t, "AB", v)
}

func TestParallel_DictJSONKeepsOrder(t *testing.T) {
	out, err := NewParallel(MergeDict, f_upper, f_lower).Run(context.Background(), "Hello", nil)
	require.NoError(t, err)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `{"f_upper":"HELLO","f_lower":"hello"}`, string(b))
}

func TestParallel_List(t *testing.T) {
	p := NewParallel(MergeList, "uppercase", "lowercase", f_upper)

	syncOut, asyncOut := runBoth(t, p, "Mixed", state.New)
	for _, out := range []any{syncOut, asyncOut} {
		list, ok := out.([]any)
		require.True(t, ok)
		assert.Equal(t, []any{"MIXED", "mixed", "MIXED"}, list)
	}
}

func TestParallel_First(t *testing.T) {
	for _, p := range []*Parallel{
		NewParallel(MergeFirst, fail, f_upper),
		NewParallel(MergeFirst, f_upper, fail),
	} {
		syncOut, asyncOut := runBoth(t, p, "hello", state.New)
		assert.Equal(t, "HELLO", syncOut)
		assert.Equal(t, "HELLO", asyncOut)
	}
}

// Последовательный "first" останавливается на первом успехе,
// конкурентный выполняет все шаги и берёт первый успешный по порядку.
func TestParallel_FirstSyncShortCircuitsAsyncRunsAll(t *testing.T) {
	var calls atomic.Int32
	count := func(v any) any {
		calls.Add(1)
		return v
	}

	p := NewParallel(MergeFirst, fail, f_upper, count, count)

	out, err := p.Run(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", out)
	assert.Equal(t, int32(0), calls.Load())

	out, err = p.RunAsync(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestParallel_FirstAsyncPrefersStepOrderOverCompletion(t *testing.T) {
	slow := func(v any) any {
		time.Sleep(30 * time.Millisecond)
		return "slow"
	}
	fast := func(v any) any { return "fast" }

	out, err := NewParallel(MergeFirst, slow, fast).RunAsync(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "slow", out)
}

func TestParallel_FirstAllFail(t *testing.T) {
	last := errors.New("last failure")
	failLast := func(any) (any, error) { return nil, last }

	p := NewParallel(MergeFirst, fail, fail, failLast)

	for _, run := range []func(context.Context, any, *state.Context) (any, error){p.Run, p.RunAsync} {
		_, err := run(context.Background(), "x", nil)

		var all *AllParallelStepsFailedError
		require.ErrorAs(t, err, &all)
		assert.Equal(t, 3, all.Count)
		assert.ErrorIs(t, err, last)
		assert.Contains(t, err.Error(), "3")
	}
}

func TestParallel_FirstEmpty(t *testing.T) {
	_, err := NewParallel(MergeFirst).Run(context.Background(), "x", nil)
	var all *AllParallelStepsFailedError
	require.ErrorAs(t, err, &all)
	assert.Equal(t, 0, all.Count)
}

func TestParallel_Custom(t *testing.T) {
	join := MergeFunc(func(results map[string]any) (any, error) {
		return results["f_upper"].(string) + "|" + results["f_lower"].(string), nil
	})

	syncOut, asyncOut := runBoth(t, NewParallel(join, f_upper, f_lower), "Hey", state.New)
	assert.Equal(t, "HEY|hey", syncOut)
	assert.Equal(t, "HEY|hey", asyncOut)
}

func TestParallel_CustomErrorPropagates(t *testing.T) {
	sentinel := errors.New("merge failed")
	p := NewParallel(MergeFunc(func(map[string]any) (any, error) { return nil, sentinel }), f_upper)

	_, err := p.Run(context.Background(), "x", nil)
	assert.Same(t, sentinel, err)
}

func TestParallel_StepErrorPropagates(t *testing.T) {
	p := NewParallel(MergeList, f_upper, fail)

	_, err := p.Run(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Equal(t, "step failed", err.Error())

	_, err = p.RunAsync(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Equal(t, "step failed", err.Error())
}

func TestParallel_BranchIsolation(t *testing.T) {
	sc := state.New()
	sc.Set("shared", "from root")

	p := NewParallel(MergeList,
		Params{"function": "set_state", "key": "result", "value": "zero"},
		Params{"function": "set_state", "key": "result", "value": `{{ .Get "shared" }}`},
	)

	for _, run := range []func(context.Context, any, *state.Context) (any, error){p.Run, p.RunAsync} {
		_, err := run(context.Background(), "in", sc)
		require.NoError(t, err)

		v0, ok := sc.Get("parallel_0.result")
		require.True(t, ok)
		assert.Equal(t, "zero", v0)

		v1, ok := sc.Get("parallel_1.result")
		require.True(t, ok)
		assert.Equal(t, "from root", v1)

		assert.False(t, sc.Has("result"))
	}
}

func TestParallel_NestedScopes(t *testing.T) {
	sc := state.New()
	inner := NewParallel(MergeList, Params{"function": "set_state", "key": "k"})
	outer := NewParallel(MergeList, "strip", inner)

	_, err := outer.RunAsync(context.Background(), "v", sc)
	require.NoError(t, err)

	v, ok := sc.Get("parallel_1.parallel_0.k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, []string{"parallel_1.parallel_0.k"}, sc.Keys())
}

func TestParallel_AsyncStartsAllBeforeWaiting(t *testing.T) {
	const n = 4
	var started sync.WaitGroup
	started.Add(n)

	// Каждая ветка ждёт, пока стартуют все. Без настоящей
	// конкурентности ожидание бы не завершилось.
	barrier := func(v any) (any, error) {
		started.Done()
		done := make(chan struct{})
		go func() {
			started.Wait()
			close(done)
		}()
		select {
		case <-done:
			return v, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("siblings did not start")
		}
	}

	items := make([]any, n)
	for i := range items {
		items[i] = barrier
	}

	out, err := NewParallel(MergeList, items...).RunAsync(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Len(t, out, n)
}

func TestParallel_AsyncNoSiblingCancellation(t *testing.T) {
	var finished atomic.Bool
	slow := func(ctx context.Context, v any) (any, error) {
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return v, ctx.Err()
	}

	out, err := NewParallel(MergeFirst, f_upper, slow).RunAsync(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "X", out)
	assert.True(t, finished.Load(), "sibling must run to completion")
}

func TestParallel_AsyncPanicReraised(t *testing.T) {
	boom := func(any) any { panic("boom") }
	p := NewParallel(MergeList, f_upper, boom)

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = p.RunAsync(context.Background(), "x", nil)
	})
}

func TestParseMerge(t *testing.T) {
	for name, want := range map[string]Merge{
		"dict":  MergeDict,
		"":      MergeDict,
		"list":  MergeList,
		"first": MergeFirst,
	} {
		got, err := ParseMerge(name)
		require.NoError(t, err)
		assert.Equal(t, want.String(), got.String())
	}

	_, err := ParseMerge("zip")
	var unknown *UnknownMergeStrategyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "zip", unknown.Name)
}

func TestParallel_InsideChain(t *testing.T) {
	chain := NewChain(
		"strip",
		NewParallel(MergeList, "uppercase", "lowercase"),
		func(v any) any {
			list := v.([]any)
			return list[0].(string) + list[1].(string)
		},
	)

	out, err := chain.RunAsync(context.Background(), "  Ab  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "ABab", out)
}
