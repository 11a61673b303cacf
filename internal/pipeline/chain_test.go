package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/state"
)

func TestChain_StripLowercase(t *testing.T) {
	out, err := NewChain("strip", "lowercase").Run(context.Background(), "  HELLO  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestChain_EmptyIsIdentity(t *testing.T) {
	for _, v := range []any{"x", 42, nil, map[string]any{"a": 1}} {
		out, err := NewChain().Run(context.Background(), v, nil)
		require.NoError(t, err)
		assert.Equal(t, v, out)

		out, err = NewChain().RunAsync(context.Background(), v, nil)
		require.NoError(t, err)
		assert.Equal(t, v, out)
	}
}

func TestChain_Concat(t *testing.T) {
	a := NewChain("strip")
	b := NewChain("uppercase", shout)

	ab := a.Concat(b)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 3, ab.Len())

	ctx := context.Background()
	in := "  mixed Case  "

	viaConcat, err := ab.Run(ctx, in, nil)
	require.NoError(t, err)

	first, err := a.Run(ctx, in, nil)
	require.NoError(t, err)
	composed, err := b.Run(ctx, first, nil)
	require.NoError(t, err)

	assert.Equal(t, composed, viaConcat)
	assert.Equal(t, "MIXED CASE", viaConcat)
}

func TestChain_ConcatDoesNotAlias(t *testing.T) {
	a := NewChain("strip", "lowercase")
	ab := a.Concat(NewChain("uppercase"))
	ac := a.Concat(NewChain("strip"))

	assert.Equal(t, Name("uppercase"), ab.Steps()[2])
	assert.Equal(t, Name("strip"), ac.Steps()[2])

	steps := a.Steps()
	steps[0] = Name("changed")
	assert.Equal(t, Name("strip"), a.Steps()[0])
}

func TestChain_FirstErrorAborts(t *testing.T) {
	var calls []string
	record := func(name string) func(any) any {
		return func(v any) any {
			calls = append(calls, name)
			return v
		}
	}

	_, err := NewChain(record("a"), fail, record("b")).Run(context.Background(), "x", nil)

	require.Error(t, err)
	assert.Equal(t, "step failed", err.Error())
	assert.Equal(t, []string{"a"}, calls)
}

func TestChain_SharedContext(t *testing.T) {
	sc := state.New()
	chain := NewChain(
		Params{"function": "set_state", "key": "first"},
		"uppercase",
		Params{"function": "set_state", "key": "second"},
	)
	out, err := chain.Run(context.Background(), "v", sc)
	require.NoError(t, err)
	assert.Equal(t, "V", out)
	assert.Equal(t, "v", sc.GetString("first"))
	assert.Equal(t, "V", sc.GetString("second"))
}

func TestChain_NilContextIsFreshPerCall(t *testing.T) {
	var seen []*state.Context
	s := skill.New(skill.Descriptor{Name: "probe"}, func(_ context.Context, in skill.Input) (any, error) {
		seen = append(seen, in.State)
		if in.State.Has("marker") {
			return nil, errors.New("state leaked between calls")
		}
		in.State.Set("marker", true)
		return in.Value, nil
	})

	chain := NewChain(s)
	for i := 0; i < 2; i++ {
		_, err := chain.Run(context.Background(), "x", nil)
		require.NoError(t, err)
	}
	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
	assert.True(t, seen[0].IsRoot())
}

func TestChain_NestedListIsSubChain(t *testing.T) {
	out, err := NewChain([]any{"strip", []any{"uppercase"}}, shout).Run(context.Background(), " a ", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", out)
}

func TestChain_StepsRunStrictlyInOrderAsync(t *testing.T) {
	var mu sync.Mutex
	var order []int
	step := func(i int, d time.Duration) Func {
		return Func{Fn: func(_ context.Context, v any) (any, error) {
			time.Sleep(d)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return v.(int) + 1, nil
		}}
	}

	out, err := NewChain(step(0, 20*time.Millisecond), step(1, 0), step(2, 10*time.Millisecond)).
		RunAsync(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, out)
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestChain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain("strip").Run(ctx, "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChain_PolicyAppliesToNestedSkills(t *testing.T) {
	var called bool
	net := skill.New(skill.Descriptor{Name: "net", RequiresNetwork: true}, func(_ context.Context, in skill.Input) (any, error) {
		called = true
		return in.Value, nil
	})

	chain := NewChain(NewBranch(func(any) bool { return true }, []any{net}, nil)).
		With(WithPolicy(skill.CapabilityPolicy{}))

	_, err := chain.Run(context.Background(), "x", nil)

	var invocation *SkillInvocationError
	require.ErrorAs(t, err, &invocation)
	assert.Contains(t, invocation.Message, skill.CapabilityNetwork)
	assert.False(t, called)

	out, err := NewChain(net).Run(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestChain_ConcurrentRunsWithSeparateContexts(t *testing.T) {
	chain := NewChain(
		Params{"function": "set_state", "key": "in"},
		"uppercase",
	)

	var wg sync.WaitGroup
	contexts := make([]*state.Context, 20)
	for i := range contexts {
		contexts[i] = state.New()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = chain.RunAsync(context.Background(), string(rune('a'+i)), contexts[i])
		}()
	}
	wg.Wait()

	for i, sc := range contexts {
		assert.Equal(t, string(rune('a'+i)), sc.GetString("in"))
	}
}
