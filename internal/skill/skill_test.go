package skill

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Conduit/internal/state"
	"github.com/shaiso/Conduit/internal/steps"
)

func upper(_ context.Context, in Input) (any, error) {
	return in.Value.(string) + "!", nil
}

func TestNew_InvalidDescriptor(t *testing.T) {
	assert.Panics(t, func() { New(Descriptor{}, upper) })
	assert.Panics(t, func() { New(Descriptor{Name: "x"}, nil) })
}

func TestInvoke_Success(t *testing.T) {
	s := New(Descriptor{Name: "shout"}, upper)

	res := s.Invoke(context.Background(), Input{Value: "hi"})

	require.True(t, res.Success)
	assert.Equal(t, "hi!", res.Value)
	assert.Empty(t, res.Error)
	assert.False(t, res.Retryable)
	assert.GreaterOrEqual(t, res.DurationMs, 0.0)
	assert.Equal(t, "shout", res.Metadata[MetaSkill])
	assert.Equal(t, PathSync, res.Metadata[MetaPath])
	assert.NoError(t, res.Err())
}

func TestInvoke_FailureRetryableFollowsIdempotent(t *testing.T) {
	boom := func(context.Context, Input) (any, error) { return nil, errors.New("boom") }

	idem := New(Descriptor{Name: "idem", Idempotent: true}, boom).Invoke(context.Background(), Input{})
	assert.False(t, idem.Success)
	assert.Equal(t, "boom", idem.Error)
	assert.True(t, idem.Retryable)

	once := New(Descriptor{Name: "once"}, boom).Invoke(context.Background(), Input{})
	assert.False(t, once.Success)
	assert.False(t, once.Retryable)

	var execErr *ExecutionError
	require.ErrorAs(t, once.Err(), &execErr)
	assert.Equal(t, "once", execErr.Skill)
	assert.Equal(t, "boom", execErr.Message)
}

func TestInvoke_PanicRecovered(t *testing.T) {
	s := New(Descriptor{Name: "p", Idempotent: true}, func(context.Context, Input) (any, error) {
		panic("kaboom")
	})

	for _, res := range []Result{
		s.Invoke(context.Background(), Input{}),
		s.InvokeAsync(context.Background(), Input{}),
	} {
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "kaboom")
		assert.True(t, res.Retryable)
	}

	async := New(Descriptor{Name: "pa", IsAsync: true}, func(context.Context, Input) (any, error) {
		panic("in goroutine")
	})
	res := async.Invoke(context.Background(), Input{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "in goroutine")
}

func TestInvoke_LiftsTransformResult(t *testing.T) {
	ok := New(Descriptor{Name: "ok"}, func(context.Context, Input) (any, error) {
		return steps.TransformResult{Value: 7}, nil
	}).Invoke(context.Background(), Input{})
	assert.True(t, ok.Success)
	assert.Equal(t, 7, ok.Value)

	failed := New(Descriptor{Name: "bad", Idempotent: true}, func(context.Context, Input) (any, error) {
		return &steps.TransformResult{Err: errors.New("inner")}, nil
	}).InvokeAsync(context.Background(), Input{})
	assert.False(t, failed.Success)
	assert.Equal(t, "inner", failed.Error)
	assert.True(t, failed.Retryable)
	assert.Nil(t, failed.Value)
}

func TestInvoke_AsyncBridge(t *testing.T) {
	s := New(Descriptor{Name: "slow", IsAsync: true}, func(ctx context.Context, in Input) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return in.Value, nil
	})

	res := s.Invoke(context.Background(), Input{Value: 1})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Value)
	assert.Equal(t, true, res.Metadata[MetaBridge])
	assert.GreaterOrEqual(t, res.DurationMs, 20.0)

	res = s.InvokeAsync(context.Background(), Input{Value: 2})
	require.True(t, res.Success)
	assert.Nil(t, res.Metadata[MetaBridge])
	assert.Equal(t, PathAsync, res.Metadata[MetaPath])
}

func TestInvoke_AsyncBridgeCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := New(Descriptor{Name: "hang", IsAsync: true}, func(context.Context, Input) (any, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := s.Invoke(ctx, Input{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())
}

func TestInvoke_PassesState(t *testing.T) {
	sc := state.New()
	s := New(Descriptor{Name: "writer"}, func(_ context.Context, in Input) (any, error) {
		in.State.Set("seen", in.Args["tag"])
		return in.Value, nil
	})

	res := s.Invoke(context.Background(), Input{Value: "v", State: sc, Args: map[string]any{"tag": "x"}})
	require.True(t, res.Success)
	assert.Equal(t, "x", sc.GetString("seen"))
}

func TestInvoke_PolicyViolation(t *testing.T) {
	var called atomic.Bool
	s := New(Descriptor{
		Name:               "net",
		RequiresNetwork:    true,
		RequiresFilesystem: true,
		Idempotent:         true,
	}, func(context.Context, Input) (any, error) {
		called.Store(true)
		return nil, nil
	})

	res := s.Invoke(context.Background(), Input{}, WithPolicy(CapabilityPolicy{AllowFilesystem: true}))

	assert.False(t, res.Success)
	assert.False(t, called.Load(), "function must not be called")
	assert.Contains(t, res.Error, CapabilityNetwork)
	assert.NotContains(t, res.Error, CapabilityFilesystem)
	assert.Contains(t, res.Error, ErrPolicyViolation.Error())
	assert.False(t, res.Retryable)

	res = s.Invoke(context.Background(), Input{}, WithPolicy(CapabilityPolicy{AllowNetwork: true, AllowFilesystem: true}))
	assert.True(t, res.Success)
	assert.True(t, called.Load())
}

func TestInvoke_NilPolicyIsNoPolicy(t *testing.T) {
	s := New(Descriptor{Name: "net", RequiresNetwork: true}, upper)
	res := s.Invoke(context.Background(), Input{Value: "a"}, WithPolicy(nil))
	assert.True(t, res.Success)
}

func TestCapabilityPolicy_Imports(t *testing.T) {
	p := CapabilityPolicy{AllowedImports: []string{"json"}}

	v := p.Validate(Descriptor{Name: "x", RequiredImports: []string{"json", "yaml"}})
	require.Len(t, v, 1)
	assert.Equal(t, CapabilityImports, v[0].Capability)
	assert.Contains(t, v[0].String(), `"yaml"`)

	assert.Empty(t, CapabilityPolicy{}.Validate(Descriptor{Name: "x", RequiredImports: []string{"yaml"}}))
}

func TestPolicyFunc(t *testing.T) {
	deny := PolicyFunc(func(d Descriptor) []Violation {
		return []Violation{{Capability: "custom", Message: "denied " + d.Name}}
	})
	res := New(Descriptor{Name: "any"}, upper).InvokeAsync(context.Background(), Input{Value: "a"}, WithPolicy(deny))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "custom: denied any")
}

func TestDescriptor_IsCopied(t *testing.T) {
	imports := []string{"a"}
	s := New(Descriptor{Name: "x", RequiredImports: imports}, upper)
	imports[0] = "changed"

	d := s.Descriptor()
	assert.Equal(t, []string{"a"}, d.RequiredImports)
	d.RequiredImports[0] = "mutated"
	assert.Equal(t, []string{"a"}, s.Descriptor().RequiredImports)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(New(Descriptor{Name: "b"}, upper)))
	require.NoError(t, c.Register(New(Descriptor{Name: "a"}, upper)))

	assert.Equal(t, 2, c.Count())
	assert.True(t, c.Has("a"))

	s, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", s.Descriptor().Name)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrSkillNotFound)

	descs := c.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "a", descs[0].Name)
	assert.Equal(t, "b", descs[1].Name)
}

func TestBuiltinCatalog(t *testing.T) {
	c := NewBuiltinCatalog()
	assert.True(t, c.Has(SkillWordCount))
	assert.True(t, c.Has(SkillFetchURL))
	assert.True(t, c.Has(SkillReadFile))

	wc, _ := c.Get(SkillWordCount)
	res := wc.Invoke(context.Background(), Input{Value: "one two  three"})
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Value)

	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))

	rf, _ := c.Get(SkillReadFile)
	res = rf.Invoke(context.Background(), Input{Args: map[string]any{"path": path}}, WithPolicy(CapabilityPolicy{}))
	assert.False(t, res.Success, "filesystem is denied by default policy")

	res = rf.Invoke(context.Background(), Input{Value: path}, WithPolicy(CapabilityPolicy{AllowFilesystem: true}))
	require.True(t, res.Success)
	assert.Equal(t, "content", res.Value)
}
