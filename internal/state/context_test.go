package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_RootWritesBareKey(t *testing.T) {
	c := New()
	c.Set("k", 1)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, map[string]any{"k": 1}, c.Snapshot())
	assert.True(t, c.IsRoot())
}

func TestContext_ScopeQualifiesWrites(t *testing.T) {
	c := New()
	child := c.Scope("x")
	child.Set("k", 1)

	v, ok := c.Get("x.k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("k")
	assert.False(t, ok, "child write must not leak into parent's bare namespace")

	v, ok = child.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestContext_NestedScopes(t *testing.T) {
	c := New()
	a := c.Scope("a")
	b := a.Scope("b")
	b.Set("v", 1)

	assert.Equal(t, "a.b", b.Namespace())
	assert.Same(t, a, b.Parent())

	v, ok := c.Get("a.b.v")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = a.Get("b.v")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestContext_ChildReadsAncestorValues(t *testing.T) {
	c := New()
	c.Set("shared", "root")
	a := c.Scope("a")
	a.Set("only_a", "a")
	b := a.Scope("b")

	assert.Equal(t, "root", b.GetString("shared"))
	assert.Equal(t, "a", b.GetString("only_a"))
	assert.True(t, b.Has("shared"))
	assert.False(t, c.Has("only_a"))
}

func TestContext_NamespacedKeyShadowsBareKey(t *testing.T) {
	c := New()
	c.Set("k", "bare")
	child := c.Scope("x")
	child.Set("k", "scoped")

	assert.Equal(t, "scoped", child.GetString("k"))
	assert.Equal(t, "bare", c.GetString("k"))
}

func TestContext_SiblingScopesDoNotCollide(t *testing.T) {
	c := New()
	c.Scope("parallel_0").Set("result", "a")
	c.Scope("parallel_1").Set("result", "b")

	assert.Equal(t, "a", c.GetString("parallel_0.result"))
	assert.Equal(t, "b", c.GetString("parallel_1.result"))
	assert.False(t, c.Has("result"))
}

func TestContext_Delete(t *testing.T) {
	c := New()
	c.Set("k", 1)
	child := c.Scope("x")
	child.Set("k", 2)

	assert.True(t, child.Delete("k"))
	assert.False(t, child.Delete("k"))

	// после удаления виден голый ключ корня
	assert.Equal(t, 1, child.GetInt("k"))
	assert.Equal(t, 1, c.GetInt("k"))
}

func TestContext_Update(t *testing.T) {
	c := New()
	child := c.Scope("x")
	child.Update(map[string]any{"a": 1, "b": 2})

	assert.Equal(t, []string{"x.a", "x.b"}, c.Keys())
	assert.Equal(t, []string{"a", "b"}, child.Keys())
}

func TestContext_SnapshotIsCopy(t *testing.T) {
	c := New()
	c.Set("k", 1)
	snap := c.Snapshot()
	snap["k"] = 2
	snap["new"] = true

	assert.Equal(t, 1, c.GetInt("k"))
	assert.False(t, c.Has("new"))
}

func TestContext_Merge(t *testing.T) {
	a := NewFrom(map[string]any{"x": 1, "y": 1})
	b := NewFrom(map[string]any{"y": 2, "z": 2})

	m := a.Merge(b)
	assert.Equal(t, map[string]any{"x": 1, "y": 2, "z": 2}, m.Snapshot())

	// оригиналы не меняются
	assert.Equal(t, 1, a.GetInt("y"))
	assert.False(t, a.Has("z"))

	assert.Equal(t, a.Snapshot(), a.Merge(nil).Snapshot())
}

func TestContext_GetOrAndTypedHelpers(t *testing.T) {
	c := NewFrom(map[string]any{"n": float64(3), "s": "str"})

	assert.Equal(t, 3, c.GetInt("n"))
	assert.Equal(t, 0, c.GetInt("s"))
	assert.Equal(t, "", c.GetString("n"))
	assert.Equal(t, "def", c.GetOr("missing", "def"))
}

func TestContext_MarshalJSON(t *testing.T) {
	c := New()
	c.Scope("a").Set("k", "v")

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a.k":"v"}`, string(b))
}

func TestContext_ConcurrentScopedWrites(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scope := c.Scope(fmt.Sprintf("parallel_%d", i))
			scope.Set("result", i)
			_, _ = scope.Get("result")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
	assert.Equal(t, 7, c.GetInt("parallel_7.result"))
}
