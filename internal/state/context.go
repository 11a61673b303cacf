package state

import (
	"encoding/json"
	"maps"
	"sort"
	"strings"
	"sync"
)

// separator — разделитель сегментов namespace в ключах.
const separator = "."

// store — единая плоская map, разделяемая всеми узлами дерева Context.
//
// Parallel выполняет ветки в горутинах, поэтому доступ защищён мьютексом.
type store struct {
	mu   sync.RWMutex
	data map[string]any
}

// Context — иерархическое key/value хранилище с namespace.
//
// Логически это дерево, физически — одна map на всё выполнение pipeline.
// Каждый узел хранит только ссылку на родителя и свой namespace:
//
//	root := state.New()
//	branch := root.Scope("parallel_0")
//	branch.Set("result", 1)      // root["parallel_0.result"] = 1
//	root.Get("result")           // nil, false
//	root.Get("parallel_0.result") // 1, true
//
// Запись через namespaced узел всегда идёт по полному ключу
// "{namespace}.{key}", поэтому ветки не перетирают значения друг друга.
// Чтение проходит цепочку: namespaced ключ → голый ключ → родитель.
type Context struct {
	store     *store
	parent    *Context
	namespace string
}

// New создаёт пустой корневой Context.
func New() *Context {
	return &Context{
		store: &store{data: make(map[string]any)},
	}
}

// NewFrom создаёт корневой Context с начальными значениями.
// Исходная map копируется.
func NewFrom(values map[string]any) *Context {
	c := New()
	maps.Copy(c.store.data, values)
	return c
}

// Namespace возвращает полный namespace узла ("" для корня).
func (c *Context) Namespace() string {
	return c.namespace
}

// Parent возвращает родительский узел (nil для корня).
func (c *Context) Parent() *Context {
	return c.parent
}

// IsRoot возвращает true для корневого узла.
func (c *Context) IsRoot() bool {
	return c.parent == nil && c.namespace == ""
}

// Scope создаёт дочерний узел с namespace ns.
// Дочерний узел разделяет ту же map — копирования нет.
func (c *Context) Scope(ns string) *Context {
	full := ns
	if c.namespace != "" {
		full = c.namespace + separator + ns
	}
	return &Context{
		store:     c.store,
		parent:    c,
		namespace: full,
	}
}

// key возвращает полностью квалифицированный ключ.
func (c *Context) key(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + separator + key
}

// Set записывает значение под квалифицированным ключом.
func (c *Context) Set(key string, value any) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.data[c.key(key)] = value
}

// Get ищет значение: сначала namespaced ключ, затем голый ключ,
// затем рекурсивно у родителя.
func (c *Context) Get(key string) (any, bool) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.lookup(key)
}

// lookup — Get без блокировки. Вызывающий держит RLock.
func (c *Context) lookup(key string) (any, bool) {
	for node := c; node != nil; node = node.parent {
		if v, ok := node.store.data[node.key(key)]; ok {
			return v, true
		}
		if v, ok := node.store.data[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// GetOr возвращает значение или def, если ключ не найден.
func (c *Context) GetOr(key string, def any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// GetString возвращает строковое значение ("" если нет или другой тип).
func (c *Context) GetString(key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetInt возвращает числовое значение, приводя int64/float64 к int.
func (c *Context) GetInt(key string) int {
	v, ok := c.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Has проверяет наличие ключа по тем же правилам, что и Get.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete удаляет квалифицированный ключ этого узла.
// Значения родителей не затрагиваются.
func (c *Context) Delete(key string) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	k := c.key(key)
	if _, ok := c.store.data[k]; !ok {
		return false
	}
	delete(c.store.data, k)
	return true
}

// Update записывает все значения из values через этот узел.
func (c *Context) Update(values map[string]any) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for k, v := range values {
		c.store.data[c.key(k)] = v
	}
}

// Snapshot возвращает поверхностную копию всей плоской map.
func (c *Context) Snapshot() map[string]any {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return maps.Clone(c.store.data)
}

// Merge возвращает новый корневой Context с объединением map обоих
// контекстов. При конфликте побеждает other. Исходные контексты
// не изменяются.
func (c *Context) Merge(other *Context) *Context {
	merged := NewFrom(c.Snapshot())
	if other != nil {
		maps.Copy(merged.store.data, other.Snapshot())
	}
	return merged
}

// Keys возвращает отсортированные ключи.
//
// Для корня — все ключи плоской map. Для namespaced узла — только ключи
// внутри его namespace, без префикса.
func (c *Context) Keys() []string {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	keys := make([]string, 0, len(c.store.data))
	prefix := c.namespace + separator
	for k := range c.store.data {
		if c.namespace == "" {
			keys = append(keys, k)
			continue
		}
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			keys = append(keys, rest)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len возвращает количество записей в разделяемой map.
func (c *Context) Len() int {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return len(c.store.data)
}

// MarshalJSON сериализует снимок разделяемой map.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}
