package steps

import (
	"fmt"
	"sort"
	"sync"
)

// Registry — реестр transformer'ов.
//
// Сопоставляет имя transformer'а с Factory, которая создаёт
// экземпляр по параметрам шага. Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// NewBuiltinRegistry создаёт реестр со всеми встроенными transformer'ами.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()

	r.Register(TransformerStrip, newStrip)
	r.Register(TransformerLowercase, newLowercase)
	r.Register(TransformerUppercase, newUppercase)
	r.Register(TransformerReplace, newReplace)
	r.Register(TransformerTemplate, newTemplate)
	r.Register(TransformerParseJSON, newParseJSON)
	r.Register(TransformerSetState, newSetState)
	r.Register(TransformerDelay, newDelay)
	r.Register(TransformerHTTP, newHTTP)

	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default возвращает общий для процесса реестр со встроенными transformer'ами.
// Создаётся при первом обращении.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewBuiltinRegistry()
	})
	return defaultRegistry
}

// Register регистрирует factory под именем.
// Существующая запись с тем же именем перезаписывается.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Lookup возвращает factory по имени.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Get создаёт transformer по имени и параметрам.
// Возвращает ErrTransformerNotFound, если имя не зарегистрировано.
func (r *Registry) Get(name string, params map[string]any) (Transformer, error) {
	factory, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransformerNotFound, name)
	}
	if params == nil {
		params = map[string]any{}
	}
	return factory(params)
}

// Has проверяет, зарегистрирован ли transformer.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names возвращает отсортированный список имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных transformer'ов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Unregister удаляет transformer из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}
