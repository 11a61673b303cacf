package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Catalog — набор определений pipeline по имени. Потокобезопасен.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewCatalog создаёт пустой каталог.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Add добавляет определение. Повтор имени — ErrDuplicatePipeline.
func (c *Catalog) Add(def *Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.defs[def.Name]; ok {
		return fmt.Errorf("%w: %s (%s, %s)", ErrDuplicatePipeline, def.Name, existing.Source, def.Source)
	}
	c.defs[def.Name] = def
	return nil
}

// Get возвращает определение по имени.
func (c *Catalog) Get(name string) (*Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, name)
	}
	return def, nil
}

// Names возвращает отсортированные имена.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List возвращает определения, отсортированные по имени.
func (c *Catalog) List() []*Definition {
	names := c.Names()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Definition, 0, len(names))
	for _, name := range names {
		out = append(out, c.defs[name])
	}
	return out
}

// Scheduled возвращает определения с расписанием.
func (c *Catalog) Scheduled() []*Definition {
	var out []*Definition
	for _, def := range c.List() {
		if def.Schedule != nil && def.Schedule.Cron != "" {
			out = append(out, def)
		}
	}
	return out
}

// Len возвращает количество определений.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// LoadDir загружает все *.yaml, *.yml и *.json из каталога (без рекурсии)
// и проверяет каждое определение через Builder.
func LoadDir(dir string, b Builder) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pipelines dir: %w", err)
	}

	c := NewCatalog()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, err := FormatFromPath(path); err != nil {
			continue
		}

		def, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := b.Validate(def); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := c.Add(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}
