package skill

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog — реестр skill по имени. Потокобезопасен.
type Catalog struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewCatalog создаёт пустой каталог.
func NewCatalog() *Catalog {
	return &Catalog{skills: make(map[string]Skill)}
}

// Register добавляет skill. Запись с тем же именем перезаписывается.
func (c *Catalog) Register(s Skill) error {
	desc := s.Descriptor()
	if err := desc.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.skills[desc.Name] = s
	return nil
}

// MustRegister — Register с паникой на ошибке.
func (c *Catalog) MustRegister(s Skill) {
	if err := c.Register(s); err != nil {
		panic(err)
	}
}

// Get возвращает skill по имени.
func (c *Catalog) Get(name string) (Skill, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.skills[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, name)
	}
	return s, nil
}

// Has проверяет наличие skill.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.skills[name]
	return ok
}

// Descriptors возвращает дескрипторы, отсортированные по имени.
func (c *Catalog) Descriptors() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Descriptor, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count возвращает количество skill.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.skills)
}
