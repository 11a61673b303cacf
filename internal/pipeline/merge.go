package pipeline

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Имена стратегий merge.
const (
	MergeNameDict   = "dict"
	MergeNameList   = "list"
	MergeNameFirst  = "first"
	MergeNameCustom = "custom"
)

// Merge — стратегия объединения результатов Parallel.
type Merge struct {
	name string
	fn   func(map[string]any) (any, error)
}

var (
	// MergeDict — *Results: имя шага → результат, в порядке шагов.
	MergeDict = Merge{name: MergeNameDict}

	// MergeList — []any в порядке шагов.
	MergeList = Merge{name: MergeNameList}

	// MergeFirst — первый успешный результат.
	MergeFirst = Merge{name: MergeNameFirst}
)

// MergeFunc — пользовательская стратегия. Получает map имя → результат,
// ошибка функции возвращается как есть.
func MergeFunc(fn func(map[string]any) (any, error)) Merge {
	return Merge{name: MergeNameCustom, fn: fn}
}

// String возвращает имя стратегии.
func (m Merge) String() string {
	if m.name == "" {
		return MergeNameDict
	}
	return m.name
}

// ParseMerge возвращает встроенную стратегию по имени.
func ParseMerge(name string) (Merge, error) {
	switch name {
	case MergeNameDict, "":
		return MergeDict, nil
	case MergeNameList:
		return MergeList, nil
	case MergeNameFirst:
		return MergeFirst, nil
	default:
		return Merge{}, &UnknownMergeStrategyError{Name: name}
	}
}

// Results — упорядоченный результат merge "dict".
type Results struct {
	keys   []string
	values map[string]any
}

func newResults(names []string, values []any) *Results {
	r := &Results{
		keys:   slices.Clone(names),
		values: make(map[string]any, len(names)),
	}
	for i, name := range names {
		r.values[name] = values[i]
	}
	return r
}

// Get возвращает результат шага по имени.
func (r *Results) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Keys возвращает имена в порядке шагов.
func (r *Results) Keys() []string {
	return slices.Clone(r.keys)
}

// Len возвращает количество результатов.
func (r *Results) Len() int {
	return len(r.keys)
}

// Map возвращает копию результатов как map.
func (r *Results) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON сериализует результаты как JSON-объект с сохранением порядка.
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
