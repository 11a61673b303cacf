package pipeline

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/shaiso/Conduit/internal/steps"
)

// Kind — вид шага.
type Kind string

const (
	KindTransformer  Kind = "transformer"
	KindParams       Kind = "params"
	KindFunc         Kind = "func"
	KindSkill        Kind = "skill"
	KindInstance     Kind = "instance"
	KindChain        Kind = "chain"
	KindBranch       Kind = "branch"
	KindParallel     Kind = "parallel"
	KindUnresolvable Kind = "unresolvable"
)

// KindOf возвращает вид шага.
func KindOf(s Step) Kind {
	switch s.(type) {
	case Name:
		return KindTransformer
	case Params:
		return KindParams
	case Func:
		return KindFunc
	case SkillStep:
		return KindSkill
	case TransformerStep:
		return KindInstance
	case *Chain, SubChain:
		return KindChain
	case *Branch:
		return KindBranch
	case *Parallel:
		return KindParallel
	default:
		return KindUnresolvable
	}
}

// StepName возвращает отображаемое имя шага или "", если его нельзя определить.
func StepName(s Step) string {
	switch v := s.(type) {
	case Name:
		return string(v)
	case Params:
		name, _ := v[FunctionKey].(string)
		return name
	case Func:
		return v.Name
	case SkillStep:
		if v.Skill == nil || isNilValue(v.Skill) {
			return ""
		}
		return v.Skill.Descriptor().Name
	case TransformerStep:
		if n, ok := v.Transformer.(steps.Named); ok {
			return n.Name()
		}
		return ""
	case *Chain, SubChain, *Branch, *Parallel:
		return string(KindOf(s))
	default:
		return ""
	}
}

// displayNames возвращает уникальные имена шагов для merge "dict".
//
// Шаг без имени получает позиционное "step_{i}". Повторы получают
// суффикс: name, name_2, name_3.
func displayNames(list []Step) []string {
	names := make([]string, len(list))
	used := make(map[string]bool, len(list))
	counts := make(map[string]int, len(list))

	for i, s := range list {
		base := StepName(s)
		if base == "" {
			base = "step_" + strconv.Itoa(i)
		}

		counts[base]++
		name := base
		if counts[base] > 1 {
			name = fmt.Sprintf("%s_%d", base, counts[base])
		}
		for used[name] {
			counts[base]++
			name = fmt.Sprintf("%s_%d", base, counts[base])
		}

		used[name] = true
		names[i] = name
	}
	return names
}

// anonymousFunc совпадает с именами замыканий: func1, 2.
var anonymousFunc = regexp.MustCompile(`^(func)?\d+$`)

// funcName возвращает короткое имя функции или "" для замыканий.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}

	name := strings.TrimSuffix(rf.Name(), "-fm")
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	if anonymousFunc.MatchString(name) {
		return ""
	}
	return name
}
