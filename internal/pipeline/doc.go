// Package pipeline исполняет декларативные списки шагов.
//
// # Шаги
//
// Step — закрытое множество вариантов:
//
//	pipeline.Name("strip")                                  // transformer из Registry
//	pipeline.Params{"function": "replace", "old": "a"}      // transformer с параметрами
//	pipeline.Func{Name: "shout", Fn: fn}                    // функция от значения
//	pipeline.SkillStep{Skill: s}                            // skill
//	pipeline.TransformerStep{Transformer: t}                // готовый transformer
//	pipeline.SubChain{...}, *Chain, *Branch, *Parallel      // вложенные pipeline
//
// From приводит к Step строки, map, списки, функции, skill и transformer'ы.
// Ошибки вида шага возникают только при выполнении.
//
// # Выполнение
//
//	chain := pipeline.NewChain("strip", "lowercase")
//	out, err := chain.Run(ctx, "  HELLO  ", nil) // "hello"
//
// Run — последовательный режим. RunAsync — конкурентный: ветки
// Parallel выполняются в горутинах, skill вызываются по async пути.
//
// # Состояние
//
// Все шаги одного выполнения разделяют state.Context. Parallel
// передаёт ветке i scope "parallel_{i}", поэтому запись "result"
// в ветке 0 оказывается под ключом "parallel_0.result".
//
// # Ошибки
//
// Ошибки transformer'ов и функций возвращаются без обёртки.
// Неуспешный skill превращается в *SkillInvocationError
// (errors.Is(err, ErrSkillExecutionFailed)).
package pipeline
