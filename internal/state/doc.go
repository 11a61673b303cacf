// Package state содержит разделяемое состояние выполнения pipeline.
//
// Context — иерархическое хранилище с namespace поверх одной плоской map.
// Один Context передаётся по ссылке через всё выполнение: Chain отдаёт его
// каждому шагу, Parallel создаёт для ветки i узел Scope("parallel_i").
//
// Правила:
//   - корень: namespace "", parent nil
//   - Scope(ns) у узла с namespace p даёт "p.ns" поверх той же map
//   - запись через узел с namespace идёт под "{namespace}.{key}"
//   - чтение: "{namespace}.{key}" → "{key}" → родитель
//
// Context безопасен для конкурентного использования, но два независимых
// выполнения pipeline должны получать разные экземпляры.
package state
