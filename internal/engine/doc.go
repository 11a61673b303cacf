// Package engine содержит шаблонизатор на базе text/template.
//
// Используется:
//   - transformer "template" — рендер строки из текущего значения и state
//   - условия Branch в файлах определений ("when")
//
// Шаблоны видят Data: {{ .Value }}, {{ .Get "key" }}, {{ .Params.x }}.
package engine
