// Package flow загружает декларативные определения pipeline.
//
// Определение — YAML или JSON документ:
//
//	name: normalize
//	mode: concurrent
//	steps:
//	  - strip
//	  - function: replace
//	    old: "-"
//	    new: " "
//	  - branch:
//	      when: 'hasPrefix .Value "http"'
//	      then: [{skill: fetch_url}]
//	  - parallel:
//	      merge: dict
//	      steps: [uppercase, lowercase, {skill: word_count}]
//	schedule:
//	  cron: "*/5 * * * *"
//	  input: "  Hello-World  "
//
// Разбор: Parse проверяет документ по встроенной JSON Schema.
// Builder.Validate проверяет ссылки на transformer'ы и skill, условия
// branch и cron. Builder.Build собирает pipeline.Chain.
package flow
