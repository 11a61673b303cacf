// Package repo хранит записи runs в Postgres через pgxpool.
//
// Схема таблицы: migrations/001_runs.sql. Входное значение, результат
// и снимок состояния хранятся в колонках JSONB.
package repo
