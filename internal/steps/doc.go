// Package steps содержит границу между pipeline и листовыми исполнителями.
//
// # Обзор
//
// Transformer — листовой шаг pipeline. Получает текущее значение и
// state.Context, возвращает новое значение:
//
//	type Transformer interface {
//	    Transform(ctx context.Context, value any, sc *state.Context) (any, error)
//	}
//
// Pipeline не знает, как transformer'ы находятся и создаются. Он
// использует только Registry.Lookup: имя → Factory(params) → Transformer.
//
// # Registry
//
//	registry := steps.Default()             // общий для процесса реестр
//	t, err := registry.Get("replace", map[string]any{"old": "a", "new": "b"})
//
// Свой реестр:
//
//	r := steps.NewRegistry()
//	r.Register("reverse", func(params map[string]any) (steps.Transformer, error) {
//	    return steps.TransformerFunc(reverse), nil
//	})
//
// # Встроенные transformer'ы
//
//   - strip, lowercase, uppercase, replace — строковые
//   - template — Go templates (см. пакет engine)
//   - parse_json — разбор JSON
//   - set_state — запись значения в state
//   - delay — задержка с учётом отмены context
//   - http — HTTP запрос, результат {status_code, headers, body}
//
// # Ошибки
//
//   - ErrTransformerNotFound — имя не зарегистрировано
//   - ErrInvalidConfig — невалидные параметры
//   - ErrInvalidInput — вход не подходит transformer'у
//   - ErrStepCancelled — context отменён
//   - *HTTPError — ответ с кодом >= 400
package steps
