// Package skill реализует контракт вызова skill.
//
// Skill — функция с объявленным Descriptor: идемпотентность, async,
// побочные эффекты, доступ к сети и файловой системе, требуемые импорты.
// Каждый вызов возвращает новый Result со значением, ошибкой,
// длительностью и флагом Retryable.
//
// Порядок вызова:
//  1. запускается таймер
//  2. Policy проверяет дескриптор; при нарушении функция не вызывается
//  3. функция выполняется (IsAsync на синхронном пути — в отдельной горутине)
//  4. паника перехватывается, steps.TransformResult поднимается в Result
//  5. DurationMs заполняется всегда
//
// Политика передаётся явно через WithPolicy. Без неё действует NoPolicy.
package skill
