package scheduler

import (
	"fmt"
	"time"

	"github.com/shaiso/Conduit/internal/flow"
)

// CalculateNextDue вычисляет следующее время запуска после from.
//
// Часовой пояс задаётся префиксом выражения: "CRON_TZ=Europe/Moscow 0 9 * * *".
// Без префикса используется пояс from. Результат в UTC.
func CalculateNextDue(cronExpr string, from time.Time) (time.Time, error) {
	sched, err := flow.ParseCron(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return sched.Next(from).UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := flow.ParseCron(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
