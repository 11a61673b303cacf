// Package scheduler запускает pipeline по cron-расписаниям.
//
// Расписание объявляется в определении pipeline:
//
//	schedule:
//	  cron: "*/5 * * * *"
//	  input: "payload for every run"
//
// На каждое срабатывание создаётся PENDING run с ключом
// идемпотентности "{pipeline}_{unix}" и публикуется conduit.run.requested.
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Catalog:   catalog,
//	    Store:     runRepo,
//	    Publisher: publisher,                          // опционально
//	    Leader:    repo.NewAdvisoryLock(pool, lockKey), // опционально
//	}, time.Now())
//	go sched.Run(ctx)
//
// Leader Election: при нескольких репликах тикает только держатель
// pg_advisory_lock.
package scheduler
