// Package runner связывает каталог определений с выполнением runs.
//
// Runner используется worker'ом, API (wait=true) и CLI:
//
//	r := runner.New(runner.Config{Catalog: catalog, Builder: builder})
//	run := domain.NewRun("normalize", "  Hello ")
//	err := r.Execute(ctx, run)
//	// run.Status, run.Output, run.State
package runner
