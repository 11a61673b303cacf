package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRunsCmd создаёт группу команд для управления runs через API.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage runs on the server",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsCancelCmd(clientFn, outputFn),
	)

	return cmd
}

// NewEnqueueCmd создаёт команду запуска pipeline на сервере.
func NewEnqueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var input inputFlags
	var wait bool
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "enqueue PIPELINE",
		Short: "Start a pipeline run on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			value, err := input.value()
			if err != nil {
				return err
			}

			run, err := client.CreateRun(args[0], CreateRunRequest{
				Input:          value,
				IdempotencyKey: idempotencyKey,
				Wait:           wait,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run %s: %s", run.ID, run.Status))
			printRun(out, run)
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().BoolVar(&wait, "wait", false, "Execute on the API server and wait for the result")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Return the existing run for a repeated key")

	return cmd
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pipeline string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				Pipeline: pipeline,
				Status:   status,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "PIPELINE", "STATUS", "DURATION_MS", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.Pipeline, r.Status, strconv.FormatInt(r.DurationMs, 10), r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&pipeline, "pipeline", "", "Filter by pipeline name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			printRun(out, run)
			return nil
		},
	}
}

func newRunsCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a pending run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run cancelled: %s", run.ID))
			return nil
		},
	}
}

func printRun(out *Output, run *RunResponse) {
	out.Print(
		[]string{"ID", "PIPELINE", "STATUS", "OUTPUT", "ERROR", "CREATED"},
		[][]string{{run.ID, run.Pipeline, run.Status, formatValue(run.Output), run.Error, run.CreatedAt}},
		run,
	)
}
